package models

import "time"

type Group struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	TrainerID   int64     `db:"trainer_id" json:"trainer_id"` // home trainer
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	// Joined fields
	TrainerName string `db:"trainer_name" json:"trainer_name,omitempty"`
	MemberCount int    `db:"member_count" json:"member_count"`
}

// GroupMembership is the explicit student<->group join relation. A student is
// a current member while left_at is NULL.
type GroupMembership struct {
	GroupID   int64      `db:"group_id" json:"group_id"`
	StudentID int64      `db:"student_id" json:"student_id"`
	JoinedAt  time.Time  `db:"joined_at" json:"joined_at"`
	LeftAt    *time.Time `db:"left_at" json:"left_at,omitempty"`
}
