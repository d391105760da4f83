package models

import "time"

// Session status state machine: SCHEDULED is the only non-terminal state.
const (
	StatusScheduled = "SCHEDULED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

type Session struct {
	ID                int64      `db:"id" json:"id"`
	SessionDate       time.Time  `db:"session_date" json:"session_date"`
	StartTime         string     `db:"start_time" json:"start_time"` // "15:30"
	EndTime           string     `db:"end_time" json:"end_time"`     // "17:00"
	GroupID           int64      `db:"group_id" json:"group_id"`
	TrainerID         int64      `db:"trainer_id" json:"trainer_id"`
	OriginalTrainerID *int64     `db:"original_trainer_id" json:"original_trainer_id,omitempty"`
	RoomID            *int64     `db:"room_id" json:"room_id,omitempty"`
	Status            string     `db:"status" json:"status"`
	IsSubstitution    bool       `db:"is_substitution" json:"is_substitution"`
	SubstitutedAt     *time.Time `db:"substituted_at" json:"substituted_at,omitempty"`
	Description       string     `db:"description" json:"description"`
	SeriesID          *int64     `db:"series_id" json:"series_id,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`

	// Joined fields
	GroupName   string `db:"group_name" json:"group_name,omitempty"`
	TrainerName string `db:"trainer_name" json:"trainer_name,omitempty"`
	RoomName    string `db:"room_name" json:"room_name,omitempty"`

	// Group's home trainer differs from the assigned one without a formal
	// substitution record. Computed on read, never stored.
	IsAdHocSubstitute bool `db:"is_ad_hoc_substitute" json:"is_ad_hoc_substitute"`
}

// Finished reports whether the session reached a terminal status.
func (s *Session) Finished() bool {
	return s.Status == StatusCompleted || s.Status == StatusCancelled
}

type RecurringSeries struct {
	ID          int64      `db:"id" json:"id"`
	StartDate   time.Time  `db:"start_date" json:"start_date"`
	EndDate     time.Time  `db:"end_date" json:"end_date"` // inclusive
	DayOfWeek   int        `db:"day_of_week" json:"day_of_week"` // 1=Monday .. 7=Sunday
	StartTime   string     `db:"start_time" json:"start_time"`
	EndTime     string     `db:"end_time" json:"end_time"`
	GroupID     int64      `db:"group_id" json:"group_id"`
	TrainerID   int64      `db:"trainer_id" json:"trainer_id"`
	RoomID      *int64     `db:"room_id" json:"room_id,omitempty"`
	Description string     `db:"description" json:"description"`
	DeletedAt   *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
