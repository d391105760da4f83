package models

import "time"

type Room struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Capacity  *int      `db:"capacity" json:"capacity,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
