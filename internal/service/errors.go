package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrInvalidRange: start >= end по времени либо startDate > endDate
	ErrInvalidRange = errors.New("invalid range")
	// ErrSessionFinished: попытка изменить расписание у COMPLETED/CANCELLED занятия
	ErrSessionFinished = errors.New("session already completed or cancelled")
)

const (
	ResourceRoom    = "room"
	ResourceTrainer = "trainer"
)

// ConflictError: зал или преподаватель уже заняты пересекающимся занятием.
// Комнатный конфликт всегда репортится раньше преподавательского.
type ConflictError struct {
	Resource   string    `json:"resource"` // "room" | "trainer"
	ResourceID int64     `json:"resource_id"`
	Date       time.Time `json:"date"`
	SessionID  int64     `json:"session_id"` // занятие, с которым пересеклись
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %d is already booked on %s (session %d)",
		e.Resource, e.ResourceID, e.Date.Format("2006-01-02"), e.SessionID)
}

// InvalidStudentError: отметка посещаемости для студента не из группы занятия.
type InvalidStudentError struct {
	StudentID int64 `json:"student_id"`
	GroupID   int64 `json:"group_id"`
}

func (e *InvalidStudentError) Error() string {
	return fmt.Sprintf("student %d is not a member of group %d", e.StudentID, e.GroupID)
}
