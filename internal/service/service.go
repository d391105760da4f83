package service

import (
	"time"

	"dance-school-crm/internal/models"
)

// Clock подменяется в тестах фиксированным временем
type Clock func() time.Time

// Notifier рассылает уведомления о заменах и отменах. Реализация может
// отсутствовать (nil-safe на стороне сервисов).
type Notifier interface {
	NotifySubstitution(session *models.Session, originalTrainerID, substituteTrainerID int64)
	NotifyCancellation(session *models.Session, reason string)
}

type CreateSessionInput struct {
	Date        time.Time
	StartTime   string // "HH:MM"
	EndTime     string // "HH:MM"
	GroupID     int64
	TrainerID   int64
	RoomID      *int64
	Description string
}

type CreateSeriesInput struct {
	StartDate   time.Time
	EndDate     time.Time // включительно
	StartTime   string
	EndTime     string
	GroupID     int64
	TrainerID   int64
	RoomID      *int64
	Description string
}

// SessionPatch — частичное редактирование: nil-поле не меняется.
type SessionPatch struct {
	Date        *time.Time
	StartTime   *string
	EndTime     *string
	GroupID     *int64
	TrainerID   *int64
	RoomID      *int64
	ClearRoom   bool
	Description *string
}

// TouchesSchedule сообщает, задевает ли патч поля, влияющие на конфликты.
func (p *SessionPatch) TouchesSchedule() bool {
	return p.Date != nil || p.StartTime != nil || p.EndTime != nil ||
		p.GroupID != nil || p.TrainerID != nil || p.RoomID != nil || p.ClearRoom
}

type SkippedSession struct {
	SessionID int64     `json:"session_id"`
	Date      time.Time `json:"date"`
	Reason    string    `json:"reason"`
}

type SubstitutionResult struct {
	UpdatedCount int              `json:"updated_count"`
	Skipped      []SkippedSession `json:"skipped"`
}

type ScheduleService interface {
	// GetSessions прогоняет sweep прошедших занятий перед чтением
	GetSessions(from, to time.Time, groupID *int64) ([]models.Session, error)
	GetSession(id int64) (*models.Session, error)
	CreateSingleSession(input CreateSessionInput) (*models.Session, error)
	EditSession(id int64, patch SessionPatch) (*models.Session, error)
	CancelSession(id int64, reason string) (*models.Session, error)
	DeleteSession(id int64) error
	SweepPastSessions(asOf time.Time) (int64, error)
	Substitute(originalTrainerID, substituteTrainerID int64, from, to time.Time) (*SubstitutionResult, error)
}

type SeriesService interface {
	CreateSeries(input CreateSeriesInput) (*models.RecurringSeries, []models.Session, error)
	GetAllSeries() ([]models.RecurringSeries, error)
	DeleteSeries(id int64) error
}

type AttendanceEntry struct {
	StudentID int64 `json:"student_id"`
	Present   bool  `json:"present"`
}

type AttendanceService interface {
	RecordAttendance(sessionID int64, entries []AttendanceEntry) (int, error)
	GetSessionAttendance(sessionID int64) ([]models.AttendanceRecord, error)
	StudentStats(studentID int64, from, to time.Time) (*models.StudentStats, error)
	GroupStats(groupID int64, from, to time.Time) (*models.GroupStats, error)
}
