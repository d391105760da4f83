package repository

import (
	"time"

	"github.com/jmoiron/sqlx"

	"dance-school-crm/internal/models"
)

// Tx-sensitive методы принимают sqlx.Ext: в обычном режиме передаётся *sqlx.DB,
// внутри транзакции — *sqlx.Tx. Проверка конфликта и запись должны идти в одной
// транзакции, иначе два конкурентных запроса пройдут проверку до коммита друг друга.

// TxRunner оборачивает функцию в транзакцию; rollback при любой ошибке.
type TxRunner interface {
	InTx(fn func(q sqlx.Ext) error) error
}

type SessionRepository interface {
	Create(q sqlx.Ext, session *models.Session) error
	GetByID(q sqlx.Ext, id int64) (*models.Session, error)
	GetByDateRange(start, end time.Time, groupID *int64) ([]models.Session, error)

	// Окна конфликтов: не-CANCELLED занятия на дату по залу / по преподавателю.
	// excludeID исключает редактируемое занятие из собственной проверки.
	GetActiveByRoom(q sqlx.Ext, date time.Time, roomID int64, excludeID int64) ([]models.Session, error)
	GetActiveByTrainer(q sqlx.Ext, date time.Time, trainerID int64, excludeID int64) ([]models.Session, error)

	GetScheduledByTrainer(trainerID int64, start, end time.Time) ([]models.Session, error)

	UpdatePartial(q sqlx.Ext, id int64, updates map[string]interface{}) error
	MarkSubstituted(id int64, substituteTrainerID, originalTrainerID int64, at time.Time) error
	CompletePast(asOf time.Time) (int64, error)

	Delete(id int64) error
	DeleteFutureBySeries(q sqlx.Ext, seriesID int64, from time.Time) (int64, error)
}

type SeriesRepository interface {
	Create(q sqlx.Ext, series *models.RecurringSeries) error
	GetByID(id int64) (*models.RecurringSeries, error)
	GetAllActive() ([]models.RecurringSeries, error)
	SoftDelete(q sqlx.Ext, id int64, at time.Time) error
}

type AttendanceRepository interface {
	Upsert(q sqlx.Ext, record *models.AttendanceRecord) error
	GetBySession(sessionID int64) ([]models.AttendanceRecord, error)
	GetByStudent(studentID int64, start, end time.Time) ([]models.AttendanceRecord, error)

	// Статистика
	CountByStudent(studentID int64, start, end time.Time) (total, attended int, err error)
	MonthlyByStudent(studentID int64, start, end time.Time) ([]models.MonthlyAttendance, error)
	SessionCountsByGroup(groupID int64, start, end time.Time) ([]models.SessionAttendanceCount, error)
	StudentCountsByGroup(groupID int64, start, end time.Time) ([]models.StudentGroupStats, error)
}

type GroupRepository interface {
	GetByID(id int64) (*models.Group, error)
	GetAll() ([]models.Group, error)
	GetRoster(groupID int64) ([]models.Student, error)
	CountMembers(groupID int64) (int, error)
}

type TrainerRepository interface {
	GetByID(id int64) (*models.Trainer, error)
	GetAll() ([]models.Trainer, error)
}

type StudentRepository interface {
	GetByID(id int64) (*models.Student, error)
	GetAll() ([]models.Student, error)
}

type RoomRepository interface {
	GetByID(id int64) (*models.Room, error)
	GetAll() ([]models.Room, error)
}
