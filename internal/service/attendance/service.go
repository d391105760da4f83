package attendance_service

import (
	"math"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"dance-school-crm/internal/models"
	"dance-school-crm/internal/repository"
	"dance-school-crm/internal/service"
)

type attendanceService struct {
	attendanceRepo repository.AttendanceRepository
	sessionRepo    repository.SessionRepository
	groupRepo      repository.GroupRepository
	studentRepo    repository.StudentRepository
	tx             repository.TxRunner
	logger         *zap.Logger
}

func NewAttendanceService(
	attendanceRepo repository.AttendanceRepository,
	sessionRepo repository.SessionRepository,
	groupRepo repository.GroupRepository,
	studentRepo repository.StudentRepository,
	tx repository.TxRunner,
	logger *zap.Logger,
) service.AttendanceService {
	return &attendanceService{
		attendanceRepo: attendanceRepo,
		sessionRepo:    sessionRepo,
		groupRepo:      groupRepo,
		studentRepo:    studentRepo,
		tx:             tx,
		logger:         logger,
	}
}

// rate: attended/total*100 с округлением до одного знака; 0 при total == 0.
func rate(attended, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(attended)/float64(total)*1000) / 10
}

// RecordAttendance отмечает посещаемость пачкой. Состав группы проверяется на
// момент вызова; один чужой студент отклоняет весь вызов без записи.
// Повторная отметка той же пары перезаписывает present, дублей не возникает.
func (s *attendanceService) RecordAttendance(sessionID int64, entries []service.AttendanceEntry) (int, error) {
	session, err := s.sessionRepo.GetByID(nil, sessionID)
	if err != nil {
		return 0, err
	}
	if session == nil {
		return 0, service.ErrNotFound
	}

	roster, err := s.groupRepo.GetRoster(session.GroupID)
	if err != nil {
		return 0, err
	}
	members := make(map[int64]bool, len(roster))
	for _, st := range roster {
		members[st.ID] = true
	}

	for _, entry := range entries {
		if !members[entry.StudentID] {
			return 0, &service.InvalidStudentError{StudentID: entry.StudentID, GroupID: session.GroupID}
		}
	}

	count := 0
	err = s.tx.InTx(func(q sqlx.Ext) error {
		for _, entry := range entries {
			record := &models.AttendanceRecord{
				SessionID: sessionID,
				StudentID: entry.StudentID,
				Present:   entry.Present,
			}
			if err := s.attendanceRepo.Upsert(q, record); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("attendance recorded",
		zap.Int64("session_id", sessionID),
		zap.Int("entries", count))

	return count, nil
}

func (s *attendanceService) GetSessionAttendance(sessionID int64) ([]models.AttendanceRecord, error) {
	session, err := s.sessionRepo.GetByID(nil, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, service.ErrNotFound
	}
	return s.attendanceRepo.GetBySession(sessionID)
}

// StudentStats: в знаменателе только занятия с реально отмеченной посещаемостью.
func (s *attendanceService) StudentStats(studentID int64, from, to time.Time) (*models.StudentStats, error) {
	student, err := s.studentRepo.GetByID(studentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, service.ErrNotFound
	}

	total, attended, err := s.attendanceRepo.CountByStudent(studentID, from, to)
	if err != nil {
		return nil, err
	}

	monthly, err := s.attendanceRepo.MonthlyByStudent(studentID, from, to)
	if err != nil {
		return nil, err
	}
	for i := range monthly {
		monthly[i].AttendanceRate = rate(monthly[i].AttendedClasses, monthly[i].TotalClasses)
	}

	return &models.StudentStats{
		StudentID:       studentID,
		TotalClasses:    total,
		AttendedClasses: attended,
		AttendanceRate:  rate(attended, total),
		Monthly:         monthly,
	}, nil
}

// GroupStats: для занятий без отметок в знаменатель идёт текущий размер состава
// группы — исторический состав не восстановить, оценка принята осознанно.
func (s *attendanceService) GroupStats(groupID int64, from, to time.Time) (*models.GroupStats, error) {
	group, err := s.groupRepo.GetByID(groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, service.ErrNotFound
	}

	sessions, err := s.sessionRepo.GetByDateRange(from, to, &groupID)
	if err != nil {
		return nil, err
	}

	counts, err := s.attendanceRepo.SessionCountsByGroup(groupID, from, to)
	if err != nil {
		return nil, err
	}
	bySession := make(map[int64]models.SessionAttendanceCount, len(counts))
	for _, c := range counts {
		bySession[c.SessionID] = c
	}

	rosterSize, err := s.groupRepo.CountMembers(groupID)
	if err != nil {
		return nil, err
	}

	totalEvents := 0
	denominator := 0
	numerator := 0
	for i := range sessions {
		if sessions[i].Status == models.StatusCancelled {
			continue
		}
		totalEvents++

		if c, ok := bySession[sessions[i].ID]; ok {
			denominator += c.Total
			numerator += c.Present
		} else {
			denominator += rosterSize
		}
	}

	perStudent, err := s.attendanceRepo.StudentCountsByGroup(groupID, from, to)
	if err != nil {
		return nil, err
	}
	for i := range perStudent {
		perStudent[i].AttendanceRate = rate(perStudent[i].AttendedClasses, perStudent[i].TotalClasses)
	}

	return &models.GroupStats{
		GroupID:               groupID,
		TotalEvents:           totalEvents,
		OverallAttendanceRate: rate(numerator, denominator),
		PerStudent:            perStudent,
	}, nil
}
