package schedule_service

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"dance-school-crm/internal/models"
	"dance-school-crm/internal/repository"
	"dance-school-crm/internal/service"
	"dance-school-crm/internal/timerange"
)

type scheduleService struct {
	sessionRepo repository.SessionRepository
	tx          repository.TxRunner
	notifier    service.Notifier
	logger      *zap.Logger
	now         service.Clock
}

func NewScheduleService(
	sessionRepo repository.SessionRepository,
	tx repository.TxRunner,
	notifier service.Notifier,
	logger *zap.Logger,
	now service.Clock,
) service.ScheduleService {
	if now == nil {
		now = time.Now
	}
	return &scheduleService{
		sessionRepo: sessionRepo,
		tx:          tx,
		notifier:    notifier,
		logger:      logger,
		now:         now,
	}
}

// CheckConflict ищет пересечение кандидата с не-CANCELLED занятиями на дату.
// Сначала зал, потом преподаватель: при двойном конфликте репортится зал.
// roomID == nil отключает проверку зала, trainerID == 0 — преподавателя.
func CheckConflict(
	repo repository.SessionRepository,
	q sqlx.Ext,
	date time.Time,
	startTime, endTime string,
	roomID *int64,
	trainerID int64,
	excludeID int64,
) error {
	start, err := timerange.ParseClock(startTime)
	if err != nil {
		return err
	}
	end, err := timerange.ParseClock(endTime)
	if err != nil {
		return err
	}

	if roomID != nil {
		existing, err := repo.GetActiveByRoom(q, date, *roomID, excludeID)
		if err != nil {
			return err
		}
		if conflict, err := firstOverlap(existing, start, end); err != nil {
			return err
		} else if conflict != nil {
			return &service.ConflictError{
				Resource:   service.ResourceRoom,
				ResourceID: *roomID,
				Date:       date,
				SessionID:  conflict.ID,
			}
		}
	}

	if trainerID != 0 {
		existing, err := repo.GetActiveByTrainer(q, date, trainerID, excludeID)
		if err != nil {
			return err
		}
		if conflict, err := firstOverlap(existing, start, end); err != nil {
			return err
		} else if conflict != nil {
			return &service.ConflictError{
				Resource:   service.ResourceTrainer,
				ResourceID: trainerID,
				Date:       date,
				SessionID:  conflict.ID,
			}
		}
	}

	return nil
}

func firstOverlap(sessions []models.Session, start, end int) (*models.Session, error) {
	for i := range sessions {
		s, err := timerange.ParseClock(sessions[i].StartTime)
		if err != nil {
			return nil, err
		}
		e, err := timerange.ParseClock(sessions[i].EndTime)
		if err != nil {
			return nil, err
		}
		if timerange.Overlaps(start, end, s, e) {
			return &sessions[i], nil
		}
	}
	return nil, nil
}

func validateTimes(startTime, endTime string) error {
	ok, err := timerange.ValidOrder(startTime, endTime)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: start %s is not before end %s", service.ErrInvalidRange, startTime, endTime)
	}
	return nil
}

func (s *scheduleService) GetSessions(from, to time.Time, groupID *int64) ([]models.Session, error) {
	// Ленивый sweep: фонового планировщика нет, прошедшие занятия закрываются
	// перед каждым чтением расписания.
	if _, err := s.SweepPastSessions(s.now()); err != nil {
		return nil, err
	}
	return s.sessionRepo.GetByDateRange(from, to, groupID)
}

func (s *scheduleService) GetSession(id int64) (*models.Session, error) {
	session, err := s.sessionRepo.GetByID(nil, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, service.ErrNotFound
	}
	return session, nil
}

func (s *scheduleService) CreateSingleSession(input service.CreateSessionInput) (*models.Session, error) {
	if err := validateTimes(input.StartTime, input.EndTime); err != nil {
		return nil, err
	}

	session := &models.Session{
		SessionDate: input.Date,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		GroupID:     input.GroupID,
		TrainerID:   input.TrainerID,
		RoomID:      input.RoomID,
		Status:      models.StatusScheduled,
		Description: input.Description,
	}

	// Проверка и вставка в одной транзакции, иначе два конкурентных запроса
	// пройдут проверку до коммита друг друга.
	err := s.tx.InTx(func(q sqlx.Ext) error {
		if err := CheckConflict(s.sessionRepo, q, input.Date, input.StartTime, input.EndTime, input.RoomID, input.TrainerID, 0); err != nil {
			return err
		}
		return s.sessionRepo.Create(q, session)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("session created",
		zap.Int64("session_id", session.ID),
		zap.String("date", session.SessionDate.Format("2006-01-02")),
		zap.Int64("group_id", session.GroupID))

	return s.GetSession(session.ID)
}

func (s *scheduleService) EditSession(id int64, patch service.SessionPatch) (*models.Session, error) {
	if !patch.TouchesSchedule() {
		// Только аннотация: разрешено и для завершённых/отменённых занятий.
		if patch.Description == nil {
			return s.GetSession(id)
		}
		session, err := s.GetSession(id)
		if err != nil {
			return nil, err
		}
		updates := map[string]interface{}{"description": *patch.Description}
		if err := s.sessionRepo.UpdatePartial(nil, session.ID, updates); err != nil {
			return nil, err
		}
		return s.GetSession(id)
	}

	err := s.tx.InTx(func(q sqlx.Ext) error {
		session, err := s.sessionRepo.GetByID(q, id)
		if err != nil {
			return err
		}
		if session == nil {
			return service.ErrNotFound
		}
		if session.Finished() {
			return service.ErrSessionFinished
		}

		// Эффективные значения после применения патча
		date := session.SessionDate
		startTime := session.StartTime
		endTime := session.EndTime
		trainerID := session.TrainerID
		roomID := session.RoomID

		updates := map[string]interface{}{}

		if patch.Date != nil {
			date = *patch.Date
			updates["session_date"] = date.Format("2006-01-02")
		}
		if patch.StartTime != nil {
			startTime = *patch.StartTime
			updates["start_time"] = startTime
		}
		if patch.EndTime != nil {
			endTime = *patch.EndTime
			updates["end_time"] = endTime
		}
		if patch.GroupID != nil {
			updates["group_id"] = *patch.GroupID
		}
		if patch.TrainerID != nil {
			trainerID = *patch.TrainerID
			updates["trainer_id"] = trainerID
		}
		if patch.ClearRoom {
			roomID = nil
			updates["room_id"] = nil
		} else if patch.RoomID != nil {
			roomID = patch.RoomID
			updates["room_id"] = *patch.RoomID
		}
		if patch.Description != nil {
			updates["description"] = *patch.Description
		}

		if err := validateTimes(startTime, endTime); err != nil {
			return err
		}
		if err := CheckConflict(s.sessionRepo, q, date, startTime, endTime, roomID, trainerID, id); err != nil {
			return err
		}

		return s.sessionRepo.UpdatePartial(q, id, updates)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("session updated", zap.Int64("session_id", id))
	return s.GetSession(id)
}

func (s *scheduleService) CancelSession(id int64, reason string) (*models.Session, error) {
	session, err := s.GetSession(id)
	if err != nil {
		return nil, err
	}
	if session.Finished() {
		return nil, service.ErrSessionFinished
	}

	updates := map[string]interface{}{"status": models.StatusCancelled}
	if reason != "" {
		updates["description"] = reason
	}
	if err := s.sessionRepo.UpdatePartial(nil, id, updates); err != nil {
		return nil, err
	}

	s.logger.Info("session cancelled", zap.Int64("session_id", id), zap.String("reason", reason))

	updated, err := s.GetSession(id)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.NotifyCancellation(updated, reason)
	}
	return updated, nil
}

func (s *scheduleService) DeleteSession(id int64) error {
	if _, err := s.GetSession(id); err != nil {
		return err
	}
	// Записи посещаемости уходят каскадом по FK
	return s.sessionRepo.Delete(id)
}

// SweepPastSessions переводит просроченные SCHEDULED занятия в COMPLETED.
// Идемпотентен: повторный запуск не находит кандидатов.
func (s *scheduleService) SweepPastSessions(asOf time.Time) (int64, error) {
	n, err := s.sessionRepo.CompletePast(asOf)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("past sessions completed", zap.Int64("count", n))
	}
	return n, nil
}

// Substitute массово переназначает SCHEDULED занятия преподавателя в диапазоне дат.
// Замена best-effort: даты, где заменяющий уже занят, пропускаются и репортятся,
// остальные обновляются.
func (s *scheduleService) Substitute(originalTrainerID, substituteTrainerID int64, from, to time.Time) (*service.SubstitutionResult, error) {
	if substituteTrainerID == originalTrainerID {
		return nil, fmt.Errorf("%w: substitute matches the original trainer", service.ErrInvalidRange)
	}
	if from.After(to) {
		return nil, fmt.Errorf("%w: date from is after date to", service.ErrInvalidRange)
	}

	sessions, err := s.sessionRepo.GetScheduledByTrainer(originalTrainerID, from, to)
	if err != nil {
		return nil, err
	}

	result := &service.SubstitutionResult{Skipped: []service.SkippedSession{}}

	for i := range sessions {
		sess := &sessions[i]

		// Заменяющий не должен оказаться в двух местах сразу; зал не проверяем,
		// он у занятия не меняется. Уже обновлённые в этом же проходе занятия
		// видны проверке, так что пересечения внутри партии тоже ловятся.
		err := CheckConflict(s.sessionRepo, nil, sess.SessionDate, sess.StartTime, sess.EndTime, nil, substituteTrainerID, sess.ID)
		if err != nil {
			if conflict, ok := err.(*service.ConflictError); ok {
				result.Skipped = append(result.Skipped, service.SkippedSession{
					SessionID: sess.ID,
					Date:      sess.SessionDate,
					Reason:    conflict.Error(),
				})
				continue
			}
			return nil, err
		}

		if err := s.sessionRepo.MarkSubstituted(sess.ID, substituteTrainerID, originalTrainerID, s.now()); err != nil {
			return nil, err
		}
		result.UpdatedCount++

		if s.notifier != nil {
			s.notifier.NotifySubstitution(sess, originalTrainerID, substituteTrainerID)
		}
	}

	s.logger.Info("substitution applied",
		zap.Int64("original_trainer_id", originalTrainerID),
		zap.Int64("substitute_trainer_id", substituteTrainerID),
		zap.Int("updated", result.UpdatedCount),
		zap.Int("skipped", len(result.Skipped)))

	return result, nil
}
