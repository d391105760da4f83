package series_service

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"dance-school-crm/internal/models"
	"dance-school-crm/internal/repository"
	"dance-school-crm/internal/service"
	schedule_service "dance-school-crm/internal/service/schedule"
	"dance-school-crm/internal/timerange"
)

type seriesService struct {
	seriesRepo  repository.SeriesRepository
	sessionRepo repository.SessionRepository
	tx          repository.TxRunner
	logger      *zap.Logger
	now         service.Clock
}

func NewSeriesService(
	seriesRepo repository.SeriesRepository,
	sessionRepo repository.SessionRepository,
	tx repository.TxRunner,
	logger *zap.Logger,
	now service.Clock,
) service.SeriesService {
	if now == nil {
		now = time.Now
	}
	return &seriesService{
		seriesRepo:  seriesRepo,
		sessionRepo: sessionRepo,
		tx:          tx,
		logger:      logger,
		now:         now,
	}
}

// candidateDates шагает от startDate по 7 дней, границы включительно.
func candidateDates(startDate, endDate time.Time) []time.Time {
	var dates []time.Time
	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 7) {
		dates = append(dates, d)
	}
	return dates
}

// isoWeekday: 1=понедельник .. 7=воскресенье
func isoWeekday(d time.Time) int {
	wd := int(d.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// CreateSeries создаёт еженедельную серию и занятия под неё атомарно:
// конфликт на любой из дат откатывает всё, частичной серии не бывает.
func (s *seriesService) CreateSeries(input service.CreateSeriesInput) (*models.RecurringSeries, []models.Session, error) {
	if input.StartDate.After(input.EndDate) {
		return nil, nil, fmt.Errorf("%w: start date %s is after end date %s",
			service.ErrInvalidRange,
			input.StartDate.Format("2006-01-02"),
			input.EndDate.Format("2006-01-02"))
	}

	ok, err := timerange.ValidOrder(input.StartTime, input.EndTime)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: start %s is not before end %s",
			service.ErrInvalidRange, input.StartTime, input.EndTime)
	}

	dates := candidateDates(input.StartDate, input.EndDate)

	series := &models.RecurringSeries{
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		DayOfWeek:   isoWeekday(input.StartDate),
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		GroupID:     input.GroupID,
		TrainerID:   input.TrainerID,
		RoomID:      input.RoomID,
		Description: input.Description,
	}

	var sessions []models.Session

	err = s.tx.InTx(func(q sqlx.Ext) error {
		// Все даты проверяются до единой вставки: первая конфликтная дата
		// останавливает операцию целиком.
		for _, date := range dates {
			err := schedule_service.CheckConflict(s.sessionRepo, q, date, input.StartTime, input.EndTime, input.RoomID, input.TrainerID, 0)
			if err != nil {
				return err
			}
		}

		if err := s.seriesRepo.Create(q, series); err != nil {
			return err
		}

		for _, date := range dates {
			session := models.Session{
				SessionDate: date,
				StartTime:   input.StartTime,
				EndTime:     input.EndTime,
				GroupID:     input.GroupID,
				TrainerID:   input.TrainerID,
				RoomID:      input.RoomID,
				Status:      models.StatusScheduled,
				Description: input.Description,
				SeriesID:    &series.ID,
			}
			if err := s.sessionRepo.Create(q, &session); err != nil {
				return err
			}
			sessions = append(sessions, session)
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("series created",
		zap.Int64("series_id", series.ID),
		zap.Int("sessions", len(sessions)),
		zap.String("start_date", series.StartDate.Format("2006-01-02")),
		zap.String("end_date", series.EndDate.Format("2006-01-02")))

	return series, sessions, nil
}

func (s *seriesService) GetAllSeries() ([]models.RecurringSeries, error) {
	return s.seriesRepo.GetAllActive()
}

// DeleteSeries убирает только будущие занятия серии (дата строго после сегодня);
// сегодняшнее и прошедшие остаются историей и сохраняют series_id. Сама серия
// помечается удалённой.
func (s *seriesService) DeleteSeries(id int64) error {
	series, err := s.seriesRepo.GetByID(id)
	if err != nil {
		return err
	}
	if series == nil {
		return service.ErrNotFound
	}

	now := s.now()
	tomorrow := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)

	return s.tx.InTx(func(q sqlx.Ext) error {
		removed, err := s.sessionRepo.DeleteFutureBySeries(q, id, tomorrow)
		if err != nil {
			return err
		}
		if err := s.seriesRepo.SoftDelete(q, id, now); err != nil {
			return err
		}

		s.logger.Info("series deleted",
			zap.Int64("series_id", id),
			zap.Int64("future_sessions_removed", removed))
		return nil
	})
}
