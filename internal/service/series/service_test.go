package series_service

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"dance-school-crm/internal/models"
	"dance-school-crm/internal/repository/repositorytest"
	"dance-school-crm/internal/service"
)

func ptr[T any](v T) *T { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	sessions *repositorytest.FakeSessionRepository
	series   *repositorytest.FakeSeriesRepository
	svc      service.SeriesService
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	sessions := repositorytest.NewFakeSessionRepository()
	series := repositorytest.NewFakeSeriesRepository()
	svc := NewSeriesService(
		series, sessions, repositorytest.FakeTxRunner{}, zap.NewNop(),
		func() time.Time { return now },
	)
	return &fixture{sessions: sessions, series: series, svc: svc}
}

func weeklyInput() service.CreateSeriesInput {
	return service.CreateSeriesInput{
		StartDate: date(2024, time.June, 3), // понедельник
		EndDate:   date(2024, time.June, 24),
		StartTime: "10:00",
		EndTime:   "11:00",
		GroupID:   1,
		TrainerID: 5,
		RoomID:    ptr(int64(1)),
	}
}

func TestCreateSeries_MaterializesWeekly(t *testing.T) {
	f := newFixture(t, date(2024, time.June, 1))

	series, sessions, err := f.svc.CreateSeries(weeklyInput())
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}

	if series.DayOfWeek != 1 {
		t.Errorf("day of week = %d, want 1 (Monday)", series.DayOfWeek)
	}
	if len(sessions) != 4 {
		t.Fatalf("sessions = %d, want 4", len(sessions))
	}

	want := []time.Time{
		date(2024, time.June, 3),
		date(2024, time.June, 10),
		date(2024, time.June, 17),
		date(2024, time.June, 24),
	}
	for i, s := range sessions {
		if !s.SessionDate.Equal(want[i]) {
			t.Errorf("session %d date = %s, want %s", i, s.SessionDate.Format("2006-01-02"), want[i].Format("2006-01-02"))
		}
		if s.SeriesID == nil || *s.SeriesID != series.ID {
			t.Errorf("session %d series id = %v, want %d", i, s.SeriesID, series.ID)
		}
		if s.Status != models.StatusScheduled {
			t.Errorf("session %d status = %q, want %q", i, s.Status, models.StatusScheduled)
		}
	}
}

func TestCreateSeries_SingleOccurrence(t *testing.T) {
	f := newFixture(t, date(2024, time.June, 1))

	input := weeklyInput()
	// Диапазон короче недели — ровно одно занятие на дату старта
	input.EndDate = date(2024, time.June, 6)

	_, sessions, err := f.svc.CreateSeries(input)
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
	if !sessions[0].SessionDate.Equal(date(2024, time.June, 3)) {
		t.Errorf("date = %s, want 2024-06-03", sessions[0].SessionDate.Format("2006-01-02"))
	}
}

func TestCreateSeries_ConflictIsAtomic(t *testing.T) {
	f := newFixture(t, date(2024, time.June, 1))

	// Третья дата серии занята другим занятием в том же зале
	blocker := &models.Session{
		SessionDate: date(2024, time.June, 17),
		StartTime:   "10:30",
		EndTime:     "11:30",
		GroupID:     2,
		TrainerID:   6,
		RoomID:      ptr(int64(1)),
		Status:      models.StatusScheduled,
	}
	if err := f.sessions.Create(nil, blocker); err != nil {
		t.Fatalf("seed blocker: %v", err)
	}

	_, _, err := f.svc.CreateSeries(weeklyInput())

	var conflict *service.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("want ConflictError, got %v", err)
	}
	if !conflict.Date.Equal(date(2024, time.June, 17)) {
		t.Errorf("conflict date = %s, want 2024-06-17", conflict.Date.Format("2006-01-02"))
	}

	// Атомарность: ни одного занятия серии и ни одной серии не создано
	if len(f.sessions.Sessions) != 1 {
		t.Errorf("sessions stored = %d, want 1 (only the blocker)", len(f.sessions.Sessions))
	}
	if len(f.series.Series) != 0 {
		t.Errorf("series stored = %d, want 0", len(f.series.Series))
	}
}

func TestCreateSeries_InvalidInput(t *testing.T) {
	f := newFixture(t, date(2024, time.June, 1))

	input := weeklyInput()
	input.StartDate = date(2024, time.June, 24)
	input.EndDate = date(2024, time.June, 3)
	if _, _, err := f.svc.CreateSeries(input); !errors.Is(err, service.ErrInvalidRange) {
		t.Errorf("reversed dates: want ErrInvalidRange, got %v", err)
	}

	input = weeklyInput()
	input.StartTime = "11:00"
	input.EndTime = "10:00"
	if _, _, err := f.svc.CreateSeries(input); !errors.Is(err, service.ErrInvalidRange) {
		t.Errorf("reversed times: want ErrInvalidRange, got %v", err)
	}
}

func TestDeleteSeries_KeepsTodayAndPast(t *testing.T) {
	f := newFixture(t, date(2024, time.June, 1))

	series, _, err := f.svc.CreateSeries(weeklyInput())
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}

	// Удаление 10 июня: занятия 3 и 10 июня остаются, 17 и 24 уходят
	f2 := &fixture{sessions: f.sessions, series: f.series}
	f2.svc = NewSeriesService(
		f.series, f.sessions, repositorytest.FakeTxRunner{}, zap.NewNop(),
		func() time.Time { return time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC) },
	)

	if err := f2.svc.DeleteSeries(series.ID); err != nil {
		t.Fatalf("DeleteSeries: %v", err)
	}

	remaining, err := f.sessions.GetByDateRange(date(2024, time.June, 1), date(2024, time.June, 30), nil)
	if err != nil {
		t.Fatalf("GetByDateRange: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("remaining sessions = %d, want 2", len(remaining))
	}
	if !remaining[0].SessionDate.Equal(date(2024, time.June, 3)) || !remaining[1].SessionDate.Equal(date(2024, time.June, 10)) {
		t.Errorf("remaining dates = %s, %s; want 2024-06-03, 2024-06-10",
			remaining[0].SessionDate.Format("2006-01-02"), remaining[1].SessionDate.Format("2006-01-02"))
	}
	// Оставшиеся занятия сохраняют привязку к серии
	for _, s := range remaining {
		if s.SeriesID == nil || *s.SeriesID != series.ID {
			t.Errorf("session %d lost series link", s.ID)
		}
	}

	// Серия помечена удалённой
	got, err := f.series.GetByID(series.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Errorf("series still active after delete")
	}

	active, err := f2.svc.GetAllSeries()
	if err != nil {
		t.Fatalf("GetAllSeries: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("active series = %d, want 0", len(active))
	}
}

func TestDeleteSeries_NotFound(t *testing.T) {
	f := newFixture(t, date(2024, time.June, 1))

	if err := f.svc.DeleteSeries(99); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}
