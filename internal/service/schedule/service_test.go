package schedule_service

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"dance-school-crm/internal/models"
	"dance-school-crm/internal/repository/repositorytest"
	"dance-school-crm/internal/service"
	"dance-school-crm/internal/timerange"
)

func ptr[T any](v T) *T { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	sessions *repositorytest.FakeSessionRepository
	svc      service.ScheduleService
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	sessions := repositorytest.NewFakeSessionRepository()
	svc := NewScheduleService(
		sessions, repositorytest.FakeTxRunner{}, nil, zap.NewNop(),
		func() time.Time { return now },
	)
	return &fixture{sessions: sessions, svc: svc}
}

func (f *fixture) mustCreate(t *testing.T, input service.CreateSessionInput) *models.Session {
	t.Helper()
	session, err := f.svc.CreateSingleSession(input)
	if err != nil {
		t.Fatalf("CreateSingleSession: %v", err)
	}
	return session
}

func TestCreateSingleSession_RoomConflict(t *testing.T) {
	f := newFixture(t, date(2024, time.June, 1))
	monday := date(2024, time.June, 3)

	f.mustCreate(t, service.CreateSessionInput{
		Date: monday, StartTime: "10:00", EndTime: "11:00",
		GroupID: 1, TrainerID: 5, RoomID: ptr(int64(1)),
	})

	// Пересечение по залу, преподаватель другой
	_, err := f.svc.CreateSingleSession(service.CreateSessionInput{
		Date: monday, StartTime: "10:30", EndTime: "11:30",
		GroupID: 2, TrainerID: 6, RoomID: ptr(int64(1)),
	})

	var conflict *service.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("want ConflictError, got %v", err)
	}
	if conflict.Resource != service.ResourceRoom {
		t.Errorf("conflict resource = %q, want %q", conflict.Resource, service.ResourceRoom)
	}
	if conflict.ResourceID != 1 {
		t.Errorf("conflict resource id = %d, want 1", conflict.ResourceID)
	}
	if len(f.sessions.Sessions) != 1 {
		t.Errorf("sessions stored = %d, want 1 (conflicting create rejected)", len(f.sessions.Sessions))
	}
}

func TestCreateSingleSession_BackToBackAllowed(t *testing.T) {
	f := newFixture(t, date(2024, time.June, 1))
	monday := date(2024, time.June, 3)

	f.mustCreate(t, service.CreateSessionInput{
		Date: monday, StartTime: "10:00", EndTime: "11:00",
		GroupID: 1, TrainerID: 5, RoomID: ptr(int64(1)),
	})

	// Встык: 11:00-12:00 в том же зале с тем же преподавателем не конфликтует
	f.mustCreate(t, service.CreateSessionInput{
		Date: monday, StartTime: "11:00", EndTime: "12:00",
		GroupID: 1, TrainerID: 5, RoomID: ptr(int64(1)),
	})

	if len(f.sessions.Sessions) != 2 {
		t.Errorf("sessions stored = %d, want 2", len(f.sessions.Sessions))
	}
}

func TestCreateSingleSession_RoomReportedBeforeTrainer(t *testing.T) {
	f := newFixture(t, date(2024, time.June, 1))
	monday := date(2024, time.June, 3)

	f.mustCreate(t, service.CreateSessionInput{
		Date: monday, StartTime: "10:00", EndTime: "11:00",
		GroupID: 1, TrainerID: 5, RoomID: ptr(int64(1)),
	})

	// Конфликт и по залу, и по преподавателю — репортится зал
	_, err := f.svc.CreateSingleSession(service.CreateSessionInput{
		Date: monday, StartTime: "10:00", EndTime: "11:00",
		GroupID: 2, TrainerID: 5, RoomID: ptr(int64(1)),
	})

	var conflict *service.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("want ConflictError, got %v", err)
	}
	if conflict.Resource != service.ResourceRoom {
		t.Errorf("conflict resource = %q, want %q", conflict.Resource, service.ResourceRoom)
	}
}

func TestCreateSingleSession_NoRoomSkipsRoomCheck(t *testing.T) {
	f := newFixture(t, date(2024, time.June, 1))
	monday := date(2024, time.June, 3)

	f.mustCreate(t, service.CreateSessionInput{
		Date: monday, StartTime: "10:00", EndTime: "11:00",
		GroupID: 1, TrainerID: 5, RoomID: nil,
	})

	// Без зала конфликт возможен только по преподавателю
	_, err := f.svc.CreateSingleSession(service.CreateSessionInput{
		Date: monday, StartTime: "10:00", EndTime: "11:00",
		GroupID: 2, TrainerID: 5, RoomID: nil,
	})

	var conflict *service.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("want ConflictError, got %v", err)
	}
	if conflict.Resource != service.ResourceTrainer {
		t.Errorf("conflict resource = %q, want %q", conflict.Resource, service.ResourceTrainer)
	}
}

func TestCreateSingleSession_InvalidTimes(t *testing.T) {
	f := newFixture(t, date(2024, time.June, 1))
	monday := date(2024, time.June, 3)

	_, err := f.svc.CreateSingleSession(service.CreateSessionInput{
		Date: monday, StartTime: "11:00", EndTime: "10:00",
		GroupID: 1, TrainerID: 5,
	})
	if !errors.Is(err, service.ErrInvalidRange) {
		t.Errorf("reversed times: want ErrInvalidRange, got %v", err)
	}

	_, err = f.svc.CreateSingleSession(service.CreateSessionInput{
		Date: monday, StartTime: "10:00", EndTime: "10:00",
		GroupID: 1, TrainerID: 5,
	})
	if !errors.Is(err, service.ErrInvalidRange) {
		t.Errorf("zero-length: want ErrInvalidRange, got %v", err)
	}

	_, err = f.svc.CreateSingleSession(service.CreateSessionInput{
		Date: monday, StartTime: "25:00", EndTime: "26:00",
		GroupID: 1, TrainerID: 5,
	})
	if !errors.Is(err, timerange.ErrInvalidTimeFormat) {
		t.Errorf("bad clock: want ErrInvalidTimeFormat, got %v", err)
	}
}

func TestCancelSession_FreesSlotAndIsTerminal(t *testing.T) {
	f := newFixture(t, date(2024, time.June, 1))
	monday := date(2024, time.June, 3)

	created := f.mustCreate(t, service.CreateSessionInput{
		Date: monday, StartTime: "10:00", EndTime: "11:00",
		GroupID: 1, TrainerID: 5, RoomID: ptr(int64(1)),
	})

	cancelled, err := f.svc.CancelSession(created.ID, "болезнь преподавателя")
	if err != nil {
		t.Fatalf("CancelSession: %v", err)
	}
	if cancelled.Status != models.StatusCancelled {
		t.Errorf("status = %q, want %q", cancelled.Status, models.StatusCancelled)
	}

	// Отменённое занятие не держит ни зал, ни преподавателя
	f.mustCreate(t, service.CreateSessionInput{
		Date: monday, StartTime: "10:00", EndTime: "11:00",
		GroupID: 2, TrainerID: 5, RoomID: ptr(int64(1)),
	})

	// Терминальный статус: повторная отмена отклоняется
	if _, err := f.svc.CancelSession(created.ID, ""); !errors.Is(err, service.ErrSessionFinished) {
		t.Errorf("double cancel: want ErrSessionFinished, got %v", err)
	}
}

func TestEditSession_TerminalRules(t *testing.T) {
	f := newFixture(t, date(2024, time.June, 1))
	monday := date(2024, time.June, 3)

	created := f.mustCreate(t, service.CreateSessionInput{
		Date: monday, StartTime: "10:00", EndTime: "11:00",
		GroupID: 1, TrainerID: 5,
	})
	if _, err := f.svc.CancelSession(created.ID, ""); err != nil {
		t.Fatalf("CancelSession: %v", err)
	}

	// Перенос отменённого занятия запрещён
	_, err := f.svc.EditSession(created.ID, service.SessionPatch{StartTime: ptr("12:00"), EndTime: ptr("13:00")})
	if !errors.Is(err, service.ErrSessionFinished) {
		t.Errorf("reschedule cancelled: want ErrSessionFinished, got %v", err)
	}

	// Правка описания терминального занятия разрешена
	updated, err := f.svc.EditSession(created.ID, service.SessionPatch{Description: ptr("перенесено на осень")})
	if err != nil {
		t.Fatalf("description-only edit: %v", err)
	}
	if updated.Description != "перенесено на осень" {
		t.Errorf("description = %q", updated.Description)
	}
}

func TestEditSession_ConflictAndSelfExclusion(t *testing.T) {
	f := newFixture(t, date(2024, time.June, 1))
	monday := date(2024, time.June, 3)

	first := f.mustCreate(t, service.CreateSessionInput{
		Date: monday, StartTime: "10:00", EndTime: "11:00",
		GroupID: 1, TrainerID: 5, RoomID: ptr(int64(1)),
	})
	second := f.mustCreate(t, service.CreateSessionInput{
		Date: monday, StartTime: "12:00", EndTime: "13:00",
		GroupID: 2, TrainerID: 6, RoomID: ptr(int64(1)),
	})

	// Сдвиг второго занятия на чужой слот отклоняется
	_, err := f.svc.EditSession(second.ID, service.SessionPatch{StartTime: ptr("10:30"), EndTime: ptr("11:30")})
	var conflict *service.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("want ConflictError, got %v", err)
	}

	// Сдвиг занятия внутри собственного слота не конфликтует сам с собой
	updated, err := f.svc.EditSession(first.ID, service.SessionPatch{StartTime: ptr("10:15"), EndTime: ptr("11:00")})
	if err != nil {
		t.Fatalf("self-overlapping edit: %v", err)
	}
	if updated.StartTime != "10:15" {
		t.Errorf("start time = %q, want 10:15", updated.StartTime)
	}
}

func TestEditSession_NotFound(t *testing.T) {
	f := newFixture(t, date(2024, time.June, 1))

	if _, err := f.svc.EditSession(99, service.SessionPatch{StartTime: ptr("10:00"), EndTime: ptr("11:00")}); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
	if _, err := f.svc.GetSession(99); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("GetSession: want ErrNotFound, got %v", err)
	}
	if _, err := f.svc.CancelSession(99, ""); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("CancelSession: want ErrNotFound, got %v", err)
	}
	if err := f.svc.DeleteSession(99); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("DeleteSession: want ErrNotFound, got %v", err)
	}
}

func TestSweepPastSessions(t *testing.T) {
	now := time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	past := f.mustCreate(t, service.CreateSessionInput{
		Date: date(2024, time.June, 7), StartTime: "10:00", EndTime: "11:00",
		GroupID: 1, TrainerID: 5,
	})
	endsAtNow := f.mustCreate(t, service.CreateSessionInput{
		Date: date(2024, time.June, 10), StartTime: "11:00", EndTime: "12:00",
		GroupID: 1, TrainerID: 5,
	})
	future := f.mustCreate(t, service.CreateSessionInput{
		Date: date(2024, time.June, 10), StartTime: "15:00", EndTime: "16:00",
		GroupID: 1, TrainerID: 5,
	})
	cancelled := f.mustCreate(t, service.CreateSessionInput{
		Date: date(2024, time.June, 5), StartTime: "10:00", EndTime: "11:00",
		GroupID: 2, TrainerID: 6,
	})
	if _, err := f.svc.CancelSession(cancelled.ID, ""); err != nil {
		t.Fatalf("CancelSession: %v", err)
	}

	n, err := f.svc.SweepPastSessions(now)
	if err != nil {
		t.Fatalf("SweepPastSessions: %v", err)
	}
	if n != 1 {
		t.Errorf("swept = %d, want 1", n)
	}

	check := func(id int64, want string) {
		t.Helper()
		s, err := f.svc.GetSession(id)
		if err != nil {
			t.Fatalf("GetSession(%d): %v", id, err)
		}
		if s.Status != want {
			t.Errorf("session %d status = %q, want %q", id, s.Status, want)
		}
	}
	check(past.ID, models.StatusCompleted)
	// Занятие, заканчивающееся ровно сейчас, ещё идёт
	check(endsAtNow.ID, models.StatusScheduled)
	check(future.ID, models.StatusScheduled)
	check(cancelled.ID, models.StatusCancelled)

	// Идемпотентность: второй проход ничего не находит
	n, err = f.svc.SweepPastSessions(now)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if n != 0 {
		t.Errorf("second sweep = %d, want 0", n)
	}
}

func TestGetSessions_SweepsBeforeRead(t *testing.T) {
	now := time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	past := f.mustCreate(t, service.CreateSessionInput{
		Date: date(2024, time.June, 7), StartTime: "10:00", EndTime: "11:00",
		GroupID: 1, TrainerID: 5,
	})

	sessions, err := f.svc.GetSessions(date(2024, time.June, 1), date(2024, time.June, 30), nil)
	if err != nil {
		t.Fatalf("GetSessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
	if sessions[0].ID != past.ID || sessions[0].Status != models.StatusCompleted {
		t.Errorf("session %d status = %q, want %q", sessions[0].ID, sessions[0].Status, models.StatusCompleted)
	}
}

func TestSubstitute_BestEffort(t *testing.T) {
	now := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	// Три занятия преподавателя 5 в июне
	s1 := f.mustCreate(t, service.CreateSessionInput{
		Date: date(2024, time.June, 3), StartTime: "10:00", EndTime: "11:00",
		GroupID: 1, TrainerID: 5,
	})
	s2 := f.mustCreate(t, service.CreateSessionInput{
		Date: date(2024, time.June, 10), StartTime: "10:00", EndTime: "11:00",
		GroupID: 1, TrainerID: 5,
	})
	s3 := f.mustCreate(t, service.CreateSessionInput{
		Date: date(2024, time.June, 17), StartTime: "10:00", EndTime: "11:00",
		GroupID: 1, TrainerID: 5,
	})
	// 10 июня преподаватель 7 уже занят в это время
	f.mustCreate(t, service.CreateSessionInput{
		Date: date(2024, time.June, 10), StartTime: "10:30", EndTime: "11:30",
		GroupID: 2, TrainerID: 7,
	})

	result, err := f.svc.Substitute(5, 7, date(2024, time.June, 1), date(2024, time.June, 30))
	if err != nil {
		t.Fatalf("Substitute: %v", err)
	}
	if result.UpdatedCount != 2 {
		t.Errorf("updated = %d, want 2", result.UpdatedCount)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].SessionID != s2.ID {
		t.Fatalf("skipped = %+v, want one entry for session %d", result.Skipped, s2.ID)
	}

	for _, id := range []int64{s1.ID, s3.ID} {
		s, _ := f.svc.GetSession(id)
		if s.TrainerID != 7 || !s.IsSubstitution {
			t.Errorf("session %d: trainer=%d substitution=%v, want 7/true", id, s.TrainerID, s.IsSubstitution)
		}
		if s.OriginalTrainerID == nil || *s.OriginalTrainerID != 5 {
			t.Errorf("session %d: original trainer = %v, want 5", id, s.OriginalTrainerID)
		}
		if s.SubstitutedAt == nil || !s.SubstitutedAt.Equal(now) {
			t.Errorf("session %d: substituted at = %v, want %v", id, s.SubstitutedAt, now)
		}
	}

	// Пропущенное занятие не тронуто
	untouched, _ := f.svc.GetSession(s2.ID)
	if untouched.TrainerID != 5 || untouched.IsSubstitution {
		t.Errorf("skipped session changed: trainer=%d substitution=%v", untouched.TrainerID, untouched.IsSubstitution)
	}
}

func TestSubstitute_ChainedKeepsFirstOriginal(t *testing.T) {
	now := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	s1 := f.mustCreate(t, service.CreateSessionInput{
		Date: date(2024, time.June, 3), StartTime: "10:00", EndTime: "11:00",
		GroupID: 1, TrainerID: 5,
	})

	if _, err := f.svc.Substitute(5, 7, date(2024, time.June, 1), date(2024, time.June, 30)); err != nil {
		t.Fatalf("first substitution: %v", err)
	}
	if _, err := f.svc.Substitute(7, 9, date(2024, time.June, 1), date(2024, time.June, 30)); err != nil {
		t.Fatalf("second substitution: %v", err)
	}

	s, _ := f.svc.GetSession(s1.ID)
	if s.TrainerID != 9 {
		t.Errorf("trainer = %d, want 9", s.TrainerID)
	}
	if s.OriginalTrainerID == nil || *s.OriginalTrainerID != 5 {
		t.Errorf("original trainer = %v, want 5 (first in chain)", s.OriginalTrainerID)
	}
}

func TestSubstitute_InvalidInput(t *testing.T) {
	f := newFixture(t, date(2024, time.June, 1))

	if _, err := f.svc.Substitute(5, 5, date(2024, time.June, 1), date(2024, time.June, 30)); !errors.Is(err, service.ErrInvalidRange) {
		t.Errorf("same trainer: want ErrInvalidRange, got %v", err)
	}
	if _, err := f.svc.Substitute(5, 7, date(2024, time.June, 30), date(2024, time.June, 1)); !errors.Is(err, service.ErrInvalidRange) {
		t.Errorf("reversed dates: want ErrInvalidRange, got %v", err)
	}
}

func TestSubstitute_SkipsNonScheduled(t *testing.T) {
	now := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	cancelled := f.mustCreate(t, service.CreateSessionInput{
		Date: date(2024, time.June, 3), StartTime: "10:00", EndTime: "11:00",
		GroupID: 1, TrainerID: 5,
	})
	if _, err := f.svc.CancelSession(cancelled.ID, ""); err != nil {
		t.Fatalf("CancelSession: %v", err)
	}

	result, err := f.svc.Substitute(5, 7, date(2024, time.June, 1), date(2024, time.June, 30))
	if err != nil {
		t.Fatalf("Substitute: %v", err)
	}
	if result.UpdatedCount != 0 || len(result.Skipped) != 0 {
		t.Errorf("result = %+v, want zero updates and zero skips", result)
	}

	s, _ := f.svc.GetSession(cancelled.ID)
	if s.TrainerID != 5 {
		t.Errorf("cancelled session trainer = %d, want 5", s.TrainerID)
	}
}
