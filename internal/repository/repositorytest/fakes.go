// Package repositorytest содержит in-memory реализации репозиториев для
// юнит-тестов сервисов.
package repositorytest

import (
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"dance-school-crm/internal/models"
	"dance-school-crm/internal/timerange"
)

// FakeTxRunner выполняет функцию без настоящей транзакции.
type FakeTxRunner struct{}

func (FakeTxRunner) InTx(fn func(q sqlx.Ext) error) error {
	return fn(nil)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func dateIn(d, from, to time.Time) bool {
	return !d.Before(from) && !d.After(to)
}

type FakeSessionRepository struct {
	nextID   int64
	Sessions map[int64]*models.Session
}

func NewFakeSessionRepository() *FakeSessionRepository {
	return &FakeSessionRepository{Sessions: make(map[int64]*models.Session)}
}

func (r *FakeSessionRepository) Create(q sqlx.Ext, session *models.Session) error {
	r.nextID++
	session.ID = r.nextID
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt
	stored := *session
	r.Sessions[session.ID] = &stored
	return nil
}

func (r *FakeSessionRepository) GetByID(q sqlx.Ext, id int64) (*models.Session, error) {
	s, ok := r.Sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (r *FakeSessionRepository) sorted(filter func(*models.Session) bool) []models.Session {
	var result []models.Session
	for _, s := range r.Sessions {
		if filter(s) {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !sameDay(result[i].SessionDate, result[j].SessionDate) {
			return result[i].SessionDate.Before(result[j].SessionDate)
		}
		return result[i].StartTime < result[j].StartTime
	})
	return result
}

func (r *FakeSessionRepository) GetByDateRange(start, end time.Time, groupID *int64) ([]models.Session, error) {
	return r.sorted(func(s *models.Session) bool {
		if !dateIn(s.SessionDate, start, end) {
			return false
		}
		return groupID == nil || s.GroupID == *groupID
	}), nil
}

func (r *FakeSessionRepository) GetActiveByRoom(q sqlx.Ext, date time.Time, roomID int64, excludeID int64) ([]models.Session, error) {
	return r.sorted(func(s *models.Session) bool {
		return sameDay(s.SessionDate, date) &&
			s.RoomID != nil && *s.RoomID == roomID &&
			s.Status != models.StatusCancelled &&
			s.ID != excludeID
	}), nil
}

func (r *FakeSessionRepository) GetActiveByTrainer(q sqlx.Ext, date time.Time, trainerID int64, excludeID int64) ([]models.Session, error) {
	return r.sorted(func(s *models.Session) bool {
		return sameDay(s.SessionDate, date) &&
			s.TrainerID == trainerID &&
			s.Status != models.StatusCancelled &&
			s.ID != excludeID
	}), nil
}

func (r *FakeSessionRepository) GetScheduledByTrainer(trainerID int64, start, end time.Time) ([]models.Session, error) {
	return r.sorted(func(s *models.Session) bool {
		return s.TrainerID == trainerID &&
			s.Status == models.StatusScheduled &&
			dateIn(s.SessionDate, start, end)
	}), nil
}

func (r *FakeSessionRepository) UpdatePartial(q sqlx.Ext, id int64, updates map[string]interface{}) error {
	s, ok := r.Sessions[id]
	if !ok {
		return nil
	}
	for field, value := range updates {
		switch field {
		case "session_date":
			if str, ok := value.(string); ok {
				d, err := time.ParseInLocation("2006-01-02", str, time.Local)
				if err != nil {
					return err
				}
				s.SessionDate = d
			}
		case "start_time":
			s.StartTime = value.(string)
		case "end_time":
			s.EndTime = value.(string)
		case "group_id":
			s.GroupID = value.(int64)
		case "trainer_id":
			s.TrainerID = value.(int64)
		case "room_id":
			if value == nil {
				s.RoomID = nil
			} else {
				roomID := value.(int64)
				s.RoomID = &roomID
			}
		case "status":
			s.Status = value.(string)
		case "description":
			s.Description = value.(string)
		}
	}
	s.UpdatedAt = time.Now()
	return nil
}

func (r *FakeSessionRepository) MarkSubstituted(id int64, substituteTrainerID, originalTrainerID int64, at time.Time) error {
	s, ok := r.Sessions[id]
	if !ok {
		return nil
	}
	s.TrainerID = substituteTrainerID
	if s.OriginalTrainerID == nil {
		s.OriginalTrainerID = &originalTrainerID
	}
	s.IsSubstitution = true
	substitutedAt := at
	s.SubstitutedAt = &substitutedAt
	return nil
}

func (r *FakeSessionRepository) CompletePast(asOf time.Time) (int64, error) {
	var count int64
	for _, s := range r.Sessions {
		if s.Status != models.StatusScheduled {
			continue
		}
		endMinutes, err := timerange.ParseClock(s.EndTime)
		if err != nil {
			return 0, err
		}
		endsAt := time.Date(
			s.SessionDate.Year(), s.SessionDate.Month(), s.SessionDate.Day(),
			0, endMinutes, 0, 0, asOf.Location(),
		)
		if endsAt.Before(asOf) {
			s.Status = models.StatusCompleted
			count++
		}
	}
	return count, nil
}

func (r *FakeSessionRepository) Delete(id int64) error {
	delete(r.Sessions, id)
	return nil
}

func (r *FakeSessionRepository) DeleteFutureBySeries(q sqlx.Ext, seriesID int64, from time.Time) (int64, error) {
	var count int64
	for id, s := range r.Sessions {
		if s.SeriesID != nil && *s.SeriesID == seriesID && !s.SessionDate.Before(from) {
			delete(r.Sessions, id)
			count++
		}
	}
	return count, nil
}

type FakeSeriesRepository struct {
	nextID int64
	Series map[int64]*models.RecurringSeries
}

func NewFakeSeriesRepository() *FakeSeriesRepository {
	return &FakeSeriesRepository{Series: make(map[int64]*models.RecurringSeries)}
}

func (r *FakeSeriesRepository) Create(q sqlx.Ext, series *models.RecurringSeries) error {
	r.nextID++
	series.ID = r.nextID
	series.CreatedAt = time.Now()
	series.UpdatedAt = series.CreatedAt
	stored := *series
	r.Series[series.ID] = &stored
	return nil
}

func (r *FakeSeriesRepository) GetByID(id int64) (*models.RecurringSeries, error) {
	s, ok := r.Series[id]
	if !ok || s.DeletedAt != nil {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (r *FakeSeriesRepository) GetAllActive() ([]models.RecurringSeries, error) {
	var result []models.RecurringSeries
	for _, s := range r.Series {
		if s.DeletedAt == nil {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *FakeSeriesRepository) SoftDelete(q sqlx.Ext, id int64, at time.Time) error {
	if s, ok := r.Series[id]; ok && s.DeletedAt == nil {
		deletedAt := at
		s.DeletedAt = &deletedAt
	}
	return nil
}

type attendanceKey struct {
	sessionID int64
	studentID int64
}

type FakeAttendanceRepository struct {
	nextID   int64
	Records  map[attendanceKey]*models.AttendanceRecord
	Sessions *FakeSessionRepository
}

func NewFakeAttendanceRepository(sessions *FakeSessionRepository) *FakeAttendanceRepository {
	return &FakeAttendanceRepository{
		Records:  make(map[attendanceKey]*models.AttendanceRecord),
		Sessions: sessions,
	}
}

func (r *FakeAttendanceRepository) Upsert(q sqlx.Ext, record *models.AttendanceRecord) error {
	key := attendanceKey{record.SessionID, record.StudentID}
	if existing, ok := r.Records[key]; ok {
		existing.Present = record.Present
		existing.UpdatedAt = time.Now()
		*record = *existing
		return nil
	}
	r.nextID++
	record.ID = r.nextID
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt
	stored := *record
	r.Records[key] = &stored
	return nil
}

func (r *FakeAttendanceRepository) GetBySession(sessionID int64) ([]models.AttendanceRecord, error) {
	var result []models.AttendanceRecord
	for _, rec := range r.Records {
		if rec.SessionID == sessionID {
			result = append(result, *rec)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StudentID < result[j].StudentID })
	return result, nil
}

func (r *FakeAttendanceRepository) session(id int64) *models.Session {
	return r.Sessions.Sessions[id]
}

func (r *FakeAttendanceRepository) studentRecordsInRange(studentID int64, start, end time.Time) []models.AttendanceRecord {
	var result []models.AttendanceRecord
	for _, rec := range r.Records {
		if rec.StudentID != studentID {
			continue
		}
		s := r.session(rec.SessionID)
		if s == nil || !dateIn(s.SessionDate, start, end) {
			continue
		}
		result = append(result, *rec)
	}
	return result
}

func (r *FakeAttendanceRepository) GetByStudent(studentID int64, start, end time.Time) ([]models.AttendanceRecord, error) {
	return r.studentRecordsInRange(studentID, start, end), nil
}

func (r *FakeAttendanceRepository) CountByStudent(studentID int64, start, end time.Time) (total, attended int, err error) {
	for _, rec := range r.studentRecordsInRange(studentID, start, end) {
		total++
		if rec.Present {
			attended++
		}
	}
	return total, attended, nil
}

func (r *FakeAttendanceRepository) MonthlyByStudent(studentID int64, start, end time.Time) ([]models.MonthlyAttendance, error) {
	byMonth := make(map[string]*models.MonthlyAttendance)
	for _, rec := range r.studentRecordsInRange(studentID, start, end) {
		month := r.session(rec.SessionID).SessionDate.Format("2006-01")
		m, ok := byMonth[month]
		if !ok {
			m = &models.MonthlyAttendance{Month: month}
			byMonth[month] = m
		}
		m.TotalClasses++
		if rec.Present {
			m.AttendedClasses++
		}
	}

	var result []models.MonthlyAttendance
	for _, m := range byMonth {
		result = append(result, *m)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Month < result[j].Month })
	return result, nil
}

func (r *FakeAttendanceRepository) SessionCountsByGroup(groupID int64, start, end time.Time) ([]models.SessionAttendanceCount, error) {
	bySession := make(map[int64]*models.SessionAttendanceCount)
	for _, rec := range r.Records {
		s := r.session(rec.SessionID)
		if s == nil || s.GroupID != groupID || !dateIn(s.SessionDate, start, end) {
			continue
		}
		c, ok := bySession[rec.SessionID]
		if !ok {
			c = &models.SessionAttendanceCount{SessionID: rec.SessionID}
			bySession[rec.SessionID] = c
		}
		c.Total++
		if rec.Present {
			c.Present++
		}
	}

	var result []models.SessionAttendanceCount
	for _, c := range bySession {
		result = append(result, *c)
	}
	return result, nil
}

func (r *FakeAttendanceRepository) StudentCountsByGroup(groupID int64, start, end time.Time) ([]models.StudentGroupStats, error) {
	byStudent := make(map[int64]*models.StudentGroupStats)
	for _, rec := range r.Records {
		s := r.session(rec.SessionID)
		if s == nil || s.GroupID != groupID || !dateIn(s.SessionDate, start, end) {
			continue
		}
		st, ok := byStudent[rec.StudentID]
		if !ok {
			st = &models.StudentGroupStats{StudentID: rec.StudentID}
			byStudent[rec.StudentID] = st
		}
		st.TotalClasses++
		if rec.Present {
			st.AttendedClasses++
		}
	}

	var result []models.StudentGroupStats
	for _, st := range byStudent {
		result = append(result, *st)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StudentID < result[j].StudentID })
	return result, nil
}

type FakeGroupRepository struct {
	Groups  map[int64]*models.Group
	Rosters map[int64][]models.Student
}

func NewFakeGroupRepository() *FakeGroupRepository {
	return &FakeGroupRepository{
		Groups:  make(map[int64]*models.Group),
		Rosters: make(map[int64][]models.Student),
	}
}

func (r *FakeGroupRepository) GetByID(id int64) (*models.Group, error) {
	g, ok := r.Groups[id]
	if !ok {
		return nil, nil
	}
	copied := *g
	copied.MemberCount = len(r.Rosters[id])
	return &copied, nil
}

func (r *FakeGroupRepository) GetAll() ([]models.Group, error) {
	var result []models.Group
	for id := range r.Groups {
		g, _ := r.GetByID(id)
		result = append(result, *g)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *FakeGroupRepository) GetRoster(groupID int64) ([]models.Student, error) {
	return r.Rosters[groupID], nil
}

func (r *FakeGroupRepository) CountMembers(groupID int64) (int, error) {
	return len(r.Rosters[groupID]), nil
}

type FakeStudentRepository struct {
	Students map[int64]*models.Student
}

func NewFakeStudentRepository() *FakeStudentRepository {
	return &FakeStudentRepository{Students: make(map[int64]*models.Student)}
}

func (r *FakeStudentRepository) GetByID(id int64) (*models.Student, error) {
	s, ok := r.Students[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (r *FakeStudentRepository) GetAll() ([]models.Student, error) {
	var result []models.Student
	for _, s := range r.Students {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
