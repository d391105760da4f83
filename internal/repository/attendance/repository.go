package attendance

import (
	"time"

	"github.com/jmoiron/sqlx"

	"dance-school-crm/internal/models"
	"dance-school-crm/internal/repository"
)

type attendanceRepository struct {
	db *sqlx.DB
}

func NewAttendanceRepository(db *sqlx.DB) repository.AttendanceRepository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) ext(q sqlx.Ext) sqlx.Ext {
	if q == nil {
		return r.db
	}
	return q
}

// Upsert создаёт запись или перезаписывает present для пары (session, student).
// Повторная отметка не плодит дубли за счёт уникального ключа.
func (r *attendanceRepository) Upsert(q sqlx.Ext, record *models.AttendanceRecord) error {
	query := `
		INSERT INTO studio.attendance (session_id, student_id, present)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id, student_id)
		DO UPDATE SET present = EXCLUDED.present, updated_at = CURRENT_TIMESTAMP
		RETURNING id, created_at, updated_at
	`
	return r.ext(q).QueryRowx(
		query,
		record.SessionID,
		record.StudentID,
		record.Present,
	).Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)
}

func (r *attendanceRepository) GetBySession(sessionID int64) ([]models.AttendanceRecord, error) {
	query := `
		SELECT
			a.id, a.session_id, a.student_id, a.present, a.created_at, a.updated_at,
			st.first_name || ' ' || st.last_name as student_name
		FROM studio.attendance a
		JOIN studio.students st ON a.student_id = st.id
		WHERE a.session_id = $1
		ORDER BY st.first_name, st.last_name
	`

	rows, err := r.db.Query(query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.AttendanceRecord
	for rows.Next() {
		var rec models.AttendanceRecord
		err := rows.Scan(
			&rec.ID, &rec.SessionID, &rec.StudentID, &rec.Present,
			&rec.CreatedAt, &rec.UpdatedAt, &rec.StudentName,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (r *attendanceRepository) GetByStudent(studentID int64, start, end time.Time) ([]models.AttendanceRecord, error) {
	query := `
		SELECT
			a.id, a.session_id, a.student_id, a.present, a.created_at, a.updated_at,
			st.first_name || ' ' || st.last_name as student_name
		FROM studio.attendance a
		JOIN studio.students st ON a.student_id = st.id
		JOIN studio.sessions s ON a.session_id = s.id
		WHERE a.student_id = $1 AND s.session_date BETWEEN $2 AND $3
		ORDER BY s.session_date DESC, s.start_time DESC
	`

	rows, err := r.db.Query(query, studentID, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.AttendanceRecord
	for rows.Next() {
		var rec models.AttendanceRecord
		err := rows.Scan(
			&rec.ID, &rec.SessionID, &rec.StudentID, &rec.Present,
			&rec.CreatedAt, &rec.UpdatedAt, &rec.StudentName,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// CountByStudent считает только занятия, где посещаемость реально отмечалась.
func (r *attendanceRepository) CountByStudent(studentID int64, start, end time.Time) (total, attended int, err error) {
	query := `
		SELECT
			COUNT(*) as total,
			COUNT(CASE WHEN a.present THEN 1 END) as attended
		FROM studio.attendance a
		JOIN studio.sessions s ON a.session_id = s.id
		WHERE a.student_id = $1 AND s.session_date BETWEEN $2 AND $3
	`

	err = r.db.QueryRow(query, studentID, start.Format("2006-01-02"), end.Format("2006-01-02")).
		Scan(&total, &attended)
	return total, attended, err
}

func (r *attendanceRepository) MonthlyByStudent(studentID int64, start, end time.Time) ([]models.MonthlyAttendance, error) {
	query := `
		SELECT
			to_char(s.session_date, 'YYYY-MM') as month,
			COUNT(*) as total_classes,
			COUNT(CASE WHEN a.present THEN 1 END) as attended_classes
		FROM studio.attendance a
		JOIN studio.sessions s ON a.session_id = s.id
		WHERE a.student_id = $1 AND s.session_date BETWEEN $2 AND $3
		GROUP BY to_char(s.session_date, 'YYYY-MM')
		ORDER BY month ASC
	`

	rows, err := r.db.Query(query, studentID, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.MonthlyAttendance
	for rows.Next() {
		var m models.MonthlyAttendance
		if err := rows.Scan(&m.Month, &m.TotalClasses, &m.AttendedClasses); err != nil {
			return nil, err
		}
		result = append(result, m)
	}

	return result, rows.Err()
}

func (r *attendanceRepository) SessionCountsByGroup(groupID int64, start, end time.Time) ([]models.SessionAttendanceCount, error) {
	query := `
		SELECT
			a.session_id,
			COUNT(*) as total,
			COUNT(CASE WHEN a.present THEN 1 END) as present
		FROM studio.attendance a
		JOIN studio.sessions s ON a.session_id = s.id
		WHERE s.group_id = $1 AND s.session_date BETWEEN $2 AND $3
		GROUP BY a.session_id
	`

	rows, err := r.db.Query(query, groupID, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.SessionAttendanceCount
	for rows.Next() {
		var c models.SessionAttendanceCount
		if err := rows.Scan(&c.SessionID, &c.Total, &c.Present); err != nil {
			return nil, err
		}
		result = append(result, c)
	}

	return result, rows.Err()
}

func (r *attendanceRepository) StudentCountsByGroup(groupID int64, start, end time.Time) ([]models.StudentGroupStats, error) {
	query := `
		SELECT
			a.student_id,
			st.first_name || ' ' || st.last_name as student_name,
			COUNT(*) as total_classes,
			COUNT(CASE WHEN a.present THEN 1 END) as attended_classes
		FROM studio.attendance a
		JOIN studio.students st ON a.student_id = st.id
		JOIN studio.sessions s ON a.session_id = s.id
		WHERE s.group_id = $1 AND s.session_date BETWEEN $2 AND $3
		GROUP BY a.student_id, st.first_name, st.last_name
		ORDER BY student_name
	`

	rows, err := r.db.Query(query, groupID, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.StudentGroupStats
	for rows.Next() {
		var s models.StudentGroupStats
		if err := rows.Scan(&s.StudentID, &s.StudentName, &s.TotalClasses, &s.AttendedClasses); err != nil {
			return nil, err
		}
		result = append(result, s)
	}

	return result, rows.Err()
}
