package session

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"dance-school-crm/internal/models"
	"dance-school-crm/internal/repository"
)

type sessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) ext(q sqlx.Ext) sqlx.Ext {
	if q == nil {
		return r.db
	}
	return q
}

const sessionColumns = `
	s.id, s.session_date,
	to_char(s.start_time, 'HH24:MI') as start_time,
	to_char(s.end_time, 'HH24:MI') as end_time,
	s.group_id, s.trainer_id, s.original_trainer_id, s.room_id,
	s.status, s.is_substitution, s.substituted_at,
	COALESCE(s.description, '') as description,
	s.series_id, s.created_at, s.updated_at,
	g.name as group_name,
	t.first_name || ' ' || t.last_name as trainer_name,
	COALESCE(rm.name, '') as room_name,
	(s.trainer_id <> g.trainer_id AND NOT s.is_substitution) as is_ad_hoc_substitute
`

const sessionJoins = `
	FROM studio.sessions s
	JOIN studio.groups g ON s.group_id = g.id
	JOIN studio.trainers t ON s.trainer_id = t.id
	LEFT JOIN studio.rooms rm ON s.room_id = rm.id
`

func scanSession(rows *sql.Rows) (*models.Session, error) {
	s := &models.Session{}
	err := rows.Scan(
		&s.ID, &s.SessionDate, &s.StartTime, &s.EndTime,
		&s.GroupID, &s.TrainerID, &s.OriginalTrainerID, &s.RoomID,
		&s.Status, &s.IsSubstitution, &s.SubstitutedAt,
		&s.Description, &s.SeriesID, &s.CreatedAt, &s.UpdatedAt,
		&s.GroupName, &s.TrainerName, &s.RoomName, &s.IsAdHocSubstitute,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func collectSessions(rows *sql.Rows) ([]models.Session, error) {
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func (r *sessionRepository) Create(q sqlx.Ext, session *models.Session) error {
	query := `
		INSERT INTO studio.sessions
		(session_date, start_time, end_time, group_id, trainer_id, room_id, status, description, series_id)
		VALUES ($1, $2::time, $3::time, $4, $5, $6, $7, NULLIF($8, ''), $9)
		RETURNING id, created_at, updated_at
	`
	return r.ext(q).QueryRowx(
		query,
		session.SessionDate.Format("2006-01-02"),
		session.StartTime,
		session.EndTime,
		session.GroupID,
		session.TrainerID,
		session.RoomID,
		session.Status,
		session.Description,
		session.SeriesID,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)
}

func (r *sessionRepository) GetByID(q sqlx.Ext, id int64) (*models.Session, error) {
	query := `SELECT` + sessionColumns + sessionJoins + `WHERE s.id = $1`

	rows, err := r.ext(q).Query(query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return scanSession(rows)
}

func (r *sessionRepository) GetByDateRange(start, end time.Time, groupID *int64) ([]models.Session, error) {
	query := `SELECT` + sessionColumns + sessionJoins + `
		WHERE s.session_date BETWEEN $1 AND $2
		AND ($3::bigint IS NULL OR s.group_id = $3)
		ORDER BY s.session_date ASC, s.start_time ASC
	`

	rows, err := r.db.Query(query, start.Format("2006-01-02"), end.Format("2006-01-02"), groupID)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

func (r *sessionRepository) GetActiveByRoom(q sqlx.Ext, date time.Time, roomID int64, excludeID int64) ([]models.Session, error) {
	query := `SELECT` + sessionColumns + sessionJoins + `
		WHERE s.session_date = $1
		AND s.room_id = $2
		AND s.status <> '` + models.StatusCancelled + `'
		AND s.id <> $3
		ORDER BY s.start_time ASC
	`

	rows, err := r.ext(q).Query(query, date.Format("2006-01-02"), roomID, excludeID)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

func (r *sessionRepository) GetActiveByTrainer(q sqlx.Ext, date time.Time, trainerID int64, excludeID int64) ([]models.Session, error) {
	query := `SELECT` + sessionColumns + sessionJoins + `
		WHERE s.session_date = $1
		AND s.trainer_id = $2
		AND s.status <> '` + models.StatusCancelled + `'
		AND s.id <> $3
		ORDER BY s.start_time ASC
	`

	rows, err := r.ext(q).Query(query, date.Format("2006-01-02"), trainerID, excludeID)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

func (r *sessionRepository) GetScheduledByTrainer(trainerID int64, start, end time.Time) ([]models.Session, error) {
	query := `SELECT` + sessionColumns + sessionJoins + `
		WHERE s.trainer_id = $1
		AND s.session_date BETWEEN $2 AND $3
		AND s.status = '` + models.StatusScheduled + `'
		ORDER BY s.session_date ASC, s.start_time ASC
	`

	rows, err := r.db.Query(query, trainerID, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

func (r *sessionRepository) UpdatePartial(q sqlx.Ext, id int64, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return errors.New("нет полей для обновления")
	}

	// Белый список допустимых полей для обновления
	allowedFields := map[string]bool{
		"session_date": true,
		"start_time":   true,
		"end_time":     true,
		"group_id":     true,
		"trainer_id":   true,
		"room_id":      true,
		"status":       true,
		"description":  true,
	}

	// time-колонки требуют приведения из строки "HH:MM"
	casts := map[string]string{
		"start_time": "::time",
		"end_time":   "::time",
	}

	query := `UPDATE studio.sessions SET updated_at = CURRENT_TIMESTAMP`
	args := []interface{}{}
	argCounter := 1

	for field, value := range updates {
		if !allowedFields[field] {
			continue
		}

		query += fmt.Sprintf(", %s = $%d%s", field, argCounter, casts[field])
		args = append(args, value)
		argCounter++
	}

	query += fmt.Sprintf(" WHERE id = $%d", argCounter)
	args = append(args, id)

	_, err := r.ext(q).Exec(query, args...)
	return err
}

func (r *sessionRepository) MarkSubstituted(id int64, substituteTrainerID, originalTrainerID int64, at time.Time) error {
	// COALESCE сохраняет первого исходного преподавателя при цепочке замен
	query := `
		UPDATE studio.sessions
		SET trainer_id = $1,
		    original_trainer_id = COALESCE(original_trainer_id, $2),
		    is_substitution = TRUE,
		    substituted_at = $3,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
	`
	_, err := r.db.Exec(query, substituteTrainerID, originalTrainerID, at, id)
	return err
}

func (r *sessionRepository) CompletePast(asOf time.Time) (int64, error) {
	// Занятие считается прошедшим, когда дата + время окончания строго раньше asOf.
	// CANCELLED не трогаем; повторный запуск ничего не меняет.
	query := `
		UPDATE studio.sessions
		SET status = '` + models.StatusCompleted + `', updated_at = CURRENT_TIMESTAMP
		WHERE status = '` + models.StatusScheduled + `'
		AND (session_date + end_time) < $1
	`

	res, err := r.db.Exec(query, asOf)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *sessionRepository) Delete(id int64) error {
	query := `DELETE FROM studio.sessions WHERE id = $1`
	_, err := r.db.Exec(query, id)
	return err
}

func (r *sessionRepository) DeleteFutureBySeries(q sqlx.Ext, seriesID int64, from time.Time) (int64, error) {
	query := `DELETE FROM studio.sessions WHERE series_id = $1 AND session_date >= $2`

	res, err := r.ext(q).Exec(query, seriesID, from.Format("2006-01-02"))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
