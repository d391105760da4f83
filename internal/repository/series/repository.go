package series

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"dance-school-crm/internal/models"
	"dance-school-crm/internal/repository"
)

type seriesRepository struct {
	db *sqlx.DB
}

func NewSeriesRepository(db *sqlx.DB) repository.SeriesRepository {
	return &seriesRepository{db: db}
}

func (r *seriesRepository) ext(q sqlx.Ext) sqlx.Ext {
	if q == nil {
		return r.db
	}
	return q
}

const seriesColumns = `
	id, start_date, end_date, day_of_week,
	to_char(start_time, 'HH24:MI') as start_time,
	to_char(end_time, 'HH24:MI') as end_time,
	group_id, trainer_id, room_id,
	COALESCE(description, '') as description,
	deleted_at, created_at, updated_at
`

func (r *seriesRepository) Create(q sqlx.Ext, series *models.RecurringSeries) error {
	query := `
		INSERT INTO studio.recurring_series
		(start_date, end_date, day_of_week, start_time, end_time, group_id, trainer_id, room_id, description)
		VALUES ($1, $2, $3, $4::time, $5::time, $6, $7, $8, NULLIF($9, ''))
		RETURNING id, created_at, updated_at
	`
	return r.ext(q).QueryRowx(
		query,
		series.StartDate.Format("2006-01-02"),
		series.EndDate.Format("2006-01-02"),
		series.DayOfWeek,
		series.StartTime,
		series.EndTime,
		series.GroupID,
		series.TrainerID,
		series.RoomID,
		series.Description,
	).Scan(&series.ID, &series.CreatedAt, &series.UpdatedAt)
}

func (r *seriesRepository) GetByID(id int64) (*models.RecurringSeries, error) {
	query := `SELECT` + seriesColumns + `FROM studio.recurring_series WHERE id = $1 AND deleted_at IS NULL`

	s := &models.RecurringSeries{}
	err := r.db.QueryRow(query, id).Scan(
		&s.ID, &s.StartDate, &s.EndDate, &s.DayOfWeek,
		&s.StartTime, &s.EndTime,
		&s.GroupID, &s.TrainerID, &s.RoomID, &s.Description,
		&s.DeletedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (r *seriesRepository) GetAllActive() ([]models.RecurringSeries, error) {
	query := `SELECT` + seriesColumns + `
		FROM studio.recurring_series
		WHERE deleted_at IS NULL
		ORDER BY start_date ASC, start_time ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.RecurringSeries
	for rows.Next() {
		var s models.RecurringSeries
		err := rows.Scan(
			&s.ID, &s.StartDate, &s.EndDate, &s.DayOfWeek,
			&s.StartTime, &s.EndTime,
			&s.GroupID, &s.TrainerID, &s.RoomID, &s.Description,
			&s.DeletedAt, &s.CreatedAt, &s.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}

	return result, rows.Err()
}

func (r *seriesRepository) SoftDelete(q sqlx.Ext, id int64, at time.Time) error {
	query := `UPDATE studio.recurring_series SET deleted_at = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2 AND deleted_at IS NULL`
	_, err := r.ext(q).Exec(query, at, id)
	return err
}
