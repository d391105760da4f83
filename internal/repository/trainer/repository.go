package trainer

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"dance-school-crm/internal/models"
	"dance-school-crm/internal/repository"
)

type trainerRepository struct {
	db *sqlx.DB
}

func NewTrainerRepository(db *sqlx.DB) repository.TrainerRepository {
	return &trainerRepository{db: db}
}

func (r *trainerRepository) GetByID(id int64) (*models.Trainer, error) {
	query := `
		SELECT id, first_name, last_name, COALESCE(phone, '') as phone, created_at, updated_at
		FROM studio.trainers
		WHERE id = $1
	`

	trainer := &models.Trainer{}
	err := r.db.QueryRow(query, id).Scan(
		&trainer.ID, &trainer.FirstName, &trainer.LastName, &trainer.Phone,
		&trainer.CreatedAt, &trainer.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return trainer, nil
}

func (r *trainerRepository) GetAll() ([]models.Trainer, error) {
	query := `
		SELECT id, first_name, last_name, COALESCE(phone, '') as phone, created_at, updated_at
		FROM studio.trainers
		ORDER BY first_name, last_name
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trainers []models.Trainer
	for rows.Next() {
		var t models.Trainer
		err := rows.Scan(&t.ID, &t.FirstName, &t.LastName, &t.Phone, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, err
		}
		trainers = append(trainers, t)
	}

	return trainers, rows.Err()
}
