package room

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"dance-school-crm/internal/models"
	"dance-school-crm/internal/repository"
)

type roomRepository struct {
	db *sqlx.DB
}

func NewRoomRepository(db *sqlx.DB) repository.RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) GetByID(id int64) (*models.Room, error) {
	query := `SELECT id, name, capacity, created_at FROM studio.rooms WHERE id = $1`

	room := &models.Room{}
	err := r.db.QueryRow(query, id).Scan(&room.ID, &room.Name, &room.Capacity, &room.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return room, nil
}

func (r *roomRepository) GetAll() ([]models.Room, error) {
	query := `SELECT id, name, capacity, created_at FROM studio.rooms ORDER BY name`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		var room models.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.Capacity, &room.CreatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}
