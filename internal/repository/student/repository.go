package student

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"dance-school-crm/internal/models"
	"dance-school-crm/internal/repository"
)

type studentRepository struct {
	db *sqlx.DB
}

func NewStudentRepository(db *sqlx.DB) repository.StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) GetByID(id int64) (*models.Student, error) {
	query := `
		SELECT id, first_name, last_name, COALESCE(phone, '') as phone, created_at, updated_at
		FROM studio.students
		WHERE id = $1
	`

	student := &models.Student{}
	err := r.db.QueryRow(query, id).Scan(
		&student.ID, &student.FirstName, &student.LastName, &student.Phone,
		&student.CreatedAt, &student.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return student, nil
}

func (r *studentRepository) GetAll() ([]models.Student, error) {
	query := `
		SELECT id, first_name, last_name, COALESCE(phone, '') as phone, created_at, updated_at
		FROM studio.students
		ORDER BY first_name, last_name
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []models.Student
	for rows.Next() {
		var st models.Student
		err := rows.Scan(&st.ID, &st.FirstName, &st.LastName, &st.Phone, &st.CreatedAt, &st.UpdatedAt)
		if err != nil {
			return nil, err
		}
		students = append(students, st)
	}

	return students, rows.Err()
}
