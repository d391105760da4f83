package group

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"dance-school-crm/internal/models"
	"dance-school-crm/internal/repository"
)

type groupRepository struct {
	db *sqlx.DB
}

func NewGroupRepository(db *sqlx.DB) repository.GroupRepository {
	return &groupRepository{db: db}
}

const groupColumns = `
	g.id, g.name, g.trainer_id,
	COALESCE(g.description, '') as description,
	g.created_at, g.updated_at,
	t.first_name || ' ' || t.last_name as trainer_name,
	(SELECT COUNT(*) FROM studio.group_members gm
		WHERE gm.group_id = g.id AND gm.left_at IS NULL) as member_count
`

func (r *groupRepository) GetByID(id int64) (*models.Group, error) {
	query := `SELECT` + groupColumns + `
		FROM studio.groups g
		JOIN studio.trainers t ON g.trainer_id = t.id
		WHERE g.id = $1
	`

	group := &models.Group{}
	err := r.db.QueryRow(query, id).Scan(
		&group.ID, &group.Name, &group.TrainerID, &group.Description,
		&group.CreatedAt, &group.UpdatedAt, &group.TrainerName, &group.MemberCount,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return group, nil
}

func (r *groupRepository) GetAll() ([]models.Group, error) {
	query := `SELECT` + groupColumns + `
		FROM studio.groups g
		JOIN studio.trainers t ON g.trainer_id = t.id
		ORDER BY g.name
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		var group models.Group
		err := rows.Scan(
			&group.ID, &group.Name, &group.TrainerID, &group.Description,
			&group.CreatedAt, &group.UpdatedAt, &group.TrainerName, &group.MemberCount,
		)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}

	return groups, rows.Err()
}

// GetRoster возвращает текущих участников группы (left_at IS NULL).
func (r *groupRepository) GetRoster(groupID int64) ([]models.Student, error) {
	query := `
		SELECT st.id, st.first_name, st.last_name, COALESCE(st.phone, '') as phone,
		       st.created_at, st.updated_at
		FROM studio.group_members gm
		JOIN studio.students st ON gm.student_id = st.id
		WHERE gm.group_id = $1 AND gm.left_at IS NULL
		ORDER BY st.first_name, st.last_name
	`

	rows, err := r.db.Query(query, groupID)
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

func (r *groupRepository) CountMembers(groupID int64) (int, error) {
	query := `SELECT COUNT(*) FROM studio.group_members WHERE group_id = $1 AND left_at IS NULL`
	var count int
	err := r.db.QueryRow(query, groupID).Scan(&count)
	return count, err
}
