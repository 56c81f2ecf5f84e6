package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/preetsinghmakkar/PeerConnect/internal/apperrors"
	"github.com/preetsinghmakkar/PeerConnect/internal/models"
)

// UserRepository is a read-only view over the user and course directory
// owned by the profile service.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const query = `
	SELECT id, name, role, approved
	FROM users
	WHERE id = $1
	`

	var u models.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Name, &u.Role, &u.Approved)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) CourseExists(ctx context.Context, id uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check course: %w", err)
	}
	return exists, nil
}

// ListMentorIDs returns every mentor account, approved or not, so bulk
// recomputation also repairs statistics of mentors that lost approval.
func (r *UserRepository) ListMentorIDs(ctx context.Context) ([]uuid.UUID, error) {
	const query = `SELECT id FROM users WHERE role = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, models.RoleMentor)
	if err != nil {
		return nil, fmt.Errorf("list mentors: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan mentor id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
