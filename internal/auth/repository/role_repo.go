package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spatial-studio/spatial-backend/internal/auth"
)

// RoleRepository reads role assignments from the user_roles table.
type RoleRepository struct {
	db *sql.DB
}

func NewRoleRepository(db *sql.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// RoleFor returns the role assigned to the user. Users without a row are
// plain users, which the gate rejects.
func (r *RoleRepository) RoleFor(ctx context.Context, userID string) (string, error) {
	const q = `
SELECT role
FROM user_roles
WHERE user_id = $1;
`
	var role string
	err := r.db.QueryRowContext(ctx, q, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.RoleUser, nil
	}
	if err != nil {
		return "", fmt.Errorf("role lookup for %s: %w", userID, err)
	}
	return role, nil
}
