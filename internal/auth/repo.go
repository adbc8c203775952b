package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-iam/aegis/internal/rbac"
	"github.com/aegis-iam/aegis/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `u.id, u.username, u.email, u.hashed_password, u.is_active, u.role_id, r.name,
	u.created_at, COALESCE(u.updated_at, u.created_at)`

// FindByEmail fetches a user by email with role and effective permissions.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE u.email = $1`, email)
	return r.scanUser(ctx, row)
}

// FindByID fetches a user by id with role and effective permissions.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1`, id)
	return r.scanUser(ctx, row)
}

func (r *PGRepository) scanUser(ctx context.Context, row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.IsActive,
		&user.RoleID, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	perms, err := r.effectivePermissions(ctx, user.RoleID, user.ID)
	if err != nil {
		return nil, err
	}
	user.Permissions = perms
	return user, nil
}

// effectivePermissions resolves the union of role-granted permission keys and
// the user's own overrides in one round trip.
func (r *PGRepository) effectivePermissions(ctx context.Context, roleID, userID int64) (rbac.PermissionSet, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT m.name || ':' || p.name
		FROM permissions p
		JOIN modules m ON m.id = p.module_id
		WHERE p.id IN (
			SELECT mp.permission_id FROM module_permissions mp WHERE mp.role_id = $1
			UNION
			SELECT up.permission_id FROM user_permissions up WHERE up.user_id = $2
		)`, roleID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	set := rbac.PermissionSet{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		set[key] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return set, nil
}

var _ Repository = (*PGRepository)(nil)
