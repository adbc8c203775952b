package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-iam/aegis/internal/platform/db"
	"github.com/aegis-iam/aegis/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context, filter ListFilter) ([]User, int, error)
	Create(ctx context.Context, user *User) (*User, error)
	Update(ctx context.Context, user *User) (*User, error)
	Deactivate(ctx context.Context, id int64) error
	RoleExists(ctx context.Context, roleID int64) (bool, error)
}

// Repository provides PostgreSQL backed persistence. The unique constraints
// on users.email and users.username are the authoritative uniqueness guard;
// violation errors are mapped here so races between pre-check and insert
// still surface as the right domain error.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectUser = `
	SELECT u.id, u.username, u.email, u.hashed_password, u.is_active, u.role_id, r.name,
		u.created_at, COALESCE(u.updated_at, u.created_at)
	FROM users u
	JOIN roles r ON r.id = u.role_id`

// GetByID fetches a user by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.getOne(ctx, selectUser+` WHERE u.id = $1`, id)
}

// GetByEmail fetches a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, selectUser+` WHERE u.email = $1`, email)
}

// GetByUsername fetches a user by username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getOne(ctx, selectUser+` WHERE u.username = $1`, username)
}

func (r *Repository) getOne(ctx context.Context, query string, arg any) (*User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	if err := r.attachPermissions(ctx, []*User{user}); err != nil {
		return nil, err
	}
	return user, nil
}

// List returns a page of users matching the filter plus the total count.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]User, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		where = append(where, fmt.Sprintf("(u.username ILIKE $%d OR u.email ILIKE $%d)", len(args), len(args)))
	}
	if filter.RoleID != nil {
		args = append(args, *filter.RoleID)
		where = append(where, fmt.Sprintf("u.role_id = $%d", len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		where = append(where, fmt.Sprintf("u.is_active = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users u WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 100
	}
	args = append(args, perPage, (page-1)*perPage)
	query := fmt.Sprintf("%s WHERE %s ORDER BY u.id LIMIT $%d OFFSET $%d", selectUser, cond, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []User
	var refs []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range result {
		refs = append(refs, &result[i])
	}
	if err := r.attachPermissions(ctx, refs); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// Create inserts a new user and returns it fully loaded.
func (r *Repository) Create(ctx context.Context, user *User) (*User, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO users (username, email, hashed_password, is_active, role_id, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			RETURNING id, created_at`,
			user.Username, user.Email, user.PasswordHash, user.IsActive, user.RoleID)
		if err := row.Scan(&user.ID, &user.CreatedAt); err != nil {
			return mapConstraintError(err)
		}
		return tx.QueryRow(ctx, `SELECT name FROM roles WHERE id = $1`, user.RoleID).Scan(&user.RoleName)
	})
	if err != nil {
		return nil, err
	}
	user.UpdatedAt = user.CreatedAt
	if err := r.attachPermissions(ctx, []*User{user}); err != nil {
		return nil, err
	}
	return user, nil
}

// Update writes the mutable fields of an existing user.
func (r *Repository) Update(ctx context.Context, user *User) (*User, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE users
			SET username = $1, email = $2, is_active = $3, role_id = $4, updated_at = NOW()
			WHERE id = $5
			RETURNING created_at, updated_at`,
			user.Username, user.Email, user.IsActive, user.RoleID, user.ID)
		if err := row.Scan(&user.CreatedAt, &user.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return mapConstraintError(err)
		}
		return tx.QueryRow(ctx, `SELECT name FROM roles WHERE id = $1`, user.RoleID).Scan(&user.RoleName)
	})
	if err != nil {
		return nil, err
	}
	if err := r.attachPermissions(ctx, []*User{user}); err != nil {
		return nil, err
	}
	return user, nil
}

// Deactivate soft-deletes a user by clearing is_active.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// RoleExists reports whether a role id references an existing role.
func (r *Repository) RoleExists(ctx context.Context, roleID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1)`, roleID).Scan(&exists)
	return exists, err
}

// attachPermissions loads effective permission keys (role grants UNION user
// overrides) for the given users in one query.
func (r *Repository) attachPermissions(ctx context.Context, users []*User) error {
	if len(users) == 0 {
		return nil
	}
	ids := make([]int64, len(users))
	index := make(map[int64]*User, len(users))
	for i, user := range users {
		ids[i] = user.ID
		index[user.ID] = user
		user.Permissions = []string{}
	}
	rows, err := r.pool.Query(ctx, `
		SELECT x.user_id, m.name || ':' || p.name
		FROM (
			SELECT u.id AS user_id, mp.permission_id
			FROM users u
			JOIN module_permissions mp ON mp.role_id = u.role_id
			WHERE u.id = ANY($1)
			UNION
			SELECT up.user_id, up.permission_id
			FROM user_permissions up
			WHERE up.user_id = ANY($1)
		) x
		JOIN permissions p ON p.id = x.permission_id
		JOIN modules m ON m.id = p.module_id
		ORDER BY 1, 2`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var userID int64
		var key string
		if err := rows.Scan(&userID, &key); err != nil {
			return err
		}
		if user, ok := index[userID]; ok {
			user.Permissions = append(user.Permissions, key)
		}
	}
	return rows.Err()
}

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.IsActive,
		&user.RoleID, &user.RoleName, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// mapConstraintError translates postgres constraint violations into domain
// errors. The database constraint is the real guard; service-level
// pre-checks only exist for friendlier fast-path errors.
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505": // unique_violation
		if strings.Contains(pgErr.ConstraintName, "email") {
			return shared.ErrEmailTaken
		}
		return shared.ErrUsernameTaken
	case "23503": // foreign_key_violation
		return shared.ErrInvalidRole
	}
	return err
}

var _ RepositoryPort = (*Repository)(nil)
