package rbac

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed access to the RBAC catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListRoles returns all roles ordered by id.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(description, '') FROM roles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// ListPermissions returns all permissions with their module names.
func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.name, m.name, COALESCE(p.description, '')
		FROM permissions p
		JOIN modules m ON m.id = p.module_id
		ORDER BY m.name, p.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var perm Permission
		if err := rows.Scan(&perm.ID, &perm.Name, &perm.Module, &perm.Description); err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

// ListModules returns all modules with their permissions nested.
func (r *Repository) ListModules(ctx context.Context) ([]Module, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM modules ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var modules []Module
	index := make(map[string]int)
	for rows.Next() {
		var mod Module
		if err := rows.Scan(&mod.ID, &mod.Name); err != nil {
			return nil, err
		}
		index[mod.Name] = len(modules)
		modules = append(modules, mod)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	perms, err := r.ListPermissions(ctx)
	if err != nil {
		return nil, err
	}
	for _, perm := range perms {
		if i, ok := index[perm.Module]; ok {
			modules[i].Permissions = append(modules[i].Permissions, perm)
		}
	}
	return modules, nil
}
