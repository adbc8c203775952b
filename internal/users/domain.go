package users

import (
	"time"

	"github.com/aegis-iam/aegis/internal/rbac"
)

// User is a managed user account with its role and effective permissions.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	RoleID       int64
	RoleName     rbac.RoleName
	Permissions  []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ListFilter narrows and paginates user listings.
type ListFilter struct {
	Search   string
	RoleID   *int64
	IsActive *bool
	Page     int
	PerPage  int
}

// CreateInput carries the fields for a new user account.
type CreateInput struct {
	Username string
	Email    string
	Password string
	RoleID   int64
	IsActive bool
}

// UpdateInput carries a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Username *string
	Email    *string
	IsActive *bool
	RoleID   *int64
}
