package auth

import (
	"time"

	"github.com/aegis-iam/aegis/internal/rbac"
)

// User is an authenticated account with its role and effective permissions
// loaded. This is the authentication view of a user; management CRUD lives in
// the users package.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	RoleID       int64
	Role         rbac.RoleName
	Permissions  rbac.PermissionSet
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Token is an issued access token with its type marker and lifetime in
// seconds.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
