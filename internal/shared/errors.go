package shared

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials covers unknown email, wrong password and
	// disabled accounts alike so callers cannot tell them apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates a malformed, expired or tampered bearer token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrAccountDisabled indicates the account exists but is inactive.
	ErrAccountDisabled = errors.New("user account is disabled")
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUsernameTaken indicates the username is already taken.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidRole indicates a reference to a role that does not exist.
	ErrInvalidRole = errors.New("invalid role ID")
	// ErrSelfDelete indicates an attempt to delete one's own account.
	ErrSelfDelete = errors.New("cannot delete your own account")
	// ErrTooManyAttempts indicates the login throttle tripped.
	ErrTooManyAttempts = errors.New("too many login attempts")
)

// RequireMode selects how a permission requirement is evaluated.
type RequireMode int

const (
	// RequireAll demands every listed permission.
	RequireAll RequireMode = iota
	// RequireAny demands at least one listed permission.
	RequireAny
)

// PermissionError reports a failed permission requirement together with the
// permissions the caller was missing (all mode) or could have presented
// (any mode).
type PermissionError struct {
	Mode        RequireMode
	Permissions []string
}

func (e *PermissionError) Error() string {
	if e.Mode == RequireAny {
		return fmt.Sprintf("Requires one of these permissions: %s", strings.Join(e.Permissions, ", "))
	}
	return fmt.Sprintf("Missing required permissions: %s", strings.Join(e.Permissions, ", "))
}

// RoleError reports a failed role requirement naming the allowed roles.
type RoleError struct {
	Allowed []string
}

func (e *RoleError) Error() string {
	return fmt.Sprintf("Access denied. Required roles: %s", strings.Join(e.Allowed, ", "))
}

// ValidationError carries per-field messages for malformed input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
