package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aegis-iam/aegis/internal/platform/httpx"
	"github.com/aegis-iam/aegis/internal/rbac"
	"github.com/aegis-iam/aegis/internal/shared"
	"github.com/aegis-iam/aegis/internal/token"
)

// Middleware wires the request-time authentication and authorization guards.
// Permission and role checks evaluate the verified token snapshot; the
// database is hit only to confirm the user row still exists and is active.
type Middleware struct {
	codec  *token.Codec
	repo   Repository
	logger *slog.Logger
}

// NewMiddleware constructs the guard middleware.
func NewMiddleware(codec *token.Codec, repo Repository, logger *slog.Logger) *Middleware {
	return &Middleware{codec: codec, repo: repo, logger: logger}
}

// RequireUser authenticates the request from its bearer token and stores the
// actor in context. Missing/invalid tokens and vanished users yield 401;
// a disabled account yields 403.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := m.authenticate(r)
		if err != nil {
			httpx.RespondError(w, m.logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
	})
}

// OptionalUser attaches the actor when a valid bearer token is presented and
// silently continues without one otherwise. Authentication failures are
// converted into "no user", never propagated.
func (m *Middleware) OptionalUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := m.authenticate(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
	})
}

// RequirePermissions gates a route on the listed permission keys under the
// given mode. Superadmin bypasses the check. Must be mounted after
// RequireUser.
func (m *Middleware) RequirePermissions(mode shared.RequireMode, perms ...string) func(http.Handler) http.Handler {
	requirement := rbac.Requirement{Permissions: perms, Mode: mode}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := shared.ActorFromContext(r.Context())
			if actor == nil {
				httpx.RespondError(w, m.logger, shared.ErrInvalidToken)
				return
			}
			granted := rbac.NewPermissionSet(actor.Permissions...)
			if err := requirement.Check(rbac.RoleName(actor.Role), granted); err != nil {
				httpx.RespondError(w, m.logger, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoles gates a route on the caller's role name. Must be mounted after
// RequireUser.
func (m *Middleware) RequireRoles(roles ...rbac.RoleName) func(http.Handler) http.Handler {
	requirement := rbac.RoleRequirement{Roles: roles}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := shared.ActorFromContext(r.Context())
			if actor == nil {
				httpx.RespondError(w, m.logger, shared.ErrInvalidToken)
				return
			}
			if err := requirement.Check(rbac.RoleName(actor.Role)); err != nil {
				httpx.RespondError(w, m.logger, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) authenticate(r *http.Request) (*shared.Actor, error) {
	raw := bearerToken(r)
	if raw == "" {
		return nil, shared.ErrInvalidToken
	}
	claims, err := m.codec.Verify(raw)
	if err != nil {
		return nil, err
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, shared.ErrInvalidToken
	}
	user, err := m.repo.FindByID(r.Context(), id)
	if err != nil {
		// The token referred to a user that no longer exists.
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrAccountDisabled
	}
	return &shared.Actor{
		UserID:      user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Role:        claims.Role,
		Permissions: claims.Permissions,
	}, nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
