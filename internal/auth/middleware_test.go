package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-iam/aegis/internal/rbac"
	"github.com/aegis-iam/aegis/internal/shared"
	"github.com/aegis-iam/aegis/internal/token"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// issueFor mints a token for a stored user the way the login flow would.
func issueFor(t *testing.T, codec *token.Codec, user *User) string {
	t.Helper()
	raw, err := codec.Issue(token.Identity{
		UserID:      user.ID,
		Email:       user.Email,
		Username:    user.Username,
		Role:        string(user.Role),
		Permissions: user.Permissions.Keys(),
	})
	require.NoError(t, err)
	return raw
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

// ============================================================================
// REQUIRE USER
// ============================================================================

func TestRequireUserMissingHeader(t *testing.T) {
	mw := NewMiddleware(testCodec(), newMockRepository(), discardLogger())
	called := false

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	mw.RequireUser(okHandler(&called)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	assert.False(t, called)
}

func TestRequireUserMalformedToken(t *testing.T) {
	mw := NewMiddleware(testCodec(), newMockRepository(), discardLogger())
	called := false

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	mw.RequireUser(okHandler(&called)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestRequireUserWrongSecret(t *testing.T) {
	repo := newMockRepository()
	user := testUser(t, 1, "alice@example.com", "s3cretpass", true)
	repo.add(user)
	mw := NewMiddleware(testCodec(), repo, discardLogger())
	called := false

	other := token.NewCodec("different-secret", time.Hour)
	raw := issueFor(t, other, user)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	mw.RequireUser(okHandler(&called)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestRequireUserVanishedUser(t *testing.T) {
	codec := testCodec()
	user := testUser(t, 99, "gone@example.com", "s3cretpass", true)
	raw := issueFor(t, codec, user)

	// Repository has no such user anymore.
	mw := NewMiddleware(codec, newMockRepository(), discardLogger())
	called := false

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	mw.RequireUser(okHandler(&called)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestRequireUserDisabledAccount(t *testing.T) {
	codec := testCodec()
	repo := newMockRepository()
	user := testUser(t, 1, "alice@example.com", "s3cretpass", true)
	raw := issueFor(t, codec, user)

	// Account deactivated after the token was issued.
	user.IsActive = false
	repo.add(user)
	mw := NewMiddleware(codec, repo, discardLogger())
	called := false

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	mw.RequireUser(okHandler(&called)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)
}

func TestRequireUserAttachesActor(t *testing.T) {
	codec := testCodec()
	repo := newMockRepository()
	user := testUser(t, 1, "alice@example.com", "s3cretpass", true)
	repo.add(user)
	mw := NewMiddleware(codec, repo, discardLogger())

	var actor *shared.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = shared.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "bearer "+issueFor(t, codec, user))
	mw.RequireUser(next).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, actor)
	assert.Equal(t, int64(1), actor.UserID)
	assert.Equal(t, "alice", actor.Username)
	assert.Equal(t, string(rbac.RoleUser), actor.Role)
	assert.ElementsMatch(t, user.Permissions.Keys(), actor.Permissions)
}

// ============================================================================
// OPTIONAL USER
// ============================================================================

func TestOptionalUserWithoutToken(t *testing.T) {
	mw := NewMiddleware(testCodec(), newMockRepository(), discardLogger())

	var actor *shared.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = shared.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	mw.OptionalUser(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, actor)
}

func TestOptionalUserWithBadToken(t *testing.T) {
	mw := NewMiddleware(testCodec(), newMockRepository(), discardLogger())

	var actor *shared.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = shared.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	mw.OptionalUser(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, actor)
}

func TestOptionalUserWithValidToken(t *testing.T) {
	codec := testCodec()
	repo := newMockRepository()
	user := testUser(t, 1, "alice@example.com", "s3cretpass", true)
	repo.add(user)
	mw := NewMiddleware(codec, repo, discardLogger())

	var actor *shared.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = shared.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+issueFor(t, codec, user))
	mw.OptionalUser(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, actor)
	assert.Equal(t, int64(1), actor.UserID)
}

// ============================================================================
// PERMISSION GUARDS
// ============================================================================

// serveGuardedWith runs a request for user through RequireUser plus the
// given guard and reports the status and whether the handler ran.
func serveGuardedWith(t *testing.T, mw *Middleware, codec *token.Codec, user *User, guard func(http.Handler) http.Handler) (int, bool) {
	t.Helper()
	called := false
	handler := mw.RequireUser(guard(okHandler(&called)))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+issueFor(t, codec, user))
	handler.ServeHTTP(rec, req)
	return rec.Code, called
}

func TestRequirePermissionsGranted(t *testing.T) {
	user := testUser(t, 1, "alice@example.com", "s3cretpass", true)
	user.Permissions = rbac.NewPermissionSet(rbac.PermUsersRead)

	codec := testCodec()
	repo := newMockRepository()
	repo.add(user)
	mw := NewMiddleware(codec, repo, discardLogger())

	code, called := serveGuardedWith(t, mw, codec, user, mw.RequirePermissions(shared.RequireAll, rbac.PermUsersRead))
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, called)
}

func TestRequirePermissionsMissing(t *testing.T) {
	user := testUser(t, 1, "alice@example.com", "s3cretpass", true)
	user.Permissions = rbac.NewPermissionSet(rbac.PermAuthLogin)

	codec := testCodec()
	repo := newMockRepository()
	repo.add(user)
	mw := NewMiddleware(codec, repo, discardLogger())

	code, called := serveGuardedWith(t, mw, codec, user, mw.RequirePermissions(shared.RequireAll, rbac.PermUsersRead, rbac.PermUsersWrite))
	assert.Equal(t, http.StatusForbidden, code)
	assert.False(t, called)
}

func TestRequirePermissionsAnyMode(t *testing.T) {
	user := testUser(t, 1, "alice@example.com", "s3cretpass", true)
	user.Permissions = rbac.NewPermissionSet(rbac.PermUsersWrite)

	codec := testCodec()
	repo := newMockRepository()
	repo.add(user)
	mw := NewMiddleware(codec, repo, discardLogger())

	code, called := serveGuardedWith(t, mw, codec, user, mw.RequirePermissions(shared.RequireAny, rbac.PermUsersRead, rbac.PermUsersWrite))
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, called)
}

func TestRequirePermissionsSuperadminBypass(t *testing.T) {
	user := testUser(t, 1, "root@example.com", "s3cretpass", true)
	user.Role = rbac.RoleSuperadmin
	user.Permissions = rbac.PermissionSet{}

	codec := testCodec()
	repo := newMockRepository()
	repo.add(user)
	mw := NewMiddleware(codec, repo, discardLogger())

	code, called := serveGuardedWith(t, mw, codec, user, mw.RequirePermissions(shared.RequireAll, rbac.PermUsersDelete))
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, called)
}

// ============================================================================
// ROLE GUARDS
// ============================================================================

func TestRequireRolesAllowed(t *testing.T) {
	user := testUser(t, 1, "admin@example.com", "s3cretpass", true)
	user.Role = rbac.RoleAdmin

	codec := testCodec()
	repo := newMockRepository()
	repo.add(user)
	mw := NewMiddleware(codec, repo, discardLogger())

	code, called := serveGuardedWith(t, mw, codec, user, mw.RequireRoles(rbac.RoleAdmin, rbac.RoleSuperadmin))
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, called)
}

func TestRequireRolesDenied(t *testing.T) {
	user := testUser(t, 1, "alice@example.com", "s3cretpass", true)

	codec := testCodec()
	repo := newMockRepository()
	repo.add(user)
	mw := NewMiddleware(codec, repo, discardLogger())

	code, called := serveGuardedWith(t, mw, codec, user, mw.RequireRoles(rbac.RoleAdmin, rbac.RoleSuperadmin))
	assert.Equal(t, http.StatusForbidden, code)
	assert.False(t, called)
}
