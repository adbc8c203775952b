package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	StatusCode int            `json:"status_code"`
	Message    string         `json:"message"`
	Data       map[string]any `json:"data"`
}

func newTestRouter(t *testing.T, repo Repository) *chi.Mux {
	t.Helper()
	codec := testCodec()
	svc := NewService(repo, codec, nil)
	mw := NewMiddleware(codec, repo, discardLogger())
	handler := NewHandler(discardLogger(), svc, mw, nil)

	r := chi.NewRouter()
	r.Route("/api/v1/auth", func(r chi.Router) {
		handler.MountRoutes(r)
	})
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path, bearer string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestLoginSuccess(t *testing.T) {
	repo := newMockRepository()
	repo.add(testUser(t, 1, "alice@example.com", "s3cretpass", true))
	router := newTestRouter(t, repo)

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "s3cretpass",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, env.StatusCode)
	assert.Equal(t, "Login successful", env.Message)
	assert.NotEmpty(t, env.Data["access_token"])
	assert.Equal(t, "bearer", env.Data["token_type"])

	user, ok := env.Data["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "user", user["role"])
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newMockRepository()
	repo.add(testUser(t, 1, "alice@example.com", "s3cretpass", true))
	router := newTestRouter(t, repo)

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", env.Message)
}

func TestLoginUnknownEmailSameResponse(t *testing.T) {
	router := newTestRouter(t, newMockRepository())

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "ghost@example.com",
		"password": "whatever",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", env.Message)
}

func TestLoginValidation(t *testing.T) {
	router := newTestRouter(t, newMockRepository())

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "not-an-email",
		"password": "",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed", env.Message)
	assert.Contains(t, env.Data, "errors")
}

func TestLoginMalformedBody(t *testing.T) {
	router := newTestRouter(t, newMockRepository())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString("{nope"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMe(t *testing.T) {
	repo := newMockRepository()
	user := testUser(t, 1, "alice@example.com", "s3cretpass", true)
	repo.add(user)
	router := newTestRouter(t, repo)
	raw := issueFor(t, testCodec(), user)

	rec, env := doJSON(t, router, http.MethodGet, "/api/v1/auth/me", raw, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User information retrieved successfully", env.Message)
	assert.Equal(t, "alice", env.Data["username"])
	assert.Equal(t, "user", env.Data["role_name"])
	assert.Equal(t, true, env.Data["is_active"])
}

func TestMeWithoutToken(t *testing.T) {
	router := newTestRouter(t, newMockRepository())

	rec, env := doJSON(t, router, http.MethodGet, "/api/v1/auth/me", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Could not validate credentials", env.Message)
}

func TestLogout(t *testing.T) {
	repo := newMockRepository()
	user := testUser(t, 1, "alice@example.com", "s3cretpass", true)
	repo.add(user)
	router := newTestRouter(t, repo)
	raw := issueFor(t, testCodec(), user)

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/auth/logout", raw, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User alice logged out successfully", env.Message)
}

func TestRefresh(t *testing.T) {
	repo := newMockRepository()
	user := testUser(t, 1, "alice@example.com", "s3cretpass", true)
	repo.add(user)
	router := newTestRouter(t, repo)
	codec := testCodec()
	raw := issueFor(t, codec, user)

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/auth/refresh", raw, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Token refreshed successfully", env.Message)
	fresh, ok := env.Data["access_token"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, fresh)

	// The refreshed token verifies and still names the same subject.
	claims, err := codec.Verify(fresh)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}
