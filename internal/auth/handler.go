package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aegis-iam/aegis/internal/observability"
	"github.com/aegis-iam/aegis/internal/platform/httpx"
	"github.com/aegis-iam/aegis/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	mw        *Middleware
	metrics   *observability.Metrics
	validator *validator.Validate
}

// NewHandler constructs a Handler instance. metrics may be nil.
func NewHandler(logger *slog.Logger, service *Service, mw *Middleware, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		mw:        mw,
		metrics:   metrics,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireUser)
		r.Post("/logout", h.logout)
		r.Get("/me", h.me)
		r.Post("/refresh", h.refresh)
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userProfile struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	IsActive    bool      `json:"is_active"`
	RoleID      int64     `json:"role_id"`
	RoleName    string    `json:"role_name"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func profileFromUser(user *User) userProfile {
	return userProfile{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		IsActive:    user.IsActive,
		RoleID:      user.RoleID,
		RoleName:    string(user.Role),
		Permissions: user.Permissions.Keys(),
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, &shared.ValidationError{Fields: map[string]string{"body": "malformed JSON"}})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, h.logger, validationError(err))
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrTooManyAttempts) {
			h.metrics.RecordLogin("throttled")
		} else {
			h.metrics.RecordLogin("failure")
		}
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.metrics.RecordLogin("success")

	tok, err := h.service.IssueToken(user)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}

	httpx.Envelope(w, http.StatusOK, "Login successful", map[string]any{
		"access_token": tok.AccessToken,
		"token_type":   tok.TokenType,
		"expires_in":   tok.ExpiresIn,
		"user": map[string]any{
			"id":          user.ID,
			"username":    user.Username,
			"email":       user.Email,
			"role":        string(user.Role),
			"permissions": user.Permissions.Keys(),
		},
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	// Tokens are stateless; there is nothing to invalidate server-side.
	httpx.Envelope(w, http.StatusOK, fmt.Sprintf("User %s logged out successfully", actor.Username), nil)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	user, err := h.service.Profile(r.Context(), actor.UserID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Envelope(w, http.StatusOK, "User information retrieved successfully", profileFromUser(user))
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	// Re-snapshot permissions from the database at refresh time.
	user, err := h.service.Profile(r.Context(), actor.UserID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	tok, err := h.service.IssueToken(user)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Envelope(w, http.StatusOK, "Token refreshed successfully", tok)
}

func validationError(err error) error {
	fields := make(map[string]string)
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fieldErr := range verrs {
			fields[fieldErr.Field()] = fmt.Sprintf("failed on %q", fieldErr.Tag())
		}
	} else {
		fields["body"] = err.Error()
	}
	return &shared.ValidationError{Fields: fields}
}
