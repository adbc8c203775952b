package users

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aegis-iam/aegis/internal/auth"
	"github.com/aegis-iam/aegis/internal/platform/httpx"
	"github.com/aegis-iam/aegis/internal/rbac"
	"github.com/aegis-iam/aegis/internal/shared"
)

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	mw        *auth.Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw *auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw, validator: validator.New()}
}

// MountRoutes registers user routes. Every route requires an authenticated
// active account, then a permission or role guard on top.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireUser)
		r.With(h.mw.RequirePermissions(shared.RequireAll, rbac.PermUsersRead)).Get("/", h.list)
		r.With(h.mw.RequirePermissions(shared.RequireAll, rbac.PermUsersWrite)).Post("/", h.create)
		r.With(h.mw.RequireRoles(rbac.RoleAdmin, rbac.RoleSuperadmin)).Get("/roles/all", h.listRoles)
		r.With(h.mw.RequirePermissions(shared.RequireAll, rbac.PermAdminManageRoles)).Get("/permissions/all", h.listPermissions)
		r.Route("/{id}", func(r chi.Router) {
			r.With(h.mw.RequirePermissions(shared.RequireAll, rbac.PermUsersRead)).Get("/", h.get)
			r.With(h.mw.RequirePermissions(shared.RequireAll, rbac.PermUsersWrite)).Put("/", h.update)
			r.With(h.mw.RequirePermissions(shared.RequireAll, rbac.PermUsersDelete)).Delete("/", h.remove)
		})
	})
}

type createRequest struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	RoleID   int64  `json:"role_id" validate:"required"`
	IsActive *bool  `json:"is_active"`
}

type updateRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=100"`
	Email    *string `json:"email" validate:"omitempty,email"`
	IsActive *bool   `json:"is_active"`
	RoleID   *int64  `json:"role_id"`
}

type userResponse struct {
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

type roleResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type moduleResponse struct {
	ID          int64                `json:"id"`
	Name        string               `json:"name"`
	Permissions []permissionResponse `json:"permissions"`
}

type permissionResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Key         string `json:"key"`
	Description string `json:"description"`
}

func toResponse(user *User) userResponse {
	perms := user.Permissions
	if perms == nil {
		perms = []string{}
	}
	return userResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		IsActive:    user.IsActive,
		RoleID:      user.RoleID,
		RoleName:    string(user.RoleName),
		Permissions: perms,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Search:  r.URL.Query().Get("search"),
		Page:    queryInt(r, "page", 1),
		PerPage: queryInt(r, "size", 100),
	}
	if raw := r.URL.Query().Get("role_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.RoleID = &id
		}
	}
	if raw := r.URL.Query().Get("is_active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.IsActive = &active
		}
	}

	list, page, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	responses := make([]userResponse, len(list))
	for i := range list {
		responses[i] = toResponse(&list[i])
	}
	httpx.Envelope(w, http.StatusOK, "Users retrieved successfully", map[string]any{
		"users": responses,
		"total": page.Total,
		"page":  page.Page,
		"size":  page.Size,
		"pages": page.Pages,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Envelope(w, http.StatusOK, "User retrieved successfully", toResponse(user))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, &shared.ValidationError{Fields: map[string]string{"body": "malformed JSON"}})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, h.logger, validationError(err))
		return
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	user, err := h.service.Create(r.Context(), CreateInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		RoleID:   req.RoleID,
		IsActive: isActive,
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Envelope(w, http.StatusCreated, "User created successfully", toResponse(user))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, &shared.ValidationError{Fields: map[string]string{"body": "malformed JSON"}})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, h.logger, validationError(err))
		return
	}
	user, err := h.service.Update(r.Context(), id, UpdateInput{
		Username: req.Username,
		Email:    req.Email,
		IsActive: req.IsActive,
		RoleID:   req.RoleID,
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Envelope(w, http.StatusOK, "User updated successfully", toResponse(user))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor.UserID, id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Envelope(w, http.StatusOK, "User deleted successfully", nil)
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.Roles(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	responses := make([]roleResponse, len(roles))
	for i, role := range roles {
		responses[i] = roleResponse{ID: role.ID, Name: string(role.Name), Description: role.Description}
	}
	httpx.Envelope(w, http.StatusOK, "Roles retrieved successfully", map[string]any{"roles": responses})
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	modules, err := h.service.Modules(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	responses := make([]moduleResponse, len(modules))
	for i, mod := range modules {
		perms := make([]permissionResponse, len(mod.Permissions))
		for j, perm := range mod.Permissions {
			perms[j] = permissionResponse{
				ID:          perm.ID,
				Name:        perm.Name,
				Key:         perm.Key(),
				Description: perm.Description,
			}
		}
		responses[i] = moduleResponse{ID: mod.ID, Name: mod.Name, Permissions: perms}
	}
	httpx.Envelope(w, http.StatusOK, "Permissions retrieved successfully", map[string]any{"modules": responses})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, &shared.ValidationError{Fields: map[string]string{"id": "must be an integer"}}
	}
	return id, nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
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
