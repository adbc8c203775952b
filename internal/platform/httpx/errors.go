package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aegis-iam/aegis/internal/shared"
)

// RespondError translates a domain error into the response envelope. The two
// unauthorized cases deliberately carry generic messages so a caller cannot
// tell which check failed. Unrecognised errors become a generic 500 and the
// detail stays server-side in the log.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var permErr *shared.PermissionError
	var roleErr *shared.RoleError
	var validationErr *shared.ValidationError

	switch {
	case errors.Is(err, shared.ErrInvalidCredentials):
		Envelope(w, http.StatusUnauthorized, "Invalid email or password", nil)
	case errors.Is(err, shared.ErrInvalidToken):
		w.Header().Set("WWW-Authenticate", "Bearer")
		Envelope(w, http.StatusUnauthorized, "Could not validate credentials", nil)
	case errors.Is(err, shared.ErrAccountDisabled):
		Envelope(w, http.StatusForbidden, "User account is disabled", nil)
	case errors.Is(err, shared.ErrSelfDelete):
		Envelope(w, http.StatusForbidden, "You cannot delete your own account", nil)
	case errors.As(err, &permErr):
		Envelope(w, http.StatusForbidden, permErr.Error(), nil)
	case errors.As(err, &roleErr):
		Envelope(w, http.StatusForbidden, roleErr.Error(), nil)
	case errors.Is(err, shared.ErrEmailTaken):
		Envelope(w, http.StatusBadRequest, "Email already registered", nil)
	case errors.Is(err, shared.ErrUsernameTaken):
		Envelope(w, http.StatusBadRequest, "Username already taken", nil)
	case errors.Is(err, shared.ErrInvalidRole):
		Envelope(w, http.StatusBadRequest, "Invalid role ID", nil)
	case errors.As(err, &validationErr):
		Envelope(w, http.StatusBadRequest, "Validation failed", map[string]any{"errors": validationErr.Fields})
	case errors.Is(err, shared.ErrNotFound):
		Envelope(w, http.StatusNotFound, "Resource not found", nil)
	case errors.Is(err, shared.ErrTooManyAttempts):
		Envelope(w, http.StatusTooManyRequests, "Too many login attempts, try again later", nil)
	default:
		if logger != nil {
			logger.Error("unhandled error", slog.Any("error", err))
		}
		Envelope(w, http.StatusInternalServerError, "Internal server error", nil)
	}
}
