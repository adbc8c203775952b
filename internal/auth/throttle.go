package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aegis-iam/aegis/internal/shared"
)

// LoginThrottle limits failed login attempts per email address using redis
// counters. It fails open: redis outages disable throttling rather than
// blocking logins.
type LoginThrottle struct {
	client *redis.Client
	limit  int64
	window time.Duration
	logger *slog.Logger
}

// NewLoginThrottle constructs a throttle allowing limit attempts per window.
func NewLoginThrottle(client *redis.Client, limit int, window time.Duration, logger *slog.Logger) *LoginThrottle {
	return &LoginThrottle{client: client, limit: int64(limit), window: window, logger: logger}
}

func (t *LoginThrottle) key(email string) string {
	return "login_attempts:" + strings.ToLower(strings.TrimSpace(email))
}

// Allow records an attempt and returns shared.ErrTooManyAttempts once the
// limit for the window is exceeded. A nil throttle allows everything.
func (t *LoginThrottle) Allow(ctx context.Context, email string) error {
	if t == nil || t.client == nil {
		return nil
	}
	key := t.key(email)
	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		if t.logger != nil {
			t.logger.Warn("login throttle unavailable", slog.Any("error", err))
		}
		return nil
	}
	if count == 1 {
		if err := t.client.Expire(ctx, key, t.window).Err(); err != nil && t.logger != nil {
			t.logger.Warn("login throttle expire", slog.Any("error", err))
		}
	}
	if count > t.limit {
		return shared.ErrTooManyAttempts
	}
	return nil
}

// Reset clears the attempt counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, email string) {
	if t == nil || t.client == nil {
		return
	}
	if err := t.client.Del(ctx, t.key(email)).Err(); err != nil && t.logger != nil {
		t.logger.Warn("login throttle reset", slog.Any("error", err))
	}
}
