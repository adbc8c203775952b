// Package token issues and verifies the signed bearer tokens used for
// stateless authentication. Claims embed a point-in-time permission snapshot;
// permission changes take effect only when a token expires or is reissued.
package token

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aegis-iam/aegis/internal/shared"
)

// Identity is the caller information embedded into a token at issuance.
type Identity struct {
	UserID      int64
	Email       string
	Username    string
	Role        string
	Permissions []string
}

// Claims is the token payload: subject is the user id as a string, plus the
// identity and the permission snapshot frozen at issuance time.
type Claims struct {
	Email       string   `json:"email"`
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim back into a user id.
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// Codec signs and verifies HS256 tokens with a fixed time-to-live.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec constructs a codec from the configured secret and TTL.
func NewCodec(secret string, ttl time.Duration) *Codec {
	return &Codec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns the configured token lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token embedding the identity, expiring after the configured
// TTL.
func (c *Codec) Issue(identity Identity) (string, error) {
	now := c.now().UTC()
	claims := Claims{
		Email:       identity.Email,
		Username:    identity.Username,
		Role:        identity.Role,
		Permissions: identity.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(identity.UserID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify parses and validates a token. Any failure (bad signature, wrong
// signing method, expired, malformed, missing subject) surfaces as
// shared.ErrInvalidToken without further detail.
func (c *Codec) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(c.now))
	if err != nil || !parsed.Valid {
		return nil, shared.ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, shared.ErrInvalidToken
	}
	return claims, nil
}
