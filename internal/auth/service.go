package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/aegis-iam/aegis/internal/shared"
	"github.com/aegis-iam/aegis/internal/token"
)

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	codec    *token.Codec
	throttle *LoginThrottle
}

// NewService constructs a new Service. throttle may be nil to disable login
// throttling.
func NewService(repo Repository, codec *token.Codec, throttle *LoginThrottle) *Service {
	return &Service{repo: repo, codec: codec, throttle: throttle}
}

// Authenticate validates email/password credentials. Unknown email, wrong
// password and inactive account all return shared.ErrInvalidCredentials so
// callers cannot tell which check failed.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	if err := s.throttle.Allow(ctx, email); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	s.throttle.Reset(ctx, email)
	return user, nil
}

// IssueToken mints an access token for an authenticated user. The user's
// effective permissions are snapshotted into the claims; they go stale only
// when permissions change and refresh fresh at reissue time.
func (s *Service) IssueToken(user *User) (Token, error) {
	raw, err := s.codec.Issue(token.Identity{
		UserID:      user.ID,
		Email:       user.Email,
		Username:    user.Username,
		Role:        string(user.Role),
		Permissions: user.Permissions.Keys(),
	})
	if err != nil {
		return Token{}, err
	}
	return Token{
		AccessToken: raw,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.codec.TTL().Seconds()),
	}, nil
}

// Profile loads a user by id with a fresh permission snapshot from the
// database.
func (s *Service) Profile(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}
