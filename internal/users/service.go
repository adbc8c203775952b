package users

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/aegis-iam/aegis/internal/rbac"
	"github.com/aegis-iam/aegis/internal/shared"
)

// RolesPort exposes the RBAC catalog, satisfied by *rbac.Repository.
type RolesPort interface {
	ListRoles(ctx context.Context) ([]rbac.Role, error)
	ListModules(ctx context.Context) ([]rbac.Module, error)
}

// Service handles user management business logic.
type Service struct {
	repo       RepositoryPort
	roles      RolesPort
	bcryptCost int
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, roles RolesPort, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, roles: roles, bcryptCost: bcryptCost}
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a page of users and pagination metadata.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]User, shared.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return users, shared.NewPagination(filter.Page, filter.PerPage, len(users), total), nil
}

// Create provisions a new user account. Duplicate email/username and
// unknown role ids fail with the matching validation error; the database
// constraints back up these pre-checks against concurrent inserts.
func (s *Service) Create(ctx context.Context, input CreateInput) (*User, error) {
	if err := s.checkEmailFree(ctx, input.Email); err != nil {
		return nil, err
	}
	if err := s.checkUsernameFree(ctx, input.Username); err != nil {
		return nil, err
	}
	if err := s.checkRole(ctx, input.RoleID); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	return s.repo.Create(ctx, &User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		IsActive:     input.IsActive,
		RoleID:       input.RoleID,
	})
}

// Update applies a partial update to an existing user.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Email != nil && *input.Email != user.Email {
		if err := s.checkEmailFree(ctx, *input.Email); err != nil {
			return nil, err
		}
		user.Email = *input.Email
	}
	if input.Username != nil && *input.Username != user.Username {
		if err := s.checkUsernameFree(ctx, *input.Username); err != nil {
			return nil, err
		}
		user.Username = *input.Username
	}
	if input.RoleID != nil && *input.RoleID != user.RoleID {
		if err := s.checkRole(ctx, *input.RoleID); err != nil {
			return nil, err
		}
		user.RoleID = *input.RoleID
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	return s.repo.Update(ctx, user)
}

// Delete soft-deletes a user. Deleting one's own account is rejected
// regardless of permission level.
func (s *Service) Delete(ctx context.Context, actorID, targetID int64) error {
	if actorID == targetID {
		return shared.ErrSelfDelete
	}
	return s.repo.Deactivate(ctx, targetID)
}

// Roles returns the role catalog.
func (s *Service) Roles(ctx context.Context) ([]rbac.Role, error) {
	return s.roles.ListRoles(ctx)
}

// Modules returns the module catalog with nested permissions.
func (s *Service) Modules(ctx context.Context) ([]rbac.Module, error) {
	return s.roles.ListModules(ctx)
}

func (s *Service) checkEmailFree(ctx context.Context, email string) error {
	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return shared.ErrEmailTaken
	}
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	return err
}

func (s *Service) checkUsernameFree(ctx context.Context, username string) error {
	_, err := s.repo.GetByUsername(ctx, username)
	if err == nil {
		return shared.ErrUsernameTaken
	}
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	return err
}

func (s *Service) checkRole(ctx context.Context, roleID int64) error {
	exists, err := s.repo.RoleExists(ctx, roleID)
	if err != nil {
		return err
	}
	if !exists {
		return shared.ErrInvalidRole
	}
	return nil
}
