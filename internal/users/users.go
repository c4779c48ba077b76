// Package users administers the members of a company.
package users

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/storage"
	"github.com/jkaninda/bureau/internal/tenancy"
	"github.com/jkaninda/bureau/internal/validation"
)

// ErrInactive is returned when resolving a deactivated user.
var ErrInactive = errors.New("user is deactivated")

// Service manages company users. Roles must be one of the configured role names.
type Service struct {
	users  storage.UserStore
	roles  []string
	logger *slog.Logger
}

// NewService creates a users Service accepting the given role names.
func NewService(store storage.Store, roles []string, logger *slog.Logger) *Service {
	return &Service{users: store.Users(), roles: roles, logger: logger}
}

// UserInput is the payload for creating a user.
type UserInput struct {
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required"`
}

// UserUpdate carries the mutable user fields. Nil fields are left unchanged.
type UserUpdate struct {
	Name   *string `json:"name,omitempty" validate:"omitempty,required,max=120"`
	Role   *string `json:"role,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

// Roles returns the configured role names.
func (s *Service) Roles() []string {
	return slices.Clone(s.roles)
}

func (s *Service) checkRole(role string) error {
	if !slices.Contains(s.roles, role) {
		return validation.Invalid("role", "must be one of: "+strings.Join(s.roles, ", "))
	}
	return nil
}

// Create adds an active user to the scoped company.
func (s *Service) Create(ctx context.Context, scope tenancy.Scope, in UserInput) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := s.checkRole(in.Role); err != nil {
		return nil, err
	}

	u := &domain.User{Name: in.Name, Email: in.Email, Role: in.Role, Active: true}
	if err := s.users.Create(ctx, scope, u); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user created",
		slog.String("scope", scope.String()),
		slog.String("user_id", u.ID.String()),
		slog.String("role", u.Role),
	)
	return u, nil
}

// Get returns a user visible in scope.
func (s *Service) Get(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*domain.User, error) {
	return s.users.Get(ctx, scope, id)
}

// Resolve returns the active user with the given email in scope.
func (s *Service) Resolve(ctx context.Context, scope tenancy.Scope, email string) (*domain.User, error) {
	u, err := s.users.GetByEmail(ctx, scope, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if !u.Active {
		return nil, ErrInactive
	}
	return u, nil
}

// List returns users visible in scope.
func (s *Service) List(ctx context.Context, scope tenancy.Scope, f storage.UserFilter, page domain.Page) ([]domain.User, error) {
	return s.users.List(ctx, scope, f, page)
}

// Update applies upd to a user.
func (s *Service) Update(ctx context.Context, scope tenancy.Scope, id uuid.UUID, upd UserUpdate) (*domain.User, error) {
	if err := validation.Struct(upd); err != nil {
		return nil, err
	}
	u, err := s.users.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		u.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Role != nil {
		if err := s.checkRole(*upd.Role); err != nil {
			return nil, err
		}
		u.Role = *upd.Role
	}
	if upd.Active != nil {
		u.Active = *upd.Active
	}
	if err := s.users.Update(ctx, scope, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Deactivate marks a user inactive. Users are never hard-deleted so that
// audit events keep a valid reference.
func (s *Service) Deactivate(ctx context.Context, scope tenancy.Scope, id uuid.UUID) error {
	inactive := false
	_, err := s.Update(ctx, scope, id, UserUpdate{Active: &inactive})
	return err
}
