package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/storage"
	"github.com/jkaninda/bureau/internal/tenancy"
)

// UserRepository implements storage.UserStore.
type UserRepository struct {
	repo *TenantRepository[UserModel, *UserModel]
}

// NewUserRepository creates a UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{repo: NewTenantRepository[UserModel](db, "user")}
}

func (r *UserRepository) Create(ctx context.Context, scope tenancy.Scope, u *domain.User) error {
	model := toUserModel(u)
	if err := r.repo.Create(ctx, scope, &model); err != nil {
		return err
	}
	*u = *toUserDomain(&model)
	return nil
}

func (r *UserRepository) Get(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*domain.User, error) {
	m, err := r.repo.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	return toUserDomain(m), nil
}

// GetByEmail looks a user up by email within the scope.
func (r *UserRepository) GetByEmail(ctx context.Context, scope tenancy.Scope, email string) (*domain.User, error) {
	m, err := r.repo.First(ctx, scope, Where("email = ?", email))
	if err != nil {
		return nil, err
	}
	return toUserDomain(m), nil
}

func (r *UserRepository) List(ctx context.Context, scope tenancy.Scope, f storage.UserFilter, page domain.Page) ([]domain.User, error) {
	var filters []Filter
	if f.Role != "" {
		filters = append(filters, Where("role = ?", f.Role))
	}
	if f.Active != nil {
		filters = append(filters, Where("active = ?", *f.Active))
	}
	models, err := r.repo.List(ctx, scope, page, "email ASC", filters...)
	if err != nil {
		return nil, err
	}
	return toDomainSlice(models, toUserDomain), nil
}

// Update writes the mutable user fields. The owning company is never changed.
func (r *UserRepository) Update(ctx context.Context, scope tenancy.Scope, u *domain.User) error {
	return r.repo.Update(ctx, scope, u.ID, map[string]any{
		"name":   u.Name,
		"email":  u.Email,
		"role":   u.Role,
		"active": u.Active,
	})
}

// Compile-time check.
var _ storage.UserStore = (*UserRepository)(nil)
