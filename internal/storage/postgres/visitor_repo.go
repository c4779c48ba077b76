package postgres

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/storage"
	"github.com/jkaninda/bureau/internal/tenancy"
)

// VisitorRepository implements storage.VisitorStore.
type VisitorRepository struct {
	repo *TenantRepository[VisitorModel, *VisitorModel]
}

// NewVisitorRepository creates a VisitorRepository.
func NewVisitorRepository(db *gorm.DB) *VisitorRepository {
	return &VisitorRepository{repo: NewTenantRepository[VisitorModel](db, "visitor")}
}

func (r *VisitorRepository) Create(ctx context.Context, scope tenancy.Scope, v *domain.Visitor) error {
	model := toVisitorModel(v)
	if err := r.repo.Create(ctx, scope, &model); err != nil {
		return err
	}
	*v = *toVisitorDomain(&model)
	return nil
}

func (r *VisitorRepository) Get(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*domain.Visitor, error) {
	m, err := r.repo.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	return toVisitorDomain(m), nil
}

// List returns visitors whose name, email or organization starts with search.
func (r *VisitorRepository) List(ctx context.Context, scope tenancy.Scope, search string, page domain.Page) ([]domain.Visitor, error) {
	var filters []Filter
	if s := strings.TrimSpace(search); s != "" {
		prefix := escapeLike(s) + "%"
		filters = append(filters, func(db *gorm.DB) *gorm.DB {
			return db.Where("name LIKE ? ESCAPE '\\'", prefix).
				Or("email LIKE ? ESCAPE '\\'", prefix).
				Or("organization LIKE ? ESCAPE '\\'", prefix)
		})
	}
	models, err := r.repo.List(ctx, scope, page, "name ASC", filters...)
	if err != nil {
		return nil, err
	}
	return toDomainSlice(models, toVisitorDomain), nil
}

func (r *VisitorRepository) Update(ctx context.Context, scope tenancy.Scope, v *domain.Visitor) error {
	return r.repo.Update(ctx, scope, v.ID, map[string]any{
		"name":         v.Name,
		"email":        v.Email,
		"phone":        v.Phone,
		"organization": v.Organization,
	})
}

func (r *VisitorRepository) Delete(ctx context.Context, scope tenancy.Scope, id uuid.UUID) error {
	return r.repo.Delete(ctx, scope, id)
}

// Compile-time check.
var _ storage.VisitorStore = (*VisitorRepository)(nil)
