package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/storage"
	"github.com/jkaninda/bureau/internal/tenancy"
)

// TaxRateRepository implements storage.TaxRateStore.
type TaxRateRepository struct {
	repo *TenantRepository[TaxRateModel, *TaxRateModel]
}

// NewTaxRateRepository creates a TaxRateRepository.
func NewTaxRateRepository(db *gorm.DB) *TaxRateRepository {
	return &TaxRateRepository{repo: NewTenantRepository[TaxRateModel](db, "tax rate")}
}

func (r *TaxRateRepository) Create(ctx context.Context, scope tenancy.Scope, t *domain.TaxRate) error {
	model := toTaxRateModel(t)
	if err := r.repo.Create(ctx, scope, &model); err != nil {
		return err
	}
	*t = *toTaxRateDomain(&model)
	return nil
}

func (r *TaxRateRepository) Get(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*domain.TaxRate, error) {
	m, err := r.repo.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	return toTaxRateDomain(m), nil
}

func (r *TaxRateRepository) List(ctx context.Context, scope tenancy.Scope, page domain.Page) ([]domain.TaxRate, error) {
	models, err := r.repo.List(ctx, scope, page, "name ASC")
	if err != nil {
		return nil, err
	}
	return toDomainSlice(models, toTaxRateDomain), nil
}

func (r *TaxRateRepository) Update(ctx context.Context, scope tenancy.Scope, t *domain.TaxRate) error {
	return r.repo.Update(ctx, scope, t.ID, map[string]any{
		"name":      t.Name,
		"rate_bps":  t.RateBps,
		"inclusive": t.Inclusive,
	})
}

func (r *TaxRateRepository) Delete(ctx context.Context, scope tenancy.Scope, id uuid.UUID) error {
	return r.repo.Delete(ctx, scope, id)
}

// Compile-time check.
var _ storage.TaxRateStore = (*TaxRateRepository)(nil)
