package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/storage"
	"github.com/jkaninda/bureau/internal/tenancy"
)

// CurrencyRepository implements storage.CurrencyStore.
type CurrencyRepository struct {
	db   *gorm.DB
	repo *TenantRepository[CurrencyModel, *CurrencyModel]
}

// NewCurrencyRepository creates a CurrencyRepository.
func NewCurrencyRepository(db *gorm.DB) *CurrencyRepository {
	return &CurrencyRepository{db: db, repo: NewTenantRepository[CurrencyModel](db, "currency")}
}

func (r *CurrencyRepository) Create(ctx context.Context, scope tenancy.Scope, c *domain.Currency) error {
	model := toCurrencyModel(c)
	if err := r.repo.Create(ctx, scope, &model); err != nil {
		return err
	}
	*c = *toCurrencyDomain(&model)
	return nil
}

func (r *CurrencyRepository) Get(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*domain.Currency, error) {
	m, err := r.repo.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	return toCurrencyDomain(m), nil
}

func (r *CurrencyRepository) List(ctx context.Context, scope tenancy.Scope, page domain.Page) ([]domain.Currency, error) {
	models, err := r.repo.List(ctx, scope, page, "code ASC")
	if err != nil {
		return nil, err
	}
	return toDomainSlice(models, toCurrencyDomain), nil
}

// Update writes the mutable currency fields. The base flag only changes via SetBase.
func (r *CurrencyRepository) Update(ctx context.Context, scope tenancy.Scope, c *domain.Currency) error {
	return r.repo.Update(ctx, scope, c.ID, map[string]any{
		"name":          c.Name,
		"symbol":        c.Symbol,
		"exchange_rate": c.ExchangeRate,
	})
}

func (r *CurrencyRepository) Delete(ctx context.Context, scope tenancy.Scope, id uuid.UUID) error {
	return r.repo.Delete(ctx, scope, id)
}

// SetBase makes id the base currency of its company. The base currency's
// exchange rate is reset to 1. Only rows visible in scope are touched, and the
// flag is cleared within the target's own company even when scope is Unscoped.
func (r *CurrencyRepository) SetBase(ctx context.Context, scope tenancy.Scope, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := r.repo.withTx(tx)
		target, err := repo.Get(ctx, scope, id)
		if err != nil {
			return err
		}

		// Lock the company's currencies so concurrent SetBase calls serialize.
		owner := tenancy.Scoped(target.OwnerID())
		var locked []uuid.UUID
		if err := repo.DB(ctx, owner).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Order("id").
			Pluck("id", &locked).Error; err != nil {
			return translateError("locking currencies", err)
		}

		if err := repo.DB(ctx, owner).
			Where("is_base = ? AND id <> ?", true, id).
			Update("is_base", false).Error; err != nil {
			return translateError("clearing base currency", err)
		}

		if err := repo.Update(ctx, owner, id, map[string]any{
			"is_base":       true,
			"exchange_rate": 1.0,
		}); err != nil {
			return fmt.Errorf("setting base currency: %w", err)
		}
		return nil
	})
}

// Compile-time check.
var _ storage.CurrencyStore = (*CurrencyRepository)(nil)
