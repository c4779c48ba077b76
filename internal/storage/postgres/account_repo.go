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

// AccountRepository implements storage.AccountStore.
type AccountRepository struct {
	repo *TenantRepository[AccountModel, *AccountModel]
}

// NewAccountRepository creates an AccountRepository.
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{repo: NewTenantRepository[AccountModel](db, "account")}
}

func (r *AccountRepository) Create(ctx context.Context, scope tenancy.Scope, a *domain.Account) error {
	model := toAccountModel(a)
	if err := r.repo.Create(ctx, scope, &model); err != nil {
		return err
	}
	*a = *toAccountDomain(&model)
	return nil
}

// Upsert inserts accounts keyed by (company_id, code), refreshing the name
// and type of codes that already exist. Parent links and the active flag of
// existing rows are left alone.
func (r *AccountRepository) Upsert(ctx context.Context, scope tenancy.Scope, accounts []domain.Account) error {
	models := make([]AccountModel, len(accounts))
	for i := range accounts {
		models[i] = toAccountModel(&accounts[i])
	}
	return r.repo.Upsert(ctx, scope, models,
		[]string{tenancy.Column, "code"},
		[]string{"name", "type", "updated_at"},
	)
}

func (r *AccountRepository) Get(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*domain.Account, error) {
	m, err := r.repo.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	return toAccountDomain(m), nil
}

func (r *AccountRepository) List(ctx context.Context, scope tenancy.Scope, f storage.AccountFilter, page domain.Page) ([]domain.Account, error) {
	models, err := r.repo.List(ctx, scope, page, "code ASC", accountFilters(f)...)
	if err != nil {
		return nil, err
	}
	return toDomainSlice(models, toAccountDomain), nil
}

func (r *AccountRepository) Count(ctx context.Context, scope tenancy.Scope, f storage.AccountFilter) (int64, error) {
	return r.repo.Count(ctx, scope, accountFilters(f)...)
}

// Update writes the mutable account fields. Code and company are fixed at creation.
func (r *AccountRepository) Update(ctx context.Context, scope tenancy.Scope, a *domain.Account) error {
	return r.repo.Update(ctx, scope, a.ID, map[string]any{
		"name":      a.Name,
		"parent_id": a.ParentID,
		"active":    a.Active,
	})
}

func (r *AccountRepository) Delete(ctx context.Context, scope tenancy.Scope, id uuid.UUID) error {
	return r.repo.Delete(ctx, scope, id)
}

func accountFilters(f storage.AccountFilter) []Filter {
	var filters []Filter
	if f.Type != "" {
		filters = append(filters, Where("type = ?", string(f.Type)))
	}
	if f.Active != nil {
		filters = append(filters, Where("active = ?", *f.Active))
	}
	if f.ParentID != nil {
		filters = append(filters, Where("parent_id = ?", *f.ParentID))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		prefix := escapeLike(s) + "%"
		filters = append(filters, func(db *gorm.DB) *gorm.DB {
			return db.Where("code LIKE ? ESCAPE '\\'", prefix).Or("name LIKE ? ESCAPE '\\'", prefix)
		})
	}
	return filters
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Compile-time check.
var _ storage.AccountStore = (*AccountRepository)(nil)
