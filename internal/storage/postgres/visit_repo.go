package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/storage"
	"github.com/jkaninda/bureau/internal/tenancy"
)

// VisitRepository implements storage.VisitStore.
type VisitRepository struct {
	repo *TenantRepository[VisitModel, *VisitModel]
}

// NewVisitRepository creates a VisitRepository.
func NewVisitRepository(db *gorm.DB) *VisitRepository {
	return &VisitRepository{repo: NewTenantRepository[VisitModel](db, "visit")}
}

func (r *VisitRepository) Create(ctx context.Context, scope tenancy.Scope, v *domain.Visit) error {
	model := toVisitModel(v)
	if err := r.repo.Create(ctx, scope, &model); err != nil {
		return err
	}
	*v = *toVisitDomain(&model)
	return nil
}

func (r *VisitRepository) Get(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*domain.Visit, error) {
	m, err := r.repo.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	return toVisitDomain(m), nil
}

func (r *VisitRepository) OpenForVisitor(ctx context.Context, scope tenancy.Scope, visitorID uuid.UUID) (*domain.Visit, error) {
	m, err := r.repo.First(ctx, scope,
		Where("visitor_id = ?", visitorID),
		Where("checked_out_at IS NULL"),
	)
	if err != nil {
		return nil, err
	}
	return toVisitDomain(m), nil
}

// ListOpen returns visits without a check-out, oldest first. A non-zero
// checkedInBefore restricts the result to visits checked in before it.
func (r *VisitRepository) ListOpen(ctx context.Context, scope tenancy.Scope, checkedInBefore time.Time, page domain.Page) ([]domain.Visit, error) {
	filters := []Filter{Where("checked_out_at IS NULL")}
	if !checkedInBefore.IsZero() {
		filters = append(filters, Where("checked_in_at < ?", checkedInBefore))
	}
	models, err := r.repo.List(ctx, scope, page, "checked_in_at ASC, id ASC", filters...)
	if err != nil {
		return nil, err
	}
	return toDomainSlice(models, toVisitDomain), nil
}

func (r *VisitRepository) CheckOut(ctx context.Context, scope tenancy.Scope, id uuid.UUID, at time.Time) error {
	return r.repo.Update(ctx, scope, id,
		map[string]any{"checked_out_at": at},
		Where("checked_out_at IS NULL"),
	)
}

// Compile-time check.
var _ storage.VisitStore = (*VisitRepository)(nil)
