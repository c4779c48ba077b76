package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/storage"
	"github.com/jkaninda/bureau/internal/tenancy"
)

// AuditRepository implements storage.AuditStore.
// Append-only: no Update or Delete methods exist on this type.
type AuditRepository struct {
	repo *TenantRepository[AuditEventModel, *AuditEventModel]
}

// NewAuditRepository creates an AuditRepository.
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{repo: NewTenantRepository[AuditEventModel](db, "audit event")}
}

// Append inserts a single audit event. This is the only write method;
// immutability is enforced at the interface level.
func (r *AuditRepository) Append(ctx context.Context, scope tenancy.Scope, e *domain.AuditEvent) error {
	model := toAuditModel(e)
	if err := r.repo.Create(ctx, scope, &model); err != nil {
		return err
	}
	*e = toAuditDomain(&model)
	return nil
}

// Query returns audit events visible in scope, newest first.
// If userID is non-empty, filters to that user. Limit defaults to 100.
func (r *AuditRepository) Query(ctx context.Context, scope tenancy.Scope, userID string, limit int) ([]domain.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var filters []Filter
	if userID != "" {
		filters = append(filters, Where("user_id = ?", userID))
	}
	models, err := r.repo.List(ctx, scope, domain.Page{Limit: limit}, "created_at DESC", filters...)
	if err != nil {
		return nil, err
	}
	events := make([]domain.AuditEvent, len(models))
	for i := range models {
		events[i] = toAuditDomain(&models[i])
	}
	return events, nil
}

// Compile-time check.
var _ storage.AuditStore = (*AuditRepository)(nil)
