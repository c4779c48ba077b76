package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/tenancy"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// ownedModel constrains TenantRepository to pointer-to-model types that embed Owner.
type ownedModel[M any] interface {
	*M
	tenancy.Owned
}

// TenantRepository implements the tenant rules for one scoped model:
// creates are stamped with the scope's company, and reads, updates and
// deletes are filtered by it. The company_id column is never written after
// insert.
type TenantRepository[M any, P ownedModel[M]] struct {
	db   *gorm.DB
	name string
}

// NewTenantRepository creates a TenantRepository. name is used in error messages.
func NewTenantRepository[M any, P ownedModel[M]](db *gorm.DB, name string) *TenantRepository[M, P] {
	return &TenantRepository[M, P]{db: db, name: name}
}

// DB returns the repository's connection bound to ctx and filtered by scope.
func (r *TenantRepository[M, P]) DB(ctx context.Context, scope tenancy.Scope) *gorm.DB {
	return r.db.WithContext(ctx).Model(P(new(M))).Scopes(TenantScope(scope))
}

// Create stamps m with the scope's company when it has none, then inserts it.
func (r *TenantRepository[M, P]) Create(ctx context.Context, scope tenancy.Scope, m *M) error {
	tenancy.Stamp(scope, P(m))
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return translateError("creating "+r.name, err)
	}
	return nil
}

// Upsert stamps every row and inserts them, updating updateColumns when a row
// with the same conflictColumns already exists. conflictColumns should lead
// with company_id so that a key collision never crosses tenants.
func (r *TenantRepository[M, P]) Upsert(ctx context.Context, scope tenancy.Scope, rows []M, conflictColumns, updateColumns []string) error {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		tenancy.Stamp(scope, P(&rows[i]))
	}

	cols := make([]clause.Column, len(conflictColumns))
	for i, c := range conflictColumns {
		cols[i] = clause.Column{Name: c}
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: cols, DoUpdates: clause.AssignmentColumns(updateColumns)}).
		CreateInBatches(&rows, 100).Error
	if err != nil {
		return translateError("upserting "+r.name, err)
	}
	return nil
}

// Get returns the row with the given id, or storage.ErrNotFound when it is
// absent or owned by another company.
func (r *TenantRepository[M, P]) Get(ctx context.Context, scope tenancy.Scope, id uuid.UUID, filters ...Filter) (*M, error) {
	var m M
	q := applyFilters(r.DB(ctx, scope), filters)
	if err := q.Where(clause.Eq{Column: clause.PrimaryColumn, Value: id}).First(&m).Error; err != nil {
		return nil, translateError(fmt.Sprintf("getting %s %s", r.name, id), err)
	}
	return &m, nil
}

// First returns the first row matching filters, or storage.ErrNotFound.
func (r *TenantRepository[M, P]) First(ctx context.Context, scope tenancy.Scope, filters ...Filter) (*M, error) {
	var m M
	if err := applyFilters(r.DB(ctx, scope), filters).Take(&m).Error; err != nil {
		return nil, translateError("finding "+r.name, err)
	}
	return &m, nil
}

// List returns rows matching filters, ordered by order.
func (r *TenantRepository[M, P]) List(ctx context.Context, scope tenancy.Scope, page domain.Page, order string, filters ...Filter) ([]M, error) {
	q := applyFilters(r.DB(ctx, scope), filters)
	if order != "" {
		q = q.Order(order)
	}
	limit := page.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	q = q.Limit(limit)
	if page.Offset > 0 {
		q = q.Offset(page.Offset)
	}

	var rows []M
	if err := q.Find(&rows).Error; err != nil {
		return nil, translateError("listing "+r.name, err)
	}
	return rows, nil
}

// Count returns the number of rows matching filters.
func (r *TenantRepository[M, P]) Count(ctx context.Context, scope tenancy.Scope, filters ...Filter) (int64, error) {
	var n int64
	if err := applyFilters(r.DB(ctx, scope), filters).Count(&n).Error; err != nil {
		return 0, translateError("counting "+r.name, err)
	}
	return n, nil
}

// Update writes changes to the row with the given id. company_id is always
// omitted, so a change map or struct carrying it cannot move the row to
// another company. Returns storage.ErrNotFound when no visible row matched.
func (r *TenantRepository[M, P]) Update(ctx context.Context, scope tenancy.Scope, id uuid.UUID, changes map[string]any, filters ...Filter) error {
	q := applyFilters(r.DB(ctx, scope), filters)
	result := q.Where(clause.Eq{Column: clause.PrimaryColumn, Value: id}).
		Omit(tenancy.Column).
		Updates(changes)
	if result.Error != nil {
		return translateError(fmt.Sprintf("updating %s %s", r.name, id), result.Error)
	}
	if result.RowsAffected == 0 {
		return translateError(fmt.Sprintf("updating %s %s", r.name, id), gorm.ErrRecordNotFound)
	}
	return nil
}

// Delete removes the row with the given id. Returns storage.ErrNotFound when
// no visible row matched.
func (r *TenantRepository[M, P]) Delete(ctx context.Context, scope tenancy.Scope, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Scopes(TenantScope(scope)).
		Where(clause.Eq{Column: clause.PrimaryColumn, Value: id}).
		Delete(P(new(M)))
	if result.Error != nil {
		return translateError(fmt.Sprintf("deleting %s %s", r.name, id), result.Error)
	}
	if result.RowsAffected == 0 {
		return translateError(fmt.Sprintf("deleting %s %s", r.name, id), gorm.ErrRecordNotFound)
	}
	return nil
}

// withTx returns a copy of the repository bound to tx.
func (r *TenantRepository[M, P]) withTx(tx *gorm.DB) *TenantRepository[M, P] {
	return &TenantRepository[M, P]{db: tx, name: r.name}
}
