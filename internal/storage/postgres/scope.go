package postgres

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jkaninda/bureau/internal/tenancy"
)

// TenantScope returns a GORM scope that filters by company_id.
// Must be applied to every read, update and delete of a tenant-scoped table.
// Unscoped adds nothing; Scoped(uuid.Nil) matches no rows.
func TenantScope(scope tenancy.Scope) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		id, ok := scope.CompanyID()
		if !ok {
			return db
		}
		if id == uuid.Nil {
			return db.Where("1 = 0")
		}
		return db.Where(clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: tenancy.Column}, Value: id})
	}
}

// Filter is a caller-supplied predicate on a tenant-scoped query.
// Each filter is grouped before being joined with the tenant predicate, so an
// Or inside a filter cannot widen the tenant restriction or another filter.
type Filter func(*gorm.DB) *gorm.DB

// Where returns a Filter with a single condition.
func Where(query any, args ...any) Filter {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	}
}

// applyFilters ANDs each filter onto q as its own parenthesized group.
func applyFilters(q *gorm.DB, filters []Filter) *gorm.DB {
	for _, f := range filters {
		if f == nil {
			continue
		}
		root := q.Session(&gorm.Session{NewDB: true})
		if group := f(root); group != root {
			q = q.Where(group)
		}
	}
	return q
}
