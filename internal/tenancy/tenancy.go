// Package tenancy defines the tenant scope that every persistence and query
// operation receives explicitly.
//
// A Scope is either Scoped(companyID), restricting reads to one company and
// stamping new records with it, or Unscoped(), which skips both. There is no
// ambient "current tenant": callers pass the scope to each repository call.
package tenancy

import (
	"context"

	"github.com/google/uuid"
)

// Column is the tenant foreign-key column carried by every scoped table.
const Column = "company_id"

// Scope is the tenant visibility of a single operation. The zero value is
// Unscoped.
type Scope struct {
	companyID uuid.UUID
	scoped    bool
}

// Scoped returns a scope restricted to the given company.
// Scoped(uuid.Nil) matches no rows and stamps nothing.
func Scoped(companyID uuid.UUID) Scope {
	return Scope{companyID: companyID, scoped: true}
}

// Unscoped returns a scope that sees every tenant. Only system jobs and
// admin tooling should use it.
func Unscoped() Scope {
	return Scope{}
}

// IsScoped reports whether the scope restricts to a single company.
func (s Scope) IsScoped() bool {
	return s.scoped
}

// CompanyID returns the scoped company and true, or uuid.Nil and false for
// Unscoped.
func (s Scope) CompanyID() (uuid.UUID, bool) {
	if !s.scoped {
		return uuid.Nil, false
	}
	return s.companyID, true
}

func (s Scope) String() string {
	if !s.scoped {
		return "unscoped"
	}
	return "company:" + s.companyID.String()
}

// Owned is implemented by records that belong to a company.
type Owned interface {
	// OwnerID returns the owning company, uuid.Nil when unset.
	OwnerID() uuid.UUID
	// SetOwnerID assigns the owning company.
	SetOwnerID(companyID uuid.UUID)
}

// Stamp assigns the scope's company to a record that has none yet.
// An owner already present on the record is kept. Under Unscoped the record is
// left untouched, and a missing owner is reported later by the storage
// layer's NOT NULL constraint. Stamp reports whether it assigned an owner.
func Stamp(s Scope, rec Owned) bool {
	if rec == nil || rec.OwnerID() != uuid.Nil {
		return false
	}
	id, ok := s.CompanyID()
	if !ok || id == uuid.Nil {
		return false
	}
	rec.SetOwnerID(id)
	return true
}

// Admits reports whether a record owned by companyID is visible in the scope.
// It is the in-memory counterpart of the query filter.
func Admits(s Scope, companyID uuid.UUID) bool {
	id, ok := s.CompanyID()
	if !ok {
		return true
	}
	return id != uuid.Nil && id == companyID
}

type scopeKey struct{}

// WithScope attaches the scope resolved by request middleware to ctx.
// Repositories never read it; handlers take it out and pass it explicitly.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// FromContext returns the scope attached by WithScope. The boolean is false
// when no scope was attached, which is distinct from an attached Unscoped.
func FromContext(ctx context.Context) (Scope, bool) {
	if ctx == nil {
		return Scope{}, false
	}
	s, ok := ctx.Value(scopeKey{}).(Scope)
	return s, ok
}
