// Package storage defines the unified Store interface that abstracts all persistence operations.
// Two backends are provided: SQLite (default, zero-config) and PostgreSQL (production).
//
// Every tenant-scoped repository method takes an explicit tenancy.Scope. Scoped
// reads only see rows of that company and scoped creates are stamped with it.
// Unscoped skips both and is reserved for system jobs and admin tooling.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/tenancy"
)

var (
	// ErrNotFound is returned when a record does not exist or is not visible in the scope.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned on unique key violations.
	ErrConflict = errors.New("record already exists")
	// ErrConstraint is returned on NOT NULL, foreign key and check violations.
	ErrConstraint = errors.New("constraint violation")
)

// Store is the unified persistence interface for Bureau.
// Both SQLite and PostgreSQL backends implement this interface.
type Store interface {
	// Tenants. Companies are not tenant-scoped.
	Companies() CompanyStore

	// Tenant-scoped sub-stores. They share the same underlying connection.
	Users() UserStore
	Accounts() AccountStore
	TaxRates() TaxRateStore
	Currencies() CurrencyStore
	Visitors() VisitorStore
	Visits() VisitStore
	Audit() AuditStore

	// Lifecycle.
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error

	// Driver returns the storage driver name ("sqlite" or "postgres").
	Driver() string
}

// CompanyStore persists tenants.
type CompanyStore interface {
	Create(ctx context.Context, c *domain.Company) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Company, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Company, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Company, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// UserFilter narrows a user listing.
type UserFilter struct {
	Role   string
	Active *bool
}

// UserStore persists company users.
type UserStore interface {
	Create(ctx context.Context, scope tenancy.Scope, u *domain.User) error
	Get(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, scope tenancy.Scope, email string) (*domain.User, error)
	List(ctx context.Context, scope tenancy.Scope, f UserFilter, page domain.Page) ([]domain.User, error)
	Update(ctx context.Context, scope tenancy.Scope, u *domain.User) error
}

// AccountFilter narrows an account listing. Search matches a code or name prefix.
type AccountFilter struct {
	Type     domain.AccountType
	Active   *bool
	ParentID *uuid.UUID
	Search   string
}

// AccountStore persists the chart of accounts.
type AccountStore interface {
	Create(ctx context.Context, scope tenancy.Scope, a *domain.Account) error
	Upsert(ctx context.Context, scope tenancy.Scope, accounts []domain.Account) error
	Get(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*domain.Account, error)
	List(ctx context.Context, scope tenancy.Scope, f AccountFilter, page domain.Page) ([]domain.Account, error)
	Count(ctx context.Context, scope tenancy.Scope, f AccountFilter) (int64, error)
	Update(ctx context.Context, scope tenancy.Scope, a *domain.Account) error
	Delete(ctx context.Context, scope tenancy.Scope, id uuid.UUID) error
}

// TaxRateStore persists tax rates.
type TaxRateStore interface {
	Create(ctx context.Context, scope tenancy.Scope, r *domain.TaxRate) error
	Get(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*domain.TaxRate, error)
	List(ctx context.Context, scope tenancy.Scope, page domain.Page) ([]domain.TaxRate, error)
	Update(ctx context.Context, scope tenancy.Scope, r *domain.TaxRate) error
	Delete(ctx context.Context, scope tenancy.Scope, id uuid.UUID) error
}

// CurrencyStore persists enabled currencies.
type CurrencyStore interface {
	Create(ctx context.Context, scope tenancy.Scope, c *domain.Currency) error
	Get(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*domain.Currency, error)
	List(ctx context.Context, scope tenancy.Scope, page domain.Page) ([]domain.Currency, error)
	Update(ctx context.Context, scope tenancy.Scope, c *domain.Currency) error
	Delete(ctx context.Context, scope tenancy.Scope, id uuid.UUID) error
	// SetBase marks id as the base currency and clears the flag on every
	// other currency visible in the scope, atomically.
	SetBase(ctx context.Context, scope tenancy.Scope, id uuid.UUID) error
}

// VisitorStore persists registered visitors.
type VisitorStore interface {
	Create(ctx context.Context, scope tenancy.Scope, v *domain.Visitor) error
	Get(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*domain.Visitor, error)
	List(ctx context.Context, scope tenancy.Scope, search string, page domain.Page) ([]domain.Visitor, error)
	Update(ctx context.Context, scope tenancy.Scope, v *domain.Visitor) error
	Delete(ctx context.Context, scope tenancy.Scope, id uuid.UUID) error
}

// VisitStore persists visits.
type VisitStore interface {
	Create(ctx context.Context, scope tenancy.Scope, v *domain.Visit) error
	Get(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*domain.Visit, error)
	// OpenForVisitor returns the open visit of a visitor, or ErrNotFound.
	OpenForVisitor(ctx context.Context, scope tenancy.Scope, visitorID uuid.UUID) (*domain.Visit, error)
	// ListOpen returns open visits oldest first. A non-zero checkedInBefore
	// keeps only visits checked in before it.
	ListOpen(ctx context.Context, scope tenancy.Scope, checkedInBefore time.Time, page domain.Page) ([]domain.Visit, error)
	// CheckOut sets checked_out_at on an open visit. It returns ErrNotFound
	// when the visit is not visible or already checked out.
	CheckOut(ctx context.Context, scope tenancy.Scope, id uuid.UUID, at time.Time) error
}

// AuditStore is append-only: there is no Update or Delete.
type AuditStore interface {
	Append(ctx context.Context, scope tenancy.Scope, e *domain.AuditEvent) error
	Query(ctx context.Context, scope tenancy.Scope, userID string, limit int) ([]domain.AuditEvent, error)
}

// DefaultDriver is the default storage driver.
const DefaultDriver = "sqlite"

// DriverSQLite is the SQLite driver name.
const DriverSQLite = "sqlite"

// DriverPostgres is the PostgreSQL driver name.
const DriverPostgres = "postgres"
