// Package domain defines cross-cutting entity types used across the system.
// Types here are ORM-free; the storage packages map them to GORM models.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Company is a tenant. Every scoped entity belongs to exactly one company.
type Company struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User is a member of a company. Email is unique within the company.
type User struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	Name      string
	Email     string
	Role      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccountType classifies a ledger account.
type AccountType string

const (
	AccountAsset     AccountType = "asset"
	AccountLiability AccountType = "liability"
	AccountEquity    AccountType = "equity"
	AccountIncome    AccountType = "income"
	AccountExpense   AccountType = "expense"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountAsset, AccountLiability, AccountEquity, AccountIncome, AccountExpense:
		return true
	}
	return false
}

// Account is an entry in a company's chart of accounts.
type Account struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	Code      string
	Name      string
	Type      AccountType
	ParentID  *uuid.UUID
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaxRate is a named tax percentage expressed in basis points (1% = 100).
type TaxRate struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	Name      string
	RateBps   int
	Inclusive bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Currency is a currency enabled for a company. At most one is the base.
type Currency struct {
	ID           uuid.UUID
	CompanyID    uuid.UUID
	Code         string // ISO 4217.
	Name         string
	Symbol       string
	ExchangeRate float64 // Units of this currency per unit of the base currency.
	IsBase       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Visitor is a person registered at a company's front desk.
type Visitor struct {
	ID           uuid.UUID
	CompanyID    uuid.UUID
	Name         string
	Email        string
	Phone        string
	Organization string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Visit is a single on-site stay of a visitor. CheckedOutAt is nil while the
// visitor is still on the premises.
type Visit struct {
	ID           uuid.UUID
	CompanyID    uuid.UUID
	VisitorID    uuid.UUID
	HostUserID   *uuid.UUID
	Purpose      string
	Badge        string
	CheckedInAt  time.Time
	CheckedOutAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Open reports whether the visitor has not checked out yet.
func (v *Visit) Open() bool {
	return v.CheckedOutAt == nil
}

// AuditEvent records a state-changing action performed within a company.
type AuditEvent struct {
	ID            uuid.UUID
	CompanyID     uuid.UUID
	UserID        string
	Action        string
	Resource      string
	ResourceID    string
	Result        string // "success", "failure" or "denied"
	CorrelationID string
	CreatedAt     time.Time
}

// Page bounds a list query. Zero values mean the repository defaults.
type Page struct {
	Offset int
	Limit  int
}
