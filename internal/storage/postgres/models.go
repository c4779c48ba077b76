package postgres

import (
	"time"

	"github.com/google/uuid"
)

// Owner is embedded by every tenant-scoped model. CompanyID is a pointer so
// that an unstamped record inserts NULL and trips the NOT NULL constraint
// instead of silently writing the zero UUID.
type Owner struct {
	CompanyID *uuid.UUID `gorm:"type:uuid;not null;index"`
}

// OwnerID implements tenancy.Owned.
func (o *Owner) OwnerID() uuid.UUID {
	if o.CompanyID == nil {
		return uuid.Nil
	}
	return *o.CompanyID
}

// SetOwnerID implements tenancy.Owned.
func (o *Owner) SetOwnerID(companyID uuid.UUID) {
	o.CompanyID = &companyID
}

func ownerPtr(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

// CompanyModel maps to the "companies" table.
type CompanyModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null"`
	Slug      string    `gorm:"not null;uniqueIndex"`
	Active    bool      `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CompanyModel) TableName() string { return "companies" }

// UserModel maps to the "users" table.
type UserModel struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Owner
	Name      string `gorm:"not null"`
	Email     string `gorm:"not null"`
	Role      string `gorm:"not null"`
	Active    bool   `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UserModel) TableName() string { return "users" }

// AccountModel maps to the "accounts" table.
type AccountModel struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Owner
	Code      string     `gorm:"not null"`
	Name      string     `gorm:"not null"`
	Type      string     `gorm:"not null;index"`
	ParentID  *uuid.UUID `gorm:"type:uuid"`
	Active    bool       `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (AccountModel) TableName() string { return "accounts" }

// TaxRateModel maps to the "tax_rates" table.
type TaxRateModel struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Owner
	Name      string `gorm:"not null"`
	RateBps   int    `gorm:"not null;check:rate_bps >= 0 AND rate_bps <= 100000"`
	Inclusive bool   `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (TaxRateModel) TableName() string { return "tax_rates" }

// CurrencyModel maps to the "currencies" table.
type CurrencyModel struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Owner
	Code         string `gorm:"size:3;not null"`
	Name         string `gorm:"not null"`
	Symbol       string
	ExchangeRate float64 `gorm:"type:numeric(18,8);not null"`
	IsBase       bool    `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (CurrencyModel) TableName() string { return "currencies" }

// VisitorModel maps to the "visitors" table.
type VisitorModel struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Owner
	Name         string `gorm:"not null"`
	Email        string
	Phone        string
	Organization string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (VisitorModel) TableName() string { return "visitors" }

// VisitModel maps to the "visits" table.
type VisitModel struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Owner
	VisitorID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	HostUserID   *uuid.UUID `gorm:"type:uuid"`
	Purpose      string
	Badge        string
	CheckedInAt  time.Time  `gorm:"not null;index"`
	CheckedOutAt *time.Time // NULL = visitor on site
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (VisitModel) TableName() string { return "visits" }

// AuditEventModel maps to the "audit_events" table.
type AuditEventModel struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Owner
	UserID        string `gorm:"not null;index"`
	Action        string `gorm:"not null"`
	Resource      string
	ResourceID    string
	Result        string `gorm:"not null"`
	CorrelationID string
	CreatedAt     time.Time `gorm:"index"`
}

func (AuditEventModel) TableName() string { return "audit_events" }

// allModels lists models in FK-dependency order for AutoMigrate.
func allModels() []any {
	return []any{
		&CompanyModel{},
		&UserModel{},
		&AccountModel{},
		&TaxRateModel{},
		&CurrencyModel{},
		&VisitorModel{},
		&VisitModel{},
		&AuditEventModel{},
	}
}

// compositeIndexes are the per-tenant unique business keys and partial
// indexes. AutoMigrate cannot express them on the shared Owner field.
var compositeIndexes = []string{
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_company_email ON users (company_id, email)",
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_company_code ON accounts (company_id, code)",
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_tax_rates_company_name ON tax_rates (company_id, name)",
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_currencies_company_code ON currencies (company_id, code)",
	// At most one open visit per visitor.
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_visits_open_visitor ON visits (visitor_id) WHERE checked_out_at IS NULL",
}
