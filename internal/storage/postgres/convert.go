package postgres

import (
	"github.com/google/uuid"

	"github.com/jkaninda/bureau/internal/domain"
)

func newID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

// --- Company ---

func toCompanyModel(c *domain.Company) CompanyModel {
	return CompanyModel{
		ID:        newID(c.ID),
		Name:      c.Name,
		Slug:      c.Slug,
		Active:    c.Active,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toCompanyDomain(m *CompanyModel) *domain.Company {
	return &domain.Company{
		ID:        m.ID,
		Name:      m.Name,
		Slug:      m.Slug,
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// --- User ---

func toUserModel(u *domain.User) UserModel {
	return UserModel{
		ID:        newID(u.ID),
		Owner:     Owner{CompanyID: ownerPtr(u.CompanyID)},
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toUserDomain(m *UserModel) *domain.User {
	return &domain.User{
		ID:        m.ID,
		CompanyID: m.OwnerID(),
		Name:      m.Name,
		Email:     m.Email,
		Role:      m.Role,
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// --- Account ---

func toAccountModel(a *domain.Account) AccountModel {
	return AccountModel{
		ID:        newID(a.ID),
		Owner:     Owner{CompanyID: ownerPtr(a.CompanyID)},
		Code:      a.Code,
		Name:      a.Name,
		Type:      string(a.Type),
		ParentID:  a.ParentID,
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func toAccountDomain(m *AccountModel) *domain.Account {
	return &domain.Account{
		ID:        m.ID,
		CompanyID: m.OwnerID(),
		Code:      m.Code,
		Name:      m.Name,
		Type:      domain.AccountType(m.Type),
		ParentID:  m.ParentID,
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// --- TaxRate ---

func toTaxRateModel(r *domain.TaxRate) TaxRateModel {
	return TaxRateModel{
		ID:        newID(r.ID),
		Owner:     Owner{CompanyID: ownerPtr(r.CompanyID)},
		Name:      r.Name,
		RateBps:   r.RateBps,
		Inclusive: r.Inclusive,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toTaxRateDomain(m *TaxRateModel) *domain.TaxRate {
	return &domain.TaxRate{
		ID:        m.ID,
		CompanyID: m.OwnerID(),
		Name:      m.Name,
		RateBps:   m.RateBps,
		Inclusive: m.Inclusive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// --- Currency ---

func toCurrencyModel(c *domain.Currency) CurrencyModel {
	return CurrencyModel{
		ID:           newID(c.ID),
		Owner:        Owner{CompanyID: ownerPtr(c.CompanyID)},
		Code:         c.Code,
		Name:         c.Name,
		Symbol:       c.Symbol,
		ExchangeRate: c.ExchangeRate,
		IsBase:       c.IsBase,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func toCurrencyDomain(m *CurrencyModel) *domain.Currency {
	return &domain.Currency{
		ID:           m.ID,
		CompanyID:    m.OwnerID(),
		Code:         m.Code,
		Name:         m.Name,
		Symbol:       m.Symbol,
		ExchangeRate: m.ExchangeRate,
		IsBase:       m.IsBase,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// --- Visitor ---

func toVisitorModel(v *domain.Visitor) VisitorModel {
	return VisitorModel{
		ID:           newID(v.ID),
		Owner:        Owner{CompanyID: ownerPtr(v.CompanyID)},
		Name:         v.Name,
		Email:        v.Email,
		Phone:        v.Phone,
		Organization: v.Organization,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}

func toVisitorDomain(m *VisitorModel) *domain.Visitor {
	return &domain.Visitor{
		ID:           m.ID,
		CompanyID:    m.OwnerID(),
		Name:         m.Name,
		Email:        m.Email,
		Phone:        m.Phone,
		Organization: m.Organization,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// --- Visit ---

func toVisitModel(v *domain.Visit) VisitModel {
	return VisitModel{
		ID:           newID(v.ID),
		Owner:        Owner{CompanyID: ownerPtr(v.CompanyID)},
		VisitorID:    v.VisitorID,
		HostUserID:   v.HostUserID,
		Purpose:      v.Purpose,
		Badge:        v.Badge,
		CheckedInAt:  v.CheckedInAt,
		CheckedOutAt: v.CheckedOutAt,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}

func toVisitDomain(m *VisitModel) *domain.Visit {
	return &domain.Visit{
		ID:           m.ID,
		CompanyID:    m.OwnerID(),
		VisitorID:    m.VisitorID,
		HostUserID:   m.HostUserID,
		Purpose:      m.Purpose,
		Badge:        m.Badge,
		CheckedInAt:  m.CheckedInAt,
		CheckedOutAt: m.CheckedOutAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// --- Audit ---

func toAuditModel(e *domain.AuditEvent) AuditEventModel {
	return AuditEventModel{
		ID:            newID(e.ID),
		Owner:         Owner{CompanyID: ownerPtr(e.CompanyID)},
		UserID:        e.UserID,
		Action:        e.Action,
		Resource:      e.Resource,
		ResourceID:    e.ResourceID,
		Result:        e.Result,
		CorrelationID: e.CorrelationID,
		CreatedAt:     e.CreatedAt,
	}
}

func toAuditDomain(m *AuditEventModel) domain.AuditEvent {
	return domain.AuditEvent{
		ID:            m.ID,
		CompanyID:     m.OwnerID(),
		UserID:        m.UserID,
		Action:        m.Action,
		Resource:      m.Resource,
		ResourceID:    m.ResourceID,
		Result:        m.Result,
		CorrelationID: m.CorrelationID,
		CreatedAt:     m.CreatedAt,
	}
}

// toDomainSlice converts a slice of models with conv.
func toDomainSlice[M any, D any](models []M, conv func(*M) *D) []D {
	out := make([]D, len(models))
	for i := range models {
		out[i] = *conv(&models[i])
	}
	return out
}
