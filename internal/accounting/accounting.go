// Package accounting manages a company's accounting setup: the chart of
// accounts, tax rates and enabled currencies.
package accounting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/storage"
	"github.com/jkaninda/bureau/internal/tenancy"
	"github.com/jkaninda/bureau/internal/validation"
)

var (
	// ErrInvalidParent is returned when a parent account is not visible in
	// the caller's scope, belongs to another company, or would form a cycle.
	ErrInvalidParent = errors.New("invalid parent account")
	// ErrHasChildren is returned when deleting an account that still has sub-accounts.
	ErrHasChildren = errors.New("account has sub-accounts")
	// ErrBaseCurrency is returned when deleting the base currency.
	ErrBaseCurrency = errors.New("cannot delete the base currency")
)

// maxDepth bounds the parent chain walk when checking for cycles.
const maxDepth = 32

// Service implements the accounting setup operations. Every method takes the
// caller's tenant scope and passes it through to storage unchanged.
type Service struct {
	accounts   storage.AccountStore
	taxRates   storage.TaxRateStore
	currencies storage.CurrencyStore
	logger     *slog.Logger
}

// NewService creates an accounting Service.
func NewService(store storage.Store, logger *slog.Logger) *Service {
	return &Service{
		accounts:   store.Accounts(),
		taxRates:   store.TaxRates(),
		currencies: store.Currencies(),
		logger:     logger,
	}
}

// --- Accounts ---

// AccountInput is the payload for creating an account. CompanyID is optional;
// when set it takes precedence over the scope's company.
type AccountInput struct {
	CompanyID uuid.UUID          `json:"company_id,omitempty"`
	Code      string             `json:"code" validate:"required,max=20"`
	Name      string             `json:"name" validate:"required,max=120"`
	Type      domain.AccountType `json:"type" validate:"required,oneof=asset liability equity income expense"`
	ParentID  *uuid.UUID         `json:"parent_id,omitempty"`
}

// AccountUpdate carries the mutable account fields. Nil fields are left unchanged.
type AccountUpdate struct {
	Name        *string    `json:"name,omitempty" validate:"omitempty,required,max=120"`
	Active      *bool      `json:"active,omitempty"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	ClearParent bool       `json:"clear_parent,omitempty"`
}

// CreateAccount validates in and creates the account.
func (s *Service) CreateAccount(ctx context.Context, scope tenancy.Scope, in AccountInput) (*domain.Account, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	if in.ParentID != nil {
		parent, err := s.visibleParent(ctx, scope, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if in.CompanyID != uuid.Nil && parent.CompanyID != in.CompanyID {
			return nil, ErrInvalidParent
		}
	}

	a := &domain.Account{
		CompanyID: in.CompanyID,
		Code:      in.Code,
		Name:      in.Name,
		Type:      in.Type,
		ParentID:  in.ParentID,
		Active:    true,
	}
	if err := s.accounts.Create(ctx, scope, a); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "account created",
		slog.String("scope", scope.String()),
		slog.String("code", a.Code),
	)
	return a, nil
}

// GetAccount returns an account visible in scope.
func (s *Service) GetAccount(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*domain.Account, error) {
	return s.accounts.Get(ctx, scope, id)
}

// ListAccounts returns accounts visible in scope.
func (s *Service) ListAccounts(ctx context.Context, scope tenancy.Scope, f storage.AccountFilter, page domain.Page) ([]domain.Account, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, validation.Invalid("type", "unknown account type")
	}
	return s.accounts.List(ctx, scope, f, page)
}

// UpdateAccount applies upd to an account. A new parent must be visible in
// scope, belong to the same company and not be a descendant of the account.
func (s *Service) UpdateAccount(ctx context.Context, scope tenancy.Scope, id uuid.UUID, upd AccountUpdate) (*domain.Account, error) {
	if err := validation.Struct(upd); err != nil {
		return nil, err
	}
	a, err := s.accounts.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		a.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Active != nil {
		a.Active = *upd.Active
	}
	switch {
	case upd.ClearParent:
		a.ParentID = nil
	case upd.ParentID != nil:
		if err := s.checkParent(ctx, scope, a, *upd.ParentID); err != nil {
			return nil, err
		}
		a.ParentID = upd.ParentID
	}

	if err := s.accounts.Update(ctx, scope, a); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAccount removes an account without sub-accounts.
func (s *Service) DeleteAccount(ctx context.Context, scope tenancy.Scope, id uuid.UUID) error {
	n, err := s.accounts.Count(ctx, scope, storage.AccountFilter{ParentID: &id})
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrHasChildren
	}
	return s.accounts.Delete(ctx, scope, id)
}

func (s *Service) visibleParent(ctx context.Context, scope tenancy.Scope, parentID uuid.UUID) (*domain.Account, error) {
	parent, err := s.accounts.Get(ctx, scope, parentID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidParent, parentID)
	}
	return parent, err
}

func (s *Service) checkParent(ctx context.Context, scope tenancy.Scope, a *domain.Account, parentID uuid.UUID) error {
	if parentID == a.ID {
		return fmt.Errorf("%w: account cannot be its own parent", ErrInvalidParent)
	}
	parent, err := s.visibleParent(ctx, scope, parentID)
	if err != nil {
		return err
	}
	if parent.CompanyID != a.CompanyID {
		return fmt.Errorf("%w: parent belongs to another company", ErrInvalidParent)
	}

	// Walk up from the new parent; reaching a means a cycle.
	cur := parent
	for depth := 0; cur.ParentID != nil; depth++ {
		if depth >= maxDepth {
			return fmt.Errorf("%w: hierarchy too deep", ErrInvalidParent)
		}
		if *cur.ParentID == a.ID {
			return fmt.Errorf("%w: would create a cycle", ErrInvalidParent)
		}
		if cur, err = s.accounts.Get(ctx, scope, *cur.ParentID); err != nil {
			return err
		}
	}
	return nil
}

// --- Tax rates ---

// TaxRateInput is the payload for creating or replacing a tax rate.
type TaxRateInput struct {
	Name      string `json:"name" validate:"required,max=100"`
	RateBps   int    `json:"rate_bps" validate:"min=0,max=100000"`
	Inclusive bool   `json:"inclusive"`
}

// CreateTaxRate validates in and creates the tax rate.
func (s *Service) CreateTaxRate(ctx context.Context, scope tenancy.Scope, in TaxRateInput) (*domain.TaxRate, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	r := &domain.TaxRate{Name: in.Name, RateBps: in.RateBps, Inclusive: in.Inclusive}
	if err := s.taxRates.Create(ctx, scope, r); err != nil {
		return nil, err
	}
	return r, nil
}

// GetTaxRate returns a tax rate visible in scope.
func (s *Service) GetTaxRate(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*domain.TaxRate, error) {
	return s.taxRates.Get(ctx, scope, id)
}

// ListTaxRates returns tax rates visible in scope.
func (s *Service) ListTaxRates(ctx context.Context, scope tenancy.Scope, page domain.Page) ([]domain.TaxRate, error) {
	return s.taxRates.List(ctx, scope, page)
}

// UpdateTaxRate replaces the mutable fields of a tax rate.
func (s *Service) UpdateTaxRate(ctx context.Context, scope tenancy.Scope, id uuid.UUID, in TaxRateInput) (*domain.TaxRate, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	r, err := s.taxRates.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	r.Name, r.RateBps, r.Inclusive = in.Name, in.RateBps, in.Inclusive
	if err := s.taxRates.Update(ctx, scope, r); err != nil {
		return nil, err
	}
	return r, nil
}

// DeleteTaxRate removes a tax rate.
func (s *Service) DeleteTaxRate(ctx context.Context, scope tenancy.Scope, id uuid.UUID) error {
	return s.taxRates.Delete(ctx, scope, id)
}

// --- Currencies ---

// CurrencyInput is the payload for creating or replacing a currency.
type CurrencyInput struct {
	Code         string  `json:"code" validate:"required,iso4217"`
	Name         string  `json:"name" validate:"required,max=60"`
	Symbol       string  `json:"symbol" validate:"max=8"`
	ExchangeRate float64 `json:"exchange_rate" validate:"gt=0"`
}

// CreateCurrency enables a currency. The first currency of a company becomes
// its base currency.
func (s *Service) CreateCurrency(ctx context.Context, scope tenancy.Scope, in CurrencyInput) (*domain.Currency, error) {
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	existing, err := s.currencies.List(ctx, scope, domain.Page{Limit: 1})
	if err != nil {
		return nil, err
	}
	c := &domain.Currency{
		Code:         in.Code,
		Name:         in.Name,
		Symbol:       in.Symbol,
		ExchangeRate: in.ExchangeRate,
	}
	if scope.IsScoped() && len(existing) == 0 {
		c.IsBase = true
		c.ExchangeRate = 1
	}
	if err := s.currencies.Create(ctx, scope, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetCurrency returns a currency visible in scope.
func (s *Service) GetCurrency(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*domain.Currency, error) {
	return s.currencies.Get(ctx, scope, id)
}

// ListCurrencies returns currencies visible in scope.
func (s *Service) ListCurrencies(ctx context.Context, scope tenancy.Scope, page domain.Page) ([]domain.Currency, error) {
	return s.currencies.List(ctx, scope, page)
}

// UpdateCurrency replaces the name, symbol and exchange rate. The code is
// fixed at creation and the base currency keeps a rate of 1.
func (s *Service) UpdateCurrency(ctx context.Context, scope tenancy.Scope, id uuid.UUID, in CurrencyInput) (*domain.Currency, error) {
	c, err := s.currencies.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	in.Code = c.Code
	in.Name = strings.TrimSpace(in.Name)
	if c.IsBase {
		in.ExchangeRate = 1
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	c.Name, c.Symbol, c.ExchangeRate = in.Name, in.Symbol, in.ExchangeRate
	if err := s.currencies.Update(ctx, scope, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCurrency disables a currency other than the base currency.
func (s *Service) DeleteCurrency(ctx context.Context, scope tenancy.Scope, id uuid.UUID) error {
	c, err := s.currencies.Get(ctx, scope, id)
	if err != nil {
		return err
	}
	if c.IsBase {
		return ErrBaseCurrency
	}
	return s.currencies.Delete(ctx, scope, id)
}

// SetBaseCurrency makes id the base currency of its company.
func (s *Service) SetBaseCurrency(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*domain.Currency, error) {
	if err := s.currencies.SetBase(ctx, scope, id); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "base currency changed",
		slog.String("scope", scope.String()),
		slog.String("currency_id", id.String()),
	)
	return s.currencies.Get(ctx, scope, id)
}
