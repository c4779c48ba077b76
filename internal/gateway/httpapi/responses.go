package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/okapi"
)

const maxListLimit = 500

// CompanyResponse is the JSON form of a company.
type CompanyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func toCompanyResponse(c *domain.Company) CompanyResponse {
	return CompanyResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		Slug:      c.Slug,
		Active:    c.Active,
		CreatedAt: c.CreatedAt,
	}
}

// UserResponse is the JSON form of a user.
type UserResponse struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		CompanyID: u.CompanyID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}

// AccountResponse is the JSON form of a ledger account.
type AccountResponse struct {
	ID        string  `json:"id"`
	CompanyID string  `json:"company_id"`
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	ParentID  *string `json:"parent_id,omitempty"`
	Active    bool    `json:"active"`
}

func toAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID.String(),
		CompanyID: a.CompanyID.String(),
		Code:      a.Code,
		Name:      a.Name,
		Type:      string(a.Type),
		ParentID:  idString(a.ParentID),
		Active:    a.Active,
	}
}

// TaxRateResponse is the JSON form of a tax rate.
type TaxRateResponse struct {
	ID        string  `json:"id"`
	CompanyID string  `json:"company_id"`
	Name      string  `json:"name"`
	RateBps   int     `json:"rate_bps"`
	Percent   float64 `json:"percent"`
	Inclusive bool    `json:"inclusive"`
}

func toTaxRateResponse(r *domain.TaxRate) TaxRateResponse {
	return TaxRateResponse{
		ID:        r.ID.String(),
		CompanyID: r.CompanyID.String(),
		Name:      r.Name,
		RateBps:   r.RateBps,
		Percent:   float64(r.RateBps) / 100,
		Inclusive: r.Inclusive,
	}
}

// CurrencyResponse is the JSON form of a currency.
type CurrencyResponse struct {
	ID           string  `json:"id"`
	CompanyID    string  `json:"company_id"`
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Symbol       string  `json:"symbol,omitempty"`
	ExchangeRate float64 `json:"exchange_rate"`
	IsBase       bool    `json:"is_base"`
}

func toCurrencyResponse(c *domain.Currency) CurrencyResponse {
	return CurrencyResponse{
		ID:           c.ID.String(),
		CompanyID:    c.CompanyID.String(),
		Code:         c.Code,
		Name:         c.Name,
		Symbol:       c.Symbol,
		ExchangeRate: c.ExchangeRate,
		IsBase:       c.IsBase,
	}
}

// VisitorResponse is the JSON form of a visitor.
type VisitorResponse struct {
	ID           string    `json:"id"`
	CompanyID    string    `json:"company_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Organization string    `json:"organization,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func toVisitorResponse(v *domain.Visitor) VisitorResponse {
	return VisitorResponse{
		ID:           v.ID.String(),
		CompanyID:    v.CompanyID.String(),
		Name:         v.Name,
		Email:        v.Email,
		Phone:        v.Phone,
		Organization: v.Organization,
		CreatedAt:    v.CreatedAt,
	}
}

// VisitResponse is the JSON form of a visit.
type VisitResponse struct {
	ID           string     `json:"id"`
	CompanyID    string     `json:"company_id"`
	VisitorID    string     `json:"visitor_id"`
	HostUserID   *string    `json:"host_user_id,omitempty"`
	Purpose      string     `json:"purpose,omitempty"`
	Badge        string     `json:"badge,omitempty"`
	CheckedInAt  time.Time  `json:"checked_in_at"`
	CheckedOutAt *time.Time `json:"checked_out_at,omitempty"`
}

func toVisitResponse(v *domain.Visit) VisitResponse {
	return VisitResponse{
		ID:           v.ID.String(),
		CompanyID:    v.CompanyID.String(),
		VisitorID:    v.VisitorID.String(),
		HostUserID:   idString(v.HostUserID),
		Purpose:      v.Purpose,
		Badge:        v.Badge,
		CheckedInAt:  v.CheckedInAt,
		CheckedOutAt: v.CheckedOutAt,
	}
}

// AuditEventResponse is the JSON form of an audit event.
type AuditEventResponse struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Action        string    `json:"action"`
	Resource      string    `json:"resource"`
	ResourceID    string    `json:"resource_id,omitempty"`
	Result        string    `json:"result"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toAuditEventResponse(e *domain.AuditEvent) AuditEventResponse {
	return AuditEventResponse{
		ID:            e.ID.String(),
		UserID:        e.UserID,
		Action:        e.Action,
		Resource:      e.Resource,
		ResourceID:    e.ResourceID,
		Result:        e.Result,
		CorrelationID: e.CorrelationID,
		CreatedAt:     e.CreatedAt,
	}
}

// mapSlice converts each element of in with conv.
func mapSlice[D any, R any](in []D, conv func(*D) R) []R {
	out := make([]R, len(in))
	for i := range in {
		out[i] = conv(&in[i])
	}
	return out
}

func idString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// --- Request helpers ---

func pathID(c *okapi.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, badRequest("invalid id")
	}
	return id, nil
}

// pageFrom reads the "limit" and "offset" query parameters.
func pageFrom(r *http.Request) (domain.Page, error) {
	var p domain.Page
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, badRequest("limit must be a non-negative integer")
		}
		p.Limit = min(n, maxListLimit)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, badRequest("offset must be a non-negative integer")
		}
		p.Offset = n
	}
	return p, nil
}

// queryBool reads an optional boolean query parameter.
func queryBool(r *http.Request, name string) (*bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, badRequest(name + " must be a boolean")
	}
	return &b, nil
}

// queryID reads an optional UUID query parameter.
func queryID(r *http.Request, name string) (*uuid.UUID, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, badRequest(name + " must be a UUID")
	}
	return &id, nil
}
