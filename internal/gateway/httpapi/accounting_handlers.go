package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jkaninda/bureau/internal/accounting"
	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/security"
	"github.com/jkaninda/bureau/internal/storage"
	"github.com/jkaninda/okapi"
)

// SeedResponse reports how many default accounts were created.
type SeedResponse struct {
	Created int `json:"created"`
}

func (g *Gateway) registerAccountingRoutes() {
	read := func(resource string, h tenantHandler) okapi.HandlerFunc {
		return g.scoped(resource, security.ActionRead, h)
	}
	write := func(resource string, h tenantHandler) okapi.HandlerFunc {
		return g.scoped(resource, security.ActionWrite, h)
	}

	// Accounts
	g.group.Get("/accounts", read(security.ResourceAccounts, g.handleAccountList),
		okapi.DocSummary("List accounts"),
		okapi.DocTags("Accounts"),
		okapi.DocResponse([]AccountResponse{}),
		okapi.DocResponse(http.StatusBadRequest, ErrorBody{}),
	)
	g.group.Post("/accounts", write(security.ResourceAccounts, g.handleAccountCreate),
		okapi.DocSummary("Create an account"),
		okapi.DocTags("Accounts"),
		okapi.DocRequestBody(accounting.AccountInput{}),
		okapi.DocResponse(http.StatusCreated, AccountResponse{}),
		okapi.DocResponse(http.StatusBadRequest, ErrorBody{}),
		okapi.DocResponse(http.StatusConflict, ErrorBody{}),
	)
	g.group.Post("/accounts/seed", write(security.ResourceAccounts, g.handleAccountSeed),
		okapi.DocSummary("Seed the default chart of accounts"),
		okapi.DocTags("Accounts"),
		okapi.DocResponse(SeedResponse{}),
	)
	g.group.Get("/accounts/{id}", read(security.ResourceAccounts, g.handleAccountGet),
		okapi.DocSummary("Get an account"),
		okapi.DocTags("Accounts"),
		okapi.DocPathParam("id", "string", "Account ID (UUID)"),
		okapi.DocResponse(AccountResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Put("/accounts/{id}", write(security.ResourceAccounts, g.handleAccountUpdate),
		okapi.DocSummary("Update an account"),
		okapi.DocTags("Accounts"),
		okapi.DocPathParam("id", "string", "Account ID (UUID)"),
		okapi.DocRequestBody(accounting.AccountUpdate{}),
		okapi.DocResponse(AccountResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Delete("/accounts/{id}", write(security.ResourceAccounts, g.handleAccountDelete),
		okapi.DocSummary("Delete an account"),
		okapi.DocTags("Accounts"),
		okapi.DocPathParam("id", "string", "Account ID (UUID)"),
		okapi.DocResponse(map[string]string{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
		okapi.DocResponse(http.StatusConflict, ErrorBody{}),
	)

	// Tax rates
	g.group.Get("/tax-rates", read(security.ResourceTaxRates, g.handleTaxRateList),
		okapi.DocSummary("List tax rates"),
		okapi.DocTags("Tax Rates"),
		okapi.DocResponse([]TaxRateResponse{}),
	)
	g.group.Post("/tax-rates", write(security.ResourceTaxRates, g.handleTaxRateCreate),
		okapi.DocSummary("Create a tax rate"),
		okapi.DocTags("Tax Rates"),
		okapi.DocRequestBody(accounting.TaxRateInput{}),
		okapi.DocResponse(http.StatusCreated, TaxRateResponse{}),
		okapi.DocResponse(http.StatusBadRequest, ErrorBody{}),
		okapi.DocResponse(http.StatusConflict, ErrorBody{}),
	)
	g.group.Get("/tax-rates/{id}", read(security.ResourceTaxRates, g.handleTaxRateGet),
		okapi.DocSummary("Get a tax rate"),
		okapi.DocTags("Tax Rates"),
		okapi.DocPathParam("id", "string", "Tax rate ID (UUID)"),
		okapi.DocResponse(TaxRateResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Put("/tax-rates/{id}", write(security.ResourceTaxRates, g.handleTaxRateUpdate),
		okapi.DocSummary("Update a tax rate"),
		okapi.DocTags("Tax Rates"),
		okapi.DocPathParam("id", "string", "Tax rate ID (UUID)"),
		okapi.DocRequestBody(accounting.TaxRateInput{}),
		okapi.DocResponse(TaxRateResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Delete("/tax-rates/{id}", write(security.ResourceTaxRates, g.handleTaxRateDelete),
		okapi.DocSummary("Delete a tax rate"),
		okapi.DocTags("Tax Rates"),
		okapi.DocPathParam("id", "string", "Tax rate ID (UUID)"),
		okapi.DocResponse(map[string]string{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)

	// Currencies
	g.group.Get("/currencies", read(security.ResourceCurrencies, g.handleCurrencyList),
		okapi.DocSummary("List currencies"),
		okapi.DocTags("Currencies"),
		okapi.DocResponse([]CurrencyResponse{}),
	)
	g.group.Post("/currencies", write(security.ResourceCurrencies, g.handleCurrencyCreate),
		okapi.DocSummary("Enable a currency"),
		okapi.DocTags("Currencies"),
		okapi.DocRequestBody(accounting.CurrencyInput{}),
		okapi.DocResponse(http.StatusCreated, CurrencyResponse{}),
		okapi.DocResponse(http.StatusBadRequest, ErrorBody{}),
		okapi.DocResponse(http.StatusConflict, ErrorBody{}),
	)
	g.group.Get("/currencies/{id}", read(security.ResourceCurrencies, g.handleCurrencyGet),
		okapi.DocSummary("Get a currency"),
		okapi.DocTags("Currencies"),
		okapi.DocPathParam("id", "string", "Currency ID (UUID)"),
		okapi.DocResponse(CurrencyResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Put("/currencies/{id}", write(security.ResourceCurrencies, g.handleCurrencyUpdate),
		okapi.DocSummary("Update a currency"),
		okapi.DocTags("Currencies"),
		okapi.DocPathParam("id", "string", "Currency ID (UUID)"),
		okapi.DocRequestBody(accounting.CurrencyInput{}),
		okapi.DocResponse(CurrencyResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Delete("/currencies/{id}", write(security.ResourceCurrencies, g.handleCurrencyDelete),
		okapi.DocSummary("Disable a currency"),
		okapi.DocTags("Currencies"),
		okapi.DocPathParam("id", "string", "Currency ID (UUID)"),
		okapi.DocResponse(map[string]string{}),
		okapi.DocResponse(http.StatusConflict, ErrorBody{}),
	)
	g.group.Post("/currencies/{id}/base", write(security.ResourceCurrencies, g.handleCurrencySetBase),
		okapi.DocSummary("Make a currency the company's base currency"),
		okapi.DocTags("Currencies"),
		okapi.DocPathParam("id", "string", "Currency ID (UUID)"),
		okapi.DocResponse(CurrencyResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
}

// --- Accounts ---

func (g *Gateway) handleAccountList(c *okapi.Context, req *tenantRequest) error {
	r := c.Request()
	page, err := pageFrom(r)
	if err != nil {
		return g.writeError(c, err)
	}
	f := storage.AccountFilter{
		Type:   domain.AccountType(r.URL.Query().Get("type")),
		Search: r.URL.Query().Get("search"),
	}
	if f.Active, err = queryBool(r, "active"); err != nil {
		return g.writeError(c, err)
	}
	if f.ParentID, err = queryID(r, "parent_id"); err != nil {
		return g.writeError(c, err)
	}
	accounts, err := g.services.Accounting.ListAccounts(c.Context(), req.Scope, f, page)
	if err != nil {
		return g.writeError(c, err)
	}
	return c.OK(mapSlice(accounts, toAccountResponse))
}

func (g *Gateway) handleAccountCreate(c *okapi.Context, req *tenantRequest) error {
	var in accounting.AccountInput
	if err := c.Bind(&in); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	// The owning company always comes from the resolved tenant.
	in.CompanyID = uuid.Nil
	a, err := g.services.Accounting.CreateAccount(c.Context(), req.Scope, in)
	if err != nil {
		return g.writeError(c, err)
	}
	g.record(c.Context(), req, "accounts.create", security.ResourceAccounts, a.ID.String())
	return c.JSON(http.StatusCreated, toAccountResponse(a))
}

func (g *Gateway) handleAccountSeed(c *okapi.Context, req *tenantRequest) error {
	n, err := g.services.Accounting.SeedDefaults(c.Context(), req.Scope)
	if err != nil {
		return g.writeError(c, err)
	}
	g.record(c.Context(), req, "accounts.seed", security.ResourceAccounts, "")
	return c.OK(SeedResponse{Created: n})
}

func (g *Gateway) handleAccountGet(c *okapi.Context, req *tenantRequest) error {
	id, err := pathID(c)
	if err != nil {
		return g.writeError(c, err)
	}
	a, err := g.services.Accounting.GetAccount(c.Context(), req.Scope, id)
	if err != nil {
		return g.writeError(c, err)
	}
	return c.OK(toAccountResponse(a))
}

func (g *Gateway) handleAccountUpdate(c *okapi.Context, req *tenantRequest) error {
	id, err := pathID(c)
	if err != nil {
		return g.writeError(c, err)
	}
	var upd accounting.AccountUpdate
	if err := c.Bind(&upd); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	a, err := g.services.Accounting.UpdateAccount(c.Context(), req.Scope, id, upd)
	if err != nil {
		return g.writeError(c, err)
	}
	g.record(c.Context(), req, "accounts.update", security.ResourceAccounts, a.ID.String())
	return c.OK(toAccountResponse(a))
}

func (g *Gateway) handleAccountDelete(c *okapi.Context, req *tenantRequest) error {
	id, err := pathID(c)
	if err != nil {
		return g.writeError(c, err)
	}
	if err := g.services.Accounting.DeleteAccount(c.Context(), req.Scope, id); err != nil {
		return g.writeError(c, err)
	}
	g.record(c.Context(), req, "accounts.delete", security.ResourceAccounts, id.String())
	return c.OK(okapi.M{"status": "deleted"})
}

// --- Tax rates ---

func (g *Gateway) handleTaxRateList(c *okapi.Context, req *tenantRequest) error {
	page, err := pageFrom(c.Request())
	if err != nil {
		return g.writeError(c, err)
	}
	rates, err := g.services.Accounting.ListTaxRates(c.Context(), req.Scope, page)
	if err != nil {
		return g.writeError(c, err)
	}
	return c.OK(mapSlice(rates, toTaxRateResponse))
}

func (g *Gateway) handleTaxRateCreate(c *okapi.Context, req *tenantRequest) error {
	var in accounting.TaxRateInput
	if err := c.Bind(&in); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	r, err := g.services.Accounting.CreateTaxRate(c.Context(), req.Scope, in)
	if err != nil {
		return g.writeError(c, err)
	}
	g.record(c.Context(), req, "tax_rates.create", security.ResourceTaxRates, r.ID.String())
	return c.JSON(http.StatusCreated, toTaxRateResponse(r))
}

func (g *Gateway) handleTaxRateGet(c *okapi.Context, req *tenantRequest) error {
	id, err := pathID(c)
	if err != nil {
		return g.writeError(c, err)
	}
	r, err := g.services.Accounting.GetTaxRate(c.Context(), req.Scope, id)
	if err != nil {
		return g.writeError(c, err)
	}
	return c.OK(toTaxRateResponse(r))
}

func (g *Gateway) handleTaxRateUpdate(c *okapi.Context, req *tenantRequest) error {
	id, err := pathID(c)
	if err != nil {
		return g.writeError(c, err)
	}
	var in accounting.TaxRateInput
	if err := c.Bind(&in); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	r, err := g.services.Accounting.UpdateTaxRate(c.Context(), req.Scope, id, in)
	if err != nil {
		return g.writeError(c, err)
	}
	g.record(c.Context(), req, "tax_rates.update", security.ResourceTaxRates, r.ID.String())
	return c.OK(toTaxRateResponse(r))
}

func (g *Gateway) handleTaxRateDelete(c *okapi.Context, req *tenantRequest) error {
	id, err := pathID(c)
	if err != nil {
		return g.writeError(c, err)
	}
	if err := g.services.Accounting.DeleteTaxRate(c.Context(), req.Scope, id); err != nil {
		return g.writeError(c, err)
	}
	g.record(c.Context(), req, "tax_rates.delete", security.ResourceTaxRates, id.String())
	return c.OK(okapi.M{"status": "deleted"})
}

// --- Currencies ---

func (g *Gateway) handleCurrencyList(c *okapi.Context, req *tenantRequest) error {
	page, err := pageFrom(c.Request())
	if err != nil {
		return g.writeError(c, err)
	}
	currencies, err := g.services.Accounting.ListCurrencies(c.Context(), req.Scope, page)
	if err != nil {
		return g.writeError(c, err)
	}
	return c.OK(mapSlice(currencies, toCurrencyResponse))
}

func (g *Gateway) handleCurrencyCreate(c *okapi.Context, req *tenantRequest) error {
	var in accounting.CurrencyInput
	if err := c.Bind(&in); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	cur, err := g.services.Accounting.CreateCurrency(c.Context(), req.Scope, in)
	if err != nil {
		return g.writeError(c, err)
	}
	g.record(c.Context(), req, "currencies.create", security.ResourceCurrencies, cur.ID.String())
	return c.JSON(http.StatusCreated, toCurrencyResponse(cur))
}

func (g *Gateway) handleCurrencyGet(c *okapi.Context, req *tenantRequest) error {
	id, err := pathID(c)
	if err != nil {
		return g.writeError(c, err)
	}
	cur, err := g.services.Accounting.GetCurrency(c.Context(), req.Scope, id)
	if err != nil {
		return g.writeError(c, err)
	}
	return c.OK(toCurrencyResponse(cur))
}

func (g *Gateway) handleCurrencyUpdate(c *okapi.Context, req *tenantRequest) error {
	id, err := pathID(c)
	if err != nil {
		return g.writeError(c, err)
	}
	var in accounting.CurrencyInput
	if err := c.Bind(&in); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	cur, err := g.services.Accounting.UpdateCurrency(c.Context(), req.Scope, id, in)
	if err != nil {
		return g.writeError(c, err)
	}
	g.record(c.Context(), req, "currencies.update", security.ResourceCurrencies, cur.ID.String())
	return c.OK(toCurrencyResponse(cur))
}

func (g *Gateway) handleCurrencyDelete(c *okapi.Context, req *tenantRequest) error {
	id, err := pathID(c)
	if err != nil {
		return g.writeError(c, err)
	}
	if err := g.services.Accounting.DeleteCurrency(c.Context(), req.Scope, id); err != nil {
		return g.writeError(c, err)
	}
	g.record(c.Context(), req, "currencies.delete", security.ResourceCurrencies, id.String())
	return c.OK(okapi.M{"status": "deleted"})
}

func (g *Gateway) handleCurrencySetBase(c *okapi.Context, req *tenantRequest) error {
	id, err := pathID(c)
	if err != nil {
		return g.writeError(c, err)
	}
	cur, err := g.services.Accounting.SetBaseCurrency(c.Context(), req.Scope, id)
	if err != nil {
		return g.writeError(c, err)
	}
	g.record(c.Context(), req, "currencies.set_base", security.ResourceCurrencies, cur.ID.String())
	return c.OK(toCurrencyResponse(cur))
}
