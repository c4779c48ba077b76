package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/jkaninda/bureau/internal/company"
	"github.com/jkaninda/okapi"
)

// Admin routes manage tenants themselves. They are authenticated with admin
// keys and run without a tenant scope.
func (g *Gateway) registerAdminRoutes() {
	g.admin.Get("/companies", g.handleCompanyList,
		okapi.DocSummary("List companies"),
		okapi.DocTags("Admin"),
		okapi.DocResponse([]CompanyResponse{}),
	)
	g.admin.Post("/companies", g.handleCompanyCreate,
		okapi.DocSummary("Create a company"),
		okapi.DocTags("Admin"),
		okapi.DocRequestBody(company.Input{}),
		okapi.DocResponse(http.StatusCreated, CompanyResponse{}),
		okapi.DocResponse(http.StatusBadRequest, ErrorBody{}),
		okapi.DocResponse(http.StatusConflict, ErrorBody{}),
	)
	g.admin.Get("/companies/{id}", g.handleCompanyGet,
		okapi.DocSummary("Get a company by ID or slug"),
		okapi.DocTags("Admin"),
		okapi.DocPathParam("id", "string", "Company ID (UUID) or slug"),
		okapi.DocResponse(CompanyResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.admin.Post("/companies/{id}/deactivate", g.handleCompanyDeactivate,
		okapi.DocSummary("Deactivate a company"),
		okapi.DocTags("Admin"),
		okapi.DocPathParam("id", "string", "Company ID (UUID)"),
		okapi.DocResponse(map[string]string{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
}

func (g *Gateway) handleCompanyList(c *okapi.Context) error {
	activeOnly, err := queryBool(c.Request(), "active_only")
	if err != nil {
		return g.writeError(c, err)
	}
	list, err := g.services.Companies.List(c.Context(), activeOnly != nil && *activeOnly)
	if err != nil {
		return g.writeError(c, err)
	}
	return c.OK(mapSlice(list, toCompanyResponse))
}

func (g *Gateway) handleCompanyCreate(c *okapi.Context) error {
	var in company.Input
	if err := c.Bind(&in); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	co, err := g.services.Companies.Create(c.Context(), in)
	if err != nil {
		return g.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toCompanyResponse(co))
}

func (g *Gateway) handleCompanyGet(c *okapi.Context) error {
	co, err := g.services.Companies.Lookup(c.Context(), c.Param("id"))
	if err != nil {
		return g.writeError(c, err)
	}
	return c.OK(toCompanyResponse(co))
}

func (g *Gateway) handleCompanyDeactivate(c *okapi.Context) error {
	id, err := pathID(c)
	if err != nil {
		return g.writeError(c, err)
	}
	if err := g.services.Companies.Deactivate(c.Context(), id); err != nil {
		return g.writeError(c, err)
	}
	g.logger.InfoContext(c.Context(), "admin deactivated company", slog.String("company_id", id.String()))
	return c.OK(okapi.M{"status": "deactivated"})
}
