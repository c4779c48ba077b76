package httpapi

import (
	"net/http"

	"github.com/jkaninda/bureau/internal/security"
	"github.com/jkaninda/bureau/internal/visitor"
	"github.com/jkaninda/okapi"
)

func (g *Gateway) registerVisitorRoutes() {
	g.group.Get("/visitors", g.scoped(security.ResourceVisitors, security.ActionRead, g.handleVisitorList),
		okapi.DocSummary("List visitors"),
		okapi.DocTags("Visitors"),
		okapi.DocResponse([]VisitorResponse{}),
	)
	g.group.Post("/visitors", g.scoped(security.ResourceVisitors, security.ActionWrite, g.handleVisitorCreate),
		okapi.DocSummary("Register a visitor"),
		okapi.DocTags("Visitors"),
		okapi.DocRequestBody(visitor.VisitorInput{}),
		okapi.DocResponse(http.StatusCreated, VisitorResponse{}),
		okapi.DocResponse(http.StatusBadRequest, ErrorBody{}),
	)
	g.group.Get("/visitors/{id}", g.scoped(security.ResourceVisitors, security.ActionRead, g.handleVisitorGet),
		okapi.DocSummary("Get a visitor"),
		okapi.DocTags("Visitors"),
		okapi.DocPathParam("id", "string", "Visitor ID (UUID)"),
		okapi.DocResponse(VisitorResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Put("/visitors/{id}", g.scoped(security.ResourceVisitors, security.ActionWrite, g.handleVisitorUpdate),
		okapi.DocSummary("Update a visitor"),
		okapi.DocTags("Visitors"),
		okapi.DocPathParam("id", "string", "Visitor ID (UUID)"),
		okapi.DocRequestBody(visitor.VisitorInput{}),
		okapi.DocResponse(VisitorResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Delete("/visitors/{id}", g.scoped(security.ResourceVisitors, security.ActionWrite, g.handleVisitorDelete),
		okapi.DocSummary("Delete a visitor"),
		okapi.DocTags("Visitors"),
		okapi.DocPathParam("id", "string", "Visitor ID (UUID)"),
		okapi.DocResponse(map[string]string{}),
		okapi.DocResponse(http.StatusConflict, ErrorBody{}),
	)

	g.group.Post("/visits", g.scoped(security.ResourceVisits, security.ActionWrite, g.handleCheckIn),
		okapi.DocSummary("Check a visitor in"),
		okapi.DocTags("Visits"),
		okapi.DocRequestBody(visitor.CheckInInput{}),
		okapi.DocResponse(http.StatusCreated, VisitResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
		okapi.DocResponse(http.StatusConflict, ErrorBody{}),
	)
	g.group.Post("/visits/{id}/checkout", g.scoped(security.ResourceVisits, security.ActionWrite, g.handleCheckOut),
		okapi.DocSummary("Check a visitor out"),
		okapi.DocTags("Visits"),
		okapi.DocPathParam("id", "string", "Visit ID (UUID)"),
		okapi.DocResponse(VisitResponse{}),
		okapi.DocResponse(http.StatusConflict, ErrorBody{}),
	)
	g.group.Get("/visits/active", g.scoped(security.ResourceVisits, security.ActionRead, g.handleActiveVisits),
		okapi.DocSummary("List visitors currently on site"),
		okapi.DocTags("Visits"),
		okapi.DocResponse([]VisitResponse{}),
	)
}

func (g *Gateway) handleVisitorList(c *okapi.Context, req *tenantRequest) error {
	page, err := pageFrom(c.Request())
	if err != nil {
		return g.writeError(c, err)
	}
	visitors, err := g.services.Visitors.List(c.Context(), req.Scope, c.Request().URL.Query().Get("search"), page)
	if err != nil {
		return g.writeError(c, err)
	}
	return c.OK(mapSlice(visitors, toVisitorResponse))
}

func (g *Gateway) handleVisitorCreate(c *okapi.Context, req *tenantRequest) error {
	var in visitor.VisitorInput
	if err := c.Bind(&in); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	v, err := g.services.Visitors.Register(c.Context(), req.Scope, in)
	if err != nil {
		return g.writeError(c, err)
	}
	g.record(c.Context(), req, "visitors.create", security.ResourceVisitors, v.ID.String())
	return c.JSON(http.StatusCreated, toVisitorResponse(v))
}

func (g *Gateway) handleVisitorGet(c *okapi.Context, req *tenantRequest) error {
	id, err := pathID(c)
	if err != nil {
		return g.writeError(c, err)
	}
	v, err := g.services.Visitors.Get(c.Context(), req.Scope, id)
	if err != nil {
		return g.writeError(c, err)
	}
	return c.OK(toVisitorResponse(v))
}

func (g *Gateway) handleVisitorUpdate(c *okapi.Context, req *tenantRequest) error {
	id, err := pathID(c)
	if err != nil {
		return g.writeError(c, err)
	}
	var in visitor.VisitorInput
	if err := c.Bind(&in); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	v, err := g.services.Visitors.Update(c.Context(), req.Scope, id, in)
	if err != nil {
		return g.writeError(c, err)
	}
	g.record(c.Context(), req, "visitors.update", security.ResourceVisitors, v.ID.String())
	return c.OK(toVisitorResponse(v))
}

func (g *Gateway) handleVisitorDelete(c *okapi.Context, req *tenantRequest) error {
	id, err := pathID(c)
	if err != nil {
		return g.writeError(c, err)
	}
	if err := g.services.Visitors.Delete(c.Context(), req.Scope, id); err != nil {
		return g.writeError(c, err)
	}
	g.record(c.Context(), req, "visitors.delete", security.ResourceVisitors, id.String())
	return c.OK(okapi.M{"status": "deleted"})
}

func (g *Gateway) handleCheckIn(c *okapi.Context, req *tenantRequest) error {
	var in visitor.CheckInInput
	if err := c.Bind(&in); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	visit, err := g.services.Visitors.CheckIn(c.Context(), req.Scope, in)
	if err != nil {
		return g.writeError(c, err)
	}
	g.record(c.Context(), req, "visits.check_in", security.ResourceVisits, visit.ID.String())
	return c.JSON(http.StatusCreated, toVisitResponse(visit))
}

func (g *Gateway) handleCheckOut(c *okapi.Context, req *tenantRequest) error {
	id, err := pathID(c)
	if err != nil {
		return g.writeError(c, err)
	}
	visit, err := g.services.Visitors.CheckOut(c.Context(), req.Scope, id)
	if err != nil {
		return g.writeError(c, err)
	}
	g.record(c.Context(), req, "visits.check_out", security.ResourceVisits, visit.ID.String())
	return c.OK(toVisitResponse(visit))
}

func (g *Gateway) handleActiveVisits(c *okapi.Context, req *tenantRequest) error {
	page, err := pageFrom(c.Request())
	if err != nil {
		return g.writeError(c, err)
	}
	visits, err := g.services.Visitors.ListActive(c.Context(), req.Scope, page)
	if err != nil {
		return g.writeError(c, err)
	}
	return c.OK(mapSlice(visits, toVisitResponse))
}
