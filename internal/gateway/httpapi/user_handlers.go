package httpapi

import (
	"net/http"
	"strconv"

	"github.com/jkaninda/bureau/internal/security"
	"github.com/jkaninda/bureau/internal/storage"
	"github.com/jkaninda/bureau/internal/users"
	"github.com/jkaninda/okapi"
)

const defaultAuditLimit = 100

func (g *Gateway) registerUserRoutes() {
	g.group.Get("/users", g.scoped(security.ResourceUsers, security.ActionRead, g.handleUserList),
		okapi.DocSummary("List users of the company"),
		okapi.DocTags("Users"),
		okapi.DocResponse([]UserResponse{}),
	)
	g.group.Post("/users", g.scoped(security.ResourceUsers, security.ActionWrite, g.handleUserCreate),
		okapi.DocSummary("Add a user to the company"),
		okapi.DocTags("Users"),
		okapi.DocRequestBody(users.UserInput{}),
		okapi.DocResponse(http.StatusCreated, UserResponse{}),
		okapi.DocResponse(http.StatusBadRequest, ErrorBody{}),
		okapi.DocResponse(http.StatusConflict, ErrorBody{}),
	)
	g.group.Get("/users/{id}", g.scoped(security.ResourceUsers, security.ActionRead, g.handleUserGet),
		okapi.DocSummary("Get a user"),
		okapi.DocTags("Users"),
		okapi.DocPathParam("id", "string", "User ID (UUID)"),
		okapi.DocResponse(UserResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Put("/users/{id}", g.scoped(security.ResourceUsers, security.ActionWrite, g.handleUserUpdate),
		okapi.DocSummary("Update a user"),
		okapi.DocTags("Users"),
		okapi.DocPathParam("id", "string", "User ID (UUID)"),
		okapi.DocRequestBody(users.UserUpdate{}),
		okapi.DocResponse(UserResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Delete("/users/{id}", g.scoped(security.ResourceUsers, security.ActionWrite, g.handleUserDeactivate),
		okapi.DocSummary("Deactivate a user"),
		okapi.DocTags("Users"),
		okapi.DocPathParam("id", "string", "User ID (UUID)"),
		okapi.DocResponse(map[string]string{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
}

func (g *Gateway) registerAuditRoutes() {
	g.group.Get("/audit", g.scoped(security.ResourceAudit, security.ActionRead, g.handleAuditList),
		okapi.DocSummary("List recent audit events of the company"),
		okapi.DocTags("Audit"),
		okapi.DocResponse([]AuditEventResponse{}),
	)
}

func (g *Gateway) handleUserList(c *okapi.Context, req *tenantRequest) error {
	r := c.Request()
	page, err := pageFrom(r)
	if err != nil {
		return g.writeError(c, err)
	}
	f := storage.UserFilter{Role: r.URL.Query().Get("role")}
	if f.Active, err = queryBool(r, "active"); err != nil {
		return g.writeError(c, err)
	}
	list, err := g.services.Users.List(c.Context(), req.Scope, f, page)
	if err != nil {
		return g.writeError(c, err)
	}
	return c.OK(mapSlice(list, toUserResponse))
}

func (g *Gateway) handleUserCreate(c *okapi.Context, req *tenantRequest) error {
	var in users.UserInput
	if err := c.Bind(&in); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	u, err := g.services.Users.Create(c.Context(), req.Scope, in)
	if err != nil {
		return g.writeError(c, err)
	}
	g.record(c.Context(), req, "users.create", security.ResourceUsers, u.ID.String())
	return c.JSON(http.StatusCreated, toUserResponse(u))
}

func (g *Gateway) handleUserGet(c *okapi.Context, req *tenantRequest) error {
	id, err := pathID(c)
	if err != nil {
		return g.writeError(c, err)
	}
	u, err := g.services.Users.Get(c.Context(), req.Scope, id)
	if err != nil {
		return g.writeError(c, err)
	}
	return c.OK(toUserResponse(u))
}

func (g *Gateway) handleUserUpdate(c *okapi.Context, req *tenantRequest) error {
	id, err := pathID(c)
	if err != nil {
		return g.writeError(c, err)
	}
	var upd users.UserUpdate
	if err := c.Bind(&upd); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	u, err := g.services.Users.Update(c.Context(), req.Scope, id, upd)
	if err != nil {
		return g.writeError(c, err)
	}
	g.record(c.Context(), req, "users.update", security.ResourceUsers, u.ID.String())
	return c.OK(toUserResponse(u))
}

func (g *Gateway) handleUserDeactivate(c *okapi.Context, req *tenantRequest) error {
	id, err := pathID(c)
	if err != nil {
		return g.writeError(c, err)
	}
	if err := g.services.Users.Deactivate(c.Context(), req.Scope, id); err != nil {
		return g.writeError(c, err)
	}
	g.record(c.Context(), req, "users.deactivate", security.ResourceUsers, id.String())
	return c.OK(okapi.M{"status": "deactivated"})
}

func (g *Gateway) handleAuditList(c *okapi.Context, req *tenantRequest) error {
	q := c.Request().URL.Query()
	limit := defaultAuditLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return c.AbortBadRequest("limit must be a positive integer")
		}
		limit = min(n, maxListLimit)
	}
	events, err := g.services.Security.Audit().Recent(c.Context(), req.Scope, q.Get("user_id"), limit)
	if err != nil {
		return g.writeError(c, err)
	}
	return c.OK(mapSlice(events, toAuditEventResponse))
}
