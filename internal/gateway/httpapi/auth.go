package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jkaninda/bureau/internal/company"
	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/observability"
	"github.com/jkaninda/bureau/internal/security"
	"github.com/jkaninda/bureau/internal/storage"
	"github.com/jkaninda/bureau/internal/tenancy"
	"github.com/jkaninda/bureau/internal/users"
	"github.com/jkaninda/okapi"
)

// tenantRequest is the resolved caller of a tenant route.
type tenantRequest struct {
	Scope         tenancy.Scope
	Company       *domain.Company
	User          *domain.User
	CorrelationID string
}

// tenantHandler handles a request whose tenant and user are already resolved
// and authorized.
type tenantHandler func(c *okapi.Context, req *tenantRequest) error

// --- Authentication ---

// authenticate validates the API key and stores the mapped user email.
func (g *Gateway) authenticate(next okapi.HandlerFunc) okapi.HandlerFunc {
	return func(c *okapi.Context) error {
		apiKey, ok := bearerToken(c.Header("Authorization"))
		if !ok {
			return c.AbortUnauthorized("missing or invalid Authorization header")
		}
		email := lookupKey(g.config.APIKeys, apiKey)
		if email == "" {
			return c.AbortUnauthorized("invalid API key")
		}
		c.Set("email", email)
		return next(c)
	}
}

// authenticateAdmin admits only admin keys.
func (g *Gateway) authenticateAdmin(next okapi.HandlerFunc) okapi.HandlerFunc {
	return func(c *okapi.Context) error {
		apiKey, ok := bearerToken(c.Header("Authorization"))
		if !ok {
			return c.AbortUnauthorized("missing or invalid Authorization header")
		}
		if !isAdminKey(g.config.AdminKeys, apiKey) {
			return c.AbortUnauthorized("invalid admin key")
		}
		return next(c)
	}
}

func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

// lookupKey returns the email mapped to apiKey, comparing every key in
// constant time.
func lookupKey(keys map[string]string, apiKey string) string {
	email := ""
	for key, e := range keys {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
			email = e
		}
	}
	return email
}

func isAdminKey(keys []string, apiKey string) bool {
	found := false
	for _, key := range keys {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
			found = true
		}
	}
	return found
}

// --- Tenant resolution ---

// resolve turns an authenticated email and a company reference into a
// scoped request, then applies rate limiting and authorization for
// resource and action.
func (g *Gateway) resolve(ctx context.Context, email, companyRef, resource, action string) (*tenantRequest, error) {
	req, result, err := g.resolveTenant(ctx, email, companyRef, resource, action)
	if req != nil {
		observability.AnnotateTenant(ctx, req.Scope)
	}
	if m := g.config.Metrics; m != nil {
		m.TenantRequestsTotal.WithLabelValues(result).Inc()
		switch result {
		case "missing":
			m.TenantScopeMissingTotal.Inc()
		case "ok", "denied":
			m.SecurityChecksTotal.WithLabelValues("rbac", result).Inc()
		case "rate_limited":
			m.SecurityChecksTotal.WithLabelValues("rate_limit", "denied").Inc()
		}
	}
	return req, err
}

func (g *Gateway) resolveTenant(ctx context.Context, email, companyRef, resource, action string) (*tenantRequest, string, error) {
	companyRef = strings.TrimSpace(companyRef)
	if companyRef == "" {
		return nil, "missing", &apiError{status: http.StatusBadRequest, msg: TenantHeader + " header is required"}
	}

	co, err := g.services.Companies.Resolve(ctx, companyRef)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, "unknown_company", &apiError{status: http.StatusNotFound, msg: "company not found"}
	case errors.Is(err, company.ErrInactive):
		return nil, "inactive_company", &apiError{status: http.StatusForbidden, msg: "company is deactivated"}
	case err != nil:
		return nil, "error", err
	}

	scope := tenancy.Scoped(co.ID)
	user, err := g.services.Users.Resolve(ctx, scope, email)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, "not_member", &apiError{status: http.StatusForbidden, msg: "not a member of this company"}
	case errors.Is(err, users.ErrInactive):
		return nil, "inactive_user", &apiError{status: http.StatusForbidden, msg: "user is deactivated"}
	case err != nil:
		return nil, "error", err
	}

	if g.services.Limiter != nil {
		if err := g.services.Limiter.Allow(co.ID.String() + "/" + user.ID.String()); err != nil {
			return nil, "rate_limited", err
		}
	}

	req := &tenantRequest{Scope: scope, Company: co, User: user, CorrelationID: newCorrelationID()}
	if err := g.services.Security.Check(ctx, user, resource, action, req.CorrelationID); err != nil {
		return nil, "denied", err
	}
	return req, "ok", nil
}

// scoped wraps h with tenant resolution and authorization.
func (g *Gateway) scoped(resource, action string, h tenantHandler) okapi.HandlerFunc {
	return func(c *okapi.Context) error {
		email := c.GetString("email")
		if email == "" {
			return c.AbortUnauthorized("Unauthorized")
		}
		req, err := g.resolve(c.Context(), email, c.Header(TenantHeader), resource, action)
		if err != nil {
			return g.writeError(c, err)
		}
		return h(c, req)
	}
}

// tenantHTTP is scoped for plain net/http handlers such as the WebSocket
// feed. Browsers cannot set headers on a WebSocket handshake, so the key and
// company may also be passed as the "token" and "company" query parameters.
// The resolved scope is handed to next through the request context.
func (g *Gateway) tenantHTTP(resource, action string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			apiKey = r.URL.Query().Get("token")
		}
		email := ""
		if apiKey != "" {
			email = lookupKey(g.config.APIKeys, apiKey)
		}
		if email == "" {
			writeHTTPError(w, &apiError{status: http.StatusUnauthorized, msg: "invalid API key"})
			return
		}

		ref := r.Header.Get(TenantHeader)
		if ref == "" {
			ref = r.URL.Query().Get("company")
		}
		req, err := g.resolve(r.Context(), email, ref, resource, action)
		if err != nil {
			status, _ := errorResponse(err)
			if status >= http.StatusInternalServerError {
				g.logger.ErrorContext(r.Context(), "feed tenant resolution failed", slog.String("error", err.Error()))
			}
			writeHTTPError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(tenancy.WithScope(r.Context(), req.Scope)))
	})
}

// record audits a successful mutation.
func (g *Gateway) record(ctx context.Context, req *tenantRequest, action, resource, resourceID string) {
	g.services.Security.Record(ctx, req.User, action, resource, resourceID, req.CorrelationID, security.ResultSuccess)
}
