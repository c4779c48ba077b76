// Package httpapi implements Bureau's HTTP API.
//
// Security:
//   - API key authentication on every request (constant-time comparison)
//   - Tenant resolution from the X-Company-ID header; the caller must be an
//     active user of that company
//   - Role-based authorization per resource and action, denials audited
//   - Per-user rate limiting via token bucket
//   - Request body size limits (default 1 MB)
//   - TLS expected via reverse proxy (not handled here)
package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/jkaninda/bureau/internal/accounting"
	"github.com/jkaninda/bureau/internal/company"
	"github.com/jkaninda/bureau/internal/observability"
	"github.com/jkaninda/bureau/internal/ratelimit"
	"github.com/jkaninda/bureau/internal/security"
	"github.com/jkaninda/bureau/internal/users"
	"github.com/jkaninda/bureau/internal/visitor"
	"github.com/jkaninda/okapi"
)

const defaultMaxRequestSize = 1 << 20 // 1 MB

// TenantHeader carries the company id or slug of a tenant request.
const TenantHeader = "X-Company-ID"

// Config configures the HTTP API gateway.
type Config struct {
	ListenAddr     string // e.g., ":8080"
	EnableDocs     bool
	APIKeys        map[string]string // API key → user email.
	AdminKeys      []string          // Keys allowed on /v1/admin. They carry no tenant.
	MaxRequestSize int64             // Maximum request body in bytes. 0 = 1 MB default.

	// Observability
	MetricsRegistry *prometheus.Registry            // Custom Prometheus registry for /metrics.
	MetricsPath     string                          // Path for metrics endpoint. Default: "/metrics".
	HealthChecker   *observability.HealthChecker    // Health checker for /readyz.
	Metrics         *observability.MetricsCollector // Metrics collector for HTTP middleware.
	Tracer          trace.Tracer                    // OTel tracer for HTTP middleware.
	Anomaly         *observability.AnomalyDetector  // Error-rate detector fed by 5xx responses.
}

// Services are the domain services behind the routes.
type Services struct {
	Companies  *company.Service
	Users      *users.Service
	Accounting *accounting.Service
	Visitors   *visitor.Service
	Security   *security.Manager
	Limiter    *ratelimit.Limiter // nil disables rate limiting.
}

// Gateway is the HTTP API gateway.
type Gateway struct {
	config   Config
	services Services
	logger   *slog.Logger
	server   *http.Server

	feedPath    string
	feedHandler http.Handler

	okapi *okapi.Okapi
	group *okapi.Group
	admin *okapi.Group
}

// NewGateway creates an HTTP API gateway.
func NewGateway(cfg Config, svc Services, logger *slog.Logger) *Gateway {
	if cfg.MaxRequestSize <= 0 {
		cfg.MaxRequestSize = defaultMaxRequestSize
	}
	return &Gateway{
		config:   cfg,
		services: svc,
		logger:   logger,
		okapi:    okapi.New(okapi.WithMaxMultipartMemory(defaultMaxRequestSize)),
	}
}

// WithFeed mounts the visitor live feed at path. Connections are
// authenticated and tenant-resolved before h sees them.
func (g *Gateway) WithFeed(path string, h http.Handler) *Gateway {
	g.feedPath = path
	g.feedHandler = h
	return g
}

// WithOpenAPIDocs enables the generated OpenAPI documentation.
func (g *Gateway) WithOpenAPIDocs() *Gateway {
	g.okapi.WithOpenAPIDocs(
		okapi.OpenAPI{
			Title:   "Bureau",
			Version: "v1",
		},
	)
	return g
}

// Start launches the HTTP server and blocks until it exits or ctx is canceled.
func (g *Gateway) Start(ctx context.Context) error {
	g.okapi.UseMiddleware(func(next http.Handler) http.Handler {
		return limitBody(g.config.MaxRequestSize, next)
	})
	if g.config.Anomaly != nil {
		g.okapi.UseMiddleware(func(next http.Handler) http.Handler {
			return observability.AnomalyMiddleware(g.config.Anomaly, next)
		})
	}
	// Metrics/tracing middleware (applied globally).
	if g.config.Metrics != nil || g.config.Tracer != nil {
		g.okapi.UseMiddleware(func(next http.Handler) http.Handler {
			return observability.HTTPMetricsMiddleware(g.config.Metrics, g.config.Tracer, next)
		})
	}

	g.group = g.okapi.Group("/v1", g.authenticate)
	g.registerAccountingRoutes()
	g.registerVisitorRoutes()
	g.registerUserRoutes()
	g.registerAuditRoutes()

	g.admin = g.okapi.Group("/v1/admin", g.authenticateAdmin)
	g.registerAdminRoutes()

	if g.feedHandler != nil {
		g.okapi.HandleStd("GET", g.feedPath, g.tenantHTTP(security.ResourceVisits, security.ActionRead, g.feedHandler).ServeHTTP)
	}

	// Observability endpoints (unauthenticated).
	g.okapi.Get("/healthz", g.handleLiveness)
	g.okapi.Get("/readyz", g.handleReadiness)
	if g.config.MetricsRegistry != nil {
		path := g.config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		g.okapi.HandleStd("GET", path, promhttp.HandlerFor(g.config.MetricsRegistry, promhttp.HandlerOpts{}).ServeHTTP)
	}
	if g.config.EnableDocs {
		g.WithOpenAPIDocs()
	}

	g.server = &http.Server{
		Addr:              g.config.ListenAddr,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}
	g.logger.Info("http api starting", slog.String("addr", g.config.ListenAddr))
	return g.okapi.StartServer(g.server)
}

// Stop gracefully shuts down the HTTP server.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	g.logger.Info("http api stopping")
	return g.okapi.Shutdown(g.server)
}

// --- Health ---

// HealthResponse is the JSON response for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleLiveness is the Kubernetes liveness probe
func (g *Gateway) handleLiveness(c *okapi.Context) error {
	return c.OK(&HealthResponse{Status: "ok"})
}

// handleReadiness checks all registered dependencies and returns 200 or 503.
func (g *Gateway) handleReadiness(c *okapi.Context) error {
	if g.config.HealthChecker == nil {
		return c.OK(&HealthResponse{Status: "ok"})
	}
	status := g.config.HealthChecker.CheckReady(c.Context())
	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}

// limitBody caps request bodies at max bytes.
func limitBody(max int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, max)
		}
		next.ServeHTTP(w, r)
	})
}

func newCorrelationID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
