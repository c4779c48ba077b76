package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jkaninda/bureau/internal/config"
	"github.com/jkaninda/bureau/internal/gateway"
	"github.com/jkaninda/bureau/internal/gateway/httpapi"
	"github.com/jkaninda/bureau/internal/gateway/ws"
	"github.com/jkaninda/bureau/internal/ratelimit"
	"github.com/jkaninda/bureau/internal/scheduler"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API, the visitor feed and background jobs",
	RunE:  runServe,
}

func init() {
	// Register on both root and serve so that `bureau --port :9090` works.
	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().StringVar(&servePort, "port", "", "override HTTP listen address (e.g. :8080)")
	}
}

// runServe starts Bureau in server mode.
func runServe(_ *cobra.Command, _ []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.HTTP.ListenAddr = servePort
	}

	// Signal-aware context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sc, err := initShared(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer sc.Cleanup()

	logger.Info("starting bureau",
		slog.String("version", version),
		slog.String("storage", sc.Store.Driver()),
	)

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		BurstSize:         cfg.RateLimit.BurstSize,
	})

	if cfg.Scheduler != nil && cfg.Scheduler.Enabled {
		cancelScheduler, err := startScheduler(ctx, cfg, sc, limiter)
		if err != nil {
			return err
		}
		defer cancelScheduler()
	}

	feedServer := ws.NewServer(sc.Feed, ws.Options{
		Heartbeat: cfg.HTTP.FeedHeartbeat(),
		Buffer:    cfg.Visitors.Buffer(),
	}, sc.Obs.MetricsOrNil(), logger)

	api := httpapi.NewGateway(httpConfig(cfg, sc), httpapi.Services{
		Companies:  sc.Companies,
		Users:      sc.Users,
		Accounting: sc.Accounting,
		Visitors:   sc.Visitors,
		Security:   sc.Security,
		Limiter:    limiter,
	}, logger).WithFeed(cfg.HTTP.FeedRoute(), feedServer.Handler())

	gateways := []gateway.Gateway{api}

	errs := make(chan error, len(gateways))
	for _, gw := range gateways {
		go func(g gateway.Gateway) {
			errs <- g.Start(ctx)
		}(gw)
	}

	// Wait for signal or first gateway error.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errs:
		if err != nil {
			logger.Error("gateway exited with error", slog.String("error", err.Error()))
		}
	}

	// Graceful shutdown with deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := len(gateways) - 1; i >= 0; i-- {
		if err := gateways[i].Stop(shutdownCtx); err != nil {
			logger.Error("stopping gateway", slog.String("error", err.Error()))
		}
	}
	return nil
}

// httpConfig builds the HTTP gateway config, wiring in whatever
// observability is enabled.
func httpConfig(cfg *config.Config, sc *SharedComponents) httpapi.Config {
	keys := make(map[string]string, len(cfg.HTTP.APIKeys))
	for _, k := range cfg.HTTP.APIKeys {
		keys[k.Key] = k.Email
	}

	hc := httpapi.Config{
		ListenAddr:     cfg.HTTP.Addr(),
		EnableDocs:     cfg.HTTP.EnableDocs,
		APIKeys:        keys,
		AdminKeys:      cfg.HTTP.AdminKeys,
		MaxRequestSize: cfg.HTTP.RequestLimit(),
		Metrics:        sc.Obs.MetricsOrNil(),
		Anomaly:        sc.Obs.AnomalyOrNil(),
	}

	if m := sc.Obs.MetricsOrNil(); m != nil {
		hc.MetricsRegistry = m.Registry
		if mc := cfg.Observability.Metrics; mc != nil {
			hc.MetricsPath = mc.Path
		}
	}
	if ts := sc.Obs.TracerOrNil(); ts != nil {
		hc.Tracer = ts.Tracer()
	}
	if sc.Obs != nil {
		hc.HealthChecker = sc.Obs.Health
		if h := cfg.Observability.Health; h != nil && h.IncludeDB {
			sc.Obs.Health.AddCheck("database", sc.Store.Ping)
		}
	}
	return hc
}

// startScheduler registers the background jobs and starts them.
func startScheduler(ctx context.Context, cfg *config.Config, sc *SharedComponents, limiter *ratelimit.Limiter) (func(), error) {
	var reg *prometheus.Registry
	if m := sc.Obs.MetricsOrNil(); m != nil {
		reg = m.Registry
	}

	sched := scheduler.New(scheduler.Options{
		Timeout:       cfg.Scheduler.JobTimeout(),
		MaxConcurrent: cfg.Scheduler.MaxConcurrent(),
	}, scheduler.NewMetrics(reg), sc.Logger)

	jobs := []scheduler.Job{
		scheduler.CloseStaleVisits(sc.Visitors, cfg.Scheduler.CloseStaleSchedule(), cfg.Visitors.StaleAfter(), sc.Logger),
		scheduler.PruneRateLimiter(limiter, cfg.Scheduler.PruneSchedule(), cfg.Scheduler.LimiterIdle(), sc.Logger),
	}
	for _, job := range jobs {
		if err := sched.Add(job); err != nil {
			return nil, fmt.Errorf("registering job %s: %w", job.Name, err)
		}
	}

	sc.Logger.Info("scheduler started",
		slog.Int("jobs", len(jobs)),
		slog.Int("max_concurrent", cfg.Scheduler.MaxConcurrent()),
	)
	return sched.Start(ctx), nil
}
