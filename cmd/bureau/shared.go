package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	goutils "github.com/jkaninda/go-utils"
	"gorm.io/gorm"

	"github.com/jkaninda/bureau/internal/accounting"
	"github.com/jkaninda/bureau/internal/company"
	"github.com/jkaninda/bureau/internal/config"
	"github.com/jkaninda/bureau/internal/observability"
	"github.com/jkaninda/bureau/internal/security"
	"github.com/jkaninda/bureau/internal/storage"
	pgstore "github.com/jkaninda/bureau/internal/storage/postgres"
	sqlitestore "github.com/jkaninda/bureau/internal/storage/sqlite"
	"github.com/jkaninda/bureau/internal/users"
	"github.com/jkaninda/bureau/internal/visitor"
)

// SharedComponents holds the subsystems every command needs. Built once by
// initShared, torn down by Cleanup.
type SharedComponents struct {
	Config *config.Config
	Logger *slog.Logger
	Store  storage.Store
	Obs    *observability.Observability

	Security   *security.Manager
	Companies  *company.Service
	Users      *users.Service
	Accounting *accounting.Service
	Visitors   *visitor.Service
	Feed       *visitor.Feed

	cleanups []func()
}

// Cleanup runs all deferred cleanup functions in reverse order.
func (sc *SharedComponents) Cleanup() {
	for i := len(sc.cleanups) - 1; i >= 0; i-- {
		sc.cleanups[i]()
	}
}

func (sc *SharedComponents) addCleanup(fn func()) {
	sc.cleanups = append(sc.cleanups, fn)
}

// initShared opens and migrates the store and builds the domain services.
// Callers must call sc.Cleanup() when done.
func initShared(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*SharedComponents, error) {
	sc := &SharedComponents{
		Config: cfg,
		Logger: logger,
	}

	obs, err := observability.New(cfg.Observability, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing observability: %w", err)
	}
	sc.Obs = obs
	sc.addCleanup(func() {
		if obs != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			obs.Shutdown(shutdownCtx)
		}
	})

	store, err := initStore(cfg, logger)
	if err != nil {
		sc.Cleanup()
		return nil, err
	}
	sc.Store = store
	sc.addCleanup(func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing store", slog.String("error", err.Error()))
		}
	})

	if obs.MetricsOrNil() != nil || obs.TracerOrNil() != nil {
		if db := storeGormDB(store); db != nil {
			if err := db.Use(observability.NewGormPlugin(obs.MetricsOrNil(), obs.TracerOrNil())); err != nil {
				sc.Cleanup()
				return nil, fmt.Errorf("registering database instrumentation: %w", err)
			}
		}
	}

	if err := store.Migrate(ctx); err != nil {
		sc.Cleanup()
		return nil, fmt.Errorf("migrating %s store: %w", store.Driver(), err)
	}
	logger.Debug("store ready", slog.String("driver", store.Driver()))

	roles := securityRoles(cfg)
	authz, err := security.NewAuthorizer(roles, logger)
	if err != nil {
		sc.Cleanup()
		return nil, fmt.Errorf("initializing authorizer: %w", err)
	}
	sc.Security = security.NewManager(authz, security.NewAuditLogger(store.Audit(), logger), logger)

	sc.Feed = visitor.NewFeed()
	sc.Companies = company.NewService(store, logger)
	sc.Users = users.NewService(store, security.RoleNames(roles), logger)
	sc.Accounting = accounting.NewService(store, logger)
	sc.Visitors = visitor.NewService(store, sc.Feed, logger)

	return sc, nil
}

// loadConfig reads the config file named by BUREAU_CONFIG or path. When the
// default path does not exist, Bureau runs on defaults and the environment.
func loadConfig(path string) (*config.Config, error) {
	if p := goutils.Env("BUREAU_CONFIG", ""); p != "" {
		path = p
	}
	if path == config.DefaultConfigPath() {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return config.Default()
		}
	}
	return config.Load(path)
}

// cliLogger is the logger for one-shot commands.
func cliLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// securityRoles converts configured roles, falling back to the built-in set.
func securityRoles(cfg *config.Config) []security.Role {
	if len(cfg.Security.Roles) == 0 {
		return security.DefaultRoles()
	}
	roles := make([]security.Role, len(cfg.Security.Roles))
	for i, r := range cfg.Security.Roles {
		roles[i] = security.Role{Name: r.Name, Permissions: r.Permissions}
	}
	return roles
}

// initStore creates the appropriate storage backend from config.
func initStore(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch driver := cfg.StorageDriverName(); driver {
	case storage.DriverPostgres:
		return initPostgresStore(cfg, logger)
	case storage.DriverSQLite:
		return initSQLiteStore(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", driver)
	}
}

func initSQLiteStore(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	journalMode := "wal"
	if cfg.Storage != nil && cfg.Storage.SQLite != nil && cfg.Storage.SQLite.JournalMode != "" {
		journalMode = cfg.Storage.SQLite.JournalMode
	}
	return sqlitestore.Open(sqlitestore.Config{
		Path:        cfg.DatabasePath(),
		JournalMode: journalMode,
	}, logger)
}

func initPostgresStore(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	pg := cfg.Storage.Postgres
	pgDB, err := pgstore.Open(pgstore.Config{
		DSN:             pg.DSN,
		MaxOpenConns:    pg.MaxOpenConns,
		MaxIdleConns:    pg.MaxIdleConns,
		ConnMaxLifetime: time.Duration(pg.ConnMaxLifetimeS) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	return pgstore.NewStore(pgDB), nil
}

// storeGormDB extracts the underlying *gorm.DB from the unified store.
func storeGormDB(store storage.Store) *gorm.DB {
	switch s := store.(type) {
	case *pgstore.Store:
		return s.GormDB()
	case *sqlitestore.Store:
		return s.GormDB()
	default:
		return nil
	}
}
