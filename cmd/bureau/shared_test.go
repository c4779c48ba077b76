package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jkaninda/bureau/internal/company"
	"github.com/jkaninda/bureau/internal/config"
	"github.com/jkaninda/bureau/internal/security"
	"github.com/jkaninda/bureau/internal/tenancy"
	"github.com/jkaninda/bureau/internal/users"
)

func TestSecurityRoles(t *testing.T) {
	cfg := &config.Config{}
	if got := securityRoles(cfg); len(got) != len(security.DefaultRoles()) {
		t.Errorf("expected built-in roles, got %d", len(got))
	}

	cfg.Security.Roles = []config.RoleConfig{{Name: "clerk", Permissions: []string{"visits:read"}}}
	got := securityRoles(cfg)
	if len(got) != 1 || got[0].Name != "clerk" || got[0].Permissions[0] != "visits:read" {
		t.Errorf("unexpected roles: %+v", got)
	}
}

func TestLoadConfig_DefaultPathMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BUREAU_CONFIG", "")

	cfg, err := loadConfig(config.DefaultConfigPath())
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.StorageDriverName() != "sqlite" {
		t.Errorf("expected sqlite default, got %q", cfg.StorageDriverName())
	}
}

func TestLoadConfig_ExplicitPathMissing(t *testing.T) {
	t.Setenv("BUREAU_CONFIG", "")
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
}

func TestLoadConfig_EnvOverridesPath(t *testing.T) {
	t.Setenv("BUREAU_DATA_DIR", "")
	t.Setenv("BUREAU_DB_DSN", "")
	path := filepath.Join(t.TempDir(), "bureau.yaml")
	if err := os.WriteFile(path, []byte("http:\n  listen_addr: \":9999\"\n"), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("BUREAU_CONFIG", path)

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "ignored.yaml"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.HTTP.Addr() != ":9999" {
		t.Errorf("Addr = %q, want :9999", cfg.HTTP.Addr())
	}
}

func TestInitShared_SQLite(t *testing.T) {
	t.Setenv("BUREAU_DATA_DIR", t.TempDir())
	t.Setenv("BUREAU_DB_DSN", "")
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("config.Default: %v", err)
	}

	ctx := context.Background()
	sc, err := initShared(ctx, cfg, cliLogger())
	if err != nil {
		t.Fatalf("initShared: %v", err)
	}
	defer sc.Cleanup()

	if sc.Store.Driver() != "sqlite" {
		t.Errorf("expected sqlite store, got %q", sc.Store.Driver())
	}
	if storeGormDB(sc.Store) == nil {
		t.Error("expected a gorm handle for the sqlite store")
	}

	co, err := sc.Companies.Create(ctx, company.Input{Name: "Acme Ltd"})
	if err != nil {
		t.Fatalf("creating company: %v", err)
	}
	scope, err := companyScope(ctx, sc, co.Slug)
	if err != nil {
		t.Fatalf("companyScope: %v", err)
	}
	if id, ok := scope.CompanyID(); !ok || id != co.ID {
		t.Errorf("expected scope for %s, got %v", co.ID, scope)
	}
	if _, err := sc.Users.Create(ctx, scope, users.UserInput{Name: "Ada", Email: "ada@acme.test", Role: "admin"}); err != nil {
		t.Fatalf("creating user: %v", err)
	}
	if _, err := companyScope(ctx, sc, "nope"); err == nil {
		t.Error("expected error for unknown company")
	}
	if scope == tenancy.Unscoped() {
		t.Error("company scope must not be unscoped")
	}
}
