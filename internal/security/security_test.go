package security

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/storage/storagetest"
	"github.com/jkaninda/bureau/internal/tenancy"
)

func TestParsePermission(t *testing.T) {
	tests := []struct {
		in      string
		want    Permission
		wantErr bool
	}{
		{"*", Permission{"*", "*"}, false},
		{"accounts:read", Permission{"accounts", "read"}, false},
		{" visits:* ", Permission{"visits", "*"}, false},
		{"accounts", Permission{}, true},
		{":read", Permission{}, true},
		{"accounts:", Permission{}, true},
	}
	for _, tt := range tests {
		got, err := ParsePermission(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePermission(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePermission(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func newTestAuthorizer(t *testing.T) *Authorizer {
	t.Helper()
	a, err := NewAuthorizer(DefaultRoles(), storagetest.Logger())
	if err != nil {
		t.Fatalf("NewAuthorizer: %v", err)
	}
	return a
}

func TestAuthorize(t *testing.T) {
	a := newTestAuthorizer(t)
	ctx := context.Background()
	company := uuid.New()

	tests := []struct {
		name     string
		role     string
		resource string
		action   string
		allowed  bool
	}{
		{"admin anything", "admin", ResourceUsers, ActionWrite, true},
		{"accountant accounts write", "accountant", ResourceAccounts, ActionWrite, true},
		{"accountant users read", "accountant", ResourceUsers, ActionRead, true},
		{"accountant users write", "accountant", ResourceUsers, ActionWrite, false},
		{"accountant visits", "accountant", ResourceVisits, ActionRead, false},
		{"receptionist visits write", "receptionist", ResourceVisits, ActionWrite, true},
		{"viewer read", "viewer", ResourceCurrencies, ActionRead, true},
		{"viewer write", "viewer", ResourceCurrencies, ActionWrite, false},
		{"unknown role", "intern", ResourceAccounts, ActionRead, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &domain.User{ID: uuid.New(), CompanyID: company, Role: tt.role, Active: true}
			err := a.Authorize(ctx, u, tt.resource, tt.action)
			if tt.allowed && err != nil {
				t.Errorf("expected allowed, got %v", err)
			}
			if !tt.allowed && !errors.Is(err, ErrPermissionDenied) {
				t.Errorf("expected ErrPermissionDenied, got %v", err)
			}
		})
	}
}

func TestAuthorize_RoleIsPerCompany(t *testing.T) {
	a := newTestAuthorizer(t)
	ctx := context.Background()
	id := uuid.New()
	acme, globex := uuid.New(), uuid.New()

	admin := &domain.User{ID: id, CompanyID: acme, Role: "admin", Active: true}
	if err := a.Authorize(ctx, admin, ResourceUsers, ActionWrite); err != nil {
		t.Fatalf("admin in acme: %v", err)
	}

	// Same subject as a viewer in another company: the acme admin role must not carry over.
	viewer := &domain.User{ID: id, CompanyID: globex, Role: "viewer", Active: true}
	if err := a.Authorize(ctx, viewer, ResourceUsers, ActionWrite); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied in globex, got %v", err)
	}
	if err := a.Authorize(ctx, admin, ResourceUsers, ActionWrite); err != nil {
		t.Errorf("acme admin should still be allowed: %v", err)
	}
}

func TestAuthorize_FollowsRoleChanges(t *testing.T) {
	a := newTestAuthorizer(t)
	ctx := context.Background()
	u := &domain.User{ID: uuid.New(), CompanyID: uuid.New(), Role: "admin", Active: true}

	if err := a.Authorize(ctx, u, ResourceAccounts, ActionWrite); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	u.Role = "viewer"
	if err := a.Authorize(ctx, u, ResourceAccounts, ActionWrite); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected demoted user to be denied, got %v", err)
	}
	u.Role = "admin"
	u.Active = false
	if err := a.Authorize(ctx, u, ResourceAccounts, ActionRead); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected inactive user to be denied, got %v", err)
	}
}

func TestNewAuthorizer_InvalidPermission(t *testing.T) {
	_, err := NewAuthorizer([]Role{{Name: "broken", Permissions: []string{"accounts"}}}, storagetest.Logger())
	if err == nil {
		t.Fatal("expected error for malformed permission")
	}
}

func TestManager_AuditsDenials(t *testing.T) {
	store := storagetest.Open(t)
	ctx := context.Background()
	acme := storagetest.Company(t, store, "acme")
	globex := storagetest.Company(t, store, "globex")

	audit := NewAuditLogger(store.Audit(), storagetest.Logger())
	m := NewManager(newTestAuthorizer(t), audit, storagetest.Logger())

	u := &domain.User{ID: uuid.New(), CompanyID: acme, Role: "receptionist", Active: true}
	if err := m.Check(ctx, u, ResourceVisits, ActionWrite, "req-1"); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if err := m.Check(ctx, u, ResourceAccounts, ActionWrite, "req-2"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	m.Record(ctx, u, "visit.check_in", ResourceVisits, "v-1", "req-3", ResultSuccess)

	events, err := audit.Recent(ctx, tenancy.Scoped(acme), u.ID.String(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 audit events, got %d", len(events))
	}
	results := map[string]bool{}
	for _, e := range events {
		if e.CompanyID != acme {
			t.Errorf("event stamped with %s, want %s", e.CompanyID, acme)
		}
		results[e.Result] = true
	}
	if !results[ResultDenied] || !results[ResultSuccess] {
		t.Errorf("unexpected results: %v", results)
	}

	other, err := audit.Recent(ctx, tenancy.Scoped(globex), "", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no events in another company, got %d", len(other))
	}
}
