package users

import (
	"context"
	"errors"
	"testing"

	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/storage"
	"github.com/jkaninda/bureau/internal/storage/storagetest"
	"github.com/jkaninda/bureau/internal/tenancy"
	"github.com/jkaninda/bureau/internal/validation"
)

func newTestService(t *testing.T) (*Service, storage.Store) {
	t.Helper()
	store := storagetest.Open(t)
	return NewService(store, []string{"admin", "accountant", "receptionist"}, storagetest.Logger()), store
}

func TestCreate_RoleMustBeConfigured(t *testing.T) {
	svc, store := newTestService(t)
	scope := tenancy.Scoped(storagetest.Company(t, store, "acme"))

	_, err := svc.Create(context.Background(), scope, UserInput{Name: "Eve", Email: "eve@acme.test", Role: "superuser"})
	if !validation.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreate_EmailUniquePerCompany(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	a := tenancy.Scoped(storagetest.Company(t, store, "acme"))
	b := tenancy.Scoped(storagetest.Company(t, store, "globex"))

	in := UserInput{Name: "Ada", Email: "Ada@Example.com", Role: "admin"}
	u, err := svc.Create(ctx, a, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Email != "ada@example.com" {
		t.Errorf("Email = %q, want lower-cased", u.Email)
	}
	if _, err := svc.Create(ctx, a, in); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
	if _, err := svc.Create(ctx, b, in); err != nil {
		t.Errorf("same email in another company should be allowed: %v", err)
	}
}

func TestResolve(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	a := tenancy.Scoped(storagetest.Company(t, store, "acme"))
	b := tenancy.Scoped(storagetest.Company(t, store, "globex"))

	u, err := svc.Create(ctx, a, UserInput{Name: "Ada", Email: "ada@acme.test", Role: "accountant"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.Resolve(ctx, a, " ADA@acme.test ")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("resolved %s, want %s", got.ID, u.ID)
	}
	if _, err := svc.Resolve(ctx, b, "ada@acme.test"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound in other company, got %v", err)
	}

	if err := svc.Deactivate(ctx, a, u.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if _, err := svc.Resolve(ctx, a, "ada@acme.test"); !errors.Is(err, ErrInactive) {
		t.Errorf("expected ErrInactive, got %v", err)
	}
}

func TestUpdateAndList(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	scope := tenancy.Scoped(storagetest.Company(t, store, "acme"))

	u, _ := svc.Create(ctx, scope, UserInput{Name: "Ada", Email: "ada@acme.test", Role: "admin"})
	if _, err := svc.Create(ctx, scope, UserInput{Name: "Bob", Email: "bob@acme.test", Role: "receptionist"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	bad := "root"
	if _, err := svc.Update(ctx, scope, u.ID, UserUpdate{Role: &bad}); !validation.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	role := "accountant"
	updated, err := svc.Update(ctx, scope, u.ID, UserUpdate{Role: &role})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Role != role {
		t.Errorf("Role = %q", updated.Role)
	}

	got, err := svc.List(ctx, scope, storage.UserFilter{Role: "accountant"}, domain.Page{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].ID != u.ID {
		t.Errorf("unexpected users: %+v", got)
	}
}
