package accounting

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/storage"
	"github.com/jkaninda/bureau/internal/storage/storagetest"
	"github.com/jkaninda/bureau/internal/tenancy"
	"github.com/jkaninda/bureau/internal/validation"
)

func newTestService(t *testing.T) (*Service, storage.Store) {
	t.Helper()
	store := storagetest.Open(t)
	return NewService(store, storagetest.Logger()), store
}

func TestCreateAccount_Validation(t *testing.T) {
	svc, store := newTestService(t)
	scope := tenancy.Scoped(storagetest.Company(t, store, "acme"))

	tests := []struct {
		name string
		in   AccountInput
	}{
		{"missing code", AccountInput{Name: "Cash", Type: domain.AccountAsset}},
		{"missing name", AccountInput{Code: "1000", Type: domain.AccountAsset}},
		{"bad type", AccountInput{Code: "1000", Name: "Cash", Type: "cash"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateAccount(context.Background(), scope, tt.in)
			if !validation.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateAccount_ParentMustBeVisible(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	a := tenancy.Scoped(storagetest.Company(t, store, "acme"))
	b := tenancy.Scoped(storagetest.Company(t, store, "globex"))

	parentB, err := svc.CreateAccount(ctx, b, AccountInput{Code: "1000", Name: "Assets", Type: domain.AccountAsset})
	if err != nil {
		t.Fatalf("creating parent: %v", err)
	}

	_, err = svc.CreateAccount(ctx, a, AccountInput{Code: "1010", Name: "Cash", Type: domain.AccountAsset, ParentID: &parentB.ID})
	if !errors.Is(err, ErrInvalidParent) {
		t.Fatalf("expected ErrInvalidParent, got %v", err)
	}

	parentA, err := svc.CreateAccount(ctx, a, AccountInput{Code: "1000", Name: "Assets", Type: domain.AccountAsset})
	if err != nil {
		t.Fatalf("creating parent: %v", err)
	}
	child, err := svc.CreateAccount(ctx, a, AccountInput{Code: "1010", Name: "Cash", Type: domain.AccountAsset, ParentID: &parentA.ID})
	if err != nil {
		t.Fatalf("creating child: %v", err)
	}
	if child.ParentID == nil || *child.ParentID != parentA.ID {
		t.Errorf("ParentID = %v, want %s", child.ParentID, parentA.ID)
	}
}

func TestUpdateAccount_RejectsCycle(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	scope := tenancy.Scoped(storagetest.Company(t, store, "acme"))

	root, _ := svc.CreateAccount(ctx, scope, AccountInput{Code: "1000", Name: "Assets", Type: domain.AccountAsset})
	mid, _ := svc.CreateAccount(ctx, scope, AccountInput{Code: "1100", Name: "Current", Type: domain.AccountAsset, ParentID: &root.ID})
	leaf, _ := svc.CreateAccount(ctx, scope, AccountInput{Code: "1110", Name: "Cash", Type: domain.AccountAsset, ParentID: &mid.ID})

	if _, err := svc.UpdateAccount(ctx, scope, root.ID, AccountUpdate{ParentID: &leaf.ID}); !errors.Is(err, ErrInvalidParent) {
		t.Errorf("expected ErrInvalidParent for cycle, got %v", err)
	}
	if _, err := svc.UpdateAccount(ctx, scope, root.ID, AccountUpdate{ParentID: &root.ID}); !errors.Is(err, ErrInvalidParent) {
		t.Errorf("expected ErrInvalidParent for self parent, got %v", err)
	}

	name := "Cash on hand"
	got, err := svc.UpdateAccount(ctx, scope, leaf.ID, AccountUpdate{Name: &name, ClearParent: true})
	if err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}
	if got.Name != name || got.ParentID != nil {
		t.Errorf("unexpected account after update: %+v", got)
	}
}

func TestDeleteAccount_WithChildren(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	scope := tenancy.Scoped(storagetest.Company(t, store, "acme"))

	root, _ := svc.CreateAccount(ctx, scope, AccountInput{Code: "1000", Name: "Assets", Type: domain.AccountAsset})
	child, _ := svc.CreateAccount(ctx, scope, AccountInput{Code: "1100", Name: "Cash", Type: domain.AccountAsset, ParentID: &root.ID})

	if err := svc.DeleteAccount(ctx, scope, root.ID); !errors.Is(err, ErrHasChildren) {
		t.Fatalf("expected ErrHasChildren, got %v", err)
	}
	if err := svc.DeleteAccount(ctx, scope, child.ID); err != nil {
		t.Fatalf("deleting child: %v", err)
	}
	if err := svc.DeleteAccount(ctx, scope, root.ID); err != nil {
		t.Fatalf("deleting root: %v", err)
	}
	if _, err := svc.GetAccount(ctx, scope, root.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSeedDefaults_IdempotentPerTenant(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	a := tenancy.Scoped(storagetest.Company(t, store, "acme"))
	b := tenancy.Scoped(storagetest.Company(t, store, "globex"))

	for i := 0; i < 2; i++ {
		if _, err := svc.SeedDefaults(ctx, a); err != nil {
			t.Fatalf("seed #%d: %v", i, err)
		}
	}

	got, err := svc.ListAccounts(ctx, a, storage.AccountFilter{}, domain.Page{Limit: 100})
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(got) != DefaultChartSize {
		t.Errorf("company A has %d accounts, want %d", len(got), DefaultChartSize)
	}

	gotB, err := svc.ListAccounts(ctx, b, storage.AccountFilter{}, domain.Page{})
	if err != nil {
		t.Fatalf("ListAccounts B: %v", err)
	}
	if len(gotB) != 0 {
		t.Errorf("seeding A leaked %d accounts into B", len(gotB))
	}
}

func TestSeedDefaults_UnscopedFails(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.SeedDefaults(context.Background(), tenancy.Unscoped())
	if !errors.Is(err, storage.ErrConstraint) {
		t.Fatalf("expected ErrConstraint, got %v", err)
	}
}

func TestTaxRates(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	scope := tenancy.Scoped(storagetest.Company(t, store, "acme"))

	if _, err := svc.CreateTaxRate(ctx, scope, TaxRateInput{Name: "Too high", RateBps: 100001}); !validation.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}

	vat, err := svc.CreateTaxRate(ctx, scope, TaxRateInput{Name: "VAT", RateBps: 2000})
	if err != nil {
		t.Fatalf("CreateTaxRate: %v", err)
	}
	if _, err := svc.CreateTaxRate(ctx, scope, TaxRateInput{Name: "VAT", RateBps: 1000}); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("expected ErrConflict on duplicate name, got %v", err)
	}

	updated, err := svc.UpdateTaxRate(ctx, scope, vat.ID, TaxRateInput{Name: "VAT", RateBps: 1900, Inclusive: true})
	if err != nil {
		t.Fatalf("UpdateTaxRate: %v", err)
	}
	if updated.RateBps != 1900 || !updated.Inclusive {
		t.Errorf("unexpected tax rate: %+v", updated)
	}
	if err := svc.DeleteTaxRate(ctx, scope, vat.ID); err != nil {
		t.Fatalf("DeleteTaxRate: %v", err)
	}
}

func TestCurrencies_BaseHandling(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	scope := tenancy.Scoped(storagetest.Company(t, store, "acme"))

	usd, err := svc.CreateCurrency(ctx, scope, CurrencyInput{Code: "usd", Name: "US Dollar", Symbol: "$", ExchangeRate: 3})
	if err != nil {
		t.Fatalf("CreateCurrency: %v", err)
	}
	if !usd.IsBase || usd.ExchangeRate != 1 || usd.Code != "USD" {
		t.Errorf("first currency should be the base with rate 1: %+v", usd)
	}

	eur, err := svc.CreateCurrency(ctx, scope, CurrencyInput{Code: "EUR", Name: "Euro", Symbol: "€", ExchangeRate: 0.92})
	if err != nil {
		t.Fatalf("CreateCurrency: %v", err)
	}
	if eur.IsBase {
		t.Error("second currency should not be the base")
	}

	if _, err := svc.CreateCurrency(ctx, scope, CurrencyInput{Code: "XXXX", Name: "Bogus", ExchangeRate: 1}); !validation.IsValidation(err) {
		t.Errorf("expected validation error for bad code, got %v", err)
	}

	if err := svc.DeleteCurrency(ctx, scope, usd.ID); !errors.Is(err, ErrBaseCurrency) {
		t.Errorf("expected ErrBaseCurrency, got %v", err)
	}

	got, err := svc.SetBaseCurrency(ctx, scope, eur.ID)
	if err != nil {
		t.Fatalf("SetBaseCurrency: %v", err)
	}
	if !got.IsBase || got.ExchangeRate != 1 {
		t.Errorf("EUR should now be base with rate 1: %+v", got)
	}
	if err := svc.DeleteCurrency(ctx, scope, usd.ID); err != nil {
		t.Errorf("deleting former base: %v", err)
	}
}

func TestGetAccount_OtherTenant(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	a := tenancy.Scoped(storagetest.Company(t, store, "acme"))
	b := tenancy.Scoped(storagetest.Company(t, store, "globex"))

	acc, err := svc.CreateAccount(ctx, a, AccountInput{Code: "1000", Name: "Cash", Type: domain.AccountAsset})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if _, err := svc.GetAccount(ctx, b, acc.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.GetAccount(ctx, tenancy.Unscoped(), acc.ID); err != nil {
		t.Errorf("unscoped Get should see every tenant: %v", err)
	}
	if _, err := svc.GetAccount(ctx, a, uuid.New()); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}
}
