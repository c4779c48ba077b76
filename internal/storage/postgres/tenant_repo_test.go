package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/storage"
	"github.com/jkaninda/bureau/internal/tenancy"
)

func testGormDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(ON)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  NewGormLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func testCompany(t *testing.T, db *gorm.DB, name string) uuid.UUID {
	t.Helper()
	c := &domain.Company{Name: name, Slug: name + "-" + uuid.NewString()[:8], Active: true}
	if err := NewCompanyRepository(db).Create(context.Background(), c); err != nil {
		t.Fatalf("creating company %s: %v", name, err)
	}
	return c.ID
}

func mustCreateAccount(t *testing.T, repo *AccountRepository, scope tenancy.Scope, code, name string) *domain.Account {
	t.Helper()
	a := &domain.Account{Code: code, Name: name, Type: domain.AccountAsset, Active: true}
	if err := repo.Create(context.Background(), scope, a); err != nil {
		t.Fatalf("creating account %s: %v", code, err)
	}
	return a
}

func TestCreate_StampsScopedCompany(t *testing.T) {
	db := testGormDB(t)
	a := testCompany(t, db, "acme")
	repo := NewAccountRepository(db)

	acc := mustCreateAccount(t, repo, tenancy.Scoped(a), "1000", "Cash")
	if acc.CompanyID != a {
		t.Errorf("CompanyID = %s, want %s", acc.CompanyID, a)
	}

	var stored AccountModel
	if err := db.First(&stored, "id = ?", acc.ID).Error; err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if stored.OwnerID() != a {
		t.Errorf("persisted company_id = %s, want %s", stored.OwnerID(), a)
	}
}

func TestCreate_ExplicitCompanyWins(t *testing.T) {
	db := testGormDB(t)
	a := testCompany(t, db, "acme")
	b := testCompany(t, db, "globex")
	repo := NewAccountRepository(db)

	acc := &domain.Account{CompanyID: b, Code: "1000", Name: "Cash", Type: domain.AccountAsset}
	if err := repo.Create(context.Background(), tenancy.Scoped(a), acc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if acc.CompanyID != b {
		t.Errorf("CompanyID = %s, want explicit %s", acc.CompanyID, b)
	}

	// Explicit owner is also kept without scope.
	acc2 := &domain.Account{CompanyID: a, Code: "2000", Name: "Payables", Type: domain.AccountLiability}
	if err := repo.Create(context.Background(), tenancy.Unscoped(), acc2); err != nil {
		t.Fatalf("Create unscoped: %v", err)
	}
	if acc2.CompanyID != a {
		t.Errorf("CompanyID = %s, want explicit %s", acc2.CompanyID, a)
	}
}

func TestCreate_UnscopedWithoutCompanyViolatesNotNull(t *testing.T) {
	db := testGormDB(t)
	repo := NewAccountRepository(db)

	acc := &domain.Account{Code: "1000", Name: "Cash", Type: domain.AccountAsset}
	err := repo.Create(context.Background(), tenancy.Unscoped(), acc)
	if !errors.Is(err, storage.ErrConstraint) {
		t.Fatalf("expected ErrConstraint, got %v", err)
	}
}

func TestQuery_Isolation(t *testing.T) {
	db := testGormDB(t)
	a := testCompany(t, db, "acme")
	b := testCompany(t, db, "globex")
	repo := NewAccountRepository(db)
	ctx := context.Background()

	mustCreateAccount(t, repo, tenancy.Scoped(a), "1000", "Cash A")
	mustCreateAccount(t, repo, tenancy.Scoped(a), "1100", "Bank A")
	accB := mustCreateAccount(t, repo, tenancy.Scoped(b), "1000", "Cash B")

	got, err := repo.List(ctx, tenancy.Scoped(a), storage.AccountFilter{}, domain.Page{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 accounts for A, got %d", len(got))
	}
	for _, acc := range got {
		if acc.CompanyID != a {
			t.Errorf("leaked account %s of company %s", acc.Code, acc.CompanyID)
		}
	}

	if _, err := repo.Get(ctx, tenancy.Scoped(a), accB.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get across tenants: expected ErrNotFound, got %v", err)
	}
	n, err := repo.Count(ctx, tenancy.Scoped(b), storage.AccountFilter{})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("Count(B) = %d, want 1", n)
	}
}

func TestQuery_UnscopedSeesAllTenants(t *testing.T) {
	db := testGormDB(t)
	a := testCompany(t, db, "acme")
	b := testCompany(t, db, "globex")
	repo := NewAccountRepository(db)

	mustCreateAccount(t, repo, tenancy.Scoped(a), "1000", "Cash A")
	mustCreateAccount(t, repo, tenancy.Scoped(b), "1000", "Cash B")

	got, err := repo.List(context.Background(), tenancy.Unscoped(), storage.AccountFilter{}, domain.Page{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 accounts across tenants, got %d", len(got))
	}
}

func TestQuery_NilCompanyMatchesNothing(t *testing.T) {
	db := testGormDB(t)
	a := testCompany(t, db, "acme")
	repo := NewAccountRepository(db)
	mustCreateAccount(t, repo, tenancy.Scoped(a), "1000", "Cash")

	got, err := repo.List(context.Background(), tenancy.Scoped(uuid.Nil), storage.AccountFilter{}, domain.Page{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no rows for nil company, got %d", len(got))
	}
}

func TestQuery_PredicateConjunction(t *testing.T) {
	db := testGormDB(t)
	a := testCompany(t, db, "acme")
	b := testCompany(t, db, "globex")
	repo := NewAccountRepository(db)
	ctx := context.Background()

	mustCreateAccount(t, repo, tenancy.Scoped(a), "1000", "Cash")
	mustCreateAccount(t, repo, tenancy.Scoped(a), "4000", "Sales")
	mustCreateAccount(t, repo, tenancy.Scoped(b), "1000", "Cash")
	mustCreateAccount(t, repo, tenancy.Scoped(b), "1010", "Cashier float")

	t.Run("AND predicate", func(t *testing.T) {
		got, err := repo.List(ctx, tenancy.Scoped(a), storage.AccountFilter{Search: "1000"}, domain.Page{})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 1 || got[0].CompanyID != a {
			t.Fatalf("expected only A's 1000, got %+v", got)
		}
	})

	t.Run("OR inside a filter stays grouped", func(t *testing.T) {
		// The search filter is "code LIKE ? OR name LIKE ?". Without grouping
		// the name branch would match B's "Cashier float".
		got, err := repo.List(ctx, tenancy.Scoped(a), storage.AccountFilter{Search: "Cash"}, domain.Page{})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 account, got %d", len(got))
		}
		if got[0].CompanyID != a || got[0].Code != "1000" {
			t.Errorf("unexpected account %+v", got[0])
		}
	})

	t.Run("raw OR filter on the generic repository", func(t *testing.T) {
		generic := NewTenantRepository[AccountModel](db, "account")
		rows, err := generic.List(ctx, tenancy.Scoped(a), domain.Page{}, "code ASC",
			Where("code = ? OR code = ?", "1000", "1010"),
		)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(rows) != 1 || rows[0].OwnerID() != a {
			t.Fatalf("expected A's 1000 only, got %d rows", len(rows))
		}
	})

	t.Run("filters do not widen each other", func(t *testing.T) {
		got, err := repo.List(ctx, tenancy.Scoped(a), storage.AccountFilter{
			Type:   domain.AccountIncome,
			Search: "Cash",
		}, domain.Page{})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no income accounts named Cash, got %d", len(got))
		}
	})
}

func TestUpdate_CompanyIsImmutable(t *testing.T) {
	db := testGormDB(t)
	a := testCompany(t, db, "acme")
	b := testCompany(t, db, "globex")
	generic := NewTenantRepository[AccountModel](db, "account")
	ctx := context.Background()

	acc := mustCreateAccount(t, NewAccountRepository(db), tenancy.Scoped(a), "1000", "Cash")

	err := generic.Update(ctx, tenancy.Scoped(a), acc.ID, map[string]any{
		"name":         "Petty cash",
		tenancy.Column: b,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	m, err := generic.Get(ctx, tenancy.Unscoped(), acc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if m.OwnerID() != a {
		t.Errorf("company_id changed to %s", m.OwnerID())
	}
	if m.Name != "Petty cash" {
		t.Errorf("Name = %q, want %q", m.Name, "Petty cash")
	}
}

func TestUpdateDelete_OtherTenantNotFound(t *testing.T) {
	db := testGormDB(t)
	a := testCompany(t, db, "acme")
	b := testCompany(t, db, "globex")
	repo := NewAccountRepository(db)
	ctx := context.Background()

	acc := mustCreateAccount(t, repo, tenancy.Scoped(a), "1000", "Cash")
	acc.Name = "Hijacked"

	if err := repo.Update(ctx, tenancy.Scoped(b), acc); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Update across tenants: expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, tenancy.Scoped(b), acc.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Delete across tenants: expected ErrNotFound, got %v", err)
	}

	got, err := repo.Get(ctx, tenancy.Scoped(a), acc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Cash" {
		t.Errorf("Name = %q, want unchanged", got.Name)
	}
}

func TestUpsert_PerTenantAndIdempotent(t *testing.T) {
	db := testGormDB(t)
	a := testCompany(t, db, "acme")
	b := testCompany(t, db, "globex")
	repo := NewAccountRepository(db)
	ctx := context.Background()

	chart := func() []domain.Account {
		return []domain.Account{
			{Code: "1000", Name: "Cash", Type: domain.AccountAsset, Active: true},
			{Code: "2000", Name: "Payables", Type: domain.AccountLiability, Active: true},
		}
	}

	for i := 0; i < 2; i++ {
		if err := repo.Upsert(ctx, tenancy.Scoped(a), chart()); err != nil {
			t.Fatalf("Upsert A #%d: %v", i, err)
		}
	}
	if err := repo.Upsert(ctx, tenancy.Scoped(b), chart()); err != nil {
		t.Fatalf("Upsert B: %v", err)
	}

	for _, id := range []uuid.UUID{a, b} {
		n, err := repo.Count(ctx, tenancy.Scoped(id), storage.AccountFilter{})
		if err != nil {
			t.Fatalf("Count: %v", err)
		}
		if n != 2 {
			t.Errorf("company %s has %d accounts, want 2", id, n)
		}
	}
}

func TestCreate_DuplicateKeyIsConflict(t *testing.T) {
	db := testGormDB(t)
	a := testCompany(t, db, "acme")
	repo := NewAccountRepository(db)

	mustCreateAccount(t, repo, tenancy.Scoped(a), "1000", "Cash")
	err := repo.Create(context.Background(), tenancy.Scoped(a),
		&domain.Account{Code: "1000", Name: "Again", Type: domain.AccountAsset})
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestCurrencySetBase_OnlyTouchesScopedTenant(t *testing.T) {
	db := testGormDB(t)
	a := testCompany(t, db, "acme")
	b := testCompany(t, db, "globex")
	repo := NewCurrencyRepository(db)
	ctx := context.Background()

	create := func(company uuid.UUID, code string, base bool) *domain.Currency {
		c := &domain.Currency{Code: code, Name: code, ExchangeRate: 1, IsBase: base}
		if err := repo.Create(ctx, tenancy.Scoped(company), c); err != nil {
			t.Fatalf("creating %s: %v", code, err)
		}
		return c
	}
	usdA := create(a, "USD", true)
	eurA := create(a, "EUR", false)
	usdB := create(b, "USD", true)

	if err := repo.SetBase(ctx, tenancy.Scoped(a), eurA.ID); err != nil {
		t.Fatalf("SetBase: %v", err)
	}

	check := func(scope tenancy.Scope, id uuid.UUID, want bool) {
		t.Helper()
		c, err := repo.Get(ctx, scope, id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if c.IsBase != want {
			t.Errorf("%s IsBase = %v, want %v", c.Code, c.IsBase, want)
		}
	}
	check(tenancy.Scoped(a), eurA.ID, true)
	check(tenancy.Scoped(a), usdA.ID, false)
	check(tenancy.Scoped(b), usdB.ID, true)

	if err := repo.SetBase(ctx, tenancy.Scoped(b), eurA.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("SetBase across tenants: expected ErrNotFound, got %v", err)
	}
}

func TestVisitCheckOut_OnlyOnce(t *testing.T) {
	db := testGormDB(t)
	a := testCompany(t, db, "acme")
	visitors := NewVisitorRepository(db)
	visits := NewVisitRepository(db)
	ctx := context.Background()
	scope := tenancy.Scoped(a)

	v := &domain.Visitor{Name: "Ada"}
	if err := visitors.Create(ctx, scope, v); err != nil {
		t.Fatalf("creating visitor: %v", err)
	}
	visit := &domain.Visit{VisitorID: v.ID, CheckedInAt: time.Now().UTC()}
	if err := visits.Create(ctx, scope, visit); err != nil {
		t.Fatalf("creating visit: %v", err)
	}

	if _, err := visits.OpenForVisitor(ctx, scope, v.ID); err != nil {
		t.Fatalf("OpenForVisitor: %v", err)
	}
	if err := visits.CheckOut(ctx, scope, visit.ID, time.Now().UTC()); err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if err := visits.CheckOut(ctx, scope, visit.ID, time.Now().UTC()); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second CheckOut: expected ErrNotFound, got %v", err)
	}
	if _, err := visits.OpenForVisitor(ctx, scope, v.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("OpenForVisitor after checkout: expected ErrNotFound, got %v", err)
	}
}

func TestVisitCreate_OneOpenVisitPerVisitor(t *testing.T) {
	db := testGormDB(t)
	a := testCompany(t, db, "acme")
	visitors := NewVisitorRepository(db)
	visits := NewVisitRepository(db)
	ctx := context.Background()
	scope := tenancy.Scoped(a)

	v := &domain.Visitor{Name: "Ada"}
	if err := visitors.Create(ctx, scope, v); err != nil {
		t.Fatalf("creating visitor: %v", err)
	}
	first := &domain.Visit{VisitorID: v.ID, CheckedInAt: time.Now().UTC()}
	if err := visits.Create(ctx, scope, first); err != nil {
		t.Fatalf("creating visit: %v", err)
	}
	if err := visits.Create(ctx, scope, &domain.Visit{VisitorID: v.ID, CheckedInAt: time.Now().UTC()}); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("second open visit: expected ErrConflict, got %v", err)
	}

	// Closed visits do not count against the index.
	if err := visits.CheckOut(ctx, scope, first.ID, time.Now().UTC()); err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if err := visits.Create(ctx, scope, &domain.Visit{VisitorID: v.ID, CheckedInAt: time.Now().UTC()}); err != nil {
		t.Errorf("visit after checkout: %v", err)
	}
}
