package visitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/storage"
	"github.com/jkaninda/bureau/internal/storage/storagetest"
	"github.com/jkaninda/bureau/internal/tenancy"
	"github.com/jkaninda/bureau/internal/validation"
)

type fixture struct {
	svc   *Service
	store storage.Store
	feed  *Feed
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := storagetest.Open(t)
	feed := NewFeed()
	f := &fixture{
		svc:   NewService(store, feed, storagetest.Logger()),
		store: store,
		feed:  feed,
		clock: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) register(t *testing.T, scope tenancy.Scope, name string) *domain.Visitor {
	t.Helper()
	v, err := f.svc.Register(context.Background(), scope, VisitorInput{Name: name, Email: name + "@example.com"})
	if err != nil {
		t.Fatalf("registering %s: %v", name, err)
	}
	return v
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	scope := tenancy.Scoped(storagetest.Company(t, f.store, "acme"))

	if _, err := f.svc.Register(context.Background(), scope, VisitorInput{Email: "x@example.com"}); !validation.IsValidation(err) {
		t.Errorf("expected validation error for missing name, got %v", err)
	}
	if _, err := f.svc.Register(context.Background(), scope, VisitorInput{Name: "Ada", Email: "not-an-email"}); !validation.IsValidation(err) {
		t.Errorf("expected validation error for bad email, got %v", err)
	}
}

func TestCheckInCheckOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scope := tenancy.Scoped(storagetest.Company(t, f.store, "acme"))
	v := f.register(t, scope, "ada")

	visit, err := f.svc.CheckIn(ctx, scope, CheckInInput{VisitorID: v.ID, Purpose: "Interview", Badge: "B-12"})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if !visit.Open() {
		t.Error("new visit should be open")
	}

	if _, err := f.svc.CheckIn(ctx, scope, CheckInInput{VisitorID: v.ID}); !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Errorf("expected ErrAlreadyCheckedIn, got %v", err)
	}
	if err := f.svc.Delete(ctx, scope, v.ID); !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Errorf("deleting an on-site visitor: expected ErrAlreadyCheckedIn, got %v", err)
	}

	active, err := f.svc.ListActive(ctx, scope, domain.Page{})
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 1 || active[0].ID != visit.ID {
		t.Fatalf("unexpected active visits: %+v", active)
	}

	out, err := f.svc.CheckOut(ctx, scope, visit.ID)
	if err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if out.CheckedOutAt == nil || !out.CheckedOutAt.Equal(f.clock) {
		t.Errorf("CheckedOutAt = %v, want %v", out.CheckedOutAt, f.clock)
	}
	if _, err := f.svc.CheckOut(ctx, scope, visit.ID); !errors.Is(err, ErrNotCheckedIn) {
		t.Errorf("expected ErrNotCheckedIn, got %v", err)
	}

	// Checking in again after leaving is allowed.
	if _, err := f.svc.CheckIn(ctx, scope, CheckInInput{VisitorID: v.ID}); err != nil {
		t.Errorf("second visit: %v", err)
	}
}

func TestCheckIn_OtherTenantVisitor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := tenancy.Scoped(storagetest.Company(t, f.store, "acme"))
	b := tenancy.Scoped(storagetest.Company(t, f.store, "globex"))
	v := f.register(t, a, "ada")

	if _, err := f.svc.CheckIn(ctx, b, CheckInInput{VisitorID: v.ID}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCheckIn_HostMustBeInSameCompany(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	aID := storagetest.Company(t, f.store, "acme")
	bID := storagetest.Company(t, f.store, "globex")
	a := tenancy.Scoped(aID)
	v := f.register(t, a, "ada")

	host := &domain.User{Name: "Bob", Email: "bob@globex.test", Role: "member", Active: true}
	if err := f.store.Users().Create(ctx, tenancy.Scoped(bID), host); err != nil {
		t.Fatalf("creating host: %v", err)
	}

	_, err := f.svc.CheckIn(ctx, a, CheckInInput{VisitorID: v.ID, HostUserID: &host.ID})
	if !validation.IsValidation(err) {
		t.Errorf("expected validation error for foreign host, got %v", err)
	}
}

func TestCheckIn_ConcurrentSameVisitor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scope := tenancy.Scoped(storagetest.Company(t, f.store, "acme"))
	v := f.register(t, scope, "ada")

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.CheckIn(ctx, scope, CheckInInput{VisitorID: v.ID})
		}()
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, ErrAlreadyCheckedIn):
			t.Errorf("expected ErrAlreadyCheckedIn, got %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("%d check-ins succeeded, want 1", ok)
	}

	active, err := f.svc.ListActive(ctx, scope, domain.Page{})
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 1 {
		t.Errorf("expected one open visit, got %d", len(active))
	}
}

func TestCloseStale_MoreThanOnePage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scope := tenancy.Scoped(storagetest.Company(t, f.store, "acme"))

	const total = 510
	for i := range total {
		v := f.register(t, scope, fmt.Sprintf("v%03d", i))
		if _, err := f.svc.CheckIn(ctx, scope, CheckInInput{VisitorID: v.ID}); err != nil {
			t.Fatalf("CheckIn %d: %v", i, err)
		}
	}

	first, err := f.svc.ListActive(ctx, scope, domain.Page{Limit: 500})
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	rest, err := f.svc.ListActive(ctx, scope, domain.Page{Limit: 500, Offset: 500})
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(first) != 500 || len(rest) != total-500 {
		t.Errorf("pages = %d + %d, want 500 + %d", len(first), len(rest), total-500)
	}

	f.clock = f.clock.Add(24 * time.Hour)
	n, err := f.svc.CloseStale(ctx, scope, 12*time.Hour)
	if err != nil {
		t.Fatalf("CloseStale: %v", err)
	}
	if n != total {
		t.Errorf("closed %d visits, want %d", n, total)
	}
	open, err := f.svc.ListActive(ctx, scope, domain.Page{})
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(open) != 0 {
		t.Errorf("expected no open visits, got %d", len(open))
	}
}

func TestCloseStale_UnscopedSpansTenants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := tenancy.Scoped(storagetest.Company(t, f.store, "acme"))
	b := tenancy.Scoped(storagetest.Company(t, f.store, "globex"))

	for _, scope := range []tenancy.Scope{a, b} {
		v := f.register(t, scope, "early-"+uuid.NewString()[:4])
		if _, err := f.svc.CheckIn(ctx, scope, CheckInInput{VisitorID: v.ID}); err != nil {
			t.Fatalf("CheckIn: %v", err)
		}
	}

	// A later visit that is not stale yet.
	f.clock = f.clock.Add(10 * time.Hour)
	late := f.register(t, a, "late")
	if _, err := f.svc.CheckIn(ctx, a, CheckInInput{VisitorID: late.ID}); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	f.clock = f.clock.Add(time.Hour)
	n, err := f.svc.CloseStale(ctx, tenancy.Unscoped(), 8*time.Hour)
	if err != nil {
		t.Fatalf("CloseStale: %v", err)
	}
	if n != 2 {
		t.Errorf("closed %d visits, want 2", n)
	}

	open, err := f.svc.ListActive(ctx, tenancy.Unscoped(), domain.Page{})
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(open) != 1 || open[0].VisitorID != late.ID {
		t.Errorf("expected only the late visit to stay open, got %+v", open)
	}
}

func TestCloseStale_ScopedStaysInTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := tenancy.Scoped(storagetest.Company(t, f.store, "acme"))
	b := tenancy.Scoped(storagetest.Company(t, f.store, "globex"))

	for _, scope := range []tenancy.Scope{a, b} {
		v := f.register(t, scope, "v-"+uuid.NewString()[:4])
		if _, err := f.svc.CheckIn(ctx, scope, CheckInInput{VisitorID: v.ID}); err != nil {
			t.Fatalf("CheckIn: %v", err)
		}
	}
	f.clock = f.clock.Add(24 * time.Hour)

	n, err := f.svc.CloseStale(ctx, a, time.Hour)
	if err != nil {
		t.Fatalf("CloseStale: %v", err)
	}
	if n != 1 {
		t.Errorf("closed %d visits, want 1", n)
	}
	open, err := f.svc.ListActive(ctx, b, domain.Page{})
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(open) != 1 {
		t.Errorf("company B visit should stay open, got %d", len(open))
	}
}

func TestFeed_DeliversOnlyAdmittedEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	aID := storagetest.Company(t, f.store, "acme")
	a := tenancy.Scoped(aID)
	b := tenancy.Scoped(storagetest.Company(t, f.store, "globex"))

	subA := f.feed.Subscribe(a, 8)
	defer subA.Close()
	subAll := f.feed.Subscribe(tenancy.Unscoped(), 8)
	defer subAll.Close()

	va := f.register(t, a, "ada")
	vb := f.register(t, b, "bob")
	if _, err := f.svc.CheckIn(ctx, b, CheckInInput{VisitorID: vb.ID}); err != nil {
		t.Fatalf("CheckIn B: %v", err)
	}
	visitA, err := f.svc.CheckIn(ctx, a, CheckInInput{VisitorID: va.ID})
	if err != nil {
		t.Fatalf("CheckIn A: %v", err)
	}

	select {
	case ev := <-subA.C:
		if ev.Visit.ID != visitA.ID || ev.Type != EventCheckedIn || ev.Visit.CompanyID != aID {
			t.Errorf("unexpected event for A: %+v", ev)
		}
		if ev.VisitorName != "ada" {
			t.Errorf("VisitorName = %q", ev.VisitorName)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered to A")
	}
	select {
	case ev := <-subA.C:
		t.Errorf("A received a foreign event: %+v", ev)
	default:
	}

	if got := len(subAll.C); got != 2 {
		t.Errorf("unscoped subscriber got %d events, want 2", got)
	}
}

func TestFeed_CloseAndDrop(t *testing.T) {
	feed := NewFeed()
	id := uuid.New()
	sub := feed.Subscribe(tenancy.Scoped(id), 1)

	ev := Event{Type: EventCheckedIn, Visit: domain.Visit{ID: uuid.New(), CompanyID: id}}
	feed.Publish(ev)
	feed.Publish(ev)
	if sub.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", sub.Dropped())
	}

	sub.Close()
	sub.Close()
	if feed.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d after close", feed.Subscribers())
	}
	feed.Publish(ev)
	if _, ok := <-sub.C; !ok {
		t.Fatal("buffered event should still be readable after close")
	}
	if _, ok := <-sub.C; ok {
		t.Error("channel should be closed")
	}
}
