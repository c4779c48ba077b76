package tenancy

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

type record struct {
	owner uuid.UUID
}

func (r *record) OwnerID() uuid.UUID             { return r.owner }
func (r *record) SetOwnerID(companyID uuid.UUID) { r.owner = companyID }

func TestStamp(t *testing.T) {
	explicit := uuid.New()
	active := uuid.New()

	tests := []struct {
		name    string
		scope   Scope
		initial uuid.UUID
		want    uuid.UUID
		stamped bool
	}{
		{"explicit owner wins over scope", Scoped(active), explicit, explicit, false},
		{"explicit owner kept when unscoped", Unscoped(), explicit, explicit, false},
		{"fills in scoped company", Scoped(active), uuid.Nil, active, true},
		{"no-op without scope", Unscoped(), uuid.Nil, uuid.Nil, false},
		{"nil company stamps nothing", Scoped(uuid.Nil), uuid.Nil, uuid.Nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &record{owner: tt.initial}
			stamped := Stamp(tt.scope, rec)
			if stamped != tt.stamped {
				t.Errorf("stamped = %v, want %v", stamped, tt.stamped)
			}
			if rec.owner != tt.want {
				t.Errorf("owner = %s, want %s", rec.owner, tt.want)
			}
		})
	}
}

func TestStamp_NilRecord(t *testing.T) {
	if Stamp(Scoped(uuid.New()), nil) {
		t.Error("expected nil record not to be stamped")
	}
}

func TestAdmits(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	if !Admits(Scoped(a), a) {
		t.Error("scope A should admit A")
	}
	if Admits(Scoped(a), b) {
		t.Error("scope A must not admit B")
	}
	if !Admits(Unscoped(), a) || !Admits(Unscoped(), b) {
		t.Error("unscoped should admit every company")
	}
	if Admits(Scoped(uuid.Nil), uuid.Nil) {
		t.Error("nil scope must admit nothing")
	}
}

func TestScope_ZeroValueIsUnscoped(t *testing.T) {
	var s Scope
	if s.IsScoped() {
		t.Fatal("zero scope should be unscoped")
	}
	if _, ok := s.CompanyID(); ok {
		t.Error("zero scope should have no company")
	}
	if s.String() != "unscoped" {
		t.Errorf("String() = %q", s.String())
	}
}

func TestContextHandOff(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("expected no scope on empty context")
	}

	id := uuid.New()
	ctx := WithScope(context.Background(), Scoped(id))
	s, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected scope on context")
	}
	got, scoped := s.CompanyID()
	if !scoped || got != id {
		t.Errorf("CompanyID() = %s, %v; want %s, true", got, scoped, id)
	}

	ctx = WithScope(context.Background(), Unscoped())
	s, ok = FromContext(ctx)
	if !ok || s.IsScoped() {
		t.Error("expected attached unscoped scope")
	}
}
