package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/observability"
	"github.com/jkaninda/bureau/internal/protocol"
	"github.com/jkaninda/bureau/internal/tenancy"
	"github.com/jkaninda/bureau/internal/visitor"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// withScope stands in for the HTTP layer's tenant resolution.
func withScope(scope tenancy.Scope, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(tenancy.WithScope(r.Context(), scope)))
	})
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(url, "http"), &websocket.DialOptions{
		Subprotocols: []string{Subprotocol},
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env
}

func TestHandler_RequiresScope(t *testing.T) {
	s := NewServer(visitor.NewFeed(), Options{}, nil, testLogger())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/v1/visits/feed", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestFeed_StreamsOnlyOwnTenant(t *testing.T) {
	feed := visitor.NewFeed()
	metrics := observability.NewMetricsCollector()
	s := NewServer(feed, Options{Buffer: 4}, metrics, testLogger())

	companyA, companyB := uuid.New(), uuid.New()
	srv := httptest.NewServer(withScope(tenancy.Scoped(companyA), s.Handler()))
	defer srv.Close()

	conn := dial(t, srv.URL)

	env := readEnvelope(t, conn)
	if env.Type != protocol.MsgSubscribed || env.CompanyID != companyA.String() {
		t.Fatalf("first message = %s for %s, want subscription to %s", env.Type, env.CompanyID, companyA)
	}

	now := time.Now().UTC()
	feed.Publish(visitor.Event{
		Type:  visitor.EventCheckedIn,
		Visit: domain.Visit{ID: uuid.New(), CompanyID: companyB, VisitorID: uuid.New(), CheckedInAt: now},
	})
	own := domain.Visit{ID: uuid.New(), CompanyID: companyA, VisitorID: uuid.New(), Badge: "A-7", CheckedInAt: now}
	feed.Publish(visitor.Event{Type: visitor.EventCheckedIn, Visit: own, VisitorName: "Ada"})
	out := now.Add(time.Hour)
	own.CheckedOutAt = &out
	feed.Publish(visitor.Event{Type: visitor.EventCheckedOut, Visit: own, VisitorName: "Ada"})

	env = readEnvelope(t, conn)
	if env.Type != protocol.MsgCheckedIn {
		t.Fatalf("type = %s, want %s", env.Type, protocol.MsgCheckedIn)
	}
	var ev protocol.VisitEvent
	if err := env.Decode(&ev); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if ev.VisitID != own.ID.String() || ev.VisitorName != "Ada" || ev.Badge != "A-7" {
		t.Errorf("unexpected event %+v", ev)
	}
	if env.CompanyID != companyA.String() {
		t.Errorf("event company = %s, want %s", env.CompanyID, companyA)
	}

	env = readEnvelope(t, conn)
	if env.Type != protocol.MsgCheckedOut {
		t.Fatalf("type = %s, want %s", env.Type, protocol.MsgCheckedOut)
	}
	if err := env.Decode(&ev); err != nil || ev.CheckedOutAt == nil {
		t.Errorf("checked-out event missing timestamp: %+v, %v", ev, err)
	}
}

func TestFeed_UnsubscribesOnClose(t *testing.T) {
	feed := visitor.NewFeed()
	s := NewServer(feed, Options{}, nil, testLogger())
	srv := httptest.NewServer(withScope(tenancy.Scoped(uuid.New()), s.Handler()))
	defer srv.Close()

	conn := dial(t, srv.URL)
	readEnvelope(t, conn)
	if feed.Subscribers() != 1 {
		t.Fatalf("subscribers = %d, want 1", feed.Subscribers())
	}
	conn.Close(websocket.StatusNormalClosure, "bye")

	deadline := time.Now().Add(5 * time.Second)
	for feed.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription not released after close")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestFeed_Heartbeat(t *testing.T) {
	s := NewServer(visitor.NewFeed(), Options{Heartbeat: 50 * time.Millisecond}, nil, testLogger())
	srv := httptest.NewServer(withScope(tenancy.Scoped(uuid.New()), s.Handler()))
	defer srv.Close()

	conn := dial(t, srv.URL)
	readEnvelope(t, conn)
	if env := readEnvelope(t, conn); env.Type != protocol.MsgPing {
		t.Errorf("type = %s, want %s", env.Type, protocol.MsgPing)
	}
}
