// Package ws implements the WebSocket endpoint of the visitor live feed.
// Clients connect after the HTTP layer has resolved their tenant, and receive
// check-in and check-out events of that tenant only.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/jkaninda/bureau/internal/observability"
	"github.com/jkaninda/bureau/internal/protocol"
	"github.com/jkaninda/bureau/internal/tenancy"
	"github.com/jkaninda/bureau/internal/visitor"
)

// Subprotocol is the WebSocket subprotocol spoken on the feed.
const Subprotocol = "bureau-feed-v1"

const writeTimeout = 10 * time.Second

// Options configure the feed server.
type Options struct {
	Heartbeat time.Duration // Interval between server pings. Zero disables them.
	Buffer    int           // Per-connection event buffer.
}

// Server streams visitor feed events over WebSocket.
type Server struct {
	feed    *visitor.Feed
	opts    Options
	metrics *observability.MetricsCollector
	logger  *slog.Logger
}

// NewServer creates a feed server. metrics may be nil.
func NewServer(feed *visitor.Feed, opts Options, metrics *observability.MetricsCollector, logger *slog.Logger) *Server {
	return &Server{feed: feed, opts: opts, metrics: metrics, logger: logger}
}

// Handler returns an http.Handler that upgrades connections to WebSocket.
// The request context must carry a tenancy.Scope; requests without one are
// rejected before the upgrade.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleUpgrade)
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	scope, ok := tenancy.FromContext(r.Context())
	if !ok {
		http.Error(w, "tenant scope required", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols: []string{Subprotocol},
	})
	if err != nil {
		s.logger.Error("websocket accept failed", slog.String("error", err.Error()))
		return
	}

	s.handleConnection(r.Context(), conn, scope)
}

func (s *Server) handleConnection(ctx context.Context, conn *websocket.Conn, scope tenancy.Scope) {
	sub := s.feed.Subscribe(scope, s.opts.Buffer)
	if s.metrics != nil {
		s.metrics.FeedConnections.Inc()
	}
	defer func() {
		sub.Close()
		if s.metrics != nil {
			s.metrics.FeedConnections.Dec()
		}
		if dropped := sub.Dropped(); dropped > 0 {
			s.logger.Warn("feed subscriber dropped events",
				slog.String("scope", scope.String()),
				slog.Uint64("dropped", dropped),
			)
		}
		conn.Close(websocket.StatusNormalClosure, "connection closed")
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.readLoop(ctx, cancel, conn)

	subscribed, _ := protocol.NewEnvelope(protocol.MsgSubscribed, protocol.Subscribed{Scope: scope.String()})
	if id, ok := scope.CompanyID(); ok {
		subscribed.CompanyID = id.String()
	}
	if err := s.writeEnvelope(ctx, conn, subscribed); err != nil {
		return
	}
	s.logger.Info("feed subscriber connected", slog.String("scope", scope.String()))

	var heartbeat <-chan time.Time
	if s.opts.Heartbeat > 0 {
		ticker := time.NewTicker(s.opts.Heartbeat)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("feed subscriber disconnected", slog.String("scope", scope.String()))
			return
		case <-heartbeat:
			env, _ := protocol.NewEnvelope(protocol.MsgPing, nil)
			if err := s.writeEnvelope(ctx, conn, env); err != nil {
				s.logger.Debug("heartbeat ping failed", slog.String("error", err.Error()))
				return
			}
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			env, err := eventEnvelope(ev)
			if err != nil {
				s.logger.Error("encoding feed event", slog.String("error", err.Error()))
				continue
			}
			if err := s.writeEnvelope(ctx, conn, env); err != nil {
				return
			}
			if s.metrics != nil {
				s.metrics.FeedEventsTotal.WithLabelValues(string(env.Type)).Inc()
			}
		}
	}
}

// readLoop consumes client messages (pongs) and cancels ctx when the peer
// goes away. Unknown messages are ignored.
func (s *Server) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) {
	defer cancel()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				s.logger.Debug("feed read failed", slog.String("error", err.Error()))
			}
			return
		}
		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type != protocol.MsgPong {
			s.logger.Debug("ignoring feed message", slog.String("type", string(env.Type)))
		}
	}
}

func eventEnvelope(ev visitor.Event) (*protocol.Envelope, error) {
	msgType := protocol.MsgCheckedIn
	if ev.Type == visitor.EventCheckedOut {
		msgType = protocol.MsgCheckedOut
	}
	v := ev.Visit
	payload := protocol.VisitEvent{
		VisitID:      v.ID.String(),
		VisitorID:    v.VisitorID.String(),
		VisitorName:  ev.VisitorName,
		Purpose:      v.Purpose,
		Badge:        v.Badge,
		CheckedInAt:  v.CheckedInAt,
		CheckedOutAt: v.CheckedOutAt,
	}
	if v.HostUserID != nil {
		payload.HostUserID = v.HostUserID.String()
	}
	env, err := protocol.NewEnvelope(msgType, payload)
	if err != nil {
		return nil, err
	}
	env.CompanyID = v.CompanyID.String()
	return env, nil
}

func (s *Server) writeEnvelope(ctx context.Context, conn *websocket.Conn, env *protocol.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
