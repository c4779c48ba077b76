package security

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/storage"
	"github.com/jkaninda/bureau/internal/tenancy"
)

// AuditLogger appends audit events to the tenant-scoped audit table and
// mirrors them to the structured log. Events are never updated or deleted.
type AuditLogger struct {
	store  storage.AuditStore
	logger *slog.Logger
	now    func() time.Time
}

// NewAuditLogger creates an AuditLogger writing to store.
func NewAuditLogger(store storage.AuditStore, logger *slog.Logger) *AuditLogger {
	return &AuditLogger{store: store, logger: logger, now: time.Now}
}

// LogAction appends event under scope. The event's company is stamped from
// scope when unset, exactly like any other tenant-scoped record.
func (a *AuditLogger) LogAction(ctx context.Context, scope tenancy.Scope, event *domain.AuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = a.now().UTC()
	}
	if err := a.store.Append(ctx, scope, event); err != nil {
		return fmt.Errorf("appending audit event: %w", err)
	}

	a.logger.InfoContext(ctx, "audit event logged",
		slog.String("company_id", event.CompanyID.String()),
		slog.String("action", event.Action),
		slog.String("resource", event.Resource),
		slog.String("user_id", event.UserID),
		slog.String("result", event.Result),
		slog.String("correlation_id", event.CorrelationID),
	)
	return nil
}

// Recent returns the newest events visible in scope, optionally for one user.
func (a *AuditLogger) Recent(ctx context.Context, scope tenancy.Scope, userID string, limit int) ([]domain.AuditEvent, error) {
	return a.store.Query(ctx, scope, userID, limit)
}
