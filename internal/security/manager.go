package security

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/tenancy"
)

// Manager composes the authorizer and the audit log. Denied checks are
// recorded in the audit log of the user's company.
type Manager struct {
	authz  *Authorizer
	audit  *AuditLogger
	logger *slog.Logger
}

// NewManager creates a Manager.
func NewManager(authz *Authorizer, audit *AuditLogger, logger *slog.Logger) *Manager {
	return &Manager{authz: authz, audit: audit, logger: logger}
}

// Check authorizes u for action on resource. A denial is audited before
// ErrPermissionDenied is returned.
func (m *Manager) Check(ctx context.Context, u *domain.User, resource, action, correlationID string) error {
	err := m.authz.Authorize(ctx, u, resource, action)
	if err == nil || !errors.Is(err, ErrPermissionDenied) {
		return err
	}
	m.Record(ctx, u, resource+":"+action, resource, "", correlationID, ResultDenied)
	return err
}

// Record appends an audit event for u in u's company. Failures are logged,
// not returned, so auditing never changes the outcome of a request.
func (m *Manager) Record(ctx context.Context, u *domain.User, action, resource, resourceID, correlationID, result string) {
	event := &domain.AuditEvent{
		UserID:        u.ID.String(),
		Action:        action,
		Resource:      resource,
		ResourceID:    resourceID,
		Result:        result,
		CorrelationID: correlationID,
	}
	if err := m.audit.LogAction(ctx, tenancy.Scoped(u.CompanyID), event); err != nil {
		m.logger.ErrorContext(ctx, "audit append failed",
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}
}

// Audit returns the audit logger.
func (m *Manager) Audit() *AuditLogger { return m.audit }
