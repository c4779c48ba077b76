// Package visitor implements front-desk visitor management: the visitor
// registry, check-in and check-out, and the live feed of on-site changes.
package visitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/storage"
	"github.com/jkaninda/bureau/internal/tenancy"
	"github.com/jkaninda/bureau/internal/validation"
)

var (
	// ErrAlreadyCheckedIn is returned when a visitor with an open visit checks in again.
	ErrAlreadyCheckedIn = errors.New("visitor is already checked in")
	// ErrNotCheckedIn is returned when checking out a visit that is already closed.
	ErrNotCheckedIn = errors.New("visit is not checked in")
)

// closeStaleBatch is how many stale visits CloseStale reads per query.
const closeStaleBatch = 200

// Service implements visitor management.
type Service struct {
	visitors storage.VisitorStore
	visits   storage.VisitStore
	users    storage.UserStore
	feed     *Feed
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a visitor Service publishing to feed. feed may be nil.
func NewService(store storage.Store, feed *Feed, logger *slog.Logger) *Service {
	return &Service{
		visitors: store.Visitors(),
		visits:   store.Visits(),
		users:    store.Users(),
		feed:     feed,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// --- Registry ---

// VisitorInput is the payload for registering or updating a visitor.
type VisitorInput struct {
	Name         string `json:"name" validate:"required,max=120"`
	Email        string `json:"email" validate:"omitempty,email"`
	Phone        string `json:"phone" validate:"max=32"`
	Organization string `json:"organization" validate:"max=120"`
}

func (in *VisitorInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.Organization = strings.TrimSpace(in.Organization)
}

// Register adds a visitor to the registry.
func (s *Service) Register(ctx context.Context, scope tenancy.Scope, in VisitorInput) (*domain.Visitor, error) {
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	v := &domain.Visitor{Name: in.Name, Email: in.Email, Phone: in.Phone, Organization: in.Organization}
	if err := s.visitors.Create(ctx, scope, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Get returns a visitor visible in scope.
func (s *Service) Get(ctx context.Context, scope tenancy.Scope, id uuid.UUID) (*domain.Visitor, error) {
	return s.visitors.Get(ctx, scope, id)
}

// List returns visitors visible in scope matching search.
func (s *Service) List(ctx context.Context, scope tenancy.Scope, search string, page domain.Page) ([]domain.Visitor, error) {
	return s.visitors.List(ctx, scope, search, page)
}

// Update replaces a visitor's details.
func (s *Service) Update(ctx context.Context, scope tenancy.Scope, id uuid.UUID, in VisitorInput) (*domain.Visitor, error) {
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	v, err := s.visitors.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	v.Name, v.Email, v.Phone, v.Organization = in.Name, in.Email, in.Phone, in.Organization
	if err := s.visitors.Update(ctx, scope, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Delete removes a visitor who is not on site.
func (s *Service) Delete(ctx context.Context, scope tenancy.Scope, id uuid.UUID) error {
	if _, err := s.visits.OpenForVisitor(ctx, scope, id); err == nil {
		return ErrAlreadyCheckedIn
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return s.visitors.Delete(ctx, scope, id)
}

// --- Visits ---

// CheckInInput is the payload for checking a visitor in.
type CheckInInput struct {
	VisitorID  uuid.UUID  `json:"visitor_id" validate:"required"`
	HostUserID *uuid.UUID `json:"host_user_id,omitempty"`
	Purpose    string     `json:"purpose" validate:"max=200"`
	Badge      string     `json:"badge" validate:"max=32"`
}

// CheckIn opens a visit. The visitor, and the host when given, must be
// visible in scope. The visit is owned by the visitor's company.
func (s *Service) CheckIn(ctx context.Context, scope tenancy.Scope, in CheckInInput) (*domain.Visit, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	v, err := s.visitors.Get(ctx, scope, in.VisitorID)
	if err != nil {
		return nil, err
	}
	if in.HostUserID != nil {
		host, err := s.users.Get(ctx, scope, *in.HostUserID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, validation.Invalid("host_user_id", "unknown host")
		}
		if err != nil {
			return nil, err
		}
		if host.CompanyID != v.CompanyID {
			return nil, validation.Invalid("host_user_id", "host belongs to another company")
		}
	}

	if _, err := s.visits.OpenForVisitor(ctx, scope, v.ID); err == nil {
		return nil, ErrAlreadyCheckedIn
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	visit := &domain.Visit{
		CompanyID:   v.CompanyID,
		VisitorID:   v.ID,
		HostUserID:  in.HostUserID,
		Purpose:     strings.TrimSpace(in.Purpose),
		Badge:       strings.TrimSpace(in.Badge),
		CheckedInAt: s.now(),
	}
	if err := s.visits.Create(ctx, scope, visit); err != nil {
		// Lost a race with a concurrent check-in of the same visitor.
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrAlreadyCheckedIn
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "visitor checked in",
		slog.String("scope", scope.String()),
		slog.String("visit_id", visit.ID.String()),
		slog.String("visitor_id", v.ID.String()),
	)
	s.publish(EventCheckedIn, visit, v.Name)
	return visit, nil
}

// CheckOut closes an open visit.
func (s *Service) CheckOut(ctx context.Context, scope tenancy.Scope, visitID uuid.UUID) (*domain.Visit, error) {
	visit, err := s.visits.Get(ctx, scope, visitID)
	if err != nil {
		return nil, err
	}
	if !visit.Open() {
		return nil, ErrNotCheckedIn
	}
	if err := s.closeVisit(ctx, scope, visit); err != nil {
		return nil, err
	}
	return visit, nil
}

// ListActive returns a page of the visits currently open in scope, oldest first.
func (s *Service) ListActive(ctx context.Context, scope tenancy.Scope, page domain.Page) ([]domain.Visit, error) {
	return s.visits.ListOpen(ctx, scope, time.Time{}, page)
}

// CloseStale checks out every visit in scope that has been open longer than
// olderThan. Run Unscoped it sweeps all companies. It returns the number of
// visits closed.
func (s *Service) CloseStale(ctx context.Context, scope tenancy.Scope, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		return 0, validation.Invalid("older_than", "must be positive")
	}
	cutoff := s.now().Add(-olderThan)

	// Closed visits drop out of the open set, so every batch reads the
	// first page again until a short page shows the set is exhausted.
	closed := 0
	for {
		stale, err := s.visits.ListOpen(ctx, scope, cutoff, domain.Page{Limit: closeStaleBatch})
		if err != nil {
			return closed, fmt.Errorf("listing stale visits: %w", err)
		}
		for i := range stale {
			visit := &stale[i]
			// Close each visit within its own company even when sweeping Unscoped.
			err := s.closeVisit(ctx, tenancy.Scoped(visit.CompanyID), visit)
			switch {
			case err == nil:
				closed++
			case errors.Is(err, ErrNotCheckedIn):
				// Checked out concurrently.
			default:
				return closed, err
			}
		}
		if len(stale) < closeStaleBatch {
			break
		}
		if err := ctx.Err(); err != nil {
			return closed, err
		}
	}
	if closed > 0 {
		s.logger.InfoContext(ctx, "stale visits closed",
			slog.String("scope", scope.String()),
			slog.Int("count", closed),
		)
	}
	return closed, nil
}

func (s *Service) closeVisit(ctx context.Context, scope tenancy.Scope, visit *domain.Visit) error {
	at := s.now()
	if err := s.visits.CheckOut(ctx, scope, visit.ID, at); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotCheckedIn
		}
		return err
	}
	visit.CheckedOutAt = &at

	name := ""
	if v, err := s.visitors.Get(ctx, scope, visit.VisitorID); err == nil {
		name = v.Name
	}
	s.publish(EventCheckedOut, visit, name)
	return nil
}

func (s *Service) publish(t EventType, visit *domain.Visit, visitorName string) {
	if s.feed == nil {
		return
	}
	s.feed.Publish(Event{Type: t, Visit: *visit, VisitorName: visitorName})
}
