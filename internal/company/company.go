// Package company manages the tenant registry. Companies are the tenants
// themselves, so nothing here takes a tenant scope.
package company

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/storage"
	"github.com/jkaninda/bureau/internal/validation"
)

// ErrInactive is returned when resolving a deactivated company.
var ErrInactive = errors.New("company is deactivated")

// Service manages companies.
type Service struct {
	companies storage.CompanyStore
	logger    *slog.Logger
}

// NewService creates a company Service.
func NewService(store storage.Store, logger *slog.Logger) *Service {
	return &Service{companies: store.Companies(), logger: logger}
}

// Input is the payload for creating a company. Slug is derived from Name when empty.
type Input struct {
	Name string `json:"name" validate:"required,max=120"`
	Slug string `json:"slug" validate:"required,max=63,slug"`
}

// Create registers an active company.
func (s *Service) Create(ctx context.Context, in Input) (*domain.Company, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	if in.Slug == "" {
		in.Slug = Slugify(in.Name)
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	c := &domain.Company{Name: in.Name, Slug: in.Slug, Active: true}
	if err := s.companies.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "company created",
		slog.String("company_id", c.ID.String()),
		slog.String("slug", c.Slug),
	)
	return c, nil
}

// Get returns a company by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	return s.companies.Get(ctx, id)
}

// Lookup resolves ref as a company id, falling back to a slug.
func (s *Service) Lookup(ctx context.Context, ref string) (*domain.Company, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		return s.companies.Get(ctx, id)
	}
	return s.companies.GetBySlug(ctx, strings.ToLower(ref))
}

// Resolve is Lookup restricted to active companies.
func (s *Service) Resolve(ctx context.Context, ref string) (*domain.Company, error) {
	c, err := s.Lookup(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !c.Active {
		return nil, ErrInactive
	}
	return c, nil
}

// List returns companies ordered by name.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]domain.Company, error) {
	return s.companies.List(ctx, activeOnly)
}

// Deactivate marks a company inactive. Its data is kept.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.companies.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "company deactivated", slog.String("company_id", id.String()))
	return nil
}

// Slugify lower-cases name and joins its alphanumeric runs with dashes.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		default:
			dash = true
		}
	}
	return b.String()
}
