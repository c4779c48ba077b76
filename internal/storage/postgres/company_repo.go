package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/storage"
)

// CompanyRepository manages tenant records. Companies are the tenants
// themselves, so no tenant scope applies here.
type CompanyRepository struct {
	db *gorm.DB
}

// NewCompanyRepository creates a CompanyRepository.
func NewCompanyRepository(db *gorm.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// Create inserts a company and fills in its generated fields.
func (r *CompanyRepository) Create(ctx context.Context, c *domain.Company) error {
	model := toCompanyModel(c)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return translateError(fmt.Sprintf("creating company %q", c.Slug), err)
	}
	*c = *toCompanyDomain(&model)
	return nil
}

// Get retrieves a company by ID.
func (r *CompanyRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	var model CompanyModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(fmt.Sprintf("getting company %s", id), err)
	}
	return toCompanyDomain(&model), nil
}

// GetBySlug retrieves a company by its unique slug.
func (r *CompanyRepository) GetBySlug(ctx context.Context, slug string) (*domain.Company, error) {
	var model CompanyModel
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&model).Error; err != nil {
		return nil, translateError(fmt.Sprintf("getting company %q", slug), err)
	}
	return toCompanyDomain(&model), nil
}

// List returns companies ordered by name.
func (r *CompanyRepository) List(ctx context.Context, activeOnly bool) ([]domain.Company, error) {
	q := r.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var models []CompanyModel
	if err := q.Find(&models).Error; err != nil {
		return nil, translateError("listing companies", err)
	}
	return toDomainSlice(models, toCompanyDomain), nil
}

// SetActive toggles the active flag of a company.
func (r *CompanyRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&CompanyModel{}).
		Where("id = ?", id).
		Update("active", active)
	if result.Error != nil {
		return translateError(fmt.Sprintf("updating company %s", id), result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("updating company %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// Compile-time check.
var _ storage.CompanyStore = (*CompanyRepository)(nil)
