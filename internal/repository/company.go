package repository

import (
	"context"

	"spilledin/internal/cache"
	"spilledin/internal/models"

	"gorm.io/gorm"
)

// CompanyRepository defines persistence operations for companies.
type CompanyRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Company, error)
	GetByInviteCode(ctx context.Context, code string) (*models.Company, error)
	Create(ctx context.Context, company *models.Company) error
	List(ctx context.Context) ([]models.Company, error)
	UpdateInviteCode(ctx context.Context, id uint, code string) (*models.Company, error)
}

type companyRepository struct {
	db *gorm.DB
}

// NewCompanyRepository returns a new CompanyRepository implementation.
func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) GetByID(ctx context.Context, id uint) (*models.Company, error) {
	var company models.Company
	if err := r.db.WithContext(ctx).First(&company, id).Error; err != nil {
		return nil, wrapNotFound(err, "Company", id)
	}
	return &company, nil
}

// GetByInviteCode expects an already normalized (upper-case) code.
func (r *companyRepository) GetByInviteCode(ctx context.Context, code string) (*models.Company, error) {
	var company models.Company
	err := cache.Aside(ctx, cache.InviteKey(code), &company, cache.InviteTTL, func() error {
		if err := readDB(r.db).WithContext(ctx).Where("invite_code = ?", code).First(&company).Error; err != nil {
			return wrapNotFound(err, "Company", code)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *companyRepository) Create(ctx context.Context, company *models.Company) error {
	if err := r.db.WithContext(ctx).Create(company).Error; err != nil {
		if _, dup := uniqueViolation(err); dup {
			return models.NewConflictError("Invite code already in use")
		}
		return err
	}
	return nil
}

func (r *companyRepository) List(ctx context.Context) ([]models.Company, error) {
	var companies []models.Company
	if err := readDB(r.db).WithContext(ctx).Order("name ASC").Find(&companies).Error; err != nil {
		return nil, err
	}
	return companies, nil
}

func (r *companyRepository) UpdateInviteCode(ctx context.Context, id uint, code string) (*models.Company, error) {
	company, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldCode := company.InviteCode

	if err := r.db.WithContext(ctx).Model(company).Update("invite_code", code).Error; err != nil {
		if _, dup := uniqueViolation(err); dup {
			return nil, models.NewConflictError("Invite code already in use")
		}
		return nil, err
	}
	cache.InvalidateInvite(ctx, oldCode)

	// Cached profiles embed the company, invite code included.
	var userIDs []uint
	if err := r.db.WithContext(ctx).Model(&models.UserProfile{}).
		Where("company_id = ?", id).Pluck("id", &userIDs).Error; err != nil {
		return nil, err
	}
	cache.InvalidateProfiles(ctx, userIDs...)
	return company, nil
}
