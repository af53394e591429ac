package repository

import (
	"context"
	"errors"

	"spilledin/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecapRepository stores generated monthly summaries.
type RecapRepository interface {
	Get(ctx context.Context, companyID uint, month, year int) (*models.MonthlyRecap, bool, error)
	Save(ctx context.Context, recap *models.MonthlyRecap) error
}

type recapRepository struct {
	db *gorm.DB
}

// NewRecapRepository returns a new RecapRepository implementation.
func NewRecapRepository(db *gorm.DB) RecapRepository {
	return &recapRepository{db: db}
}

func (r *recapRepository) Get(ctx context.Context, companyID uint, month, year int) (*models.MonthlyRecap, bool, error) {
	var recap models.MonthlyRecap
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND month = ? AND year = ?", companyID, month, year).
		First(&recap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &recap, true, nil
}

// Save upserts on (company_id, month, year).
func (r *recapRepository) Save(ctx context.Context, recap *models.MonthlyRecap) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "company_id"}, {Name: "month"}, {Name: "year"}},
			DoUpdates: clause.AssignmentColumns([]string{"summary", "stats", "generated_at"}),
		}).
		Create(recap).Error
}
