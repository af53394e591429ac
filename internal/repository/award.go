package repository

import (
	"context"
	"time"

	"spilledin/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MonthlyLeaders are the per-category winners of one company month. A zero
// ID means no user qualified.
type MonthlyLeaders struct {
	MostSpilled       uint
	CrowdFavorite     uint
	MostControversial uint
}

// AwardRepository defines persistence operations for awards.
type AwardRepository interface {
	Grant(ctx context.Context, award *models.Award) (bool, error)
	HasType(ctx context.Context, userID uint, awardType string) (bool, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Award, error)
	MonthlyLeaders(ctx context.Context, companyID uint, start, end time.Time) (*MonthlyLeaders, error)
}

type awardRepository struct {
	db *gorm.DB
}

// NewAwardRepository returns a new AwardRepository implementation.
func NewAwardRepository(db *gorm.DB) AwardRepository {
	return &awardRepository{db: db}
}

// Grant inserts the award unless the user already holds it for the period.
// It reports whether a row was created.
func (r *awardRepository) Grant(ctx context.Context, award *models.Award) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "award_type"}, {Name: "month"}, {Name: "year"}},
			DoNothing: true,
		}).
		Create(award)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// HasType reports whether the user holds awardType for any period.
func (r *awardRepository) HasType(ctx context.Context, userID uint, awardType string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Award{}).
		Where("user_id = ? AND award_type = ?", userID, awardType).
		Count(&count).Error
	return count > 0, err
}

func (r *awardRepository) ListByUser(ctx context.Context, userID uint) ([]models.Award, error) {
	var awards []models.Award
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("year DESC").Order("month DESC").Order("created_at DESC").Order("id DESC").
		Find(&awards).Error
	return awards, err
}

type leaderRow struct {
	UserID uint
	Total  int64
}

func (r *awardRepository) MonthlyLeaders(ctx context.Context, companyID uint, start, end time.Time) (*MonthlyLeaders, error) {
	db := readDB(r.db).WithContext(ctx)
	inRange := func() *gorm.DB {
		return db.Model(&models.Confession{}).
			Where("company_id = ? AND created_at >= ? AND created_at <= ?", companyID, start, end)
	}

	leaders := &MonthlyLeaders{}

	var spilled []leaderRow
	if err := inRange().Select("user_id, COUNT(*) AS total").
		Group("user_id").Order("total DESC").Order("user_id ASC").Limit(1).
		Scan(&spilled).Error; err != nil {
		return nil, err
	}
	if len(spilled) > 0 {
		leaders.MostSpilled = spilled[0].UserID
	}

	var favorite []models.Confession
	if err := inRange().Where("net_score > 0").
		Order("net_score DESC").Order("created_at ASC").Order("id ASC").Limit(1).
		Find(&favorite).Error; err != nil {
		return nil, err
	}
	if len(favorite) > 0 {
		leaders.CrowdFavorite = favorite[0].UserID
	}

	var controversial []leaderRow
	if err := inRange().Select("user_id, SUM(downvotes) AS total").
		Group("user_id").Having("SUM(downvotes) > 0").Order("total DESC").Order("user_id ASC").Limit(1).
		Scan(&controversial).Error; err != nil {
		return nil, err
	}
	if len(controversial) > 0 {
		leaders.MostControversial = controversial[0].UserID
	}

	return leaders, nil
}
