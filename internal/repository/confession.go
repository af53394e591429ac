package repository

import (
	"context"
	"strings"
	"time"

	"spilledin/internal/cache"
	"spilledin/internal/models"

	"gorm.io/gorm"
)

// Feed paging bounds.
const (
	DefaultFeedLimit = 20
	MaxFeedLimit     = 100
)

// FeedQuery selects a page of a company feed.
type FeedQuery struct {
	CompanyID uint
	ViewerID  uint
	Search    string
	Sort      string
	Limit     int
	Offset    int
}

// Normalize clamps paging and defaults the sort order.
func (q *FeedQuery) Normalize() {
	if q.Limit <= 0 {
		q.Limit = DefaultFeedLimit
	}
	if q.Limit > MaxFeedLimit {
		q.Limit = MaxFeedLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Sort != models.SortPopular {
		q.Sort = models.SortLatest
	}
	q.Search = strings.TrimSpace(q.Search)
}

// ConfessionRepository defines persistence operations for confessions.
type ConfessionRepository interface {
	Create(ctx context.Context, confession *models.Confession) error
	GetByID(ctx context.Context, id, viewerID uint) (*models.Confession, error)
	Feed(ctx context.Context, q FeedQuery) ([]models.Confession, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	RecentByUser(ctx context.Context, userID uint, limit int) ([]models.ConfessionSummary, error)
	Delete(ctx context.Context, id, userID uint) (*models.Confession, error)
	ListInRange(ctx context.Context, companyID uint, start, end time.Time) ([]models.Confession, error)
}

type confessionRepository struct {
	db *gorm.DB
}

// NewConfessionRepository returns a new ConfessionRepository implementation.
func NewConfessionRepository(db *gorm.DB) ConfessionRepository {
	return &confessionRepository{db: db}
}

func (r *confessionRepository) Create(ctx context.Context, confession *models.Confession) error {
	if err := r.db.WithContext(ctx).Create(confession).Error; err != nil {
		return err
	}
	cache.InvalidateProfiles(ctx, confession.UserID)
	return nil
}

// withViewerVote selects the viewer's vote into Confession.UserVote.
func withViewerVote(db *gorm.DB, viewerID uint) *gorm.DB {
	return db.Select("confessions.*, v.vote_type AS user_vote").
		Joins("LEFT JOIN votes v ON v.confession_id = confessions.id AND v.user_id = ?", viewerID)
}

func (r *confessionRepository) GetByID(ctx context.Context, id, viewerID uint) (*models.Confession, error) {
	var confession models.Confession
	err := withViewerVote(r.db.WithContext(ctx).Model(&models.Confession{}), viewerID).
		Preload("User").
		Where("confessions.id = ?", id).
		First(&confession).Error
	if err != nil {
		return nil, wrapNotFound(err, "Confession", id)
	}
	return &confession, nil
}

func (r *confessionRepository) Feed(ctx context.Context, q FeedQuery) ([]models.Confession, error) {
	q.Normalize()

	db := withViewerVote(readDB(r.db).WithContext(ctx).Model(&models.Confession{}), q.ViewerID).
		Preload("User").
		Where("confessions.company_id = ?", q.CompanyID)

	if q.Search != "" {
		pattern := likePattern(strings.ToLower(q.Search))
		db = db.Joins("JOIN user_profiles up ON up.id = confessions.user_id").
			Where(`(LOWER(confessions.content) LIKE ? ESCAPE '\' OR LOWER(up.anonymous_username) LIKE ? ESCAPE '\')`, pattern, pattern)
	}

	if q.Sort == models.SortPopular {
		db = db.Order("confessions.net_score DESC")
	}
	db = db.Order("confessions.created_at DESC").Order("confessions.id DESC")

	var confessions []models.Confession
	if err := db.Limit(q.Limit).Offset(q.Offset).Find(&confessions).Error; err != nil {
		return nil, err
	}
	return confessions, nil
}

func (r *confessionRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := readDB(r.db).WithContext(ctx).Model(&models.Confession{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *confessionRepository) RecentByUser(ctx context.Context, userID uint, limit int) ([]models.ConfessionSummary, error) {
	var recent []models.ConfessionSummary
	err := readDB(r.db).WithContext(ctx).Model(&models.Confession{}).
		Select("id, content, created_at, upvotes, downvotes").
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Scan(&recent).Error
	return recent, err
}

// Delete removes a confession owned by userID. Another user's confession is
// reported as not found. The author's counters lose the confession's votes.
func (r *confessionRepository) Delete(ctx context.Context, id, userID uint) (*models.Confession, error) {
	var confession models.Confession
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := forUpdate(tx).Where("id = ? AND user_id = ?", id, userID).First(&confession).Error
		if err != nil {
			return wrapNotFound(err, "Confession", id)
		}

		if net := confession.NetScore; confession.Upvotes != 0 || confession.Downvotes != 0 {
			if err := tx.Model(&models.UserProfile{}).Where("id = ?", userID).Updates(map[string]any{
				"total_upvotes":   gorm.Expr("total_upvotes - ?", confession.Upvotes),
				"total_downvotes": gorm.Expr("total_downvotes - ?", confession.Downvotes),
				"toxicity_score":  gorm.Expr("toxicity_score - ?", net),
			}).Error; err != nil {
				return err
			}
			if net != 0 {
				if err := recordToxicity(tx, userID, nil, -net, models.ReasonConfessionDelete, time.Now().UTC()); err != nil {
					return err
				}
			}
		}

		if err := tx.Model(&models.ToxicityEvent{}).Where("confession_id = ?", id).Update("confession_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("confession_id = ?", id).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		return tx.Delete(&confession).Error
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateProfiles(ctx, userID)
	return &confession, nil
}

// ListInRange returns the company's confessions created within [start, end],
// highest net score first.
func (r *confessionRepository) ListInRange(ctx context.Context, companyID uint, start, end time.Time) ([]models.Confession, error) {
	var confessions []models.Confession
	err := readDB(r.db).WithContext(ctx).
		Preload("User").
		Where("company_id = ? AND created_at >= ? AND created_at <= ?", companyID, start, end).
		Order("net_score DESC").Order("created_at ASC").Order("id ASC").
		Find(&confessions).Error
	return confessions, err
}
