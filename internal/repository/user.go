package repository

import (
	"context"
	"strings"
	"time"

	"spilledin/internal/cache"
	"spilledin/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for user profiles.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.UserProfile, error)
	GetByEmail(ctx context.Context, email string) (*models.UserProfile, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, user *models.UserProfile) error
	UpdateUsername(ctx context.Context, id uint, username string) (*models.UserProfile, error)
	UpdatePassword(ctx context.Context, id uint, hash string) error
	SetAdmin(ctx context.Context, id uint, admin bool) error
	TopByToxicity(ctx context.Context, companyID uint, onlyPositive bool, limit int) ([]models.UserProfile, error)
	ToxicityHistory(ctx context.Context, userID uint, limit int) ([]models.ToxicityEvent, error)
	Delete(ctx context.Context, id uint) ([]VoteChange, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.UserProfile, error) {
	var user models.UserProfile
	if err := r.db.WithContext(ctx).Preload("Company").First(&user, id).Error; err != nil {
		return nil, wrapNotFound(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	var user models.UserProfile
	err := r.db.WithContext(ctx).Preload("Company").
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, wrapNotFound(err, "User", email)
	}
	return &user, nil
}

func (r *userRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserProfile{}).
		Where("anonymous_username = ?", username).
		Count(&count).Error
	return count > 0, err
}

func (r *userRepository) Create(ctx context.Context, user *models.UserProfile) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return translateUserConflict(err)
	}
	return nil
}

func translateUserConflict(err error) error {
	constraint, dup := uniqueViolation(err)
	if !dup {
		return err
	}
	if strings.Contains(constraint, "email") {
		return models.NewConflictError("Email already registered")
	}
	return models.NewConflictError("Username already taken")
}

func (r *userRepository) UpdateUsername(ctx context.Context, id uint, username string) (*models.UserProfile, error) {
	res := r.db.WithContext(ctx).Model(&models.UserProfile{}).
		Where("id = ?", id).
		Update("anonymous_username", username)
	if res.Error != nil {
		return nil, translateUserConflict(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundMessage("Profile not found")
	}
	cache.InvalidateProfiles(ctx, id)
	return r.GetByID(ctx, id)
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return r.db.WithContext(ctx).Model(&models.UserProfile{}).
		Where("id = ?", id).
		Update("password", hash).Error
}

func (r *userRepository) SetAdmin(ctx context.Context, id uint, admin bool) error {
	res := r.db.WithContext(ctx).Model(&models.UserProfile{}).
		Where("id = ?", id).
		Update("is_admin", admin)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	cache.InvalidateProfiles(ctx, id)
	return nil
}

// TopByToxicity lists company users by descending toxicity. limit <= 0
// returns every match.
func (r *userRepository) TopByToxicity(ctx context.Context, companyID uint, onlyPositive bool, limit int) ([]models.UserProfile, error) {
	q := readDB(r.db).WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("toxicity_score DESC").Order("id ASC")
	if onlyPositive {
		q = q.Where("toxicity_score > 0")
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var users []models.UserProfile
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) ToxicityHistory(ctx context.Context, userID uint, limit int) ([]models.ToxicityEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	// Newest N, returned oldest first for charting.
	var events []models.ToxicityEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

// Delete removes the account. The user's votes are reversed first so other
// authors' scores no longer include them; the returned changes describe
// those reversals.
func (r *userRepository) Delete(ctx context.Context, id uint) ([]VoteChange, error) {
	var changes []VoteChange
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.UserProfile
		if err := forUpdate(tx).First(&user, id).Error; err != nil {
			return wrapNotFound(err, "User", id)
		}

		var votes []models.Vote
		if err := tx.Where("user_id = ?", id).Order("id ASC").Find(&votes).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, v := range votes {
			// Re-applying the same type toggles the vote off.
			change, err := applyVote(tx, v.ConfessionID, 0, id, v.VoteType, models.ReasonVoterDeleted, now)
			if err != nil {
				return err
			}
			if change.AuthorID != id {
				changes = append(changes, *change)
			}
		}

		var ownIDs []uint
		if err := tx.Model(&models.Confession{}).Where("user_id = ?", id).Pluck("id", &ownIDs).Error; err != nil {
			return err
		}
		if len(ownIDs) > 0 {
			if err := tx.Where("confession_id IN ?", ownIDs).Delete(&models.Vote{}).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.ToxicityEvent{}).Where("confession_id IN ?", ownIDs).Update("confession_id", nil).Error; err != nil {
				return err
			}
		}
		for _, m := range []any{&models.Confession{}, &models.Award{}, &models.ToxicityEvent{}} {
			if err := tx.Where("user_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.UserProfile{}, id).Error
	})
	if err != nil {
		return nil, err
	}

	ids := []uint{id}
	for _, c := range changes {
		ids = append(ids, c.AuthorID)
	}
	cache.InvalidateProfiles(ctx, ids...)
	return changes, nil
}
