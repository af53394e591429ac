package repository

import (
	"context"
	"errors"
	"time"

	"spilledin/internal/cache"
	"spilledin/internal/models"

	"gorm.io/gorm"
)

// VoteChange describes the effect of one applied vote.
type VoteChange struct {
	Confession *models.Confession
	UserVote   models.VoteType
	AuthorID   uint
	// Delta is the change of the confession's net score, which is also the
	// change of its author's toxicity score.
	Delta int
}

// Result converts the change into the API payload.
func (c *VoteChange) Result() models.VoteResult {
	return models.NewVoteResult(c.Confession.ID, c.Confession.Tally(), c.UserVote)
}

// VoteRepository defines persistence operations for votes.
type VoteRepository interface {
	CastVote(ctx context.Context, companyID, userID, confessionID uint, voteType models.VoteType) (*VoteChange, error)
	GetUserVote(ctx context.Context, userID, confessionID uint) (models.VoteType, error)
	CountInRange(ctx context.Context, companyID uint, start, end time.Time) (int64, error)
}

type voteRepository struct {
	db *gorm.DB
}

// NewVoteRepository returns a new VoteRepository implementation.
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

// CastVote toggles userID's vote on a confession inside one transaction.
func (r *voteRepository) CastVote(ctx context.Context, companyID, userID, confessionID uint, voteType models.VoteType) (*VoteChange, error) {
	var change *VoteChange
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		change, err = applyVote(tx, confessionID, companyID, userID, voteType, models.ReasonVote, time.Now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateProfiles(ctx, change.AuthorID)
	return change, nil
}

func (r *voteRepository) GetUserVote(ctx context.Context, userID, confessionID uint) (models.VoteType, error) {
	var vote models.Vote
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND confession_id = ?", userID, confessionID).
		First(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.VoteNone, nil
	}
	if err != nil {
		return models.VoteNone, err
	}
	return vote.VoteType, nil
}

// CountInRange counts votes cast on the company's confessions in [start, end].
func (r *voteRepository) CountInRange(ctx context.Context, companyID uint, start, end time.Time) (int64, error) {
	var count int64
	err := readDB(r.db).WithContext(ctx).Model(&models.Vote{}).
		Joins("JOIN confessions ON confessions.id = votes.confession_id").
		Where("confessions.company_id = ?", companyID).
		Where("votes.created_at >= ? AND votes.created_at <= ?", start, end).
		Count(&count).Error
	return count, err
}

// applyVote runs the vote toggle against tx. companyID 0 skips the company
// scope check. The confession row is locked for the duration of tx.
func applyVote(tx *gorm.DB, confessionID, companyID, userID uint, requested models.VoteType, reason string, now time.Time) (*VoteChange, error) {
	var confession models.Confession
	q := forUpdate(tx).Where("id = ?", confessionID)
	if companyID != 0 {
		q = q.Where("company_id = ?", companyID)
	}
	if err := q.First(&confession).Error; err != nil {
		return nil, wrapNotFound(err, "Confession", confessionID)
	}

	var existing models.Vote
	current := models.VoteNone
	err := tx.Where("user_id = ? AND confession_id = ?", userID, confessionID).First(&existing).Error
	switch {
	case err == nil:
		current = existing.VoteType
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, err
	}

	before := confession.Tally()
	after, userVote := before.Apply(current, requested)

	switch {
	case userVote == models.VoteNone:
		if err := tx.Delete(&existing).Error; err != nil {
			return nil, err
		}
	case current == models.VoteNone:
		vote := models.Vote{UserID: userID, ConfessionID: confessionID, VoteType: userVote}
		if err := tx.Create(&vote).Error; err != nil {
			return nil, err
		}
	default:
		if err := tx.Model(&existing).Update("vote_type", userVote).Error; err != nil {
			return nil, err
		}
	}

	confession.SetTally(after)
	if err := tx.Model(&confession).Updates(map[string]any{
		"upvotes":   confession.Upvotes,
		"downvotes": confession.Downvotes,
		"net_score": confession.NetScore,
	}).Error; err != nil {
		return nil, err
	}

	delta := after.Net() - before.Net()
	if err := tx.Model(&models.UserProfile{}).Where("id = ?", confession.UserID).Updates(map[string]any{
		"total_upvotes":   gorm.Expr("total_upvotes + ?", after.Upvotes-before.Upvotes),
		"total_downvotes": gorm.Expr("total_downvotes + ?", after.Downvotes-before.Downvotes),
		"toxicity_score":  gorm.Expr("toxicity_score + ?", delta),
	}).Error; err != nil {
		return nil, err
	}
	if delta != 0 {
		if err := recordToxicity(tx, confession.UserID, &confession.ID, delta, reason, now); err != nil {
			return nil, err
		}
	}

	return &VoteChange{
		Confession: &confession,
		UserVote:   userVote,
		AuthorID:   confession.UserID,
		Delta:      delta,
	}, nil
}

// recordToxicity appends a history event carrying the author's score after
// the change.
func recordToxicity(tx *gorm.DB, userID uint, confessionID *uint, delta int, reason string, now time.Time) error {
	var score int
	if err := tx.Model(&models.UserProfile{}).Where("id = ?", userID).Select("toxicity_score").Scan(&score).Error; err != nil {
		return err
	}
	return tx.Create(&models.ToxicityEvent{
		UserID:       userID,
		ConfessionID: confessionID,
		Delta:        delta,
		Score:        score,
		Reason:       reason,
		CreatedAt:    now,
	}).Error
}
