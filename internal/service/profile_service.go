package service

import (
	"context"
	"errors"
	"strings"

	"spilledin/internal/cache"
	"spilledin/internal/middleware"
	"spilledin/internal/models"
	"spilledin/internal/repository"
	"spilledin/internal/validation"
)

// RecentConfessionsLimit is the number of confessions shown on a profile.
const RecentConfessionsLimit = 5

// ProfileStats summarizes the user's posting.
type ProfileStats struct {
	ConfessionCount   int64                      `json:"confession_count"`
	RecentConfessions []models.ConfessionSummary `json:"recent_confessions"`
}

// ProfileView is the owner's view of their profile.
type ProfileView struct {
	Profile *models.UserProfile `json:"profile"`
	Stats   ProfileStats        `json:"stats"`
	Tier    models.ToxicityTier `json:"tier"`
}

type ProfileService struct {
	userRepo       repository.UserRepository
	confessionRepo repository.ConfessionRepository
	awards         *AwardService
	usernames      *UsernameGenerator
	events         FeedEvents
}

func NewProfileService(
	userRepo repository.UserRepository,
	confessionRepo repository.ConfessionRepository,
	awards *AwardService,
	usernames *UsernameGenerator,
	events FeedEvents,
) *ProfileService {
	return &ProfileService{
		userRepo:       userRepo,
		confessionRepo: confessionRepo,
		awards:         awards,
		usernames:      usernames,
		events:         events,
	}
}

func hasCode(err error, code string) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func profileNotFound(err error) error {
	if hasCode(err, models.CodeNotFound) {
		return models.NewNotFoundMessage("Profile not found")
	}
	return err
}

func (s *ProfileService) GetProfile(ctx context.Context, userID uint) (*ProfileView, error) {
	var view ProfileView
	err := cache.Aside(ctx, cache.ProfileKey(userID), &view, cache.ProfileTTL, func() error {
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return profileNotFound(err)
		}
		count, err := s.confessionRepo.CountByUser(ctx, userID)
		if err != nil {
			return err
		}
		recent, err := s.confessionRepo.RecentByUser(ctx, userID, RecentConfessionsLimit)
		if err != nil {
			return err
		}
		if recent == nil {
			recent = []models.ConfessionSummary{}
		}
		view = ProfileView{
			Profile: user,
			Stats:   ProfileStats{ConfessionCount: count, RecentConfessions: recent},
			Tier:    models.TierFor(user.ToxicityScore),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// UpdateUsername sets a user-chosen anonymous username.
func (s *ProfileService) UpdateUsername(ctx context.Context, userID uint, username string) (*ProfileView, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 {
		return nil, models.NewValidationError("Username must be at least 3 characters")
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if _, err := s.userRepo.UpdateUsername(ctx, userID, username); err != nil {
		return nil, profileNotFound(err)
	}
	return s.GetProfile(ctx, userID)
}

// RegenerateUsername replaces the username with a fresh generated one.
func (s *ProfileService) RegenerateUsername(ctx context.Context, userID uint) (string, error) {
	for range MaxUsernameAttempts {
		name, err := s.usernames.GenerateUnique(ctx)
		if err != nil {
			return "", models.NewInternalError(err)
		}
		_, err = s.userRepo.UpdateUsername(ctx, userID, name)
		if err == nil {
			return name, nil
		}
		// Lost a race for the name; try another one.
		if !hasCode(err, models.CodeConflict) {
			return "", profileNotFound(err)
		}
	}
	return "", models.NewInternalError(ErrNoUniqueUsername)
}

// ToxicityHistory returns score points for charting. Without recorded changes
// a single point with the current score is returned.
func (s *ProfileService) ToxicityHistory(ctx context.Context, userID uint) ([]models.ToxicityHistoryEntry, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, profileNotFound(err)
	}
	events, err := s.userRepo.ToxicityHistory(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return []models.ToxicityHistoryEntry{{Date: user.CreatedAt, Score: user.ToxicityScore, Change: 0}}, nil
	}
	history := make([]models.ToxicityHistoryEntry, len(events))
	for i, e := range events {
		history[i] = models.ToxicityHistoryEntry{Date: e.CreatedAt, Score: e.Score, Change: e.Delta}
	}
	return history, nil
}

func (s *ProfileService) Awards(ctx context.Context, userID uint) ([]models.Award, error) {
	return s.awards.ListForUser(ctx, userID)
}

// DeleteAccount removes the user and everything they posted. Confessions
// whose score changed because the user's votes were withdrawn are
// republished to their feeds.
func (s *ProfileService) DeleteAccount(ctx context.Context, userID uint) error {
	changes, err := s.userRepo.Delete(ctx, userID)
	if err != nil {
		return profileNotFound(err)
	}
	middleware.Logger.InfoContext(ctx, "account deleted", "user_id", userID, "votes_reversed", len(changes))
	if s.events == nil {
		return nil
	}
	for _, c := range changes {
		s.events.VoteUpdated(ctx, c.Confession.CompanyID, c.Result())
	}
	return nil
}
