package service

import (
	"context"
	"time"

	"spilledin/internal/cache"
	"spilledin/internal/models"
	"spilledin/internal/observability"
	"spilledin/internal/repository"
)

const (
	wrappedTopUsers       = 10
	wrappedTopConfessions = 5
)

// weekdayOrder breaks most-active-day ties toward the start of the week.
var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

// WrappedResult is the Toxic Wrapped view of one company month.
type WrappedResult struct {
	Month          int                  `json:"month"`
	Year           int                  `json:"year"`
	MonthName      string               `json:"month_name"`
	TopUsers       []models.WrappedUser `json:"top_users"`
	TopConfessions []models.Confession  `json:"top_confessions"`
	Stats          models.WrappedStats  `json:"stats"`
}

type WrappedService struct {
	confessionRepo repository.ConfessionRepository
	userRepo       repository.UserRepository
	now            func() time.Time
}

func NewWrappedService(confessionRepo repository.ConfessionRepository, userRepo repository.UserRepository) *WrappedService {
	return &WrappedService{confessionRepo: confessionRepo, userRepo: userRepo, now: time.Now}
}

func (s *WrappedService) GetWrapped(ctx context.Context, companyID uint, month, year int) (*WrappedResult, error) {
	period, err := NewPeriod(month, year)
	if err != nil {
		return nil, err
	}
	ttl := cache.WrappedTTL
	if !period.Ended(s.now().UTC()) {
		ttl = cache.WrappedLiveTTL
	}

	var result WrappedResult
	err = cache.Aside(ctx, cache.WrappedKey(companyID, year, month), &result, ttl, func() error {
		built, err := s.build(ctx, companyID, period)
		if err != nil {
			return err
		}
		result = *built
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *WrappedService) build(ctx context.Context, companyID uint, period Period) (*WrappedResult, error) {
	defer observability.TrackQuery("wrapped", "confessions")()

	users, err := s.userRepo.TopByToxicity(ctx, companyID, false, wrappedTopUsers)
	if err != nil {
		return nil, err
	}
	confessions, err := s.confessionRepo.ListInRange(ctx, companyID, period.Start, period.End)
	if err != nil {
		return nil, err
	}
	if confessions == nil {
		confessions = []models.Confession{}
	}

	result := &WrappedResult{
		Month:          period.Month,
		Year:           period.Year,
		MonthName:      period.MonthName(),
		TopUsers:       make([]models.WrappedUser, len(users)),
		TopConfessions: confessions[:min(len(confessions), wrappedTopConfessions)],
	}

	toxicitySum := 0
	for i, u := range users {
		result.TopUsers[i] = models.WrappedUser{
			AnonymousUsername: u.AnonymousUsername,
			ToxicityScore:     u.ToxicityScore,
			TotalUpvotes:      u.TotalUpvotes,
			TotalDownvotes:    u.TotalDownvotes,
			Tier:              models.TierFor(u.ToxicityScore),
		}
		toxicitySum += u.ToxicityScore
	}
	for i := range result.TopConfessions {
		c := &result.TopConfessions[i]
		c.Author = c.User.PublicAuthor()
	}

	result.Stats = models.WrappedStats{
		TotalConfessions: len(confessions),
		TotalVotes:       totalVotes(confessions),
		MostActiveDay:    mostActiveDay(confessions),
	}
	if len(users) > 0 {
		result.Stats.AverageToxicity = int(jsRound(float64(toxicitySum) / float64(len(users))))
	}
	return result, nil
}

func totalVotes(confessions []models.Confession) int {
	total := 0
	for _, c := range confessions {
		total += c.Upvotes + c.Downvotes
	}
	return total
}

// mostActiveDay returns the weekday with the most confessions, or "" when
// there are none.
func mostActiveDay(confessions []models.Confession) string {
	var counts [7]int
	for _, c := range confessions {
		counts[c.CreatedAt.UTC().Weekday()]++
	}
	best, bestCount := "", 0
	for _, d := range weekdayOrder {
		if counts[d] > bestCount {
			best, bestCount = d.String(), counts[d]
		}
	}
	return best
}
