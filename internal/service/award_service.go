package service

import (
	"context"
	"time"

	"spilledin/internal/middleware"
	"spilledin/internal/models"
	"spilledin/internal/repository"
)

type AwardService struct {
	awardRepo repository.AwardRepository
	now       func() time.Time
}

func NewAwardService(awardRepo repository.AwardRepository) *AwardService {
	return &AwardService{awardRepo: awardRepo, now: time.Now}
}

func (s *AwardService) ListForUser(ctx context.Context, userID uint) ([]models.Award, error) {
	awards, err := s.awardRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if awards == nil {
		awards = []models.Award{}
	}
	return awards, nil
}

// GrantFirstConfession awards the badge for the period of the confession.
// A user holds it at most once, whatever period it was first earned in.
func (s *AwardService) GrantFirstConfession(ctx context.Context, userID uint, at time.Time) (bool, error) {
	held, err := s.awardRepo.HasType(ctx, userID, models.AwardFirstConfession)
	if err != nil || held {
		return false, err
	}
	return s.awardRepo.Grant(ctx, models.NewAward(userID, models.AwardFirstConfession, at))
}

// GrantMonthly hands out the monthly awards of a company for a month that
// has fully ended. Re-running it grants nothing new.
func (s *AwardService) GrantMonthly(ctx context.Context, companyID uint, month, year int) ([]models.Award, error) {
	period, err := NewPeriod(month, year)
	if err != nil {
		return nil, err
	}
	if !period.Ended(s.now().UTC()) {
		return nil, models.NewValidationError("Monthly awards can only be granted for months that have ended")
	}

	leaders, err := s.awardRepo.MonthlyLeaders(ctx, companyID, period.Start, period.End)
	if err != nil {
		return nil, err
	}

	granted := []models.Award{}
	for _, c := range []struct {
		awardType string
		userID    uint
	}{
		{models.AwardMostSpilled, leaders.MostSpilled},
		{models.AwardCrowdFavorite, leaders.CrowdFavorite},
		{models.AwardMostControversial, leaders.MostControversial},
	} {
		if c.userID == 0 {
			continue
		}
		award := models.NewAward(c.userID, c.awardType, period.Start)
		created, err := s.awardRepo.Grant(ctx, award)
		if err != nil {
			return nil, err
		}
		if created {
			granted = append(granted, *award)
		}
	}

	middleware.Logger.InfoContext(ctx, "monthly awards granted",
		"company_id", companyID, "month", month, "year", year, "granted", len(granted))
	return granted, nil
}
