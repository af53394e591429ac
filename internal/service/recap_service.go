package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"spilledin/internal/middleware"
	"spilledin/internal/models"
	"spilledin/internal/observability"
	"spilledin/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
)

// isoMillis matches the timestamp format clients already parse.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// Summarizer turns a prompt into a generated summary.
type Summarizer interface {
	Summarize(ctx context.Context, system, prompt string) (string, error)
}

// ErrEmptySummary is returned when the model produced no text.
var ErrEmptySummary = errors.New("summarizer returned empty response")

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// RecapResult is the monthly summary payload.
type RecapResult struct {
	Month       int               `json:"month"`
	Year        int               `json:"year"`
	MonthName   string            `json:"monthName"`
	Summary     string            `json:"summary"`
	Stats       models.RecapStats `json:"stats"`
	GeneratedAt string            `json:"generatedAt"`
	DateRange   DateRange         `json:"dateRange"`
	Cached      bool              `json:"cached"`
}

type RecapService struct {
	confessionRepo repository.ConfessionRepository
	userRepo       repository.UserRepository
	recapRepo      repository.RecapRepository
	summarizer     Summarizer
	now            func() time.Time
}

func NewRecapService(
	confessionRepo repository.ConfessionRepository,
	userRepo repository.UserRepository,
	recapRepo repository.RecapRepository,
	summarizer Summarizer,
) *RecapService {
	return &RecapService{
		confessionRepo: confessionRepo,
		userRepo:       userRepo,
		recapRepo:      recapRepo,
		summarizer:     summarizer,
		now:            time.Now,
	}
}

func databaseUnavailable(err error) error {
	return models.NewUnavailableError("Database connection failed", "Please try again later", err)
}

// GenerateSummary builds the AI recap of a company month. Months that have
// ended are stored and served from storage unless force is set.
func (s *RecapService) GenerateSummary(ctx context.Context, companyID uint, month, year int, force bool) (*RecapResult, error) {
	period, err := NewPeriod(month, year)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if period.InFuture(now) {
		return nil, models.NewValidationError("Cannot generate summary for future months")
	}

	ctx, span := observability.StartSpan(ctx, "recap", "generate",
		attribute.Int("recap.month", month),
		attribute.Int("recap.year", year),
		attribute.Bool("recap.force", force),
	)
	result, outcome, err := s.generate(ctx, companyID, period, now, force)
	span.End(err)
	observability.RecapGenerations.WithLabelValues(outcome).Inc()
	return result, err
}

func (s *RecapService) generate(ctx context.Context, companyID uint, period Period, now time.Time, force bool) (*RecapResult, string, error) {
	result := &RecapResult{
		Month:     period.Month,
		Year:      period.Year,
		MonthName: period.MonthName(),
		DateRange: DateRange{
			Start: period.Start.Format(isoMillis),
			End:   period.End.Format(isoMillis),
		},
	}
	storable := period.Ended(now)

	if storable && !force {
		stored, found, err := s.recapRepo.Get(ctx, companyID, period.Month, period.Year)
		if err != nil {
			return nil, "db_error", databaseUnavailable(err)
		}
		if found {
			var stats models.RecapStats
			if err := json.Unmarshal(stored.Stats, &stats); err != nil {
				middleware.Logger.WarnContext(ctx, "stored recap stats unreadable", "recap_id", stored.ID, "error", err)
			} else {
				result.Summary = stored.Summary
				result.Stats = stats
				result.GeneratedAt = stored.GeneratedAt.UTC().Format(isoMillis)
				result.Cached = true
				return result, "cached", nil
			}
		}
	}

	confessions, err := s.confessionRepo.ListInRange(ctx, companyID, period.Start, period.End)
	if err != nil {
		return nil, "db_error", databaseUnavailable(err)
	}
	users, err := s.userRepo.TopByToxicity(ctx, companyID, true, 0)
	if err != nil {
		return nil, "db_error", databaseUnavailable(err)
	}
	if len(confessions) == 0 {
		return nil, "no_data", &models.AppError{
			Code:    models.CodeNotFound,
			Message: "No data available for the requested month",
			Details: "No confessions found for this time period",
		}
	}

	agg := aggregateRecap(confessions, users)
	summary, err := s.summarize(ctx, BuildRecapPrompt(result.MonthName, period.Year, agg))
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "recap summary generation failed",
			"company_id", companyID, "month", period.Month, "year", period.Year, "error", err)
		return nil, "llm_error", models.NewUnavailableError("AI summary generation failed", "Please try again later", err)
	}

	generatedAt := s.now().UTC()
	result.Summary = summary
	result.Stats = agg.stats()
	result.GeneratedAt = generatedAt.Format(isoMillis)

	if storable {
		s.store(ctx, companyID, period, result, generatedAt)
	}
	return result, "generated", nil
}

func (s *RecapService) summarize(ctx context.Context, prompt string) (string, error) {
	if s.summarizer == nil {
		return "", errors.New("no summarizer configured")
	}
	summary, err := s.summarizer.Summarize(ctx, RecapSystemMessage, prompt)
	if err != nil {
		return "", err
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", ErrEmptySummary
	}
	return summary, nil
}

// store keeps the recap for later requests; a failure only costs a
// regeneration.
func (s *RecapService) store(ctx context.Context, companyID uint, period Period, result *RecapResult, generatedAt time.Time) {
	stats, err := json.Marshal(result.Stats)
	if err != nil {
		return
	}
	err = s.recapRepo.Save(ctx, &models.MonthlyRecap{
		CompanyID:   companyID,
		Month:       period.Month,
		Year:        period.Year,
		Summary:     result.Summary,
		Stats:       datatypes.JSON(stats),
		GeneratedAt: generatedAt,
	})
	if err != nil {
		middleware.Logger.WarnContext(ctx, "store monthly recap failed", "company_id", companyID, "error", err)
	}
}
