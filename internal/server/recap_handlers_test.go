package server

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"spilledin/internal/models"
	"spilledin/internal/service"
	"spilledin/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recapResponse struct {
	Success bool                `json:"success"`
	Data    service.RecapResult `json:"data"`
}

func TestGenerateSummary(t *testing.T) {
	env := newTestEnv(t, false)
	company := testutil.Company(t, env.db, "Acme Corp", "ACME2024")
	author, token := env.user(t, company, "SneakyPanda42")
	testutil.Confession(t, env.db, author, "I muted the all-hands.", time.Date(2024, time.March, 14, 10, 0, 0, 0, time.UTC))

	var resp recapResponse
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/generate-summary", token,
		fiber.Map{"month": 3, "year": 2024}, &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "March", resp.Data.MonthName)
	assert.Equal(t, "A spicy month at the office.", resp.Data.Summary)
	assert.Equal(t, 1, resp.Data.Stats.TotalConfessions)
	assert.Equal(t, "2024-03-01T00:00:00.000Z", resp.Data.DateRange.Start)
	assert.False(t, resp.Data.Cached)
	assert.Equal(t, 1, env.summarizer.calls)

	t.Run("ended months are served from storage", func(t *testing.T) {
		var again recapResponse
		require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/generate-summary", token,
			fiber.Map{"month": 3, "year": 2024}, &again))
		assert.True(t, again.Data.Cached)
		assert.Equal(t, 1, env.summarizer.calls)

		require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/generate-summary", token,
			fiber.Map{"month": 3, "year": 2024, "force": true}, &again))
		assert.False(t, again.Data.Cached)
		assert.Equal(t, 2, env.summarizer.calls)
	})

	t.Run("validation", func(t *testing.T) {
		var body models.ErrorResponse
		assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/generate-summary", token,
			fiber.Map{"month": 13, "year": 2024}, &body))
		assert.Equal(t, "Invalid month or year. Month must be 1-12, year must be reasonable.", body.Error)

		body = models.ErrorResponse{}
		assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/generate-summary", token,
			fiber.Map{"month": "5", "year": 2024}, &body))
		assert.Equal(t, "Invalid month or year. Month must be 1-12, year must be reasonable.", body.Error)
		assert.Equal(t, models.CodeValidation, body.Code)

		next := time.Now().UTC().AddDate(0, 1, 0)
		assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/generate-summary", token,
			fiber.Map{"month": int(next.Month()), "year": next.Year()}, &body))
		assert.Equal(t, "Cannot generate summary for future months", body.Error)
	})

	t.Run("empty month", func(t *testing.T) {
		var body models.ErrorResponse
		assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/api/generate-summary", token,
			fiber.Map{"month": 4, "year": 2024}, &body))
		assert.Equal(t, "No data available for the requested month", body.Error)
	})

	t.Run("llm failure", func(t *testing.T) {
		env.summarizer.err = errors.New("upstream down")
		defer func() { env.summarizer.err = nil }()

		var body models.ErrorResponse
		assert.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodPost, "/api/generate-summary", token,
			fiber.Map{"month": 3, "year": 2024, "force": true}, &body))
		assert.Equal(t, "AI summary generation failed", body.Error)
		assert.Equal(t, models.CodeUnavailable, body.Code)
	})
}

func TestGetWrapped(t *testing.T) {
	env := newTestEnv(t, true)
	company := testutil.Company(t, env.db, "Acme Corp", "ACME2024")
	author, token := env.user(t, company, "SneakyPanda42")
	// 2024-03-14 is a Thursday.
	testutil.Confession(t, env.db, author, "I take calls from the gym.", time.Date(2024, time.March, 14, 10, 0, 0, 0, time.UTC))

	var wrapped service.WrappedResult
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/wrapped?month=3&year=2024", token, nil, &wrapped))
	assert.Equal(t, "March", wrapped.MonthName)
	assert.Equal(t, 1, wrapped.Stats.TotalConfessions)
	assert.Equal(t, "Thursday", wrapped.Stats.MostActiveDay)
	require.Len(t, wrapped.TopConfessions, 1)

	var body models.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/wrapped?month=0&year=2024", token, nil, &body))
	assert.Equal(t, models.CodeValidation, body.Code)

	month, year := currentPeriod()
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/wrapped", token, nil, &wrapped))
	assert.Equal(t, month, wrapped.Month)
	assert.Equal(t, year, wrapped.Year)
}
