package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"spilledin/internal/models"
	"spilledin/internal/repository"
	"spilledin/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthRange(t *testing.T) {
	tests := []struct {
		year, month int
		wantEnd     string
	}{
		{2025, 1, "2025-01-31T23:59:59.999Z"},
		{2024, 2, "2024-02-29T23:59:59.999Z"},
		{2025, 2, "2025-02-28T23:59:59.999Z"},
		{2025, 12, "2025-12-31T23:59:59.999Z"},
	}
	for _, tt := range tests {
		start, end := MonthRange(tt.year, tt.month)
		assert.Equal(t, 1, start.Day())
		assert.Zero(t, start.Hour())
		assert.Equal(t, tt.wantEnd, end.Format(isoMillis))
	}
}

func TestNewPeriod(t *testing.T) {
	for _, in := range [][2]int{{0, 2025}, {13, 2025}, {5, 1999}, {5, 2101}} {
		_, err := NewPeriod(in[0], in[1])
		assert.EqualError(t, err, "Invalid month or year. Month must be 1-12, year must be reasonable.")
	}
	p, err := NewPeriod(3, 2025)
	require.NoError(t, err)
	assert.Equal(t, "March", p.MonthName())

	now := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.False(t, p.InFuture(now))
	assert.False(t, p.Ended(now))
	assert.True(t, p.Ended(now.AddDate(0, 1, 0)))
	next, _ := NewPeriod(4, 2025)
	assert.True(t, next.InFuture(now))
}

func TestBuildRecapPrompt(t *testing.T) {
	long := strings.Repeat("a", 120)
	agg := &recapAggregate{
		TotalConfessions: 7,
		TotalVotes:       31,
		AverageToxicity:  12.5,
		TopConfessions: []models.Confession{
			{Content: "short one", NetScore: 9, User: &models.UserProfile{AnonymousUsername: "SneakyOtter11"}},
			{Content: long, NetScore: -2},
		},
		TopUsers: []models.UserProfile{{AnonymousUsername: "LoudBadger22", ToxicityScore: 40}},
	}

	want := `Create an engaging monthly recap for "May 2025" for an anonymous confession app:

📊 MONTHLY STATS:
- 7 confessions shared
- 31 votes cast by the community
- Average toxicity level: 13/100

🔥 TOP CONFESSIONS OF THE MONTH:
1. "short one" (9 net votes, by SneakyOtter11)
2. "` + strings.Repeat("a", 100) + `..." (-2 net votes, by Anonymous)

😈 MOST CONTROVERSIAL USERS:
1. LoudBadger22 - 40 toxicity points

Requirements:
- Write 250-350 words in an engaging, slightly sarcastic tone
- Highlight interesting patterns or trends you notice
- Reference standout confessions tastefully (no direct quotes of sensitive content)
- Acknowledge toxic users playfully but not cruelly
- Use relevant emojis throughout
- End with anticipation for next month
- Keep it entertaining but respectful

Focus on community dynamics, voting patterns, and the overall "vibe" of the month.`
	assert.Equal(t, want, BuildRecapPrompt("May", 2025, agg))

	agg.TopUsers = nil
	assert.Contains(t, BuildRecapPrompt("May", 2025, agg), "😈 MOST CONTROVERSIAL USERS:\nNo particularly toxic users this month 😇\n")
}

func TestAggregateRecap(t *testing.T) {
	confessions := make([]models.Confession, 7)
	for i := range confessions {
		confessions[i] = models.Confession{Upvotes: i, Downvotes: 1}
	}
	users := []models.UserProfile{{ToxicityScore: 10}, {ToxicityScore: 5}, {ToxicityScore: 3}, {ToxicityScore: 1}}

	agg := aggregateRecap(confessions, users)
	assert.Equal(t, 7, agg.TotalConfessions)
	assert.Equal(t, 21+7, agg.TotalVotes)
	assert.InDelta(t, 4.75, agg.AverageToxicity, 1e-9)
	assert.Len(t, agg.TopConfessions, 5)
	assert.Len(t, agg.TopUsers, 3)

	stats := agg.stats()
	assert.InDelta(t, 4.8, stats.AverageToxicity, 1e-9)
	assert.Equal(t, 5, stats.TopConfessionsCount)
	assert.Equal(t, 3, stats.TopToxicUsersCount)

	assert.Zero(t, aggregateRecap(confessions, nil).AverageToxicity)
}

func newRecapFixture(t *testing.T, summarizer Summarizer) (*RecapService, *fixture) {
	t.Helper()
	f := newFixture(t)
	svc := NewRecapService(
		repository.NewConfessionRepository(f.db),
		repository.NewUserRepository(f.db),
		repository.NewRecapRepository(f.db),
		summarizer,
	)
	svc.now = func() time.Time { return time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC) }
	return svc, f
}

func TestRecapService_GenerateSummary(t *testing.T) {
	stub := &summarizerStub{summary: "  What a month!  "}
	svc, f := newRecapFixture(t, stub)
	ctx := context.Background()

	alice, _ := f.user(t, "SneakyOtter11")
	require.NoError(t, f.db.Model(alice).Update("toxicity_score", 25).Error)
	testutil.Confession(t, f.db, alice, "June gossip", time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC))

	res, err := svc.GenerateSummary(ctx, f.company.ID, 6, 2025, false)
	require.NoError(t, err)
	assert.Equal(t, "What a month!", res.Summary)
	assert.Equal(t, "June", res.MonthName)
	assert.False(t, res.Cached)
	assert.Equal(t, "2025-06-01T00:00:00.000Z", res.DateRange.Start)
	assert.Equal(t, "2025-06-30T23:59:59.999Z", res.DateRange.End)
	assert.Equal(t, models.RecapStats{TotalConfessions: 1, AverageToxicity: 25, TopConfessionsCount: 1, TopToxicUsersCount: 1}, res.Stats)
	assert.Equal(t, RecapSystemMessage, stub.system)
	assert.Contains(t, stub.prompt, `1. "June gossip" (0 net votes, by SneakyOtter11)`)

	t.Run("ended month is served from storage", func(t *testing.T) {
		again, err := svc.GenerateSummary(ctx, f.company.ID, 6, 2025, false)
		require.NoError(t, err)
		assert.True(t, again.Cached)
		assert.Equal(t, "What a month!", again.Summary)
		assert.Equal(t, res.Stats, again.Stats)
		assert.Equal(t, 1, stub.calls)
	})

	t.Run("force regenerates", func(t *testing.T) {
		stub.summary = "Fresh take"
		forced, err := svc.GenerateSummary(ctx, f.company.ID, 6, 2025, true)
		require.NoError(t, err)
		assert.False(t, forced.Cached)
		assert.Equal(t, "Fresh take", forced.Summary)
		assert.Equal(t, 2, stub.calls)
	})

	t.Run("current month is never stored", func(t *testing.T) {
		testutil.Confession(t, f.db, alice, "July news", time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC))
		_, err := svc.GenerateSummary(ctx, f.company.ID, 7, 2025, false)
		require.NoError(t, err)
		_, found, err := repository.NewRecapRepository(f.db).Get(ctx, f.company.ID, 7, 2025)
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestRecapService_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("future month", func(t *testing.T) {
		svc, f := newRecapFixture(t, &summarizerStub{summary: "x"})
		_, err := svc.GenerateSummary(ctx, f.company.ID, 8, 2025, false)
		assert.Equal(t, 400, models.StatusFor(err))
		assert.EqualError(t, err, "Cannot generate summary for future months")
	})

	t.Run("no data", func(t *testing.T) {
		svc, f := newRecapFixture(t, &summarizerStub{summary: "x"})
		_, err := svc.GenerateSummary(ctx, f.company.ID, 5, 2025, false)
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeNotFound, appErr.Code)
		assert.Equal(t, "No data available for the requested month", appErr.Message)
		assert.NotEmpty(t, appErr.Details)
	})

	for name, stub := range map[string]*summarizerStub{
		"llm failure":  {err: errors.New("upstream 500")},
		"empty answer": {summary: "   "},
	} {
		t.Run(name, func(t *testing.T) {
			svc, f := newRecapFixture(t, stub)
			alice, _ := f.user(t, "SneakyOtter11")
			testutil.Confession(t, f.db, alice, "june", time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC))

			_, err := svc.GenerateSummary(ctx, f.company.ID, 6, 2025, false)
			var appErr *models.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, models.CodeUnavailable, appErr.Code)
			assert.Equal(t, "AI summary generation failed", appErr.Message)
		})
	}

	t.Run("database failure", func(t *testing.T) {
		svc, f := newRecapFixture(t, &summarizerStub{summary: "x"})
		sqlDB, err := f.db.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())

		_, err = svc.GenerateSummary(ctx, f.company.ID, 6, 2025, false)
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "Database connection failed", appErr.Message)
		assert.Equal(t, "Please try again later", appErr.Details)
	})
}
