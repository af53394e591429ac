package seed

import (
	"context"
	"testing"
	"time"

	"spilledin/internal/models"
	"spilledin/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func smallOptions() Options {
	return Options{
		Companies:             2,
		UsersPerCompany:       4,
		ConfessionsPerUser:    2,
		MaxVotesPerConfession: 3,
		MaxDays:               30,
		SkipBcrypt:            true,
		RandomSeed:            42,
	}
}

func TestBuildConfession_TimestampsAndContent(t *testing.T) {
	opts := Options{DryRun: true, SkipBcrypt: true, MaxDays: 30, RandomSeed: 7}
	f, err := NewFactory(nil, opts)
	require.NoError(t, err)
	fixed := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return fixed }

	user := &models.UserProfile{ID: 1, CompanyID: 3}
	for i := 0; i < 50; i++ {
		c := f.BuildConfession(user)
		assert.Equal(t, uint(1), c.UserID)
		assert.Equal(t, uint(3), c.CompanyID)
		assert.NotEmpty(t, c.Content)
		assert.LessOrEqual(t, len(c.Content), models.MaxConfessionLength)
		assert.NotContains(t, c.Content, "%!")
		assert.False(t, c.CreatedAt.After(fixed))
		assert.True(t, c.CreatedAt.After(fixed.AddDate(0, 0, -31)), c.CreatedAt)
	}
}

func TestDryRunAssignsSyntheticIDs(t *testing.T) {
	summary, err := Seed(context.Background(), nil, Options{
		Companies:          1,
		UsersPerCompany:    2,
		ConfessionsPerUser: 1,
		DryRun:             true,
		SkipBcrypt:         true,
		RandomSeed:         1,
	})
	require.NoError(t, err)
	assert.Equal(t, &Summary{Companies: 1, Users: 2, Confessions: 2}, summary)
}

func TestSeedKeepsTalliesConsistent(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	summary, err := Seed(ctx, db, smallOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Companies)
	assert.Equal(t, 8, summary.Users)
	assert.Equal(t, 16, summary.Confessions)

	var seedCorp models.Company
	require.NoError(t, db.Where("invite_code = ?", SeedCompanyInvite).First(&seedCorp).Error)

	var votes int64
	require.NoError(t, db.Model(&models.Vote{}).Count(&votes).Error)
	assert.Equal(t, int64(summary.Votes), votes)

	var confessions []models.Confession
	require.NoError(t, db.Find(&confessions).Error)
	for _, c := range confessions {
		var up, down int64
		require.NoError(t, db.Model(&models.Vote{}).Where("confession_id = ? AND vote_type = ?", c.ID, models.VoteUpvote).Count(&up).Error)
		require.NoError(t, db.Model(&models.Vote{}).Where("confession_id = ? AND vote_type = ?", c.ID, models.VoteDownvote).Count(&down).Error)
		assert.Equal(t, int(up), c.Upvotes)
		assert.Equal(t, int(down), c.Downvotes)
		assert.Equal(t, c.Upvotes-c.Downvotes, c.NetScore)
	}

	var users []models.UserProfile
	require.NoError(t, db.Find(&users).Error)
	for _, u := range users {
		var net struct{ Up, Down int }
		require.NoError(t, db.Model(&models.Confession{}).
			Select("COALESCE(SUM(upvotes), 0) AS up, COALESCE(SUM(downvotes), 0) AS down").
			Where("user_id = ?", u.ID).Scan(&net).Error)
		assert.Equal(t, net.Up, u.TotalUpvotes)
		assert.Equal(t, net.Down, u.TotalDownvotes)
		assert.Equal(t, net.Up-net.Down, u.ToxicityScore)
	}
}

func TestSeedCleanResetsData(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	_, err := Seed(ctx, db, smallOptions())
	require.NoError(t, err)

	opts := smallOptions()
	opts.Companies = 1
	opts.ShouldClean = true
	opts.RandomSeed = 99
	_, err = Seed(ctx, db, opts)
	require.NoError(t, err)

	var companies int64
	require.NoError(t, db.Model(&models.Company{}).Count(&companies).Error)
	assert.Equal(t, int64(1), companies)
}

func TestEnsureDemoIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	require.NoError(t, EnsureDemo(ctx, db))
	require.NoError(t, EnsureDemo(ctx, db))

	var companies []models.Company
	require.NoError(t, db.Order("id").Find(&companies).Error)
	require.Len(t, companies, 3)
	assert.Equal(t, "TECH2024", companies[0].InviteCode)
	assert.Equal(t, "MegaCorp Ltd", companies[2].Name)

	var demo models.UserProfile
	require.NoError(t, db.Where("email = ?", DemoEmail).First(&demo).Error)
	assert.Equal(t, companies[0].ID, demo.CompanyID)
	assert.Equal(t, DemoUsername, demo.AnonymousUsername)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(demo.Password), []byte(DemoPassword)))
}
