package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"spilledin/internal/models"
	"spilledin/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfessionService_CreateConfession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, alice := f.user(t, "SneakyOtter11")

	t.Run("validation", func(t *testing.T) {
		for _, content := range []string{"", "   ", strings.Repeat("x", 1001)} {
			_, err := f.confessions.CreateConfession(ctx, CreateConfessionInput{Viewer: alice, Content: content})
			assert.Equal(t, 400, models.StatusFor(err))
		}
	})

	c, err := f.confessions.CreateConfession(ctx, CreateConfessionInput{Viewer: alice, Content: "  I push to main on Fridays  "})
	require.NoError(t, err)
	assert.Equal(t, "I push to main on Fridays", c.Content)
	assert.Nil(t, c.ImageURL)
	assert.True(t, c.IsOwn)
	require.NotNil(t, c.Author)
	assert.Equal(t, "SneakyOtter11", c.Author.AnonymousUsername)
	assert.Equal(t, f.company.ID, c.CompanyID)
	assert.Equal(t, []uint{c.ID}, f.events.created)

	withImage, err := f.confessions.CreateConfession(ctx, CreateConfessionInput{Viewer: alice, Content: "pic", ImageURL: "/media/confessions/1-1.webp"})
	require.NoError(t, err)
	require.NotNil(t, withImage.ImageURL)

	awards, err := f.awards.ListForUser(ctx, alice.UserID)
	require.NoError(t, err)
	require.Len(t, awards, 1, "only the first confession is awarded")
	assert.Equal(t, models.AwardFirstConfession, awards[0].AwardType)
	assert.Equal(t, "First Confession 🥇", awards[0].AwardTitle)
}

func TestConfessionService_FirstConfessionAwardedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, alice := f.user(t, "SneakyOtter11")

	first, err := f.confessions.CreateConfession(ctx, CreateConfessionInput{Viewer: alice, Content: "January secret"})
	require.NoError(t, err)

	// Move the earned award to a past month so a later post lands in another period.
	earned := first.CreatedAt.AddDate(0, -1, 0)
	require.NoError(t, f.db.Model(&models.Award{}).
		Where("user_id = ? AND award_type = ?", alice.UserID, models.AwardFirstConfession).
		Updates(map[string]any{"month": int(earned.Month()), "year": earned.Year()}).Error)

	require.NoError(t, f.confessions.DeleteConfession(ctx, alice, first.ID))
	_, err = f.confessions.CreateConfession(ctx, CreateConfessionInput{Viewer: alice, Content: "February secret"})
	require.NoError(t, err)

	awards, err := f.awards.ListForUser(ctx, alice.UserID)
	require.NoError(t, err)
	require.Len(t, awards, 1)
	assert.Equal(t, int(earned.Month()), awards[0].Month)
}

func TestConfessionService_FeedAndVotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, alice := f.user(t, "SneakyOtter11")
	_, bob := f.user(t, "LoudBadger22")

	var ids []uint
	for _, content := range []string{"one", "two", "three"} {
		c, err := f.confessions.CreateConfession(ctx, CreateConfessionInput{Viewer: alice, Content: content})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}

	res, err := f.confessions.CastVote(ctx, VoteInput{Viewer: bob, ConfessionID: ids[0], VoteType: "upvote"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.NetScore)
	require.NotNil(t, res.UserVote)
	assert.Equal(t, models.VoteUpvote, *res.UserVote)

	res, err = f.confessions.CastVote(ctx, VoteInput{Viewer: bob, ConfessionID: ids[0], VoteType: "upvote"})
	require.NoError(t, err)
	assert.Nil(t, res.UserVote)
	assert.Zero(t, res.NetScore)
	assert.Len(t, f.events.votes, 2)

	_, err = f.confessions.CastVote(ctx, VoteInput{Viewer: bob, ConfessionID: ids[0], VoteType: "sideways"})
	assert.Equal(t, 400, models.StatusFor(err))

	_, err = f.confessions.CastVote(ctx, VoteInput{Viewer: bob, ConfessionID: ids[1], VoteType: "downvote"})
	require.NoError(t, err)

	page, err := f.confessions.GetFeed(ctx, FeedInput{Viewer: bob, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Confessions, 2)
	assert.True(t, page.HasMore)
	assert.False(t, page.Confessions[0].IsOwn)
	require.NotNil(t, page.Confessions[1].UserVote)
	assert.Equal(t, "downvote", *page.Confessions[1].UserVote)

	page, err = f.confessions.GetFeed(ctx, FeedInput{Viewer: bob, Sort: models.SortPopular})
	require.NoError(t, err)
	require.Len(t, page.Confessions, 3)
	assert.False(t, page.HasMore)
	assert.Equal(t, ids[1], page.Confessions[2].ID)
}

func TestConfessionService_CompanyIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, alice := f.user(t, "SneakyOtter11")
	other := testutil.Company(t, f.db, "Other", "OTHER1")
	outsider := testutil.User(t, f.db, other.ID, "QuietMole33")
	stranger := Viewer{UserID: outsider.ID, CompanyID: other.ID}

	c, err := f.confessions.CreateConfession(ctx, CreateConfessionInput{Viewer: alice, Content: "internal only"})
	require.NoError(t, err)

	_, err = f.confessions.GetConfession(ctx, stranger, c.ID)
	assert.Equal(t, 404, models.StatusFor(err))
	_, err = f.confessions.CastVote(ctx, VoteInput{Viewer: stranger, ConfessionID: c.ID, VoteType: "upvote"})
	assert.Equal(t, 404, models.StatusFor(err))

	page, err := f.confessions.GetFeed(ctx, FeedInput{Viewer: stranger})
	require.NoError(t, err)
	assert.Empty(t, page.Confessions)
	assert.NotNil(t, page.Confessions)

	got, err := f.confessions.GetConfession(ctx, alice, c.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOwn)
}

func TestConfessionService_DeleteConfession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, alice := f.user(t, "SneakyOtter11")
	_, bob := f.user(t, "LoudBadger22")

	c, err := f.confessions.CreateConfession(ctx, CreateConfessionInput{Viewer: alice, Content: "oops"})
	require.NoError(t, err)
	_, err = f.confessions.CastVote(ctx, VoteInput{Viewer: bob, ConfessionID: c.ID, VoteType: "downvote"})
	require.NoError(t, err)
	assert.Equal(t, -1, testutil.Reload(t, f.db, alice.UserID).ToxicityScore)

	assert.Equal(t, 404, models.StatusFor(f.confessions.DeleteConfession(ctx, bob, c.ID)))
	require.NoError(t, f.confessions.DeleteConfession(ctx, alice, c.ID))
	assert.Equal(t, []uint{c.ID}, f.events.deleted)

	author := testutil.Reload(t, f.db, alice.UserID)
	assert.Zero(t, author.ToxicityScore)
	assert.Zero(t, author.TotalDownvotes)
}

func TestMostActiveDay(t *testing.T) {
	at := func(day int) models.Confession {
		return models.Confession{CreatedAt: time.Date(2025, 9, day, 12, 0, 0, 0, time.UTC)}
	}
	// 2025-09-01 is a Monday.
	assert.Equal(t, "", mostActiveDay(nil))
	assert.Equal(t, "Wednesday", mostActiveDay([]models.Confession{at(3), at(3), at(1)}))
	assert.Equal(t, "Monday", mostActiveDay([]models.Confession{at(7), at(1)}), "ties go to the earlier weekday")
	assert.Equal(t, "Sunday", mostActiveDay([]models.Confession{at(7)}))
}
