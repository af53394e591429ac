package service

import (
	"context"
	"sync"
	"testing"

	"spilledin/internal/models"
	"spilledin/internal/repository"
	"spilledin/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// eventRecorder is a FeedEvents stub that records calls.
type eventRecorder struct {
	mu      sync.Mutex
	created []uint
	deleted []uint
	votes   []models.VoteResult
}

func (r *eventRecorder) ConfessionCreated(_ context.Context, c *models.Confession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, c.ID)
}

func (r *eventRecorder) ConfessionDeleted(_ context.Context, _, id uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
}

func (r *eventRecorder) VoteUpdated(_ context.Context, _ uint, res models.VoteResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.votes = append(r.votes, res)
}

// summarizerStub is a Summarizer returning fixed output.
type summarizerStub struct {
	summary string
	err     error
	calls   int
	prompt  string
	system  string
}

func (s *summarizerStub) Summarize(_ context.Context, system, prompt string) (string, error) {
	s.calls++
	s.system = system
	s.prompt = prompt
	return s.summary, s.err
}

type fixture struct {
	db          *gorm.DB
	company     *models.Company
	events      *eventRecorder
	confessions *ConfessionService
	profiles    *ProfileService
	awards      *AwardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	userRepo := repository.NewUserRepository(db)
	confessionRepo := repository.NewConfessionRepository(db)
	usernames, err := NewUsernameGenerator(userRepo.UsernameExists)
	require.NoError(t, err)

	events := &eventRecorder{}
	awards := NewAwardService(repository.NewAwardRepository(db))
	return &fixture{
		db:          db,
		company:     testutil.Company(t, db, "Acme", "ACME01"),
		events:      events,
		awards:      awards,
		confessions: NewConfessionService(confessionRepo, repository.NewVoteRepository(db), awards, events),
		profiles:    NewProfileService(userRepo, confessionRepo, awards, usernames, events),
	}
}

func (f *fixture) user(t *testing.T, name string) (*models.UserProfile, Viewer) {
	t.Helper()
	u := testutil.User(t, f.db, f.company.ID, name)
	return u, Viewer{UserID: u.ID, CompanyID: u.CompanyID}
}
