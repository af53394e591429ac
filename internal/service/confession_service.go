package service

import (
	"context"
	"strings"

	"spilledin/internal/middleware"
	"spilledin/internal/models"
	"spilledin/internal/observability"
	"spilledin/internal/repository"
	"spilledin/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// FeedEvents receives confession changes for realtime delivery.
type FeedEvents interface {
	ConfessionCreated(ctx context.Context, confession *models.Confession)
	ConfessionDeleted(ctx context.Context, companyID, confessionID uint)
	VoteUpdated(ctx context.Context, companyID uint, result models.VoteResult)
}

// Viewer identifies the requesting user and their company.
type Viewer struct {
	UserID    uint
	CompanyID uint
}

type ConfessionService struct {
	confessionRepo repository.ConfessionRepository
	voteRepo       repository.VoteRepository
	awards         *AwardService
	events         FeedEvents
}

type CreateConfessionInput struct {
	Viewer
	Content  string
	ImageURL string
}

type FeedInput struct {
	Viewer
	Search string
	Sort   string
	Limit  int
	Offset int
}

// FeedPage is one page of the company feed.
type FeedPage struct {
	Confessions []models.Confession `json:"confessions"`
	HasMore     bool                `json:"has_more"`
}

type VoteInput struct {
	Viewer
	ConfessionID uint
	VoteType     string
}

func NewConfessionService(
	confessionRepo repository.ConfessionRepository,
	voteRepo repository.VoteRepository,
	awards *AwardService,
	events FeedEvents,
) *ConfessionService {
	return &ConfessionService{
		confessionRepo: confessionRepo,
		voteRepo:       voteRepo,
		awards:         awards,
		events:         events,
	}
}

func (s *ConfessionService) CreateConfession(ctx context.Context, in CreateConfessionInput) (*models.Confession, error) {
	content, err := validation.NormalizeConfession(in.Content)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	confession := &models.Confession{
		UserID:    in.UserID,
		CompanyID: in.CompanyID,
		Content:   content,
	}
	if url := strings.TrimSpace(in.ImageURL); url != "" {
		confession.ImageURL = &url
	}
	if err := s.confessionRepo.Create(ctx, confession); err != nil {
		return nil, err
	}
	observability.ConfessionsCreated.Inc()

	if s.awards != nil {
		s.grantFirstConfession(ctx, confession)
	}

	created, err := s.confessionRepo.GetByID(ctx, confession.ID, in.UserID)
	if err != nil {
		return nil, err
	}
	s.enrich(created, in.UserID)
	if s.events != nil {
		s.events.ConfessionCreated(ctx, created)
	}
	return created, nil
}

// grantFirstConfession never fails the post; the award can be granted later.
func (s *ConfessionService) grantFirstConfession(ctx context.Context, confession *models.Confession) {
	count, err := s.confessionRepo.CountByUser(ctx, confession.UserID)
	if err != nil || count != 1 {
		if err != nil {
			middleware.Logger.WarnContext(ctx, "count confessions for award failed", "user_id", confession.UserID, "error", err)
		}
		return
	}
	if _, err := s.awards.GrantFirstConfession(ctx, confession.UserID, confession.CreatedAt); err != nil {
		middleware.Logger.WarnContext(ctx, "grant first confession award failed", "user_id", confession.UserID, "error", err)
	}
}

// DeleteConfession removes the caller's own confession.
func (s *ConfessionService) DeleteConfession(ctx context.Context, v Viewer, id uint) error {
	deleted, err := s.confessionRepo.Delete(ctx, id, v.UserID)
	if err != nil {
		return err
	}
	if s.events != nil {
		s.events.ConfessionDeleted(ctx, deleted.CompanyID, deleted.ID)
	}
	return nil
}

// GetConfession returns a confession of the viewer's company.
func (s *ConfessionService) GetConfession(ctx context.Context, v Viewer, id uint) (*models.Confession, error) {
	confession, err := s.confessionRepo.GetByID(ctx, id, v.UserID)
	if err != nil {
		return nil, err
	}
	if confession.CompanyID != v.CompanyID {
		return nil, models.NewNotFoundError("Confession", id)
	}
	s.enrich(confession, v.UserID)
	return confession, nil
}

func (s *ConfessionService) GetFeed(ctx context.Context, in FeedInput) (*FeedPage, error) {
	q := repository.FeedQuery{
		CompanyID: in.CompanyID,
		ViewerID:  in.UserID,
		Search:    in.Search,
		Sort:      in.Sort,
		Limit:     in.Limit,
		Offset:    in.Offset,
	}
	q.Normalize()

	ctx, span := observability.StartSpan(ctx, "feed", "list",
		attribute.String("feed.sort", q.Sort),
		attribute.Bool("feed.search", q.Search != ""),
	)
	confessions, err := s.confessionRepo.Feed(ctx, q)
	span.End(err)
	if err != nil {
		return nil, err
	}

	for i := range confessions {
		s.enrich(&confessions[i], in.UserID)
	}
	if confessions == nil {
		confessions = []models.Confession{}
	}
	return &FeedPage{Confessions: confessions, HasMore: len(confessions) == q.Limit}, nil
}

// CastVote toggles the viewer's vote on a confession of their company.
func (s *ConfessionService) CastVote(ctx context.Context, in VoteInput) (*models.VoteResult, error) {
	voteType, err := models.ParseVoteType(in.VoteType)
	if err != nil {
		return nil, models.NewValidationError("Invalid vote type. Must be 'upvote' or 'downvote'")
	}

	change, err := s.voteRepo.CastVote(ctx, in.CompanyID, in.UserID, in.ConfessionID, voteType)
	if err != nil {
		return nil, err
	}

	result := change.Result()
	state := string(change.UserVote)
	if state == "" {
		state = "cleared"
	}
	observability.VotesCast.WithLabelValues(string(voteType), state).Inc()

	if s.events != nil {
		s.events.VoteUpdated(ctx, in.CompanyID, result)
	}
	return &result, nil
}

func (s *ConfessionService) enrich(c *models.Confession, viewerID uint) {
	c.Author = c.User.PublicAuthor()
	c.IsOwn = c.UserID == viewerID
}
