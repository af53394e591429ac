package server

import (
	"context"

	"spilledin/internal/middleware"
	"spilledin/internal/models"
	"spilledin/internal/notifications"
)

// feedConfession is the broadcast form of a confession. Viewer specific
// fields are left out since every socket of the company receives it.
type feedConfession struct {
	ID        uint           `json:"id"`
	CompanyID uint           `json:"company_id"`
	Content   string         `json:"content"`
	ImageURL  *string        `json:"image_url"`
	Upvotes   int            `json:"upvotes"`
	Downvotes int            `json:"downvotes"`
	NetScore  int            `json:"net_score"`
	CreatedAt string         `json:"created_at"`
	Author    *models.Author `json:"author,omitempty"`
}

type feedVote struct {
	ConfessionID uint `json:"confession_id"`
	Upvotes      int  `json:"upvotes"`
	Downvotes    int  `json:"downvotes"`
	NetScore     int  `json:"net_score"`
}

// ConfessionCreated broadcasts a new confession to its company.
func (s *Server) ConfessionCreated(ctx context.Context, c *models.Confession) {
	s.publishCompanyEvent(ctx, c.CompanyID, notifications.EventConfessionCreated, feedConfession{
		ID:        c.ID,
		CompanyID: c.CompanyID,
		Content:   c.Content,
		ImageURL:  c.ImageURL,
		Upvotes:   c.Upvotes,
		Downvotes: c.Downvotes,
		NetScore:  c.NetScore,
		CreatedAt: c.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Author:    c.Author,
	})
}

// ConfessionDeleted tells the company feed to drop a confession.
func (s *Server) ConfessionDeleted(ctx context.Context, companyID, confessionID uint) {
	s.publishCompanyEvent(ctx, companyID, notifications.EventConfessionDeleted, map[string]uint{
		"id": confessionID,
	})
}

// VoteUpdated broadcasts a confession's new tally.
func (s *Server) VoteUpdated(ctx context.Context, companyID uint, res models.VoteResult) {
	s.publishCompanyEvent(ctx, companyID, notifications.EventConfessionVoteUpdated, feedVote{
		ConfessionID: res.ConfessionID,
		Upvotes:      res.Upvotes,
		Downvotes:    res.Downvotes,
		NetScore:     res.NetScore,
	})
}

// publishCompanyEvent goes through Redis when available so every instance
// fans it out; otherwise the local hub delivers it directly.
func (s *Server) publishCompanyEvent(ctx context.Context, companyID uint, eventType string, payload interface{}) {
	message, err := notifications.Encode(eventType, payload)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to encode feed event", "event", eventType, "error", err)
		return
	}

	if s.notifier != nil {
		if err := s.notifier.PublishCompany(realtimeContext(ctx), companyID, message); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to publish feed event",
				"event", eventType, "company_id", companyID, "error", err)
		}
		return
	}
	if s.hub != nil {
		s.hub.BroadcastCompany(companyID, message)
	}
}
