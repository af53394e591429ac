package models

import (
	"fmt"
	"time"
)

// VoteType is a vote direction. VoteNone means the user has not voted.
type VoteType string

const (
	VoteNone     VoteType = ""
	VoteUpvote   VoteType = "upvote"
	VoteDownvote VoteType = "downvote"
)

// ParseVoteType validates a requested vote type.
func ParseVoteType(s string) (VoteType, error) {
	switch VoteType(s) {
	case VoteUpvote, VoteDownvote:
		return VoteType(s), nil
	default:
		return VoteNone, fmt.Errorf("invalid vote type %q", s)
	}
}

// Vote is one user's vote on one confession.
type Vote struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_votes_user_confession" json:"user_id"`
	ConfessionID uint      `gorm:"not null;uniqueIndex:idx_votes_user_confession;index" json:"confession_id"`
	VoteType     VoteType  `gorm:"size:16;not null" json:"vote_type"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// VoteTally holds a confession's vote counters.
type VoteTally struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
}

// Net returns upvotes minus downvotes.
func (t VoteTally) Net() int {
	return t.Upvotes - t.Downvotes
}

func (t VoteTally) add(v VoteType, n int) VoteTally {
	switch v {
	case VoteUpvote:
		t.Upvotes = max(t.Upvotes+n, 0)
	case VoteDownvote:
		t.Downvotes = max(t.Downvotes+n, 0)
	}
	return t
}

// Apply toggles a vote. The previous vote is always removed; the requested
// vote is added unless it equals the previous one, in which case the vote is
// cleared. Returns the new tally and the caller's resulting vote.
func (t VoteTally) Apply(current, requested VoteType) (VoteTally, VoteType) {
	next := t.add(current, -1)
	if requested == current {
		return next, VoteNone
	}
	return next.add(requested, 1), requested
}

// VoteResult is returned after a vote is cast.
type VoteResult struct {
	ConfessionID uint      `json:"confession_id"`
	Upvotes      int       `json:"upvotes"`
	Downvotes    int       `json:"downvotes"`
	NetScore     int       `json:"net_score"`
	UserVote     *VoteType `json:"user_vote"`
}

// NewVoteResult builds a VoteResult; a cleared vote serializes as null.
func NewVoteResult(confessionID uint, t VoteTally, v VoteType) VoteResult {
	res := VoteResult{
		ConfessionID: confessionID,
		Upvotes:      t.Upvotes,
		Downvotes:    t.Downvotes,
		NetScore:     t.Net(),
	}
	if v != VoteNone {
		res.UserVote = &v
	}
	return res
}
