package models

import "time"

// MaxConfessionLength is the maximum confession length in characters.
const MaxConfessionLength = 1000

// Feed sort orders.
const (
	SortPopular = "popular"
	SortLatest  = "latest"
)

// Confession is an anonymous post scoped to a company.
type Confession struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	UserID    uint         `gorm:"not null;index" json:"-"`
	User      *UserProfile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CompanyID uint         `gorm:"not null;index" json:"company_id"`
	Content   string       `gorm:"type:text;not null" json:"content"`
	ImageURL  *string      `json:"image_url"`
	Upvotes   int          `gorm:"not null;default:0" json:"upvotes"`
	Downvotes int          `gorm:"not null;default:0" json:"downvotes"`
	NetScore  int          `gorm:"not null;default:0;index" json:"net_score"`
	CreatedAt time.Time    `gorm:"index" json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`

	// UserVote is the requesting user's vote, computed at query time.
	UserVote *string `gorm:"->;-:migration" json:"user_vote"`
	// Author and IsOwn are filled in by the service layer.
	Author *Author `gorm:"-" json:"author,omitempty"`
	IsOwn  bool    `gorm:"-" json:"is_own"`
}

// Tally returns the confession's vote counters.
func (c *Confession) Tally() VoteTally {
	return VoteTally{Upvotes: c.Upvotes, Downvotes: c.Downvotes}
}

// SetTally writes counters and the derived net score.
func (c *Confession) SetTally(t VoteTally) {
	c.Upvotes = t.Upvotes
	c.Downvotes = t.Downvotes
	c.NetScore = t.Net()
}

// ConfessionSummary is the compact form used in profile stats.
type ConfessionSummary struct {
	ID        uint      `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
}
