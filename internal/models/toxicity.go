package models

import "time"

// Toxicity event reasons.
const (
	ReasonVote             = "vote"
	ReasonConfessionDelete = "confession_deleted"
	ReasonVoterDeleted     = "voter_deleted"
)

// ToxicityEvent records one change of a user's toxicity score.
type ToxicityEvent struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	ConfessionID *uint     `json:"confession_id,omitempty"`
	Delta        int       `gorm:"not null" json:"delta"`
	Score        int       `gorm:"not null" json:"score"`
	Reason       string    `gorm:"size:32;not null" json:"reason"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

// ToxicityHistoryEntry is one point of the profile history chart.
type ToxicityHistoryEntry struct {
	Date   time.Time `json:"date"`
	Score  int       `json:"score"`
	Change int       `json:"change"`
}

// ToxicityTier is a named score band.
type ToxicityTier struct {
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
	Min   int    `json:"min"`
}

var toxicityTiers = []ToxicityTier{
	{Name: "Drama Deity", Emoji: "👑", Min: 1000},
	{Name: "Chaos Champion", Emoji: "🔥", Min: 500},
	{Name: "Trouble Maker", Emoji: "😈", Min: 250},
	{Name: "Stirrer", Emoji: "🌪️", Min: 100},
	{Name: "Instigator", Emoji: "⚡", Min: 50},
	{Name: "Neutral", Emoji: "😐", Min: 0},
	{Name: "Peacekeeper", Emoji: "🕊️", Min: -50},
	{Name: "Harmony Helper", Emoji: "🌱", Min: -100},
	{Name: "Zen Master", Emoji: "🧘", Min: -250},
}

var lowestTier = ToxicityTier{Name: "Whisperer", Emoji: "🤫", Min: -1 << 31}

// TierFor returns the tier for a toxicity score. Tiers are ordered from the
// highest threshold down; the first one the score reaches wins.
func TierFor(score int) ToxicityTier {
	for _, t := range toxicityTiers {
		if score >= t.Min {
			return t
		}
	}
	return lowestTier
}
