package models

import "time"

// Award types.
const (
	AwardFirstConfession   = "First Confession"
	AwardMostSpilled       = "Most Spilled"
	AwardCrowdFavorite     = "Crowd Favorite"
	AwardMostControversial = "Most Controversial"
)

// AwardTitles maps award types to their display titles.
var AwardTitles = map[string]string{
	AwardFirstConfession:   "First Confession 🥇",
	AwardMostSpilled:       "Most Spilled 🫖",
	AwardCrowdFavorite:     "Crowd Favorite 💖",
	AwardMostControversial: "Most Controversial 🌶️",
}

// Award is a badge granted to a user for a given month.
type Award struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_awards_user_type_period" json:"user_id"`
	AwardType  string    `gorm:"size:64;not null;uniqueIndex:idx_awards_user_type_period" json:"award_type"`
	AwardTitle string    `gorm:"size:128;not null" json:"award_title"`
	Month      int       `gorm:"not null;uniqueIndex:idx_awards_user_type_period" json:"month"`
	Year       int       `gorm:"not null;uniqueIndex:idx_awards_user_type_period" json:"year"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewAward builds an award of the given type for the period containing at.
func NewAward(userID uint, awardType string, at time.Time) *Award {
	at = at.UTC()
	return &Award{
		UserID:     userID,
		AwardType:  awardType,
		AwardTitle: AwardTitles[awardType],
		Month:      int(at.Month()),
		Year:       at.Year(),
	}
}
