package models

import (
	"time"

	"gorm.io/datatypes"
)

// MonthlyRecap is a stored AI summary for a fully ended month.
type MonthlyRecap struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CompanyID   uint           `gorm:"not null;uniqueIndex:idx_monthly_recaps_period" json:"company_id"`
	Month       int            `gorm:"not null;uniqueIndex:idx_monthly_recaps_period" json:"month"`
	Year        int            `gorm:"not null;uniqueIndex:idx_monthly_recaps_period" json:"year"`
	Summary     string         `gorm:"type:text;not null" json:"summary"`
	Stats       datatypes.JSON `json:"stats"`
	GeneratedAt time.Time      `gorm:"not null" json:"generated_at"`
}

// RecapStats are the monthly aggregates sent alongside a summary.
type RecapStats struct {
	TotalConfessions    int     `json:"totalConfessions"`
	TotalVotes          int     `json:"totalVotes"`
	AverageToxicity     float64 `json:"averageToxicity"`
	TopConfessionsCount int     `json:"topConfessionsCount"`
	TopToxicUsersCount  int     `json:"topToxicUsersCount"`
}

// WrappedStats are the Toxic Wrapped month aggregates.
type WrappedStats struct {
	TotalConfessions int    `json:"total_confessions"`
	TotalVotes       int    `json:"total_votes"`
	MostActiveDay    string `json:"most_active_day"`
	AverageToxicity  int    `json:"average_toxicity"`
}

// WrappedUser is a leaderboard row.
type WrappedUser struct {
	AnonymousUsername string       `json:"anonymous_username"`
	ToxicityScore     int          `json:"toxicity_score"`
	TotalUpvotes      int          `json:"total_upvotes"`
	TotalDownvotes    int          `json:"total_downvotes"`
	Tier              ToxicityTier `json:"tier"`
}
