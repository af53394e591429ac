package models

import "time"

// UserProfile is an account. Outside of the owner's own profile it is only
// ever exposed through its anonymous username.
type UserProfile struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	CompanyID         uint      `gorm:"not null;index" json:"company_id"`
	Company           *Company  `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" json:"company,omitempty"`
	Email             string    `gorm:"size:255;uniqueIndex;not null" json:"email,omitempty"`
	Password          string    `gorm:"not null" json:"-"`
	AnonymousUsername string    `gorm:"size:64;uniqueIndex;not null" json:"anonymous_username"`
	ToxicityScore     int       `gorm:"not null;default:0;index" json:"toxicity_score"`
	TotalUpvotes      int       `gorm:"not null;default:0" json:"total_upvotes"`
	TotalDownvotes    int       `gorm:"not null;default:0" json:"total_downvotes"`
	IsAdmin           bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName keeps the historical table name.
func (UserProfile) TableName() string {
	return "user_profiles"
}

// Author is the public projection of a UserProfile attached to confessions.
type Author struct {
	ID                uint   `json:"id"`
	AnonymousUsername string `json:"anonymous_username"`
	ToxicityScore     int    `json:"toxicity_score"`
}

// PublicAuthor returns the anonymous projection of the profile.
func (u *UserProfile) PublicAuthor() *Author {
	if u == nil {
		return nil
	}
	return &Author{
		ID:                u.ID,
		AnonymousUsername: u.AnonymousUsername,
		ToxicityScore:     u.ToxicityScore,
	}
}
