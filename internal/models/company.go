// Package models contains data structures for the application's domain models.
package models

import "time"

// Company is a tenant. Users join it through its invite code and only ever
// see confessions posted inside it.
type Company struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:120;not null" json:"name"`
	InviteCode string    `gorm:"size:32;uniqueIndex;not null" json:"invite_code"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
