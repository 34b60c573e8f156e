package models

import (
	"time"
)

// APIKey is a machine credential for the read API, tied to the owning user
// and carrying that user's role set.
type APIKey struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	UserID     uint       `json:"user_id" gorm:"index;not null"`
	User       User       `json:"user" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Key        string     `json:"key" gorm:"uniqueIndex;size:64;not null"`
	Name       string     `json:"name" gorm:"size:120"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
}
