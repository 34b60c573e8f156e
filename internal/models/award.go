package models

import (
	"strings"
	"time"
)

type Award struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Slug          string    `json:"slug" gorm:"uniqueIndex;size:64;not null"` // stable id for URLs/API
	Name          string    `json:"name" gorm:"size:120;not null"`
	Description   string    `json:"description" gorm:"type:text;not null"`
	ImageFilename string    `json:"image_filename" gorm:"size:255"`
	Points        int       `json:"points" gorm:"not null;default:0"`
	Criteria      string    `json:"criteria" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at"`
}

// ImageURL joins the configured image base with the stored filename.
func (a *Award) ImageURL(base string) string {
	if a.ImageFilename == "" {
		return ""
	}
	if base == "" {
		return a.ImageFilename
	}
	return strings.TrimRight(base, "/") + "/" + a.ImageFilename
}
