package models

import (
	"time"
)

// Achievement records that a participant holds an award. The composite
// unique index is the at-most-once guarantee for a (participant, award)
// pair; the pre-check in the granting service is only a friendlier error.
type Achievement struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	ParticipantID uint      `json:"participant_id" gorm:"index;not null;uniqueIndex:uq_participant_award"`
	AwardID       uint      `json:"award_id" gorm:"index;not null;uniqueIndex:uq_participant_award"`
	IssuedByID    *uint     `json:"issued_by_id" gorm:"index"`
	IssuedAt      time.Time `json:"issued_at" gorm:"not null"`
	Note          string    `json:"note" gorm:"size:255"`

	Participant User  `json:"participant" gorm:"foreignKey:ParticipantID;constraint:OnDelete:CASCADE"`
	Award       Award `json:"award" gorm:"foreignKey:AwardID;constraint:OnDelete:CASCADE"`
	IssuedBy    *User `json:"issued_by" gorm:"foreignKey:IssuedByID;constraint:OnDelete:SET NULL"`
}
