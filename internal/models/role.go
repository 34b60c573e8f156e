package models

const (
	RoleParticipant = "participant"
	RoleIssuer      = "issuer"
	RoleAdmin       = "admin"
)

// AllRoles is the closed set of capability tags; seeded once at startup.
var AllRoles = []string{RoleParticipant, RoleIssuer, RoleAdmin}

type Role struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;size:32;not null"`
}
