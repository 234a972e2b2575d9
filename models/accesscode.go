package models

import (
	"time"

	"gorm.io/gorm"
)

// AccessCode est un code d'accès temporaire remis à un futur adhérent
// pour ouvrir le formulaire d'adhésion. Usage unique, durée limitée.
type AccessCode struct {
	gorm.Model
	Code      string     `gorm:"uniqueIndex" json:"code"`
	IssuedBy  uint       `json:"issued_by"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

// Valide indique si le code est encore utilisable à l'instant donné.
func (c *AccessCode) Valide(now time.Time) bool {
	return c.UsedAt == nil && now.Before(c.ExpiresAt)
}
