package models

import "gorm.io/gorm"

const (
	RoleAdmin    = "admin"
	RoleAdherent = "adherent"
)

type User struct {
	gorm.Model
	Name     string `json:"name"`
	Email    string `gorm:"uniqueIndex" json:"email"`
	Password string `json:"-"`
	Role     string `json:"role"`

	Adhesions []Adhesion `json:"adhesions,omitempty"`
}
