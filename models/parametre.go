package models

import "gorm.io/gorm"

// Clés connues de la table parametres.
const (
	ParamSignaturePresident = "signature_president_url"
	ParamLogoAssociation    = "logo_association_url"
)

// Parametre est un réglage clé/valeur de l'association (URL de la
// signature du président, logo, etc.).
type Parametre struct {
	gorm.Model
	Cle    string `gorm:"uniqueIndex" json:"cle"`
	Valeur string `json:"valeur"`
}
