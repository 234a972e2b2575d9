package models

import (
	"fmt"

	"gorm.io/gorm"
)

type TypeDocument string

const (
	DocumentFormulaire TypeDocument = "formulaire"
	DocumentCarteRecto TypeDocument = "carte_recto"
	DocumentCarteVerso TypeDocument = "carte_verso"
)

type RevisionDocument string

const (
	RevisionProvisoire RevisionDocument = "provisoire"
	RevisionDefinitive RevisionDocument = "definitive"
)

// Artifact est un document publié (formulaire d'adhésion ou face de carte).
// Le couple (adhésion, type) détermine un public ID stable : republier
// écrase le contenu en place, jamais de second document.
type Artifact struct {
	gorm.Model
	AdhesionID uint             `gorm:"index:idx_artifact_adhesion_type,unique" json:"adhesion_id"`
	Type       TypeDocument     `gorm:"index:idx_artifact_adhesion_type,unique" json:"type"`
	PublicID   string           `json:"public_id"`
	SecureURL  string           `json:"secure_url"`
	Revision   RevisionDocument `json:"revision"`
}

// PublicIDFor calcule la clé de stockage d'un document. Fonction pure :
// elle ne dépend que de l'ID backend de l'adhésion et du type de document,
// jamais du numéro d'adhérent.
func PublicIDFor(adhesionID uint, t TypeDocument) string {
	switch t {
	case DocumentCarteRecto:
		return fmt.Sprintf("cartes_membres/%d_recto", adhesionID)
	case DocumentCarteVerso:
		return fmt.Sprintf("cartes_membres/%d_verso", adhesionID)
	default:
		return fmt.Sprintf("adhesions/%d", adhesionID)
	}
}
