package models

import (
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type StatutAdhesion string

const (
	StatutEnAttente StatutAdhesion = "en_attente"
	StatutApprouvee StatutAdhesion = "approuvee"
	StatutRejetee   StatutAdhesion = "rejetee"
)

// Adhesion représente une demande d'adhésion et son cycle de vie.
// Les dates sont stockées telles que soumises (format JJ-MM-AAAA attendu
// sur le formulaire), sans reformatage côté serveur.
type Adhesion struct {
	gorm.Model
	UserID uint `json:"user_id"`

	Nom                   string `json:"nom"`
	Prenom                string `json:"prenom"`
	DateNaissance         string `json:"date_naissance"`
	LieuNaissance         string `json:"lieu_naissance"`
	Adresse               string `json:"adresse"`
	Profession            string `json:"profession"`
	VilleResidence        string `json:"ville_residence"`
	DateEntree            string `json:"date_entree"`
	Employeur             string `json:"employeur"`
	Telephone             string `json:"telephone"`
	Conjoint              string `json:"conjoint"`
	NombreEnfants         int    `json:"nombre_enfants"`
	Commentaire           string `json:"commentaire"`
	NumeroCarteConsulaire string `json:"numero_carte_consulaire"`

	PhotoURL     string `json:"photo_url"`
	SignatureURL string `json:"signature_url"`

	Statut           StatutAdhesion `gorm:"index;default:en_attente" json:"statut"`
	NumeroAdherent   string         `gorm:"index" json:"numero_adherent"`
	MotifRejet       string         `json:"motif_rejet"`
	CommentaireAdmin string         `json:"commentaire_admin"`

	// Brut conserve le formulaire tel que soumis par le mobile, quelle que
	// soit la convention de nommage utilisée (localisée ou canonique).
	Brut datatypes.JSONMap `json:"brut,omitempty"`

	Artifacts []Artifact `json:"artifacts,omitempty"`

	User User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Champs aplatit l'adhésion en paires clé/valeur pour le rendu des
// documents. Les clés localisées priment; les clés canoniques du snapshot
// brut complètent les champs structurés absents.
func (a *Adhesion) Champs() map[string]string {
	champs := map[string]string{
		"nom":                     a.Nom,
		"prenom":                  a.Prenom,
		"date_naissance":          a.DateNaissance,
		"lieu_naissance":          a.LieuNaissance,
		"adresse":                 a.Adresse,
		"profession":              a.Profession,
		"ville_residence":         a.VilleResidence,
		"date_entree":             a.DateEntree,
		"employeur":               a.Employeur,
		"telephone":               a.Telephone,
		"conjoint":                a.Conjoint,
		"commentaire":             a.Commentaire,
		"numero_carte_consulaire": a.NumeroCarteConsulaire,
		"numero_adherent":         a.NumeroAdherent,
	}
	if a.NombreEnfants > 0 {
		champs["nombre_enfants"] = fmt.Sprintf("%d", a.NombreEnfants)
	} else {
		champs["nombre_enfants"] = ""
	}
	for k, v := range a.Brut {
		if s, ok := v.(string); ok {
			if _, deja := champs[k]; !deja {
				champs[k] = s
			}
		}
	}
	return champs
}
