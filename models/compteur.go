package models

import "gorm.io/gorm"

// CompteurAdhesion tient la dernière séquence de numéro d'adhérent
// attribuée pour une année. La ligne est verrouillée FOR UPDATE pendant
// l'attribution : deux approbations concurrentes ne peuvent pas lire le
// même compteur, donc jamais produire le même numéro.
type CompteurAdhesion struct {
	gorm.Model
	Annee   int `gorm:"uniqueIndex" json:"annee"`
	Dernier int `json:"dernier"`
}
