package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublicIDFor(t *testing.T) {
	tests := []struct {
		adhesionID uint
		kind       TypeDocument
		want       string
	}{
		{12, DocumentFormulaire, "adhesions/12"},
		{12, DocumentCarteRecto, "cartes_membres/12_recto"},
		{12, DocumentCarteVerso, "cartes_membres/12_verso"},
		{1, DocumentFormulaire, "adhesions/1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PublicIDFor(tt.adhesionID, tt.kind), "kind=%s", tt.kind)
	}
}

// La clé de stockage doit être stable : deux appels identiques donnent la
// même chaîne, indépendamment de l'attribution du numéro d'adhérent.
func TestPublicIDForStable(t *testing.T) {
	premier := PublicIDFor(42, DocumentCarteVerso)
	second := PublicIDFor(42, DocumentCarteVerso)
	assert.Equal(t, premier, second)
}

func TestChampsPrecedence(t *testing.T) {
	a := Adhesion{
		Nom:    "Diallo",
		Prenom: "Aminata",
		Brut: map[string]interface{}{
			"nom":        "ne-doit-pas-gagner", // le champ structuré prime
			"birth_date": "01-02-1980",          // clé canonique absente des colonnes
		},
	}

	champs := a.Champs()
	assert.Equal(t, "Diallo", champs["nom"])
	assert.Equal(t, "Aminata", champs["prenom"])
	assert.Equal(t, "01-02-1980", champs["birth_date"])
	// champ optionnel vide : chaîne vide, jamais "undefined"
	assert.Equal(t, "", champs["conjoint"])
	assert.Equal(t, "", champs["nombre_enfants"])
}
