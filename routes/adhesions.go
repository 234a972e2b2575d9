package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/agcoapp/agco-backend/models"
	"github.com/agcoapp/agco-backend/services/adhesions"
	"github.com/agcoapp/agco-backend/services/documents"
)

// AdhesionsHandler gère le cycle de vie des demandes d'adhésion, dont
// l'approbation qui déclenche le pipeline complet de documents.
type AdhesionsHandler struct {
	db       *gorm.DB
	store    *adhesions.Store
	pipeline *documents.Pipeline
}

func NewAdhesionsHandler(db *gorm.DB, store *adhesions.Store, pipeline *documents.Pipeline) *AdhesionsHandler {
	return &AdhesionsHandler{db: db, store: store, pipeline: pipeline}
}

// champ résout une valeur du formulaire soumis : clé localisée d'abord,
// clé canonique ensuite. Le mobile envoie l'une ou l'autre convention.
func champ(brut map[string]interface{}, localise, canonique string) string {
	for _, k := range []string{localise, canonique} {
		if v, ok := brut[k]; ok {
			if s, ok := v.(string); ok && s != "" && s != "undefined" && s != "null" {
				return s
			}
		}
	}
	return ""
}

func champEntier(brut map[string]interface{}, localise, canonique string) int {
	for _, k := range []string{localise, canonique} {
		switch v := brut[k].(type) {
		case float64:
			return int(v)
		case string:
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
	}
	return 0
}

// Submit enregistre une demande d'adhésion. Le formulaire brut est
// conservé tel quel, en plus des champs structurés normalisés.
func (h *AdhesionsHandler) Submit(c *gin.Context) {
	var brut map[string]interface{}
	if err := c.ShouldBindJSON(&brut); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload invalide", "details": err.Error()})
		return
	}

	userID := c.GetUint("user_id")
	var existante models.Adhesion
	h.db.Where("user_id = ? AND statut = ?", userID, models.StatutEnAttente).First(&existante)
	if existante.ID != 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "une demande est déjà en attente"})
		return
	}

	adhesion := models.Adhesion{
		UserID:                userID,
		Nom:                   champ(brut, "nom", "last_name"),
		Prenom:                champ(brut, "prenom", "first_name"),
		DateNaissance:         champ(brut, "date_naissance", "birth_date"),
		LieuNaissance:         champ(brut, "lieu_naissance", "birth_place"),
		Adresse:               champ(brut, "adresse", "address"),
		Profession:            champ(brut, "profession", "profession"),
		VilleResidence:        champ(brut, "ville_residence", "residence_city"),
		DateEntree:            champ(brut, "date_entree", "entry_date"),
		Employeur:             champ(brut, "employeur", "employer"),
		Telephone:             champ(brut, "telephone", "phone"),
		Conjoint:              champ(brut, "conjoint", "spouse"),
		NombreEnfants:         champEntier(brut, "nombre_enfants", "children_count"),
		Commentaire:           champ(brut, "commentaire", "comment"),
		NumeroCarteConsulaire: champ(brut, "numero_carte_consulaire", "consular_id"),
		PhotoURL:              champ(brut, "photo_url", "photo"),
		SignatureURL:          champ(brut, "signature_url", "signature"),
		Statut:                models.StatutEnAttente,
		Brut:                  datatypes.JSONMap(brut),
	}

	if adhesion.Nom == "" || adhesion.Prenom == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nom et prénom requis"})
		return
	}

	if err := h.db.Create(&adhesion).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "erreur enregistrement de la demande"})
		return
	}
	c.JSON(http.StatusCreated, adhesion)
}

// List renvoie les demandes, filtrables par statut (?statut=en_attente).
func (h *AdhesionsHandler) List(c *gin.Context) {
	q := h.db.Order("created_at DESC")
	if statut := c.Query("statut"); statut != "" {
		q = q.Where("statut = ?", statut)
	}
	var liste []models.Adhesion
	if err := q.Find(&liste).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "erreur lecture des demandes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(liste), "adhesions": liste})
}

func (h *AdhesionsHandler) Get(c *gin.Context) {
	adhesion, ok := h.chargerAdhesion(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, adhesion)
}

type approveRequest struct {
	Commentaire string `json:"commentaire"`
}

// Approve déroule le pipeline complet : publication provisoire des trois
// documents, attribution du numéro, republication définitive. Toute
// erreur est renvoyée en bloquant, avec l'étape fautive ; une erreur
// survenue après l'approbation est signalée comme telle pour que
// l'opérateur relance la régénération.
func (h *AdhesionsHandler) Approve(c *gin.Context) {
	adhesion, ok := h.chargerAdhesion(c)
	if !ok {
		return
	}
	if adhesion.Statut != models.StatutEnAttente {
		c.JSON(http.StatusConflict, gin.H{"error": "adhésion déjà traitée", "statut": adhesion.Statut})
		return
	}

	// corps optionnel : l'approbation sans commentaire est permise
	var req approveRequest
	_ = c.ShouldBindJSON(&req)

	result, err := h.pipeline.Approuver(c.Request.Context(), adhesion, req.Commentaire)
	if err != nil {
		var perr *documents.PipelineError
		if errors.As(err, &perr) {
			statut := http.StatusBadGateway
			reponse := gin.H{"error": "génération des documents interrompue", "etape": perr.Etat, "details": perr.Err.Error()}
			if perr.ApresApprobation() {
				// le membre est approuvé côté base mais ses documents
				// sont périmés : pas de retour arrière automatique
				reponse["approuve"] = true
				reponse["action"] = "relancer la régénération des documents"
			}
			c.JSON(statut, reponse)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "erreur interne", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

type rejectRequest struct {
	Motif string `json:"motif" binding:"required"`
}

func (h *AdhesionsHandler) Reject(c *gin.Context) {
	adhesion, ok := h.chargerAdhesion(c)
	if !ok {
		return
	}

	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "motif de rejet requis"})
		return
	}

	if err := h.store.Reject(c.Request.Context(), adhesion.ID, req.Motif); err != nil {
		if errors.Is(err, adhesions.ErrDejaTraitee) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "erreur lors du rejet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "demande rejetée"})
}

type regenerateRequest struct {
	Types []models.TypeDocument `json:"types"`
}

// Regenerate republie les documents d'un adhérent déjà approuvé. C'est la
// reprise opérateur prévue quand la phase définitive a échoué après
// l'attribution du numéro.
func (h *AdhesionsHandler) Regenerate(c *gin.Context) {
	adhesion, ok := h.chargerAdhesion(c)
	if !ok {
		return
	}
	if adhesion.Statut != models.StatutApprouvee {
		c.JSON(http.StatusConflict, gin.H{"error": "seule une adhésion approuvée peut être régénérée"})
		return
	}

	var req regenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Types) == 0 {
		req.Types = []models.TypeDocument{
			models.DocumentFormulaire,
			models.DocumentCarteRecto,
			models.DocumentCarteVerso,
		}
	}

	formulaireURL, err := h.store.FormulaireURL(c.Request.Context(), adhesion.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "erreur lecture des documents existants"})
		return
	}

	publies, err := h.pipeline.Regenerer(c.Request.Context(), adhesion, req.Types, formulaireURL)
	if err != nil {
		var perr *documents.PipelineError
		reponse := gin.H{"error": "régénération interrompue", "details": err.Error(), "publies": publies}
		if errors.As(err, &perr) {
			reponse["etape"] = perr.Etat
		}
		c.JSON(http.StatusBadGateway, reponse)
		return
	}
	c.JSON(http.StatusOK, gin.H{"publies": publies})
}

// Artifacts liste les documents publiés d'une adhésion.
func (h *AdhesionsHandler) Artifacts(c *gin.Context) {
	adhesion, ok := h.chargerAdhesion(c)
	if !ok {
		return
	}
	artifacts, err := h.store.Artifacts(c.Request.Context(), adhesion.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "erreur lecture des documents"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"artifacts": artifacts})
}

func (h *AdhesionsHandler) chargerAdhesion(c *gin.Context) (*models.Adhesion, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identifiant invalide"})
		return nil, false
	}
	var adhesion models.Adhesion
	if err := h.db.First(&adhesion, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "adhésion introuvable"})
		return nil, false
	}
	return &adhesion, true
}
