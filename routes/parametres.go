package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agcoapp/agco-backend/models"
	"github.com/agcoapp/agco-backend/services/adhesions"
)

// ParametresHandler expose les réglages de l'association (signature du
// président, logo) utilisés par le rendu des documents.
type ParametresHandler struct {
	store *adhesions.Store
}

func NewParametresHandler(store *adhesions.Store) *ParametresHandler {
	return &ParametresHandler{store: store}
}

// SignaturePresident renvoie l'URL de la signature du contre-signataire.
func (h *ParametresHandler) SignaturePresident(c *gin.Context) {
	url, err := h.store.SignaturePresidentURL(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "signature du président non configurée"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signature_url": url})
}

type setParametreRequest struct {
	Valeur string `json:"valeur" binding:"required"`
}

// Set remplace un réglage (admin). Seules les clés connues sont admises.
func (h *ParametresHandler) Set(c *gin.Context) {
	cle := c.Param("cle")
	if cle != models.ParamSignaturePresident && cle != models.ParamLogoAssociation {
		c.JSON(http.StatusBadRequest, gin.H{"error": "clé de paramètre inconnue"})
		return
	}

	var req setParametreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valeur requise"})
		return
	}

	if err := h.store.SetParametre(c.Request.Context(), cle, req.Valeur); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "erreur enregistrement du paramètre"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "paramètre enregistré"})
}
