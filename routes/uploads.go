package routes

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agcoapp/agco-backend/integrations/cloudinary"
	"github.com/agcoapp/agco-backend/models"
)

// UploadsHandler expose l'autorisation d'upload signée aux clients mobiles
// (photo et signature de l'adhérent, envoyées directement au stockage).
type UploadsHandler struct {
	signer cloudinary.SignatureProvider
}

func NewUploadsHandler(signer cloudinary.SignatureProvider) *UploadsHandler {
	return &UploadsHandler{signer: signer}
}

// Signature délivre les paramètres signés de courte durée pour un public
// ID donné. Le stockage écrase en place : un adhérent ne peut signer que
// dans ses propres dossiers, sinon il pourrait remplacer les documents
// publiés d'un autre membre. Les administrateurs ne sont pas restreints.
func (h *UploadsHandler) Signature(c *gin.Context) {
	publicID := c.Query("public_id")
	if publicID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "public_id requis"})
		return
	}

	if c.GetString("role") != models.RoleAdmin && !dossierDuMembre(publicID, c.GetUint("user_id")) {
		c.JSON(http.StatusForbidden, gin.H{"error": "public_id hors des dossiers du membre"})
		return
	}

	auth, err := h.signer.SignUpload(c.Request.Context(), publicID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signature d'upload impossible", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, auth)
}

// dossierDuMembre accepte photos/{userID} et signatures/{userID}, avec un
// suffixe optionnel (_2, _brouillon, ...) pour les versions successives.
func dossierDuMembre(publicID string, userID uint) bool {
	for _, dossier := range []string{"photos", "signatures"} {
		base := fmt.Sprintf("%s/%d", dossier, userID)
		if publicID == base || strings.HasPrefix(publicID, base+"_") {
			return true
		}
	}
	return false
}
