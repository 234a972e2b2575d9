package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/agcoapp/agco-backend/models"
	"github.com/agcoapp/agco-backend/utils"
)

// CodesHandler gère les codes d'accès temporaires remis aux futurs
// adhérents pour ouvrir le formulaire.
type CodesHandler struct {
	db       *gorm.DB
	validity time.Duration
}

func NewCodesHandler(db *gorm.DB, validity time.Duration) *CodesHandler {
	return &CodesHandler{db: db, validity: validity}
}

// Issue émet un nouveau code à usage unique (admin).
func (h *CodesHandler) Issue(c *gin.Context) {
	code := models.AccessCode{
		Code:      utils.GenerateAccessCode(),
		IssuedBy:  c.GetUint("user_id"),
		ExpiresAt: time.Now().Add(h.validity),
	}
	if err := h.db.Create(&code).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "erreur émission du code"})
		return
	}
	c.JSON(http.StatusCreated, code)
}

type verifyCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// Verify contrôle la validité d'un code sans le consommer (le code est
// brûlé à l'inscription, pas à la vérification).
func (h *CodesHandler) Verify(c *gin.Context) {
	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code requis"})
		return
	}

	var code models.AccessCode
	if err := h.db.Where("code = ?", req.Code).First(&code).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"valide": false, "error": "code inconnu"})
		return
	}
	if !code.Valide(time.Now()) {
		c.JSON(http.StatusGone, gin.H{"valide": false, "error": "code expiré ou déjà utilisé"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valide": true, "expire_le": code.ExpiresAt})
}
