package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/agcoapp/agco-backend/config"
	"github.com/agcoapp/agco-backend/models"
	"github.com/agcoapp/agco-backend/utils"
)

type AuthHandler struct {
	db  *gorm.DB
	cfg config.Config
}

func NewAuthHandler(db *gorm.DB, cfg config.Config) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg}
}

type registerRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	AccessCode string `json:"access_code"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	Token string `json:"token"`
}

// Register crée un compte adhérent. Un code d'accès temporaire valide est
// exigé : l'inscription est réservée aux personnes invitées par le bureau.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload invalide", "details": err.Error()})
		return
	}

	var code models.AccessCode
	if err := h.db.Where("code = ?", req.AccessCode).First(&code).Error; err != nil || !code.Valide(time.Now()) {
		c.JSON(http.StatusForbidden, gin.H{"error": "code d'accès invalide ou expiré"})
		return
	}

	var existing models.User
	h.db.Where("email = ?", req.Email).First(&existing)
	if existing.ID != 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email déjà enregistré"})
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "impossible de hasher le mot de passe"})
		return
	}

	user := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hash,
		Role:     models.RoleAdherent,
	}
	if err := h.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "erreur création utilisateur"})
		return
	}

	now := time.Now()
	h.db.Model(&code).Update("used_at", &now)

	token, err := h.createToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "impossible de générer le token"})
		return
	}
	c.JSON(http.StatusCreated, authResponse{Token: token})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload invalide", "details": err.Error()})
		return
	}

	var user models.User
	h.db.Where("email = ?", req.Email).First(&user)
	if user.ID == 0 || !utils.CheckPassword(user.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "email ou mot de passe invalide"})
		return
	}

	token, err := h.createToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "impossible de générer le token"})
		return
	}
	c.JSON(http.StatusOK, authResponse{Token: token})
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetUint("user_id")
	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// Session renvoie l'état de la demande d'adhésion du compte appelant :
// statut d'approbation, numéro attribué, motif de rejet éventuel et
// l'instantané de la fiche.
func (h *AuthHandler) Session(c *gin.Context) {
	userID := c.GetUint("user_id")

	var adhesion models.Adhesion
	err := h.db.Where("user_id = ?", userID).Order("created_at DESC").First(&adhesion).Error
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"approval_state": "aucune_demande"})
		return
	}

	reponse := gin.H{
		"approval_state":  adhesion.Statut,
		"snapshot_record": adhesion,
	}
	if adhesion.NumeroAdherent != "" {
		reponse["membership_number"] = adhesion.NumeroAdherent
	}
	if adhesion.MotifRejet != "" {
		reponse["rejection_reason"] = adhesion.MotifRejet
	}
	c.JSON(http.StatusOK, reponse)
}

func (h *AuthHandler) createToken(user models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":  float64(user.ID),
		"role": user.Role,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
		"iat":  time.Now().Unix(),
		"iss":  "agco-backend",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.cfg.JWTSecret))
}
