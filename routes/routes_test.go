package routes

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/agcoapp/agco-backend/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func baseDeTest(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Adhesion{},
		&models.Artifact{},
		&models.AccessCode{},
		&models.Parametre{},
		&models.CompteurAdhesion{},
	))
	return db
}

// identite simule le middleware JWT : injecte l'utilisateur authentifié
// dans le contexte gin.
func identite(userID uint, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("role", role)
		c.Next()
	}
}

func requeteJSON(t *testing.T, router *gin.Engine, methode, chemin string, corps interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var lecteur *bytes.Reader
	if corps != nil {
		donnees, err := json.Marshal(corps)
		require.NoError(t, err)
		lecteur = bytes.NewReader(donnees)
	} else {
		lecteur = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(methode, chemin, lecteur)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func corpsJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var corps map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &corps), "corps: %s", rec.Body.String())
	return corps
}

func creerUtilisateur(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	user := &models.User{
		Name:     "Test",
		Email:    "test+" + role + "@example.com",
		Password: "irrelevant",
		Role:     role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
