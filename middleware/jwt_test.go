package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secretDeTest = "secret-de-test"

func init() {
	gin.SetMode(gin.TestMode)
}

func routeurProtege() *gin.Engine {
	r := gin.New()
	r.GET("/prive", JWT(secretDeTest), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetUint("user_id")})
	})
	r.GET("/admin", JWT(secretDeTest), AdminOnly(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func signerToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func appeler(r *gin.Engine, chemin, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, chemin, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func claimsValides(role string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":  float64(42),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
}

func TestJWT(t *testing.T) {
	r := routeurProtege()

	rec := appeler(r, "/prive", signerToken(t, secretDeTest, claimsValides("adherent")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "42")
}

func TestJWTRefus(t *testing.T) {
	r := routeurProtege()

	cas := []struct {
		nom   string
		token string
	}{
		{"sans token", ""},
		{"token illisible", "pas-un-jwt"},
		{"mauvais secret", signerToken(t, "autre-secret", claimsValides("adherent"))},
		{"expiré", signerToken(t, secretDeTest, jwt.MapClaims{
			"sub": float64(42), "exp": time.Now().Add(-time.Hour).Unix(),
		})},
		{"sans sujet", signerToken(t, secretDeTest, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})},
	}
	for _, tc := range cas {
		t.Run(tc.nom, func(t *testing.T) {
			rec := appeler(r, "/prive", tc.token)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAdminOnly(t *testing.T) {
	r := routeurProtege()

	rec := appeler(r, "/admin", signerToken(t, secretDeTest, claimsValides("admin")))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = appeler(r, "/admin", signerToken(t, secretDeTest, claimsValides("adherent")))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
