package config

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"
)

// Config contient la configuration principale du backend AGCO.
type Config struct {
	Env       string
	Port      string
	JWTSecret string

	// Base de données (postgres via DATABASE_URL, sinon sqlite local)
	DatabaseURL string

	// Cloudinary (stockage des documents générés)
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadPreset string
	CloudinaryUploadURL    string

	// Service externe de rendu QR
	QRServiceURL string

	// Rendu hors écran (Chrome headless)
	ChromeExecPath     string
	RenderSettleDelay  time.Duration
	RenderTimeout      time.Duration
	UploadTimeout      time.Duration
	ImageFetchTimeout  time.Duration
	MembershipPrefix   string
	AccessCodeValidity time.Duration
}

// Load charge la configuration à partir des variables d'environnement.
func Load() Config {
	cfg := Config{
		Env:         getEnv("AGCO_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "changeme-super-secret"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		CloudinaryCloudName:    getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:       getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret:    getEnv("CLOUDINARY_API_SECRET", ""),
		CloudinaryUploadPreset: getEnv("CLOUDINARY_UPLOAD_PRESET", "agco_documents"),
		CloudinaryUploadURL:    getEnv("CLOUDINARY_UPLOAD_URL", ""),

		QRServiceURL: getEnv("QR_SERVICE_URL", "https://api.qrserver.com/v1/create-qr-code/"),

		ChromeExecPath:     getEnv("CHROME_EXEC_PATH", ""),
		RenderSettleDelay:  getEnvDuration("RENDER_SETTLE_DELAY", 500*time.Millisecond),
		RenderTimeout:      getEnvDuration("RENDER_TIMEOUT", 30*time.Second),
		UploadTimeout:      getEnvDuration("UPLOAD_TIMEOUT", 45*time.Second),
		ImageFetchTimeout:  getEnvDuration("IMAGE_FETCH_TIMEOUT", 12*time.Second),
		MembershipPrefix:   getEnv("MEMBERSHIP_PREFIX", "AGC"),
		AccessCodeValidity: getEnvDuration("ACCESS_CODE_VALIDITY", 72*time.Hour),
	}

	if cfg.JWTSecret == "" || cfg.JWTSecret == "changeme-super-secret" {
		log.Println("[AVERTISSEMENT] JWT_SECRET n'est pas configuré ou utilise la valeur par défaut. Ne pas utiliser en production.")
	}

	if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPISecret == "" {
		log.Println("[INFO] Cloudinary n'est pas configuré. La publication des documents échouera.")
	}

	return cfg
}

func (c Config) HTTPAddr() string {
	return ":" + c.Port
}

// UploadEndpoint renvoie l'URL d'upload du cloud, dérivée du cloud name
// sauf si CLOUDINARY_UPLOAD_URL la surcharge (utile pour les tests).
func (c Config) UploadEndpoint() string {
	if c.CloudinaryUploadURL != "" {
		return c.CloudinaryUploadURL
	}
	return "https://api.cloudinary.com/v1_1/" + c.CloudinaryCloudName + "/image/upload"
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	log.Printf("[AVERTISSEMENT] valeur invalide pour %s: %q, valeur par défaut utilisée", key, v)
	return def
}

// NewHTTPServer crée un serveur HTTP configuré.
func NewHTTPServer(cfg Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:           cfg.HTTPAddr(),
		Handler:        handler,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   2 * time.Minute, // l'approbation exécute tout le pipeline de documents
		MaxHeaderBytes: 1 << 20,
	}
}
