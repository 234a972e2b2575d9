package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/agcoapp/agco-backend/config"
	"github.com/agcoapp/agco-backend/database"
	"github.com/agcoapp/agco-backend/integrations/cloudinary"
	"github.com/agcoapp/agco-backend/integrations/qrserver"
	"github.com/agcoapp/agco-backend/middleware"
	"github.com/agcoapp/agco-backend/routes"
	"github.com/agcoapp/agco-backend/services/adhesions"
	"github.com/agcoapp/agco-backend/services/documents"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("pas de .env trouvé")
	}

	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("échec connexion base de données: %v", err)
	}

	// Surface de rendu hors écran, partagée par toutes les approbations.
	surface, err := documents.NewSurface(cfg.ChromeExecPath, cfg.RenderSettleDelay, cfg.RenderTimeout)
	if err != nil {
		log.Fatalf("échec démarrage de la surface de rendu: %v", err)
	}
	defer surface.Close()

	signer := cloudinary.NewLocalSigner(
		cfg.CloudinaryCloudName,
		cfg.CloudinaryAPIKey,
		cfg.CloudinaryAPISecret,
		cfg.CloudinaryUploadPreset,
	)
	publisher := cloudinary.NewClient(cfg.UploadEndpoint(), signer, cfg.UploadTimeout)
	fetcher := documents.NewFetcher(cfg.ImageFetchTimeout)
	qr := documents.NewQRGenerator(qrserver.NewClient(cfg.QRServiceURL))

	store := adhesions.NewStore(db, cfg.MembershipPrefix)
	pipeline := documents.NewPipeline(surface, fetcher, qr, publisher, store, store, store)

	authHandler := routes.NewAuthHandler(db, cfg)
	adhesionsHandler := routes.NewAdhesionsHandler(db, store, pipeline)
	uploadsHandler := routes.NewUploadsHandler(signer)
	codesHandler := routes.NewCodesHandler(db, cfg.AccessCodeValidity)
	parametresHandler := routes.NewParametresHandler(store)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "agco-backend"})
	})

	router.POST("/auth/register", authHandler.Register)
	router.POST("/auth/login", authHandler.Login)
	router.POST("/auth/code", codesHandler.Verify)

	api := router.Group("/api", middleware.JWT(cfg.JWTSecret))
	{
		api.GET("/auth/me", authHandler.Me)
		api.GET("/session", authHandler.Session)
		api.POST("/adhesions", adhesionsHandler.Submit)
		api.GET("/uploads/signature", uploadsHandler.Signature)
		api.GET("/parametres/signature-president", parametresHandler.SignaturePresident)

		admin := api.Group("", middleware.AdminOnly())
		{
			admin.GET("/adhesions", adhesionsHandler.List)
			admin.GET("/adhesions/:id", adhesionsHandler.Get)
			admin.GET("/adhesions/:id/artifacts", adhesionsHandler.Artifacts)
			admin.POST("/adhesions/:id/approve", adhesionsHandler.Approve)
			admin.POST("/adhesions/:id/reject", adhesionsHandler.Reject)
			admin.POST("/adhesions/:id/documents/regenerate", adhesionsHandler.Regenerate)
			admin.POST("/codes", codesHandler.Issue)
			admin.PUT("/parametres/:cle", parametresHandler.Set)
		}
	}

	srv := config.NewHTTPServer(cfg, router)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Println("[INFO] serveur sur http://localhost" + cfg.HTTPAddr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serveur HTTP: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[INFO] arrêt demandé, fermeture en cours")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[AVERTISSEMENT] arrêt du serveur: %v", err)
	}
}
