package database

import (
	"log"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/agcoapp/agco-backend/models"
)

// Connect ouvre la base (postgres si DATABASE_URL, sinon sqlite locale)
// et exécute les migrations automatiques.
func Connect(dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch {
	case strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://"):
		dialector = postgres.Open(dsn)
	case dsn != "":
		// DSN sans préfixe de schéma : on suppose postgres
		dialector = postgres.Open(dsn)
	default:
		dbPath := "agco.db"
		dialector = sqlite.Open(dbPath)
		dsn = dbPath
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Adhesion{},
		&models.Artifact{},
		&models.AccessCode{},
		&models.Parametre{},
		&models.CompteurAdhesion{},
	); err != nil {
		return nil, err
	}

	log.Println("[INFO] base connectée et migrée sur", dsn)
	return db, nil
}
