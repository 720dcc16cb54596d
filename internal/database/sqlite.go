package database

import (
	"log"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codyseavey/plant-gallery/backend/internal/models"
)

var DB *gorm.DB

// Initialize opens the sqlite cache database and migrates its schema.
func Initialize(dbPath string, debug bool) error {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	db, err := Open(dbPath, debug)
	if err != nil {
		return err
	}
	DB = db

	log.Println("Database connected successfully")
	return nil
}

// Open connects to dbPath and runs schema and data migrations without touching the package-level handle.
func Open(dbPath string, debug bool) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&models.SearchCache{}); err != nil {
		return nil, err
	}

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	log.Println("Database migration completed")
	return db, nil
}

func GetDB() *gorm.DB {
	return DB
}
