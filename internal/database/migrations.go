package database

import (
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/codyseavey/plant-gallery/backend/internal/models"
)

// RunMigrations runs data migrations after schema changes
func RunMigrations(db *gorm.DB) error {
	if err := purgeExpiredSearches(db); err != nil {
		return err
	}
	return nil
}

// purgeExpiredSearches drops cached pages that outlived their TTL while the server was down.
// Safe to run repeatedly.
func purgeExpiredSearches(db *gorm.DB) error {
	result := db.Where("expires_at IS NOT NULL AND expires_at < ?", time.Now()).Delete(&models.SearchCache{})
	if result.Error != nil {
		log.Printf("Warning: failed to purge expired search cache entries: %v", result.Error)
		return nil
	}
	if result.RowsAffected > 0 {
		log.Printf("Purged %d expired search cache entries", result.RowsAffected)
	}
	return nil
}
