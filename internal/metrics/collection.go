package metrics

import (
	"log"

	"gorm.io/gorm"

	"github.com/codyseavey/plant-gallery/backend/internal/models"
)

// UpdateCacheMetrics counts cached search pages and refreshes the entries gauge.
// Call this after the cache is purged or periodically.
func UpdateCacheMetrics(db *gorm.DB) {
	if db == nil {
		return
	}

	var entries int64
	if err := db.Model(&models.SearchCache{}).Count(&entries).Error; err != nil {
		log.Printf("Metrics: failed to count search cache entries: %v", err)
		return
	}
	SearchCacheEntries.Set(float64(entries))
}
