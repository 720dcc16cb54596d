package services

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/codyseavey/plant-gallery/backend/internal/database"
)

// newTestDB opens a migrated sqlite database in a temp dir.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "cache.db"), false)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
