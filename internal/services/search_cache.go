package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/plant-gallery/backend/internal/metrics"
	"github.com/codyseavey/plant-gallery/backend/internal/models"
)

// SearchCacheService caches upstream image search pages in the database
type SearchCacheService struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewSearchCacheService creates a cache whose entries expire after ttl.
// A nil db or a zero ttl disables caching.
func NewSearchCacheService(db *gorm.DB, ttl time.Duration) *SearchCacheService {
	return &SearchCacheService{db: db, ttl: ttl}
}

func (s *SearchCacheService) enabled() bool {
	return s != nil && s.db != nil && s.ttl > 0
}

// Get returns the cached page for the upstream search term and page number.
// Expired entries are deleted and reported as misses.
func (s *SearchCacheService) Get(term string, page int) (*models.ImageSearchResponse, bool) {
	if !s.enabled() {
		return nil, false
	}

	hash := searchKey(term, page)

	var cached models.SearchCache
	err := s.db.Where("key_hash = ?", hash).First(&cached).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			debugLog("Search cache lookup failed for %q page %d: %v", term, page, err)
		}
		metrics.SearchCacheMisses.Inc()
		return nil, false
	}

	if cached.IsExpired() {
		s.db.Delete(&cached)
		metrics.SearchCacheMisses.Inc()
		debugLog("Search cache entry expired for %q page %d", term, page)
		return nil, false
	}

	var resp models.ImageSearchResponse
	if err := json.Unmarshal([]byte(cached.Payload), &resp); err != nil {
		s.db.Delete(&cached)
		metrics.SearchCacheMisses.Inc()
		infoLog("Dropped unreadable search cache entry %s: %v", hash[:16], err)
		return nil, false
	}

	if err := s.db.Model(&models.SearchCache{}).Where("id = ?", cached.ID).UpdateColumn("hit_count", gorm.Expr("hit_count + 1")).Error; err != nil {
		debugLog("Search cache hit count update failed for %q page %d: %v", term, page, err)
	}

	metrics.SearchCacheHits.Inc()
	debugLog("Search cache hit for %q page %d", term, page)
	return &resp, true
}

// Set stores a page, replacing any previous entry for the same term and page.
func (s *SearchCacheService) Set(term string, page int, resp *models.ImageSearchResponse) error {
	if !s.enabled() || resp == nil {
		return nil
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	now := time.Now()
	expiresAt := now.Add(s.ttl)
	cached := models.SearchCache{
		KeyHash:   searchKey(term, page),
		Query:     term,
		Page:      page,
		Payload:   string(payload),
		CreatedAt: now,
		ExpiresAt: &expiresAt,
	}

	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"payload", "created_at", "expires_at",
		}),
	}).Create(&cached).Error
}

// GetStats returns cache statistics
func (s *SearchCacheService) GetStats() models.SearchCacheStats {
	var stats models.SearchCacheStats
	if s == nil || s.db == nil {
		return stats
	}

	s.db.Model(&models.SearchCache{}).Count(&stats.Entries)
	s.db.Model(&models.SearchCache{}).Where("expires_at IS NOT NULL AND expires_at < ?", time.Now()).Count(&stats.Expired)

	var result struct {
		TotalHits int64
	}
	s.db.Model(&models.SearchCache{}).Select("COALESCE(SUM(hit_count), 0) as total_hits").Scan(&result)
	stats.TotalHits = result.TotalHits

	return stats
}

// PurgeExpired deletes entries past their expiry and returns how many were removed.
func (s *SearchCacheService) PurgeExpired() (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	result := s.db.Where("expires_at IS NOT NULL AND expires_at < ?", time.Now()).Delete(&models.SearchCache{})
	return result.RowsAffected, result.Error
}

// PurgeAll empties the cache.
func (s *SearchCacheService) PurgeAll() (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	result := s.db.Where("1 = 1").Delete(&models.SearchCache{})
	return result.RowsAffected, result.Error
}

// DB exposes the underlying handle for metrics collection.
func (s *SearchCacheService) DB() *gorm.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// searchKey hashes the upstream term and page for efficient lookups
func searchKey(term string, page int) string {
	hash := sha256.Sum256([]byte(term + "\x00" + strconv.Itoa(page)))
	return hex.EncodeToString(hash[:])
}
