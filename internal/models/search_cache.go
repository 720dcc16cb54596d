package models

import "time"

// SearchCache stores upstream image search pages.
// Pixabay asks clients to cache results for 24 hours, so entries carry an expiry.
type SearchCache struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	KeyHash   string     `gorm:"uniqueIndex;not null;size:64" json:"key_hash"` // SHA256 hex of query+page
	Query     string     `gorm:"not null" json:"query"`
	Page      int        `gorm:"not null" json:"page"`
	Payload   string     `gorm:"not null" json:"-"` // JSON-encoded ImageSearchResponse
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `gorm:"index" json:"expires_at"` // nil = never expires
	HitCount  int        `gorm:"default:0" json:"hit_count"`
}

func (SearchCache) TableName() string {
	return "search_caches"
}

// IsExpired returns true if the cache entry has expired
func (c *SearchCache) IsExpired() bool {
	if c.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*c.ExpiresAt)
}

// SearchCacheStats summarizes the cache for the admin endpoint.
type SearchCacheStats struct {
	Entries   int64 `json:"entries"`
	TotalHits int64 `json:"total_hits"`
	Expired   int64 `json:"expired"`
}
