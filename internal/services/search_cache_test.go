package services

import (
	"bytes"
	"errors"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/codyseavey/plant-gallery/backend/internal/models"
)

func samplePage(ids ...int) *models.ImageSearchResponse {
	resp := &models.ImageSearchResponse{Total: 100, TotalHits: 100}
	for _, id := range ids {
		resp.Hits = append(resp.Hits, models.ImageResult{
			ID:              id,
			PreviewURL:      "https://cdn.example/preview.jpg",
			FullURL:         "https://cdn.example/full.jpg",
			TagList:         "plant, leaf",
			AttributionUser: "gardener",
		})
	}
	return resp
}

func TestSearchCacheSetAndGet(t *testing.T) {
	cache := NewSearchCacheService(newTestDB(t), time.Hour)

	if _, ok := cache.Get("rose plants", 1); ok {
		t.Fatal("expected miss on empty cache")
	}

	if err := cache.Set("rose plants", 1, samplePage(1, 2, 3)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok := cache.Get("rose plants", 1)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got.Hits) != 3 || got.Hits[0].ID != 1 || got.Hits[0].AttributionUser != "gardener" {
		t.Errorf("unexpected cached page: %#v", got)
	}

	if _, ok := cache.Get("rose plants", 2); ok {
		t.Error("different page must not hit")
	}

	// Upsert replaces the payload for the same key
	if err := cache.Set("rose plants", 1, samplePage(9)); err != nil {
		t.Fatalf("second Set failed: %v", err)
	}
	got, _ = cache.Get("rose plants", 1)
	if len(got.Hits) != 1 || got.Hits[0].ID != 9 {
		t.Errorf("expected replaced payload, got %#v", got)
	}

	stats := cache.GetStats()
	if stats.Entries != 1 {
		t.Errorf("expected 1 entry, got %d", stats.Entries)
	}
	if stats.TotalHits != 2 {
		t.Errorf("expected 2 hits, got %d", stats.TotalHits)
	}
}

func TestSearchCacheExpiry(t *testing.T) {
	db := newTestDB(t)
	cache := NewSearchCacheService(db, time.Hour)

	if err := cache.Set("fern plants", 1, samplePage(1)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	past := time.Now().Add(-time.Minute)
	if err := db.Model(&models.SearchCache{}).Where("1 = 1").Update("expires_at", past).Error; err != nil {
		t.Fatalf("failed to age entry: %v", err)
	}

	if _, ok := cache.Get("fern plants", 1); ok {
		t.Error("expired entry must be a miss")
	}
	if stats := cache.GetStats(); stats.Entries != 0 {
		t.Errorf("expired entry should be deleted on read, %d left", stats.Entries)
	}
}

func TestSearchCachePurge(t *testing.T) {
	db := newTestDB(t)
	cache := NewSearchCacheService(db, time.Hour)

	for page := 1; page <= 3; page++ {
		if err := cache.Set("moss plants", page, samplePage(page)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	past := time.Now().Add(-time.Minute)
	db.Model(&models.SearchCache{}).Where("page = ?", 1).Update("expires_at", past)

	purged, err := cache.PurgeExpired()
	if err != nil || purged != 1 {
		t.Fatalf("PurgeExpired() = %d, %v; want 1, nil", purged, err)
	}

	purged, err = cache.PurgeAll()
	if err != nil || purged != 2 {
		t.Fatalf("PurgeAll() = %d, %v; want 2, nil", purged, err)
	}
}

func TestSearchCacheDisabled(t *testing.T) {
	var nilCache *SearchCacheService
	if _, ok := nilCache.Get("x", 1); ok {
		t.Error("nil cache must always miss")
	}
	if err := nilCache.Set("x", 1, samplePage(1)); err != nil {
		t.Errorf("nil cache Set should be a no-op, got %v", err)
	}

	zeroTTL := NewSearchCacheService(newTestDB(t), 0)
	_ = zeroTTL.Set("x", 1, samplePage(1))
	if _, ok := zeroTTL.Get("x", 1); ok {
		t.Error("zero TTL disables caching")
	}
}

func TestCacheJanitorRunOnce(t *testing.T) {
	db := newTestDB(t)
	cache := NewSearchCacheService(db, time.Hour)
	_ = cache.Set("cactus plants", 1, samplePage(1))
	_ = cache.Set("cactus plants", 2, samplePage(2))

	past := time.Now().Add(-time.Minute)
	db.Model(&models.SearchCache{}).Where("1 = 1").Update("expires_at", past)

	janitor := NewCacheJanitor(cache, time.Minute)
	if purged := janitor.RunOnce(); purged != 2 {
		t.Errorf("expected 2 purged, got %d", purged)
	}

	status := janitor.GetStatus()
	if status.LastPurged != 2 || status.TotalPurged != 2 {
		t.Errorf("unexpected status: %#v", status)
	}
	if status.NextRunTime.Sub(status.LastRunTime) != time.Minute {
		t.Errorf("next run should be one interval after last run, got %v", status.NextRunTime.Sub(status.LastRunTime))
	}
}

func TestSearchCacheHitCountFailureIsLogged(t *testing.T) {
	db := newTestDB(t)
	cache := NewSearchCacheService(db, time.Hour)
	if err := cache.Set("ivy plants", 1, samplePage(4)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	err := db.Callback().Update().Before("gorm:update").Register("test:fail_update", func(tx *gorm.DB) {
		tx.AddError(errors.New("database is locked"))
	})
	if err != nil {
		t.Fatalf("failed to register callback: %v", err)
	}

	var buf bytes.Buffer
	log.SetOutput(&buf)
	SetDebug(true)
	t.Cleanup(func() {
		SetDebug(false)
		log.SetOutput(os.Stderr)
	})

	got, ok := cache.Get("ivy plants", 1)
	if !ok || len(got.Hits) != 1 {
		t.Fatalf("a failed hit count update should still serve the page, got %v %v", got, ok)
	}
	if !strings.Contains(buf.String(), "hit count update failed") || !strings.Contains(buf.String(), "database is locked") {
		t.Errorf("expected the update failure to be logged, got %q", buf.String())
	}
}
