package services

import (
	"context"
	"sync"
	"time"

	"github.com/codyseavey/plant-gallery/backend/internal/metrics"
)

const defaultJanitorInterval = 1 * time.Hour

// CacheJanitor periodically purges expired search cache entries and refreshes cache gauges.
type CacheJanitor struct {
	cache    *SearchCacheService
	interval time.Duration
	mu       sync.RWMutex

	lastRunTime  time.Time
	lastPurged   int64
	totalPurged  int64
	lastRunError string
}

// JanitorStatus is reported by the admin cache endpoint.
type JanitorStatus struct {
	LastRunTime  time.Time `json:"last_run_time"`
	NextRunTime  time.Time `json:"next_run_time"`
	LastPurged   int64     `json:"last_purged"`
	TotalPurged  int64     `json:"total_purged"`
	LastRunError string    `json:"last_run_error,omitempty"`
}

func NewCacheJanitor(cache *SearchCacheService, interval time.Duration) *CacheJanitor {
	if interval <= 0 {
		interval = defaultJanitorInterval
	}
	return &CacheJanitor{
		cache:    cache,
		interval: interval,
	}
}

// Start runs the janitor until ctx is cancelled
func (j *CacheJanitor) Start(ctx context.Context) {
	infoLog("Cache janitor started: purging expired search pages every %v", j.interval)

	j.RunOnce()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			infoLog("Cache janitor stopping...")
			return
		case <-ticker.C:
			j.RunOnce()
		}
	}
}

// RunOnce purges expired entries and updates metrics. Returns the number purged.
func (j *CacheJanitor) RunOnce() int64 {
	purged, err := j.cache.PurgeExpired()

	j.mu.Lock()
	j.lastRunTime = time.Now()
	j.lastPurged = purged
	j.totalPurged += purged
	j.lastRunError = ""
	if err != nil {
		j.lastRunError = err.Error()
	}
	j.mu.Unlock()

	if err != nil {
		infoLog("Cache janitor: purge failed: %v", err)
	} else if purged > 0 {
		infoLog("Cache janitor: purged %d expired entries", purged)
	}

	metrics.UpdateCacheMetrics(j.cache.DB())
	return purged
}

// GetStatus returns the janitor's last run details
func (j *CacheJanitor) GetStatus() JanitorStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()

	next := time.Time{}
	if !j.lastRunTime.IsZero() {
		next = j.lastRunTime.Add(j.interval)
	}

	return JanitorStatus{
		LastRunTime:  j.lastRunTime,
		NextRunTime:  next,
		LastPurged:   j.lastPurged,
		TotalPurged:  j.totalPurged,
		LastRunError: j.lastRunError,
	}
}
