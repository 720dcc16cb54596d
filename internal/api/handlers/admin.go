package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/plant-gallery/backend/internal/metrics"
	"github.com/codyseavey/plant-gallery/backend/internal/services"
)

type AdminHandler struct {
	cache   *services.SearchCacheService
	janitor *services.CacheJanitor
}

func NewAdminHandler(cache *services.SearchCacheService, janitor *services.CacheJanitor) *AdminHandler {
	return &AdminHandler{
		cache:   cache,
		janitor: janitor,
	}
}

// GetCacheStatus returns search cache statistics and the janitor's last run
// GET /api/admin/cache
func (h *AdminHandler) GetCacheStatus(c *gin.Context) {
	if h.cache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search cache not available"})
		return
	}

	resp := gin.H{"cache": h.cache.GetStats()}
	if h.janitor != nil {
		resp["janitor"] = h.janitor.GetStatus()
	}
	c.JSON(http.StatusOK, resp)
}

// PurgeCache drops cached search pages. With ?expired=true only stale pages go.
// DELETE /api/admin/cache
func (h *AdminHandler) PurgeCache(c *gin.Context) {
	if h.cache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search cache not available"})
		return
	}

	expiredOnly := c.Query("expired") == "true"

	var (
		purged int64
		err    error
	)
	if expiredOnly {
		purged, err = h.cache.PurgeExpired()
	} else {
		purged, err = h.cache.PurgeAll()
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	metrics.UpdateCacheMetrics(h.cache.DB())

	c.JSON(http.StatusOK, gin.H{
		"message":      "Search cache purged",
		"purged":       purged,
		"expired_only": expiredOnly,
	})
}
