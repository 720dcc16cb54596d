package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/plant-gallery/backend/internal/middleware"
	"github.com/codyseavey/plant-gallery/backend/internal/models"
)

// ImageSearcher fetches one page of plant photos.
type ImageSearcher interface {
	SearchImages(ctx context.Context, query string, page int) (*models.ImageSearchResponse, error)
}

type ImageHandler struct {
	searcher ImageSearcher
}

func NewImageHandler(searcher ImageSearcher) *ImageHandler {
	return &ImageHandler{searcher: searcher}
}

// SearchImages proxies a stock-photo search
// GET /api/plant-images?query=<text>&page=<n>
func (h *ImageHandler) SearchImages(c *gin.Context) {
	query := c.Query("query")
	page := parsePage(c.Query("page"))

	resp, err := h.searcher.SearchImages(c.Request.Context(), query, page)
	if err != nil {
		log.Printf("Image search failed [%s] query=%q page=%d: %v", middleware.GetRequestID(c), query, page, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch images"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// parsePage treats a missing, non-numeric, or non-positive page as the first page.
func parsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}
