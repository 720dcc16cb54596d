package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/plant-gallery/backend/internal/middleware"
	"github.com/codyseavey/plant-gallery/backend/internal/models"
	"github.com/codyseavey/plant-gallery/backend/internal/services"
)

// PlantRecommender asks the AI model for plant recommendations.
type PlantRecommender interface {
	Recommend(ctx context.Context, query, imageData string) ([]models.PlantRecommendation, error)
}

type RecommendationHandler struct {
	recommender PlantRecommender
	maxBodySize int64
}

func NewRecommendationHandler(recommender PlantRecommender, maxBodySize int64) *RecommendationHandler {
	return &RecommendationHandler{
		recommender: recommender,
		maxBodySize: maxBodySize,
	}
}

// GetRecommendations returns AI plant recommendations for a query and/or photo
// POST /api/plant-recommendations
func (h *RecommendationHandler) GetRecommendations(c *gin.Context) {
	if h.maxBodySize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodySize)
	}

	var req models.RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
			return
		}
		// An empty body is treated as a request with no fields
		if !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	if strings.TrimSpace(req.Query) == "" && strings.TrimSpace(req.ImageData) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query or image data is required"})
		return
	}

	recs, err := h.recommender.Recommend(c.Request.Context(), req.Query, req.ImageData)
	if err != nil {
		requestID := middleware.GetRequestID(c)
		if errors.Is(err, services.ErrInvalidRequest) {
			log.Printf("Rejected recommendation request [%s]: %v", requestID, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image data"})
			return
		}
		log.Printf("Recommendation request failed [%s]: %v", requestID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get plant recommendations"})
		return
	}

	c.JSON(http.StatusOK, recs)
}
