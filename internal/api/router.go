package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codyseavey/plant-gallery/backend/internal/api/handlers"
	"github.com/codyseavey/plant-gallery/backend/internal/metrics"
	"github.com/codyseavey/plant-gallery/backend/internal/middleware"
)

// RouterDeps holds what the HTTP surface needs. Admin may be nil.
type RouterDeps struct {
	Images          *handlers.ImageHandler
	Recommendations *handlers.RecommendationHandler
	Admin           *handlers.AdminHandler
	AdminKey        string
	Health          func() gin.H
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(metrics.HTTPMetrics())
	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		status := gin.H{"status": "ok"}
		if deps.Health != nil {
			for k, v := range deps.Health() {
				status[k] = v
			}
		}
		c.JSON(http.StatusOK, status)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/plant-images", deps.Images.SearchImages)
		api.OPTIONS("/plant-images", middleware.Preflight)

		api.POST("/plant-recommendations", deps.Recommendations.GetRecommendations)
		api.OPTIONS("/plant-recommendations", middleware.Preflight)

		api.GET("/auth/status", middleware.AuthStatus(deps.AdminKey))
		api.POST("/auth/verify", middleware.VerifyAdminKey(deps.AdminKey))
	}

	if deps.Admin != nil {
		admin := api.Group("/admin")
		admin.Use(middleware.AdminKeyAuth(deps.AdminKey))
		{
			admin.GET("/cache", deps.Admin.GetCacheStatus)
			admin.DELETE("/cache", deps.Admin.PurgeCache)
		}
	}

	return r
}
