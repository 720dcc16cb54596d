package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/plant-gallery/backend/internal/api"
	"github.com/codyseavey/plant-gallery/backend/internal/api/handlers"
	"github.com/codyseavey/plant-gallery/backend/internal/config"
	"github.com/codyseavey/plant-gallery/backend/internal/database"
	"github.com/codyseavey/plant-gallery/backend/internal/metrics"
	"github.com/codyseavey/plant-gallery/backend/internal/services"
)

func main() {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)
	services.SetDebug(cfg.Debug)

	if err := database.Initialize(cfg.DBPath, cfg.Debug); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db := database.GetDB()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	searchCache := services.NewSearchCacheService(db, cfg.ImageCacheTTL)
	metrics.UpdateCacheMetrics(db)

	imageSearch := services.NewImageSearchService(services.ImageSearchOptions{
		APIKey:            cfg.PixabayAPIKey,
		BaseURL:           cfg.PixabayBaseURL,
		Keyword:           cfg.SearchKeyword,
		RequestsPerMinute: cfg.PixabayRequestsPM,
		Timeout:           cfg.UpstreamTimeout,
		Cache:             searchCache,
	})

	recommender, err := services.NewRecommendationService(ctx, services.RecommendationOptions{
		APIKey:            cfg.GoogleAIAPIKey,
		Model:             cfg.GeminiModel,
		BaseURL:           cfg.GeminiBaseURL,
		RequestsPerMinute: cfg.GeminiRequestsPM,
		Timeout:           cfg.UpstreamTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to create recommendation service: %v", err)
	}

	janitor := services.NewCacheJanitor(searchCache, time.Hour)
	go janitor.Start(ctx)

	if cfg.AdminKey == "" {
		log.Println("Warning: ADMIN_KEY not set, admin routes are unauthenticated")
	}

	router := api.NewRouter(api.RouterDeps{
		Images:          handlers.NewImageHandler(imageSearch),
		Recommendations: handlers.NewRecommendationHandler(recommender, cfg.MaxRequestBodySize),
		Admin:           handlers.NewAdminHandler(searchCache, janitor),
		AdminKey:        cfg.AdminKey,
		Health: func() gin.H {
			return gin.H{
				"image_search":    imageSearch.IsEnabled(),
				"recommendations": recommender.IsEnabled(),
			}
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Plant gallery proxy listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
