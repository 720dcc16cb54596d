// Package config loads server settings from the environment and an optional .env file.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	GinMode string
	DBPath  string
	Debug   bool

	PixabayAPIKey      string
	PixabayBaseURL     string
	SearchKeyword      string
	ImageCacheTTL      time.Duration
	PixabayRequestsPM  int
	GoogleAIAPIKey     string
	GeminiModel        string
	GeminiBaseURL      string
	GeminiRequestsPM   int
	UpstreamTimeout    time.Duration
	AdminKey           string
	MaxRequestBodySize int64
}

// Load reads .env (when present) and the process environment, then applies defaults.
// Missing API keys are not fatal: the affected proxy reports itself disabled.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	cfg := Config{
		Port:               getEnv("PORT", "8080"),
		GinMode:            getEnv("GIN_MODE", "release"),
		DBPath:             getEnv("DB_PATH", "./data/plant-gallery.db"),
		Debug:              getEnvBool("PROXY_DEBUG", false),
		PixabayAPIKey:      getSecret("PIXABAY_API_KEY"),
		PixabayBaseURL:     strings.TrimRight(getEnv("PIXABAY_BASE_URL", "https://pixabay.com/api/"), "/") + "/",
		SearchKeyword:      getEnv("SEARCH_KEYWORD", "plants"),
		ImageCacheTTL:      time.Duration(getEnvInt("IMAGE_CACHE_TTL_HOURS", 24)) * time.Hour,
		PixabayRequestsPM:  getEnvInt("PIXABAY_REQUESTS_PER_MINUTE", 100),
		GoogleAIAPIKey:     getSecret("GOOGLE_AI_API_KEY"),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", ""),
		GeminiRequestsPM:   getEnvInt("GEMINI_REQUESTS_PER_MINUTE", 15),
		UpstreamTimeout:    time.Duration(getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 30)) * time.Second,
		AdminKey:           getEnv("ADMIN_KEY", ""),
		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_MB", 16)) << 20,
	}

	if cfg.PixabayRequestsPM < 1 {
		cfg.PixabayRequestsPM = 1
	}
	if cfg.GeminiRequestsPM < 1 {
		cfg.GeminiRequestsPM = 1
	}
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = 30 * time.Second
	}
	if cfg.ImageCacheTTL < 0 {
		cfg.ImageCacheTTL = 0
	}

	return cfg
}

// getSecret reads KEY, falling back to the file named by KEY_FILE (for local dev and mounted secrets).
func getSecret(key string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	if path := strings.TrimSpace(os.Getenv(key + "_FILE")); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			return strings.TrimSpace(string(data))
		}
		log.Printf("Warning: could not read %s_FILE %q", key, path)
	}
	return ""
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return fallback
	}
	switch value {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return fallback
}
