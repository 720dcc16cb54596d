package services

import (
	"log"
	"os"
	"strings"
	"sync/atomic"
)

var proxyDebugEnabled atomic.Bool

func init() {
	// Enable debug logging if PROXY_DEBUG=1 or PROXY_DEBUG=true
	if v := os.Getenv("PROXY_DEBUG"); v != "" {
		v = strings.ToLower(v)
		SetDebug(v == "1" || v == "true" || v == "yes")
	}
}

// SetDebug toggles verbose upstream logging at runtime (config overrides the env default).
func SetDebug(enabled bool) {
	if enabled && !proxyDebugEnabled.Load() {
		log.Println("[PROXY] Debug logging: ENABLED")
	}
	proxyDebugEnabled.Store(enabled)
}

// debugLog logs only when PROXY_DEBUG is enabled.
// Use this for per-request details: upstream URLs, raw AI replies, cache hits.
func debugLog(format string, args ...interface{}) {
	if proxyDebugEnabled.Load() {
		log.Printf("[PROXY DEBUG] "+format, args...)
	}
}

// infoLog always logs important proxy events: upstream failures, service state, cache purges.
func infoLog(format string, args ...interface{}) {
	log.Printf("[PROXY] "+format, args...)
}
