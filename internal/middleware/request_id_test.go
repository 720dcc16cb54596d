package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seen string
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		seen = GetRequestID(c)
		c.Status(http.StatusNoContent)
	})

	t.Run("generates an ID", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		header := w.Header().Get(RequestIDHeader)
		if _, err := uuid.Parse(header); err != nil {
			t.Fatalf("expected a UUID request ID, got %q", header)
		}
		if seen != header {
			t.Errorf("context ID %q does not match header %q", seen, header)
		}
	})

	t.Run("keeps caller ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, "trace-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get(RequestIDHeader); got != "trace-123" {
			t.Errorf("expected caller ID to be echoed, got %q", got)
		}
	})

	t.Run("replaces oversized caller ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("x", 200))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get(RequestIDHeader); len(got) > 64 {
			t.Errorf("expected a fresh ID, got %d chars", len(got))
		}
	})
}
