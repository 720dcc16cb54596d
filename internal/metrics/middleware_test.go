package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPMetricsUsesRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(HTTPMetrics())
	router.GET("/api/items/:id", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/items/:id", "200"))

	for _, id := range []string{"1", "2", "3"} {
		req := httptest.NewRequest(http.MethodGet, "/api/items/"+id, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
	}

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/items/:id", "200"))
	if after-before != 3 {
		t.Errorf("expected 3 requests recorded under the route pattern, got %v", after-before)
	}
}

func TestObserveUpstream(t *testing.T) {
	before := testutil.ToFloat64(UpstreamRequestsTotal.WithLabelValues(UpstreamPixabay, "status"))
	ObserveUpstream(UpstreamPixabay, "status", time.Now())
	after := testutil.ToFloat64(UpstreamRequestsTotal.WithLabelValues(UpstreamPixabay, "status"))
	if after-before != 1 {
		t.Errorf("expected counter to increase by 1, got %v", after-before)
	}
}
