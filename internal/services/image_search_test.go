package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/codyseavey/plant-gallery/backend/internal/models"
)

// fakePixabay serves count hits per page and records the last query string.
type fakePixabay struct {
	server   *httptest.Server
	calls    atomic.Int32
	lastQ    atomic.Value
	status   int
	hitCount int
}

func newFakePixabay(t *testing.T, status, hitCount int) *fakePixabay {
	t.Helper()
	f := &fakePixabay{status: status, hitCount: hitCount}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		q := r.URL.Query()
		f.lastQ.Store(q)

		if q.Get("key") != "pixabay-key" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("[ERROR 400] Invalid or missing API key"))
			return
		}
		if f.status != http.StatusOK {
			w.WriteHeader(f.status)
			w.Write([]byte("[ERROR 429] Too many requests"))
			return
		}

		resp := models.ImageSearchResponse{Total: 500, TotalHits: 500}
		for i := 0; i < f.hitCount; i++ {
			resp.Hits = append(resp.Hits, models.ImageResult{
				ID:         i + 1,
				PreviewURL: "https://cdn.example/p.jpg",
				FullURL:    "https://cdn.example/f.jpg",
				TagList:    "plant, green",
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func newTestImageSearch(f *fakePixabay, cache *SearchCacheService) *ImageSearchService {
	return NewImageSearchService(ImageSearchOptions{
		APIKey:            "pixabay-key",
		BaseURL:           f.server.URL + "/api/",
		RequestsPerMinute: 6000,
		Timeout:           5 * time.Second,
		Cache:             cache,
	})
}

func TestBuildSearchTerm(t *testing.T) {
	tests := []struct {
		query    string
		expected string
	}{
		{"rose", "rose plants"},
		{"  monstera deliciosa ", "monstera deliciosa plants"},
		{"", "plants"},
		{"   ", "plants"},
	}

	for _, tt := range tests {
		if got := BuildSearchTerm(tt.query, "plants"); got != tt.expected {
			t.Errorf("BuildSearchTerm(%q) = %q, want %q", tt.query, got, tt.expected)
		}
	}
}

func TestSearchImagesForwardsQuery(t *testing.T) {
	fake := newFakePixabay(t, http.StatusOK, models.ImagePageSize)
	svc := newTestImageSearch(fake, nil)

	resp, err := svc.SearchImages(context.Background(), "orchid", 3)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(resp.Hits) != models.ImagePageSize {
		t.Errorf("expected %d hits, got %d", models.ImagePageSize, len(resp.Hits))
	}
	if !resp.HasMore() {
		t.Error("a full page should report more results")
	}

	q, _ := fake.lastQ.Load().(url.Values)
	checks := map[string]string{
		"q":          "orchid plants",
		"page":       "3",
		"per_page":   "12",
		"image_type": "photo",
	}
	for key, want := range checks {
		if got := q.Get(key); got != want {
			t.Errorf("upstream %s = %q, want %q", key, got, want)
		}
	}
}

func TestSearchImagesDefaultsAndClamps(t *testing.T) {
	fake := newFakePixabay(t, http.StatusOK, 5)
	svc := newTestImageSearch(fake, nil)

	resp, err := svc.SearchImages(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.HasMore() {
		t.Error("a short page is the last page")
	}

	q, _ := fake.lastQ.Load().(url.Values)
	if q.Get("q") != "plants" {
		t.Errorf("blank query should search the keyword, got %q", q.Get("q"))
	}
	if q.Get("page") != "1" {
		t.Errorf("page below 1 should be sent as 1, got %q", q.Get("page"))
	}
}

func TestSearchImagesTruncatesOversizedPage(t *testing.T) {
	fake := newFakePixabay(t, http.StatusOK, 20)
	svc := newTestImageSearch(fake, nil)

	resp, err := svc.SearchImages(context.Background(), "ivy", 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(resp.Hits) > models.ImagePageSize {
		t.Errorf("page must not exceed %d hits, got %d", models.ImagePageSize, len(resp.Hits))
	}
}

func TestSearchImagesUpstreamFailure(t *testing.T) {
	fake := newFakePixabay(t, http.StatusTooManyRequests, 0)
	svc := newTestImageSearch(fake, nil)

	_, err := svc.SearchImages(context.Background(), "tulip", 1)
	if !errors.Is(err, ErrFetchFailure) {
		t.Fatalf("expected ErrFetchFailure, got %v", err)
	}

	var upstreamErr *UpstreamHTTPError
	if !errors.As(err, &upstreamErr) || upstreamErr.Status != http.StatusTooManyRequests {
		t.Errorf("expected wrapped upstream status 429, got %v", err)
	}
}

func TestSearchImagesNetworkFailure(t *testing.T) {
	fake := newFakePixabay(t, http.StatusOK, 1)
	svc := newTestImageSearch(fake, nil)
	fake.server.Close()

	_, err := svc.SearchImages(context.Background(), "tulip", 1)
	if !errors.Is(err, ErrFetchFailure) {
		t.Fatalf("expected ErrFetchFailure, got %v", err)
	}
}

func TestSearchImagesDisabled(t *testing.T) {
	svc := NewImageSearchService(ImageSearchOptions{})
	if svc.IsEnabled() {
		t.Fatal("service without key should be disabled")
	}

	_, err := svc.SearchImages(context.Background(), "rose", 1)
	if !errors.Is(err, ErrFetchFailure) || !errors.Is(err, ErrServiceDisabled) {
		t.Errorf("expected disabled fetch failure, got %v", err)
	}
}

func TestSearchImagesServesFromCache(t *testing.T) {
	fake := newFakePixabay(t, http.StatusOK, models.ImagePageSize)
	svc := newTestImageSearch(fake, NewSearchCacheService(newTestDB(t), time.Hour))

	first, err := svc.SearchImages(context.Background(), "basil", 1)
	if err != nil {
		t.Fatalf("first search failed: %v", err)
	}
	second, err := svc.SearchImages(context.Background(), "basil", 1)
	if err != nil {
		t.Fatalf("second search failed: %v", err)
	}

	if calls := fake.calls.Load(); calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", calls)
	}
	if len(first.Hits) != len(second.Hits) {
		t.Errorf("cached page differs: %d vs %d hits", len(first.Hits), len(second.Hits))
	}
	for i := range first.Hits {
		if first.Hits[i].Key() != second.Hits[i].Key() {
			t.Errorf("hit %d differs between calls", i)
		}
	}

	if _, err := svc.SearchImages(context.Background(), "basil", 2); err != nil {
		t.Fatalf("page 2 search failed: %v", err)
	}
	if calls := fake.calls.Load(); calls != 2 {
		t.Errorf("a new page must reach upstream, got %d calls", calls)
	}
}

func TestSearchImagesSharedCallSurvivesCancelledCaller(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.ImageSearchResponse{
			TotalHits: 1,
			Hits:      []models.ImageResult{{ID: 7, PreviewURL: "https://cdn.example/rose.jpg"}},
		})
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() {
		select {
		case <-release:
		default:
			close(release)
		}
	})

	svc := NewImageSearchService(ImageSearchOptions{
		APIKey:            "pixabay-key",
		BaseURL:           srv.URL + "/api/",
		RequestsPerMinute: 6000,
		Timeout:           5 * time.Second,
	})

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := svc.SearchImages(ctxA, "rose", 1)
		errA <- err
	}()
	<-started

	type result struct {
		resp *models.ImageSearchResponse
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		resp, err := svc.SearchImages(context.Background(), "rose", 1)
		resB <- result{resp, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		if !errors.Is(err, context.Canceled) || !errors.Is(err, ErrFetchFailure) {
			t.Errorf("cancelled caller should get a cancelled fetch failure, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting for the shared call")
	}

	close(release)
	select {
	case res := <-resB:
		if res.err != nil {
			t.Fatalf("other caller should still get the page, got %v", res.err)
		}
		if len(res.resp.Hits) != 1 || res.resp.Hits[0].ID != 7 {
			t.Errorf("unexpected page %#v", res.resp)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("other caller never got a result")
	}

	if n := calls.Load(); n != 1 {
		t.Errorf("expected one shared upstream call, got %d", n)
	}
}
