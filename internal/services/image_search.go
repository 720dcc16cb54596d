package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/codyseavey/plant-gallery/backend/internal/metrics"
	"github.com/codyseavey/plant-gallery/backend/internal/models"
)

const (
	defaultPixabayURL     = "https://pixabay.com/api/"
	defaultSearchKeyword  = "plants"
	pixabayErrorBodyLimit = 512
)

// ImageSearchOptions configures the stock-photo proxy.
type ImageSearchOptions struct {
	APIKey            string
	BaseURL           string
	Keyword           string // appended to every query to keep results on-topic
	RequestsPerMinute int
	Timeout           time.Duration
	HTTPClient        *http.Client
	Cache             *SearchCacheService
}

// ImageSearchService proxies Pixabay searches using a server-held key.
type ImageSearchService struct {
	apiKey     string
	baseURL    string
	keyword    string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	cache      *SearchCacheService
	group      singleflight.Group
	enabled    bool
}

// NewImageSearchService creates the image search proxy
func NewImageSearchService(opts ImageSearchOptions) *ImageSearchService {
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = defaultPixabayURL
	}
	keyword := strings.TrimSpace(opts.Keyword)
	if keyword == "" {
		keyword = defaultSearchKeyword
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	svc := &ImageSearchService{
		apiKey:     opts.APIKey,
		baseURL:    baseURL,
		keyword:    keyword,
		httpClient: httpClient,
		timeout:    timeout,
		limiter:    newMinuteLimiter(opts.RequestsPerMinute),
		cache:      opts.Cache,
		enabled:    opts.APIKey != "",
	}

	if svc.enabled {
		infoLog("Image search service: enabled (keyword=%q)", keyword)
	} else {
		infoLog("Image search service: disabled (no PIXABAY_API_KEY)")
	}

	return svc
}

// IsEnabled returns whether the Pixabay key is configured
func (s *ImageSearchService) IsEnabled() bool {
	return s.enabled
}

// BuildSearchTerm biases a user query toward the domain keyword.
// A blank query searches for the keyword alone.
func BuildSearchTerm(query, keyword string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return keyword
	}
	return query + " " + keyword
}

// SearchImages returns one page (at most models.ImagePageSize hits) for query.
// Every failure is reported as ErrFetchFailure; nothing is retried.
func (s *ImageSearchService) SearchImages(ctx context.Context, query string, page int) (*models.ImageSearchResponse, error) {
	if page < 1 {
		page = 1
	}
	if !s.enabled {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailure, ErrServiceDisabled)
	}

	term := BuildSearchTerm(query, s.keyword)
	if cached, ok := s.cache.Get(term, page); ok {
		return cached, nil
	}

	// Identical in-flight searches share one upstream call. The call outlives
	// any single caller, so a cancelled caller only stops waiting for it.
	key := term + "|" + strconv.Itoa(page)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		resp, err := s.fetchPage(fetchCtx, term, page)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(term, page, resp); err != nil {
			infoLog("Failed to cache search %q page %d: %v", term, page, err)
		}
		return resp, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrFetchFailure, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			debugLog("Shared upstream search for %q page %d", term, page)
		}
		return res.Val.(*models.ImageSearchResponse), nil
	}
}

func (s *ImageSearchService) fetchPage(ctx context.Context, term string, page int) (*models.ImageSearchResponse, error) {
	startTime := time.Now()

	if err := s.limiter.Wait(ctx); err != nil {
		metrics.ObserveUpstream(metrics.UpstreamPixabay, "rate_limited", startTime)
		return nil, fmt.Errorf("%w: rate limiter: %w", ErrFetchFailure, err)
	}

	params := url.Values{}
	params.Set("key", s.apiKey)
	params.Set("q", term)
	params.Set("image_type", "photo")
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(models.ImagePageSize))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", ErrFetchFailure, err)
	}
	httpReq.Header.Set("Accept", "application/json")

	debugLog("Pixabay request: q=%q page=%d", term, page)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		metrics.ObserveUpstream(metrics.UpstreamPixabay, "network", startTime)
		return nil, fmt.Errorf("%w: request failed: %w", ErrFetchFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ObserveUpstream(metrics.UpstreamPixabay, "status", startTime)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, pixabayErrorBodyLimit))
		upstreamErr := &UpstreamHTTPError{
			Upstream: metrics.UpstreamPixabay,
			Status:   resp.StatusCode,
			Message:  strings.TrimSpace(string(body)),
		}
		infoLog("Pixabay error for %q page %d: %v", term, page, upstreamErr)
		return nil, fmt.Errorf("%w: %w", ErrFetchFailure, upstreamErr)
	}

	var result models.ImageSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		metrics.ObserveUpstream(metrics.UpstreamPixabay, "parse", startTime)
		return nil, fmt.Errorf("%w: failed to decode response: %w", ErrFetchFailure, err)
	}
	if result.Hits == nil {
		result.Hits = []models.ImageResult{}
	}
	if len(result.Hits) > models.ImagePageSize {
		result.Hits = result.Hits[:models.ImagePageSize]
	}

	metrics.ObserveUpstream(metrics.UpstreamPixabay, "ok", startTime)
	debugLog("Pixabay returned %d hits for %q page %d (totalHits=%d, latency=%v)",
		len(result.Hits), term, page, result.TotalHits, time.Since(startTime))

	return &result, nil
}

// newMinuteLimiter allows perMinute requests per minute with a small burst.
func newMinuteLimiter(perMinute int) *rate.Limiter {
	if perMinute < 1 {
		perMinute = 60
	}
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
}
