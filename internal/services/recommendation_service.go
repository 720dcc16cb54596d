package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/codyseavey/plant-gallery/backend/internal/metrics"
	"github.com/codyseavey/plant-gallery/backend/internal/models"
)

const defaultGeminiModel = "gemini-2.5-flash"

const recommendationPrompt = `You are a plant expert. Analyze the provided %s and give plant recommendations in JSON format:

{ "RecommendedPlants": [ { "Plant Name": "string", "Recommendation": "Short description of care, growing conditions, and any specific observations if an image is provided." } ] }

Keep answers practical and location-specific if mentioned.`

// RecommendationOptions configures the AI recommendation proxy.
type RecommendationOptions struct {
	APIKey            string
	Model             string
	BaseURL           string // empty uses the SDK default endpoint
	RequestsPerMinute int
	Timeout           time.Duration
	HTTPClient        *http.Client
}

// RecommendationService asks Gemini for plant recommendations from a query and/or photo.
// Every call is independent; no conversation state is kept.
type RecommendationService struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
	enabled bool
}

// NewRecommendationService creates the recommendation proxy.
// Without an API key the service is returned disabled rather than failing startup.
func NewRecommendationService(ctx context.Context, opts RecommendationOptions) (*RecommendationService, error) {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultGeminiModel
	}

	svc := &RecommendationService{
		model:   model,
		limiter: newMinuteLimiter(opts.RequestsPerMinute),
	}

	if opts.APIKey == "" {
		infoLog("Recommendation service: disabled (no GOOGLE_AI_API_KEY)")
		return svc, nil
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	cfg := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	svc.client = client
	svc.enabled = true

	// Only show first 6 chars of key
	keyPreview := opts.APIKey
	if len(keyPreview) > 6 {
		keyPreview = keyPreview[:6] + "..."
	}
	infoLog("Recommendation service: enabled (model=%s, key=%s)", model, keyPreview)

	return svc, nil
}

// IsEnabled returns whether the Gemini key is configured
func (s *RecommendationService) IsEnabled() bool {
	return s.enabled
}

// BuildRecommendationPrompt produces the single instruction sent with each request.
func BuildRecommendationPrompt(query string, hasImage bool) string {
	subject := "query"
	if hasImage {
		subject = "image"
	}
	prompt := fmt.Sprintf(recommendationPrompt, subject)
	if query = strings.TrimSpace(query); query != "" {
		prompt += " The query is: " + query
	}
	return prompt
}

// Recommend returns plant recommendations for a query, an image (base64), or both.
func (s *RecommendationService) Recommend(ctx context.Context, query, imageData string) ([]models.PlantRecommendation, error) {
	query = strings.TrimSpace(query)
	imageData = strings.TrimSpace(imageData)
	if query == "" && imageData == "" {
		return nil, fmt.Errorf("%w: query or image data is required", ErrInvalidRequest)
	}

	parts := []*genai.Part{{Text: BuildRecommendationPrompt(query, imageData != "")}}
	if imageData != "" {
		blob, err := decodeInlineImage(imageData)
		if err != nil {
			return nil, err
		}
		parts = append(parts, &genai.Part{InlineData: blob})
	}

	if !s.enabled {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailure, ErrServiceDisabled)
	}

	startTime := time.Now()
	if err := s.limiter.Wait(ctx); err != nil {
		metrics.ObserveUpstream(metrics.UpstreamGemini, "rate_limited", startTime)
		return nil, fmt.Errorf("%w: rate limiter: %w", ErrFetchFailure, err)
	}

	debugLog("Gemini request: model=%s, query_len=%d, image=%t", s.model, len(query), imageData != "")

	resp, err := s.client.Models.GenerateContent(ctx, s.model,
		[]*genai.Content{{Role: "user", Parts: parts}},
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr(float32(0.4)),
		},
	)
	if err != nil {
		return nil, s.classifyError(err, startTime)
	}

	text := ""
	if resp != nil {
		text = resp.Text()
	}
	if strings.TrimSpace(text) == "" {
		metrics.ObserveUpstream(metrics.UpstreamGemini, "parse", startTime)
		return nil, fmt.Errorf("%w: no text in reply", ErrUpstreamFormat)
	}

	recs, err := ParseRecommendations(text)
	if err != nil {
		metrics.ObserveUpstream(metrics.UpstreamGemini, "parse", startTime)
		debugLog("Gemini reply parse error: %v, reply: %s", err, text)
		return nil, err
	}

	metrics.ObserveUpstream(metrics.UpstreamGemini, "ok", startTime)
	metrics.RecommendationsReturned.Observe(float64(len(recs)))
	infoLog("Gemini recommended %d plants (image=%t, latency=%v)", len(recs), imageData != "", time.Since(startTime))

	return recs, nil
}

// classifyError maps SDK errors onto the proxy taxonomy.
func (s *RecommendationService) classifyError(err error, startTime time.Time) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return s.upstreamStatusError(apiErr.Code, apiErr.Message, startTime)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return s.upstreamStatusError(apiErrPtr.Code, apiErrPtr.Message, startTime)
	}

	metrics.ObserveUpstream(metrics.UpstreamGemini, "network", startTime)
	infoLog("Gemini request failed: %v", err)
	return fmt.Errorf("%w: %w", ErrFetchFailure, err)
}

func (s *RecommendationService) upstreamStatusError(code int, message string, startTime time.Time) error {
	metrics.ObserveUpstream(metrics.UpstreamGemini, "status", startTime)
	upstreamErr := &UpstreamHTTPError{
		Upstream: metrics.UpstreamGemini,
		Status:   code,
		Message:  message,
	}
	infoLog("Gemini API error: %v", upstreamErr)
	return upstreamErr
}

// decodeInlineImage turns a base64 payload (optionally a full data URL) into an inline blob.
// The MIME type is sniffed from the bytes; anything that is not an image is rejected.
func decodeInlineImage(imageData string) (*genai.Blob, error) {
	if strings.HasPrefix(imageData, "data:") {
		if idx := strings.Index(imageData, ","); idx >= 0 {
			imageData = imageData[idx+1:]
		}
	}

	data, err := base64.StdEncoding.DecodeString(imageData)
	if err != nil {
		return nil, fmt.Errorf("%w: image data is not valid base64", ErrInvalidRequest)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: image data is empty", ErrInvalidRequest)
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, fmt.Errorf("%w: image data has type %s", ErrInvalidRequest, mtype.String())
	}

	return &genai.Blob{MIMEType: mtype.String(), Data: data}, nil
}
