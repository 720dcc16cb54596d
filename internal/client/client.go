// Package client talks to the plant gallery proxy endpoints.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/codyseavey/plant-gallery/backend/internal/models"
)

// ErrRequestFailed wraps every failed proxy call.
var ErrRequestFailed = errors.New("proxy request failed")

// StatusError is a non-200 reply from a proxy.
type StatusError struct {
	Status  int
	Message string // the proxy's generic error text
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the proxies served at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchPlantImages requests one page of plant photos.
func (c *Client) FetchPlantImages(ctx context.Context, query string, page int) (*models.ImageSearchResponse, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/plant-images?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	var resp models.ImageSearchResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	if resp.Hits == nil {
		resp.Hits = []models.ImageResult{}
	}
	return &resp, nil
}

// GetPlantRecommendations asks for recommendations from a query, an image, or both.
// imageData is raw base64 without a data-URL prefix.
func (c *Client) GetPlantRecommendations(ctx context.Context, query, imageData string) ([]models.PlantRecommendation, error) {
	body, err := json.Marshal(models.RecommendationRequest{Query: query, ImageData: imageData})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/plant-recommendations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var recs []models.PlantRecommendation
	if err := c.do(req, &recs); err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []models.PlantRecommendation{}
	}
	return recs, nil
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(raw, &errBody)
		return fmt.Errorf("%w: %w", ErrRequestFailed, &StatusError{Status: resp.StatusCode, Message: errBody.Error})
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", ErrRequestFailed, err)
	}
	return nil
}
