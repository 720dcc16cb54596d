package models

import (
	"strconv"
	"strings"
)

// ImagePageSize is the fixed number of hits requested per page.
const ImagePageSize = 12

// ImageResult is a single stock-photo hit. JSON names follow the Pixabay API
// so the proxy can pass pages through unchanged.
type ImageResult struct {
	ID              int    `json:"id"`
	PreviewURL      string `json:"webformatURL"`
	FullURL         string `json:"largeImageURL"`
	TagList         string `json:"tags"` // comma-joined, as returned upstream
	AttributionUser string `json:"user"`
}

// Key identifies an image across pages; the same photo can appear on two pages.
func (i ImageResult) Key() string {
	return strconv.Itoa(i.ID) + "-" + i.PreviewURL
}

// Tags splits the comma-joined tag string, preserving order.
func (i ImageResult) Tags() []string {
	if strings.TrimSpace(i.TagList) == "" {
		return nil
	}
	parts := strings.Split(i.TagList, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// ImageSearchResponse is one page of results.
type ImageSearchResponse struct {
	Hits      []ImageResult `json:"hits"`
	Total     int           `json:"total"`
	TotalHits int           `json:"totalHits"`
}

// HasMore reports whether another page may exist: a short page is the last one.
func (r *ImageSearchResponse) HasMore() bool {
	return r != nil && len(r.Hits) == ImagePageSize
}
