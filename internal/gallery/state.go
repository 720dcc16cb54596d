// Package gallery holds the gallery state machine: an explicit State value,
// a pure Update transition, and a Controller that runs the side effects.
package gallery

import (
	"time"

	"github.com/codyseavey/plant-gallery/backend/internal/models"
)

// DebounceDelay is the quiet period before typed text is searched.
const DebounceDelay = 500 * time.Millisecond

// Source is what drives the image list. SourceAnalysis means a photo analysis
// is pending and the list still holds the previous results.
type Source int

const (
	SourceQuery    Source = iota // free-text search
	SourceAnalysis               // AI analysis of an uploaded photo in flight
	SourceFilter                 // a selected recommendation
)

func (s Source) String() string {
	switch s {
	case SourceAnalysis:
		return "image analysis"
	case SourceFilter:
		return "recommendation"
	default:
		return "search"
	}
}

type SearchState struct {
	QueryText          string
	DebouncedQueryText string
	PageCursor         int
	HasMore            bool
	SelectedPlantName  string // empty when no recommendation is selected
}

type UploadState struct {
	ImageDataURL    string // empty when no photo is loaded
	ProgressPercent int
}

// State is the whole visible gallery. Update returns a new value on every event.
type State struct {
	Search          SearchState
	Upload          UploadState
	Source          Source
	Images          []models.ImageResult
	Recommendations []models.PlantRecommendation

	LoadingImages          bool
	LoadingRecommendations bool
	Uploading              bool

	// Error is the single banner message; empty when there is nothing to show.
	Error string

	imageGen    uint64
	recGen      uint64
	uploadGen   uint64
	debounceSeq uint64
}

// NewState returns the state before the initial load.
func NewState() State {
	return State{Search: SearchState{PageCursor: 1}}
}

// ActiveQuery is the term the image list is paged with.
func (s State) ActiveQuery() string {
	if s.Search.SelectedPlantName != "" {
		return s.Search.SelectedPlantName
	}
	return s.Search.DebouncedQueryText
}

// CanLoadMore reports whether a load-more event would fetch anything.
func (s State) CanLoadMore() bool {
	return !s.LoadingImages && s.Search.HasMore && len(s.Images) > 0
}

// Busy reports whether any asynchronous operation is outstanding.
func (s State) Busy() bool {
	return s.LoadingImages || s.LoadingRecommendations || s.Uploading
}
