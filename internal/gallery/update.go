package gallery

import (
	"errors"
	"strings"

	"github.com/codyseavey/plant-gallery/backend/internal/models"
)

// Banner messages shown to the user.
const (
	MsgImagesFailed     = "Failed to load images. Please try again later."
	MsgRecommendNoInput = "Please enter a query or upload an image before fetching recommendations."
	MsgRecommendFailed  = "Failed to get plant recommendations: "
	MsgUploadTooLarge   = "File size exceeds 10MB limit. Please choose a smaller file."
	MsgUploadNotImage   = "Please choose an image file."
	MsgUploadReadFailed = "An error occurred while reading the file. Please try again."
)

// Event is a user action, timer, or async completion fed to Update.
type Event interface{ isEvent() }

// Started triggers the initial gallery load.
type Started struct{}

// QueryChanged is a keystroke in the search box.
type QueryChanged struct{ Text string }

// DebounceElapsed fires when the quiet period after QueryChanged Seq has passed.
type DebounceElapsed struct{ Seq uint64 }

// SearchSubmitted is an explicit search (button or Enter).
type SearchSubmitted struct{ Query string }

type LoadMoreRequested struct{}

type RecommendRequested struct{}

// PlantSelected is a click on a recommendation card.
type PlantSelected struct{ Name string }

// FileChosen starts an upload. Open is called off the event loop.
type FileChosen struct {
	Name string
	Size int64
	Open OpenFunc
}

type UploadProgress struct {
	Gen     uint64
	Percent int
}

type UploadLoaded struct {
	Gen     uint64
	DataURL string
}

type UploadFailed struct {
	Gen uint64
	Err error
}

type ImagesLoaded struct {
	Gen  uint64
	Page int
	Resp *models.ImageSearchResponse
	Err  error
}

type RecommendationsLoaded struct {
	Gen  uint64
	Recs []models.PlantRecommendation
	Err  error
}

func (Started) isEvent()               {}
func (QueryChanged) isEvent()          {}
func (DebounceElapsed) isEvent()       {}
func (SearchSubmitted) isEvent()       {}
func (LoadMoreRequested) isEvent()     {}
func (RecommendRequested) isEvent()    {}
func (PlantSelected) isEvent()         {}
func (FileChosen) isEvent()            {}
func (UploadProgress) isEvent()        {}
func (UploadLoaded) isEvent()          {}
func (UploadFailed) isEvent()          {}
func (ImagesLoaded) isEvent()          {}
func (RecommendationsLoaded) isEvent() {}

// Command is a side effect requested by Update and run by the Controller.
type Command interface{ isCommand() }

// FetchImages supersedes any image fetch in flight.
type FetchImages struct {
	Gen   uint64
	Query string
	Page  int
}

// FetchRecommendations supersedes any recommendation request in flight.
type FetchRecommendations struct {
	Gen       uint64
	Query     string
	ImageData string // base64 without the data-URL prefix
}

type CancelRecommendations struct{}

// ScheduleDebounce (re)starts the debounce timer for Seq.
type ScheduleDebounce struct{ Seq uint64 }

type CancelDebounce struct{}

// ReadUpload reads File into a data URL, reporting progress under Gen.
type ReadUpload struct {
	Gen  uint64
	File FileChosen
}

type CancelUpload struct{}

func (FetchImages) isCommand()           {}
func (FetchRecommendations) isCommand()  {}
func (CancelRecommendations) isCommand() {}
func (ScheduleDebounce) isCommand()      {}
func (CancelDebounce) isCommand()        {}
func (ReadUpload) isCommand()            {}
func (CancelUpload) isCommand()          {}

// Update applies ev to s. It never mutates s or anything s shares.
func Update(s State, ev Event) (State, []Command) {
	switch ev := ev.(type) {
	case Started:
		s.Source = SourceQuery
		return startImageFetch(s, s.Search.DebouncedQueryText)

	case QueryChanged:
		s.Search.QueryText = ev.Text
		s.debounceSeq++
		return s, []Command{ScheduleDebounce{Seq: s.debounceSeq}}

	case DebounceElapsed:
		if ev.Seq != s.debounceSeq {
			return s, nil
		}
		text := strings.TrimSpace(s.Search.QueryText)
		if text == s.Search.DebouncedQueryText && s.Source == SourceQuery {
			return s, nil
		}
		s.Search.DebouncedQueryText = text
		s.Search.SelectedPlantName = ""
		s.Source = SourceQuery
		return startImageFetch(s, text)

	case SearchSubmitted:
		s.debounceSeq++
		s.Search.QueryText = ev.Query
		s.Search.DebouncedQueryText = strings.TrimSpace(ev.Query)
		s.Search.SelectedPlantName = ""
		s.Source = SourceQuery

		// An explicit search drops the photo and the recommendations with it.
		s.Upload = UploadState{}
		s.Recommendations = nil
		s.recGen++
		s.uploadGen++
		s.LoadingRecommendations = false
		s.Uploading = false

		next, cmds := startImageFetch(s, s.Search.DebouncedQueryText)
		return next, append([]Command{CancelDebounce{}, CancelRecommendations{}, CancelUpload{}}, cmds...)

	case LoadMoreRequested:
		if !s.CanLoadMore() {
			return s, nil
		}
		s.Search.PageCursor++
		s.imageGen++
		s.LoadingImages = true
		s.Error = ""
		return s, []Command{FetchImages{Gen: s.imageGen, Query: s.ActiveQuery(), Page: s.Search.PageCursor}}

	case ImagesLoaded:
		if ev.Gen != s.imageGen {
			return s, nil
		}
		s.LoadingImages = false
		if ev.Err != nil {
			s.Error = MsgImagesFailed
			if ev.Page > 1 {
				s.Search.PageCursor = ev.Page - 1
			}
			return s, nil
		}
		var hits []models.ImageResult
		if ev.Resp != nil {
			hits = ev.Resp.Hits
		}
		if ev.Page <= 1 {
			s.Images = append([]models.ImageResult(nil), hits...)
		} else {
			images := make([]models.ImageResult, 0, len(s.Images)+len(hits))
			images = append(images, s.Images...)
			s.Images = append(images, hits...)
		}
		s.Search.PageCursor = ev.Page
		s.Search.HasMore = ev.Resp.HasMore()
		return s, nil

	case RecommendRequested:
		query := strings.TrimSpace(s.Search.QueryText)
		if query == "" && s.Upload.ImageDataURL == "" {
			s.Error = MsgRecommendNoInput
			return s, nil
		}
		return startRecommendations(s, query, StripDataURLPrefix(s.Upload.ImageDataURL))

	case RecommendationsLoaded:
		if ev.Gen != s.recGen {
			return s, nil
		}
		s.LoadingRecommendations = false
		if ev.Err != nil {
			s.Error = MsgRecommendFailed + ev.Err.Error()
			s.Source = settledSource(s)
			return s, nil
		}
		s.Recommendations = append([]models.PlantRecommendation(nil), ev.Recs...)
		if len(s.Recommendations) == 0 {
			s.Source = settledSource(s)
			return s, nil
		}
		return selectPlant(s, s.Recommendations[0].Name)

	case PlantSelected:
		if strings.TrimSpace(ev.Name) == "" {
			return s, nil
		}
		s.debounceSeq++
		next, cmds := selectPlant(s, ev.Name)
		return next, append([]Command{CancelDebounce{}}, cmds...)

	case FileChosen:
		if ev.Size > MaxUploadBytes {
			s.Error = MsgUploadTooLarge
			return s, nil
		}
		s.uploadGen++
		s.Upload = UploadState{}
		s.Uploading = true
		s.Error = ""
		return s, []Command{ReadUpload{Gen: s.uploadGen, File: ev}}

	case UploadProgress:
		if ev.Gen != s.uploadGen || !s.Uploading {
			return s, nil
		}
		pct := min(max(ev.Percent, 0), 100)
		if pct > s.Upload.ProgressPercent {
			s.Upload.ProgressPercent = pct
		}
		return s, nil

	case UploadLoaded:
		if ev.Gen != s.uploadGen || !s.Uploading {
			return s, nil
		}
		s.Uploading = false
		s.Upload = UploadState{ImageDataURL: ev.DataURL, ProgressPercent: 100}
		next, cmds := startRecommendations(s, strings.TrimSpace(s.Search.QueryText), StripDataURLPrefix(ev.DataURL))
		next.Source = SourceAnalysis
		return next, cmds

	case UploadFailed:
		if ev.Gen != s.uploadGen || !s.Uploading {
			return s, nil
		}
		s.Uploading = false
		switch {
		case errors.Is(ev.Err, ErrUploadTooLarge):
			s.Error = MsgUploadTooLarge
		case errors.Is(ev.Err, ErrValidation):
			s.Error = MsgUploadNotImage
		default:
			s.Error = MsgUploadReadFailed
		}
		return s, nil
	}

	return s, nil
}

// startImageFetch switches the list to a new query: page 1, nothing accumulated.
func startImageFetch(s State, query string) (State, []Command) {
	s.imageGen++
	s.Images = nil
	s.Search.PageCursor = 1
	s.Search.HasMore = false
	s.LoadingImages = true
	s.Error = ""
	return s, []Command{FetchImages{Gen: s.imageGen, Query: query, Page: 1}}
}

func startRecommendations(s State, query, imageData string) (State, []Command) {
	s.recGen++
	s.LoadingRecommendations = true
	s.Error = ""
	return s, []Command{FetchRecommendations{Gen: s.recGen, Query: query, ImageData: imageData}}
}

func selectPlant(s State, name string) (State, []Command) {
	s.Search.SelectedPlantName = name
	s.Source = SourceFilter
	return startImageFetch(s, name)
}

// settledSource is the source once no analysis is pending.
func settledSource(s State) Source {
	if s.Search.SelectedPlantName != "" {
		return SourceFilter
	}
	return SourceQuery
}
