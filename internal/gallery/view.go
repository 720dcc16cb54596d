package gallery

import (
	"fmt"
	"io"
	"strings"

	"github.com/codyseavey/plant-gallery/backend/internal/models"
)

// PreviewLength is how many characters a collapsed card shows.
const PreviewLength = 150

// captionTags is how many tags an image tile shows.
const captionTags = 3

// RecommendationCard is one recommendation as displayed.
type RecommendationCard struct {
	Recommendation models.PlantRecommendation
	Selected       bool
	Expanded       bool
}

// NeedsExpansion reports whether the text is longer than the preview.
func (c RecommendationCard) NeedsExpansion() bool {
	return len([]rune(c.Recommendation.Recommendation)) > PreviewLength
}

// Text is the card body: the full text when expanded or short, else the preview.
func (c RecommendationCard) Text() string {
	text := c.Recommendation.Recommendation
	if c.Expanded || !c.NeedsExpansion() {
		return text
	}
	return string([]rune(text)[:PreviewLength]) + "..."
}

// Caption is the tile label: the first three tags.
func Caption(img models.ImageResult) string {
	tags := img.Tags()
	if len(tags) > captionTags {
		tags = tags[:captionTags]
	}
	return strings.Join(tags, ", ")
}

// View renders State as text. It holds card expansion and scroll position,
// which never reach Update.
type View struct {
	expanded map[string]bool
	rendered int    // images already printed
	firstKey string // key of the first printed image, to detect a replaced list
}

func NewView() *View {
	return &View{expanded: make(map[string]bool)}
}

// Cards builds the recommendation cards for s.
func (v *View) Cards(s State) []RecommendationCard {
	cards := make([]RecommendationCard, len(s.Recommendations))
	for i, rec := range s.Recommendations {
		cards[i] = RecommendationCard{
			Recommendation: rec,
			Selected:       rec.Name == s.Search.SelectedPlantName,
			Expanded:       v.expanded[rec.Name],
		}
	}
	return cards
}

// ToggleCard flips expansion of the card at index i (0-based). Returns false if out of range.
func (v *View) ToggleCard(s State, i int) bool {
	if i < 0 || i >= len(s.Recommendations) {
		return false
	}
	name := s.Recommendations[i].Name
	v.expanded[name] = !v.expanded[name]
	return true
}

// ScrollTop makes the next Render start from the first image.
func (v *View) ScrollTop() {
	v.rendered = 0
}

// Render writes the gallery. Images printed by an earlier Render are summarized
// unless ScrollTop was called.
func (v *View) Render(w io.Writer, s State) {
	if s.Error != "" {
		fmt.Fprintf(w, "! %s\n", s.Error)
	}

	switch {
	case s.Uploading:
		fmt.Fprintf(w, "Uploading photo... %d%%\n", s.Upload.ProgressPercent)
	case s.Upload.ImageDataURL != "":
		fmt.Fprintln(w, "Photo loaded.")
	}

	if s.LoadingRecommendations {
		fmt.Fprintln(w, "Getting recommendations...")
	}
	if len(s.Recommendations) > 0 {
		fmt.Fprintln(w, "Recommendations:")
		for i, card := range v.Cards(s) {
			marker := " "
			if card.Selected {
				marker = "*"
			}
			fmt.Fprintf(w, " %s[%d] %s\n", marker, i+1, card.Recommendation.Name)
			if text := card.Text(); text != "" {
				fmt.Fprintf(w, "      %s\n", text)
			}
			if card.NeedsExpansion() && !card.Expanded {
				fmt.Fprintf(w, "      (:expand %d for more)\n", i+1)
			}
		}
	}

	if v.rendered > len(s.Images) || (len(s.Images) > 0 && s.Images[0].Key() != v.firstKey) {
		v.rendered = 0
	}
	label := s.ActiveQuery()
	if label == "" {
		label = "plants"
	}
	source := s.Source
	if source == SourceAnalysis {
		source = settledSource(s)
		fmt.Fprintln(w, "Analyzing photo...")
	}
	fmt.Fprintf(w, "Images for %q (%s, page %d):\n", label, source, s.Search.PageCursor)
	if v.rendered > 0 {
		fmt.Fprintf(w, "  ... %d earlier images (:top to show all)\n", v.rendered)
	}
	for i := v.rendered; i < len(s.Images); i++ {
		fmt.Fprintf(w, "  #%-3d %s\n", i+1, Caption(s.Images[i]))
	}
	v.rendered = len(s.Images)
	if len(s.Images) > 0 {
		v.firstKey = s.Images[0].Key()
	}

	switch {
	case s.LoadingImages:
		fmt.Fprintln(w, "Loading images...")
	case len(s.Images) == 0:
		fmt.Fprintln(w, "No images found.")
	case s.Search.HasMore:
		fmt.Fprintln(w, "(:more to load more)")
	}
}

// RenderPreview writes the full-size view of one image.
func RenderPreview(w io.Writer, img models.ImageResult) {
	fmt.Fprintf(w, "%s\n  %s\n", Caption(img), img.FullURL)
	if img.AttributionUser != "" {
		fmt.Fprintf(w, "  Photo by %s on Pixabay\n", img.AttributionUser)
	}
}
