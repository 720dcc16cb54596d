package services

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/codyseavey/plant-gallery/backend/internal/models"
)

// Reply contract agreed with the model in the prompt.
const (
	recommendedPlantsKey = "RecommendedPlants"
	plantNameKey         = "Plant Name"
	recommendationKey    = "Recommendation"
)

// StripCodeFence removes a markdown code fence (```json ... ```) around a model reply.
// Text without a fence is returned trimmed.
func StripCodeFence(text string) string {
	clean := strings.TrimSpace(text)
	if !strings.HasPrefix(clean, "```") {
		return clean
	}

	// Drop the opening fence line, including any language tag.
	if nl := strings.IndexByte(clean, '\n'); nl >= 0 {
		clean = clean[nl+1:]
	} else {
		clean = strings.TrimPrefix(strings.TrimPrefix(clean, "```"), "json")
	}

	clean = strings.TrimSpace(clean)
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}

// ParseRecommendations validates a model reply against the RecommendedPlants contract
// and normalizes it. Shape mismatches are rejected with ErrUpstreamFormat.
func ParseRecommendations(text string) ([]models.PlantRecommendation, error) {
	clean := StripCodeFence(text)
	if clean == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrUpstreamFormat)
	}
	if !gjson.Valid(clean) {
		return nil, fmt.Errorf("%w: reply is not valid JSON", ErrUpstreamFormat)
	}

	root := gjson.Parse(clean)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: reply is not a JSON object", ErrUpstreamFormat)
	}

	plants := root.Get(recommendedPlantsKey)
	if !plants.IsArray() {
		return nil, fmt.Errorf("%w: missing %s array", ErrUpstreamFormat, recommendedPlantsKey)
	}

	entries := plants.Array()
	recs := make([]models.PlantRecommendation, 0, len(entries))
	for i, entry := range entries {
		if !entry.IsObject() {
			return nil, fmt.Errorf("%w: entry %d is not an object", ErrUpstreamFormat, i)
		}

		name := entry.Get(gjsonKey(plantNameKey))
		if name.Type != gjson.String || strings.TrimSpace(name.Str) == "" {
			return nil, fmt.Errorf("%w: entry %d has no %q", ErrUpstreamFormat, i, plantNameKey)
		}

		rec := entry.Get(recommendationKey)
		if rec.Exists() && rec.Type != gjson.String && rec.Type != gjson.Null {
			return nil, fmt.Errorf("%w: entry %d has a non-string %q", ErrUpstreamFormat, i, recommendationKey)
		}

		recs = append(recs, models.PlantRecommendation{
			Name:           strings.TrimSpace(name.Str),
			Recommendation: strings.TrimSpace(rec.Str),
		})
	}

	return recs, nil
}

// gjsonKey escapes path metacharacters so a literal object key can be used as a path.
func gjsonKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
