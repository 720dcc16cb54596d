package models

// PlantRecommendation is one normalized entry from the AI reply.
type PlantRecommendation struct {
	Name           string `json:"name"`
	Recommendation string `json:"recommendation"`
}

// RecommendationRequest is the body accepted by the recommendation proxy.
// At least one field must be non-empty.
type RecommendationRequest struct {
	Query     string `json:"query,omitempty"`
	ImageData string `json:"imageData,omitempty"` // base64 without the data-URL prefix
}
