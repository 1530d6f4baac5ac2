package models

// RankSource tells callers whether the language model produced the ranking
type RankSource string

const (
	SourceLLM      RankSource = "llm"
	SourceFallback RankSource = "fallback"
)

// Recommendation is one final pick: a product snapshot, a reason and a 1-10 score
type Recommendation struct {
	Product ProductSnapshot `json:"product"`
	Reason  string          `json:"reason"`
	Score   int             `json:"score"`
}

// RankResult is the outcome of the explanation ranker.
// Cause is empty for SourceLLM and names the failure otherwise.
type RankResult struct {
	Recommendations []Recommendation `json:"recommendations"`
	Source          RankSource       `json:"source"`
	Cause           string           `json:"cause,omitempty"`
}

// IsFallback reports whether the deterministic fallback was used
func (r RankResult) IsFallback() bool {
	return r.Source == SourceFallback
}

// =============================================================================
// Request/Response DTOs
// =============================================================================

// RecommendationRequest holds query parameters for GET /recommendations
type RecommendationRequest struct {
	Count int `form:"count" binding:"omitempty,min=1,max=20"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// RecommendationResponse is the body returned by GET /recommendations
type RecommendationResponse struct {
	Message         string           `json:"message"`
	UserProfile     *UserProfile     `json:"user_profile"`
	Recommendations []Recommendation `json:"recommendations"`
	Source          RankSource       `json:"source,omitempty"`
}

// ProductViewResponse is returned after recording a product view
type ProductViewResponse struct {
	ProductID  uint   `json:"product_id"`
	ViewCount  int    `json:"view_count"`
	LastViewed string `json:"last_viewed"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}
