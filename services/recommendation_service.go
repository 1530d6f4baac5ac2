package services

import (
	"context"

	"shop-recommender/metrics"
	"shop-recommender/models"

	"github.com/rs/zerolog"
)

// User-facing messages returned with a recommendation response
const (
	MessageRecommended  = "추천 상품을 성공적으로 생성했습니다."
	MessageNoCandidates = "추천할 상품이 없습니다. 더 많은 상품을 조회해보세요!"
)

// RecommendRequest carries per-request knobs. Zero values use the defaults.
type RecommendRequest struct {
	Count        int
	Limit        int
	MediaBaseURL string
}

// RecommendResponse is the outcome of one pipeline run
type RecommendResponse struct {
	Message    string
	Profile    *models.UserProfile
	Result     models.RankResult
	Candidates int
}

// RecommendationService runs profile, candidate and ranking stages for one user
type RecommendationService struct {
	store      Store
	profiles   *ProfileService
	candidates *CandidateService
	ranker     *RankerService
	log        zerolog.Logger
	metrics    *metrics.Recorder
}

// NewRecommendationService creates a new recommendation service instance
func NewRecommendationService(store Store, profiles *ProfileService, candidates *CandidateService, ranker *RankerService, log zerolog.Logger, rec *metrics.Recorder) *RecommendationService {
	return &RecommendationService{
		store:      store,
		profiles:   profiles,
		candidates: candidates,
		ranker:     ranker,
		log:        log.With().Str("component", "recommendations").Logger(),
		metrics:    rec,
	}
}

// Recommend builds the profile, filters candidates and ranks them.
// An empty candidate set is not an error: the response carries a message
// and no recommendations, and the model is not called.
func (s *RecommendationService) Recommend(ctx context.Context, userID uint, req RecommendRequest) (*RecommendResponse, error) {
	profile, err := s.profiles.GenerateProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.candidates.GetCandidates(ctx, userID, profile, req.Limit)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		s.log.Info().Uint("user_id", userID).Msg("no candidates for user")
		return &RecommendResponse{
			Message: MessageNoCandidates,
			Profile: profile,
			Result:  models.RankResult{Recommendations: []models.Recommendation{}},
		}, nil
	}

	result := s.ranker.GenerateRecommendations(ctx, profile, candidates, req.Count, WithMediaBaseURL(req.MediaBaseURL))

	s.log.Info().
		Uint("user_id", userID).
		Int("candidates", len(candidates)).
		Int("recommendations", len(result.Recommendations)).
		Str("source", string(result.Source)).
		Msg("recommendations generated")

	return &RecommendResponse{
		Message:    MessageRecommended,
		Profile:    profile,
		Result:     result,
		Candidates: len(candidates),
	}, nil
}

// GenerateProfile exposes the profile stage on its own
func (s *RecommendationService) GenerateProfile(ctx context.Context, userID uint) (*models.UserProfile, error) {
	return s.profiles.GenerateProfile(ctx, userID)
}

// RecordView counts one view of a product by a user
func (s *RecommendationService) RecordView(ctx context.Context, userID, productID uint) (*models.ProductView, error) {
	view, err := s.store.RecordView(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveView()
	return view, nil
}
