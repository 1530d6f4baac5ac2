package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"shop-recommender/config"
	"shop-recommender/models"
	"shop-recommender/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type RecommendationHandler struct {
	recommendations *services.RecommendationService
	server          config.ServerConfig
	log             zerolog.Logger
}

// NewRecommendationHandler creates a new recommendation handler
func NewRecommendationHandler(recommendations *services.RecommendationService, server config.ServerConfig, log zerolog.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		recommendations: recommendations,
		server:          server,
		log:             log.With().Str("component", "handlers").Logger(),
	}
}

// GetRecommendations runs the full pipeline for the calling user
// GET /api/v1/recommendations?count=5&limit=20
func (h *RecommendationHandler) GetRecommendations(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondUnauthorized(c, "authentication required")
		return
	}

	var req models.RecommendationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	resp, err := h.recommendations.Recommend(c.Request.Context(), userID, services.RecommendRequest{
		Count:        req.Count,
		Limit:        req.Limit,
		MediaBaseURL: mediaBaseURL(c, h.server),
	})
	if errors.Is(err, services.ErrUserNotFound) {
		respondNotFound(c, "user not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("recommendation failed")
		respondInternalError(c, err, "추천 생성 중 오류가 발생했습니다.")
		return
	}

	c.JSON(http.StatusOK, models.RecommendationResponse{
		Message:         resp.Message,
		UserProfile:     resp.Profile,
		Recommendations: resp.Result.Recommendations,
		Source:          resp.Result.Source,
	})
}

// GetProfile returns the aggregated profile without ranking
// GET /api/v1/recommendations/profile
func (h *RecommendationHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondUnauthorized(c, "authentication required")
		return
	}

	profile, err := h.recommendations.GenerateProfile(c.Request.Context(), userID)
	if errors.Is(err, services.ErrUserNotFound) {
		respondNotFound(c, "user not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("profile generation failed")
		respondInternalError(c, err, "프로필 생성 중 오류가 발생했습니다.")
		return
	}

	c.JSON(http.StatusOK, profile)
}

// RecordView counts one view of a product by the calling user
// POST /api/v1/products/:id/views
func (h *RecommendationHandler) RecordView(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondUnauthorized(c, "authentication required")
		return
	}

	productID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || productID == 0 {
		respondBadRequest(c, "product id must be a positive integer")
		return
	}

	view, err := h.recommendations.RecordView(c.Request.Context(), userID, uint(productID))
	if errors.Is(err, services.ErrProductNotFound) {
		respondNotFound(c, "product not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Uint64("product_id", productID).Msg("record view failed")
		respondInternalError(c, err, "조회 기록 저장 중 오류가 발생했습니다.")
		return
	}

	c.JSON(http.StatusOK, models.ProductViewResponse{
		ProductID:  view.ProductID,
		ViewCount:  view.ViewCount,
		LastViewed: view.LastViewed.UTC().Format(time.RFC3339),
	})
}

// HealthCheck is a simple health check endpoint
// GET /api/v1/health
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "shop-recommender",
		"version": "1.0.0",
	})
}
