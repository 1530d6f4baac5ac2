package handlers

import (
	"shop-recommender/config"
	"shop-recommender/logging"
	"shop-recommender/metrics"
	"shop-recommender/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// NewRouter builds the gin engine with middleware and every route
func NewRouter(cfg *config.Config, recommendations *services.RecommendationService, rec *metrics.Recorder, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(logging.GinMiddleware(log))
	r.Use(MetricsMiddleware(rec))

	h := NewRecommendationHandler(recommendations, cfg.Server, log)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", HealthCheck)

		authed := v1.Group("")
		authed.Use(AuthMiddleware(cfg.Auth))
		{
			authed.GET("/recommendations", h.GetRecommendations)
			authed.GET("/recommendations/profile", h.GetProfile)
			authed.POST("/products/:id/views", h.RecordView)
		}
	}

	if cfg.Server.MetricsEnabled && rec != nil {
		r.GET("/metrics", gin.WrapH(rec.Handler()))
	}
	return r
}
