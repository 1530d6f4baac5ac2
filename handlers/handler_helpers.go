package handlers

import (
	"net/http"

	"shop-recommender/config"
	"shop-recommender/logging"
	"shop-recommender/models"

	"github.com/gin-gonic/gin"
)

// =============================================================================
// Response Helpers
// =============================================================================

// respondWithError sends a standardized error response
func respondWithError(c *gin.Context, code int, error, message string) {
	c.JSON(code, models.ErrorResponse{
		Error:   error,
		Message: message,
		Code:    code,
	})
}

// respondBadRequest sends a 400 error response
func respondBadRequest(c *gin.Context, message string) {
	respondWithError(c, http.StatusBadRequest, "Invalid request", message)
}

// respondUnauthorized sends a 401 error response and stops the chain
func respondUnauthorized(c *gin.Context, message string) {
	respondWithError(c, http.StatusUnauthorized, "Unauthorized", message)
	c.Abort()
}

// respondInternalError sends a 500 error response. The cause is attached to
// the gin context for the request log, never to the body.
func respondInternalError(c *gin.Context, err error, message string) {
	_ = c.Error(err)
	respondWithError(c, http.StatusInternalServerError, "Internal error", message)
}

// respondNotFound sends a 404 error response
func respondNotFound(c *gin.Context, message string) {
	respondWithError(c, http.StatusNotFound, "Not found", message)
}

// =============================================================================
// Request Helpers
// =============================================================================

// currentUserID returns the id set by AuthMiddleware
func currentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(logging.UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id > 0
}

// mediaBaseURL is the configured public media base, or one built from the
// request's own scheme and host
func mediaBaseURL(c *gin.Context, cfg config.ServerConfig) string {
	if base := cfg.MediaBaseURL(); base != "" {
		return base
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return cfg.JoinMedia(scheme + "://" + c.Request.Host)
}
