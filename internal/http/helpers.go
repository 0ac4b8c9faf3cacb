package http

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ivyscans/api/internal/apperr"
)

// MessageResponse is the body of every error and most confirmations.
type MessageResponse struct {
	Message string `json:"message"`
}

// ResultResponse reports the outcome of a mutation.
type ResultResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

// --- Error Response Helpers ---

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, MessageResponse{Message: message})
}

func respondBadRequest(c *gin.Context, message string) {
	respondMessage(c, http.StatusBadRequest, message)
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error) {
	if errors.Is(err, context.Canceled) {
		c.Status(499)
		return
	}
	log.Error().Err(err).
		Str("method", c.Request.Method).
		Str("path", c.FullPath()).
		Msg("Request failed")
	respondMessage(c, http.StatusInternalServerError, "internal server error")
}

// respondServiceError picks the status from the error kind.
func respondServiceError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindStorage {
		respondInternalError(c, err)
		return
	}
	if wait := apperr.RetryAfterOf(err); wait > 0 {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	}
	respondMessage(c, statusForKind(kind), apperr.MessageOf(err))
}

// respondClientError answers every classified failure with the same status.
// Storage failures still produce a 500.
func respondClientError(c *gin.Context, err error, status int) {
	if apperr.KindOf(err) == apperr.KindStorage {
		respondInternalError(c, err)
		return
	}
	respondMessage(c, status, apperr.MessageOf(err))
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuth:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// --- Parameter Parsing ---

// queryInt parses an integer query parameter. Missing or malformed values
// yield fallback.
func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// bindJSON decodes the request body or answers 400.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondBadRequest(c, "Invalid request body")
		return false
	}
	return true
}
