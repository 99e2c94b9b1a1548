package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tyreworks/internal/services"
)

func staffFromCtx(c *gin.Context) (staffID int64, role string) {
	if v, ok := c.Get("staff_id"); ok {
		switch t := v.(type) {
		case int64:
			staffID = t
		case int:
			staffID = int64(t)
		case float64:
			staffID = int64(t)
		}
	}
	if v, ok := c.Get("role"); ok {
		role, _ = v.(string)
	}
	return
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrDuplicateRating):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrTooManyImages),
		errors.Is(err, services.ErrInvalidRating),
		errors.Is(err, services.ErrInvalidService),
		errors.Is(err, services.ErrNotEligible),
		errors.Is(err, services.ErrNoImagesSurvived):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrExpired),
		errors.Is(err, services.ErrExhausted),
		errors.Is(err, services.ErrMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrTooManyRequests):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
