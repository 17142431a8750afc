package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/aripzuan/BackEndAPI/pkg/bookings"
	"github.com/aripzuan/BackEndAPI/pkg/circuitbreaker"
	"github.com/aripzuan/BackEndAPI/pkg/courts"
	"github.com/aripzuan/BackEndAPI/pkg/logger"
	"github.com/aripzuan/BackEndAPI/pkg/models"
	"github.com/gin-gonic/gin"
)

const msgOverlap = "Court already booked for this time."

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid request",
		"details": validationDetails(err),
	})
}

// fail maps registry and ledger errors onto responses. Unknown errors are
// logged and answered with a generic 500.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, bookings.ErrOverlap):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgOverlap})
	case errors.Is(err, models.ErrInvalidTimeRange),
		errors.Is(err, models.ErrInvalidStatus),
		errors.Is(err, models.ErrInvalidDate),
		errors.Is(err, models.ErrInvalidClock):
		badRequest(c, err)
	case errors.Is(err, courts.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Court not found"})
	case errors.Is(err, bookings.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
	case errors.Is(err, courts.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, circuitbreaker.ErrOpen):
		logger.FromContext(c).Warn().Err(err).Msg("storage circuit open")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
	default:
		logger.FromContext(c).Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// parseID reads the :id path parameter.
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request",
			"details": []fieldError{{Field: "id", Message: "must be a positive integer"}},
		})
		return 0, false
	}
	return uint(id), true
}
