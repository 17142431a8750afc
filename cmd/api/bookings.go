package main

import (
	"net/http"
	"strconv"

	"github.com/aripzuan/BackEndAPI/pkg/bookings"
	"github.com/aripzuan/BackEndAPI/pkg/models"
	"github.com/gin-gonic/gin"
)

type createBookingRequest struct {
	UserID      int64        `json:"user_id" binding:"required,gt=0"`
	CourtType   string       `json:"court_type" binding:"required,max=50"`
	CourtNumber int          `json:"court_number" binding:"required,gt=0"`
	Date        *models.Date `json:"date" binding:"required"`
	TimeStart   string       `json:"time_start" binding:"required"`
	TimeEnd     string       `json:"time_end" binding:"required"`
	Description string       `json:"description"`
}

// Omitted fields keep their stored value.
type updateBookingRequest struct {
	Date        *models.Date `json:"date"`
	TimeStart   *string      `json:"time_start"`
	TimeEnd     *string      `json:"time_end"`
	Description *string      `json:"description"`
}

type bookingHandler struct {
	ledger *bookings.Ledger
}

func (h *bookingHandler) list(c *gin.Context) {
	var userID *int64
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid request",
				"details": []fieldError{{Field: "user_id", Message: "must be an integer"}},
			})
			return
		}
		userID = &id
	}

	list, err := h.ledger.List(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *bookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	start, err := parseClock("time_start", req.TimeStart)
	if err != nil {
		badRequest(c, err)
		return
	}
	end, err := parseClock("time_end", req.TimeEnd)
	if err != nil {
		badRequest(c, err)
		return
	}
	r, err := models.NewTimeRange(start, end)
	if err != nil {
		badRequest(c, err)
		return
	}

	booking, err := h.ledger.Create(c.Request.Context(), bookings.NewBooking{
		UserID:      req.UserID,
		CourtType:   req.CourtType,
		CourtNumber: req.CourtNumber,
		Date:        *req.Date,
		Range:       r,
		Description: req.Description,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

func (h *bookingHandler) update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req updateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	changes := bookings.Changes{Date: req.Date, Description: req.Description}
	if req.TimeStart != nil {
		start, err := parseClock("time_start", *req.TimeStart)
		if err != nil {
			badRequest(c, err)
			return
		}
		changes.TimeStart = &start
	}
	if req.TimeEnd != nil {
		end, err := parseClock("time_end", *req.TimeEnd)
		if err != nil {
			badRequest(c, err)
			return
		}
		changes.TimeEnd = &end
	}

	booking, err := h.ledger.Update(c.Request.Context(), id, changes)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *bookingHandler) delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	booking, err := h.ledger.Delete(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "booking": booking})
}
