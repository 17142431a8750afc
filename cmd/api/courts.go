package main

import (
	"net/http"

	"github.com/aripzuan/BackEndAPI/pkg/courts"
	"github.com/aripzuan/BackEndAPI/pkg/models"
	"github.com/gin-gonic/gin"
)

type createCourtRequest struct {
	CourtType    string   `json:"court_type" binding:"required,max=50"`
	CourtNumber  int      `json:"court_number" binding:"required,gt=0"`
	Status       string   `json:"status" binding:"omitempty,court_status"`
	PricePerHour *float64 `json:"price_per_hour" binding:"required,gte=0,cents"`
}

type updateCourtRequest struct {
	CourtType    string   `json:"court_type" binding:"required,max=50"`
	CourtNumber  int      `json:"court_number" binding:"required,gt=0"`
	Status       string   `json:"status" binding:"required,court_status"`
	PricePerHour *float64 `json:"price_per_hour" binding:"required,gte=0,cents"`
}

type courtHandler struct {
	registry *courts.Registry
}

func (h *courtHandler) list(c *gin.Context) {
	list, err := h.registry.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *courtHandler) get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	court, err := h.registry.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, court)
}

func (h *courtHandler) create(c *gin.Context) {
	var req createCourtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	court, err := h.registry.Create(c.Request.Context(), courts.Fields{
		CourtType:    req.CourtType,
		CourtNumber:  req.CourtNumber,
		Status:       models.CourtStatus(req.Status),
		PricePerHour: *req.PricePerHour,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, court)
}

func (h *courtHandler) update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req updateCourtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	court, err := h.registry.Update(c.Request.Context(), id, courts.Fields{
		CourtType:    req.CourtType,
		CourtNumber:  req.CourtNumber,
		Status:       models.CourtStatus(req.Status),
		PricePerHour: *req.PricePerHour,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, court)
}

func (h *courtHandler) delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.registry.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
