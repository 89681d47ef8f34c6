package simulation

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for simulations.
type Handler struct {
	service *Service
}

// NewHandler creates a new simulation handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up simulation routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/simulations", h.Run)
	r.GET("/simulations", h.List)
	r.GET("/simulations/metrics/aggregate", h.AggregateMetrics)
	r.GET("/simulations/:id", h.Get)
	r.DELETE("/simulations", h.DeleteAll)
	r.DELETE("/simulations/:id", h.Delete)
}

// Run handles POST /api/simulations
func (h *Handler) Run(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	sim, err := h.service.Run(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_input",
				"message": "simulation input requires a data field",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "simulation_failed", "message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"simulation": sim})
}

// Get handles GET /api/simulations/:id
func (h *Handler) Get(c *gin.Context) {
	sim, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Simulation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"simulation": sim})
}

// List handles GET /api/simulations
func (h *Handler) List(c *gin.Context) {
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
			if limit > 500 {
				limit = 500
			}
		}
	}

	sims, err := h.service.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"simulations": sims,
		"count":       len(sims),
	})
}

// AggregateMetrics handles GET /api/simulations/metrics/aggregate
func (h *Handler) AggregateMetrics(c *gin.Context) {
	agg, err := h.service.AggregateMetrics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, agg)
}

// Delete handles DELETE /api/simulations/:id
func (h *Handler) Delete(c *gin.Context) {
	err := h.service.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Simulation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// DeleteAll handles DELETE /api/simulations
func (h *Handler) DeleteAll(c *gin.Context) {
	if err := h.service.DeleteAll(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
