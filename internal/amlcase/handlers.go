package amlcase

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/finsights/internal/idgen"
)

// Handler provides HTTP endpoints for AML cases.
type Handler struct {
	store Store
}

// NewHandler creates a new case handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up case routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/cases", h.Create)
	r.GET("/cases", h.List)
	r.GET("/cases/:id", h.Get)
	r.PATCH("/cases/:id/status", h.UpdateStatus)
}

// CreateRequest is the case creation payload.
type CreateRequest struct {
	UserID      string `json:"userId" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// Create handles POST /api/cases
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "userId and title are required",
		})
		return
	}

	now := time.Now()
	kase := &Case{
		ID:          idgen.WithPrefix("case_"),
		UserID:      req.UserID,
		Title:       req.Title,
		Description: req.Description,
		Status:      StatusOpen,
		Priority:    req.Priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.store.Create(c.Request.Context(), kase); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create_failed", "message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"case": kase})
}

// Get handles GET /api/cases/:id
func (h *Handler) Get(c *gin.Context) {
	kase, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Case not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"case": kase})
}

// List handles GET /api/cases
func (h *Handler) List(c *gin.Context) {
	limit := 100
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
			if limit > 1000 {
				limit = 1000
			}
		}
	}

	cases, err := h.store.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cases": cases,
		"count": len(cases),
	})
}

// UpdateStatusRequest is the case status change payload.
type UpdateStatusRequest struct {
	Status     string `json:"status" binding:"required"`
	AssignedTo string `json:"assignedTo"`
}

// UpdateStatus handles PATCH /api/cases/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "status is required"})
		return
	}

	err := h.store.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, req.AssignedTo)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Case not found"})
		case errors.Is(err, ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": "invalid_transition", "message": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": true})
}
