package forecast

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/finsights/internal/user"
)

// Handler provides HTTP endpoints for forecasts and default risk.
type Handler struct {
	service *Service
}

// NewHandler creates a new forecast handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up forecast routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/forecast", h.Generate)
	r.POST("/forecast/spending/:userId", h.PredictSpending)
	r.POST("/forecast/income/:userId", h.PredictIncome)
	r.GET("/forecast/user/:userId", h.ListByUser)
	r.GET("/forecast/default-risk/:userId", h.DefaultRisk)
}

// GenerateRequest selects the projection period and horizon.
type GenerateRequest struct {
	UserID string `json:"userId"`
	Period string `json:"period"`
	Months int    `json:"months"`
}

// Generate handles POST /api/forecast
func (h *Handler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	f, err := h.service.Generate(c.Request.Context(), req.UserID, req.Period, req.Months)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_input",
				"message": "period and a positive months value are required",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "forecast_failed", "message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"forecast": f})
}

// PredictSpending handles POST /api/forecast/spending/:userId
func (h *Handler) PredictSpending(c *gin.Context) {
	h.predict(c, h.service.PredictSpending)
}

// PredictIncome handles POST /api/forecast/income/:userId
func (h *Handler) PredictIncome(c *gin.Context) {
	h.predict(c, h.service.PredictIncome)
}

// PredictRequest carries the horizon for the convenience wrappers.
type PredictRequest struct {
	Months int `json:"months"`
}

func (h *Handler) predict(c *gin.Context, fn func(ctx context.Context, userID string, months int) (*Forecast, error)) {
	userID := c.Param("userId")

	req := PredictRequest{Months: 3}
	// Allow empty body (defaults to a 3-month horizon)
	_ = c.ShouldBindJSON(&req)
	if req.Months <= 0 {
		req.Months = 3
	}

	f, err := fn(c.Request.Context(), userID, req.Months)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "forecast_failed", "message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"forecast": f})
}

// ListByUser handles GET /api/forecast/user/:userId
func (h *Handler) ListByUser(c *gin.Context) {
	userID := c.Param("userId")
	limit := 20
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
			if limit > 100 {
				limit = 100
			}
		}
	}

	forecasts, err := h.service.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"forecasts": forecasts,
		"count":     len(forecasts),
	})
}

// DefaultRisk handles GET /api/forecast/default-risk/:userId
func (h *Handler) DefaultRisk(c *gin.Context) {
	userID := c.Param("userId")

	risk, err := h.service.DefaultRisk(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "risk_failed", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, risk)
}
