package user

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/finsights/internal/idgen"
)

// Handler provides HTTP endpoints for users.
type Handler struct {
	store Store
}

// NewHandler creates a new user handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up user routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/users", h.Create)
	r.GET("/users", h.List)
	r.GET("/users/:userId", h.Get)
	r.PATCH("/users/:userId/kyc", h.UpdateKYC)
}

// CreateRequest is the user creation payload.
type CreateRequest struct {
	Email         string  `json:"email" binding:"required"`
	Name          string  `json:"name"`
	Phone         string  `json:"phone"`
	Country       string  `json:"country"`
	MonthlyIncome float64 `json:"monthlyIncome"`
}

// Create handles POST /api/users
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "email is required",
		})
		return
	}

	now := time.Now()
	u := &User{
		ID:            idgen.WithPrefix("usr_"),
		Email:         req.Email,
		Name:          req.Name,
		Phone:         req.Phone,
		Country:       req.Country,
		KYCStatus:     KYCPending,
		MonthlyIncome: req.MonthlyIncome,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.store.Create(c.Request.Context(), u); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create_failed", "message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": u})
}

// Get handles GET /api/users/:userId
func (h *Handler) Get(c *gin.Context) {
	u, err := h.store.Get(c.Request.Context(), c.Param("userId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": u})
}

// List handles GET /api/users
func (h *Handler) List(c *gin.Context) {
	users, err := h.store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}

// UpdateKYCRequest is the KYC status change payload.
type UpdateKYCRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateKYC handles PATCH /api/users/:userId/kyc
func (h *Handler) UpdateKYC(c *gin.Context) {
	var req UpdateKYCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "status is required"})
		return
	}
	switch req.Status {
	case KYCPending, KYCApproved, KYCRejected:
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_status",
			"message": "status must be pending, approved, or rejected",
		})
		return
	}

	if err := h.store.UpdateKYCStatus(c.Request.Context(), c.Param("userId"), req.Status); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": true})
}
