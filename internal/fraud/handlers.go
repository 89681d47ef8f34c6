package fraud

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/finsights/internal/transaction"
)

// Handler provides HTTP endpoints for fraud scanning and explanations.
type Handler struct {
	service *Service
}

// NewHandler creates a new fraud handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up fraud routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/fraud/scan", h.Scan)
	r.GET("/fraud/:transactionId", h.GetResult)
	r.GET("/fraud/explain/:transactionId", h.Explain)
}

// ScanRequest selects what to scan. Empty means scan everything.
type ScanRequest struct {
	TransactionID string `json:"transactionId"`
	UserID        string `json:"userId"`
}

// Scan handles POST /api/fraud/scan
func (h *Handler) Scan(c *gin.Context) {
	var req ScanRequest
	// Allow empty body (scans all transactions)
	_ = c.ShouldBindJSON(&req)

	ctx := c.Request.Context()

	switch {
	case req.TransactionID != "":
		result, err := h.service.ScanTransaction(ctx, req.TransactionID)
		if err != nil {
			if errors.Is(err, transaction.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Transaction not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "scan_failed", "message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": []*ScanResult{result}, "count": 1})

	case req.UserID != "":
		results, err := h.service.ScanUser(ctx, req.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "scan_failed", "message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})

	default:
		results, err := h.service.ScanAll(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "scan_failed", "message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
	}
}

// GetResult handles GET /api/fraud/:transactionId
func (h *Handler) GetResult(c *gin.Context) {
	id := c.Param("transactionId")

	result, err := h.service.ScanTransaction(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, transaction.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Transaction not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "scan_failed", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Explain handles GET /api/fraud/explain/:transactionId
func (h *Handler) Explain(c *gin.Context) {
	id := c.Param("transactionId")

	features, err := h.service.ExplainTransaction(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, transaction.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Transaction not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "explain_failed", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactionId": id,
		"topFeatures":   features,
		"count":         len(features),
	})
}
