package transaction

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/finsights/internal/idgen"
)

// Scanner triggers fraud analysis for a stored transaction. Newly created and
// imported transactions are scanned inline.
type Scanner interface {
	Scan(ctx context.Context, txID string) error
}

// Notifier streams transaction events to realtime subscribers.
type Notifier interface {
	BroadcastTransaction(tx map[string]interface{})
}

// Handler provides HTTP endpoints for transactions.
type Handler struct {
	store    Store
	scanner  Scanner
	notifier Notifier
}

// NewHandler creates a new transaction handler. scanner and notifier may be
// nil to skip inline analysis and event streaming.
func NewHandler(store Store, scanner Scanner, notifier Notifier) *Handler {
	return &Handler{store: store, scanner: scanner, notifier: notifier}
}

// RegisterRoutes sets up transaction routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/transactions", h.Create)
	r.POST("/transactions/import", h.Import)
	r.GET("/transactions", h.List)
	r.GET("/transactions/:id", h.Get)
	r.GET("/users/:userId/transactions", h.ListByUser)
	r.DELETE("/transactions/:id", h.Delete)
}

// CreateRequest is the transaction creation payload. Amount may be signed;
// the sign infers the type when one is not given.
type CreateRequest struct {
	UserID      string  `json:"userId" binding:"required"`
	Amount      float64 `json:"amount" binding:"required"`
	Type        string  `json:"type"`
	Merchant    string  `json:"merchant"`
	Category    string  `json:"category"`
	Country     string  `json:"country"`
	Location    string  `json:"location"`
	Description string  `json:"description"`
	Timestamp   string  `json:"timestamp"`
}

// Create handles POST /api/transactions
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "userId and a non-zero amount are required",
		})
		return
	}

	tx, err := h.createOne(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create_failed", "message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

// Import handles POST /api/transactions/import. The body is a JSON array of
// transaction rows; each row is normalized, stored, and scanned inline.
func (h *Handler) Import(c *gin.Context) {
	var rows []CreateRequest
	if err := c.ShouldBindJSON(&rows); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "body must be a JSON array of transactions",
		})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "import requires at least one transaction",
		})
		return
	}

	ctx := c.Request.Context()
	imported := make([]*Transaction, 0, len(rows))
	failed := 0
	for _, row := range rows {
		if row.UserID == "" || row.Amount == 0 {
			failed++
			continue
		}
		tx, err := h.createOne(ctx, row)
		if err != nil {
			failed++
			continue
		}
		imported = append(imported, tx)
	}

	c.JSON(http.StatusCreated, gin.H{
		"imported":     len(imported),
		"failed":       failed,
		"transactions": imported,
	})
}

// createOne normalizes, persists, and scans a single row.
func (h *Handler) createOne(ctx context.Context, req CreateRequest) (*Transaction, error) {
	now := time.Now()

	timestamp := now
	if req.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, req.Timestamp); err == nil {
			timestamp = parsed
		}
	}

	txType := req.Type
	amount := req.Amount
	if amount < 0 {
		amount = -amount
		if txType == "" {
			txType = "debit"
		}
	}
	if txType == "" {
		txType = "credit"
	}

	tx := &Transaction{
		ID:          idgen.WithPrefix("txn_"),
		UserID:      req.UserID,
		Amount:      amount,
		Type:        txType,
		Merchant:    req.Merchant,
		Category:    req.Category,
		Country:     req.Country,
		Location:    req.Location,
		Description: req.Description,
		Timestamp:   timestamp,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.store.Create(ctx, tx); err != nil {
		return nil, err
	}

	if h.scanner != nil {
		// Inline scan writes the fraud fields; a scan failure does not undo
		// the import.
		_ = h.scanner.Scan(ctx, tx.ID)
	}

	stored, err := h.store.Get(ctx, tx.ID)
	if err != nil {
		return nil, err
	}
	if h.notifier != nil {
		h.notifier.BroadcastTransaction(map[string]interface{}{
			"id":        stored.ID,
			"userId":    stored.UserID,
			"amount":    stored.Amount,
			"type":      stored.Type,
			"isFlagged": stored.IsFlagged,
		})
	}
	return stored, nil
}

// Get handles GET /api/transactions/:id
func (h *Handler) Get(c *gin.Context) {
	tx, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Transaction not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// List handles GET /api/transactions
func (h *Handler) List(c *gin.Context) {
	txs, err := h.store.List(c.Request.Context(), parseLimit(c, 100, 1000))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": txs,
		"count":        len(txs),
	})
}

// ListByUser handles GET /api/users/:userId/transactions
func (h *Handler) ListByUser(c *gin.Context) {
	txs, err := h.store.ListByUser(c.Request.Context(), c.Param("userId"), parseLimit(c, 100, 1000))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": txs,
		"count":        len(txs),
	})
}

// Delete handles DELETE /api/transactions/:id
func (h *Handler) Delete(c *gin.Context) {
	err := h.store.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Transaction not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func parseLimit(c *gin.Context, def, ceiling int) int {
	limit := def
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
			if limit > ceiling {
				limit = ceiling
			}
		}
	}
	return limit
}
