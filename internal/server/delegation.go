package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/finsights/internal/user"
)

// ChatRequest is one assistant conversation turn.
type ChatRequest struct {
	Message string         `json:"message" binding:"required"`
	UserID  string         `json:"userId"`
	Context map[string]any `json:"context"`
}

// chatHandler handles POST /api/chat. The assistant has no local fallback;
// without a reachable model service the endpoint reports unavailable.
func (s *Server) chatHandler(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "message is required"})
		return
	}

	reply, err := s.ml.SendChatMessage(c.Request.Context(), req.Message, req.UserID, req.Context)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "chat_failed", "message": err.Error()})
		return
	}
	if reply == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "model_unavailable",
			"message": "The assistant requires the model service",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

// KYCVerifyRequest carries the document payload for verification.
type KYCVerifyRequest struct {
	DocumentType   string `json:"documentType" binding:"required"`
	DocumentNumber string `json:"documentNumber"`
	DocumentImage  string `json:"documentImage"`
	FaceImage      string `json:"faceImage"`
}

// kycVerifyHandler handles POST /api/users/:userId/kyc/verify. Verification
// is delegation-only; the user's KYC status is updated from the verdict.
func (s *Server) kycVerifyHandler(c *gin.Context) {
	var req KYCVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "documentType is required"})
		return
	}

	ctx := c.Request.Context()
	userID := c.Param("userId")
	if _, err := s.users.Get(ctx, userID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	verification, err := s.ml.VerifyKYC(ctx, userID, req.DocumentType, req.DocumentNumber, req.DocumentImage, req.FaceImage)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "verification_failed", "message": err.Error()})
		return
	}
	if verification == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "model_unavailable",
			"message": "KYC verification is unavailable",
		})
		return
	}

	status := user.KYCRejected
	if verification.Verified {
		status = user.KYCApproved
	}
	if err := s.users.UpdateKYCStatus(ctx, userID, status); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	s.logger.Info("kyc verification completed",
		"userId", userID,
		"verified", verification.Verified,
		"kycStatus", status,
	)

	c.JSON(http.StatusOK, gin.H{
		"verification": verification,
		"kycStatus":    status,
	})
}
