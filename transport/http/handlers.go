package http

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"

	"github.com/keyproof/keyproof/core"
	"github.com/keyproof/keyproof/service"
)

// genericAuthError is the single body returned for every verify-side
// failure. Distinguishing "wrong signature" from "expired challenge" in
// the response would hand an attacker an oracle; the distinct kinds
// still reach the logs.
const genericAuthError = "Authentication failed. Please try again."

// RecoveryHandlers contains HTTP handlers for the recovery endpoints
type RecoveryHandlers struct {
	recovery *service.RecoveryService
}

// NewRecoveryHandlers creates new recovery handlers
func NewRecoveryHandlers(recovery *service.RecoveryService) *RecoveryHandlers {
	return &RecoveryHandlers{recovery: recovery}
}

// Challenge handles the challenge issuance request
func (h *RecoveryHandlers) Challenge(c *gin.Context) {
	var req struct {
		Subject string `json:"subject"`
	}

	// Body is optional: anonymous recovery starts without a subject.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
	}

	challenge, err := h.recovery.IssueChallenge(c.Request.Context(), req.Subject)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create challenge"})
		return
	}

	c.JSON(http.StatusOK, challenge)
}

// Verify handles the signature verification request
func (h *RecoveryHandlers) Verify(c *gin.Context) {
	var req struct {
		Method      string `json:"method" binding:"required"`
		Signature   string `json:"signature" binding:"required"`
		ChallengeID string `json:"challenge_id" binding:"required"`
		Identifier  string `json:"identifier" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	signature, err := hexutil.Decode(req.Signature)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature encoding"})
		return
	}

	token, err := h.recovery.VerifySignature(c.Request.Context(), core.VerifyRequest{
		Method:      core.RecoveryMethod(req.Method),
		ChallengeID: req.ChallengeID,
		Identifier:  req.Identifier,
		Signature:   signature,
	})
	if err != nil {
		if errors.Is(err, core.ErrStoreOperationFailed) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Verification unavailable"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": genericAuthError})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Me returns information about the authenticated subject
func (h *RecoveryHandlers) Me(c *gin.Context) {
	subject, exists := c.Get("subject")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Subject not found in context"})
		return
	}
	method, _ := c.Get("method")

	c.JSON(http.StatusOK, gin.H{
		"subject": subject,
		"method":  method,
	})
}
