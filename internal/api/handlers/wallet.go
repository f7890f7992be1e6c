package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ludocash/backend/internal/wallet"
)

// TransactionRequest is the body for deposit and withdraw submissions.
// Reference carries the external payment reference (bKash/Nagad trx id).
type TransactionRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	Reference string `json:"reference"`
	Phone     string `json:"phone"`
}

// GetBalance returns a user's spendable balance and referral state
func GetBalance(w *wallet.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("userId")
		balance, claimed, err := w.Balance(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "balance": balance, "referral_claimed": claimed})
	}
}

// SubmitDeposit creates a pending deposit request for operator review
func SubmitDeposit(w *wallet.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TransactionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and a positive amount are required"})
			return
		}
		txID, err := w.SubmitDeposit(c.Request.Context(), req.UserID, req.Amount, req.Reference, req.Phone)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"transaction_id": txID})
	}
}

// SubmitWithdraw escrows the amount and creates a pending withdraw request
func SubmitWithdraw(w *wallet.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TransactionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and a positive amount are required"})
			return
		}
		txID, err := w.SubmitWithdraw(c.Request.Context(), req.UserID, req.Amount, req.Reference, req.Phone)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"transaction_id": txID})
	}
}

// ClaimReferral pays the referral bonus to both sides of a referral
func ClaimReferral(w *wallet.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UserID     string `json:"user_id" binding:"required"`
			ReferrerID string `json:"referrer_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and referrer_id are required"})
			return
		}
		bonus, err := w.ClaimReferral(c.Request.Context(), req.UserID, req.ReferrerID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bonus": bonus})
	}
}
