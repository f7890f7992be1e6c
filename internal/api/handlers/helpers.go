package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ludocash/backend/internal/store"
)

// respondError maps the engine's error taxonomy to HTTP statuses. Anything
// outside the taxonomy is an infrastructure failure and reads as a 500.
func respondError(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrWrongPassword):
		status = http.StatusForbidden
	case errors.Is(err, store.ErrAlreadyFinalized),
		errors.Is(err, store.ErrAlreadyClaimed),
		errors.Is(err, store.ErrAlreadyJoined),
		errors.Is(err, store.ErrMatchFull):
		status = http.StatusConflict
	case errors.Is(err, store.ErrInsufficientFunds),
		errors.Is(err, store.ErrSelfReferral),
		errors.Is(err, store.ErrInvalidCode),
		errors.Is(err, store.ErrNotAParticipant):
		status = http.StatusBadRequest
	default:
		log.Printf("[API] Internal error on %s: %v", c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
