package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ludocash/backend/internal/match"
	"github.com/ludocash/backend/internal/models"
	"github.com/ludocash/backend/internal/store"
)

// ListOpenMatches returns the lobby: every match still accepting players
func ListOpenMatches(reg *match.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		matches, err := reg.ListOpen(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		if matches == nil {
			matches = []models.Match{}
		}
		c.JSON(http.StatusOK, gin.H{"matches": matches})
	}
}

// JoinMatch seats a user in an open match, debiting the entry fee
func JoinMatch(reg *match.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID := c.Param("id")
		var req struct {
			UserID   string `json:"user_id" binding:"required"`
			RoomPass string `json:"room_pass"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}
		m, err := reg.Join(c.Request.Context(), matchID, req.UserID, req.RoomPass)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "status": m.Status, "players": m.Players})
	}
}

// GetSettings returns the public platform settings (payment and support
// contacts, referral bonus)
func GetSettings(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		set, err := st.GetSettings(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, set)
	}
}
