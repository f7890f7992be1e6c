package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/jmoiron/sqlx"

	"github.com/ludocash/backend/internal/admin"
	"github.com/ludocash/backend/internal/config"
	"github.com/ludocash/backend/internal/match"
	"github.com/ludocash/backend/internal/models"
	"github.com/ludocash/backend/internal/store"
	"github.com/ludocash/backend/internal/wallet"
)

// AdminLogin validates operator credentials and issues a session token
func AdminLogin(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		username := strings.TrimSpace(req.Username)
		acc, err := admin.ValidateCredentials(db, username, req.Password)
		if err != nil {
			log.Printf("[ADMIN] Login failed for username %s: %v", username, err)
			admin.LogAdminAction(db, username, c.ClientIP(), "/api/v1/admin/login", "login", map[string]interface{}{"username": username}, false)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		exp := time.Now().Add(time.Duration(cfg.SessionTimeoutMin) * time.Minute)
		claims := jwt.MapClaims{"username": acc.Username, "exp": exp.Unix()}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte(cfg.JWTSecret))
		if err != nil {
			log.Printf("[ADMIN] Failed to sign token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		admin.LogAdminAction(db, username, c.ClientIP(), "/api/v1/admin/login", "login", map[string]interface{}{"username": username}, true)
		c.JSON(http.StatusOK, gin.H{"token": signed, "expires_at": exp.Unix(), "display_name": acc.DisplayName})
	}
}

// RequireAdmin validates the Bearer session token on operator routes
func RequireAdmin(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			return
		}
		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if username, ok := claims["username"].(string); ok {
				c.Set("admin_username", username)
			}
		}
		c.Next()
	}
}

// ListPendingTransactions returns pending deposits/withdraws oldest first
func ListPendingTransactions(w *wallet.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		pending, err := w.Pending(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		if pending == nil {
			pending = []models.Transaction{}
		}
		c.JSON(http.StatusOK, gin.H{"transactions": pending})
	}
}

// FinalizeTransaction approves or rejects a pending transaction
func FinalizeTransaction(w *wallet.Service, db *sqlx.DB, approve bool) gin.HandlerFunc {
	action := "reject_transaction"
	if approve {
		action = "approve_transaction"
	}
	return func(c *gin.Context) {
		txID := c.Param("id")
		var err error
		if approve {
			err = w.Approve(c.Request.Context(), txID)
		} else {
			err = w.Reject(c.Request.Context(), txID)
		}
		username := c.GetString("admin_username")
		admin.LogAdminAction(db, username, c.ClientIP(), c.FullPath(), action, map[string]interface{}{"transaction_id": txID}, err == nil)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// CreateMatch registers a new tournament room
func CreateMatch(reg *match.Registry, db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			EntryFee  int64  `json:"entry_fee"`
			Prize     int64  `json:"prize"`
			Capacity  int    `json:"capacity" binding:"required"`
			StartTime string `json:"start_time" binding:"required"`
			RoomCode  string `json:"room_code" binding:"required"`
			RoomPass  string `json:"room_pass"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "capacity, start_time and room_code are required"})
			return
		}
		m, err := reg.Create(c.Request.Context(), match.CreateParams{
			EntryFee:  req.EntryFee,
			Prize:     req.Prize,
			Capacity:  req.Capacity,
			StartTime: req.StartTime,
			RoomCode:  req.RoomCode,
			RoomPass:  req.RoomPass,
		})
		username := c.GetString("admin_username")
		admin.LogAdminAction(db, username, c.ClientIP(), c.FullPath(), "create_match", map[string]interface{}{"room_code": req.RoomCode}, err == nil)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"match_id": m.ID, "start_at": m.StartAt})
	}
}

// DeclareWinner is the settlement hook: credits the prize and closes the match
func DeclareWinner(reg *match.Registry, db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID := c.Param("id")
		var req struct {
			WinnerID string `json:"winner_id" binding:"required"`
			Prize    int64  `json:"prize"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "winner_id is required"})
			return
		}
		err := reg.DeclareWinner(c.Request.Context(), matchID, req.WinnerID, req.Prize)
		username := c.GetString("admin_username")
		admin.LogAdminAction(db, username, c.ClientIP(), c.FullPath(), "declare_winner", map[string]interface{}{"match_id": matchID, "winner_id": req.WinnerID}, err == nil)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// CancelMatch moves an open match to cancelled, refunding entry fees
func CancelMatch(reg *match.Registry, db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID := c.Param("id")
		err := reg.Cancel(c.Request.Context(), matchID)
		username := c.GetString("admin_username")
		admin.LogAdminAction(db, username, c.ClientIP(), c.FullPath(), "cancel_match", map[string]interface{}{"match_id": matchID}, err == nil)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// PurgeMatch removes a match record outright
func PurgeMatch(reg *match.Registry, db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID := c.Param("id")
		err := reg.Purge(c.Request.Context(), matchID)
		username := c.GetString("admin_username")
		admin.LogAdminAction(db, username, c.ClientIP(), c.FullPath(), "purge_match", map[string]interface{}{"match_id": matchID}, err == nil)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// UpdateSettings replaces the platform settings singleton
func UpdateSettings(st store.Store, db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.Settings
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid settings payload"})
			return
		}
		err := st.UpdateSettings(c.Request.Context(), &req)
		username := c.GetString("admin_username")
		admin.LogAdminAction(db, username, c.ClientIP(), c.FullPath(), "update_settings", map[string]interface{}{"referral_bonus": req.ReferralBonus}, err == nil)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// GetAuditLogs returns recent operator actions
func GetAuditLogs(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if limit > 200 {
			limit = 200
		}
		if db == nil {
			c.JSON(http.StatusOK, gin.H{"logs": []models.AdminAudit{}})
			return
		}
		logs, err := admin.GetAdminAuditLogs(db, limit, offset)
		if err != nil {
			log.Printf("[ADMIN] Failed to fetch audit logs: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch audit logs"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": logs})
	}
}
