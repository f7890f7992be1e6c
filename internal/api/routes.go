package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/ludocash/backend/internal/api/handlers"
	"github.com/ludocash/backend/internal/config"
	"github.com/ludocash/backend/internal/match"
	"github.com/ludocash/backend/internal/middleware"
	"github.com/ludocash/backend/internal/store"
	"github.com/ludocash/backend/internal/wallet"
)

// SetupRoutes configures all API routes. db is nil in mock mode, which
// disables operator login and auditing (dev only).
func SetupRoutes(router *gin.Engine, db *sqlx.DB, st store.Store, w *wallet.Service, reg *match.Registry, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		// Wallet endpoints
		walletGroup := v1.Group("/wallet")
		{
			walletGroup.GET("/:userId/balance", handlers.GetBalance(w))
			walletGroup.POST("/deposit", handlers.SubmitDeposit(w))
			walletGroup.POST("/withdraw", handlers.SubmitWithdraw(w))
		}

		// Referral
		v1.POST("/referral/claim", handlers.ClaimReferral(w))

		// Lobby
		v1.GET("/matches", handlers.ListOpenMatches(reg))
		v1.POST("/matches/:id/join", handlers.JoinMatch(reg))

		// Public settings (payment numbers, support contact)
		v1.GET("/settings", handlers.GetSettings(st))

		// Operator endpoints
		adminGroup := v1.Group("/admin")
		if db != nil {
			adminGroup.POST("/login", handlers.AdminLogin(db, cfg))
			adminGroup.Use(handlers.RequireAdmin(cfg))
		} else {
			log.Println("[API] Mock store: operator routes are UNAUTHENTICATED")
		}
		{
			adminGroup.GET("/transactions", handlers.ListPendingTransactions(w))
			adminGroup.POST("/transactions/:id/approve", handlers.FinalizeTransaction(w, db, true))
			adminGroup.POST("/transactions/:id/reject", handlers.FinalizeTransaction(w, db, false))

			adminGroup.POST("/matches", handlers.CreateMatch(reg, db))
			adminGroup.POST("/matches/:id/winner", handlers.DeclareWinner(reg, db))
			adminGroup.POST("/matches/:id/cancel", handlers.CancelMatch(reg, db))
			adminGroup.DELETE("/matches/:id", handlers.PurgeMatch(reg, db))

			adminGroup.PUT("/settings", handlers.UpdateSettings(st, db))
			adminGroup.GET("/audit", handlers.GetAuditLogs(db))
		}
	}
}
