package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"github.com/ludocash/backend/internal/api"
	"github.com/ludocash/backend/internal/config"
	"github.com/ludocash/backend/internal/database"
	"github.com/ludocash/backend/internal/events"
	"github.com/ludocash/backend/internal/match"
	"github.com/ludocash/backend/internal/migrations"
	"github.com/ludocash/backend/internal/models"
	"github.com/ludocash/backend/internal/redis"
	"github.com/ludocash/backend/internal/store"
	"github.com/ludocash/backend/internal/store/memory"
	"github.com/ludocash/backend/internal/store/pg"
	"github.com/ludocash/backend/internal/wallet"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	var db *sqlx.DB
	var st store.Store
	var pub events.Publisher

	if cfg.MockStore {
		log.Println("[MAIN] MOCK_STORE=true: using in-memory store, no Postgres/Redis")
		mem := memory.New()
		if err := mem.UpdateSettings(context.Background(), &models.Settings{
			ReferralBonus: int64(cfg.DefaultReferralBonus),
		}); err != nil {
			log.Fatalf("Failed to seed settings: %v", err)
		}
		st = mem
	} else {
		// Initialize database
		var err error
		db, err = database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		// Run migrations on start if requested
		if os.Getenv("MIGRATE_ON_START") == "true" {
			log.Println("↗ Running DB migrations on startup...")
			if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
		}

		// Initialize Redis (carries lifecycle events to the relay layer)
		rdb, err := redis.Connect(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()

		st = pg.New(db)
		pub = events.NewRedisPublisher(rdb)
	}

	// Wall-clock locale for tournament start times
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("[MAIN] Unknown timezone %q, falling back to local: %v", cfg.Timezone, err)
		loc = time.Local
	}

	walletSvc := wallet.New(st)
	registry := match.NewRegistry(st, pub, loc, time.Duration(cfg.WarnLeadSeconds)*time.Second)

	// Start the match lifecycle scheduler
	go match.StartScheduler(context.Background(), registry, time.Duration(cfg.SchedulerPollSeconds)*time.Second)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Initialize API handlers
	api.SetupRoutes(router, db, st, walletSvc, registry, cfg)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting LudoCash server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
