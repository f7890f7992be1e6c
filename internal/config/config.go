package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Scheduler
	SchedulerPollSeconds int
	WarnLeadSeconds      int
	Timezone             string

	// Wallet
	DefaultReferralBonus int

	// Security
	JWTSecret         string
	SessionTimeoutMin int

	// Development
	MockStore bool
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/ludocash?sslmode=disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Scheduler
		SchedulerPollSeconds: getEnvInt("SCHEDULER_POLL_SECONDS", 15),
		WarnLeadSeconds:      getEnvInt("WARN_LEAD_SECONDS", 60),
		Timezone:             getEnv("TIMEZONE", "Asia/Dhaka"),

		// Wallet
		DefaultReferralBonus: getEnvInt("DEFAULT_REFERRAL_BONUS", 10),

		// Security
		JWTSecret:         getEnv("JWT_SECRET", "change-me-in-production"),
		SessionTimeoutMin: getEnvInt("SESSION_TIMEOUT_MINUTES", 240),

		// Development
		MockStore: getEnv("MOCK_STORE", "false") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
