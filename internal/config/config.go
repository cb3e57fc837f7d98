// Package config provides centralized configuration loaded from environment
// variables. Shared by cmd/scheduler and cmd/bossctl.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Table names — single source of truth, matches schema.sql
// --------------------------------------------------------------------------

const (
	BossesTable        = "bosses"
	AliasesTable       = "boss_aliases"
	SubscriptionsTable = "subscriptions"
	AnnouncementsTable = "announcements"
	GuildConfigTable   = "guild_config"
	MetaTable          = "meta"
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// Engine
	TickInterval      time.Duration
	DispatchInterval  time.Duration
	SchedulerWorkers  int
	DefaultPreMin     int
	DefaultWindowMin  int
	CatchupSilent     bool
	DispatchBatchSize int
	DeliveryTimeout   time.Duration

	// Outbound messaging
	WebhookURL     string
	SendRatePerSec float64
	SendBurst      int

	// Maintenance
	CleanupInterval   time.Duration
	HeartbeatInterval time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", envOr("BOSSTRACK_DATABASE_URL", ""))
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or BOSSTRACK_DATABASE_URL must be set")
	}

	return &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		TickInterval:      time.Duration(envInt("TICK_INTERVAL_SECONDS", 15)) * time.Second,
		DispatchInterval:  time.Duration(envInt("DISPATCH_INTERVAL_SECONDS", 30)) * time.Second,
		SchedulerWorkers:  envInt("SCHEDULER_WORKERS", 4),
		DefaultPreMin:     envInt("DEFAULT_PRE_ANNOUNCE_MIN", 10),
		DefaultWindowMin:  envInt("DEFAULT_WINDOW_MIN", 0),
		CatchupSilent:     envBool("CATCHUP_SILENT", false),
		DispatchBatchSize: envInt("DISPATCH_BATCH_SIZE", 100),
		DeliveryTimeout:   time.Duration(envInt("DELIVERY_TIMEOUT_SECONDS", 10)) * time.Second,

		WebhookURL:     envOr("DISCORD_WEBHOOK_URL", ""),
		SendRatePerSec: envFloat("SEND_RATE_PER_SEC", 5),
		SendBurst:      envInt("SEND_BURST", 5),

		CleanupInterval:   time.Duration(envInt("CLEANUP_INTERVAL_MINUTES", 30)) * time.Minute,
		HeartbeatInterval: time.Duration(envInt("HEARTBEAT_INTERVAL_SECONDS", 60)) * time.Second,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
