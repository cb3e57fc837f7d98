// Package handler provides HTTP handlers for the ops API. The API is an
// operational surface over the engine's state: timer listings, kill and
// drift reports, roster and subscription administration. Chat-facing
// delivery stays in the dispatch worker; nothing here sends messages.
package handler

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ravenguard/bosstrack/internal/api/respond"
	"github.com/ravenguard/bosstrack/internal/boss"
	"github.com/ravenguard/bosstrack/internal/clock"
	"github.com/ravenguard/bosstrack/internal/config"
	"github.com/ravenguard/bosstrack/internal/procstate"
	"github.com/ravenguard/bosstrack/internal/subscription"
)

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	pool     *pgxpool.Pool
	registry *boss.Registry
	resolver *boss.Resolver
	bosses   *boss.Store
	subs     *subscription.Index
	state    *procstate.Store
	clk      clock.Clock
	cfg      *config.Config
	started  time.Time
}

// New creates a Handler with shared dependencies.
func New(pool *pgxpool.Pool, registry *boss.Registry, cfg *config.Config, clk clock.Clock) *Handler {
	return &Handler{
		pool:     pool,
		registry: registry,
		resolver: boss.NewResolver(registry),
		bosses:   boss.NewStore(pool),
		subs:     subscription.NewIndex(pool),
		state:    procstate.NewStore(pool),
		clk:      clk,
		cfg:      cfg,
		started:  clk.Now(),
	}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, and status.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Bosstrack Ops API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Description Verifies Postgres connectivity.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	var n int
	err := h.pool.QueryRow(r.Context(), "health_check").Scan(&n)
	if err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// EngineStatus reports tick recency and outbox depth.
// @Summary Engine status
// @Description Returns last tick time, startup time, and announcement outbox depth by status.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/status [get]
func (h *Handler) EngineStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.state.Load(r.Context())
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STATE_LOAD_FAILED", "Failed to load process state")
		return
	}

	depth := map[string]int64{}
	rows, err := h.pool.Query(r.Context(),
		"SELECT status, COUNT(*) FROM announcements GROUP BY status")
	if err == nil {
		for rows.Next() {
			var status string
			var n int64
			if rows.Scan(&status, &n) == nil {
				depth[status] = n
			}
		}
		rows.Close()
	}

	now := h.clk.Unix()
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"now":              now,
		"last_tick_ts":     st.LastTick,
		"tick_age_seconds": ageOrZero(now, st.LastTick),
		"last_startup_ts":  st.LastStartup,
		"uptime_seconds":   int64(h.clk.Now().Sub(h.started).Seconds()),
		"outbox":           depth,
		"guilds":           len(h.registry.GuildIDs()),
	})
}

func ageOrZero(now, ts int64) int64 {
	if ts <= 0 {
		return 0
	}
	return now - ts
}
