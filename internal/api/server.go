package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/ravenguard/bosstrack/internal/api/handler"
	"github.com/ravenguard/bosstrack/internal/boss"
	"github.com/ravenguard/bosstrack/internal/clock"
	"github.com/ravenguard/bosstrack/internal/config"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(pool *pgxpool.Pool, registry *boss.Registry, cfg *config.Config, clk clock.Clock) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "Retry-After"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(pool, registry, cfg, clk)

	// --- Routes ---

	// Root
	r.Get("/", h.Root)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
	})

	// Swagger UI
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", h.EngineStatus)
		r.Get("/guilds", h.ListGuilds)

		r.Route("/guilds/{guildID}", func(r chi.Router) {
			// Timers
			r.Get("/timers", h.ListTimers)
			r.Get("/timers/{query}", h.ResolveTimer)

			// Roster administration
			r.Post("/bosses", h.CreateBoss)
			r.Get("/bosses/{bossID}", h.GetBoss)
			r.Patch("/bosses/{bossID}", h.EditBoss)
			r.Delete("/bosses/{bossID}", h.DeleteBoss)
			r.Post("/bosses/{bossID}/killed", h.KillBoss)
			r.Post("/bosses/{bossID}/shift", h.ShiftBoss)

			// Aliases
			r.Post("/aliases", h.AddAlias)
			r.Delete("/aliases/{alias}", h.RemoveAlias)

			// Subscriptions
			r.Get("/bosses/{bossID}/subscribers", h.Subscribers)
			r.Put("/bosses/{bossID}/subscribers/{userID}", h.Subscribe)
			r.Delete("/bosses/{bossID}/subscribers/{userID}", h.Unsubscribe)
		})
	})

	return r
}
