package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"swarm-relay/internal/config"
	"swarm-relay/internal/relay"
)

// RouterConfig contains all dependencies needed to construct the HTTP router.
// Designed for dependency injection: tests pass a relay and (optionally) a
// permissive rate limit config and get back a handler for httptest.
type RouterConfig struct {
	// Relay is the state-synchronization core (required)
	Relay *relay.Relay

	// Gateway handles WebSocket upgrades. Optional: routers built without
	// one simply don't mount /ws (handy for health/state endpoint tests).
	Gateway *Gateway

	// RateLimiter is an optional pre-configured limiter. If nil, one is
	// created from RateLimitConfig (or defaults) and its cleanup goroutine
	// runs for the life of the process, since nothing holds a reference to
	// Stop it. Callers that need to shut the limiter down (servers,
	// tests) should construct it themselves and pass it here.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is used only when RateLimiter is nil.
	RateLimitConfig *config.RateLimitConfig

	// CORSOrigins restricts cross-origin requests; nil allows all.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (benchmarks,
	// quiet tests).
	DisableLogging bool
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// This function is pure: no goroutines, no listeners, no background
// workers (the rate limiter passed in may own one; a limiter created here
// is the caller's to Stop). Safe for httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting before CORS to reject early
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rlCfg := config.DefaultRateLimit()
		if cfg.RateLimitConfig != nil {
			rlCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rlCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))

	// Liveness endpoints: fixed 200 "OK" for GET/HEAD on / and /healthz,
	// entirely decoupled from relay state. Everything unknown is a plain
	// 404 rather than a WebSocket handshake attempt.
	r.Get("/", handleHealth)
	r.Head("/", handleHealth)
	r.Get("/healthz", handleHealth)
	r.Head("/healthz", handleHealth)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Not Found\n"))
	})

	// Read-only observability aid; not part of the sync protocol
	h := &routerHandlers{relay: cfg.Relay}
	r.Get("/api/state", h.handleGetState)

	if cfg.Gateway != nil {
		r.Get("/ws", cfg.Gateway.HandleWS)
	}

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write([]byte("OK\n"))
	}
}
