// Package api provides the HTTP surface of the relay: the WebSocket
// gateway, liveness endpoints, per-IP rate limiting and the observability
// server.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"swarm-relay/internal/config"
	"swarm-relay/internal/relay"
)

// Server is the HTTP server hosting the WebSocket gateway and the health
// and state routes.
//
// The constructor is side-effect free apart from the rate limiter's cleanup
// goroutine; nothing listens until Start is called, so tests can build a
// Server and use Router() with httptest.
type Server struct {
	relay       *relay.Relay
	gateway     *Gateway
	router      *chi.Mux
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
	log         *zap.SugaredLogger
}

// NewServer wires the relay into a full HTTP server
func NewServer(r *relay.Relay, cfg config.AppConfig, log *zap.SugaredLogger) *Server {
	s := &Server{
		relay:       r,
		gateway:     NewGateway(r, cfg.Transport, log),
		rateLimiter: NewIPRateLimiter(cfg.RateLimit),
		log:         log,
	}

	s.router = NewRouter(RouterConfig{
		Relay:       r,
		Gateway:     s.gateway,
		RateLimiter: s.rateLimiter,
	})

	s.httpServer = &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: s.router,
	}

	return s
}

// Start begins serving and blocks until the listener stops
func (s *Server) Start() error {
	s.log.Infow("relay server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Router returns the HTTP handler for use with httptest
func (s *Server) Router() http.Handler {
	return s.router
}

// Shutdown stops the listener, closes all live relay connections and stops
// background workers. Each closed socket runs the normal departure path.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.relay.CloseAll()
	s.rateLimiter.Stop()
	return err
}
