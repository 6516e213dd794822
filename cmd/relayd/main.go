package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"swarm-relay/internal/api"
	"swarm-relay/internal/config"
	"swarm-relay/internal/logging"
	"swarm-relay/internal/relay"
)

func main() {
	// Environment variables win over .env; missing .env is fine
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.Log)
	defer log.Sync()

	log.Infow("starting state-sync relay",
		"addr", cfg.Server.Addr(),
		"max_connections", cfg.Transport.MaxConnections,
		"max_connections_per_ip", cfg.Transport.MaxConnectionsPerIP,
	)

	core := relay.NewRelay(log)
	server := api.NewServer(core, cfg, log)

	api.StartDebugServer(cfg.Debug, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalw("server failed", "error", err)
		}
	case sig := <-quit:
		log.Infow("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warnw("shutdown incomplete", "error", err)
	}
}
