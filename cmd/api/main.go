package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ttrnecka/rebbl-stock-market/bootstrap"

	"github.com/rs/zerolog/log"
)

func main() {
	fiberApp, a, err := bootstrap.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Startup failed")
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := a.Ping(ctx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("Store connection failed")
	}
	cancel()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Info().Msg("Shutting down")
		if err := fiberApp.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	port := a.Config.Port
	log.Info().Str("port", port).Str("season", a.Config.Season).Msg("Server running")
	log.Info().Msgf("Health check: http://localhost:%s/health/json", port)
	if err := fiberApp.Listen(":" + port); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}
