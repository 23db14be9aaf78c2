package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/andriy-ko/weather-digest-api/internal/app"
	"github.com/andriy-ko/weather-digest-api/internal/config"
	"github.com/andriy-ko/weather-digest-api/pkg/logger"

	_ "modernc.org/sqlite"
)

// @title Weather Digest API
// @version 1.0
// @description API for subscribing to recurring weather updates by email
// @host localhost:8080
// @BasePath /api/
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}

	cfg, err := config.New()
	if err != nil {
		log.Panicf("failed to load configuration: %v", err)
	}

	zlog := logger.New(cfg.LogsPath, "WeatherDigestAPI")

	application := app.New(*cfg, zlog)

	container, err := application.Init()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to initialize application")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		if err := application.Stop(container); err != nil {
			zlog.Error().Err(err).Msg("failed to shut down application")
		}
	}()

	if err := application.Start(ctx, container); err != nil {
		zlog.Fatal().Err(err).Msg("application terminated")
	}

	zlog.Info().Msg("application shutdown successfully")
}
