package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"crowdwatch/internal/app"
	"crowdwatch/internal/config"
	"crowdwatch/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	appLogger, err := logger.NewLogger(cfg.LogDirectory, level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLogger.Close()

	application, err := app.NewApp(cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to start: %v", err)
		appLogger.Close()
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		appLogger.Error("Server stopped: %v", err)
		application.Close()
		appLogger.Close()
		os.Exit(1)
	}
}
