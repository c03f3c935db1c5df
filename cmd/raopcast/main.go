// Package main contains the raopcast command.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bluenviron/goraop/internal/raopcast"
)

func main() {
	configPath := flag.String("config", "configs/raopcast.yaml", "path of the configuration file")
	flag.Parse()

	config, err := raopcast.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}

	logger := raopcast.InitLogger(os.Stderr, config)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("raopcast started", "mode", config.Mode)

	err = raopcast.Run(ctx, config, logger)
	if err != nil {
		logger.Error("raopcast failed", "err", err)
		cancel()
		os.Exit(1)
	}

	logger.Info("raopcast stopped")
}
