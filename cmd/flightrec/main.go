package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/roman-kulish/flightplot/cmd/flightrec/app"
	"github.com/roman-kulish/flightplot/internal/logging"
)

func main() {
	console := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var configPath string
	flag.StringVar(&configPath, "c", "", "Path to the configuration file")
	flag.Parse()

	if configPath == "" {
		console.Error("no configuration file provided")
		os.Exit(1)
	}

	config, err := app.LoadConfig(configPath)
	if err != nil {
		console.Error(fmt.Sprintf("failed to load configuration file: %s", err.Error()), slog.String("path", configPath))
		os.Exit(1)
	}

	logger, closer, err := logging.New(os.Stderr, config.Settings)
	if err != nil {
		console.Error(err.Error())
		os.Exit(1)
	}
	defer closer.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = app.Run(ctx, config, logger); err != nil {
		logger.Error(err.Error())

		cancel()
		closer.Close()
		os.Exit(1)
	}
}
