package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/roman-kulish/flightplot/cmd/plotview/app"
	"github.com/roman-kulish/flightplot/internal/logging"
)

func init() {
	// glfw and the GL context must stay on the main thread
	runtime.LockOSThread()
}

func main() {
	config, err := app.NewConfigFromCLI()
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error(err.Error())
		os.Exit(1)
	}

	logger, closer, err := logging.New(os.Stderr, config.Settings)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error(err.Error())
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
