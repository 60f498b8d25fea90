package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.bug.st/serial"

	ingestserial "github.com/roman-kulish/flightplot/internal/ingest/serial"
	"github.com/roman-kulish/flightplot/internal/storage"
)

const (
	storageDir      = "data"
	defaultBaudRate = 115200
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	dbPath, err := sessionPath(&config.Storage, time.Now())
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}

	store := storage.NewSqliteStore(dbPath)
	defer store.Close()

	sessionID, err := store.CreateSession(ctx, config.Device.Type, config.Device.Name, config.Telemetry)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	logger.Info("recording session", slog.Int64("session", sessionID), slog.String("database", dbPath))

	src, err := openTelemetry(&config.Telemetry, logger)
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		src.Close() // unblocks the pending read
	})
	defer func() {
		if stop() {
			src.Close()
		}
	}()

	recorder := NewRecorder(store, sessionID,
		WithMaxBatchSize(config.Storage.MaxBatchSize),
		WithLogger(logger))

	err = recorder.Record(ctx, src)
	logger.Info("recording finished", slog.Int("records", recorder.Stored()))
	if ctx.Err() != nil {
		return nil // closing the port on shutdown fails the pending read
	}
	return err
}

func openTelemetry(config *TelemetryConfig, logger *slog.Logger) (io.ReadCloser, error) {
	if config.SerialPort == StdinPort {
		return io.NopCloser(os.Stdin), nil
	}

	name := config.SerialPort
	if name == ingestserial.AutoPort {
		var err error
		if name, err = ingestserial.AutoSelectPort(); err != nil {
			return nil, fmt.Errorf("auto-selecting port: %w", err)
		}
	}

	baudRate := config.BaudRate
	if baudRate == 0 {
		baudRate = defaultBaudRate
	}

	port, err := serial.Open(name, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", name, err)
	}
	logger.Info(fmt.Sprintf("connected to %s @ %d", name, baudRate))
	return port, nil
}

// sessionPath returns the database file of a new recording, relative to the
// working directory unless the data directory is absolute.
func sessionPath(config *StorageConfig, now time.Time) (string, error) {
	dir := config.DataDirectory
	if dir == "" {
		dir = storageDir
	}
	if !filepath.IsAbs(dir) {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current working directory: %w", err)
		}
		dir = filepath.Join(wd, dir)
	}

	stat, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("storage directory '%s' does not exist: %w", dir, err)
		}
		return "", err
	}
	if !stat.IsDir() {
		return "", fmt.Errorf("invalid storage directory '%s'", dir)
	}

	return filepath.Join(dir, fmt.Sprintf("flight_session_%s.sqlite", now.UTC().Format("20060102_150405"))), nil
}
