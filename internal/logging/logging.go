// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"runtime/debug"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Settings represents global logging settings
type Settings struct {
	LogLevel   string `yaml:"logLevel"`
	LogFile    string `yaml:"logFile"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

const defaultMaxSizeMB = 32

// ParseLevel maps debug, info, warn and error to a slog level. An empty
// string is info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%s: invalid log level", level)
	}
}

// New creates a logger writing text to console, or JSON to a rotated file
// when a log file is set. The returned closer releases the file.
func New(console io.Writer, settings Settings) (*slog.Logger, io.Closer, error) {
	lvl, err := ParseLevel(settings.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	opts := slog.HandlerOptions{Level: lvl}

	if settings.LogFile == "" {
		return slog.New(slog.NewTextHandler(console, &opts)), io.NopCloser(nil), nil
	}

	w := &lumberjack.Logger{
		Filename:   settings.LogFile,
		MaxSize:    settings.MaxSizeMB,
		MaxBackups: settings.MaxBackups,
		MaxAge:     settings.MaxAgeDays,
	}
	if w.MaxSize <= 0 {
		w.MaxSize = defaultMaxSizeMB
	}

	logger := slog.New(slog.NewJSONHandler(w, &opts))
	logger.Info("System information",
		slog.String("GOARCH", runtime.GOARCH),
		slog.String("GOOS", runtime.GOOS),
		slog.Int("NumCPUs", runtime.NumCPU()))

	if bi, ok := debug.ReadBuildInfo(); ok {
		logger.Info("Build",
			slog.String("Go version", bi.GoVersion),
			slog.String("Path", bi.Path))
	}
	return logger, w, nil
}
