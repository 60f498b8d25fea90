package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "debug", want: slog.LevelDebug},
		{in: "WARN", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "verbose", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(&buf, Settings{LogLevel: "warn"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plot.log")

	var console bytes.Buffer
	logger, closer, err := New(&console, Settings{LogFile: path})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("to file", slog.String("topic", "gps/alt"))
	if err = closer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if console.Len() != 0 {
		t.Errorf("Expected nothing on console, got %q", console.String())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	var last map[string]any
	if err = json.Unmarshal([]byte(lines[len(lines)-1]), &last); err != nil {
		t.Fatalf("Expected JSON lines: %v", err)
	}
	if last["msg"] != "to file" || last["topic"] != "gps/alt" {
		t.Errorf("Unexpected record %v", last)
	}
}
