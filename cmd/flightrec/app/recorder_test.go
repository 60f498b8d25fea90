package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/roman-kulish/flightplot/internal/ingest"
	"github.com/roman-kulish/flightplot/internal/storage"
	"github.com/roman-kulish/flightplot/internal/telemetry"
)

func newTestStore(t *testing.T) (*storage.SqliteStore, int64) {
	t.Helper()

	store := storage.NewSqliteStore(filepath.Join(t.TempDir(), "flight.sqlite"))
	t.Cleanup(func() { store.Close() })

	id, err := store.CreateSession(context.Background(), "fc", "quad-1", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	return store, id
}

func readAll(t *testing.T, store *storage.SqliteStore, id int64) []telemetry.Telemetry {
	t.Helper()
	ctx := context.Background()

	r, err := store.ReadTelemetry(ctx, id)
	if err != nil {
		t.Fatalf("ReadTelemetry failed: %v", err)
	}
	defer r.Close()

	var records []telemetry.Telemetry
	for r.Next(ctx) {
		records = append(records, *r.Current())
	}
	if err = r.Error(); err != nil && !errors.Is(err, storage.ErrNoData) {
		t.Fatalf("reading failed: %v", err)
	}
	return records
}

func TestRecorder_Record(t *testing.T) {
	store, id := newTestStore(t)

	input := `{"timestamp":"2024-05-01T12:00:00Z","altitude":10.5,"radioRSSI":-60}

{"timestamp":"2024-05-01T12:00:01Z","altitude":11}
{"altitude":12}
`
	stamp := time.Date(2024, 5, 1, 12, 0, 2, 0, time.UTC)
	rec := NewRecorder(store, id, WithMaxBatchSize(2))
	rec.now = func() time.Time { return stamp }

	if err := rec.Record(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if rec.Stored() != 3 {
		t.Errorf("Expected 3 stored records, got %d", rec.Stored())
	}

	records := readAll(t, store, id)
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	if records[0].RadioRSSI == nil || *records[0].RadioRSSI != -60 {
		t.Errorf("Expected RSSI -60, got %v", records[0].RadioRSSI)
	}
	if !records[2].Timestamp.Equal(stamp) || *records[2].Altitude != 12 {
		t.Errorf("Expected missing timestamp to be stamped, got %+v", records[2])
	}
}

func TestRecorder_TooManyParseErrors(t *testing.T) {
	store, id := newTestStore(t)

	input := `{"timestamp":"2024-05-01T12:00:00Z","altitude":1}
` + strings.Repeat("garbage\n", ingest.ParseErrorsThreshold)

	rec := NewRecorder(store, id)
	err := rec.Record(context.Background(), strings.NewReader(input))
	if !errors.Is(err, ingest.ErrTooManyParseErrors) {
		t.Fatalf("Expected ErrTooManyParseErrors, got %v", err)
	}

	// records read before the failure are kept
	if got := len(readAll(t, store, id)); got != 1 {
		t.Errorf("Expected 1 record, got %d", got)
	}
}

func TestSessionPath(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	got, err := sessionPath(&StorageConfig{DataDirectory: dir}, now)
	if err != nil {
		t.Fatalf("sessionPath failed: %v", err)
	}
	if want := filepath.Join(dir, "flight_session_20240501_123000.sqlite"); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}

	if _, err = sessionPath(&StorageConfig{DataDirectory: filepath.Join(dir, "missing")}, now); err == nil {
		t.Errorf("Expected error for a missing directory")
	}

	file := filepath.Join(dir, "file")
	if err = os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err = sessionPath(&StorageConfig{DataDirectory: file}, now); err == nil {
		t.Errorf("Expected error for a file")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flightrec.yaml")
	data := "device:\n  name: quad-1\ntelemetry:\n  serialPort: \"-\"\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if c.Device.Type != "fc" || c.Telemetry.SerialPort != StdinPort || c.Storage.MaxBatchSize != maxBatchSize {
		t.Errorf("Unexpected config %+v", c)
	}

	if err = os.WriteFile(path, []byte("storage:\n  maxBatchSize: 0\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err = LoadConfig(path); err == nil {
		t.Errorf("Expected missing device name and batch size to be rejected")
	}
}
