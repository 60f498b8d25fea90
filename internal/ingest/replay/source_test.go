package replay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/roman-kulish/flightplot/internal/channel"
	"github.com/roman-kulish/flightplot/internal/ingest"
	"github.com/roman-kulish/flightplot/internal/storage"
	"github.com/roman-kulish/flightplot/internal/telemetry"
)

type fakeReader struct {
	records []*telemetry.Telemetry
	pos     int
	err     error
}

func (r *fakeReader) Session() *storage.Session {
	return &storage.Session{ID: 1}
}

func (r *fakeReader) Next(context.Context) bool {
	if r.pos >= len(r.records) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeReader) Current() *telemetry.Telemetry {
	return r.records[r.pos-1]
}

func (r *fakeReader) Error() error {
	return r.err
}

func (r *fakeReader) Close() error {
	return nil
}

func ptr(v float64) *float64 {
	return &v
}

var base = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func flight() []*telemetry.Telemetry {
	return []*telemetry.Telemetry{
		{Timestamp: base, Altitude: ptr(10), Roll: ptr(1)},
		{Timestamp: base.Add(500 * time.Millisecond), Altitude: ptr(11)},
		{Timestamp: base.Add(1500 * time.Millisecond), Altitude: ptr(12), Roll: ptr(2)},
	}
}

func openFlight(opened *int) OpenFunc {
	return func(context.Context) (storage.TelemetryReader, error) {
		*opened++
		return &fakeReader{records: flight()}, nil
	}
}

func TestSource_RunOnce(t *testing.T) {
	reg := channel.NewRegistry()

	var slept []time.Duration
	var opened int
	src := New("test", openFlight(&opened), WithSpeed(2))
	src.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	if err := src.Run(context.Background(), ingest.NewIngestor(reg)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	alt, ok := reg.Get("telemetry/altitude")
	if !ok {
		t.Fatalf("Expected telemetry/altitude channel")
	}
	want := []channel.Sample{{Time: 0, Value: 10}, {Time: 0.5, Value: 11}, {Time: 1.5, Value: 12}}
	got := alt.Snapshot().Samples()
	if len(got) != len(want) {
		t.Fatalf("Expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sample %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}

	roll, _ := reg.Get("telemetry/roll")
	if roll.Len() != 2 {
		t.Errorf("Expected 2 roll samples, got %d", roll.Len())
	}

	// deltas of 0.5s and 1s at double speed
	if len(slept) != 2 || slept[0] != 250*time.Millisecond || slept[1] != 500*time.Millisecond {
		t.Errorf("Unexpected sleeps %v", slept)
	}
}

func TestSource_SpeedZeroDoesNotSleep(t *testing.T) {
	var opened int
	src := New("test", openFlight(&opened), WithSpeed(0))
	src.sleep = func(context.Context, time.Duration) error {
		t.Errorf("Expected no sleep at speed 0")
		return nil
	}
	if err := src.Run(context.Background(), ingest.NewIngestor(channel.NewRegistry())); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestSource_LoopContinuesTime(t *testing.T) {
	reg := channel.NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var opened int
	open := func(ctx context.Context) (storage.TelemetryReader, error) {
		if opened == 2 {
			cancel()
			return nil, ctx.Err()
		}
		return openFlight(&opened)(ctx)
	}

	src := New("test", open, WithSpeed(0), WithLoop(true))
	err := src.Run(ctx, ingest.NewIngestor(reg))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	alt, _ := reg.Get("telemetry/altitude")
	samples := alt.Snapshot().Samples()
	if len(samples) != 6 {
		t.Fatalf("Expected 2 passes of 3 samples, got %d", len(samples))
	}
	for i := 1; i < len(samples); i++ {
		if samples[i].Time <= samples[i-1].Time {
			t.Errorf("Expected increasing times, got %v after %v", samples[i].Time, samples[i-1].Time)
		}
	}
	// second pass starts one typical gap (0.5s) after the end of the first
	if samples[3].Time != 2 {
		t.Errorf("Expected second pass to start at 2s, got %v", samples[3].Time)
	}
}

func TestSource_SkipRecords(t *testing.T) {
	reg := channel.NewRegistry()
	var opened int
	src := New("test", openFlight(&opened), WithSpeed(0), WithSkipRecords(1))
	if err := src.Run(context.Background(), ingest.NewIngestor(reg)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	alt, _ := reg.Get("telemetry/altitude")
	if first := alt.Snapshot().At(0); first.Time != 0 || first.Value != 11 {
		t.Errorf("Expected playback to start at the second record, got %+v", first)
	}
}

func TestSource_EmptySession(t *testing.T) {
	open := func(context.Context) (storage.TelemetryReader, error) {
		return &fakeReader{}, nil
	}
	err := New("empty", open, WithLoop(true)).Run(context.Background(), ingest.NewIngestor(channel.NewRegistry()))
	if !errors.Is(err, storage.ErrNoData) {
		t.Errorf("Expected ErrNoData, got %v", err)
	}
}
