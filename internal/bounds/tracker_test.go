package bounds

import (
	"math"
	"math/rand"
	"testing"

	"github.com/roman-kulish/flightplot/internal/channel"
)

func TestTracker_UpdateEmpty(t *testing.T) {
	tr := NewTracker()
	b, ok := tr.Update(channel.New("alt"))
	if ok {
		t.Fatalf("Expected no data for an empty channel, got %v", b)
	}
	if !b.IsEmpty() {
		t.Errorf("Expected empty sentinel, got %v", b)
	}
}

func TestTracker_Update(t *testing.T) {
	ch := channel.New("alt")
	if err := ch.Append([]channel.Sample{{Time: 0, Value: 1}, {Time: 1, Value: 3}, {Time: 2, Value: 2}}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	tr := NewTracker()
	b, ok := tr.Update(ch)
	if !ok {
		t.Fatalf("Expected bounds")
	}

	want := Bounds{MinTime: 0, MaxTime: 2, MinValue: 1, MaxValue: 3}
	if b != want {
		t.Errorf("Expected %v, got %v", want, b)
	}
}

func TestTracker_SingleSampleReportsEqualBounds(t *testing.T) {
	ch := channel.New("alt")
	if err := ch.Append([]channel.Sample{{Time: 5, Value: 7}}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	b, ok := NewTracker().Update(ch)
	if !ok {
		t.Fatalf("Expected bounds")
	}
	if b.TimeSpan() != 0 || b.ValueSpan() != 0 {
		t.Errorf("Expected zero spans, got %v", b)
	}
}

func TestTracker_IncrementalOnlyFoldsNewSamples(t *testing.T) {
	ch := channel.New("alt")
	tr := NewTracker()

	if err := ch.Append([]channel.Sample{{Time: 0, Value: 10}}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	tr.Update(ch)

	// tamper with the folded state; a rescan of history would undo this
	tr.mu.Lock()
	tr.entries[ch].bounds.MaxValue = 100
	tr.mu.Unlock()

	if err := ch.Append([]channel.Sample{{Time: 1, Value: 20}}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	b, _ := tr.Update(ch)
	if b.MaxValue != 100 {
		t.Errorf("Expected history not to be rescanned, got max %v", b.MaxValue)
	}
	if b.MaxTime != 1 {
		t.Errorf("Expected new sample to be folded, got max time %v", b.MaxTime)
	}
}

func TestTracker_MonotonicBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ch := channel.New("alt")
	tr := NewTracker()

	prev := Empty()
	for i := 0; i < 200; i++ {
		batch := make([]channel.Sample, rng.Intn(5)+1)
		for j := range batch {
			batch[j] = channel.Sample{Time: rng.Float64() * 100, Value: float32(rng.NormFloat64() * 50)}
		}
		if err := ch.Append(batch); err != nil {
			t.Fatalf("Append failed: %v", err)
		}

		b, ok := tr.Update(ch)
		if !ok {
			t.Fatalf("Expected bounds after append %d", i)
		}
		if b.MinTime > prev.MinTime || b.MinValue > prev.MinValue {
			t.Fatalf("minimum grew at append %d: %v -> %v", i, prev, b)
		}
		if b.MaxTime < prev.MaxTime || b.MaxValue < prev.MaxValue {
			t.Fatalf("maximum shrank at append %d: %v -> %v", i, prev, b)
		}
		prev = b
	}

	for _, s := range ch.Snapshot().Samples() {
		if s.Time < prev.MinTime || s.Time > prev.MaxTime {
			t.Fatalf("sample time %v outside %v", s.Time, prev)
		}
		if v := float64(s.Value); v < prev.MinValue || v > prev.MaxValue {
			t.Fatalf("sample value %v outside %v", v, prev)
		}
	}
}

func TestTracker_SkipsNaN(t *testing.T) {
	ch := channel.New("alt")
	nan := float32(math.NaN())
	if err := ch.Append([]channel.Sample{{Time: 0, Value: nan}, {Time: math.NaN(), Value: 1}}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	tr := NewTracker()
	if _, ok := tr.Update(ch); ok {
		t.Fatalf("Expected NaN-only channel to report no data")
	}

	if err := ch.Append([]channel.Sample{{Time: 3, Value: 4}}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	b, ok := tr.Update(ch)
	if !ok {
		t.Fatalf("Expected bounds")
	}
	if want := (Bounds{MinTime: 3, MaxTime: 3, MinValue: 4, MaxValue: 4}); b != want {
		t.Errorf("Expected %v, got %v", want, b)
	}
}

func TestTracker_Reset(t *testing.T) {
	ch := channel.New("alt")
	if err := ch.Append([]channel.Sample{{Time: 0, Value: 1}}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	tr := NewTracker()
	tr.Update(ch)

	tr.Reset()
	if len(tr.entries) != 0 {
		t.Errorf("Expected no state after Reset, got %d entries", len(tr.entries))
	}
	if _, ok := tr.Update(ch); !ok {
		t.Errorf("Expected bounds to be rebuilt after Reset")
	}
}

func TestBounds_Union(t *testing.T) {
	a := Bounds{MinTime: 0, MaxTime: 10, MinValue: 0, MaxValue: 10}
	b := Bounds{MinTime: 5, MaxTime: 12, MinValue: 5, MaxValue: 20}

	tests := []struct {
		name string
		x, y Bounds
		want Bounds
	}{
		{"overlap", a, b, Bounds{MinTime: 0, MaxTime: 12, MinValue: 0, MaxValue: 20}},
		{"empty left", Empty(), b, b},
		{"empty right", a, Empty(), a},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.x.Union(tt.y); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}

	if !Empty().Union(Empty()).IsEmpty() {
		t.Errorf("Expected union of empties to be empty")
	}
}
