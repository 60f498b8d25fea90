package channel

import "testing"

func TestSnapshot_ValueAt(t *testing.T) {
	ch := New("alt")
	if err := ch.Append([]Sample{{0, 1}, {1, 3}, {2, 2}}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	snap := ch.Snapshot()

	tests := []struct {
		name string
		t    float64
		mode Interpolation
		want float32
	}{
		{"before first", -5, Linear, 1},
		{"after last", 10, Previous, 2},
		{"exact previous", 1, Previous, 3},
		{"exact next", 1, Next, 3},
		{"between previous", 0.5, Previous, 1},
		{"between next", 0.5, Next, 3},
		{"between linear", 0.5, Linear, 2},
		{"between linear descending", 1.5, Linear, 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := snap.ValueAt(tt.t, tt.mode)
			if !ok {
				t.Fatalf("Expected a value")
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSnapshot_ValueAtEmpty(t *testing.T) {
	if _, ok := New("alt").Snapshot().ValueAt(0, Linear); ok {
		t.Errorf("Expected no value for an empty snapshot")
	}
}

func TestSnapshot_Range(t *testing.T) {
	ch := New("alt")
	if err := ch.Append(samples(10, 0)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	snap := ch.Snapshot()

	tests := []struct {
		name       string
		minT, maxT float64
		from, to   int
	}{
		{"all", -1, 100, 0, 10},
		{"inner", 2.5, 5, 3, 6},
		{"exact", 2, 4, 2, 5},
		{"none before", -10, -5, 0, 0},
		{"none after", 20, 30, 10, 10},
		{"inverted", 5, 2, 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := snap.Range(tt.minT, tt.maxT)
			if from != tt.from || to != tt.to {
				t.Errorf("Expected [%d, %d), got [%d, %d)", tt.from, tt.to, from, to)
			}
		})
	}
}

func TestSnapshot_Last(t *testing.T) {
	ch := New("alt")
	if _, ok := ch.Snapshot().Last(); ok {
		t.Fatalf("Expected no last sample on empty channel")
	}
	if err := ch.Append(samples(3, 0)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	last, ok := ch.Snapshot().Last()
	if !ok || last.Time != 2 {
		t.Errorf("Expected last sample at time 2, got %v (%v)", last, ok)
	}
}

func TestParseInterpolation(t *testing.T) {
	for _, mode := range []Interpolation{Previous, Linear, Next} {
		got, err := ParseInterpolation(mode.String())
		if err != nil || got != mode {
			t.Errorf("Expected %v, got %v (%v)", mode, got, err)
		}
	}
	if _, err := ParseInterpolation("cubic"); err == nil {
		t.Errorf("Expected error for an unknown interpolation")
	}
}
