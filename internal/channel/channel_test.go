package channel

import (
	"errors"
	"sync"
	"testing"
)

func samples(n int, start float64) []Sample {
	out := make([]Sample, n)
	for i := range out {
		out[i] = Sample{Time: start + float64(i), Value: float32(i)}
	}
	return out
}

func TestChannel_Append(t *testing.T) {
	ch := New("alt")
	if !ch.IsEmpty() {
		t.Fatalf("Expected new channel to be empty")
	}

	if err := ch.Append([]Sample{{0, 1}, {1, 3}, {2, 2}}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := ch.Append([]Sample{{3, 4}}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if ch.Len() != 4 {
		t.Errorf("Expected 4 samples, got %d", ch.Len())
	}
	if ch.Version() != 2 {
		t.Errorf("Expected version 2, got %d", ch.Version())
	}

	snap := ch.Snapshot()
	want := []Sample{{0, 1}, {1, 3}, {2, 2}, {3, 4}}
	for i, s := range want {
		if got := snap.At(i); got != s {
			t.Errorf("sample %d: expected %v, got %v", i, s, got)
		}
	}
}

func TestChannel_AppendEmptyBatch(t *testing.T) {
	ch := New("alt")
	if err := ch.Append(nil); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if ch.Version() != 0 {
		t.Errorf("Expected empty batch to leave version at 0, got %d", ch.Version())
	}
}

func TestChannel_AppendGrowsAcrossCapacity(t *testing.T) {
	ch := New("alt")
	total := 0
	for i := 0; i < 20; i++ {
		batch := samples(100, float64(total))
		if err := ch.Append(batch); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
		total += len(batch)
	}

	snap := ch.Snapshot()
	if snap.Len() != total {
		t.Fatalf("Expected %d samples, got %d", total, snap.Len())
	}
	for i := 0; i < total; i++ {
		if snap.At(i).Time != float64(i) {
			t.Fatalf("sample %d: expected time %d, got %v", i, i, snap.At(i).Time)
		}
	}
}

func TestChannel_SnapshotIsolation(t *testing.T) {
	ch := New("alt")
	if err := ch.Append(samples(10, 0)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	snap := ch.Snapshot()
	before := snap.Samples()

	for i := 0; i < 50; i++ {
		if err := ch.Append(samples(37, float64(10+i*37))); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	if snap.Len() != 10 {
		t.Errorf("Expected snapshot to keep length 10, got %d", snap.Len())
	}
	if snap.Version() != 1 {
		t.Errorf("Expected snapshot version 1, got %d", snap.Version())
	}
	for i, s := range before {
		if s.Time != float64(i) {
			t.Errorf("sample %d changed after append: %v", i, s)
		}
	}
	if ch.Len() != 10+50*37 {
		t.Errorf("Expected channel length %d, got %d", 10+50*37, ch.Len())
	}
}

func TestChannel_ConcurrentReaders(t *testing.T) {
	ch := New("alt")

	const batches = 500
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < batches; i++ {
			if err := ch.Append(samples(7, float64(i*7))); err != nil {
				t.Errorf("Append failed: %v", err)
				return
			}
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < batches; i++ {
				snap := ch.Snapshot()
				if snap.Len()%7 != 0 {
					t.Errorf("snapshot exposes a partial batch: %d samples", snap.Len())
					return
				}
				for j, s := range snap.Samples() {
					if s.Time != float64(j) {
						t.Errorf("torn read at %d: %v", j, s)
						return
					}
				}
			}
		}()
	}

	wg.Wait()
}

func TestChannel_BatchAtomicity(t *testing.T) {
	tests := []struct {
		name    string
		options []func(*Channel)
	}{
		{
			name: "allocator error",
			options: []func(*Channel){WithGrowFunc(func(int) ([]Sample, error) {
				return nil, errors.New("out of memory")
			})},
		},
		{
			name: "allocator panic",
			options: []func(*Channel){WithGrowFunc(func(int) ([]Sample, error) {
				panic("runtime: out of memory")
			})},
		},
		{
			name: "short allocation",
			options: []func(*Channel){WithGrowFunc(func(int) ([]Sample, error) {
				return make([]Sample, 1), nil
			})},
		},
		{
			name:    "sample limit",
			options: []func(*Channel){WithMaxSamples(5)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := New("alt", tt.options...)

			// fill up to the default first allocation or the limit
			err := ch.Append(samples(3, 0))
			if tt.name == "sample limit" && err != nil {
				t.Fatalf("Append within limit failed: %v", err)
			}
			lenBefore, versionBefore := ch.Len(), ch.Version()

			err = ch.Append(samples(1000, 3))
			if !errors.Is(err, ErrChannelGrowthFailed) {
				t.Fatalf("Expected ErrChannelGrowthFailed, got %v", err)
			}
			if ch.Len() != lenBefore {
				t.Errorf("Expected length %d after failed append, got %d", lenBefore, ch.Len())
			}
			if ch.Version() != versionBefore {
				t.Errorf("Expected version %d after failed append, got %d", versionBefore, ch.Version())
			}
		})
	}
}

func TestChannel_GrowFuncRecovers(t *testing.T) {
	fail := true
	ch := New("alt", WithGrowFunc(func(need int) ([]Sample, error) {
		if fail {
			return nil, errors.New("transient")
		}
		return make([]Sample, need), nil
	}))

	if err := ch.Append(samples(2, 0)); !errors.Is(err, ErrChannelGrowthFailed) {
		t.Fatalf("Expected ErrChannelGrowthFailed, got %v", err)
	}

	fail = false
	if err := ch.Append(samples(2, 0)); err != nil {
		t.Fatalf("Append after recovery failed: %v", err)
	}
	if ch.Len() != 2 {
		t.Errorf("Expected 2 samples, got %d", ch.Len())
	}
}
