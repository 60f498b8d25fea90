package channel

import (
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"
)

func TestRegistry_GetOrCreate(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Get("alt"); ok {
		t.Fatalf("Expected unknown topic to be absent")
	}

	a := r.GetOrCreate("alt")
	b := r.GetOrCreate("alt")
	if a != b {
		t.Errorf("Expected the same channel for the same topic")
	}

	got, ok := r.Get("alt")
	if !ok || got != a {
		t.Errorf("Expected Get to return the created channel")
	}
	if a.Topic() != "alt" {
		t.Errorf("Expected topic alt, got %s", a.Topic())
	}
}

func TestRegistry_TopicsInFirstSeenOrder(t *testing.T) {
	r := NewRegistry()
	for _, topic := range []string{"gps/alt", "imu/roll", "gps/alt", "baro/alt"} {
		r.GetOrCreate(topic)
	}

	topics := r.Topics()
	want := []string{"gps/alt", "imu/roll", "baro/alt"}
	if !slices.Equal(topics, want) {
		t.Errorf("Expected %v, got %v", want, topics)
	}

	r.GetOrCreate("rc/throttle")
	if len(topics) != 3 {
		t.Errorf("Expected earlier listing to stay unchanged, got %v", topics)
	}
}

func TestRegistry_ChannelOptions(t *testing.T) {
	r := NewRegistry(WithMaxSamples(2))
	if err := r.GetOrCreate("alt").Append(samples(3, 0)); err == nil {
		t.Errorf("Expected registry options to apply to new channels")
	}
}

func TestRegistry_ConcurrentGetOrCreate(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r.GetOrCreate(fmt.Sprintf("topic/%d", i%10))
				r.Get(fmt.Sprintf("topic/%d", i%7))
			}
		}()
	}
	wg.Wait()

	if r.Len() != 10 {
		t.Errorf("Expected 10 channels, got %d", r.Len())
	}
}

func TestRegistry_Reset(t *testing.T) {
	r := NewRegistry()
	if err := r.GetOrCreate("alt").Append(samples(3, 0)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	r.Reset()

	if r.Len() != 0 {
		t.Errorf("Expected empty registry after reset, got %d channels", r.Len())
	}
	if len(r.Topics()) != 0 {
		t.Errorf("Expected no topics after reset")
	}
	if r.Generation() != 1 {
		t.Errorf("Expected generation 1, got %d", r.Generation())
	}
	if !r.GetOrCreate("alt").IsEmpty() {
		t.Errorf("Expected a fresh channel after reset")
	}
}

func TestRegistry_ResetWaitsForHolds(t *testing.T) {
	r := NewRegistry()
	release := r.Hold()

	done := make(chan struct{})
	go func() {
		r.Reset()
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("Reset completed while a hold was active")
	case <-time.After(50 * time.Millisecond):
	}

	release()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Reset did not complete after the hold was released")
	}
}
