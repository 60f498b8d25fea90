package channel

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrChannelGrowthFailed is returned by Append when the backing storage could
// not be grown. The batch is dropped whole and the channel is left unchanged.
var ErrChannelGrowthFailed = errors.New("channel growth failed")

const minCapacity = 256

// Sample is a single (time, value) observation of a telemetry topic. Time is
// in seconds relative to the session start.
type Sample struct {
	Time  float64
	Value float32
}

// GrowFunc allocates a backing store able to hold at least need samples.
type GrowFunc func(need int) ([]Sample, error)

// WithMaxSamples caps the number of samples a channel may hold. A batch that
// would exceed the cap fails with ErrChannelGrowthFailed.
func WithMaxSamples(n int) func(*Channel) {
	return func(c *Channel) {
		c.maxSamples = n
	}
}

// WithGrowFunc replaces the allocator used when the backing store is full.
func WithGrowFunc(fn GrowFunc) func(*Channel) {
	return func(c *Channel) {
		c.grow = fn
	}
}

// state is the published, immutable view of a channel. Samples beyond
// len(samples) in the backing array are owned by the writer.
type state struct {
	samples []Sample
	version uint64
}

// Channel is an append-only sequence of samples for one topic. It supports a
// single writer and any number of concurrent readers: readers take snapshots
// that never observe later appends, and the writer only writes past the
// published length or into a freshly allocated backing store.
type Channel struct {
	topic string

	mu    sync.Mutex // serialises writers
	state atomic.Pointer[state]

	maxSamples int
	grow       GrowFunc
}

// New creates an empty channel for the topic.
func New(topic string, options ...func(*Channel)) *Channel {
	c := Channel{
		topic: topic,
		grow:  defaultGrow,
	}
	for _, option := range options {
		option(&c)
	}
	c.state.Store(&state{})
	return &c
}

// Topic returns the topic name the channel was created for.
func (c *Channel) Topic() string {
	return c.topic
}

// Append adds the batch to the end of the channel and bumps the version. An
// empty batch is a no-op.
func (c *Channel) Append(batch []Sample) error {
	if len(batch) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.state.Load()
	n := len(cur.samples)
	need := n + len(batch)

	if c.maxSamples > 0 && need > c.maxSamples {
		return fmt.Errorf("%w: %d samples exceed limit of %d", ErrChannelGrowthFailed, need, c.maxSamples)
	}

	buf := cur.samples
	if need > cap(buf) {
		next, err := c.allocate(need)
		if err != nil {
			return err
		}
		copy(next, buf)
		buf = next[:n]
	}

	// The region past n is invisible to readers holding cur.
	buf = append(buf, batch...)
	c.state.Store(&state{samples: buf, version: cur.version + 1})
	return nil
}

func (c *Channel) allocate(need int) (buf []Sample, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf = nil
			err = fmt.Errorf("%w: allocating %d samples: %v", ErrChannelGrowthFailed, need, r)
		}
	}()

	want := need
	if cur := cap(c.state.Load().samples); cur*2 > want {
		want = cur * 2
	}
	if want < minCapacity {
		want = minCapacity
	}
	if c.maxSamples > 0 && want > c.maxSamples {
		want = c.maxSamples
	}

	buf, err = c.grow(want)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChannelGrowthFailed, err)
	}
	if cap(buf) < need {
		return nil, fmt.Errorf("%w: allocator returned %d slots, need %d", ErrChannelGrowthFailed, cap(buf), need)
	}
	return buf[:cap(buf)], nil
}

func defaultGrow(need int) ([]Sample, error) {
	return make([]Sample, need), nil
}

// Snapshot returns a stable view of every sample committed so far.
func (c *Channel) Snapshot() Snapshot {
	s := c.state.Load()
	return Snapshot{samples: s.samples, version: s.version}
}

// Len returns the number of committed samples.
func (c *Channel) Len() int {
	return len(c.state.Load().samples)
}

// IsEmpty reports whether no sample has been committed yet.
func (c *Channel) IsEmpty() bool {
	return c.Len() == 0
}

// Version returns the number of batches committed so far.
func (c *Channel) Version() uint64 {
	return c.state.Load().version
}
