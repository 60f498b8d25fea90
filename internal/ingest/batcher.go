package ingest

import (
	"errors"
	"sync"
	"time"

	"github.com/roman-kulish/flightplot/internal/channel"
)

const (
	defaultMaxBatch    = 512
	defaultFlushPeriod = 20 * time.Millisecond
)

// WithMaxBatch sets the number of pending samples that triggers a flush.
func WithMaxBatch(n int) func(*Batcher) {
	return func(b *Batcher) {
		b.maxBatch = n
	}
}

// WithFlushPeriod sets how often pending samples are flushed.
func WithFlushPeriod(d time.Duration) func(*Batcher) {
	return func(b *Batcher) {
		b.flushPeriod = d
	}
}

// Batcher turns per-sample producers into per-topic batches. Samples are
// flushed when maxBatch samples are pending, every flushPeriod, and on Close.
type Batcher struct {
	ingestor    *Ingestor
	maxBatch    int
	flushPeriod time.Duration

	mu      sync.Mutex
	pending map[string][]channel.Sample
	total   int
	closed  bool

	closeChan chan struct{}
	wg        sync.WaitGroup
}

// NewBatcher creates a Batcher and starts its flush loop.
func NewBatcher(in *Ingestor, options ...func(*Batcher)) *Batcher {
	b := Batcher{
		ingestor:    in,
		maxBatch:    defaultMaxBatch,
		flushPeriod: defaultFlushPeriod,
		pending:     make(map[string][]channel.Sample),
		closeChan:   make(chan struct{}),
	}
	for _, option := range options {
		option(&b)
	}

	b.wg.Add(1)
	go b.run()
	return &b
}

func (b *Batcher) run() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.flushPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = b.Flush() // failures are logged by the ingestor

		case <-b.closeChan:
			return
		}
	}
}

// Add queues a sample for topic.
func (b *Batcher) Add(topic string, s channel.Sample) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.New("batcher is closed")
	}

	b.pending[topic] = append(b.pending[topic], s)
	b.total++

	if b.total >= b.maxBatch {
		return b.flushLocked()
	}
	return nil
}

// Flush ingests every pending sample.
func (b *Batcher) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.flushLocked()
}

func (b *Batcher) flushLocked() error {
	if b.total == 0 {
		return nil
	}

	var errs []error
	for topic, samples := range b.pending {
		if len(samples) == 0 {
			continue
		}
		if err := b.ingestor.Ingest(topic, samples); err != nil {
			errs = append(errs, err)
		}
		// the channel copied the batch, keep the capacity for the next one
		b.pending[topic] = samples[:0]
	}
	b.total = 0
	return errors.Join(errs...)
}

// Close stops the flush loop and flushes what is left.
func (b *Batcher) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	close(b.closeChan)
	b.wg.Wait()

	return b.Flush()
}
