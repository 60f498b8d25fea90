// Package ingest moves decoded samples from replay and live sources into the
// channel registry.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/roman-kulish/flightplot/internal/channel"
)

// ErrTooManyParseErrors is returned by sources when the number of consecutive
// parse errors exceeds the threshold
var ErrTooManyParseErrors = errors.New("too many consecutive parse errors")

// ParseErrorsThreshold defines the number of consecutive parse errors allowed
const ParseErrorsThreshold = 5

// WithLogger sets the logger for the ingestor
func WithLogger(logger *slog.Logger) func(*Ingestor) {
	return func(in *Ingestor) {
		in.logger = logger.With(slog.String("component", "ingestor"))
	}
}

// Stats are running counters of an Ingestor.
type Stats struct {
	Batches uint64 // batches appended
	Samples uint64 // samples appended
	Dropped uint64 // samples of batches that could not be appended
}

// Ingestor appends sample batches to the channels of a registry, creating
// channels on first write. It is safe for concurrent use; appends to one topic
// must come from one source at a time to keep their order.
type Ingestor struct {
	registry *channel.Registry
	logger   *slog.Logger

	batches atomic.Uint64
	samples atomic.Uint64
	dropped atomic.Uint64
}

// NewIngestor creates an Ingestor writing into registry.
func NewIngestor(registry *channel.Registry, options ...func(*Ingestor)) *Ingestor {
	in := Ingestor{
		registry: registry,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(&in)
	}
	return &in
}

// Ingest appends samples to the channel of topic. When the channel cannot
// grow the batch is dropped whole, logged and the error returned; the caller
// may carry on with the next batch.
func (in *Ingestor) Ingest(topic string, samples []channel.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	release := in.registry.Hold()
	defer release()

	if err := in.registry.GetOrCreate(topic).Append(samples); err != nil {
		in.dropped.Add(uint64(len(samples)))
		in.logger.Warn(fmt.Sprintf("dropping batch: %s", err.Error()),
			slog.String("topic", topic),
			slog.Int("samples", len(samples)))

		return fmt.Errorf("ingesting %s: %w", topic, err)
	}

	in.batches.Add(1)
	in.samples.Add(uint64(len(samples)))
	return nil
}

// Stats returns a copy of the running counters.
func (in *Ingestor) Stats() Stats {
	return Stats{
		Batches: in.batches.Load(),
		Samples: in.samples.Load(),
		Dropped: in.dropped.Load(),
	}
}

// Reset clears every channel of the registry and zeroes the counters, so
// the stats describe the new session only.
func (in *Ingestor) Reset() {
	in.registry.Reset()

	in.batches.Store(0)
	in.samples.Store(0)
	in.dropped.Store(0)
}
