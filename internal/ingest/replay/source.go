// Package replay plays recorded flight telemetry back into the registry,
// optionally at the pace it was recorded.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roman-kulish/flightplot/internal/channel"
	"github.com/roman-kulish/flightplot/internal/ingest"
	"github.com/roman-kulish/flightplot/internal/storage"
)

const defaultLoopGap = time.Second

// OpenFunc opens a fresh reader positioned at the first record.
type OpenFunc func(ctx context.Context) (storage.TelemetryReader, error)

// WithLogger sets the logger for the source
func WithLogger(logger *slog.Logger) func(*Source) {
	return func(s *Source) {
		s.logger = logger.With(slog.String("source", "replay"))
	}
}

// WithSpeed sets the playback speed factor. Zero plays as fast as possible.
func WithSpeed(speed float64) func(*Source) {
	return func(s *Source) {
		s.speed = speed
	}
}

// WithLoop restarts playback from the first record when the end is reached.
func WithLoop(loop bool) func(*Source) {
	return func(s *Source) {
		s.loop = loop
	}
}

// WithSkipRecords skips the first n records of every pass.
func WithSkipRecords(n int) func(*Source) {
	return func(s *Source) {
		s.skip = n
	}
}

// Source replays telemetry records, emitting every field present as topic
// "telemetry/<field>" with the time in seconds since the first record.
type Source struct {
	name  string
	open  OpenFunc
	speed float64
	loop  bool
	skip  int

	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates a Source reading records through open.
func New(name string, open OpenFunc, options ...func(*Source)) *Source {
	s := Source{
		name:   name,
		open:   open,
		speed:  1,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		sleep:  sleepContext,
	}
	for _, option := range options {
		option(&s)
	}
	return &s
}

// FromStore returns an OpenFunc for a session of store. A sessionID of zero
// selects the most recent session.
func FromStore(store *storage.SqliteStore, sessionID int64) OpenFunc {
	return func(ctx context.Context) (storage.TelemetryReader, error) {
		id := sessionID
		if id <= 0 {
			sessions, err := store.Sessions(ctx)
			if err != nil {
				return nil, fmt.Errorf("listing sessions: %w", err)
			}
			if len(sessions) == 0 {
				return nil, fmt.Errorf("selecting latest session: %w", storage.ErrNoData)
			}
			id = sessions[len(sessions)-1].ID
		}
		return store.ReadTelemetry(ctx, id)
	}
}

func (s *Source) Name() string {
	return "replay " + s.name
}

// Run plays the records once, or until ctx is cancelled when looping.
func (s *Source) Run(ctx context.Context, in *ingest.Ingestor) error {
	batcher := ingest.NewBatcher(in)
	defer batcher.Close()

	var offset float64
	for pass := 0; ; pass++ {
		last, gap, err := s.playOnce(ctx, batcher, offset)
		if err != nil {
			return err
		}
		s.logger.Info("end of replay", slog.Int("pass", pass))

		if !s.loop {
			return nil
		}
		offset = last + gap
	}
}

// playOnce returns the time of the last emitted record and the typical gap
// between records, used to continue times on the next pass.
func (s *Source) playOnce(ctx context.Context, batcher *ingest.Batcher, offset float64) (last, gap float64, err error) {
	r, err := s.open(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("opening telemetry: %w", err)
	}
	defer func() {
		if cErr := r.Close(); cErr != nil && err == nil {
			err = fmt.Errorf("closing telemetry: %w", cErr)
		}
	}()

	var (
		first   time.Time
		prev    time.Time
		started bool
		index   int
	)

	last, gap = offset, defaultLoopGap.Seconds()
	for r.Next(ctx) {
		if index < s.skip {
			index++
			continue
		}
		index++

		rec := r.Current()
		if !started {
			started = true
			first, prev = rec.Timestamp, rec.Timestamp
		}

		delta := rec.Timestamp.Sub(prev)
		if s.speed > 0 && delta > 0 {
			if err = s.sleep(ctx, time.Duration(float64(delta)/s.speed)); err != nil {
				return last, gap, err
			}
		}
		if delta > 0 && index == s.skip+2 {
			gap = delta.Seconds()
		}
		prev = rec.Timestamp

		t := offset + rec.Timestamp.Sub(first).Seconds()
		for _, f := range rec.Fields() {
			// growth failures are logged by the ingestor, keep playing
			_ = batcher.Add(f.Topic, channel.Sample{Time: t, Value: float32(f.Value)})
		}
		last = t
	}

	if err = r.Error(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return last, gap, err
		}
		return last, gap, fmt.Errorf("reading telemetry: %w", err)
	}
	if !started {
		return last, gap, fmt.Errorf("reading telemetry: %w", storage.ErrNoData)
	}
	return last, gap, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
