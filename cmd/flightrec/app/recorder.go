package app

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/roman-kulish/flightplot/internal/ingest"
	"github.com/roman-kulish/flightplot/internal/storage"
	"github.com/roman-kulish/flightplot/internal/telemetry"
)

const maxBatchSize = 100

// WithMaxBatchSize sets the maximum number of records to store within a
// single database transaction.
func WithMaxBatchSize(size int) func(*Recorder) {
	return func(r *Recorder) {
		r.maxBatchSize = size
	}
}

// WithLogger sets the logger for the recorder
func WithLogger(logger *slog.Logger) func(*Recorder) {
	return func(r *Recorder) {
		r.logger = logger.With(slog.String("component", "recorder"))
	}
}

// Recorder stores telemetry records, one JSON object per line, into a
// session of the store.
type Recorder struct {
	store     *storage.SqliteStore
	sessionID int64
	logger    *slog.Logger
	now       func() time.Time

	maxBatchSize         int
	parseErrorsThreshold uint8

	stored int
}

func NewRecorder(store *storage.SqliteStore, sessionID int64, options ...func(*Recorder)) *Recorder {
	r := Recorder{
		store:                store,
		sessionID:            sessionID,
		logger:               slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:                  time.Now,
		maxBatchSize:         maxBatchSize,
		parseErrorsThreshold: ingest.ParseErrorsThreshold,
	}
	for _, option := range options {
		option(&r)
	}
	return &r
}

// Stored returns the number of records written so far.
func (r *Recorder) Stored() int {
	return r.stored
}

// Record reads src until it ends or ctx is cancelled. Records without a
// timestamp are stamped with the time they were read. Pending records are
// stored before returning, even when ctx is cancelled.
func (r *Recorder) Record(ctx context.Context, src io.Reader) error {
	batch := make([]*telemetry.Telemetry, 0, r.maxBatchSize)
	flush := func(ctx context.Context) error {
		if len(batch) == 0 {
			return nil
		}
		if err := r.store.StoreTelemetry(ctx, r.sessionID, batch); err != nil {
			return fmt.Errorf("storing %d records: %w", len(batch), err)
		}
		r.stored += len(batch)
		r.logger.Debug("stored records", slog.Int("count", len(batch)), slog.Int("total", r.stored))
		batch = make([]*telemetry.Telemetry, 0, r.maxBatchSize)
		return nil
	}

	err := r.read(ctx, src, func(rec *telemetry.Telemetry) error {
		batch = append(batch, rec)
		if len(batch) < r.maxBatchSize {
			return nil
		}
		return flush(ctx)
	})

	if ferr := flush(context.WithoutCancel(ctx)); ferr != nil {
		err = errors.Join(err, ferr)
	}
	return err
}

func (r *Recorder) read(ctx context.Context, src io.Reader, emit func(*telemetry.Telemetry) error) error {
	var parseErrors uint8

	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec telemetry.Telemetry
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			parseErrors++
			r.logger.Warn(fmt.Sprintf("error parsing record: %s", err.Error()), slog.String("line", line))

			if parseErrors >= r.parseErrorsThreshold {
				return ingest.ErrTooManyParseErrors
			}
			continue
		}
		parseErrors = 0 // reset counter

		if rec.Timestamp.IsZero() {
			rec.Timestamp = r.now()
		}
		if err := emit(&rec); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, fs.ErrClosed) {
		return fmt.Errorf("reading telemetry: %w", err)
	}
	return nil
}
