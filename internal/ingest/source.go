package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Source produces samples into an Ingestor until its input is exhausted or ctx
// is cancelled.
type Source interface {
	Name() string
	Run(ctx context.Context, in *Ingestor) error
}

// WithRunnerLogger sets the logger for the runner
func WithRunnerLogger(logger *slog.Logger) func(*Runner) {
	return func(r *Runner) {
		r.logger = logger.With(slog.String("component", "runner"))
	}
}

// WithFailFast makes the first failing source stop all other sources.
func WithFailFast() func(*Runner) {
	return func(r *Runner) {
		r.failFast = true
	}
}

// Runner runs a set of sources concurrently against one Ingestor.
type Runner struct {
	ingestor *Ingestor
	sources  []Source
	logger   *slog.Logger
	failFast bool
}

// NewRunner creates a Runner.
func NewRunner(in *Ingestor, sources []Source, options ...func(*Runner)) *Runner {
	r := Runner{
		ingestor: in,
		sources:  sources,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(&r)
	}
	return &r
}

// Run blocks until every source has returned. A failing source is logged and
// the rest keep running, unless the runner is fail-fast, in which case the
// first error cancels the others and is returned.
func (r *Runner) Run(ctx context.Context) error {
	if len(r.sources) == 0 {
		return errors.New("no sources to run")
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, src := range r.sources {
		g.Go(func() error {
			logger := r.logger.With(slog.String("source", src.Name()))
			logger.Info("source started")

			err := src.Run(ctx, r.ingestor)
			switch {
			case err == nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				logger.Info("source stopped")
				return nil

			case r.failFast:
				return fmt.Errorf("source %s: %w", src.Name(), err)

			default:
				logger.Error(fmt.Sprintf("source failed: %s", err.Error()))
				return nil
			}
		})
	}

	return g.Wait()
}
