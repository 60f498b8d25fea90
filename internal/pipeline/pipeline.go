// Package pipeline wires the configured ingestion sources to a channel
// registry.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/flightplot/internal/channel"
	"github.com/roman-kulish/flightplot/internal/config"
	"github.com/roman-kulish/flightplot/internal/ingest"
	"github.com/roman-kulish/flightplot/internal/ingest/replay"
	"github.com/roman-kulish/flightplot/internal/ingest/serial"
	"github.com/roman-kulish/flightplot/internal/ingest/tcp"
	"github.com/roman-kulish/flightplot/internal/storage"
)

// Pipeline owns the registry, the ingestor and the sources feeding it.
type Pipeline struct {
	Registry *channel.Registry
	Ingestor *ingest.Ingestor
	Sources  []ingest.Source

	finite  bool
	closers []io.Closer
	logger  *slog.Logger
}

// New builds the sources of c.Sources. The caller must Close the pipeline to
// release the replay database.
func New(c *config.SourcesConfig, logger *slog.Logger) (*Pipeline, error) {
	var options []func(*channel.Channel)
	if c.MaxSamples > 0 {
		options = append(options, channel.WithMaxSamples(c.MaxSamples))
	}

	registry := channel.NewRegistry(options...)
	p := Pipeline{
		Registry: registry,
		Ingestor: ingest.NewIngestor(registry, ingest.WithLogger(logger)),
		finite:   true,
		logger:   logger,
	}

	if s := c.TCP; s != nil {
		opts := []func(*tcp.Source){tcp.WithLogger(logger)}
		if s.MaxTableSizeMB > 0 {
			opts = append(opts, tcp.WithMaxTableSize(uint64(s.MaxTableSizeMB)<<20))
		}
		p.Sources = append(p.Sources, tcp.New(s.Address, opts...))
		p.finite = false
	}

	if s := c.Serial; s != nil {
		opts := []func(*serial.Source){serial.WithLogger(logger)}
		if s.BaudRate > 0 {
			opts = append(opts, serial.WithBaudRate(s.BaudRate))
		}
		p.Sources = append(p.Sources, serial.New(s.Port, opts...))
		p.finite = false
	}

	if s := c.Replay; s != nil {
		if _, err := os.Stat(s.Database); err != nil && os.IsNotExist(err) {
			return nil, fmt.Errorf("database file '%s' does not exist: %w", s.Database, err)
		}

		store := storage.NewSqliteStore(s.Database)
		p.closers = append(p.closers, store)

		opts := []func(*replay.Source){
			replay.WithLogger(logger),
			replay.WithLoop(s.Loop),
			replay.WithSkipRecords(s.SkipRecords),
		}
		if s.Speed != nil {
			opts = append(opts, replay.WithSpeed(*s.Speed))
		}
		p.Sources = append(p.Sources, replay.New(s.Database, replay.FromStore(store, s.SessionID), opts...))
		p.finite = p.finite && !s.Loop
	}

	if len(p.Sources) == 0 {
		p.Close()
		return nil, errors.New("no sources configured")
	}
	return &p, nil
}

// Finite reports whether every source ends on its own, which is the case for
// a replay that does not loop.
func (p *Pipeline) Finite() bool {
	return p.finite
}

// Run runs the sources until they all stop or ctx is done.
func (p *Pipeline) Run(ctx context.Context, options ...func(*ingest.Runner)) error {
	options = append([]func(*ingest.Runner){ingest.WithRunnerLogger(p.logger)}, options...)
	err := ingest.NewRunner(p.Ingestor, p.Sources, options...).Run(ctx)

	stats := p.Ingestor.Stats()
	p.logger.Info("ingestion finished",
		slog.Group("stats",
			slog.Int("channels", p.Registry.Len()),
			slog.String("batches", humanize.Comma(int64(stats.Batches))),
			slog.String("samples", humanize.Comma(int64(stats.Samples))),
			slog.String("dropped", humanize.Comma(int64(stats.Dropped))),
		))

	return err
}

func (p *Pipeline) Close() error {
	var errs []error
	for _, c := range p.closers {
		errs = append(errs, c.Close())
	}
	p.closers = nil
	return errors.Join(errs...)
}
