package app

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/roman-kulish/flightplot/internal/channel"
	"github.com/roman-kulish/flightplot/internal/config"
	"github.com/roman-kulish/flightplot/internal/pipeline"
	"github.com/roman-kulish/flightplot/internal/render"
	"github.com/roman-kulish/flightplot/internal/render/raster"
)

const (
	defaultLiveDuration = 10 * time.Second
	progressInterval    = 2 * time.Second
)

func Run(ctx context.Context, c *Config, logger *slog.Logger) (err error) {
	p, err := pipeline.New(&c.Sources, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := p.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err = ingestAll(ctx, p, c.Duration, logger); err != nil {
		return err
	}
	if p.Registry.Len() == 0 {
		logger.Warn("no data received, the image will be empty")
	}

	img, err := Render(p.Registry, c.Config, logger)
	if err != nil {
		return fmt.Errorf("rendering tiles: %w", err)
	}

	logger.Info("writing image",
		slog.Group("image",
			slog.String("destination", c.OutputFile),
			slog.String("format", string(c.Format)),
			slog.Int("width", img.Bounds().Dx()),
			slog.Int("height", img.Bounds().Dy()),
		))

	out, err := os.Create(c.OutputFile)
	if err != nil {
		return err
	}
	if err = raster.Encode(out, img, c.Format); err != nil {
		out.Close()
		return fmt.Errorf("encoding image: %w", err)
	}
	return out.Close()
}

// ingestAll runs the sources to completion, or for duration when some of
// them never end. An interrupt stops ingestion early and keeps what arrived.
func ingestAll(ctx context.Context, p *pipeline.Pipeline, duration time.Duration, logger *slog.Logger) error {
	if !p.Finite() && duration == 0 {
		duration = defaultLiveDuration
	}
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()

		logger.Info("ingesting", slog.Duration("duration", duration))
	} else {
		logger.Info("ingesting until the sources are exhausted")
	}

	done := make(chan struct{})
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(done)
		return p.Run(ctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return nil
			case <-ticker.C:
				logger.Info("ingestion progress",
					slog.Int("channels", p.Registry.Len()),
					slog.String("samples", humanize.Comma(int64(p.Ingestor.Stats().Samples))))
			}
		}
	})
	return g.Wait()
}

// Render draws every tile of c into a new image. The frame is composed twice
// so that the grid lines are laid out on the final bounds.
func Render(registry *channel.Registry, c *config.Config, logger *slog.Logger) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, c.Render.Width, c.Render.Height))

	composer, err := raster.NewComposer(registry, img, c.Render.Foreground, c.Render.Background, render.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	defer composer.Close()

	specs := c.PlotSpecs(img.Bounds(), raster.PlotArea)
	for range 2 {
		report, err := composer.Compose(specs)
		if err != nil {
			return nil, err
		}
		if err = report.Err(); err != nil {
			logger.Debug(fmt.Sprintf("some tiles were not drawn: %s", err.Error()))
		}
	}
	return img, nil
}
