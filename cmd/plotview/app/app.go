package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/roman-kulish/flightplot/internal/config"
	"github.com/roman-kulish/flightplot/internal/pipeline"
)

const titleInterval = time.Second

// Run opens the window, starts the sources and renders until the window is
// closed or ctx is done. It must be called from the main thread.
func Run(ctx context.Context, c *config.Config, logger *slog.Logger) (err error) {
	p, err := pipeline.New(&c.Sources, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := p.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	window, err := newWindow(c.Render.Width, c.Render.Height, logger)
	if err != nil {
		return err
	}
	defer closeWindow(window)

	var v view
	switch c.Render.Backend {
	case config.BackendRaster:
		v, err = newRasterView(p.Registry, c, logger)
	default:
		v, err = newGLView(p.Registry, c, logger)
	}
	if err != nil {
		return fmt.Errorf("creating %s view: %w", c.Render.Backend, err)
	}
	defer v.Dispose()

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyEscape, glfw.KeyQ:
			w.SetShouldClose(true)
		case glfw.KeyR:
			p.Ingestor.Reset()
			logger.Info("channels cleared")
		}
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ingestDone := make(chan error, 1)
	go func() {
		ingestDone <- p.Run(ctx)
	}()

	err = renderLoop(ctx, window, v, p, time.Second/time.Duration(c.Render.FPS), logger)

	cancel()
	if ierr := <-ingestDone; ierr != nil && err == nil {
		err = ierr
	}
	return err
}

func renderLoop(ctx context.Context, window *glfw.Window, v view, p *pipeline.Pipeline, period time.Duration, logger *slog.Logger) error {
	var lastTitle time.Time
	next := time.Now()

	for !window.ShouldClose() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		glfw.PollEvents()

		width, height := window.GetFramebufferSize()
		report, err := v.Draw(width, height)
		if err != nil {
			return fmt.Errorf("drawing frame: %w", err)
		}
		if err = report.Err(); err != nil {
			logger.Debug(fmt.Sprintf("frame incomplete: %s", err.Error()))
		}
		window.SwapBuffers()

		if now := time.Now(); now.Sub(lastTitle) >= titleInterval {
			stats := p.Ingestor.Stats()
			window.SetTitle(fmt.Sprintf("%s - %d channels, %s samples", windowTitle, p.Registry.Len(), humanize.Comma(int64(stats.Samples))))
			lastTitle = now
		}

		// vsync may run faster than the configured rate
		next = next.Add(period)
		if wait := time.Until(next); wait > 0 {
			time.Sleep(wait)
		} else {
			next = time.Now()
		}
	}
	return nil
}
