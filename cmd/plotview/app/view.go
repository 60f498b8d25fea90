package app

import (
	"image"
	"log/slog"

	"github.com/roman-kulish/flightplot/internal/channel"
	"github.com/roman-kulish/flightplot/internal/config"
	"github.com/roman-kulish/flightplot/internal/render"
	"github.com/roman-kulish/flightplot/internal/render/glbackend"
	"github.com/roman-kulish/flightplot/internal/render/raster"
)

// view draws one frame of the tile grid into the current framebuffer.
type view interface {
	Draw(width, height int) (render.FrameReport, error)
	Dispose()
}

// glView draws the series straight into the framebuffer, without
// annotations.
type glView struct {
	config   *config.Config
	backend  *glbackend.Backend
	renderer *render.PlotRenderer
}

func newGLView(registry *channel.Registry, c *config.Config, logger *slog.Logger) (*glView, error) {
	backend, err := glbackend.New(c.Render.Width, c.Render.Height, c.Render.Background)
	if err != nil {
		return nil, err
	}

	renderer, err := render.NewPlotRenderer(registry, backend, render.WithLogger(logger))
	if err != nil {
		backend.Dispose()
		return nil, err
	}
	return &glView{config: c, backend: backend, renderer: renderer}, nil
}

func (v *glView) Draw(width, height int) (render.FrameReport, error) {
	v.backend.SetFramebufferSize(width, height)
	specs := v.config.PlotSpecs(image.Rect(0, 0, width, height), inset)
	return v.renderer.RenderFrame(specs), nil
}

func (v *glView) Dispose() {
	v.backend.Dispose()
}

// inset keeps a small gap between neighbouring tiles.
func inset(cell image.Rectangle) image.Rectangle {
	r := cell.Inset(4)
	if r.Empty() {
		return cell
	}
	return r
}

// rasterView composes annotated frames on the CPU and copies them to the
// framebuffer.
type rasterView struct {
	config   *config.Config
	registry *channel.Registry
	logger   *slog.Logger

	blitter  *glbackend.Blitter
	composer *raster.Composer
}

func newRasterView(registry *channel.Registry, c *config.Config, logger *slog.Logger) (*rasterView, error) {
	blitter, err := glbackend.NewBlitter()
	if err != nil {
		return nil, err
	}
	return &rasterView{config: c, registry: registry, logger: logger, blitter: blitter}, nil
}

func (v *rasterView) Draw(width, height int) (render.FrameReport, error) {
	if width <= 0 || height <= 0 {
		return render.FrameReport{}, nil
	}

	// a resize starts over with a new image and a fresh upload cache
	if v.composer == nil || v.composer.Image().Bounds() != image.Rect(0, 0, width, height) {
		if v.composer != nil {
			v.composer.Close()
		}

		img := image.NewRGBA(image.Rect(0, 0, width, height))
		composer, err := raster.NewComposer(v.registry, img, v.config.Render.Foreground, v.config.Render.Background, render.WithLogger(v.logger))
		if err != nil {
			v.composer = nil
			return render.FrameReport{}, err
		}
		v.composer = composer
	}

	img := v.composer.Image()
	report, err := v.composer.Compose(v.config.PlotSpecs(img.Bounds(), raster.PlotArea))
	if err != nil {
		return report, err
	}
	return report, v.blitter.Draw(img, width, height)
}

func (v *rasterView) Dispose() {
	if v.composer != nil {
		v.composer.Close()
	}
	v.blitter.Dispose()
}
