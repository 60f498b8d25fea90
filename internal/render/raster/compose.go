package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/roman-kulish/flightplot/internal/bounds"
	"github.com/roman-kulish/flightplot/internal/channel"
	"github.com/roman-kulish/flightplot/internal/render"
)

// Composer draws annotated tile grids into an image. Grid lines have to be
// under the series but depend on the bounds the series are drawn with, so
// each frame lays the grid out on the bounds of the previous one.
type Composer struct {
	registry  *channel.Registry
	renderer  *render.PlotRenderer
	annotator *Annotator

	img        *image.RGBA
	background *image.Uniform
	previous   []TileInfo
}

// NewComposer creates a composer drawing into img. The renderer options are
// passed on to the PlotRenderer.
func NewComposer(registry *channel.Registry, img *image.RGBA, foreground, background color.Color, options ...func(*render.PlotRenderer)) (*Composer, error) {
	renderer, err := render.NewPlotRenderer(registry, NewBackend(img), options...)
	if err != nil {
		return nil, err
	}

	annotator, err := NewAnnotator(foreground, background)
	if err != nil {
		return nil, err
	}

	return &Composer{
		registry:   registry,
		renderer:   renderer,
		annotator:  annotator,
		img:        img,
		background: image.NewUniform(background),
	}, nil
}

// Image returns the target image.
func (c *Composer) Image() *image.RGBA {
	return c.img
}

// Compose draws one frame. Each spec is expected to have its Viewport set to
// the PlotArea of its grid cell.
func (c *Composer) Compose(specs []render.PlotSpec) (render.FrameReport, error) {
	draw.Draw(c.img, c.img.Bounds(), c.background, image.Point{}, draw.Src)
	if len(c.previous) == len(specs) {
		for _, tile := range c.previous {
			c.annotator.Grid(c.img, tile)
		}
	}

	report := c.renderer.RenderFrame(specs)

	tiles := make([]TileInfo, len(specs))
	for i := range specs {
		tiles[i] = tileInfo(c.registry, &specs[i], report.Tiles[i])
		if err := c.annotator.Annotate(c.img, tiles[i]); err != nil {
			return report, fmt.Errorf("annotating tile %q: %w", tiles[i].Title, err)
		}
	}
	c.previous = tiles
	return report, nil
}

func (c *Composer) Close() error {
	return c.annotator.Close()
}

func tileInfo(registry *channel.Registry, spec *render.PlotSpec, report render.TileReport) TileInfo {
	tile := TileInfo{
		Title:  spec.Title,
		Area:   spec.Viewport,
		Bounds: report.Bounds,
		Legend: make([]LegendEntry, len(spec.Topics)),
	}

	for i, style := range spec.Topics {
		entry := LegendEntry{Topic: style.Topic, Color: style.Color}
		if ch, ok := registry.Get(style.Topic); ok {
			if value, ok := readout(ch.Snapshot(), report.Bounds, spec.Readout); ok {
				entry.Value = &value
			}
		}
		tile.Legend[i] = entry
	}
	return tile
}

// readout returns the value of snap at the right edge of b, or the newest
// value when the tile has no bounds yet.
func readout(snap channel.Snapshot, b bounds.Bounds, mode channel.Interpolation) (float32, bool) {
	if b.IsEmpty() {
		last, ok := snap.Last()
		return last.Value, ok
	}
	return snap.ValueAt(b.MaxTime, mode)
}
