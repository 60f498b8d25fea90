package config

import (
	"image"

	"github.com/roman-kulish/flightplot/internal/bounds"
	"github.com/roman-kulish/flightplot/internal/channel"
	"github.com/roman-kulish/flightplot/internal/render"
)

// Grid splits area into n cells laid out row by row in the given number of
// columns. The last row may be partially filled.
func Grid(area image.Rectangle, n, columns int) []image.Rectangle {
	if n <= 0 {
		return nil
	}
	columns = max(1, min(columns, n))
	rows := (n + columns - 1) / columns

	w, h := area.Dx(), area.Dy()
	cells := make([]image.Rectangle, n)
	for i := range cells {
		row, col := i/columns, i%columns
		cells[i] = image.Rect(
			area.Min.X+col*w/columns,
			area.Min.Y+row*h/rows,
			area.Min.X+(col+1)*w/columns,
			area.Min.Y+(row+1)*h/rows,
		)
	}
	return cells
}

// PlotSpecs builds the render description of every tile. viewport maps each
// grid cell to the rectangle the series are drawn in, or is nil to use the
// cell itself.
func (c *Config) PlotSpecs(area image.Rectangle, viewport func(image.Rectangle) image.Rectangle) []render.PlotSpec {
	cells := Grid(area, len(c.Tiles), c.Render.Columns)

	specs := make([]render.PlotSpec, len(c.Tiles))
	for i, t := range c.Tiles {
		spec := render.PlotSpec{
			Title:       t.Title,
			PointSize:   t.PointSize,
			Window:      t.Window.Seconds(),
			ValueMargin: t.ValueMargin,
			Viewport:    cells[i],
		}
		if viewport != nil {
			spec.Viewport = viewport(cells[i])
		}
		if t.Mode == ModePoints {
			spec.Mode = render.ModePoints
		}
		if readout, err := channel.ParseInterpolation(t.Readout); err == nil {
			spec.Readout = readout
		}
		if a := t.Axis; a != nil {
			spec.AxisOverride = &bounds.Bounds{
				MinTime:  a.MinTime,
				MaxTime:  a.MaxTime,
				MinValue: a.MinValue,
				MaxValue: a.MaxValue,
			}
		}

		// only uncoloured topics advance the palette
		spec.Topics = make([]render.TopicStyle, len(t.Topics))
		palette := 0
		for j, topic := range t.Topics {
			var color render.Color
			if topic.Color != nil {
				color = topic.Color.Render()
			} else {
				color = render.PaletteColor(palette)
				palette++
			}
			spec.Topics[j] = render.TopicStyle{Topic: topic.Topic, Color: color}
		}

		specs[i] = spec
	}
	return specs
}
