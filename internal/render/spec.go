package render

import (
	"image"

	"github.com/roman-kulish/flightplot/internal/bounds"
	"github.com/roman-kulish/flightplot/internal/channel"
)

const (
	ModeLine   Mode = iota // connected series, drawn as a line strip
	ModePoints             // unconnected series, drawn as a point list
)

// Mode selects the primitive a series is drawn with.
type Mode int

func (m Mode) String() string {
	if m == ModePoints {
		return "points"
	}
	return "line"
}

const defaultPointSize = 2

// Color is a linear RGBA colour with components in [0, 1].
type Color [4]float32

// TopicStyle binds a topic to the colour its series is drawn with.
type TopicStyle struct {
	Topic string
	Color Color
}

// PlotSpec describes one tile: which topics it overlays and how. It is owned
// by the layout layer and read once per frame.
type PlotSpec struct {
	Title     string
	Topics    []TopicStyle
	PointSize float32
	Mode      Mode

	// AxisOverride fixes the axes. When nil the bounds come from the data.
	AxisOverride *bounds.Bounds

	// Window, when positive, follows the last Window seconds of the newest
	// sample; values are scaled to the samples inside the window.
	Window float64

	// ValueMargin is the fraction of the value span added above and below
	// the data.
	ValueMargin float64

	// Readout selects how the value shown for each topic is read at the
	// right edge of the tile.
	Readout channel.Interpolation

	// Viewport is the pixel rectangle of the tile, passed through to the
	// backend untouched.
	Viewport image.Rectangle
}

func (p *PlotSpec) pointSize() float32 {
	if p.PointSize <= 0 {
		return defaultPointSize
	}
	return p.PointSize
}
