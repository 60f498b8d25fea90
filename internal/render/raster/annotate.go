package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/roman-kulish/flightplot/internal/bounds"
	"github.com/roman-kulish/flightplot/internal/render"
)

const (
	dpi            = 72.0
	fontSize       = 12.0
	tickMarkLength = 4
	pixelsPerTick  = 80

	// Borders around the plot area of a tile, in pixels
	TitleBorder  = 20
	AxisBorder   = 60
	BottomBorder = 20
)

// LegendEntry is a series listed in the tile legend.
type LegendEntry struct {
	Topic string
	Color render.Color
	Value *float32 // value at the right edge of the tile, nil when unknown
}

// TileInfo is what the annotator needs to know about a rendered tile.
type TileInfo struct {
	Title  string
	Area   image.Rectangle // plot area the series were drawn into
	Bounds bounds.Bounds   // empty when nothing was drawn
	Legend []LegendEntry
}

// PlotArea returns the plot area of a tile occupying outer, leaving room for
// the title, the value scale and the time scale.
func PlotArea(outer image.Rectangle) image.Rectangle {
	area := image.Rect(outer.Min.X+AxisBorder, outer.Min.Y+TitleBorder, outer.Max.X-tickMarkLength, outer.Max.Y-BottomBorder)
	if area.Empty() {
		return image.Rectangle{Min: outer.Min, Max: outer.Min}
	}
	return area
}

// Annotator draws titles, scales and legends around tiles.
type Annotator struct {
	context  *freetype.Context
	fontFace font.Face

	foreground color.Color
	grid       color.Color
}

// NewAnnotator creates an annotator drawing text in foreground and grid lines
// in a tone between foreground and background.
func NewAnnotator(foreground, background color.Color) (*Annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(fontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.NewUniform(foreground))

	return &Annotator{
		context: ctx,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    fontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
		foreground: foreground,
		grid:       gridColor(foreground, background),
	}, nil
}

func gridColor(fg, bg color.Color) color.Color {
	f, _ := colorful.MakeColor(fg)
	b, _ := colorful.MakeColor(bg)
	return f.BlendLab(b, 0.85).Clamped()
}

func (a *Annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

// Grid draws grid lines for the tile. It is meant to run before the series
// are drawn so that they end up on top.
func (a *Annotator) Grid(img *image.RGBA, tile TileInfo) {
	if tile.Bounds.IsEmpty() || tile.Area.Empty() {
		return
	}
	area := tile.Area.Intersect(img.Bounds())

	for _, v := range render.Ticks(tile.Bounds.MinValue, tile.Bounds.MaxValue, tile.Area.Dy()/pixelsPerTick+1) {
		y := valueToY(tile, v)
		for x := area.Min.X; x < area.Max.X; x++ {
			img.Set(x, y, a.grid)
		}
	}
	for _, t := range render.Ticks(tile.Bounds.MinTime, tile.Bounds.MaxTime, tile.Area.Dx()/pixelsPerTick+1) {
		x := timeToX(tile, t)
		for y := area.Min.Y; y < area.Max.Y; y++ {
			img.Set(x, y, a.grid)
		}
	}
}

// Annotate draws the title, the scales and the legend of the tile.
func (a *Annotator) Annotate(img *image.RGBA, tile TileInfo) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	ops := []struct {
		msg string
		fn  func(*image.RGBA, TileInfo) error
	}{
		{"drawing frame", a.drawFrame},
		{"drawing title", a.drawTitle},
		{"drawing value scale", a.drawValueScale},
		{"drawing time scale", a.drawTimeScale},
		{"drawing legend", a.drawLegend},
	}
	for _, op := range ops {
		if err := op.fn(img, tile); err != nil {
			return fmt.Errorf("%s: %w", op.msg, err)
		}
	}
	return nil
}

func (a *Annotator) drawFrame(img *image.RGBA, tile TileInfo) error {
	r := tile.Area
	for x := r.Min.X - 1; x <= r.Max.X; x++ {
		img.Set(x, r.Min.Y-1, a.foreground)
		img.Set(x, r.Max.Y, a.foreground)
	}
	for y := r.Min.Y - 1; y <= r.Max.Y; y++ {
		img.Set(r.Min.X-1, y, a.foreground)
		img.Set(r.Max.X, y, a.foreground)
	}
	return nil
}

func (a *Annotator) drawTitle(_ *image.RGBA, tile TileInfo) error {
	if tile.Title == "" {
		return nil
	}
	pt := freetype.Pt(tile.Area.Min.X, tile.Area.Min.Y-a.descent()-4)
	_, err := a.context.DrawString(tile.Title, pt)
	return err
}

func (a *Annotator) drawValueScale(img *image.RGBA, tile TileInfo) error {
	if tile.Bounds.IsEmpty() {
		return nil
	}

	step := render.GridStep(tile.Bounds.ValueSpan(), tile.Area.Dy()/pixelsPerTick+1)
	for _, v := range render.Ticks(tile.Bounds.MinValue, tile.Bounds.MaxValue, tile.Area.Dy()/pixelsPerTick+1) {
		y := valueToY(tile, v)
		for x := tile.Area.Min.X - 1 - tickMarkLength; x < tile.Area.Min.X-1; x++ {
			img.Set(x, y, a.foreground)
		}

		label := FormatValue(v, step)
		width := font.MeasureString(a.fontFace, label).Round()
		pt := freetype.Pt(tile.Area.Min.X-tickMarkLength-4-width, y+a.ascent()/2)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing value label: %w", err)
		}
	}
	return nil
}

func (a *Annotator) drawTimeScale(img *image.RGBA, tile TileInfo) error {
	if tile.Bounds.IsEmpty() {
		return nil
	}

	step := render.GridStep(tile.Bounds.TimeSpan(), tile.Area.Dx()/pixelsPerTick+1)
	for _, t := range render.Ticks(tile.Bounds.MinTime, tile.Bounds.MaxTime, tile.Area.Dx()/pixelsPerTick+1) {
		x := timeToX(tile, t)
		for y := tile.Area.Max.Y + 1; y <= tile.Area.Max.Y+tickMarkLength; y++ {
			img.Set(x, y, a.foreground)
		}

		label := FormatValue(t, step) + "s"
		width := font.MeasureString(a.fontFace, label).Round()
		pt := freetype.Pt(x-width/2, tile.Area.Max.Y+tickMarkLength+a.ascent()+1)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing time label: %w", err)
		}
	}
	return nil
}

func (a *Annotator) drawLegend(img *image.RGBA, tile TileInfo) error {
	x := tile.Area.Max.X
	y := tile.Area.Min.Y + a.ascent() + 4

	// right aligned, one line per series
	for _, entry := range tile.Legend {
		label := entry.Topic
		if entry.Value != nil {
			label = fmt.Sprintf("%s: %s", entry.Topic, humanize.FormatFloat("#,###.###", float64(*entry.Value)))
		}
		width := font.MeasureString(a.fontFace, label).Round()
		left := x - width - 6

		swatch := fragmentColor(entry.Color)
		swatch.A = 0xff
		for sy := y - a.ascent() + 2; sy < y; sy++ {
			for sx := left - 12; sx < left-4; sx++ {
				img.Set(sx, sy, swatch)
			}
		}

		if _, err := a.context.DrawString(label, freetype.Pt(left, y)); err != nil {
			return fmt.Errorf("drawing legend entry: %w", err)
		}
		y += a.ascent() + a.descent() + 2
	}
	return nil
}

func (a *Annotator) ascent() int {
	return a.fontFace.Metrics().Ascent.Round()
}

func (a *Annotator) descent() int {
	return a.fontFace.Metrics().Descent.Round()
}

func valueToY(tile TileInfo, v float64) int {
	frac := (v - tile.Bounds.MinValue) / tile.Bounds.ValueSpan()
	return tile.Area.Max.Y - 1 - int(math.Round(frac*float64(tile.Area.Dy()-1)))
}

func timeToX(tile TileInfo, t float64) int {
	frac := (t - tile.Bounds.MinTime) / tile.Bounds.TimeSpan()
	return tile.Area.Min.X + int(math.Round(frac*float64(tile.Area.Dx()-1)))
}

// FormatValue formats a tick label with as many decimals as the tick step
// needs, grouping thousands.
func FormatValue(v, step float64) string {
	decimals := 0
	if step > 0 && step < 1 {
		decimals = int(math.Ceil(-math.Log10(step)))
	}
	return humanize.CommafWithDigits(v, decimals)
}
