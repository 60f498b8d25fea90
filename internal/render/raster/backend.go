// Package raster implements a CPU render backend that draws into an
// *image.RGBA, plus tile annotation and image encoding for headless output.
package raster

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/roman-kulish/flightplot/internal/render"
)

var errReleased = errors.New("buffer released")

type buffer struct {
	data []float32
}

func (b *buffer) Len() int {
	return len(b.data) / 2
}

func (b *buffer) Release() {
	b.data = nil
}

// Backend rasterises series into an image following the same contract as the
// GPU shaders: vertices are normalised with render.Normalize, then mapped to
// the viewport, and every fragment gets the uniform colour.
type Backend struct {
	img        *image.RGBA
	background color.Color
	clear      bool
}

// WithBackground sets the colour the image is cleared to at the start of each
// frame.
func WithBackground(c color.Color) func(*Backend) {
	return func(b *Backend) {
		b.background = c
		b.clear = true
	}
}

// NewBackend creates a backend drawing into img.
func NewBackend(img *image.RGBA, options ...func(*Backend)) *Backend {
	b := Backend{img: img, background: color.White}
	for _, option := range options {
		option(&b)
	}
	return &b
}

// Image returns the target image.
func (b *Backend) Image() *image.RGBA {
	return b.img
}

func (b *Backend) BeginFrame() error {
	if b.clear {
		draw.Draw(b.img, b.img.Bounds(), image.NewUniform(b.background), image.Point{}, draw.Src)
	}
	return nil
}

func (b *Backend) EndFrame() error {
	return nil
}

func (b *Backend) Upload(data []float32) (render.Buffer, error) {
	if len(data)%2 != 0 {
		return nil, errors.New("interleaved data must hold pairs")
	}
	return &buffer{data: append([]float32(nil), data...)}, nil
}

func (b *Backend) Draw(call render.DrawCall) error {
	buf, ok := call.Buffer.(*buffer)
	if !ok {
		return errors.New("buffer was not created by the raster backend")
	}
	if buf.data == nil {
		return errReleased
	}

	vp := call.Viewport.Intersect(b.img.Bounds())
	if vp.Empty() {
		return nil
	}

	count := min(call.Count, buf.Len())
	src := fragmentColor(call.Uniforms.Color)

	var prev image.Point
	var hasPrev bool
	for i := 0; i < count; i++ {
		x, y := render.Normalize(call.Uniforms, buf.data[i*2], buf.data[i*2+1])
		p, ok := toPixel(call.Viewport, x, y)
		if !ok {
			hasPrev = false // NaN breaks the strip
			continue
		}

		switch call.Mode {
		case render.ModePoints:
			b.point(vp, p, call.Uniforms.PointSize(), src)
		default:
			if hasPrev {
				b.line(vp, prev, p, src)
			} else {
				b.blend(vp, p.X, p.Y, src)
			}
		}
		prev, hasPrev = p, true
	}
	return nil
}

// toPixel maps clip space [-1, 1] onto the viewport with y pointing up.
func toPixel(vp image.Rectangle, x, y float32) (image.Point, bool) {
	if isBad(x) || isBad(y) {
		return image.Point{}, false
	}
	w, h := float64(vp.Dx()-1), float64(vp.Dy()-1)
	px := float64(vp.Min.X) + (float64(x)+1)/2*w
	py := float64(vp.Max.Y-1) - (float64(y)+1)/2*h

	// keep far away vertices within int range, clipping happens per pixel
	const limit = 1 << 20
	px = math.Max(-limit, math.Min(limit, px))
	py = math.Max(-limit, math.Min(limit, py))
	return image.Pt(int(math.Round(px)), int(math.Round(py))), true
}

func isBad(f float32) bool {
	return f != f || math.IsInf(float64(f), 0)
}

func (b *Backend) point(vp image.Rectangle, p image.Point, size float32, c color.NRGBA) {
	half := int(math.Max(0, float64(size-1)/2))
	for y := p.Y - half; y <= p.Y+half; y++ {
		for x := p.X - half; x <= p.X+half; x++ {
			b.blend(vp, x, y, c)
		}
	}
}

// line draws a Bresenham line from a to b.
func (b *Backend) line(vp image.Rectangle, from, to image.Point, c color.NRGBA) {
	if !segmentMayCross(vp, from, to) {
		return
	}

	dx := abs(to.X - from.X)
	dy := -abs(to.Y - from.Y)
	sx, sy := 1, 1
	if from.X > to.X {
		sx = -1
	}
	if from.Y > to.Y {
		sy = -1
	}

	x, y := from.X, from.Y
	e := dx + dy
	for {
		b.blend(vp, x, y, c)
		if x == to.X && y == to.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

// segmentMayCross rejects segments lying entirely on one side of vp.
func segmentMayCross(vp image.Rectangle, a, b image.Point) bool {
	switch {
	case a.X < vp.Min.X && b.X < vp.Min.X,
		a.X >= vp.Max.X && b.X >= vp.Max.X,
		a.Y < vp.Min.Y && b.Y < vp.Min.Y,
		a.Y >= vp.Max.Y && b.Y >= vp.Max.Y:
		return false
	}
	return true
}

func (b *Backend) blend(vp image.Rectangle, x, y int, c color.NRGBA) {
	if !(image.Point{X: x, Y: y}).In(vp) {
		return
	}
	if c.A == 0xff {
		b.img.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		return
	}

	dst := b.img.RGBAAt(x, y)
	a := uint32(c.A)
	inv := 0xff - a
	b.img.SetRGBA(x, y, color.RGBA{
		R: uint8((uint32(c.R)*a + uint32(dst.R)*inv) / 0xff),
		G: uint8((uint32(c.G)*a + uint32(dst.G)*inv) / 0xff),
		B: uint8((uint32(c.B)*a + uint32(dst.B)*inv) / 0xff),
		A: uint8(a + uint32(dst.A)*inv/0xff),
	})
}

func fragmentColor(c render.Color) color.NRGBA {
	to8 := func(f float32) uint8 {
		return uint8(math.Round(math.Max(0, math.Min(1, float64(f))) * 0xff))
	}
	return color.NRGBA{R: to8(c[0]), G: to8(c[1]), B: to8(c[2]), A: to8(c[3])}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
