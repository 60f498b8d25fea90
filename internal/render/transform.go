package render

import (
	"encoding/binary"
	"math"

	"github.com/roman-kulish/flightplot/internal/bounds"
	"github.com/roman-kulish/flightplot/internal/channel"
)

// UniformsSize is the size in bytes of the uniform block consumed by the
// shaders: three 16-byte aligned vec4.
const UniformsSize = 48

const (
	minPad      = 1.0
	relativePad = 1e-3
)

// Uniforms is the per-draw transform block.
//
//	Bounds = (min_time, max_time, min_value, max_value)
//	Color  = (r, g, b, a)
//	Params = (point_size, 0, 0, 0)
type Uniforms struct {
	Bounds [4]float32
	Color  [4]float32
	Params [4]float32
}

// Bytes encodes the block in its wire layout, little endian.
func (u Uniforms) Bytes() []byte {
	buf := make([]byte, 0, UniformsSize)
	for _, vec := range [...][4]float32{u.Bounds, u.Color, u.Params} {
		for _, f := range vec {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
	}
	return buf
}

// PointSize returns the point size carried in Params.
func (u Uniforms) PointSize() float32 {
	return u.Params[0]
}

// PadBounds widens any zero-span axis so that it can be normalised. The pad
// is max(1, |v|*1e-3) on each side, keeping the original value at the centre.
func PadBounds(b bounds.Bounds) bounds.Bounds {
	if b.IsEmpty() {
		return b
	}
	if b.MaxTime == b.MinTime {
		p := pad(b.MinTime)
		b.MinTime, b.MaxTime = b.MinTime-p, b.MaxTime+p
	}
	if b.MaxValue == b.MinValue {
		p := pad(b.MinValue)
		b.MinValue, b.MaxValue = b.MinValue-p, b.MaxValue+p
	}
	return b
}

func pad(v float64) float64 {
	return math.Max(minPad, math.Abs(v)*relativePad)
}

// ApplyValueMargin grows the value axis by frac of its span on both sides.
// Zero spans are left for PadBounds.
func ApplyValueMargin(b bounds.Bounds, frac float64) bounds.Bounds {
	if frac <= 0 || b.IsEmpty() {
		return b
	}
	m := b.ValueSpan() * frac
	b.MinValue -= m
	b.MaxValue += m
	return b
}

// ComputeUniforms builds the uniform block for one series. It fails with
// ErrDegenerateBounds when either axis has no usable span once converted to
// the precision the shaders work in.
func ComputeUniforms(b bounds.Bounds, color Color, pointSize float32) (Uniforms, error) {
	u := Uniforms{
		Bounds: [4]float32{float32(b.MinTime), float32(b.MaxTime), float32(b.MinValue), float32(b.MaxValue)},
		Color:  color,
		Params: [4]float32{pointSize, 0, 0, 0},
	}
	if !usableSpan(u.Bounds[0], u.Bounds[1]) || !usableSpan(u.Bounds[2], u.Bounds[3]) {
		return Uniforms{}, ErrDegenerateBounds
	}
	return u, nil
}

func usableSpan(lo, hi float32) bool {
	span := float64(hi - lo)
	return span > 0 && !math.IsInf(span, 0)
}

// Normalize maps a sample to clip space exactly as the vertex shader does.
func Normalize(u Uniforms, t, v float32) (x, y float32) {
	tNorm := (t - u.Bounds[0]) / (u.Bounds[1] - u.Bounds[0])
	vNorm := (v - u.Bounds[2]) / (u.Bounds[3] - u.Bounds[2])
	return tNorm*2 - 1, vNorm*2 - 1
}

// Interleave writes [T0, V0, T1, V1, ...] for the samples into dst, reusing
// its capacity, and returns the filled slice.
func Interleave(samples []channel.Sample, dst []float32) []float32 {
	need := len(samples) * 2
	if cap(dst) < need {
		dst = make([]float32, need)
	}
	dst = dst[:need]
	for i, s := range samples {
		dst[i*2] = float32(s.Time)
		dst[i*2+1] = s.Value
	}
	return dst
}
