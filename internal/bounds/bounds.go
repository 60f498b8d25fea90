package bounds

import (
	"fmt"
	"math"

	"github.com/roman-kulish/flightplot/internal/channel"
)

// Bounds is the extent of time and value covered by a set of samples. The
// zero value is not meaningful; use Empty for "no data".
type Bounds struct {
	MinTime  float64
	MaxTime  float64
	MinValue float64
	MaxValue float64
}

// Empty returns the sentinel for "no data". Folding any sample into it yields
// that sample's extent, and IsEmpty reports true until then.
func Empty() Bounds {
	return Bounds{
		MinTime:  math.Inf(1),
		MaxTime:  math.Inf(-1),
		MinValue: math.Inf(1),
		MaxValue: math.Inf(-1),
	}
}

// IsEmpty reports whether no sample has been folded in.
func (b Bounds) IsEmpty() bool {
	return b.MinTime > b.MaxTime || b.MinValue > b.MaxValue
}

// Add folds a single sample in. Samples with a NaN time or value are ignored.
func (b Bounds) Add(s channel.Sample) Bounds {
	v := float64(s.Value)
	if math.IsNaN(s.Time) || math.IsNaN(v) {
		return b
	}
	b.MinTime = math.Min(b.MinTime, s.Time)
	b.MaxTime = math.Max(b.MaxTime, s.Time)
	b.MinValue = math.Min(b.MinValue, v)
	b.MaxValue = math.Max(b.MaxValue, v)
	return b
}

// Fold folds every sample in.
func (b Bounds) Fold(samples []channel.Sample) Bounds {
	for _, s := range samples {
		b = b.Add(s)
	}
	return b
}

// Union returns the smallest bounds covering both b and o.
func (b Bounds) Union(o Bounds) Bounds {
	switch {
	case o.IsEmpty():
		return b
	case b.IsEmpty():
		return o
	}
	return Bounds{
		MinTime:  math.Min(b.MinTime, o.MinTime),
		MaxTime:  math.Max(b.MaxTime, o.MaxTime),
		MinValue: math.Min(b.MinValue, o.MinValue),
		MaxValue: math.Max(b.MaxValue, o.MaxValue),
	}
}

// TimeSpan returns MaxTime - MinTime.
func (b Bounds) TimeSpan() float64 {
	return b.MaxTime - b.MinTime
}

// ValueSpan returns MaxValue - MinValue.
func (b Bounds) ValueSpan() float64 {
	return b.MaxValue - b.MinValue
}

func (b Bounds) String() string {
	if b.IsEmpty() {
		return "bounds(empty)"
	}
	return fmt.Sprintf("bounds(t=[%g, %g] v=[%g, %g])", b.MinTime, b.MaxTime, b.MinValue, b.MaxValue)
}
