package channel

import (
	"fmt"
	"math"
	"sort"
)

// Interpolation selects how ValueAt resolves a time between two samples.
type Interpolation int

const (
	Previous Interpolation = iota // value of the last sample at or before t
	Linear                        // straight line between the neighbours
	Next                          // value of the first sample at or after t
)

func (i Interpolation) String() string {
	switch i {
	case Previous:
		return "previous"
	case Linear:
		return "linear"
	case Next:
		return "next"
	default:
		return "unknown"
	}
}

// ParseInterpolation converts the name of a mode back to its value.
func ParseInterpolation(name string) (Interpolation, error) {
	for _, mode := range []Interpolation{Previous, Linear, Next} {
		if mode.String() == name {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("unknown interpolation %q", name)
}

// Snapshot is a read-only, point-in-time view of a channel. Its length and
// contents never change, regardless of later appends to the channel.
type Snapshot struct {
	samples []Sample
	version uint64
}

// Len returns the number of samples in the snapshot.
func (s Snapshot) Len() int {
	return len(s.samples)
}

// IsEmpty reports whether the snapshot holds no samples.
func (s Snapshot) IsEmpty() bool {
	return len(s.samples) == 0
}

// Version returns the channel version the snapshot was taken at.
func (s Snapshot) Version() uint64 {
	return s.version
}

// At returns the i-th sample.
func (s Snapshot) At(i int) Sample {
	return s.samples[i]
}

// Samples returns the samples of the snapshot. Callers must not modify them.
func (s Snapshot) Samples() []Sample {
	return s.samples[:len(s.samples):len(s.samples)]
}

// Last returns the most recently appended sample.
func (s Snapshot) Last() (Sample, bool) {
	if len(s.samples) == 0 {
		return Sample{}, false
	}
	return s.samples[len(s.samples)-1], true
}

// Range returns the half-open index range [from, to) of samples whose time
// lies within [minT, maxT]. Samples are assumed to be in arrival order with
// non-decreasing time.
func (s Snapshot) Range(minT, maxT float64) (from, to int) {
	from = sort.Search(len(s.samples), func(i int) bool { return s.samples[i].Time >= minT })
	to = sort.Search(len(s.samples), func(i int) bool { return s.samples[i].Time > maxT })
	if to < from {
		to = from
	}
	return from, to
}

// ValueAt returns the channel value at time t. Times before the first sample
// resolve to the first value and times after the last sample to the last value.
func (s Snapshot) ValueAt(t float64, mode Interpolation) (float32, bool) {
	n := len(s.samples)
	if n == 0 || math.IsNaN(t) {
		return 0, false
	}

	// first index with time > t
	idx := sort.Search(n, func(i int) bool { return s.samples[i].Time > t })
	switch {
	case idx == 0:
		return s.samples[0].Value, true
	case idx == n:
		return s.samples[n-1].Value, true
	}

	prev, next := s.samples[idx-1], s.samples[idx]
	switch mode {
	case Linear:
		span := next.Time - prev.Time
		if span <= 0 {
			return prev.Value, true
		}
		frac := (t - prev.Time) / span
		return prev.Value + float32(frac)*(next.Value-prev.Value), true

	case Next:
		if prev.Time == t {
			return prev.Value, true
		}
		return next.Value, true

	default:
		return prev.Value, true
	}
}
