package render

import "math"

// Palette is the default series colour cycle.
var Palette = []Color{
	{0.12, 0.47, 0.71, 1.0}, // blue
	{1.00, 0.50, 0.05, 1.0}, // orange
	{0.17, 0.63, 0.17, 1.0}, // green
	{0.84, 0.15, 0.16, 1.0}, // red
	{0.58, 0.40, 0.74, 1.0}, // purple
	{0.55, 0.34, 0.29, 1.0}, // brown
	{0.89, 0.47, 0.76, 1.0}, // pink
	{0.50, 0.50, 0.50, 1.0}, // grey
	{0.74, 0.74, 0.13, 1.0}, // olive
	{0.09, 0.75, 0.81, 1.0}, // cyan
}

// PaletteColor returns the i-th colour of the palette, wrapping around.
func PaletteColor(i int) Color {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}

// GridStep returns a "nice" tick step (1, 2 or 5 times a power of ten) that
// splits span into roughly target intervals.
func GridStep(span float64, target int) float64 {
	if span <= 0 || math.IsNaN(span) || math.IsInf(span, 0) {
		return 1
	}
	if target < 1 {
		target = 1
	}

	rough := span / float64(target)
	magnitude := math.Pow(10, math.Floor(math.Log10(rough)))
	normalized := rough / magnitude

	switch {
	case normalized <= 1:
		return magnitude
	case normalized <= 2:
		return 2 * magnitude
	case normalized <= 5:
		return 5 * magnitude
	default:
		return 10 * magnitude
	}
}

// Ticks returns the multiples of GridStep that fall within [lo, hi].
func Ticks(lo, hi float64, target int) []float64 {
	if !(hi > lo) {
		return nil
	}
	step := GridStep(hi-lo, target)
	start := math.Ceil(lo/step) * step

	var ticks []float64
	for i := 0; ; i++ {
		v := start + float64(i)*step
		if v > hi+step*1e-9 {
			break
		}
		if v == 0 {
			v = 0 // no -0 labels
		}
		ticks = append(ticks, v)
	}
	return ticks
}
