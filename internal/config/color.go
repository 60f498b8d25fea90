package config

import (
	"fmt"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/flightplot/internal/render"
)

// Color is an sRGB colour with straight alpha, written as #rrggbb or
// #rrggbbaa.
type Color struct {
	R, G, B, A float64
}

// ParseColor parses a #rrggbb or #rrggbbaa hex colour.
func ParseColor(s string) (Color, error) {
	if len(s) != 7 && len(s) != 9 {
		return Color{}, fmt.Errorf("invalid colour %q: expected #rrggbb or #rrggbbaa", s)
	}

	c, err := colorful.Hex(s[:7])
	if err != nil {
		return Color{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}

	alpha := 1.0
	if len(s) == 9 {
		a, err := strconv.ParseUint(s[7:], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("invalid colour alpha %q: %w", s, err)
		}
		alpha = float64(a) / 255
	}
	return Color{R: c.R, G: c.G, B: c.B, A: alpha}, nil
}

func (c *Color) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseColor(value.Value)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	a = uint32(c.A*0xffff + 0.5)
	r = uint32(c.R*c.A*0xffff + 0.5)
	g = uint32(c.G*c.A*0xffff + 0.5)
	b = uint32(c.B*c.A*0xffff + 0.5)
	return
}

// Render converts the colour for the renderer.
func (c Color) Render() render.Color {
	return render.Color{float32(c.R), float32(c.G), float32(c.B), float32(c.A)}
}
