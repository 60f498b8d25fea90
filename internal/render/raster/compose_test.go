package raster

import (
	"image"
	"image/color"
	"testing"

	"github.com/roman-kulish/flightplot/internal/bounds"
	"github.com/roman-kulish/flightplot/internal/channel"
	"github.com/roman-kulish/flightplot/internal/render"
)

func TestComposer(t *testing.T) {
	reg := channel.NewRegistry()
	err := reg.GetOrCreate("alt").Append([]channel.Sample{{Time: 0, Value: 0}, {Time: 10, Value: 100}})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, 320, 200))
	c, err := NewComposer(reg, img, color.Black, color.White)
	if err != nil {
		t.Fatalf("NewComposer failed: %v", err)
	}
	defer c.Close()

	specs := []render.PlotSpec{{
		Title:    "altitude",
		Topics:   []render.TopicStyle{{Topic: "alt", Color: render.Color{1, 0, 0, 1}}, {Topic: "roll"}},
		Viewport: PlotArea(img.Bounds()),
	}}

	report, err := c.Compose(specs)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if report.Tiles[0].Drawn != 1 {
		t.Errorf("Expected one series drawn, got %d", report.Tiles[0].Drawn)
	}

	if len(c.previous) != 1 {
		t.Fatalf("Expected tile info to be kept for the next frame")
	}
	tile := c.previous[0]
	if tile.Legend[0].Value == nil || *tile.Legend[0].Value != 100 {
		t.Errorf("Expected value 100, got %v", tile.Legend[0].Value)
	}
	if tile.Legend[1].Value != nil {
		t.Errorf("Expected no value for an unknown topic")
	}

	// the series runs from the bottom left to the top right of the plot area
	area := specs[0].Viewport
	if got := img.RGBAAt(area.Min.X, area.Max.Y-1); got != red {
		t.Errorf("Expected series at the bottom left corner, got %v", got)
	}

	if _, err = c.Compose(specs); err != nil {
		t.Fatalf("second Compose failed: %v", err)
	}
	if got := img.RGBAAt(area.Min.X, area.Max.Y-1); got != red {
		t.Errorf("Expected series over the grid, got %v", got)
	}
}

func TestComposer_ReadoutAtRightEdge(t *testing.T) {
	reg := channel.NewRegistry()
	err := reg.GetOrCreate("alt").Append([]channel.Sample{{Time: 0, Value: 0}, {Time: 4, Value: 40}, {Time: 10, Value: 100}})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, 320, 200))
	c, err := NewComposer(reg, img, color.Black, color.White)
	if err != nil {
		t.Fatalf("NewComposer failed: %v", err)
	}
	defer c.Close()

	tests := []struct {
		name    string
		readout channel.Interpolation
		want    float32
	}{
		{name: "previous", readout: channel.Previous, want: 40},
		{name: "linear", readout: channel.Linear, want: 60},
		{name: "next", readout: channel.Next, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			specs := []render.PlotSpec{{
				Topics:       []render.TopicStyle{{Topic: "alt"}},
				AxisOverride: &bounds.Bounds{MinTime: 0, MaxTime: 6, MinValue: 0, MaxValue: 100},
				Readout:      tt.readout,
				Viewport:     PlotArea(img.Bounds()),
			}}

			if _, err := c.Compose(specs); err != nil {
				t.Fatalf("Compose failed: %v", err)
			}
			got := c.previous[0].Legend[0].Value
			if got == nil || *got != tt.want {
				t.Errorf("Expected value %v at the axis end, got %v", tt.want, got)
			}
		})
	}
}
