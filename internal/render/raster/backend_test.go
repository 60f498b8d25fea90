package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/roman-kulish/flightplot/internal/bounds"
	"github.com/roman-kulish/flightplot/internal/channel"
	"github.com/roman-kulish/flightplot/internal/render"
)

var red = color.RGBA{R: 0xff, A: 0xff}

func renderAlt(t *testing.T, samples []channel.Sample, mode render.Mode) *image.RGBA {
	t.Helper()

	reg := channel.NewRegistry()
	if err := reg.GetOrCreate("alt").Append(samples); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, 11, 11))
	backend := NewBackend(img, WithBackground(color.White))
	r, err := render.NewPlotRenderer(reg, backend)
	if err != nil {
		t.Fatalf("NewPlotRenderer failed: %v", err)
	}

	report := r.RenderFrame([]render.PlotSpec{{
		Topics:    []render.TopicStyle{{Topic: "alt", Color: render.Color{1, 0, 0, 1}}},
		Mode:      mode,
		PointSize: 1,
		Viewport:  img.Bounds(),
	}})
	if err := report.Err(); err != nil {
		t.Fatalf("RenderFrame failed: %v", err)
	}
	return img
}

func TestBackend_LineCorners(t *testing.T) {
	img := renderAlt(t, []channel.Sample{{Time: 0, Value: 1}, {Time: 1, Value: 3}, {Time: 2, Value: 2}}, render.ModeLine)

	// clip (-1,-1) is bottom left, (0,1) top centre, (1,0) right middle
	for _, p := range []image.Point{{0, 10}, {5, 0}, {10, 5}} {
		if got := img.RGBAAt(p.X, p.Y); got != red {
			t.Errorf("Expected series colour at %v, got %v", p, got)
		}
	}
	if got := img.RGBAAt(0, 0); got != (color.RGBA{0xff, 0xff, 0xff, 0xff}) {
		t.Errorf("Expected background at top left, got %v", got)
	}
}

func TestBackend_PointsAreNotConnected(t *testing.T) {
	img := renderAlt(t, []channel.Sample{{Time: 0, Value: 0}, {Time: 1, Value: 1}}, render.ModePoints)

	if img.RGBAAt(0, 10) != red || img.RGBAAt(10, 0) != red {
		t.Errorf("Expected both points drawn")
	}
	if img.RGBAAt(5, 5) == red {
		t.Errorf("Expected no line between points")
	}
}

func TestBackend_SingleSampleAtCentre(t *testing.T) {
	img := renderAlt(t, []channel.Sample{{Time: 4, Value: 4}}, render.ModePoints)
	if img.RGBAAt(5, 5) != red {
		t.Errorf("Expected single sample at the centre pixel")
	}
}

func TestBackend_ReleasedBuffer(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	b := NewBackend(img)
	buf, err := b.Upload([]float32{0, 0, 1, 1})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	buf.Release()

	u, _ := render.ComputeUniforms(bounds.Bounds{MinTime: 0, MaxTime: 1, MinValue: 0, MaxValue: 1}, render.Color{1, 1, 1, 1}, 1)
	if err := b.Draw(render.DrawCall{Viewport: img.Bounds(), Buffer: buf, Uniforms: u, Count: 2}); err == nil {
		t.Errorf("Expected drawing a released buffer to fail")
	}
}

func TestBackend_UploadRejectsOddData(t *testing.T) {
	if _, err := NewBackend(image.NewRGBA(image.Rect(0, 0, 1, 1))).Upload([]float32{1}); err == nil {
		t.Errorf("Expected odd length data to be rejected")
	}
}

func TestAnnotator(t *testing.T) {
	ann, err := NewAnnotator(color.Black, color.White)
	if err != nil {
		t.Fatalf("NewAnnotator failed: %v", err)
	}
	defer ann.Close()

	img := image.NewRGBA(image.Rect(0, 0, 320, 200))
	latest := float32(12.5)
	tile := TileInfo{
		Title:  "altitude",
		Area:   PlotArea(img.Bounds()),
		Bounds: bounds.Bounds{MinTime: 0, MaxTime: 60, MinValue: -5, MaxValue: 20},
		Legend: []LegendEntry{{Topic: "gps/alt", Color: render.PaletteColor(0), Value: &latest}},
	}
	ann.Grid(img, tile)
	if err := ann.Annotate(img, tile); err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, img, ImagePNG); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if _, err := png.Decode(&buf); err != nil {
		t.Errorf("Expected a valid PNG: %v", err)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		v, step float64
		want    string
	}{
		{1500, 500, "1,500"},
		{0.5, 0.1, "0.5"},
		{2, 0.25, "2"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.v, tt.step); got != tt.want {
			t.Errorf("FormatValue(%v, %v): expected %q, got %q", tt.v, tt.step, tt.want, got)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"png": ImagePNG, "JPG": ImageJPEG, "jpeg": ImageJPEG} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q): expected %v, got %v (%v)", in, want, got, err)
		}
	}
	if _, err := ParseFormat("gif"); err == nil {
		t.Errorf("Expected gif to be rejected")
	}
}
