package raster

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
)

const (
	ImagePNG  Format = "png"
	ImageJPEG Format = "jpeg"
)

// Format is an output image encoding.
type Format string

var validFormats = map[Format]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

// ParseFormat validates a format name, accepting "jpg" for JPEG.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(s))
	if f == "jpg" {
		f = ImageJPEG
	}
	if _, ok := validFormats[f]; !ok {
		return "", fmt.Errorf("invalid image format: %s", s)
	}
	return f, nil
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, format Format) error {
	switch format {
	case ImagePNG:
		return png.Encode(w, img)
	case ImageJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 98})
	default:
		return fmt.Errorf("invalid image format: %s", format)
	}
}
