// Package export renders a scene to JSON, SVG, PNG or JPEG. Every format is
// bounded to the base layer and ignores the camera.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/inamate/canvas/internal/geom"
	"github.com/inamate/canvas/internal/scene"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrNoBase            = errors.New("scene has no base layer")
	ErrTooLarge          = errors.New("export too large")
)

// ParseFormat accepts a format name or file extension, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "json":
		return FormatJSON, nil
	case "svg":
		return FormatSVG, nil
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	}
	return "application/octet-stream"
}

func (f Format) Extension() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	return "." + string(f)
}

type Options struct {
	// Scale multiplies the raster output size. Zero means 1.
	Scale float64
	// Quality is the JPEG quality, 1-100. Zero means 92.
	Quality int
	// Background fills transparent pixels in formats without alpha.
	Background string
}

func (o Options) withDefaults() Options {
	if o.Scale <= 0 {
		o.Scale = 1
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = 92
	}
	if o.Background == "" {
		o.Background = "#ffffff"
	}
	return o
}

// Boundary returns the document rectangle, which is the base layer's frame.
func Boundary(s *scene.Scene) (geom.Rect, error) {
	b := s.Base()
	if b == nil {
		return geom.Rect{}, ErrNoBase
	}
	return b.Bounds(), nil
}

// Render exports s in format f.
func Render(s *scene.Scene, f Format, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	switch f {
	case FormatJSON:
		data, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("marshal scene: %w", err)
		}
		return data, nil
	case FormatSVG:
		return SVG(s)
	case FormatPNG, FormatJPEG:
		return Raster(s, f, opts)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}
