// Package document defines the persisted design file and the tool/style
// defaults new objects are created with.
package document

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/inamate/canvas/internal/camera"
	"github.com/inamate/canvas/internal/layers"
	"github.com/inamate/canvas/internal/scene"
)

// FileVersion is bumped whenever the file layout changes incompatibly.
const FileVersion = 1

const (
	DefaultWidth      = 1080
	DefaultHeight     = 1080
	DefaultBackground = "#ffffff"

	// MaxDimension bounds the document width and height.
	MaxDimension = 16384
)

var (
	ErrInvalidDesign = errors.New("invalid design file")
	ErrNotFound      = errors.New("design not found")
)

// Design is the on-disk form of one design: the full scene graph, the layer
// list, the last camera state and the defaults in effect.
type Design struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Version   int             `json:"version"`
	CreatedAt string          `json:"createdAt"`
	UpdatedAt string          `json:"updatedAt"`
	Scene     json.RawMessage `json:"scene"`
	Layers    []layers.Meta   `json:"layers"`
	Camera    camera.State    `json:"camera"`
	Defaults  Defaults        `json:"defaults"`
}

// Summary is the listing form of a design.
type Summary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UpdatedAt string `json:"updatedAt"`
}

func (d *Design) Summary() Summary {
	return Summary{ID: d.ID, Name: d.Name, UpdatedAt: d.UpdatedAt}
}

// Validate checks that the file can be opened: known version, a scene with
// a base layer, layer ids unique.
func (d *Design) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidDesign)
	}
	if d.Version > FileVersion {
		return fmt.Errorf("%w: version %d is newer than %d", ErrInvalidDesign, d.Version, FileVersion)
	}
	s, err := scene.Decode(d.Scene)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDesign, err)
	}
	if b := s.Base(); !ValidSize(b.Width, b.Height) {
		return fmt.Errorf("%w: size %vx%v outside 1-%d", ErrInvalidDesign, b.Width, b.Height, MaxDimension)
	}
	seen := make(map[string]bool, len(d.Layers))
	for _, l := range d.Layers {
		if seen[l.ID] {
			return fmt.Errorf("%w: duplicate layer %q", ErrInvalidDesign, l.ID)
		}
		seen[l.ID] = true
	}
	return nil
}

// Defaults is the style applied to newly created objects.
type Defaults struct {
	Fill        string        `json:"fill" yaml:"fill"`
	Stroke      string        `json:"stroke" yaml:"stroke"`
	StrokeWidth float64       `json:"strokeWidth" yaml:"strokeWidth"`
	Opacity     float64       `json:"opacity" yaml:"opacity"`
	FontFamily  string        `json:"fontFamily" yaml:"fontFamily"`
	FontSize    float64       `json:"fontSize" yaml:"fontSize"`
	FontWeight  string        `json:"fontWeight" yaml:"fontWeight"`
	FontStyle   string        `json:"fontStyle" yaml:"fontStyle"`
	Shadow      *scene.Shadow `json:"shadow,omitempty" yaml:"shadow,omitempty"`
	Background  string        `json:"background" yaml:"background"`
}

func DefaultDefaults() Defaults {
	return Defaults{
		Fill:        "#d9d9d9",
		Stroke:      "",
		StrokeWidth: 0,
		Opacity:     1,
		FontFamily:  "Inter",
		FontSize:    32,
		FontWeight:  "normal",
		FontStyle:   "normal",
		Background:  DefaultBackground,
	}
}

// Merge fills zero fields of d from fallback.
func (d Defaults) Merge(fallback Defaults) Defaults {
	if d.Fill == "" {
		d.Fill = fallback.Fill
	}
	if d.Stroke == "" {
		d.Stroke = fallback.Stroke
	}
	if d.StrokeWidth == 0 {
		d.StrokeWidth = fallback.StrokeWidth
	}
	if d.Opacity == 0 {
		d.Opacity = fallback.Opacity
	}
	if d.FontFamily == "" {
		d.FontFamily = fallback.FontFamily
	}
	if d.FontSize == 0 {
		d.FontSize = fallback.FontSize
	}
	if d.FontWeight == "" {
		d.FontWeight = fallback.FontWeight
	}
	if d.FontStyle == "" {
		d.FontStyle = fallback.FontStyle
	}
	if d.Shadow == nil && fallback.Shadow != nil {
		s := *fallback.Shadow
		d.Shadow = &s
	}
	if d.Background == "" {
		d.Background = fallback.Background
	}
	return d
}

// Props returns the property patch that applies the defaults to an object
// of kind k.
func (d Defaults) Props(k scene.Kind) map[string]any {
	props := map[string]any{
		"fill":        d.Fill,
		"stroke":      d.Stroke,
		"strokeWidth": d.StrokeWidth,
		"opacity":     d.Opacity,
	}
	if k == scene.KindText {
		props["fontFamily"] = d.FontFamily
		props["fontSize"] = d.FontSize
		props["fontWeight"] = d.FontWeight
		props["fontStyle"] = d.FontStyle
		if d.Shadow != nil {
			props["shadow"] = map[string]any{
				"color":   d.Shadow.Color,
				"blur":    d.Shadow.Blur,
				"offsetX": d.Shadow.OffsetX,
				"offsetY": d.Shadow.OffsetY,
			}
		}
	}
	if k == scene.KindImage {
		delete(props, "fill")
	}
	return props
}

// SizePreset is a named document size offered when creating a design.
type SizePreset struct {
	Name   string `json:"name" yaml:"name"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
}

var DefaultPresets = []SizePreset{
	{Name: "Square", Width: 1080, Height: 1080},
	{Name: "Story", Width: 1080, Height: 1920},
	{Name: "Presentation", Width: 1920, Height: 1080},
	{Name: "A4", Width: 794, Height: 1123},
}

// ValidSize reports whether a document of width x height is allowed.
func ValidSize(width, height float64) bool {
	return width > 0 && height > 0 && width <= MaxDimension && height <= MaxDimension
}

// NewEmptyDesign creates a design file holding only the base layer.
func NewEmptyDesign(id, name string, width, height int, defaults Defaults) (*Design, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if width > MaxDimension || height > MaxDimension {
		return nil, fmt.Errorf("%w: size %dx%d exceeds %d", ErrInvalidDesign, width, height, MaxDimension)
	}
	defaults = defaults.Merge(DefaultDefaults())
	s := scene.New(scene.NewBase(float64(width), float64(height), defaults.Background))
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal scene: %w", err)
	}
	return &Design{
		ID:       id,
		Name:     name,
		Version:  FileVersion,
		Scene:    data,
		Layers:   []layers.Meta{},
		Camera:   camera.State{Zoom: 1, Locked: true},
		Defaults: defaults,
	}, nil
}
