package document

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/inamate/canvas/internal/camera"
	"github.com/inamate/canvas/internal/layers"
	"github.com/inamate/canvas/internal/scene"
)

// NewSampleDesign returns a small poster used for first-run and demos: a
// background, two shapes and a headline.
func NewSampleDesign(id string) (*Design, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	defaults := DefaultDefaults()
	defaults.Background = "#1a1a2e"

	s := scene.New(scene.NewBase(1280, 720, defaults.Background))
	reg := layers.NewRegistry(s)

	add := func(kind scene.Kind, name string, props map[string]any) {
		o := scene.NewObject(kind)
		o.Apply(props)
		s.Add(o)
		reg.Add(layers.Layer{Object: o, Name: name})
	}

	add(scene.KindRect, "Card", map[string]any{
		"left": 140.0, "top": 160.0, "width": 420.0, "height": 400.0,
		"fill": "#16213e", "stroke": "#0f3460", "strokeWidth": 4.0,
	})
	add(scene.KindEllipse, "Sun", map[string]any{
		"left": 760.0, "top": 180.0, "width": 320.0, "height": 320.0,
		"fill": "#e94560",
	})
	add(scene.KindText, "Headline", map[string]any{
		"left": 180.0, "top": 220.0, "text": "Hello,\ncanvas", "fontSize": 64.0,
		"fontWeight": "bold", "fill": "#ffffff",
	})
	reg.Select("")

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal sample scene: %w", err)
	}
	return &Design{
		ID:        id,
		Name:      "Sample poster",
		Version:   FileVersion,
		CreatedAt: now,
		UpdatedAt: now,
		Scene:     data,
		Layers:    reg.Metadata(),
		Camera:    camera.State{Zoom: 1, Locked: true},
		Defaults:  defaults,
	}, nil
}
