package scene

import (
	"encoding/json"
	"strings"

	"github.com/inamate/canvas/internal/geom"
)

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["C", x1, y1, x2, y2, x, y], ["Z"].
type PathCommand []any

// DrawCommand represents a single drawing operation for a renderer to execute.
type DrawCommand struct {
	Op          string        `json:"op"`                    // "path", "text", "image"
	LayerID     string        `json:"layerId,omitempty"`     // For hit correlation
	Kind        Kind          `json:"kind,omitempty"`        // Source object kind
	Transform   []float64     `json:"transform,omitempty"`   // [a, b, c, d, e, f] affine matrix
	Path        []PathCommand `json:"path,omitempty"`        // Path data for "path" ops
	Fill        string        `json:"fill,omitempty"`        // Fill color
	Stroke      string        `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64       `json:"strokeWidth,omitempty"` // Stroke width
	Opacity     float64       `json:"opacity"`               // Global alpha
	Width       float64       `json:"width,omitempty"`       // Local frame width
	Height      float64       `json:"height,omitempty"`      // Local frame height
	Text        *TextProps    `json:"text,omitempty"`        // Text block for "text" ops
	Lines       []string      `json:"lines,omitempty"`       // Text split into lines
	ImageSrc    string        `json:"imageSrc,omitempty"`    // Image source for "image" ops

	matrix geom.Matrix2D
}

// Matrix returns the command's world transform.
func (c DrawCommand) Matrix() geom.Matrix2D { return c.matrix }

// Compile generates a draw command buffer from the scene, back to front.
// Hidden objects are skipped.
func Compile(s *Scene) []DrawCommand {
	if s == nil {
		return nil
	}
	var commands []DrawCommand
	for _, o := range s.objects {
		compileObject(o, geom.Identity(), 1.0, o.LayerID, &commands)
	}
	return commands
}

// CompileObject emits the commands for a single object in world space.
// Used for transient overlays such as drawing previews.
func CompileObject(o *Object) []DrawCommand {
	var commands []DrawCommand
	compileObject(o, geom.Identity(), 1.0, o.LayerID, &commands)
	return commands
}

func compileObject(o *Object, parent geom.Matrix2D, parentOpacity float64, layerID string, commands *[]DrawCommand) {
	if o == nil || !o.Visible {
		return
	}

	world := parent.Multiply(o.Transform())
	opacity := parentOpacity * o.Opacity

	base := DrawCommand{
		LayerID:     layerID,
		Kind:        o.Kind,
		Transform:   world.ToSlice(),
		Fill:        o.Fill,
		Stroke:      o.Stroke,
		StrokeWidth: o.StrokeWidth,
		Opacity:     opacity,
		Width:       o.Width,
		Height:      o.Height,
		matrix:      world,
	}

	switch o.Kind {
	case KindBase, KindRect:
		cmd := base
		cmd.Op = "path"
		cmd.Path = RectPath(o.Width, o.Height)
		*commands = append(*commands, cmd)

	case KindEllipse:
		cmd := base
		cmd.Op = "path"
		cmd.Path = EllipsePath(o.Width/2, o.Height/2)
		*commands = append(*commands, cmd)

	case KindText:
		if o.Text == nil {
			return
		}
		cmd := base
		cmd.Op = "text"
		t := *o.Text
		cmd.Text = &t
		cmd.Lines = strings.Split(t.Content, "\n")
		*commands = append(*commands, cmd)

	case KindImage:
		if o.Image == nil || o.Image.Src == "" {
			return
		}
		cmd := base
		cmd.Op = "image"
		cmd.ImageSrc = o.Image.Src
		*commands = append(*commands, cmd)

	case KindGroup:
		for _, child := range o.Children {
			compileObject(child, world, opacity, layerID, commands)
		}
	}
}

// RectPath generates path commands for a rectangle anchored at the origin.
func RectPath(w, h float64) []PathCommand {
	return []PathCommand{
		{"M", 0.0, 0.0},
		{"L", w, 0.0},
		{"L", w, h},
		{"L", 0.0, h},
		{"Z"},
	}
}

// EllipsePath generates path commands for an ellipse whose bounding box is
// anchored at the origin, using four cubic bezier arcs.
func EllipsePath(rx, ry float64) []PathCommand {
	// k = 4 * (sqrt(2) - 1) / 3
	k := 0.5522847498
	kx, ky := rx*k, ry*k
	cx, cy := rx, ry

	return []PathCommand{
		{"M", cx + rx, cy},
		{"C", cx + rx, cy + ky, cx + kx, cy + ry, cx, cy + ry},
		{"C", cx - kx, cy + ry, cx - rx, cy + ky, cx - rx, cy},
		{"C", cx - rx, cy - ky, cx - kx, cy - ry, cx, cy - ry},
		{"C", cx + kx, cy - ry, cx + rx, cy - ky, cx + rx, cy},
		{"Z"},
	}
}

// PathNumber reads the i-th numeric operand of a path command.
func PathNumber(cmd PathCommand, i int) float64 {
	if i >= len(cmd) {
		return 0
	}
	v, _ := toFloat64(cmd[i])
	return v
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		commands = []DrawCommand{}
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// SelectionBounds returns the combined bounding box of the given objects.
func SelectionBounds(objs []*Object) geom.Rect {
	var result geom.Rect
	for _, o := range objs {
		b := o.Bounds()
		if b.IsEmpty() {
			continue
		}
		result = result.Union(b)
	}
	return result
}
