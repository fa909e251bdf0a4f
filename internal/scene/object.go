package scene

import (
	"strings"

	"github.com/inamate/canvas/internal/geom"
)

type Kind string

const (
	KindBase    Kind = "base"
	KindRect    Kind = "rect"
	KindEllipse Kind = "ellipse"
	KindText    Kind = "text"
	KindImage   Kind = "image"
	KindGroup   Kind = "group"
)

// Drawable reports whether k is a kind users can create.
func (k Kind) Drawable() bool {
	switch k {
	case KindRect, KindEllipse, KindText, KindImage, KindGroup:
		return true
	}
	return false
}

// Title is the human name used for default layer names.
func (k Kind) Title() string {
	switch k {
	case KindRect:
		return "Rectangle"
	case KindEllipse:
		return "Ellipse"
	case KindText:
		return "Text"
	case KindImage:
		return "Image"
	case KindGroup:
		return "Group"
	case KindBase:
		return "Canvas"
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

type Shadow struct {
	Color   string  `json:"color"`
	Blur    float64 `json:"blur"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// TextProps holds the text-only attributes. CharSpacing is in thousandths of an em.
type TextProps struct {
	Content         string  `json:"content"`
	FontFamily      string  `json:"fontFamily"`
	FontSize        float64 `json:"fontSize"`
	FontWeight      string  `json:"fontWeight"`
	FontStyle       string  `json:"fontStyle"`
	Underline       bool    `json:"underline"`
	TextAlign       string  `json:"textAlign"`
	LineHeight      float64 `json:"lineHeight"`
	CharSpacing     float64 `json:"charSpacing"`
	BackgroundColor string  `json:"backgroundColor,omitempty"`
	Shadow          *Shadow `json:"shadow,omitempty"`
}

type ImageProps struct {
	Src           string `json:"src"`
	NaturalWidth  int    `json:"naturalWidth"`
	NaturalHeight int    `json:"naturalHeight"`
}

// Controls are the interactive decorations drawn around a selected object.
// They are never serialized and must be reapplied after a reload.
type Controls struct {
	BorderColor        string
	CornerColor        string
	CornerSize         float64
	TransparentCorners bool
}

// DefaultControls is the decoration set applied to every user object.
var DefaultControls = Controls{
	BorderColor: "#0d99ff",
	CornerColor: "#ffffff",
	CornerSize:  10,
}

// Object is a single drawable in the scene. Geometry is expressed in
// unscaled width/height plus scale, rotated about the top-left corner.
type Object struct {
	Kind    Kind   `json:"type"`
	LayerID string `json:"layerId,omitempty"`

	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	ScaleX float64 `json:"scaleX"`
	ScaleY float64 `json:"scaleY"`
	Angle  float64 `json:"angle"`

	Fill        string  `json:"fill"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
	Opacity     float64 `json:"opacity"`

	Visible    bool `json:"visible"`
	Selectable bool `json:"selectable"`
	Evented    bool `json:"evented"`

	Text     *TextProps  `json:"text,omitempty"`
	Image    *ImageProps `json:"image,omitempty"`
	Children []*Object   `json:"objects,omitempty"`

	Controls Controls `json:"-"`
	Editing  bool     `json:"-"`
}

// NewObject returns an interactive object of the given kind with neutral defaults.
func NewObject(kind Kind) *Object {
	o := &Object{
		Kind:       kind,
		ScaleX:     1,
		ScaleY:     1,
		Opacity:    1,
		Visible:    true,
		Selectable: true,
		Evented:    true,
		Controls:   DefaultControls,
	}
	if kind == KindText {
		o.Text = &TextProps{
			FontFamily: "Inter",
			FontSize:   32,
			FontWeight: "normal",
			FontStyle:  "normal",
			TextAlign:  "left",
			LineHeight: 1.16,
		}
	}
	if kind == KindImage {
		o.Image = &ImageProps{}
	}
	return o
}

// NewBase returns the document background rectangle.
func NewBase(width, height float64, fill string) *Object {
	return &Object{
		Kind:    KindBase,
		Width:   width,
		Height:  height,
		ScaleX:  1,
		ScaleY:  1,
		Fill:    fill,
		Opacity: 1,
		Visible: true,
	}
}

// IsBase reports whether o is the document background.
func (o *Object) IsBase() bool { return o != nil && o.Kind == KindBase }

// Transform returns the object's local-to-parent matrix.
func (o *Object) Transform() geom.Matrix2D {
	return geom.ObjectTransform(o.Left, o.Top, o.ScaleX, o.ScaleY, o.Angle)
}

// ScaledSize returns the on-canvas size before rotation.
func (o *Object) ScaledSize() (float64, float64) {
	return o.Width * o.ScaleX, o.Height * o.ScaleY
}

// Bounds returns the axis-aligned bounding box in parent coordinates.
func (o *Object) Bounds() geom.Rect {
	return o.Transform().TransformRect(geom.Rect{Width: o.Width, Height: o.Height})
}

// ContainsPoint reports whether (x, y) in parent coordinates falls inside the
// object's rotated frame.
func (o *Object) ContainsPoint(x, y float64) bool {
	lx, ly := o.Transform().Invert().TransformPoint(x, y)
	if o.Kind == KindEllipse {
		rx, ry := o.Width/2, o.Height/2
		if rx <= 0 || ry <= 0 {
			return false
		}
		dx, dy := (lx-rx)/rx, (ly-ry)/ry
		return dx*dx+dy*dy <= 1
	}
	return lx >= 0 && lx <= o.Width && ly >= 0 && ly <= o.Height
}

// MoveBy translates the object.
func (o *Object) MoveBy(dx, dy float64) {
	o.Left += dx
	o.Top += dy
}

// ApplyControls reapplies the selection decorations and the interactive
// flags implied by the layer state.
func (o *Object) ApplyControls(c Controls) {
	if o.IsBase() {
		o.Selectable = false
		o.Evented = false
		return
	}
	o.Controls = c
	for _, child := range o.Children {
		child.Controls = c
	}
}

// Clone returns a deep copy of o, including children.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	c := *o
	if o.Text != nil {
		t := *o.Text
		if o.Text.Shadow != nil {
			s := *o.Text.Shadow
			t.Shadow = &s
		}
		c.Text = &t
	}
	if o.Image != nil {
		img := *o.Image
		c.Image = &img
	}
	if len(o.Children) > 0 {
		c.Children = make([]*Object, len(o.Children))
		for i, child := range o.Children {
			c.Children[i] = child.Clone()
		}
	}
	c.Editing = false
	return &c
}

// Fit resizes the object so that its scaled, unrotated frame covers r.
func (o *Object) Fit(r geom.Rect) {
	o.Left, o.Top = r.X, r.Y
	o.Width, o.Height = r.Width, r.Height
	o.ScaleX, o.ScaleY = 1, 1
	o.Angle = 0
}

// Relayout recomputes the intrinsic size of text objects from their content.
func (o *Object) Relayout() {
	if o.Kind != KindText || o.Text == nil {
		return
	}
	o.Width, o.Height = MeasureText(o.Text)
}

// MeasureText estimates the box of a text block from its font metrics.
// Glyph advance is approximated at 0.6em, which matches the sans fonts the
// editor ships with closely enough for layout and hit testing.
func MeasureText(t *TextProps) (float64, float64) {
	lines := strings.Split(t.Content, "\n")
	longest := 0
	for _, l := range lines {
		if n := len([]rune(l)); n > longest {
			longest = n
		}
	}
	size := t.FontSize
	if size <= 0 {
		size = 16
	}
	lh := t.LineHeight
	if lh <= 0 {
		lh = 1.16
	}
	advance := size*0.6 + size*t.CharSpacing/1000
	width := float64(longest) * advance
	if width < size/2 {
		width = size / 2
	}
	return width, float64(len(lines)) * size * lh
}
