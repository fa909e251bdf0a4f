package agent

import (
	"encoding/json"
	"fmt"

	"github.com/inamate/canvas/internal/design"
	"github.com/inamate/canvas/internal/geom"
	"github.com/inamate/canvas/internal/scene"
)

type toolSpec struct {
	name        string
	description string
	schema      string
	run         func(m *design.Manager, args json.RawMessage) Result
}

// catalog is the fixed tool surface.
var catalog = []toolSpec{
	{"get_canvas_bounds", "Return the document position and size.", schemaEmpty, getCanvasBounds},
	{"get_active_object", "Return the properties of the selected object.", schemaEmpty, getActiveObject},
	{"get_all_objects", "Return every layer and its object, bottom to top.", schemaEmpty, getAllObjects},
	{"get_history_state", "Return undo/redo availability.", schemaEmpty, getHistoryState},
	{"create_rectangle", "Create a rectangle at (x, y).", schemaShape, createShape(scene.KindRect)},
	{"create_ellipse", "Create an ellipse whose bounding box starts at (x, y).", schemaShape, createShape(scene.KindEllipse)},
	{"create_text", "Create a text object at (x, y).", schemaText, createText},
	{"update_active_object", "Patch properties of the selected object.", schemaUpdate, updateActiveObject},
	{"move_object", "Move the selected object to (x, y), or by (x, y) when relative.", schemaMove, moveObject},
	{"scale_object", "Set or multiply the scale of the selected object.", schemaScale, scaleObject},
	{"rotate_object", "Set or add to the rotation of the selected object, in degrees.", schemaRotate, rotateObject},
	{"set_background_color", "Change the document background colour.", schemaColor, setBackgroundColor},
	{"select_object", "Select a layer by name or by index (0 is the bottom layer).", schemaSelect, selectObject},
	{"delete_object", "Delete the selected objects.", schemaEmpty, deleteObject},
	{"duplicate_object", "Duplicate the selected object, offset by 20 units.", schemaEmpty, duplicateObject},
	{"group_objects", "Group the selected objects.", schemaEmpty, groupObjects},
	{"ungroup_object", "Dissolve the selected group.", schemaEmpty, ungroupObject},
	{"bring_to_front", "Move the selected object to the top of the stack.", schemaEmpty, bringToFront},
	{"send_to_back", "Move the selected object to the bottom of the stack.", schemaEmpty, sendToBack},
	{"align_objects", "Align the selection, or a single object to the document.", schemaAlign, alignObjects},
	{"distribute_objects", "Space three or more selected objects evenly.", schemaDistribute, distributeObjects},
	{"zoom_in", "Zoom the view in one step.", schemaEmpty, zoom((*design.Manager).ZoomIn, "zoomed in")},
	{"zoom_out", "Zoom the view out one step.", schemaEmpty, zoom((*design.Manager).ZoomOut, "zoomed out")},
	{"reset_zoom", "Fit the document in the view.", schemaEmpty, zoom((*design.Manager).ResetZoom, "zoom reset")},
	{"pan_canvas", "Pan the view by a screen delta.", schemaPan, panCanvas},
	{"undo", "Undo the last change.", schemaEmpty, undo},
	{"redo", "Redo the last undone change.", schemaEmpty, redo},
}

func decode[T any](args json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(args, &v)
	return v, err
}

func getCanvasBounds(m *design.Manager, _ json.RawMessage) Result {
	b, live := m.Bounds()
	if !live {
		return fail("no active design")
	}
	return ok(fmt.Sprintf("canvas is %gx%g", b.Width, b.Height), b)
}

func getActiveObject(m *design.Manager, _ json.RawMessage) Result {
	info, found := m.ActiveObject()
	if !found {
		return fail("no object selected")
	}
	return ok(fmt.Sprintf("selected %s", info.Name), info)
}

func getAllObjects(m *design.Manager, _ json.RawMessage) Result {
	objs := m.Objects()
	return ok(fmt.Sprintf("%d objects", len(objs)), objs)
}

func getHistoryState(m *design.Manager, _ json.RawMessage) Result {
	st := m.HistoryState()
	return ok(fmt.Sprintf("canUndo=%t canRedo=%t", st.CanUndo, st.CanRedo), st)
}

type shapeArgs struct {
	X           float64  `json:"x"`
	Y           float64  `json:"y"`
	Width       float64  `json:"width"`
	Height      float64  `json:"height"`
	Fill        *string  `json:"fill"`
	Stroke      *string  `json:"stroke"`
	StrokeWidth *float64 `json:"strokeWidth"`
	Opacity     *float64 `json:"opacity"`
	Angle       *float64 `json:"angle"`
}

func (a shapeArgs) style() map[string]any {
	style := map[string]any{}
	if a.Fill != nil {
		style["fill"] = *a.Fill
	}
	if a.Stroke != nil {
		style["stroke"] = *a.Stroke
	}
	if a.StrokeWidth != nil {
		style["strokeWidth"] = *a.StrokeWidth
	}
	if a.Opacity != nil {
		style["opacity"] = *a.Opacity
	}
	if a.Angle != nil {
		style["angle"] = *a.Angle
	}
	return style
}

func createShape(kind scene.Kind) func(*design.Manager, json.RawMessage) Result {
	return func(m *design.Manager, raw json.RawMessage) Result {
		a, err := decode[shapeArgs](raw)
		if err != nil {
			return fail("create %s: %v", kind, err)
		}
		r := geom.Rect{X: a.X, Y: a.Y, Width: a.Width, Height: a.Height}
		id, created := m.CreateShape(kind, r, a.style())
		if !created {
			return fail("could not create %s", kind)
		}
		info, _ := m.Object(id)
		return ok(fmt.Sprintf("created %s %q", kind, info.Name), info)
	}
}

type textArgs struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Text       string  `json:"text"`
	Fill       string  `json:"fill"`
	FontSize   float64 `json:"fontSize"`
	FontFamily string  `json:"fontFamily"`
	FontWeight string  `json:"fontWeight"`
	FontStyle  string  `json:"fontStyle"`
	TextAlign  string  `json:"textAlign"`
	Underline  bool    `json:"underline"`
}

func createText(m *design.Manager, raw json.RawMessage) Result {
	a, err := decode[textArgs](raw)
	if err != nil {
		return fail("create text: %v", err)
	}
	style := map[string]any{}
	for k, v := range map[string]string{
		"fill":       a.Fill,
		"fontFamily": a.FontFamily,
		"fontWeight": a.FontWeight,
		"fontStyle":  a.FontStyle,
		"textAlign":  a.TextAlign,
	} {
		if v != "" {
			style[k] = v
		}
	}
	if a.FontSize > 0 {
		style["fontSize"] = a.FontSize
	}
	if a.Underline {
		style["underline"] = true
	}
	id, created := m.CreateText(geom.Point{X: a.X, Y: a.Y}, a.Text, style)
	if !created {
		return fail("could not create text")
	}
	m.ExitEditing()
	info, _ := m.Object(id)
	return ok(fmt.Sprintf("created text %q", info.Name), info)
}

func updateActiveObject(m *design.Manager, raw json.RawMessage) Result {
	a, err := decode[struct {
		Properties map[string]any `json:"properties"`
	}](raw)
	if err != nil {
		return fail("update: %v", err)
	}
	if _, selected := m.ActiveObject(); !selected {
		return fail("no object selected")
	}
	if !m.UpdateSelected(a.Properties) {
		return fail("no property changed")
	}
	info, _ := m.ActiveObject()
	return ok("updated "+info.Name, info)
}

// num reads a numeric property of a queried object.
func num(info design.ObjectInfo, key string) float64 {
	v, _ := info.Props[key].(float64)
	return v
}

// patchActive reads the selected object, builds a patch from it and applies it.
func patchActive(m *design.Manager, verb string, build func(design.ObjectInfo) map[string]any) Result {
	info, selected := m.ActiveObject()
	if !selected {
		return fail("no object selected")
	}
	if !m.UpdateSelected(build(info)) {
		return fail("%s: nothing changed", verb)
	}
	info, _ = m.ActiveObject()
	return ok(fmt.Sprintf("%s %s", verb, info.Name), info)
}

func moveObject(m *design.Manager, raw json.RawMessage) Result {
	a, err := decode[struct {
		X        *float64 `json:"x"`
		Y        *float64 `json:"y"`
		Relative bool     `json:"relative"`
	}](raw)
	if err != nil {
		return fail("move: %v", err)
	}
	return patchActive(m, "moved", func(info design.ObjectInfo) map[string]any {
		patch := map[string]any{}
		if a.X != nil {
			x := *a.X
			if a.Relative {
				x += num(info, "left")
			}
			patch["left"] = x
		}
		if a.Y != nil {
			y := *a.Y
			if a.Relative {
				y += num(info, "top")
			}
			patch["top"] = y
		}
		return patch
	})
}

func scaleObject(m *design.Manager, raw json.RawMessage) Result {
	a, err := decode[struct {
		Scale    float64 `json:"scale"`
		ScaleX   float64 `json:"scaleX"`
		ScaleY   float64 `json:"scaleY"`
		Relative bool    `json:"relative"`
	}](raw)
	if err != nil {
		return fail("scale: %v", err)
	}
	sx, sy := a.ScaleX, a.ScaleY
	if a.Scale > 0 {
		sx, sy = a.Scale, a.Scale
	}
	if sx < 0 || sy < 0 || (sx == 0 && sy == 0) {
		return fail("scale must be positive")
	}
	return patchActive(m, "scaled", func(info design.ObjectInfo) map[string]any {
		patch := map[string]any{}
		if sx > 0 {
			if a.Relative {
				sx *= num(info, "scaleX")
			}
			patch["scaleX"] = sx
		}
		if sy > 0 {
			if a.Relative {
				sy *= num(info, "scaleY")
			}
			patch["scaleY"] = sy
		}
		return patch
	})
}

func rotateObject(m *design.Manager, raw json.RawMessage) Result {
	a, err := decode[struct {
		Angle    float64 `json:"angle"`
		Relative bool    `json:"relative"`
	}](raw)
	if err != nil {
		return fail("rotate: %v", err)
	}
	return patchActive(m, "rotated", func(info design.ObjectInfo) map[string]any {
		angle := a.Angle
		if a.Relative {
			angle += num(info, "angle")
		}
		return map[string]any{"angle": angle}
	})
}

func setBackgroundColor(m *design.Manager, raw json.RawMessage) Result {
	a, err := decode[struct {
		Color string `json:"color"`
	}](raw)
	if err != nil {
		return fail("background: %v", err)
	}
	if !m.SetBackground(a.Color) {
		return fail("background is already %s", a.Color)
	}
	return ok("background set to "+a.Color, nil)
}

func selectObject(m *design.Manager, raw json.RawMessage) Result {
	a, err := decode[struct {
		Name  *string `json:"name"`
		Index *int    `json:"index"`
	}](raw)
	if err != nil {
		return fail("select: %v", err)
	}
	objs := m.Objects()
	var target *design.ObjectInfo
	switch {
	case a.Name != nil:
		for i := len(objs) - 1; i >= 0; i-- {
			if objs[i].Name == *a.Name {
				target = &objs[i]
				break
			}
		}
		if target == nil {
			return fail("no layer named %q", *a.Name)
		}
	case a.Index != nil:
		if *a.Index >= len(objs) {
			return fail("index %d out of range (%d layers)", *a.Index, len(objs))
		}
		target = &objs[*a.Index]
	}
	if !m.SelectLayer(target.LayerID) {
		return fail("could not select %q", target.Name)
	}
	if target.Locked || !target.Visible {
		return ok(fmt.Sprintf("marked %s selected; it is locked or hidden", target.Name), target)
	}
	return ok("selected "+target.Name, target)
}

func deleteObject(m *design.Manager, _ json.RawMessage) Result {
	n := len(m.Selection())
	if !m.RemoveSelected() {
		return fail("no object selected")
	}
	return ok(fmt.Sprintf("deleted %d objects", n), nil)
}

func duplicateObject(m *design.Manager, _ json.RawMessage) Result {
	id, done := m.DuplicateActive()
	if !done {
		return fail("select a single object to duplicate")
	}
	info, _ := m.Object(id)
	return ok("created "+info.Name, info)
}

func groupObjects(m *design.Manager, _ json.RawMessage) Result {
	id, done := m.Group()
	if !done {
		return fail("select at least two objects to group")
	}
	info, _ := m.Object(id)
	return ok("grouped into "+info.Name, info)
}

func ungroupObject(m *design.Manager, _ json.RawMessage) Result {
	ids, done := m.Ungroup()
	if !done {
		return fail("select a group to ungroup")
	}
	return ok(fmt.Sprintf("ungrouped %d objects", len(ids)), ids)
}

func bringToFront(m *design.Manager, _ json.RawMessage) Result {
	if _, selected := m.ActiveObject(); !selected {
		return fail("no object selected")
	}
	if !m.BringToFront("") {
		return fail("object is already at the front")
	}
	return ok("brought to front", nil)
}

func sendToBack(m *design.Manager, _ json.RawMessage) Result {
	if _, selected := m.ActiveObject(); !selected {
		return fail("no object selected")
	}
	if !m.SendToBack("") {
		return fail("object is already at the back")
	}
	return ok("sent to back", nil)
}

func alignObjects(m *design.Manager, raw json.RawMessage) Result {
	a, err := decode[struct {
		Alignment design.Alignment `json:"alignment"`
	}](raw)
	if err != nil {
		return fail("align: %v", err)
	}
	if len(m.Selection()) == 0 {
		return fail("no object selected")
	}
	if !m.Align(a.Alignment) {
		return fail("objects are already aligned %s", a.Alignment)
	}
	return ok("aligned "+string(a.Alignment), nil)
}

func distributeObjects(m *design.Manager, raw json.RawMessage) Result {
	a, err := decode[struct {
		Direction design.Axis `json:"direction"`
	}](raw)
	if err != nil {
		return fail("distribute: %v", err)
	}
	if len(m.Selection()) < 3 {
		return fail("select at least three objects to distribute")
	}
	if !m.Distribute(a.Direction) {
		return fail("objects are already evenly distributed")
	}
	return ok("distributed "+string(a.Direction), nil)
}

func zoom(fn func(*design.Manager) bool, msg string) func(*design.Manager, json.RawMessage) Result {
	return func(m *design.Manager, _ json.RawMessage) Result {
		if !fn(m) {
			return fail("zoom is at its limit")
		}
		st := m.Camera()
		return ok(fmt.Sprintf("%s to %.0f%%", msg, st.Zoom*100), st)
	}
}

func panCanvas(m *design.Manager, raw json.RawMessage) Result {
	a, err := decode[struct {
		DX float64 `json:"dx"`
		DY float64 `json:"dy"`
	}](raw)
	if err != nil {
		return fail("pan: %v", err)
	}
	if m.Camera().Locked {
		return fail("camera is locked; unlock it to pan")
	}
	if !m.Pan(a.DX, a.DY) {
		return fail("nothing to pan")
	}
	return ok("panned", m.Camera())
}

func undo(m *design.Manager, _ json.RawMessage) Result {
	if !m.Undo() {
		return fail("nothing to undo")
	}
	return ok("undone", m.HistoryState())
}

func redo(m *design.Manager, _ json.RawMessage) Result {
	if !m.Redo() {
		return fail("nothing to redo")
	}
	return ok("redone", m.HistoryState())
}
