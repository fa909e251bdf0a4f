package scene

import (
	"encoding/json"
	"testing"
)

func newTestScene() *Scene {
	return New(NewBase(800, 600, "#ffffff"))
}

func rect(left, top, w, h float64) *Object {
	o := NewObject(KindRect)
	o.Left, o.Top, o.Width, o.Height = left, top, w, h
	o.Fill = "#ff0000"
	return o
}

func TestBaseIsPinnedAndNotSelectable(t *testing.T) {
	s := newTestScene()
	r := rect(10, 10, 50, 50)
	s.Insert(0, r)
	if s.Objects()[0] == s.Base() {
		t.Fatalf("expected rect at index 0 before pinning")
	}
	s.PinBase()
	if s.Objects()[0] != s.Base() {
		t.Fatalf("expected base at paint index 0 after PinBase")
	}

	s.SetActive(s.Base())
	if len(s.Active()) != 0 {
		t.Fatalf("base layer must never be selectable")
	}
}

func TestEventsAndSilently(t *testing.T) {
	s := newTestScene()
	var events []EventType
	off := s.On(func(e Event) { events = append(events, e.Type) })

	r := rect(0, 0, 10, 10)
	s.Add(r)
	s.Modified(r)
	s.Silently(func() { s.Remove(r) })
	if len(events) != 2 || events[0] != EventObjectAdded || events[1] != EventObjectModified {
		t.Fatalf("unexpected events %v", events)
	}

	off()
	s.Add(r)
	if len(events) != 2 {
		t.Fatalf("expected no events after unsubscribe, got %v", events)
	}
}

func TestRemoveClearsSelection(t *testing.T) {
	s := newTestScene()
	r := rect(0, 0, 10, 10)
	s.Add(r)
	s.SetActive(r)
	if s.ActiveObject() != r {
		t.Fatalf("expected rect to be active")
	}
	s.Remove(r)
	if s.ActiveObject() != nil {
		t.Fatalf("expected selection cleared after remove")
	}
}

func TestJSONRoundTripKeepsOrderAndLayerIDs(t *testing.T) {
	s := newTestScene()
	a := rect(10, 10, 20, 20)
	a.LayerID = "layer_a"
	b := NewObject(KindText)
	b.LayerID = "layer_b"
	b.Apply(map[string]any{"text": "hello", "left": 40.0})
	s.Add(a)
	s.Add(b)

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	restored, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	objs := restored.Objects()
	if len(objs) != 3 || !objs[0].IsBase() {
		t.Fatalf("expected base + 2 objects, got %d", len(objs))
	}
	if objs[1].LayerID != "layer_a" || objs[2].LayerID != "layer_b" {
		t.Fatalf("unexpected order %q %q", objs[1].LayerID, objs[2].LayerID)
	}
	if objs[2].Text == nil || objs[2].Text.Content != "hello" {
		t.Fatalf("text content lost in round trip")
	}
	if objs[1].Controls != DefaultControls {
		t.Fatalf("expected decorations reapplied after load, got %+v", objs[1].Controls)
	}
}

func TestLoadRequiresBase(t *testing.T) {
	s := newTestScene()
	if err := s.Load([]byte(`{"version":"1","objects":[{"type":"rect","width":5,"height":5}]}`)); err != ErrNoBase {
		t.Fatalf("expected ErrNoBase, got %v", err)
	}
}

func TestHitTestTopmostAndEllipse(t *testing.T) {
	s := newTestScene()
	bottom := rect(0, 0, 100, 100)
	top := rect(50, 50, 100, 100)
	s.Add(bottom)
	s.Add(top)
	if got := s.HitTest(60, 60); got != top {
		t.Fatalf("expected topmost object to be hit")
	}

	e := NewObject(KindEllipse)
	e.Left, e.Top, e.Width, e.Height = 300, 300, 100, 100
	s.Add(e)
	if s.HitTest(302, 302) != nil {
		t.Fatalf("ellipse corner should not be hit")
	}
	if s.HitTest(350, 350) != e {
		t.Fatalf("ellipse center should be hit")
	}

	top.Evented = false
	if got := s.HitTest(60, 60); got != bottom {
		t.Fatalf("non-evented objects must be skipped")
	}
}

func TestApplyPatch(t *testing.T) {
	o := NewObject(KindRect)
	applied := o.Apply(map[string]any{
		"fill":    "#00ff00",
		"left":    12.0,
		"opacity": -3.0,
		"angle":   -90.0,
		"bogus":   true,
	})
	if len(applied) != 4 {
		t.Fatalf("expected 4 applied keys, got %v", applied)
	}
	if o.Fill != "#00ff00" || o.Left != 12 || o.Opacity != 0 || o.Angle != 270 {
		t.Fatalf("unexpected object after patch %+v", o)
	}
}

func TestApplySkipsUnchangedValues(t *testing.T) {
	o := NewObject(KindText)
	o.Apply(map[string]any{"fill": "#ff0000", "shadow": map[string]any{"blur": 8.0}})
	applied := o.Apply(map[string]any{
		"fill":    "#ff0000",
		"opacity": 5.0,
		"visible": true,
		"shadow":  map[string]any{"blur": 8.0},
		"left":    3.0,
	})
	if len(applied) != 1 || applied[0] != "left" {
		t.Fatalf("expected only left to change, got %v", applied)
	}
}

func TestTextRelayoutOnPatch(t *testing.T) {
	o := NewObject(KindText)
	o.Apply(map[string]any{"text": "abcd", "fontSize": 10.0, "lineHeight": 1.0})
	if o.Width != 24 || o.Height != 10 {
		t.Fatalf("expected 24x10, got %vx%v", o.Width, o.Height)
	}
	o.Apply(map[string]any{"text": "ab\ncd"})
	if o.Height != 20 {
		t.Fatalf("expected two lines of height, got %v", o.Height)
	}
}

func TestCloneIsDeep(t *testing.T) {
	g := NewObject(KindGroup)
	g.Children = []*Object{rect(0, 0, 10, 10)}
	txt := NewObject(KindText)
	txt.Text.Shadow = &Shadow{Color: "#000"}
	g.Children = append(g.Children, txt)

	c := g.Clone()
	c.Children[0].Left = 99
	c.Children[1].Text.Shadow.Color = "#fff"
	if g.Children[0].Left != 0 || g.Children[1].Text.Shadow.Color != "#000" {
		t.Fatalf("clone shares state with original")
	}
}

func TestCompileSkipsHiddenAndFlattensGroups(t *testing.T) {
	s := newTestScene()
	hidden := rect(0, 0, 10, 10)
	hidden.Visible = false
	s.Add(hidden)

	g := NewObject(KindGroup)
	g.LayerID = "layer_g"
	g.Left, g.Top, g.Width, g.Height = 100, 100, 50, 50
	g.Opacity = 0.5
	child := rect(10, 10, 20, 20)
	child.Opacity = 0.5
	g.Children = []*Object{child}
	s.Add(g)

	cmds := Compile(s)
	if len(cmds) != 2 {
		t.Fatalf("expected base + group child, got %d commands", len(cmds))
	}
	c := cmds[1]
	if c.LayerID != "layer_g" || c.Opacity != 0.25 {
		t.Fatalf("unexpected child command %+v", c)
	}
	x, y := c.Matrix().TransformPoint(0, 0)
	if x != 110 || y != 110 {
		t.Fatalf("expected child origin at (110,110), got (%v,%v)", x, y)
	}
}
