package design

import (
	"math"
	"slices"

	"github.com/inamate/canvas/internal/drawing"
	"github.com/inamate/canvas/internal/geom"
	"github.com/inamate/canvas/internal/scene"
	"github.com/inamate/canvas/internal/snap"
)

// Modifiers are the keyboard modifiers held during a pointer event.
type Modifiers struct {
	Shift bool `json:"shift"`
	// NoSnap disables snapping for this event.
	NoSnap bool `json:"noSnap"`
}

type dragMode int

const (
	dragMove dragMode = iota
	dragResize
)

// dragState is the select tool's in-flight move or resize. It carries no
// history until the pointer is released.
type dragState struct {
	mode    dragMode
	start   geom.Point
	objects []*scene.Object
	origins []geom.Point
	moved   bool

	handle snap.Handle
	frame  geom.Rect
	target *scene.Object
}

// PointerDown handles a press at screen coordinates.
func (m *Manager) PointerDown(sx, sy float64, mods Modifiers) bool {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() {
		return false
	}
	p := m.toScene(sx, sy)

	if m.drawing.Tool() != drawing.ToolSelect {
		return m.handleDrawing(m.drawing.Down(p))
	}

	if o := m.scene.ActiveObject(); o != nil {
		if h, ok := m.hitHandle(o, p); ok {
			m.drag = &dragState{mode: dragResize, start: p, handle: h, target: o, frame: o.Bounds()}
			return true
		}
	}

	hit := m.scene.HitTest(p.X, p.Y)
	if hit == nil {
		m.setEditing(nil)
		m.scene.Discard()
		m.layers.Select("")
		return true
	}
	if m.editing != nil && m.editing != hit {
		m.setEditing(nil)
	}
	active := m.scene.Active()
	switch {
	case mods.Shift && slices.Contains(active, hit):
		i := slices.Index(active, hit)
		m.scene.SetActive(slices.Delete(active, i, i+1)...)
		return true
	case mods.Shift:
		m.scene.SetActive(append(active, hit)...)
	case !slices.Contains(active, hit):
		m.scene.SetActive(hit)
	}

	d := &dragState{mode: dragMove, start: p}
	for _, o := range m.scene.Active() {
		d.objects = append(d.objects, o)
		d.origins = append(d.origins, geom.Point{X: o.Left, Y: o.Top})
	}
	m.drag = d
	return true
}

// PointerMove handles pointer motion at screen coordinates.
func (m *Manager) PointerMove(sx, sy float64, mods Modifiers) bool {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() {
		return false
	}
	p := m.toScene(sx, sy)

	if m.drawing.Phase() == drawing.Drawing {
		return m.handleDrawing(m.drawing.Move(p))
	}
	if m.drag == nil {
		return false
	}
	switch m.drag.mode {
	case dragMove:
		m.dragMove(p, mods)
	case dragResize:
		m.dragResize(p, mods)
	}
	m.queue(Event{Type: EventChanged})
	return true
}

// PointerUp ends the interaction. A move or resize becomes one snapshot.
func (m *Manager) PointerUp(sx, sy float64, mods Modifiers) bool {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() {
		return false
	}
	p := m.toScene(sx, sy)

	if m.drawing.Phase() == drawing.Drawing {
		return m.handleDrawing(m.drawing.Up(p))
	}
	d := m.drag
	if d == nil {
		return false
	}
	m.drag = nil
	m.setGuides(nil)
	if !d.moved {
		return true
	}
	objs := d.objects
	if d.mode == dragResize {
		objs = []*scene.Object{d.target}
	}
	return m.mutate(func() bool {
		for _, o := range objs {
			m.scene.Modified(o)
		}
		return true
	})
}

// CancelInteraction abandons any drag, preview or guides. Objects moved by
// an unfinished drag return to where they started.
func (m *Manager) CancelInteraction() {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() {
		return
	}
	m.cancelInteraction()
}

func (m *Manager) cancelInteraction() {
	if d := m.drag; d != nil && d.moved {
		switch d.mode {
		case dragMove:
			for i, o := range d.objects {
				o.Left, o.Top = d.origins[i].X, d.origins[i].Y
			}
		case dragResize:
			m.applyFrame(d.target, d.frame)
		}
		m.queue(Event{Type: EventChanged})
	}
	m.drag = nil
	if a := m.drawing.Cancel(); a.Kind == drawing.ActionCancel {
		m.queue(Event{Type: EventPreview})
	}
	m.setGuides(nil)
}

// Guides returns the snap guides of the drag in progress.
func (m *Manager) Guides() []snap.Guide {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.guides)
}

// Preview returns the box being drawn, if any.
func (m *Manager) Preview() (geom.Rect, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drawing.Preview()
}

func (m *Manager) toScene(sx, sy float64) geom.Point {
	x, y := m.camera.ScreenToScene(sx, sy)
	return geom.Point{X: x, Y: y}
}

func (m *Manager) setGuides(g []snap.Guide) {
	if len(g) == 0 && len(m.guides) == 0 {
		return
	}
	m.guides = g
	m.queue(Event{Type: EventGuides, Guides: g})
}

// handleDrawing turns a drawing machine action into scene changes.
func (m *Manager) handleDrawing(a drawing.Action) bool {
	switch a.Kind {
	case drawing.ActionPreview:
		r := a.Rect
		m.queue(Event{Type: EventPreview, Rect: &r})
		return true
	case drawing.ActionCancel:
		m.queue(Event{Type: EventPreview})
		return true
	case drawing.ActionPickImage:
		r := a.Rect
		m.queue(Event{Type: EventPreview})
		m.queue(Event{Type: EventImagePick, Rect: &r})
		return true
	case drawing.ActionCommit:
		m.queue(Event{Type: EventPreview})
		switch a.Tool {
		case drawing.ToolText:
			_, ok := m.createText(a.Point, "", nil)
			return ok
		case drawing.ToolRect:
			_, ok := m.createShape(scene.KindRect, a.Rect, nil)
			return ok
		case drawing.ToolEllipse:
			_, ok := m.createShape(scene.KindEllipse, a.Rect, nil)
			return ok
		}
	}
	return false
}

func (m *Manager) snapAnchors(exclude []*scene.Object) []snap.Anchor {
	var others []geom.Rect
	for _, o := range m.scene.UserObjects() {
		if !o.Visible || slices.Contains(exclude, o) {
			continue
		}
		others = append(others, o.Bounds())
	}
	return snap.Anchors(others, m.scene.Base().Bounds())
}

func (m *Manager) dragMove(p geom.Point, mods Modifiers) {
	d := m.drag
	dx, dy := p.X-d.start.X, p.Y-d.start.Y
	if dx == 0 && dy == 0 && !d.moved {
		return
	}
	for i, o := range d.objects {
		o.Left, o.Top = d.origins[i].X+dx, d.origins[i].Y+dy
	}
	d.moved = true
	if mods.NoSnap {
		m.setGuides(nil)
		return
	}
	bounds := scene.SelectionBounds(d.objects)
	res := snap.Move(bounds, m.snapAnchors(d.objects), m.snapOpts)
	if sx, sy := res.Rect.X-bounds.X, res.Rect.Y-bounds.Y; sx != 0 || sy != 0 {
		for _, o := range d.objects {
			o.MoveBy(sx, sy)
		}
	}
	m.setGuides(res.Guides)
}

// handleSize is the grab radius of a corner handle in screen pixels.
func handleSize(o *scene.Object) float64 {
	if o.Controls.CornerSize > 0 {
		return o.Controls.CornerSize
	}
	return scene.DefaultControls.CornerSize
}

// hitHandle reports which corner handle of an unrotated object is under p.
func (m *Manager) hitHandle(o *scene.Object, p geom.Point) (snap.Handle, bool) {
	if o.Angle != 0 {
		return snap.Handle{}, false
	}
	b := o.Bounds()
	r := handleSize(o) / math.Max(m.camera.Zoom(), 0.01)
	corners := []struct {
		x, y float64
		h    snap.Handle
	}{
		{b.X, b.Y, snap.HandleTopLeft},
		{b.Right(), b.Y, snap.HandleTopRight},
		{b.X, b.Bottom(), snap.HandleBottomLeft},
		{b.Right(), b.Bottom(), snap.HandleBottomRight},
	}
	for _, c := range corners {
		if math.Abs(p.X-c.x) <= r && math.Abs(p.Y-c.y) <= r {
			return c.h, true
		}
	}
	return snap.Handle{}, false
}

func (m *Manager) dragResize(p geom.Point, mods Modifiers) {
	d := m.drag
	f := d.frame
	left, top, right, bottom := f.X, f.Y, f.Right(), f.Bottom()
	if d.handle.Left {
		left = math.Min(p.X, right-1)
	}
	if d.handle.Right {
		right = math.Max(p.X, left+1)
	}
	if d.handle.Top {
		top = math.Min(p.Y, bottom-1)
	}
	if d.handle.Bottom {
		bottom = math.Max(p.Y, top+1)
	}
	r := geom.Rect{X: left, Y: top, Width: right - left, Height: bottom - top}
	if !mods.NoSnap {
		res := snap.Resize(r, d.handle, m.snapAnchors([]*scene.Object{d.target}), m.snapOpts)
		r = res.Rect
		m.setGuides(res.Guides)
	}
	m.applyFrame(d.target, r)
	d.moved = true
}

// applyFrame scales an unrotated object so that its bounds equal r.
func (m *Manager) applyFrame(o *scene.Object, r geom.Rect) {
	if o.Width <= 0 || o.Height <= 0 {
		return
	}
	o.Left, o.Top = r.X, r.Y
	o.ScaleX = r.Width / o.Width
	o.ScaleY = r.Height / o.Height
}
