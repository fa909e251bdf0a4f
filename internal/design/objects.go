package design

import (
	"maps"
	"slices"

	"github.com/inamate/canvas/internal/geom"
	"github.com/inamate/canvas/internal/layers"
	"github.com/inamate/canvas/internal/scene"
)

// Default sizes used when a shape is created without a size.
const (
	DefaultShapeSize = 100.0
	DefaultText      = "Text"
)

// ObjectInfo describes one layer and its object for query commands.
type ObjectInfo struct {
	LayerID  string         `json:"layerId"`
	Name     string         `json:"name"`
	Kind     scene.Kind     `json:"type"`
	Index    int            `json:"index"`
	Visible  bool           `json:"visible"`
	Locked   bool           `json:"locked"`
	Selected bool           `json:"selected"`
	Bounds   geom.Rect      `json:"bounds"`
	Props    map[string]any `json:"props"`
}

func (m *Manager) info(l *layers.Layer) ObjectInfo {
	return ObjectInfo{
		LayerID:  l.ID,
		Name:     l.Name,
		Kind:     l.Object.Kind,
		Index:    m.layers.IndexOf(l.ID),
		Visible:  l.Visible,
		Locked:   l.Locked,
		Selected: slices.Contains(m.scene.Active(), l.Object),
		Bounds:   l.Object.Bounds(),
		Props:    l.Object.Properties(),
	}
}

// CreateShape adds a rect, ellipse or empty image frame covering r. A zero
// size falls back to DefaultShapeSize. The new object is selected and one
// snapshot is taken.
func (m *Manager) CreateShape(kind scene.Kind, r geom.Rect, style map[string]any) (string, bool) {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() {
		return "", false
	}
	return m.createShape(kind, r, style)
}

func (m *Manager) createShape(kind scene.Kind, r geom.Rect, style map[string]any) (string, bool) {
	switch kind {
	case scene.KindRect, scene.KindEllipse, scene.KindImage:
	default:
		return "", false
	}
	if r.Width <= 0 {
		r.Width = DefaultShapeSize
	}
	if r.Height <= 0 {
		r.Height = DefaultShapeSize
	}
	o := scene.NewObject(kind)
	o.Apply(m.defaults.Props(kind))
	o.Fit(r)
	o.Apply(style)
	return m.insert(o, "")
}

// CreateText adds a text object at p and enters text editing on it.
func (m *Manager) CreateText(p geom.Point, content string, style map[string]any) (string, bool) {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() {
		return "", false
	}
	return m.createText(p, content, style)
}

func (m *Manager) createText(p geom.Point, content string, style map[string]any) (string, bool) {
	if content == "" {
		content = DefaultText
	}
	o := scene.NewObject(scene.KindText)
	o.Apply(m.defaults.Props(scene.KindText))
	props := maps.Clone(style)
	if props == nil {
		props = map[string]any{}
	}
	props["left"], props["top"] = p.X, p.Y
	if _, ok := props["text"]; !ok {
		props["text"] = content
	}
	o.Apply(props)
	id, ok := m.insert(o, "")
	if ok {
		m.setEditing(o)
	}
	return id, ok
}

// insert adds o on top of the paint order, registers its layer and selects
// it, as one snapshot.
func (m *Manager) insert(o *scene.Object, name string) (string, bool) {
	var id string
	ok := m.mutate(func() bool {
		m.scene.Add(o)
		if !m.scene.Contains(o) {
			return false
		}
		l := m.layers.Add(layers.Layer{Object: o, Name: name})
		id = l.ID
		m.scene.SetActive(o)
		return true
	})
	return id, ok
}

func (m *Manager) setEditing(o *scene.Object) {
	if m.editing != nil {
		m.editing.Editing = false
	}
	m.editing = o
	if o != nil {
		o.Editing = true
	}
}

// Editing returns the layer id of the text object being edited.
func (m *Manager) Editing() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.editing == nil {
		return "", false
	}
	l, ok := m.layers.FindByObject(m.editing)
	if !ok {
		return "", false
	}
	return l.ID, true
}

// ExitEditing leaves text editing mode.
func (m *Manager) ExitEditing() {
	m.mu.Lock()
	defer m.unlock()
	m.setEditing(nil)
}

// UpdateSelected patches the active object, or the base layer when nothing
// is selected. The modification event of the patch produces the snapshot.
func (m *Manager) UpdateSelected(props map[string]any) bool {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() || len(props) == 0 {
		return false
	}
	targets := m.scene.Active()
	if len(targets) == 0 {
		return m.updateBase(props)
	}
	if len(targets) == 1 {
		if !m.apply(targets[0], props) {
			return false
		}
		m.scene.Modified(targets[0])
		return true
	}
	return m.mutate(func() bool {
		changed := false
		for _, o := range targets {
			if m.apply(o, props) {
				m.scene.Modified(o)
				changed = true
			}
		}
		return changed
	})
}

// UpdateLayer patches the object of a specific layer.
func (m *Manager) UpdateLayer(id string, props map[string]any) bool {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() {
		return false
	}
	l, ok := m.layers.Get(id)
	if !ok || !m.apply(l.Object, props) {
		return false
	}
	m.scene.Modified(l.Object)
	return true
}

// apply patches a layer object and reports whether anything changed. The
// visible key goes through the registry so the layer flag stays authoritative.
func (m *Manager) apply(o *scene.Object, props map[string]any) bool {
	changed := false
	if v, ok := props["visible"].(bool); ok {
		if l, found := m.layers.FindByObject(o); found {
			if l.Visible != v {
				m.layers.SetVisible(l, v)
				changed = true
			}
			props = maps.Clone(props)
			delete(props, "visible")
		}
	}
	return len(o.Apply(props)) > 0 || changed
}

// updateBase applies canvas-level edits. Position keys are ignored; size
// changes go through the resize path so objects are clamped inside.
func (m *Manager) updateBase(props map[string]any) bool {
	base := m.scene.Base()
	patch := maps.Clone(props)
	for _, k := range []string{"left", "top", "x", "y", "angle", "rotation", "scaleX", "scaleY"} {
		delete(patch, k)
	}
	w, wok := number(patch["width"])
	h, hok := number(patch["height"])
	delete(patch, "width")
	delete(patch, "height")
	if color, ok := patch["background"].(string); ok {
		patch["fill"] = color
		delete(patch, "background")
	}

	return m.mutate(func() bool {
		changed := len(base.Apply(patch)) > 0
		if wok || hok {
			if !wok {
				w = base.Width
			}
			if !hok {
				h = base.Height
			}
			changed = m.resize(w, h) || changed
		}
		if changed {
			m.scene.Modified(base)
		}
		return changed
	})
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, n > 0
	case int:
		return float64(n), n > 0
	}
	return 0, false
}

// DuplicateActive clones the single selected object, offsets it by
// PasteOffset on both axes and inserts it directly above the original.
func (m *Manager) DuplicateActive() (string, bool) {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() {
		return "", false
	}
	orig := m.scene.ActiveObject()
	if orig == nil || orig.IsBase() {
		return "", false
	}
	src, ok := m.layers.FindByObject(orig)
	if !ok {
		return "", false
	}
	var id string
	done := m.mutate(func() bool {
		dup := orig.Clone()
		dup.LayerID = ""
		dup.MoveBy(PasteOffset, PasteOffset)
		m.scene.Insert(m.scene.IndexOf(orig)+1, dup)
		l := m.layers.InsertAbove(src.ID, layers.Layer{Object: dup, Name: src.Name + " Copy"})
		id = l.ID
		m.scene.SetActive(dup)
		return true
	})
	return id, done
}

// Copy places deep copies of the selection on the clipboard.
func (m *Manager) Copy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready() {
		return false
	}
	active := m.scene.Active()
	if len(active) == 0 {
		return false
	}
	m.clipboard = m.clipboard[:0]
	for _, o := range active {
		m.clipboard = append(m.clipboard, o.Clone())
	}
	return true
}

// Paste inserts the clipboard contents offset by PasteOffset. Repeated
// pastes cascade.
func (m *Manager) Paste() ([]string, bool) {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() || len(m.clipboard) == 0 {
		return nil, false
	}
	var ids []string
	ok := m.mutate(func() bool {
		var added []*scene.Object
		for _, c := range m.clipboard {
			c.MoveBy(PasteOffset, PasteOffset)
			o := c.Clone()
			o.LayerID = ""
			m.scene.Add(o)
			l := m.layers.Add(layers.Layer{Object: o})
			ids = append(ids, l.ID)
			added = append(added, o)
		}
		m.scene.SetActive(added...)
		return true
	})
	return ids, ok
}

// RemoveSelected deletes every selected object and its layer.
func (m *Manager) RemoveSelected() bool {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() {
		return false
	}
	active := m.scene.Active()
	if len(active) == 0 {
		return false
	}
	return m.mutate(func() bool {
		for _, o := range active {
			m.remove(o)
		}
		m.scene.Discard()
		return true
	})
}

// RemoveLayer deletes a layer and its object.
func (m *Manager) RemoveLayer(id string) bool {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() {
		return false
	}
	l, ok := m.layers.Get(id)
	if !ok {
		return false
	}
	return m.mutate(func() bool {
		m.remove(l.Object)
		return true
	})
}

// remove drops o from the scene, then its layer. Callers hold a batch.
func (m *Manager) remove(o *scene.Object) {
	if !m.scene.Remove(o) {
		return
	}
	if l, ok := m.layers.FindByObject(o); ok {
		m.layers.Remove(l.ID)
	}
	if m.editing == o {
		m.setEditing(nil)
	}
}

// ActiveObject describes the single selected object.
func (m *Manager) ActiveObject() (ObjectInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready() {
		return ObjectInfo{}, false
	}
	o := m.scene.ActiveObject()
	if o == nil {
		return ObjectInfo{}, false
	}
	l, ok := m.layers.FindByObject(o)
	if !ok {
		return ObjectInfo{}, false
	}
	return m.info(l), true
}

// Objects describes every layer, bottom to top.
func (m *Manager) Objects() []ObjectInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready() {
		return nil
	}
	out := make([]ObjectInfo, 0, m.layers.Len())
	for _, l := range m.layers.Layers() {
		out = append(out, m.info(l))
	}
	return out
}

// Object describes one layer.
func (m *Manager) Object(id string) (ObjectInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready() {
		return ObjectInfo{}, false
	}
	l, ok := m.layers.Get(id)
	if !ok {
		return ObjectInfo{}, false
	}
	return m.info(l), true
}

// DrawCommands compiles the scene for a renderer.
func (m *Manager) DrawCommands() []scene.DrawCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready() {
		return nil
	}
	return scene.Compile(m.scene)
}

// HitTest returns the layer under a scene point.
func (m *Manager) HitTest(x, y float64) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready() {
		return "", false
	}
	o := m.scene.HitTest(x, y)
	if o == nil {
		return "", false
	}
	l, ok := m.layers.FindByObject(o)
	if !ok {
		return "", false
	}
	return l.ID, true
}
