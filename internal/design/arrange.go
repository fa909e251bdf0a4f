package design

import (
	"slices"
	"sort"

	"github.com/inamate/canvas/internal/geom"
	"github.com/inamate/canvas/internal/layers"
	"github.com/inamate/canvas/internal/scene"
)

type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
	AlignTop    Alignment = "top"
	AlignMiddle Alignment = "middle"
	AlignBottom Alignment = "bottom"
)

type Axis string

const (
	AxisHorizontal Axis = "horizontal"
	AxisVertical   Axis = "vertical"
)

// ReorderLayer moves a layer to newIndex in the registry and rebuilds the
// paint order. Unknown ids and unchanged indices are no-ops.
func (m *Manager) ReorderLayer(id string, newIndex int) bool {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() {
		return false
	}
	return m.mutate(func() bool { return m.layers.Reorder(id, newIndex) })
}

// BringToFront moves a layer to the top. An empty id uses the selection.
func (m *Manager) BringToFront(id string) bool {
	return m.shift(id, func(int) int { return m.layers.Len() - 1 })
}

// SendToBack moves a layer just above the base layer.
func (m *Manager) SendToBack(id string) bool {
	return m.shift(id, func(int) int { return 0 })
}

// BringForward moves a layer up one step.
func (m *Manager) BringForward(id string) bool {
	return m.shift(id, func(i int) int { return i + 1 })
}

// SendBackward moves a layer down one step.
func (m *Manager) SendBackward(id string) bool {
	return m.shift(id, func(i int) int { return i - 1 })
}

func (m *Manager) shift(id string, to func(int) int) bool {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() {
		return false
	}
	l, ok := m.resolve(id)
	if !ok {
		return false
	}
	return m.mutate(func() bool {
		return m.layers.Reorder(l.ID, to(m.layers.IndexOf(l.ID)))
	})
}

// resolve finds the layer for id, or the selected layer when id is empty.
func (m *Manager) resolve(id string) (*layers.Layer, bool) {
	if id != "" {
		return m.layers.Get(id)
	}
	if o := m.scene.ActiveObject(); o != nil {
		return m.layers.FindByObject(o)
	}
	return nil, false
}

// ToggleVisibility flips a layer's visibility.
func (m *Manager) ToggleVisibility(id string) bool {
	return m.layerOp(func() bool { return m.layers.ToggleVisibility(id) })
}

// ToggleLock flips a layer's lock.
func (m *Manager) ToggleLock(id string) bool {
	return m.layerOp(func() bool { return m.layers.ToggleLock(id) })
}

// RenameLayer changes a layer's display name.
func (m *Manager) RenameLayer(id, name string) bool {
	return m.layerOp(func() bool { return m.layers.Rename(id, name) })
}

func (m *Manager) layerOp(fn func() bool) bool {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() {
		return false
	}
	return m.mutate(fn)
}

// Layers returns the layer metadata, bottom to top.
func (m *Manager) Layers() []layers.Meta {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready() {
		return nil
	}
	return m.layers.Metadata()
}

// SelectLayer makes a layer the only selection. Locked or hidden layers are
// marked selected in the registry but their objects stay inactive.
func (m *Manager) SelectLayer(id string) bool {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() {
		return false
	}
	l, ok := m.layers.Get(id)
	if !ok {
		return false
	}
	m.scene.SetActive(l.Object)
	m.layers.Select(id)
	return true
}

// SelectLayers replaces the selection with the given layers.
func (m *Manager) SelectLayers(ids ...string) bool {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() {
		return false
	}
	var objs []*scene.Object
	for _, id := range ids {
		if l, ok := m.layers.Get(id); ok {
			objs = append(objs, l.Object)
		}
	}
	if len(objs) == 0 {
		return false
	}
	m.scene.SetActive(objs...)
	return len(m.scene.Active()) > 0
}

// SelectAll selects every selectable object.
func (m *Manager) SelectAll() bool {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() {
		return false
	}
	m.scene.SetActive(m.scene.UserObjects()...)
	return len(m.scene.Active()) > 0
}

// ClearSelection drops the selection.
func (m *Manager) ClearSelection() {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() {
		return
	}
	m.scene.Discard()
	m.layers.Select("")
}

// Selection returns the selected layer ids.
func (m *Manager) Selection() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready() {
		return nil
	}
	return m.selectedIDs()
}

// Group replaces the selection (two or more objects) with one group.
// Groups are flat: selected groups are dissolved into the new one.
func (m *Manager) Group() (string, bool) {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() {
		return "", false
	}
	active := m.scene.Active()
	if len(active) < 2 {
		return "", false
	}
	// Registry order keeps the stacking of the members.
	var members []*layers.Layer
	for _, l := range m.layers.Layers() {
		if slices.Contains(active, l.Object) {
			members = append(members, l)
		}
	}
	if len(members) < 2 {
		return "", false
	}
	top := m.layers.IndexOf(members[len(members)-1].ID)
	target := top - len(members) + 1

	var id string
	ok := m.mutate(func() bool {
		var children []*scene.Object
		for _, l := range members {
			if l.Object.Kind == scene.KindGroup {
				children = append(children, lift(l.Object)...)
			} else {
				children = append(children, l.Object)
			}
		}
		bounds := geom.Rect{}
		for _, c := range children {
			bounds = bounds.Union(c.Bounds())
		}
		for _, l := range members {
			m.remove(l.Object)
		}

		g := scene.NewObject(scene.KindGroup)
		g.Fit(bounds)
		for _, c := range children {
			c.MoveBy(-bounds.X, -bounds.Y)
			c.LayerID = ""
		}
		g.Children = children
		g.ApplyControls(scene.DefaultControls)

		m.scene.Add(g)
		l := m.layers.Add(layers.Layer{Object: g})
		m.layers.Reorder(l.ID, target)
		id = l.ID
		m.scene.SetActive(g)
		return true
	})
	return id, ok
}

// Ungroup dissolves the selected group back into top-level layers, keeping
// its place in the stack.
func (m *Manager) Ungroup() ([]string, bool) {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() {
		return nil, false
	}
	g := m.scene.ActiveObject()
	if g == nil || g.Kind != scene.KindGroup {
		return nil, false
	}
	gl, ok := m.layers.FindByObject(g)
	if !ok {
		return nil, false
	}
	at := m.layers.IndexOf(gl.ID)

	var ids []string
	done := m.mutate(func() bool {
		children := lift(g)
		m.remove(g)
		for i, c := range children {
			m.scene.Add(c)
			l := m.layers.Add(layers.Layer{Object: c})
			m.layers.Reorder(l.ID, at+i)
			ids = append(ids, l.ID)
		}
		m.scene.SetActive(children...)
		return true
	})
	return ids, done
}

// lift returns copies of a group's children expressed in the group's parent
// frame. Scale composes exactly; rotation is exact for uniform group scale.
func lift(g *scene.Object) []*scene.Object {
	t := g.Transform()
	out := make([]*scene.Object, 0, len(g.Children))
	for _, child := range g.Children {
		c := child.Clone()
		c.Left, c.Top = t.TransformPoint(child.Left, child.Top)
		c.ScaleX *= g.ScaleX
		c.ScaleY *= g.ScaleY
		c.Apply(map[string]any{"angle": child.Angle + g.Angle})
		c.Opacity *= g.Opacity
		c.Selectable, c.Evented = true, true
		c.ApplyControls(scene.DefaultControls)
		out = append(out, c)
	}
	return out
}

// Align lines up the selection. Two or more objects align to their common
// bounds; a single object aligns to the document.
func (m *Manager) Align(a Alignment) bool {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() {
		return false
	}
	active := m.scene.Active()
	if len(active) == 0 {
		return false
	}
	ref := m.scene.Base().Bounds()
	if len(active) > 1 {
		ref = scene.SelectionBounds(active)
	}
	return m.mutate(func() bool {
		changed := false
		for _, o := range active {
			b := o.Bounds()
			var dx, dy float64
			switch a {
			case AlignLeft:
				dx = ref.X - b.X
			case AlignCenter:
				dx = (ref.X + ref.Width/2) - (b.X + b.Width/2)
			case AlignRight:
				dx = ref.Right() - b.Right()
			case AlignTop:
				dy = ref.Y - b.Y
			case AlignMiddle:
				dy = (ref.Y + ref.Height/2) - (b.Y + b.Height/2)
			case AlignBottom:
				dy = ref.Bottom() - b.Bottom()
			default:
				return false
			}
			if dx != 0 || dy != 0 {
				o.MoveBy(dx, dy)
				m.scene.Modified(o)
				changed = true
			}
		}
		return changed
	})
}

// Distribute spaces three or more selected objects evenly between the two
// outermost ones along the axis.
func (m *Manager) Distribute(axis Axis) bool {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() {
		return false
	}
	active := m.scene.Active()
	if len(active) < 3 || (axis != AxisHorizontal && axis != AxisVertical) {
		return false
	}
	pos := func(r geom.Rect) float64 {
		if axis == AxisHorizontal {
			return r.X
		}
		return r.Y
	}
	size := func(r geom.Rect) float64 {
		if axis == AxisHorizontal {
			return r.Width
		}
		return r.Height
	}
	sort.SliceStable(active, func(i, j int) bool { return pos(active[i].Bounds()) < pos(active[j].Bounds()) })

	first, last := active[0].Bounds(), active[len(active)-1].Bounds()
	span := pos(last) + size(last) - pos(first)
	total := 0.0
	for _, o := range active {
		total += size(o.Bounds())
	}
	gap := (span - total) / float64(len(active)-1)

	return m.mutate(func() bool {
		changed := false
		cursor := pos(first)
		for _, o := range active {
			b := o.Bounds()
			d := cursor - pos(b)
			cursor += size(b) + gap
			if d == 0 {
				continue
			}
			if axis == AxisHorizontal {
				o.MoveBy(d, 0)
			} else {
				o.MoveBy(0, d)
			}
			m.scene.Modified(o)
			changed = true
		}
		return changed
	})
}
