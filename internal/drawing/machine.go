// Package drawing implements the drag-to-create interaction: pick a tool,
// press, drag a preview box, release to commit.
package drawing

import (
	"github.com/inamate/canvas/internal/geom"
)

type Tool string

const (
	ToolSelect  Tool = "select"
	ToolRect    Tool = "rect"
	ToolEllipse Tool = "ellipse"
	ToolText    Tool = "text"
	ToolImage   Tool = "image"
)

// Valid reports whether t is a known tool.
func (t Tool) Valid() bool {
	switch t {
	case ToolSelect, ToolRect, ToolEllipse, ToolText, ToolImage:
		return true
	}
	return false
}

// MinSize is the smallest width and height a dragged box must reach to commit.
const MinSize = 10.0

type Phase int

const (
	Idle Phase = iota
	Drawing
)

func (p Phase) String() string {
	if p == Drawing {
		return "drawing"
	}
	return "idle"
}

type ActionKind string

const (
	ActionNone      ActionKind = ""
	ActionPreview   ActionKind = "preview"
	ActionCommit    ActionKind = "commit"
	ActionPickImage ActionKind = "image.pick"
	ActionCancel    ActionKind = "cancel"
)

// Action tells the caller what to do in response to a pointer event. Rect is
// the dragged box in scene coordinates; Point is the press location.
type Action struct {
	Kind  ActionKind
	Tool  Tool
	Rect  geom.Rect
	Point geom.Point
}

// Machine is the per-design drawing state. It holds no scene references and
// produces no history on its own.
type Machine struct {
	tool     Tool
	phase    Phase
	start    geom.Point
	current  geom.Point
	onChange func(Tool)
}

func New() *Machine {
	return &Machine{tool: ToolSelect}
}

// OnToolChange registers the tool.changed callback.
func (m *Machine) OnToolChange(fn func(Tool)) { m.onChange = fn }

func (m *Machine) Tool() Tool { return m.tool }

func (m *Machine) Phase() Phase { return m.phase }

// SetTool switches tools, abandoning any drag in progress.
func (m *Machine) SetTool(t Tool) bool {
	if !t.Valid() {
		return false
	}
	m.phase = Idle
	if t == m.tool {
		return true
	}
	m.tool = t
	m.fire()
	return true
}

func (m *Machine) fire() {
	if m.onChange != nil {
		m.onChange(m.tool)
	}
}

// revert returns to the select tool after a commit. tool.changed always fires.
func (m *Machine) revert() {
	m.phase = Idle
	m.tool = ToolSelect
	m.fire()
}

// Down handles a pointer press in scene coordinates. Text commits
// immediately; shape and image tools start a drag.
func (m *Machine) Down(p geom.Point) Action {
	switch m.tool {
	case ToolText:
		tool := m.tool
		m.revert()
		return Action{Kind: ActionCommit, Tool: tool, Point: p, Rect: geom.Rect{X: p.X, Y: p.Y}}
	case ToolRect, ToolEllipse, ToolImage:
		m.phase = Drawing
		m.start, m.current = p, p
		return Action{Kind: ActionPreview, Tool: m.tool, Point: p, Rect: geom.RectFromPoints(p, p)}
	}
	return Action{}
}

// Move updates the preview box while drawing.
func (m *Machine) Move(p geom.Point) Action {
	if m.phase != Drawing {
		return Action{}
	}
	m.current = p
	return Action{Kind: ActionPreview, Tool: m.tool, Point: m.start, Rect: geom.RectFromPoints(m.start, p)}
}

// Up ends the drag. Boxes of at least MinSize on both axes commit (or ask
// for an image to fill them); anything smaller is discarded.
func (m *Machine) Up(p geom.Point) Action {
	if m.phase != Drawing {
		return Action{}
	}
	m.current = p
	r := geom.RectFromPoints(m.start, p)
	tool := m.tool
	if r.Width < MinSize || r.Height < MinSize {
		m.phase = Idle
		return Action{Kind: ActionCancel, Tool: tool, Point: m.start, Rect: r}
	}
	m.revert()
	kind := ActionCommit
	if tool == ToolImage {
		kind = ActionPickImage
	}
	return Action{Kind: kind, Tool: tool, Point: m.start, Rect: r}
}

// Cancel abandons a drag in progress.
func (m *Machine) Cancel() Action {
	if m.phase != Drawing {
		return Action{}
	}
	m.phase = Idle
	return Action{Kind: ActionCancel, Tool: m.tool}
}

// Preview returns the box being dragged.
func (m *Machine) Preview() (geom.Rect, bool) {
	if m.phase != Drawing {
		return geom.Rect{}, false
	}
	return geom.RectFromPoints(m.start, m.current), true
}
