package design

import (
	"github.com/inamate/canvas/internal/camera"
	"github.com/inamate/canvas/internal/document"
	"github.com/inamate/canvas/internal/drawing"
	"github.com/inamate/canvas/internal/export"
	"github.com/inamate/canvas/internal/geom"
	"github.com/inamate/canvas/internal/history"
)

// SetBackground changes the base layer fill.
func (m *Manager) SetBackground(color string) bool {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() || color == "" {
		return false
	}
	base := m.scene.Base()
	if base.Fill == color {
		return false
	}
	base.Fill = color
	m.scene.Modified(base)
	return true
}

// Resize changes the document size and pulls every object that no longer
// fits back inside the new boundary.
func (m *Manager) Resize(width, height float64) bool {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() {
		return false
	}
	return m.mutate(func() bool { return m.resize(width, height) })
}

func (m *Manager) resize(width, height float64) bool {
	base := m.scene.Base()
	if !document.ValidSize(width, height) || (base.Width == width && base.Height == height) {
		return false
	}
	base.Width, base.Height = width, height
	boundary := base.Bounds()
	for _, o := range m.scene.UserObjects() {
		if dx, dy := geom.ClampOffset(o.Bounds(), boundary); dx != 0 || dy != 0 {
			o.MoveBy(dx, dy)
			m.scene.Modified(o)
		}
	}
	m.scene.Modified(base)
	m.camera.SetBoundary(boundary)
	return true
}

// ClearCanvas removes every layer, keeping the base layer, as one snapshot.
func (m *Manager) ClearCanvas() bool {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() || m.layers.Len() == 0 {
		return false
	}
	return m.mutate(func() bool {
		for _, l := range m.layers.Layers() {
			m.remove(l.Object)
		}
		m.scene.Clear()
		return true
	})
}

// Undo restores the previous snapshot.
func (m *Manager) Undo() bool {
	return m.step((*history.Engine).Undo)
}

// Redo restores the next snapshot.
func (m *Manager) Redo() bool {
	return m.step((*history.Engine).Redo)
}

func (m *Manager) step(fn func(*history.Engine) bool) bool {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() {
		return false
	}
	m.drag = nil
	m.guides = nil
	m.drawing.Cancel()
	if !fn(m.history) {
		return false
	}
	m.editing = nil
	m.camera.SetBoundary(m.scene.Base().Bounds())
	m.touch()
	m.changed()
	m.selectionChanged()
	return true
}

func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready() && m.history.CanUndo()
}

func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready() && m.history.CanRedo()
}

func (m *Manager) HistoryState() history.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready() {
		return history.State{Pointer: -1}
	}
	return m.history.State()
}

// Export renders the document, ignoring the camera. A PNG of a design whose
// base layer has zero opacity hides the base layer during capture so the
// background stays transparent.
func (m *Manager) Export(f export.Format, opts export.Options) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready() {
		return nil, ErrClosed
	}
	base := m.scene.Base()
	if f == export.FormatPNG && base.Opacity == 0 && base.Visible {
		base.Visible = false
		defer func() { base.Visible = true }()
	}
	return export.Render(m.scene, f, opts)
}

func (m *Manager) SetCameraLocked(locked bool) bool {
	return m.cameraOp(func(c *camera.Controller) bool {
		c.SetLocked(locked)
		return true
	})
}

func (m *Manager) CenterCamera() bool {
	return m.cameraOp(func(c *camera.Controller) bool {
		c.CenterCamera()
		return true
	})
}

func (m *Manager) ZoomIn() bool { return m.cameraOp((*camera.Controller).ZoomIn) }

func (m *Manager) ZoomOut() bool { return m.cameraOp((*camera.Controller).ZoomOut) }

func (m *Manager) ResetZoom() bool {
	return m.cameraOp(func(c *camera.Controller) bool {
		c.Reset()
		return true
	})
}

func (m *Manager) SetZoom(z float64) bool {
	return m.cameraOp(func(c *camera.Controller) bool { return c.SetZoom(z) })
}

// Wheel zooms about a screen point.
func (m *Manager) Wheel(deltaY, sx, sy float64) bool {
	return m.cameraOp(func(c *camera.Controller) bool { return c.Wheel(deltaY, sx, sy) })
}

// Pan moves the view by a screen delta; ignored while the camera is locked.
func (m *Manager) Pan(dx, dy float64) bool {
	return m.cameraOp(func(c *camera.Controller) bool { return c.Pan(dx, dy) })
}

func (m *Manager) SetViewport(w, h float64) bool {
	return m.cameraOp(func(c *camera.Controller) bool {
		c.SetViewport(w, h)
		return true
	})
}

func (m *Manager) cameraOp(fn func(*camera.Controller) bool) bool {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() {
		return false
	}
	return fn(m.camera)
}

func (m *Manager) Camera() camera.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.camera.State()
}

// SetTool arms a drawing tool. Switching tools abandons any drag.
func (m *Manager) SetTool(t drawing.Tool) bool {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() {
		return false
	}
	m.cancelInteraction()
	return m.drawing.SetTool(t)
}

func (m *Manager) Tool() drawing.Tool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drawing.Tool()
}
