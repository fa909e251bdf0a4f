// Package camera maps between screen and scene coordinates and implements
// the locked (document-centred) and free zoom/pan modes of a design view.
package camera

import (
	"math"

	"github.com/inamate/canvas/internal/geom"
)

const (
	MinZoom = 0.1
	MaxZoom = 20.0

	// LockedMaxZoom caps zoom while the document is locked in view.
	LockedMaxZoom = 3.0
	// LockedMinFactor is applied to the fit zoom for the locked lower bound.
	LockedMinFactor = 0.8
	// FitPadding is subtracted from each viewport dimension before fitting.
	FitPadding = 80.0
	// ZoomStep is the factor used by ZoomIn and ZoomOut.
	ZoomStep = 1.2
)

type State struct {
	Zoom   float64 `json:"zoom"`
	PanX   float64 `json:"panX"`
	PanY   float64 `json:"panY"`
	Locked bool    `json:"locked"`
}

// Controller owns the view transform of one design. Screen coordinates are
// scene coordinates scaled by Zoom and offset by the pan.
type Controller struct {
	viewWidth  float64
	viewHeight float64
	boundary   geom.Rect
	state      State
	onChange   func(State)
}

func New(viewWidth, viewHeight float64, boundary geom.Rect) *Controller {
	return &Controller{
		viewWidth:  viewWidth,
		viewHeight: viewHeight,
		boundary:   boundary,
		state:      State{Zoom: 1},
	}
}

// OnChange registers the viewport notification callback.
func (c *Controller) OnChange(fn func(State)) { c.onChange = fn }

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange(c.state)
	}
}

func (c *Controller) State() State { return c.state }

func (c *Controller) Zoom() float64 { return c.state.Zoom }

func (c *Controller) Locked() bool { return c.state.Locked }

func (c *Controller) Viewport() (float64, float64) { return c.viewWidth, c.viewHeight }

// Restore applies a persisted state, re-centring when locked.
func (c *Controller) Restore(s State) {
	if s.Zoom <= 0 {
		s.Zoom = 1
	}
	c.state = s
	if s.Locked {
		c.state.Zoom = c.clampLocked(s.Zoom)
		c.recenter()
	}
	c.notify()
}

// FitZoom is the zoom at which the boundary fits inside the padded viewport,
// never above 1:1.
func (c *Controller) FitZoom() float64 {
	if c.boundary.Width <= 0 || c.boundary.Height <= 0 {
		return 1
	}
	availW := c.viewWidth - FitPadding
	availH := c.viewHeight - FitPadding
	if availW <= 0 || availH <= 0 {
		return MinZoom
	}
	return math.Max(MinZoom, math.Min(1, math.Min(availW/c.boundary.Width, availH/c.boundary.Height)))
}

// ZoomLimits returns the zoom range of the current mode.
func (c *Controller) ZoomLimits() (float64, float64) {
	if c.state.Locked {
		return c.FitZoom() * LockedMinFactor, LockedMaxZoom
	}
	return MinZoom, MaxZoom
}

func (c *Controller) clampLocked(z float64) float64 {
	lo, hi := c.FitZoom()*LockedMinFactor, LockedMaxZoom
	return math.Max(lo, math.Min(hi, z))
}

// CenterCamera fits the boundary into the viewport and centres it.
func (c *Controller) CenterCamera() {
	c.state.Zoom = c.FitZoom()
	c.recenter()
	c.notify()
}

// recenter places the boundary centre at the viewport centre at the current
// zoom. It does not notify.
func (c *Controller) recenter() {
	bx, by := c.boundary.Center()
	c.state.PanX = c.viewWidth/2 - bx*c.state.Zoom
	c.state.PanY = c.viewHeight/2 - by*c.state.Zoom
}

// SetLocked switches modes. Locking centres the document immediately.
func (c *Controller) SetLocked(locked bool) {
	if locked == c.state.Locked {
		return
	}
	c.state.Locked = locked
	if locked {
		c.CenterCamera()
		return
	}
	c.notify()
}

// ZoomAt multiplies the zoom by factor. Unlocked zoom keeps the scene point
// under (sx, sy) fixed; locked zoom is clamped and the document re-centred.
// It returns false when the zoom did not change.
func (c *Controller) ZoomAt(factor, sx, sy float64) bool {
	if factor <= 0 || math.IsNaN(factor) {
		return false
	}
	if c.state.Locked {
		z := c.clampLocked(c.state.Zoom * factor)
		if z == c.state.Zoom {
			return false
		}
		c.state.Zoom = z
		c.recenter()
		c.notify()
		return true
	}

	z := math.Max(MinZoom, math.Min(MaxZoom, c.state.Zoom*factor))
	if z == c.state.Zoom {
		return false
	}
	px, py := c.ScreenToScene(sx, sy)
	c.state.Zoom = z
	c.state.PanX = sx - px*z
	c.state.PanY = sy - py*z
	c.notify()
	return true
}

// Wheel converts a mouse wheel delta into a zoom about the pointer.
func (c *Controller) Wheel(deltaY, sx, sy float64) bool {
	return c.ZoomAt(math.Pow(0.999, deltaY), sx, sy)
}

// ZoomIn zooms one step about the viewport centre.
func (c *Controller) ZoomIn() bool {
	return c.ZoomAt(ZoomStep, c.viewWidth/2, c.viewHeight/2)
}

// ZoomOut zooms out one step about the viewport centre.
func (c *Controller) ZoomOut() bool {
	return c.ZoomAt(1/ZoomStep, c.viewWidth/2, c.viewHeight/2)
}

// SetZoom sets an absolute zoom about the viewport centre.
func (c *Controller) SetZoom(z float64) bool {
	if c.state.Zoom == 0 {
		c.state.Zoom = 1
	}
	return c.ZoomAt(z/c.state.Zoom, c.viewWidth/2, c.viewHeight/2)
}

// Reset returns to the fitted, centred view.
func (c *Controller) Reset() { c.CenterCamera() }

// Pan moves the view by a screen delta. Pans are ignored while locked.
func (c *Controller) Pan(dx, dy float64) bool {
	if c.state.Locked || (dx == 0 && dy == 0) {
		return false
	}
	c.state.PanX += dx
	c.state.PanY += dy
	c.notify()
	return true
}

// SetViewport updates the screen size. While locked the document is kept
// centred; that adjustment is silent unless the zoom has to change.
func (c *Controller) SetViewport(w, h float64) {
	c.viewWidth, c.viewHeight = w, h
	if !c.state.Locked {
		return
	}
	z := c.clampLocked(c.state.Zoom)
	changed := z != c.state.Zoom
	c.state.Zoom = z
	c.recenter()
	if changed {
		c.notify()
	}
}

// SetBoundary updates the document boundary after a resize. An unchanged
// boundary keeps the current view.
func (c *Controller) SetBoundary(r geom.Rect) {
	if r == c.boundary {
		return
	}
	c.boundary = r
	if c.state.Locked {
		c.CenterCamera()
	}
}

func (c *Controller) Boundary() geom.Rect { return c.boundary }

// ScreenToScene converts a screen point into scene coordinates.
func (c *Controller) ScreenToScene(sx, sy float64) (float64, float64) {
	z := c.state.Zoom
	if z == 0 {
		z = 1
	}
	return (sx - c.state.PanX) / z, (sy - c.state.PanY) / z
}

// SceneToScreen converts a scene point into screen coordinates.
func (c *Controller) SceneToScreen(x, y float64) (float64, float64) {
	return x*c.state.Zoom + c.state.PanX, y*c.state.Zoom + c.state.PanY
}

// Matrix returns the scene-to-screen transform.
func (c *Controller) Matrix() geom.Matrix2D {
	return geom.Translate(c.state.PanX, c.state.PanY).Multiply(geom.Scale(c.state.Zoom, c.state.Zoom))
}
