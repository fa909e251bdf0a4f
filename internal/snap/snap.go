// Package snap computes alignment snapping for objects being moved or resized
// against other objects and the document boundary. Results are advisory: the
// caller applies the adjusted rect and renders the guides until the drag ends.
package snap

import (
	"math"

	"github.com/inamate/canvas/internal/geom"
)

const DefaultThreshold = 6.0

type Orientation string

const (
	Vertical   Orientation = "vertical"
	Horizontal Orientation = "horizontal"
)

type Options struct {
	// Threshold is the maximum distance, in scene units, at which snapping occurs.
	Threshold float64
	Edges     bool
	Centers   bool
}

func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold, Edges: true, Centers: true}
}

// Anchor is a static reference rect. Higher weights win ties.
type Anchor struct {
	Rect   geom.Rect
	Weight float64
}

// Guide is a line to render while a snap is active. Position is the x of a
// vertical guide or the y of a horizontal one.
type Guide struct {
	Orientation Orientation `json:"orientation"`
	Kind        string      `json:"kind"`
	Position    float64     `json:"position"`
	From        geom.Point  `json:"from"`
	To          geom.Point  `json:"to"`
}

type Result struct {
	Rect   geom.Rect `json:"rect"`
	Guides []Guide   `json:"guides"`
}

// Anchors builds the anchor list from sibling rects plus the document boundary.
func Anchors(others []geom.Rect, boundary geom.Rect) []Anchor {
	out := make([]Anchor, 0, len(others)+1)
	for _, r := range others {
		out = append(out, Anchor{Rect: r, Weight: 1})
	}
	if !boundary.IsEmpty() {
		out = append(out, Anchor{Rect: boundary, Weight: 2})
	}
	return out
}

type best struct {
	delta float64
	score float64
	guide Guide
	found bool
}

func (b *best) consider(delta, threshold, weight float64, g Guide) {
	dist := math.Abs(delta)
	if dist > threshold {
		return
	}
	score := dist / math.Max(1, weight)
	if !b.found || score < b.score {
		b.delta, b.score, b.guide, b.found = delta, score, g, true
	}
}

// axis holds the features of a rect along one axis.
type axis struct{ lo, mid, hi float64 }

func xAxis(r geom.Rect) axis { return axis{r.X, r.X + r.Width/2, r.Right()} }
func yAxis(r geom.Rect) axis { return axis{r.Y, r.Y + r.Height/2, r.Bottom()} }

// Move snaps a moving rect. X and Y snap independently; edges snap to edges
// (aligned or abutting) and centres to centres.
func Move(moving geom.Rect, anchors []Anchor, opts Options) Result {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	var bx, by best
	mx, my := xAxis(moving), yAxis(moving)

	for _, a := range anchors {
		ax, ay := xAxis(a.Rect), yAxis(a.Rect)
		if opts.Edges {
			for _, m := range []float64{mx.lo, mx.hi} {
				for _, t := range []float64{ax.lo, ax.hi} {
					bx.consider(m-t, opts.Threshold, a.Weight, vertical(t, moving, a.Rect, "edge"))
				}
			}
			for _, m := range []float64{my.lo, my.hi} {
				for _, t := range []float64{ay.lo, ay.hi} {
					by.consider(m-t, opts.Threshold, a.Weight, horizontal(t, moving, a.Rect, "edge"))
				}
			}
		}
		if opts.Centers {
			bx.consider(mx.mid-ax.mid, opts.Threshold, a.Weight, vertical(ax.mid, moving, a.Rect, "center"))
			by.consider(my.mid-ay.mid, opts.Threshold, a.Weight, horizontal(ay.mid, moving, a.Rect, "center"))
		}
	}

	res := Result{Rect: moving}
	if bx.found {
		res.Rect.X = round3(moving.X - bx.delta)
		res.Guides = append(res.Guides, bx.guide)
	}
	if by.found {
		res.Rect.Y = round3(moving.Y - by.delta)
		res.Guides = append(res.Guides, by.guide)
	}
	return res
}

// Handle names the edges that move during a resize.
type Handle struct {
	Left, Right, Top, Bottom bool
}

var (
	HandleTopLeft     = Handle{Left: true, Top: true}
	HandleTopRight    = Handle{Right: true, Top: true}
	HandleBottomLeft  = Handle{Left: true, Bottom: true}
	HandleBottomRight = Handle{Right: true, Bottom: true}
)

// Resize snaps the moving edges of a rect being resized to anchor edges and
// centres. Fixed edges stay put; sizes never drop below one unit.
func Resize(r geom.Rect, h Handle, anchors []Anchor, opts Options) Result {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	var bx, by best
	edgeX, edgeY := r.X, r.Y
	if h.Right {
		edgeX = r.Right()
	}
	if h.Bottom {
		edgeY = r.Bottom()
	}
	movesX, movesY := h.Left || h.Right, h.Top || h.Bottom

	for _, a := range anchors {
		ax, ay := xAxis(a.Rect), yAxis(a.Rect)
		var xs, ys []float64
		if opts.Edges {
			xs = append(xs, ax.lo, ax.hi)
			ys = append(ys, ay.lo, ay.hi)
		}
		if opts.Centers {
			xs = append(xs, ax.mid)
			ys = append(ys, ay.mid)
		}
		if movesX {
			for _, t := range xs {
				bx.consider(edgeX-t, opts.Threshold, a.Weight, vertical(t, r, a.Rect, "edge"))
			}
		}
		if movesY {
			for _, t := range ys {
				by.consider(edgeY-t, opts.Threshold, a.Weight, horizontal(t, r, a.Rect, "edge"))
			}
		}
	}

	res := Result{Rect: r}
	if bx.found {
		if h.Left {
			res.Rect.X = round3(r.X - bx.delta)
			res.Rect.Width = math.Max(1, round3(r.Width+bx.delta))
		} else {
			res.Rect.Width = math.Max(1, round3(r.Width-bx.delta))
		}
		res.Guides = append(res.Guides, bx.guide)
	}
	if by.found {
		if h.Top {
			res.Rect.Y = round3(r.Y - by.delta)
			res.Rect.Height = math.Max(1, round3(r.Height+by.delta))
		} else {
			res.Rect.Height = math.Max(1, round3(r.Height-by.delta))
		}
		res.Guides = append(res.Guides, by.guide)
	}
	return res
}

func vertical(x float64, a, b geom.Rect, kind string) Guide {
	x = round3(x)
	minY, maxY := math.Min(a.Y, b.Y), math.Max(a.Bottom(), b.Bottom())
	return Guide{
		Orientation: Vertical,
		Kind:        kind,
		Position:    x,
		From:        geom.Point{X: x, Y: minY},
		To:          geom.Point{X: x, Y: maxY},
	}
}

func horizontal(y float64, a, b geom.Rect, kind string) Guide {
	y = round3(y)
	minX, maxX := math.Min(a.X, b.X), math.Max(a.Right(), b.Right())
	return Guide{
		Orientation: Horizontal,
		Kind:        kind,
		Position:    y,
		From:        geom.Point{X: minX, Y: y},
		To:          geom.Point{X: maxX, Y: y},
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
