package design

import (
	"context"
	"fmt"
	"math"

	"github.com/inamate/canvas/internal/geom"
	"github.com/inamate/canvas/internal/imaging"
	"github.com/inamate/canvas/internal/scene"
)

// ImageResult is delivered once an asynchronous image import finishes.
type ImageResult struct {
	LayerID string
	Err     error
}

// maxImageFraction bounds an unplaced image to this share of the document.
const maxImageFraction = 0.8

// AddImage decodes data on a separate goroutine and inserts it as an image
// layer. With a non-empty target the image fills that box (the image.pick
// flow); otherwise it is centred at natural size, scaled down to fit. The
// insert is dropped if the design was closed meanwhile.
func (m *Manager) AddImage(ctx context.Context, data []byte, target geom.Rect) <-chan ImageResult {
	out := make(chan ImageResult, 1)
	go func() {
		defer close(out)
		info, err := imaging.Inspect(data)
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			m.log.Error("import image", "error", err)
			out <- ImageResult{Err: err}
			return
		}
		src := imaging.DataURL(info.MIME, data)
		id, err := m.insertImage(src, info, target)
		if err != nil {
			m.log.Warn("drop image insert", "error", err)
		}
		out <- ImageResult{LayerID: id, Err: err}
	}()
	return out
}

func (m *Manager) insertImage(src string, info imaging.Info, target geom.Rect) (string, error) {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() {
		return "", ErrClosed
	}
	r := target
	if r.IsEmpty() {
		r = placeImage(m.scene.Base().Bounds(), float64(info.Width), float64(info.Height))
	}
	o := scene.NewObject(scene.KindImage)
	o.Apply(m.defaults.Props(scene.KindImage))
	o.Image = &scene.ImageProps{Src: src, NaturalWidth: info.Width, NaturalHeight: info.Height}
	o.Fit(r)
	id, ok := m.insert(o, "")
	if !ok {
		return "", fmt.Errorf("insert image into %s", m.id)
	}
	return id, nil
}

// placeImage centres a w×h image in the document, shrinking it to fit.
func placeImage(doc geom.Rect, w, h float64) geom.Rect {
	if w <= 0 || h <= 0 {
		w, h = DefaultShapeSize, DefaultShapeSize
	}
	scale := math.Min(1, math.Min(doc.Width*maxImageFraction/w, doc.Height*maxImageFraction/h))
	w, h = w*scale, h*scale
	cx, cy := doc.Center()
	return geom.Rect{X: cx - w/2, Y: cy - h/2, Width: w, Height: h}
}
