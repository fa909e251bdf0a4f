package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/vector"

	"github.com/inamate/canvas/internal/geom"
	"github.com/inamate/canvas/internal/imaging"
	"github.com/inamate/canvas/internal/scene"
)

// curveSteps is the number of segments a cubic is flattened into for strokes.
const curveSteps = 16

// Raster renders the scene to an image of exactly the document size times
// opts.Scale and encodes it as PNG or JPEG.
func Raster(s *scene.Scene, f Format, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	img, err := RenderImage(s, opts.Scale)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch f {
	case FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	case FormatJPEG:
		flat := image.NewRGBA(img.Bounds())
		bg, ok := ParseColor(opts.Background)
		if !ok {
			bg = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
		}
		draw.Draw(flat, flat.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
		draw.Draw(flat, flat.Bounds(), img, image.Point{}, draw.Over)
		if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: opts.Quality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
	return buf.Bytes(), nil
}

const (
	maxRasterSide   = 32768
	maxRasterPixels = 1 << 28
)

// RenderImage paints the scene into a transparent RGBA image.
func RenderImage(s *scene.Scene, scale float64) (*image.RGBA, error) {
	bounds, err := Boundary(s)
	if err != nil {
		return nil, err
	}
	if scale <= 0 {
		scale = 1
	}
	w := int(math.Round(bounds.Width * scale))
	h := int(math.Round(bounds.Height * scale))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("empty document %vx%v", bounds.Width, bounds.Height)
	}
	if w > maxRasterSide || h > maxRasterSide || w*h > maxRasterPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, w, h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	device := geom.Scale(scale, scale).Multiply(geom.Translate(-bounds.X, -bounds.Y))

	r := &rasterizer{dst: dst, device: device}
	for _, cmd := range scene.Compile(s) {
		switch cmd.Op {
		case "path":
			r.path(cmd)
		case "text":
			r.text(cmd)
		case "image":
			r.image(cmd)
		}
	}
	return dst, nil
}

type rasterizer struct {
	dst    *image.RGBA
	device geom.Matrix2D
	z      *vector.Rasterizer
}

func (r *rasterizer) reset() *vector.Rasterizer {
	b := r.dst.Bounds()
	if r.z == nil {
		r.z = vector.NewRasterizer(b.Dx(), b.Dy())
	} else {
		r.z.Reset(b.Dx(), b.Dy())
	}
	r.z.DrawOp = draw.Over
	return r.z
}

func (r *rasterizer) fill(c color.NRGBA) {
	r.z.Draw(r.dst, r.dst.Bounds(), image.NewUniform(c), image.Point{})
}

func (r *rasterizer) path(cmd scene.DrawCommand) {
	m := r.device.Multiply(cmd.Matrix())

	if c, ok := ParseColor(cmd.Fill); ok {
		z := r.reset()
		for _, pc := range cmd.Path {
			op, _ := pc[0].(string)
			switch op {
			case "M":
				x, y := m.TransformPoint(scene.PathNumber(pc, 1), scene.PathNumber(pc, 2))
				z.MoveTo(float32(x), float32(y))
			case "L":
				x, y := m.TransformPoint(scene.PathNumber(pc, 1), scene.PathNumber(pc, 2))
				z.LineTo(float32(x), float32(y))
			case "C":
				x1, y1 := m.TransformPoint(scene.PathNumber(pc, 1), scene.PathNumber(pc, 2))
				x2, y2 := m.TransformPoint(scene.PathNumber(pc, 3), scene.PathNumber(pc, 4))
				x, y := m.TransformPoint(scene.PathNumber(pc, 5), scene.PathNumber(pc, 6))
				z.CubeTo(float32(x1), float32(y1), float32(x2), float32(y2), float32(x), float32(y))
			case "Z":
				z.ClosePath()
			}
		}
		r.fill(withOpacity(c, cmd.Opacity))
	}

	if c, ok := ParseColor(cmd.Stroke); ok && cmd.StrokeWidth > 0 {
		width := cmd.StrokeWidth * math.Sqrt(math.Abs(m.Determinant()))
		z := r.reset()
		for _, poly := range flatten(cmd.Path) {
			for i := 1; i < len(poly); i++ {
				a, b := m.Apply(poly[i-1]), m.Apply(poly[i])
				segment(z, a, b, width)
			}
		}
		r.fill(withOpacity(c, cmd.Opacity))
	}
}

// flatten converts path commands into polylines in local coordinates.
func flatten(path []scene.PathCommand) [][]geom.Point {
	var out [][]geom.Point
	var cur []geom.Point
	var start geom.Point
	for _, pc := range path {
		op, _ := pc[0].(string)
		switch op {
		case "M":
			if len(cur) > 1 {
				out = append(out, cur)
			}
			start = geom.Point{X: scene.PathNumber(pc, 1), Y: scene.PathNumber(pc, 2)}
			cur = []geom.Point{start}
		case "L":
			cur = append(cur, geom.Point{X: scene.PathNumber(pc, 1), Y: scene.PathNumber(pc, 2)})
		case "C":
			if len(cur) == 0 {
				continue
			}
			p0 := cur[len(cur)-1]
			p1 := geom.Point{X: scene.PathNumber(pc, 1), Y: scene.PathNumber(pc, 2)}
			p2 := geom.Point{X: scene.PathNumber(pc, 3), Y: scene.PathNumber(pc, 4)}
			p3 := geom.Point{X: scene.PathNumber(pc, 5), Y: scene.PathNumber(pc, 6)}
			for i := 1; i <= curveSteps; i++ {
				cur = append(cur, cubic(p0, p1, p2, p3, float64(i)/curveSteps))
			}
		case "Z":
			if len(cur) > 0 {
				cur = append(cur, start)
			}
		}
	}
	if len(cur) > 1 {
		out = append(out, cur)
	}
	return out
}

func cubic(p0, p1, p2, p3 geom.Point, t float64) geom.Point {
	mt := 1 - t
	a, b, c, d := mt*mt*mt, 3*mt*mt*t, 3*mt*t*t, t*t*t
	return geom.Point{
		X: a*p0.X + b*p1.X + c*p2.X + d*p3.X,
		Y: a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
	}
}

// segment adds a square-capped quad covering the line a-b. All quads share
// the same winding so overlaps at joins do not cancel out.
func segment(z *vector.Rasterizer, a, b geom.Point, width float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	hw := width / 2
	ux, uy := dx/l*hw, dy/l*hw
	nx, ny := -uy, ux
	a = geom.Point{X: a.X - ux, Y: a.Y - uy}
	b = geom.Point{X: b.X + ux, Y: b.Y + uy}
	z.MoveTo(float32(a.X+nx), float32(a.Y+ny))
	z.LineTo(float32(b.X+nx), float32(b.Y+ny))
	z.LineTo(float32(b.X-nx), float32(b.Y-ny))
	z.LineTo(float32(a.X-nx), float32(a.Y-ny))
	z.ClosePath()
}

func (r *rasterizer) image(cmd scene.DrawCommand) {
	src, err := imaging.DecodeDataURL(cmd.ImageSrc)
	if err != nil {
		return
	}
	sb := src.Bounds()
	if sb.Empty() || cmd.Width <= 0 || cmd.Height <= 0 {
		return
	}
	m := r.device.Multiply(cmd.Matrix()).
		Multiply(geom.Scale(cmd.Width/float64(sb.Dx()), cmd.Height/float64(sb.Dy()))).
		Multiply(geom.Translate(-float64(sb.Min.X), -float64(sb.Min.Y)))
	r.composite(m, src, sb, cmd.Opacity)
}

// composite draws src through the affine m onto the destination.
func (r *rasterizer) composite(m geom.Matrix2D, src image.Image, sr image.Rectangle, opacity float64) {
	var opts *draw.Options
	if opacity < 1 {
		opts = &draw.Options{SrcMask: image.NewUniform(color.Alpha{A: uint8(clamp(opacity, 0, 1)*255 + 0.5)})}
	}
	draw.BiLinear.Transform(r.dst, aff3(m), src, sr, draw.Over, opts)
}

func aff3(m geom.Matrix2D) f64.Aff3 {
	return f64.Aff3{m[0], m[2], m[4], m[1], m[3], m[5]}
}
