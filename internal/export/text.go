package export

import (
	"image"
	"image/color"
	"math"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/inamate/canvas/internal/geom"
	"github.com/inamate/canvas/internal/scene"
)

// Text is rendered with the Go fonts regardless of the requested family.
var (
	fontsOnce sync.Once
	fonts     map[string]*opentype.Font
	fontsErr  error
)

func loadFonts() {
	fonts = make(map[string]*opentype.Font, 4)
	for key, ttf := range map[string][]byte{
		"regular":    goregular.TTF,
		"bold":       gobold.TTF,
		"italic":     goitalic.TTF,
		"bolditalic": gobolditalic.TTF,
	} {
		f, err := opentype.Parse(ttf)
		if err != nil {
			fontsErr = err
			return
		}
		fonts[key] = f
	}
}

func fontFor(t *scene.TextProps) (*opentype.Font, error) {
	fontsOnce.Do(loadFonts)
	if fontsErr != nil {
		return nil, fontsErr
	}
	key := ""
	switch t.FontWeight {
	case "bold", "bolder", "600", "700", "800", "900":
		key = "bold"
	}
	if t.FontStyle == "italic" || t.FontStyle == "oblique" {
		key += "italic"
	}
	if key == "" {
		key = "regular"
	}
	return fonts[key], nil
}

// text renders the block into an offscreen image at device resolution and
// composites it through the object's transform.
func (r *rasterizer) text(cmd scene.DrawCommand) {
	t := cmd.Text
	if t == nil || cmd.Width <= 0 || cmd.Height <= 0 {
		return
	}
	m := r.device.Multiply(cmd.Matrix())
	k := math.Max(1, math.Sqrt(math.Abs(m.Determinant())))
	w, h := int(math.Ceil(cmd.Width*k)), int(math.Ceil(cmd.Height*k))
	if w <= 0 || h <= 0 || w > 16384 || h > 16384 {
		return
	}

	f, err := fontFor(t)
	if err != nil {
		return
	}
	size := t.FontSize * k
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return
	}
	defer face.Close()

	off := image.NewRGBA(image.Rect(0, 0, w, h))
	if bg, ok := ParseColor(t.BackgroundColor); ok {
		fillRect(off, off.Bounds(), bg)
	}

	fill, ok := ParseColor(cmd.Fill)
	if !ok {
		fill = color.NRGBA{A: 255}
	}
	lineHeight := size * t.LineHeight
	spacing := size * t.CharSpacing / 1000
	ascent := float64(face.Metrics().Ascent) / 64

	for i, line := range cmd.Lines {
		lw := measure(face, line, spacing)
		x := 0.0
		switch t.TextAlign {
		case "center":
			x = (float64(w) - lw) / 2
		case "right":
			x = float64(w) - lw
		}
		top := float64(i) * lineHeight
		baseline := top + (lineHeight-size)/2 + ascent

		if t.Shadow != nil {
			if sc, ok := ParseColor(t.Shadow.Color); ok {
				drawLine(off, face, line, x+t.Shadow.OffsetX*k, baseline+t.Shadow.OffsetY*k, spacing, sc)
			}
		}
		drawLine(off, face, line, x, baseline, spacing, fill)
		if t.Underline && lw > 0 {
			thick := math.Max(1, size/15)
			y := int(baseline + size/10)
			fillRect(off, image.Rect(int(x), y, int(x+lw), y+int(math.Ceil(thick))), fill)
		}
	}

	r.composite(m.Multiply(geom.Scale(1/k, 1/k)), off, off.Bounds(), cmd.Opacity)
}

func drawLine(dst *image.RGBA, face font.Face, line string, x, baseline, spacing float64, c color.NRGBA) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(baseline * 64)},
	}
	if spacing == 0 {
		d.DrawString(line)
		return
	}
	for _, ch := range line {
		d.DrawString(string(ch))
		d.Dot.X += fixed.Int26_6(spacing * 64)
	}
}

func measure(face font.Face, line string, spacing float64) float64 {
	w := float64(font.MeasureString(face, line)) / 64
	if n := len([]rune(line)); n > 0 {
		w += spacing * float64(n)
	}
	return w
}

func fillRect(dst *image.RGBA, r image.Rectangle, c color.NRGBA) {
	draw.Draw(dst, r.Intersect(dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Over)
}
