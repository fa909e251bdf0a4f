package export

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/inamate/canvas/internal/scene"
)

// SVG renders the scene as a standalone SVG document whose width, height and
// viewBox equal the document boundary.
func SVG(s *scene.Scene) ([]byte, error) {
	bounds, err := Boundary(s)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" version="1.1" width="%s" height="%s" viewBox="%s %s %s %s">`+"\n",
		num(bounds.Width), num(bounds.Height), num(bounds.X), num(bounds.Y), num(bounds.Width), num(bounds.Height))

	for _, cmd := range scene.Compile(s) {
		switch cmd.Op {
		case "path":
			writePath(&b, cmd)
		case "text":
			writeText(&b, cmd)
		case "image":
			writeImage(&b, cmd)
		}
	}
	b.WriteString("</svg>\n")
	return []byte(b.String()), nil
}

func writePath(b *strings.Builder, cmd scene.DrawCommand) {
	fmt.Fprintf(b, `  <path d="%s" transform="%s"%s%s/>`+"\n",
		pathData(cmd.Path), matrixAttr(cmd), paintAttrs(cmd.Fill, cmd.Stroke, cmd.StrokeWidth), opacityAttr(cmd.Opacity))
}

func writeText(b *strings.Builder, cmd scene.DrawCommand) {
	t := cmd.Text
	anchor, x := "start", 0.0
	switch t.TextAlign {
	case "center":
		anchor, x = "middle", cmd.Width/2
	case "right":
		anchor, x = "end", cmd.Width
	}
	fmt.Fprintf(b, `  <g transform="%s"%s>`+"\n", matrixAttr(cmd), opacityAttr(cmd.Opacity))
	if t.BackgroundColor != "" {
		fmt.Fprintf(b, `    <rect width="%s" height="%s" fill="%s"/>`+"\n", num(cmd.Width), num(cmd.Height), attr(t.BackgroundColor))
	}
	fmt.Fprintf(b, `    <text font-family="%s" font-size="%s" font-weight="%s" font-style="%s" text-anchor="%s"%s xml:space="preserve"`,
		attr(t.FontFamily), num(t.FontSize), attr(t.FontWeight), attr(t.FontStyle), anchor, paintAttrs(cmd.Fill, cmd.Stroke, cmd.StrokeWidth))
	if t.Underline {
		b.WriteString(` text-decoration="underline"`)
	}
	if t.CharSpacing != 0 {
		fmt.Fprintf(b, ` letter-spacing="%s"`, num(t.FontSize*t.CharSpacing/1000))
	}
	b.WriteString(">")
	lh := t.FontSize * t.LineHeight
	for i, line := range cmd.Lines {
		// Baseline sits roughly 0.8em below the top of each line box.
		y := float64(i)*lh + t.FontSize*0.8 + (lh-t.FontSize)/2
		fmt.Fprintf(b, `<tspan x="%s" y="%s">`, num(x), num(y))
		xml.EscapeText(b, []byte(line))
		b.WriteString("</tspan>")
	}
	b.WriteString("</text>\n  </g>\n")
}

func writeImage(b *strings.Builder, cmd scene.DrawCommand) {
	fmt.Fprintf(b, `  <image width="%s" height="%s" preserveAspectRatio="none" xlink:href="%s" href="%s" transform="%s"%s/>`+"\n",
		num(cmd.Width), num(cmd.Height), attr(cmd.ImageSrc), attr(cmd.ImageSrc), matrixAttr(cmd), opacityAttr(cmd.Opacity))
}

func pathData(path []scene.PathCommand) string {
	var parts []string
	for _, pc := range path {
		if len(pc) == 0 {
			continue
		}
		op, _ := pc[0].(string)
		seg := []string{op}
		for i := 1; i < len(pc); i++ {
			seg = append(seg, num(scene.PathNumber(pc, i)))
		}
		parts = append(parts, strings.Join(seg, " "))
	}
	return strings.Join(parts, " ")
}

func matrixAttr(cmd scene.DrawCommand) string {
	m := cmd.Matrix()
	return fmt.Sprintf("matrix(%s %s %s %s %s %s)", num(m[0]), num(m[1]), num(m[2]), num(m[3]), num(m[4]), num(m[5]))
}

func paintAttrs(fill, stroke string, width float64) string {
	out := ` fill="none"`
	if _, ok := ParseColor(fill); ok {
		out = fmt.Sprintf(` fill="%s"`, attr(fill))
	}
	if _, ok := ParseColor(stroke); ok && width > 0 {
		out += fmt.Sprintf(` stroke="%s" stroke-width="%s"`, attr(stroke), num(width))
	}
	return out
}

func opacityAttr(o float64) string {
	if o >= 1 {
		return ""
	}
	return fmt.Sprintf(` opacity="%s"`, num(o))
}

func attr(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
