package scene

import (
	"encoding/json"
	"math"
	"sort"
)

// Apply patches the object with a partial property map and returns the keys
// whose value changed. Unknown keys, mistyped values and values equal to the
// current ones are skipped.
func (o *Object) Apply(changes map[string]any) []string {
	var applied []string
	set := func(key string, changed bool) {
		if changed {
			applied = append(applied, key)
		}
	}

	for key, raw := range changes {
		switch key {
		case "left", "x":
			if v, ok := toFloat64(raw); ok {
				set(key, setFloat(&o.Left, v))
			}
		case "top", "y":
			if v, ok := toFloat64(raw); ok {
				set(key, setFloat(&o.Top, v))
			}
		case "width":
			if v, ok := toFloat64(raw); ok && v > 0 {
				set(key, setFloat(&o.Width, v))
			}
		case "height":
			if v, ok := toFloat64(raw); ok && v > 0 {
				set(key, setFloat(&o.Height, v))
			}
		case "rx":
			if v, ok := toFloat64(raw); ok && v > 0 {
				set(key, setFloat(&o.Width, v*2))
			}
		case "ry":
			if v, ok := toFloat64(raw); ok && v > 0 {
				set(key, setFloat(&o.Height, v*2))
			}
		case "scaleX":
			if v, ok := toFloat64(raw); ok && v != 0 {
				set(key, setFloat(&o.ScaleX, v))
			}
		case "scaleY":
			if v, ok := toFloat64(raw); ok && v != 0 {
				set(key, setFloat(&o.ScaleY, v))
			}
		case "angle", "rotation":
			if v, ok := toFloat64(raw); ok {
				set(key, setFloat(&o.Angle, normalizeAngle(v)))
			}
		case "fill":
			if v, ok := raw.(string); ok {
				set(key, setString(&o.Fill, v))
			}
		case "stroke":
			if v, ok := raw.(string); ok {
				set(key, setString(&o.Stroke, v))
			}
		case "strokeWidth":
			if v, ok := toFloat64(raw); ok && v >= 0 {
				set(key, setFloat(&o.StrokeWidth, v))
			}
		case "opacity":
			if v, ok := toFloat64(raw); ok {
				set(key, setFloat(&o.Opacity, clamp01(v)))
			}
		case "visible":
			if v, ok := raw.(bool); ok {
				set(key, setBool(&o.Visible, v))
			}
		case "src":
			if v, ok := raw.(string); ok && o.Image != nil {
				set(key, setString(&o.Image.Src, v))
			}
		default:
			if o.Text != nil {
				set(key, o.applyText(key, raw))
			}
		}
	}

	if o.Kind == KindText {
		o.Relayout()
	}
	sort.Strings(applied)
	return applied
}

func setFloat(dst *float64, v float64) bool {
	if *dst == v {
		return false
	}
	*dst = v
	return true
}

func setString(dst *string, v string) bool {
	if *dst == v {
		return false
	}
	*dst = v
	return true
}

func setBool(dst *bool, v bool) bool {
	if *dst == v {
		return false
	}
	*dst = v
	return true
}

func (o *Object) applyText(key string, raw any) bool {
	t := o.Text
	switch key {
	case "text", "content":
		if v, ok := raw.(string); ok {
			return setString(&t.Content, v)
		}
	case "fontFamily":
		if v, ok := raw.(string); ok && v != "" {
			return setString(&t.FontFamily, v)
		}
	case "fontSize":
		if v, ok := toFloat64(raw); ok && v > 0 {
			return setFloat(&t.FontSize, v)
		}
	case "fontWeight":
		switch v := raw.(type) {
		case string:
			return setString(&t.FontWeight, v)
		case float64:
			return setString(&t.FontWeight, formatFloat(v))
		}
	case "fontStyle":
		if v, ok := raw.(string); ok {
			return setString(&t.FontStyle, v)
		}
	case "underline":
		if v, ok := raw.(bool); ok {
			return setBool(&t.Underline, v)
		}
	case "textAlign":
		if v, ok := raw.(string); ok {
			switch v {
			case "left", "center", "right", "justify":
				return setString(&t.TextAlign, v)
			}
		}
	case "lineHeight":
		if v, ok := toFloat64(raw); ok && v > 0 {
			return setFloat(&t.LineHeight, v)
		}
	case "charSpacing":
		if v, ok := toFloat64(raw); ok {
			return setFloat(&t.CharSpacing, v)
		}
	case "backgroundColor", "textBackgroundColor":
		if v, ok := raw.(string); ok {
			return setString(&t.BackgroundColor, v)
		}
	case "shadow":
		switch v := raw.(type) {
		case nil:
			if t.Shadow == nil {
				return false
			}
			t.Shadow = nil
			return true
		case map[string]any:
			s := Shadow{Color: "rgba(0,0,0,0.3)", Blur: 4, OffsetX: 2, OffsetY: 2}
			if t.Shadow != nil {
				s = *t.Shadow
			}
			if c, ok := v["color"].(string); ok {
				s.Color = c
			}
			if f, ok := toFloat64(v["blur"]); ok {
				s.Blur = f
			}
			if f, ok := toFloat64(v["offsetX"]); ok {
				s.OffsetX = f
			}
			if f, ok := toFloat64(v["offsetY"]); ok {
				s.OffsetY = f
			}
			if t.Shadow != nil && *t.Shadow == s {
				return false
			}
			t.Shadow = &s
			return true
		}
	}
	return false
}

// Properties returns the serialized property map of the object, the shape
// that query commands hand back to callers.
func (o *Object) Properties() map[string]any {
	data, err := json.Marshal(o)
	if err != nil {
		return map[string]any{"type": string(o.Kind)}
	}
	var props map[string]any
	if err := json.Unmarshal(data, &props); err != nil {
		return map[string]any{"type": string(o.Kind)}
	}
	b := o.Bounds()
	props["bounds"] = map[string]float64{"x": b.X, "y": b.Y, "width": b.Width, "height": b.Height}
	return props
}

// toFloat64 converts a decoded JSON number to float64.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func formatFloat(v float64) string {
	data, _ := json.Marshal(v)
	return string(data)
}
