package agent

// JSON schemas for tool arguments. Tools without arguments share empty.
const (
	schemaEmpty = `{"type":"object"}`

	schemaShape = `{
  "type": "object",
  "required": ["x", "y"],
  "properties": {
    "x": {"type": "number"},
    "y": {"type": "number"},
    "width": {"type": "number", "minimum": 0},
    "height": {"type": "number", "minimum": 0},
    "fill": {"type": "string"},
    "stroke": {"type": "string"},
    "strokeWidth": {"type": "number", "minimum": 0},
    "opacity": {"type": "number", "minimum": 0, "maximum": 1},
    "angle": {"type": "number"}
  }
}`

	schemaText = `{
  "type": "object",
  "required": ["x", "y", "text"],
  "properties": {
    "x": {"type": "number"},
    "y": {"type": "number"},
    "text": {"type": "string", "minLength": 1},
    "fill": {"type": "string"},
    "fontSize": {"type": "number", "minimum": 0},
    "fontFamily": {"type": "string"},
    "fontWeight": {"type": "string"},
    "fontStyle": {"type": "string", "enum": ["normal", "italic"]},
    "textAlign": {"type": "string", "enum": ["left", "center", "right", "justify"]},
    "underline": {"type": "boolean"}
  }
}`

	schemaUpdate = `{
  "type": "object",
  "required": ["properties"],
  "properties": {
    "properties": {"type": "object", "minProperties": 1}
  }
}`

	schemaMove = `{
  "type": "object",
  "anyOf": [{"required": ["x"]}, {"required": ["y"]}],
  "properties": {
    "x": {"type": "number"},
    "y": {"type": "number"},
    "relative": {"type": "boolean"}
  }
}`

	schemaScale = `{
  "type": "object",
  "anyOf": [{"required": ["scale"]}, {"required": ["scaleX"]}, {"required": ["scaleY"]}],
  "properties": {
    "scale": {"type": "number", "minimum": 0},
    "scaleX": {"type": "number", "minimum": 0},
    "scaleY": {"type": "number", "minimum": 0},
    "relative": {"type": "boolean"}
  }
}`

	schemaRotate = `{
  "type": "object",
  "required": ["angle"],
  "properties": {
    "angle": {"type": "number"},
    "relative": {"type": "boolean"}
  }
}`

	schemaColor = `{
  "type": "object",
  "required": ["color"],
  "properties": {
    "color": {"type": "string", "minLength": 1}
  }
}`

	schemaSelect = `{
  "type": "object",
  "anyOf": [{"required": ["name"]}, {"required": ["index"]}],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "index": {"type": "integer", "minimum": 0}
  }
}`

	schemaAlign = `{
  "type": "object",
  "required": ["alignment"],
  "properties": {
    "alignment": {"type": "string", "enum": ["left", "center", "right", "top", "middle", "bottom"]}
  }
}`

	schemaDistribute = `{
  "type": "object",
  "required": ["direction"],
  "properties": {
    "direction": {"type": "string", "enum": ["horizontal", "vertical"]}
  }
}`

	schemaPan = `{
  "type": "object",
  "required": ["dx", "dy"],
  "properties": {
    "dx": {"type": "number"},
    "dy": {"type": "number"}
  }
}`
)
