//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"syscall/js"

	"github.com/inamate/canvas/internal/agent"
	"github.com/inamate/canvas/internal/design"
	"github.com/inamate/canvas/internal/document"
	"github.com/inamate/canvas/internal/drawing"
	"github.com/inamate/canvas/internal/export"
	"github.com/inamate/canvas/internal/geom"
	"github.com/inamate/canvas/internal/store"
)

var (
	workspace *design.Workspace
	router    *agent.Router
	// listeners are JS callbacks registered through onEvent.
	listeners []js.Value
	unsubs    = map[string]func(){}
)

func main() {
	workspace = design.NewWorkspace(store.NewMemory(), document.DefaultDefaults(), design.Options{})
	router = agent.NewRouter(workspace.Active, nil)

	canvasEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	canvasEngine.Set("createDesign", js.FuncOf(createDesign))
	canvasEngine.Set("loadDesign", js.FuncOf(loadDesign))
	canvasEngine.Set("loadSampleDesign", js.FuncOf(loadSampleDesign))
	canvasEngine.Set("closeDesign", js.FuncOf(closeDesign))
	canvasEngine.Set("setActive", js.FuncOf(setActive))
	canvasEngine.Set("callTool", js.FuncOf(callTool))
	canvasEngine.Set("setTool", js.FuncOf(setTool))
	canvasEngine.Set("pointerDown", js.FuncOf(pointer((*design.Manager).PointerDown)))
	canvasEngine.Set("pointerMove", js.FuncOf(pointer((*design.Manager).PointerMove)))
	canvasEngine.Set("pointerUp", js.FuncOf(pointer((*design.Manager).PointerUp)))
	canvasEngine.Set("cancelInteraction", js.FuncOf(cancelInteraction))
	canvasEngine.Set("wheel", js.FuncOf(wheel))
	canvasEngine.Set("setViewport", js.FuncOf(setViewport))
	canvasEngine.Set("copy", js.FuncOf(copySelection))
	canvasEngine.Set("paste", js.FuncOf(paste))
	canvasEngine.Set("removeSelected", js.FuncOf(removeSelected))
	canvasEngine.Set("addImage", js.FuncOf(addImage))
	canvasEngine.Set("onEvent", js.FuncOf(onEvent))

	// --- Queries (frontend ← engine) ---
	canvasEngine.Set("render", js.FuncOf(render))
	canvasEngine.Set("hitTest", js.FuncOf(hitTest))
	canvasEngine.Set("getDesign", js.FuncOf(getDesign))
	canvasEngine.Set("getObjects", js.FuncOf(getObjects))
	canvasEngine.Set("getCamera", js.FuncOf(getCamera))
	canvasEngine.Set("getGuides", js.FuncOf(getGuides))
	canvasEngine.Set("getPreview", js.FuncOf(getPreview))
	canvasEngine.Set("getTools", js.FuncOf(getTools))
	canvasEngine.Set("exportDesign", js.FuncOf(exportDesign))

	js.Global().Set("canvasEngine", canvasEngine)
	js.Global().Set("canvasWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func errorResult(msg string) any {
	return js.ValueOf(map[string]any{"error": msg})
}

func toJSON(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult(err.Error())
	}
	return js.ValueOf(string(data))
}

func active() (*design.Manager, bool) { return workspace.Active() }

// watch forwards a design's events to the registered JS listeners.
func watch(m *design.Manager) {
	if _, ok := unsubs[m.ID()]; ok {
		return
	}
	unsubs[m.ID()] = m.Subscribe(func(ev design.Event) {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		for _, fn := range listeners {
			fn.Invoke(string(data))
		}
	})
}

// --- Command Handlers ---

func createDesign(this js.Value, args []js.Value) any {
	name, width, height := "", 0, 0
	if len(args) > 0 && args[0].Type() == js.TypeString {
		name = args[0].String()
	}
	if len(args) > 2 {
		width, height = args[1].Int(), args[2].Int()
	}
	m, err := workspace.Create(name, width, height)
	if err != nil {
		return errorResult(err.Error())
	}
	watch(m)
	return js.ValueOf(m.ID())
}

func loadDesign(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errorResult("missing design JSON")
	}
	var file document.Design
	if err := json.Unmarshal([]byte(args[0].String()), &file); err != nil {
		return errorResult(err.Error())
	}
	m, err := workspace.Adopt(&file)
	if err != nil {
		return errorResult(err.Error())
	}
	watch(m)
	return js.ValueOf(m.ID())
}

func loadSampleDesign(this js.Value, args []js.Value) any {
	id := "design_sample"
	if len(args) > 0 && args[0].Type() == js.TypeString {
		id = args[0].String()
	}
	file, err := document.NewSampleDesign(id)
	if err != nil {
		return errorResult(err.Error())
	}
	m, err := workspace.Adopt(file)
	if err != nil {
		return errorResult(err.Error())
	}
	watch(m)
	return js.ValueOf(m.ID())
}

func closeDesign(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errorResult("missing design id")
	}
	id := args[0].String()
	if unsub, ok := unsubs[id]; ok {
		unsub()
		delete(unsubs, id)
	}
	if err := workspace.Close(context.Background(), id); err != nil {
		return errorResult(err.Error())
	}
	return js.ValueOf(map[string]any{"ok": true})
}

func setActive(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	return js.ValueOf(workspace.SetActive(args[0].String()))
}

// callTool runs an agent tool: callTool(name, argsJSON) -> result JSON.
func callTool(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errorResult("missing tool name")
	}
	var raw json.RawMessage
	if len(args) > 1 && args[1].Type() == js.TypeString {
		raw = json.RawMessage(args[1].String())
	}
	return toJSON(router.Call(context.Background(), args[0].String(), raw))
}

func setTool(this js.Value, args []js.Value) any {
	m, ok := active()
	if !ok || len(args) < 1 {
		return js.ValueOf(false)
	}
	return js.ValueOf(m.SetTool(drawing.Tool(args[0].String())))
}

// pointer adapts a Manager pointer method: fn(x, y, shift, noSnap).
func pointer(fn func(*design.Manager, float64, float64, design.Modifiers) bool) func(js.Value, []js.Value) any {
	return func(this js.Value, args []js.Value) any {
		m, ok := active()
		if !ok || len(args) < 2 {
			return js.ValueOf(false)
		}
		var mods design.Modifiers
		if len(args) > 2 {
			mods.Shift = args[2].Truthy()
		}
		if len(args) > 3 {
			mods.NoSnap = args[3].Truthy()
		}
		return js.ValueOf(fn(m, args[0].Float(), args[1].Float(), mods))
	}
}

func cancelInteraction(this js.Value, args []js.Value) any {
	if m, ok := active(); ok {
		m.CancelInteraction()
	}
	return nil
}

func wheel(this js.Value, args []js.Value) any {
	m, ok := active()
	if !ok || len(args) < 3 {
		return js.ValueOf(false)
	}
	return js.ValueOf(m.Wheel(args[0].Float(), args[1].Float(), args[2].Float()))
}

func setViewport(this js.Value, args []js.Value) any {
	m, ok := active()
	if !ok || len(args) < 2 {
		return js.ValueOf(false)
	}
	return js.ValueOf(m.SetViewport(args[0].Float(), args[1].Float()))
}

func copySelection(this js.Value, args []js.Value) any {
	m, ok := active()
	if !ok {
		return js.ValueOf(false)
	}
	return js.ValueOf(m.Copy())
}

func paste(this js.Value, args []js.Value) any {
	m, ok := active()
	if !ok {
		return nil
	}
	ids, _ := m.Paste()
	return toJSON(ids)
}

func removeSelected(this js.Value, args []js.Value) any {
	m, ok := active()
	if !ok {
		return js.ValueOf(false)
	}
	return js.ValueOf(m.RemoveSelected())
}

// addImage(bytes Uint8Array, callback, [x, y, w, h]) decodes off the main
// loop and calls callback(layerId, error) when done.
func addImage(this js.Value, args []js.Value) any {
	m, ok := active()
	if !ok || len(args) < 2 {
		return js.ValueOf(false)
	}
	data := make([]byte, args[0].Get("length").Int())
	js.CopyBytesToGo(data, args[0])
	var target geom.Rect
	if len(args) > 5 {
		target = geom.Rect{X: args[2].Float(), Y: args[3].Float(), Width: args[4].Float(), Height: args[5].Float()}
	}
	callback := args[1]
	go func() {
		res := <-m.AddImage(context.Background(), data, target)
		if res.Err != nil {
			callback.Invoke(js.Null(), res.Err.Error())
			return
		}
		callback.Invoke(res.LayerID, js.Null())
	}()
	return js.ValueOf(true)
}

func onEvent(this js.Value, args []js.Value) any {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return js.ValueOf(false)
	}
	listeners = append(listeners, args[0])
	return js.ValueOf(true)
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) any {
	m, ok := active()
	if !ok {
		return js.ValueOf("[]")
	}
	return toJSON(m.DrawCommands())
}

func hitTest(this js.Value, args []js.Value) any {
	m, ok := active()
	if !ok || len(args) < 2 {
		return js.Null()
	}
	id, hit := m.HitTest(args[0].Float(), args[1].Float())
	if !hit {
		return js.Null()
	}
	return js.ValueOf(id)
}

func getDesign(this js.Value, args []js.Value) any {
	m, ok := active()
	if !ok {
		return js.Null()
	}
	file, err := m.File()
	if err != nil {
		return errorResult(err.Error())
	}
	return toJSON(file)
}

func getObjects(this js.Value, args []js.Value) any {
	m, ok := active()
	if !ok {
		return js.ValueOf("[]")
	}
	return toJSON(m.Objects())
}

func getCamera(this js.Value, args []js.Value) any {
	m, ok := active()
	if !ok {
		return js.Null()
	}
	return toJSON(m.Camera())
}

func getGuides(this js.Value, args []js.Value) any {
	m, ok := active()
	if !ok {
		return js.ValueOf("[]")
	}
	return toJSON(m.Guides())
}

func getPreview(this js.Value, args []js.Value) any {
	m, ok := active()
	if !ok {
		return js.Null()
	}
	r, busy := m.Preview()
	if !busy {
		return js.Null()
	}
	return toJSON(r)
}

func getTools(this js.Value, args []js.Value) any {
	return toJSON(router.Tools())
}

// exportDesign(format) returns a Uint8Array.
func exportDesign(this js.Value, args []js.Value) any {
	m, ok := active()
	if !ok || len(args) < 1 {
		return errorResult("no active design")
	}
	f, err := export.ParseFormat(args[0].String())
	if err != nil {
		return errorResult(err.Error())
	}
	data, err := m.Export(f, export.Options{})
	if err != nil {
		return errorResult(err.Error())
	}
	arr := js.Global().Get("Uint8Array").New(len(data))
	js.CopyBytesToJS(arr, data)
	return arr
}
