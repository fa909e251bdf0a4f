package design

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	_ "image/png"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/inamate/canvas/internal/document"
	"github.com/inamate/canvas/internal/drawing"
	"github.com/inamate/canvas/internal/export"
	"github.com/inamate/canvas/internal/geom"
	"github.com/inamate/canvas/internal/scene"
)

func newTestManager(t *testing.T, w, h int) *Manager {
	t.Helper()
	m, err := New("test", w, h, document.DefaultDefaults(), Options{})
	if err != nil {
		t.Fatalf("new design: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

// screen converts a scene point to screen coordinates through the camera.
func screen(m *Manager, x, y float64) (float64, float64) {
	return m.camera.SceneToScreen(x, y)
}

func TestCreateDuplicateUndoRedo(t *testing.T) {
	m := newTestManager(t, 800, 600)

	id, ok := m.CreateShape(scene.KindRect, geom.Rect{X: 50, Y: 50, Width: 100, Height: 80}, nil)
	if !ok {
		t.Fatalf("expected rect to be created")
	}
	dupID, ok := m.DuplicateActive()
	if !ok {
		t.Fatalf("expected duplicate to succeed")
	}
	if dupID == id {
		t.Fatalf("expected a new layer id for the duplicate")
	}
	dup, _ := m.Object(dupID)
	if dup.Bounds.X != 70 || dup.Bounds.Y != 70 {
		t.Fatalf("expected duplicate at (70,70), got (%v,%v)", dup.Bounds.X, dup.Bounds.Y)
	}
	orig, _ := m.Object(id)
	if dup.Name != orig.Name+" Copy" {
		t.Fatalf("expected name %q, got %q", orig.Name+" Copy", dup.Name)
	}
	if dup.Index != orig.Index+1 {
		t.Fatalf("expected duplicate directly above original, got index %d vs %d", dup.Index, orig.Index)
	}

	if !m.Undo() {
		t.Fatalf("expected undo to succeed")
	}
	if _, ok := m.Object(dupID); ok {
		t.Fatalf("expected duplicate gone after undo")
	}
	if _, ok := m.Object(id); !ok {
		t.Fatalf("expected original kept after undo")
	}
	if !m.Redo() {
		t.Fatalf("expected redo to succeed")
	}
	again, ok := m.Object(dupID)
	if !ok {
		t.Fatalf("expected duplicate restored with the same id")
	}
	if again.Bounds.X != 70 || again.Bounds.Y != 70 {
		t.Fatalf("expected restored duplicate at (70,70), got (%v,%v)", again.Bounds.X, again.Bounds.Y)
	}
	if !m.layers.Consistent() {
		t.Fatalf("registry and scene diverged after redo")
	}
}

func TestRedoTruncatedByNewEdit(t *testing.T) {
	m := newTestManager(t, 400, 400)
	m.CreateShape(scene.KindRect, geom.Rect{X: 10, Y: 10, Width: 20, Height: 20}, nil)
	m.CreateShape(scene.KindEllipse, geom.Rect{X: 40, Y: 40, Width: 20, Height: 20}, nil)
	m.Undo()
	if !m.CanRedo() {
		t.Fatalf("expected redo available after undo")
	}
	m.CreateShape(scene.KindRect, geom.Rect{X: 90, Y: 90, Width: 20, Height: 20}, nil)
	if m.CanRedo() {
		t.Fatalf("expected redo branch truncated by a new edit")
	}
	if got := len(m.Layers()); got != 2 {
		t.Fatalf("expected 2 layers, got %d", got)
	}
}

func TestUpdateSelectedAndBase(t *testing.T) {
	m := newTestManager(t, 400, 400)
	id, _ := m.CreateShape(scene.KindRect, geom.Rect{X: 10, Y: 10, Width: 20, Height: 20}, nil)
	before := m.HistoryState().Length

	if !m.UpdateSelected(map[string]any{"fill": "#123456"}) {
		t.Fatalf("expected patch on selection")
	}
	info, _ := m.Object(id)
	if info.Props["fill"] != "#123456" {
		t.Fatalf("expected fill patched, got %v", info.Props["fill"])
	}
	if got := m.HistoryState().Length; got != before+1 {
		t.Fatalf("expected one snapshot per patch, got %d -> %d", before, got)
	}

	m.ClearSelection()
	if !m.UpdateSelected(map[string]any{"background": "#000000", "width": 500.0}) {
		t.Fatalf("expected canvas-level patch")
	}
	b, _ := m.Bounds()
	if b.Width != 500 || m.scene.Base().Fill != "#000000" {
		t.Fatalf("expected base 500 wide and black, got %v %q", b.Width, m.scene.Base().Fill)
	}
}

func TestResizeClampsObjects(t *testing.T) {
	m := newTestManager(t, 300, 300)
	id, _ := m.CreateShape(scene.KindRect, geom.Rect{X: 150, Y: 50, Width: 100, Height: 100}, nil)
	if !m.Resize(200, 200) {
		t.Fatalf("expected resize to succeed")
	}
	info, _ := m.Object(id)
	if info.Bounds.X != 100 || info.Bounds.Y != 50 {
		t.Fatalf("expected object clamped to (100,50), got (%v,%v)", info.Bounds.X, info.Bounds.Y)
	}
	if m.camera.Boundary().Width != 200 {
		t.Fatalf("expected camera boundary updated")
	}
}

func TestRemoveAndReorder(t *testing.T) {
	m := newTestManager(t, 400, 400)
	a, _ := m.CreateShape(scene.KindRect, geom.Rect{Width: 10, Height: 10}, nil)
	b, _ := m.CreateShape(scene.KindRect, geom.Rect{Width: 10, Height: 10}, nil)
	c, _ := m.CreateShape(scene.KindRect, geom.Rect{Width: 10, Height: 10}, nil)

	if m.ReorderLayer("layer_nope", 0) || m.ReorderLayer(a, 0) {
		t.Fatalf("expected unknown id and unchanged index to be no-ops")
	}
	if !m.BringToFront(a) {
		t.Fatalf("expected bring to front")
	}
	ids := []string{}
	for _, l := range m.Layers() {
		ids = append(ids, l.ID)
	}
	if ids[0] != b || ids[1] != c || ids[2] != a {
		t.Fatalf("unexpected order %v", ids)
	}
	if !m.scene.Objects()[0].IsBase() {
		t.Fatalf("expected base pinned at index 0")
	}

	m.SelectLayer(c)
	if !m.RemoveSelected() {
		t.Fatalf("expected removal")
	}
	if _, ok := m.Object(c); ok || len(m.Selection()) != 0 {
		t.Fatalf("expected layer and selection gone")
	}
	if !m.layers.Consistent() {
		t.Fatalf("registry and scene diverged")
	}
}

func TestGroupUngroupKeepsPositions(t *testing.T) {
	m := newTestManager(t, 400, 400)
	a, _ := m.CreateShape(scene.KindRect, geom.Rect{X: 10, Y: 20, Width: 30, Height: 30}, nil)
	b, _ := m.CreateShape(scene.KindEllipse, geom.Rect{X: 100, Y: 120, Width: 40, Height: 20}, nil)
	m.SelectLayers(a, b)

	gid, ok := m.Group()
	if !ok {
		t.Fatalf("expected group to succeed")
	}
	g, _ := m.Object(gid)
	if g.Kind != scene.KindGroup || len(m.Layers()) != 1 {
		t.Fatalf("expected a single group layer, got %v with %d layers", g.Kind, len(m.Layers()))
	}
	if g.Bounds != (geom.Rect{X: 10, Y: 20, Width: 130, Height: 120}) {
		t.Fatalf("unexpected group bounds %+v", g.Bounds)
	}

	ids, ok := m.Ungroup()
	if !ok || len(ids) != 2 {
		t.Fatalf("expected two layers back, got %v", ids)
	}
	first, _ := m.Object(ids[0])
	second, _ := m.Object(ids[1])
	if !approx(first.Bounds.X, 10) || !approx(first.Bounds.Y, 20) {
		t.Fatalf("expected first child at (10,20), got %+v", first.Bounds)
	}
	if !approx(second.Bounds.X, 100) || !approx(second.Bounds.Y, 120) {
		t.Fatalf("expected second child at (100,120), got %+v", second.Bounds)
	}
}

func TestAlignAndDistribute(t *testing.T) {
	m := newTestManager(t, 600, 600)
	a, _ := m.CreateShape(scene.KindRect, geom.Rect{X: 0, Y: 0, Width: 10, Height: 10}, nil)
	b, _ := m.CreateShape(scene.KindRect, geom.Rect{X: 30, Y: 50, Width: 10, Height: 10}, nil)
	c, _ := m.CreateShape(scene.KindRect, geom.Rect{X: 100, Y: 90, Width: 10, Height: 10}, nil)

	m.SelectLayers(a, b, c)
	if !m.Distribute(AxisHorizontal) {
		t.Fatalf("expected distribute to move the middle object")
	}
	mid, _ := m.Object(b)
	if mid.Bounds.X != 50 {
		t.Fatalf("expected middle object at x=50, got %v", mid.Bounds.X)
	}

	if !m.Align(AlignTop) {
		t.Fatalf("expected align to move objects")
	}
	for _, id := range []string{a, b, c} {
		if o, _ := m.Object(id); o.Bounds.Y != 0 {
			t.Fatalf("expected %s aligned to top, got y=%v", id, o.Bounds.Y)
		}
	}

	m.SelectLayer(c)
	m.Align(AlignRight)
	if o, _ := m.Object(c); o.Bounds.Right() != 600 {
		t.Fatalf("expected single object aligned to the document edge, got %v", o.Bounds.Right())
	}
}

func TestCopyPasteCascades(t *testing.T) {
	m := newTestManager(t, 400, 400)
	m.CreateShape(scene.KindRect, geom.Rect{X: 10, Y: 10, Width: 20, Height: 20}, nil)
	if !m.Copy() {
		t.Fatalf("expected copy")
	}
	first, _ := m.Paste()
	second, _ := m.Paste()
	p1, _ := m.Object(first[0])
	p2, _ := m.Object(second[0])
	if p1.Bounds.X != 30 || p2.Bounds.X != 50 {
		t.Fatalf("expected cascading pastes at 30 and 50, got %v and %v", p1.Bounds.X, p2.Bounds.X)
	}
}

func TestDrawRectWithPointer(t *testing.T) {
	m := newTestManager(t, 400, 400)
	m.SetTool(drawing.ToolRect)

	var events []EventType
	m.Subscribe(func(e Event) { events = append(events, e.Type) })

	x0, y0 := screen(m, 50, 60)
	x1, y1 := screen(m, 150, 130)
	m.PointerDown(x0, y0, Modifiers{})
	m.PointerMove(x1, y1, Modifiers{})
	if r, ok := m.Preview(); !ok || !approx(r.Width, 100) {
		t.Fatalf("expected preview 100 wide, got %+v", r)
	}
	m.PointerUp(x1, y1, Modifiers{})

	objs := m.Objects()
	if len(objs) != 1 || objs[0].Kind != scene.KindRect {
		t.Fatalf("expected one rect, got %+v", objs)
	}
	b := objs[0].Bounds
	if !approx(b.X, 50) || !approx(b.Y, 60) || !approx(b.Width, 100) || !approx(b.Height, 70) {
		t.Fatalf("unexpected committed bounds %+v", b)
	}
	if m.Tool() != drawing.ToolSelect {
		t.Fatalf("expected tool reverted to select, got %s", m.Tool())
	}
	lastChanged, toolAt := -1, -1
	for i, e := range events {
		switch e {
		case EventChanged:
			lastChanged = i
		case EventTool:
			toolAt = i
		}
	}
	if toolAt < 0 || toolAt < lastChanged {
		t.Fatalf("expected tool.changed after the commit, got %v", events)
	}
}

func TestDrawBelowMinSizeDiscards(t *testing.T) {
	m := newTestManager(t, 400, 400)
	m.SetTool(drawing.ToolEllipse)
	x0, y0 := screen(m, 50, 50)
	x1, y1 := screen(m, 200, 55)
	m.PointerDown(x0, y0, Modifiers{})
	m.PointerUp(x1, y1, Modifiers{})
	if len(m.Objects()) != 0 {
		t.Fatalf("expected no object for a box under the minimum height")
	}
	if m.Tool() != drawing.ToolEllipse {
		t.Fatalf("expected tool kept after a discarded draw, got %s", m.Tool())
	}
}

func TestImageToolRequestsPick(t *testing.T) {
	m := newTestManager(t, 400, 400)
	m.SetTool(drawing.ToolImage)
	var pick *geom.Rect
	m.Subscribe(func(e Event) {
		if e.Type == EventImagePick {
			pick = e.Rect
		}
	})
	x0, y0 := screen(m, 10, 10)
	x1, y1 := screen(m, 110, 60)
	m.PointerDown(x0, y0, Modifiers{})
	m.PointerUp(x1, y1, Modifiers{})
	if pick == nil || !approx(pick.Width, 100) || !approx(pick.Height, 50) {
		t.Fatalf("expected image.pick bound to the dragged box, got %+v", pick)
	}
}

func TestDragMoveSnapsAndCommitsOnce(t *testing.T) {
	m := newTestManager(t, 1000, 1000)
	a, _ := m.CreateShape(scene.KindRect, geom.Rect{X: 100, Y: 100, Width: 100, Height: 100}, nil)
	m.CreateShape(scene.KindRect, geom.Rect{X: 255, Y: 400, Width: 50, Height: 50}, nil)
	before := m.HistoryState().Length

	sx, sy := screen(m, 150, 150)
	ex, ey := screen(m, 203, 150)
	m.PointerDown(sx, sy, Modifiers{})
	m.PointerMove(ex, ey, Modifiers{})
	if len(m.Guides()) == 0 {
		t.Fatalf("expected a snap guide during the drag")
	}
	m.PointerUp(ex, ey, Modifiers{})

	info, _ := m.Object(a)
	if !approx(info.Bounds.X, 155) || !approx(info.Bounds.Y, 100) {
		t.Fatalf("expected snapped position (155,100), got (%v,%v)", info.Bounds.X, info.Bounds.Y)
	}
	if len(m.Guides()) != 0 {
		t.Fatalf("expected guides dropped at drag end")
	}
	if got := m.HistoryState().Length; got != before+1 {
		t.Fatalf("expected one snapshot for the drag, got %d -> %d", before, got)
	}
}

func TestCancelRestoresDrag(t *testing.T) {
	m := newTestManager(t, 1000, 1000)
	a, _ := m.CreateShape(scene.KindRect, geom.Rect{X: 500, Y: 500, Width: 40, Height: 40}, nil)
	sx, sy := screen(m, 520, 520)
	ex, ey := screen(m, 600, 700)
	m.PointerDown(sx, sy, Modifiers{})
	m.PointerMove(ex, ey, Modifiers{NoSnap: true})
	m.CancelInteraction()
	info, _ := m.Object(a)
	if info.Bounds.X != 500 || info.Bounds.Y != 500 {
		t.Fatalf("expected object back at (500,500), got (%v,%v)", info.Bounds.X, info.Bounds.Y)
	}
}

func TestResizeHandle(t *testing.T) {
	m := newTestManager(t, 1000, 1000)
	a, _ := m.CreateShape(scene.KindRect, geom.Rect{X: 500, Y: 500, Width: 40, Height: 40}, nil)
	sx, sy := screen(m, 540, 540)
	ex, ey := screen(m, 620, 580)
	m.PointerDown(sx, sy, Modifiers{})
	m.PointerMove(ex, ey, Modifiers{NoSnap: true})
	m.PointerUp(ex, ey, Modifiers{NoSnap: true})
	info, _ := m.Object(a)
	if !approx(info.Bounds.Width, 120) || !approx(info.Bounds.Height, 80) {
		t.Fatalf("expected 120x80 after resize, got %+v", info.Bounds)
	}
}

func TestLockedCameraCentring(t *testing.T) {
	m := newTestManager(t, 1000, 1000)
	m.SetCameraLocked(true)
	m.SetZoom(100)
	st := m.Camera()
	if st.Zoom != 3 {
		t.Fatalf("expected locked zoom clamped to 3, got %v", st.Zoom)
	}
	cx, cy := screen(m, 500, 500)
	if math.Abs(cx-640) > 1 || math.Abs(cy-400) > 1 {
		t.Fatalf("expected document centred at (640,400), got (%v,%v)", cx, cy)
	}
	if m.Pan(50, 50) {
		t.Fatalf("expected pan ignored while locked")
	}
}

func TestExportMatchesDocumentSize(t *testing.T) {
	m := newTestManager(t, 120, 80)
	m.CreateShape(scene.KindRect, geom.Rect{X: 10, Y: 10, Width: 30, Height: 30}, nil)
	data, err := m.Export(export.FormatPNG, export.Options{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if cfg.Width != 120 || cfg.Height != 80 {
		t.Fatalf("expected 120x80, got %dx%d", cfg.Width, cfg.Height)
	}

	raw, err := m.Export(export.FormatJSON, export.Options{})
	if err != nil {
		t.Fatalf("export json: %v", err)
	}
	var v map[string]any
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("expected valid json: %v", err)
	}
}

func TestClosedDesignIsNoop(t *testing.T) {
	m := newTestManager(t, 400, 400)
	m.Close()
	if _, ok := m.CreateShape(scene.KindRect, geom.Rect{}, nil); ok {
		t.Fatalf("expected create on a closed design to fail")
	}
	if m.Undo() || m.SetBackground("#000") {
		t.Fatalf("expected operations on a closed design to be no-ops")
	}
	if _, err := m.File(); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestFileRoundTrip(t *testing.T) {
	m := newTestManager(t, 400, 300)
	id, _ := m.CreateShape(scene.KindRect, geom.Rect{X: 5, Y: 5, Width: 50, Height: 50}, nil)
	m.ToggleLock(id)
	file, err := m.File()
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	reopened, err := Open(file, Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer reopened.Close()
	info, ok := reopened.Object(id)
	if !ok || !info.Locked {
		t.Fatalf("expected locked layer %s after reopen, got %+v", id, info)
	}
	if reopened.CanUndo() {
		t.Fatalf("expected fresh history after open")
	}
}

func pngFixture(t *testing.T) []byte {
	t.Helper()
	m := newTestManager(t, 40, 20)
	data, err := m.Export(export.FormatPNG, export.Options{})
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	return data
}

func TestAddImageFitsDocument(t *testing.T) {
	data := pngFixture(t)
	m := newTestManager(t, 20, 20)
	res := <-m.AddImage(context.Background(), data, geom.Rect{})
	if res.Err != nil {
		t.Fatalf("add image: %v", res.Err)
	}
	info, _ := m.Object(res.LayerID)
	if info.Kind != scene.KindImage || !approx(info.Bounds.Width, 16) || !approx(info.Bounds.Height, 8) {
		t.Fatalf("expected 16x8 image centred, got %+v", info.Bounds)
	}
	if !approx(info.Bounds.X, 2) || !approx(info.Bounds.Y, 6) {
		t.Fatalf("expected image centred at (2,6), got %+v", info.Bounds)
	}
}

func TestAddImageAfterCloseIsDropped(t *testing.T) {
	data := pngFixture(t)
	m := newTestManager(t, 400, 400)
	m.Close()
	res := <-m.AddImage(context.Background(), data, geom.Rect{})
	if res.Err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", res.Err)
	}

	m2 := newTestManager(t, 400, 400)
	res = <-m2.AddImage(context.Background(), []byte("not an image"), geom.Rect{})
	if res.Err == nil || len(m2.Objects()) != 0 {
		t.Fatalf("expected failed decode to leave the design unchanged")
	}
}

func TestConcurrentMutations(t *testing.T) {
	m := newTestManager(t, 1000, 1000)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.CreateShape(scene.KindRect, geom.Rect{X: float64(i * 10), Width: 10, Height: 10}, nil)
			m.ZoomIn()
		}(i)
	}
	wg.Wait()
	if len(m.Objects()) != 8 || !m.layers.Consistent() {
		t.Fatalf("expected 8 consistent layers, got %d", len(m.Objects()))
	}
}

type memStore struct {
	mu     sync.Mutex
	files  map[string]*document.Design
	onSave func()
}

func (s *memStore) Save(_ context.Context, d *document.Design) error {
	s.mu.Lock()
	s.files[d.ID] = d
	hook := s.onSave
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (s *memStore) Load(_ context.Context, id string) (*document.Design, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

func (s *memStore) List(context.Context) ([]document.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []document.Summary
	for _, d := range s.files {
		out = append(out, d.Summary())
	}
	return out, nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, id)
	return nil
}

func TestWorkspaceLifecycle(t *testing.T) {
	store := &memStore{files: map[string]*document.Design{}}
	ws := NewWorkspace(store, document.Defaults{Fill: "#ff0000"}, Options{})
	ctx := context.Background()

	a, err := ws.Create("", 300, 300)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, _ := ws.Create("second", 300, 300)
	if active, _ := ws.Active(); active != b {
		t.Fatalf("expected newest design active")
	}
	if a.Name() != "Untitled 1" {
		t.Fatalf("expected default name, got %q", a.Name())
	}
	id, _ := a.CreateShape(scene.KindRect, geom.Rect{Width: 10, Height: 10}, nil)
	if info, _ := a.Object(id); info.Props["fill"] != "#ff0000" {
		t.Fatalf("expected workspace defaults applied, got %v", info.Props["fill"])
	}

	if err := ws.Close(ctx, a.ID()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !a.Closed() {
		t.Fatalf("expected design closed")
	}
	if _, ok := store.files[a.ID()]; !ok {
		t.Fatalf("expected dirty design saved on close")
	}

	reopened, err := ws.Open(ctx, a.ID())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, ok := reopened.Object(id); !ok {
		t.Fatalf("expected layer %s after reopening", id)
	}

	list, _ := ws.List(ctx)
	if len(list) != 2 {
		t.Fatalf("expected 2 designs listed, got %d", len(list))
	}
	if err := ws.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !b.Closed() || len(store.files) != 2 {
		t.Fatalf("expected all designs flushed and closed")
	}
}

func TestAutosaveFlushesDirty(t *testing.T) {
	store := &memStore{files: map[string]*document.Design{}}
	ws := NewWorkspace(store, document.Defaults{}, Options{})
	m, _ := ws.Create("auto", 100, 100)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ws.Autosave(ctx, 5*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for m.Dirty() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if m.Dirty() {
		t.Fatalf("expected autosave to clean the design")
	}
	store.mu.Lock()
	_, ok := store.files[m.ID()]
	store.mu.Unlock()
	if !ok {
		t.Fatalf("expected design saved by autosave")
	}
}

func TestHidingThroughPatchSurvivesUndo(t *testing.T) {
	m := newTestManager(t, 400, 400)
	id, _ := m.CreateShape(scene.KindRect, geom.Rect{X: 10, Y: 10, Width: 50, Height: 50}, nil)
	if !m.UpdateSelected(map[string]any{"visible": false}) {
		t.Fatalf("expected visibility patch to apply")
	}
	l, _ := m.layers.Get(id)
	if l.Visible || l.Object.Visible {
		t.Fatalf("expected layer and object hidden, got layer=%v object=%v", l.Visible, l.Object.Visible)
	}
	m.CreateShape(scene.KindRect, geom.Rect{X: 100, Y: 100, Width: 50, Height: 50}, nil)
	if !m.Undo() {
		t.Fatalf("expected undo")
	}
	l, _ = m.layers.Get(id)
	if l.Visible || l.Object.Visible {
		t.Fatalf("expected layer still hidden after undo, got layer=%v object=%v", l.Visible, l.Object.Visible)
	}
	if !m.UpdateLayer(id, map[string]any{"visible": true}) {
		t.Fatalf("expected layer patch to show the object")
	}
	if l, _ = m.layers.Get(id); !l.Visible || !l.Object.Visible {
		t.Fatalf("expected layer visible again")
	}
}

func TestRepeatedIdenticalPatchIsNoop(t *testing.T) {
	m := newTestManager(t, 400, 400)
	id, _ := m.CreateShape(scene.KindRect, geom.Rect{X: 10, Y: 10, Width: 50, Height: 50}, nil)
	before := m.HistoryState().Length
	if !m.UpdateSelected(map[string]any{"fill": "#ff0000"}) {
		t.Fatalf("expected first patch to apply")
	}
	for i := 0; i < 2; i++ {
		if m.UpdateSelected(map[string]any{"fill": "#ff0000"}) {
			t.Fatalf("expected identical patch to report no change")
		}
	}
	if got := m.HistoryState().Length; got != before+1 {
		t.Fatalf("expected %d snapshots, got %d", before+1, got)
	}
	m.Undo()
	info, _ := m.Object(id)
	if info.Props["fill"] != "#d9d9d9" {
		t.Fatalf("expected fill restored by one undo, got %v", info.Props["fill"])
	}
}

func TestUndoKeepsLockedZoom(t *testing.T) {
	m := newTestManager(t, 400, 300)
	m.SetCameraLocked(true)
	m.ZoomIn()
	m.ZoomIn()
	zoom := m.Camera().Zoom
	m.CreateShape(scene.KindRect, geom.Rect{X: 10, Y: 10, Width: 50, Height: 50}, nil)
	if !m.Undo() {
		t.Fatalf("expected undo")
	}
	if got := m.Camera().Zoom; got != zoom {
		t.Fatalf("expected zoom %v kept across undo, got %v", zoom, got)
	}
}

func TestOversizedDocumentRejected(t *testing.T) {
	m := newTestManager(t, 200, 100)
	m.ClearSelection()
	if m.UpdateSelected(map[string]any{"width": 1e9, "height": 1e9}) {
		t.Fatalf("expected oversized canvas patch to be rejected")
	}
	if m.Resize(document.MaxDimension+1, 100) {
		t.Fatalf("expected resize beyond %d to be rejected", document.MaxDimension)
	}
	b, _ := m.Bounds()
	if b.Width != 200 || b.Height != 100 {
		t.Fatalf("expected 200x100 kept, got %vx%v", b.Width, b.Height)
	}
	if _, err := m.Export(export.FormatPNG, export.Options{}); err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := New("huge", document.MaxDimension+1, 10, document.DefaultDefaults(), Options{}); !errors.Is(err, document.ErrInvalidDesign) {
		t.Fatalf("expected ErrInvalidDesign, got %v", err)
	}
}

func TestEditDuringSaveStaysDirty(t *testing.T) {
	store := &memStore{files: map[string]*document.Design{}}
	ws := NewWorkspace(store, document.Defaults{}, Options{})
	m, _ := ws.Create("racy", 100, 100)
	store.onSave = func() {
		store.onSave = nil
		m.Rename("edited while saving")
	}
	if err := ws.Save(context.Background(), m.ID()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !m.Dirty() {
		t.Fatalf("expected edit made during save to keep the design dirty")
	}
	if err := ws.Save(context.Background(), m.ID()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if m.Dirty() {
		t.Fatalf("expected second save to clean the design")
	}
	if got := store.files[m.ID()].Name; got != "edited while saving" {
		t.Fatalf("expected renamed design saved, got %q", got)
	}
}
