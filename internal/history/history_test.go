package history

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/inamate/canvas/internal/layers"
	"github.com/inamate/canvas/internal/scene"
)

// counterSource records the restored value so tests can follow the pointer.
type counterSource struct {
	value    int
	restored []int
	fail     bool
}

func (c *counterSource) Capture() (Snapshot, error) {
	data, _ := json.Marshal(c.value)
	return Snapshot{Scene: data}, nil
}

func (c *counterSource) Restore(s Snapshot) error {
	if c.fail {
		return errors.New("boom")
	}
	return json.Unmarshal(s.Scene, &c.value)
}

func TestUndoRedoWalkThePointer(t *testing.T) {
	src := &counterSource{}
	e := New(src, Config{}, nil)
	for i := 0; i < 3; i++ {
		src.value = i
		e.Snapshot()
	}
	if e.CanRedo() || !e.CanUndo() {
		t.Fatalf("unexpected state %+v", e.State())
	}

	e.Undo()
	e.Undo()
	if src.value != 0 {
		t.Fatalf("expected value 0 after two undos, got %d", src.value)
	}
	if e.Undo() {
		t.Fatalf("expected undo at the oldest snapshot to fail")
	}
	e.Redo()
	if src.value != 1 {
		t.Fatalf("expected value 1 after redo, got %d", src.value)
	}
}

func TestPushAfterUndoTruncatesRedo(t *testing.T) {
	src := &counterSource{}
	e := New(src, Config{}, nil)
	for i := 0; i < 3; i++ {
		src.value = i
		e.Snapshot()
	}
	e.Undo()
	src.value = 42
	e.Snapshot()

	st := e.State()
	if st.Length != 3 || st.Pointer != 2 || st.CanRedo {
		t.Fatalf("expected truncated stack of 3 at pointer 2, got %+v", st)
	}
}

func TestSnapshotSuppressedWhileRestoring(t *testing.T) {
	var e *Engine
	src := &reentrantSource{}
	e = New(src, Config{}, nil)
	src.engine = e
	e.Snapshot()
	e.Snapshot()
	e.Undo()
	if e.State().Length != 2 {
		t.Fatalf("snapshot during restore must be ignored, got %+v", e.State())
	}
}

type reentrantSource struct {
	engine *Engine
}

func (r *reentrantSource) Capture() (Snapshot, error) {
	return Snapshot{Scene: json.RawMessage(`{}`)}, nil
}

func (r *reentrantSource) Restore(Snapshot) error {
	r.engine.Snapshot()
	return nil
}

func TestDepthCapDropsOldest(t *testing.T) {
	src := &counterSource{}
	e := New(src, Config{MaxDepth: 3}, nil)
	for i := 0; i < 5; i++ {
		src.value = i
		e.Snapshot()
	}
	if e.State().Length != 3 {
		t.Fatalf("expected 3 snapshots, got %d", e.State().Length)
	}
	e.Undo()
	e.Undo()
	if src.value != 2 {
		t.Fatalf("expected oldest kept value 2, got %d", src.value)
	}
}

func TestByteCapKeepsCurrent(t *testing.T) {
	src := &counterSource{value: 1000000}
	e := New(src, Config{MaxBytes: 8}, nil)
	e.Snapshot()
	e.Snapshot()
	if e.State().Length != 1 || e.State().Pointer != 0 {
		t.Fatalf("expected only the current snapshot kept, got %+v", e.State())
	}
}

func TestFailedRestoreKeepsPointer(t *testing.T) {
	src := &counterSource{}
	e := New(src, Config{}, nil)
	e.Snapshot()
	e.Snapshot()
	src.fail = true
	if e.Undo() {
		t.Fatalf("expected undo to report failure")
	}
	if e.State().Pointer != 1 {
		t.Fatalf("expected pointer unchanged, got %d", e.State().Pointer)
	}
}

func TestSceneSourceRoundTrip(t *testing.T) {
	s := scene.New(scene.NewBase(400, 300, "#fff"))
	reg := layers.NewRegistry(s)
	e := New(SceneSource{Scene: s, Layers: reg}, Config{}, nil)
	e.Snapshot()

	o := scene.NewObject(scene.KindRect)
	o.Width, o.Height = 40, 40
	s.Add(o)
	l := reg.Add(layers.Layer{Object: o})
	reg.ToggleLock(l.ID)
	e.Snapshot()

	e.Undo()
	if reg.Len() != 0 || len(s.UserObjects()) != 0 {
		t.Fatalf("expected empty design after undo")
	}
	e.Redo()
	got, ok := reg.Get(l.ID)
	if !ok {
		t.Fatalf("expected layer %q back after redo", l.ID)
	}
	if !got.Locked || got.Object.Selectable {
		t.Fatalf("expected lock state restored")
	}
	if got.Object.Controls != scene.DefaultControls {
		t.Fatalf("expected decorations reapplied")
	}
	if !s.Objects()[0].IsBase() || !reg.Consistent() {
		t.Fatalf("expected base pinned and registry consistent")
	}
}
