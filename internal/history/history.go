// Package history keeps the undo/redo stack of a design as a list of full
// snapshots with a pointer at the current state.
package history

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/inamate/canvas/internal/layers"
	"github.com/inamate/canvas/internal/typeid"
)

// Snapshot is an immutable capture of the scene graph and the layer list.
type Snapshot struct {
	ID      string          `json:"id"`
	Scene   json.RawMessage `json:"scene"`
	Layers  []layers.Meta   `json:"layers"`
	TakenAt time.Time       `json:"takenAt"`
}

// Size estimates the memory held by the snapshot.
func (s Snapshot) Size() int {
	n := len(s.Scene)
	for _, l := range s.Layers {
		n += len(l.ID) + len(l.Name) + 2
	}
	return n
}

// Source produces and applies snapshots.
type Source interface {
	Capture() (Snapshot, error)
	Restore(Snapshot) error
}

// Config caps the stack. Zero values fall back to the defaults.
type Config struct {
	MaxDepth int
	MaxBytes int
}

const (
	DefaultMaxDepth = 100
	DefaultMaxBytes = 64 * 1024 * 1024
)

// State is the externally visible summary of the stack.
type State struct {
	Pointer int  `json:"pointer"`
	Length  int  `json:"length"`
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}

// Engine is not safe for concurrent use; the owning design serialises access.
type Engine struct {
	cfg        Config
	src        Source
	log        *slog.Logger
	stack      []Snapshot
	pointer    int
	restoring  bool
	totalBytes int
}

func New(src Source, cfg Config, logger *slog.Logger) *Engine {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, src: src, log: logger, pointer: -1}
}

// Snapshot captures the current state and pushes it. It does nothing while a
// restore is in flight.
func (e *Engine) Snapshot() bool {
	if e.restoring {
		return false
	}
	snap, err := e.src.Capture()
	if err != nil {
		e.log.Error("capture snapshot", "error", err)
		return false
	}
	e.Push(snap)
	return true
}

// Push appends snap after the pointer, discarding any redo branch, then
// enforces the depth and byte caps by dropping the oldest entries.
func (e *Engine) Push(snap Snapshot) {
	if e.restoring {
		return
	}
	if snap.ID == "" {
		snap.ID = typeid.NewSnapshotID()
	}
	if snap.TakenAt.IsZero() {
		snap.TakenAt = time.Now()
	}
	for _, dropped := range e.stack[e.pointer+1:] {
		e.totalBytes -= dropped.Size()
	}
	e.stack = append(e.stack[:e.pointer+1], snap)
	e.totalBytes += snap.Size()
	e.pointer = len(e.stack) - 1
	e.enforceCaps()
}

func (e *Engine) enforceCaps() {
	drop := 0
	if over := len(e.stack) - e.cfg.MaxDepth; over > 0 {
		drop = over
	}
	bytes := e.totalBytes
	for i := 0; i < drop; i++ {
		bytes -= e.stack[i].Size()
	}
	// The current state is never pruned.
	for bytes > e.cfg.MaxBytes && drop < e.pointer {
		bytes -= e.stack[drop].Size()
		drop++
	}
	if drop == 0 {
		return
	}
	e.stack = append([]Snapshot{}, e.stack[drop:]...)
	e.pointer -= drop
	e.totalBytes = bytes
}

// Undo steps back one snapshot and restores it.
func (e *Engine) Undo() bool {
	if !e.CanUndo() {
		return false
	}
	return e.moveTo(e.pointer - 1)
}

// Redo steps forward one snapshot and restores it.
func (e *Engine) Redo() bool {
	if !e.CanRedo() {
		return false
	}
	return e.moveTo(e.pointer + 1)
}

func (e *Engine) moveTo(i int) bool {
	if e.restoring {
		return false
	}
	e.restoring = true
	defer func() { e.restoring = false }()

	if err := e.src.Restore(e.stack[i]); err != nil {
		e.log.Error("restore snapshot", "snapshot", e.stack[i].ID, "error", err)
		return false
	}
	e.pointer = i
	return true
}

func (e *Engine) CanUndo() bool { return e.pointer > 0 }

func (e *Engine) CanRedo() bool { return e.pointer >= 0 && e.pointer < len(e.stack)-1 }

// Restoring reports whether a restore is in flight.
func (e *Engine) Restoring() bool { return e.restoring }

func (e *Engine) State() State {
	return State{
		Pointer: e.pointer,
		Length:  len(e.stack),
		CanUndo: e.CanUndo(),
		CanRedo: e.CanRedo(),
	}
}

// Current returns the snapshot at the pointer.
func (e *Engine) Current() (Snapshot, bool) {
	if e.pointer < 0 {
		return Snapshot{}, false
	}
	return e.stack[e.pointer], true
}

// Bytes returns the estimated memory held by the stack.
func (e *Engine) Bytes() int { return e.totalBytes }

// Reset drops every snapshot.
func (e *Engine) Reset() {
	e.stack = nil
	e.pointer = -1
	e.totalBytes = 0
}
