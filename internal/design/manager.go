// Package design owns live designs: one scene, layer registry, history,
// camera and drawing state per design, serialised behind a mutex, plus the
// workspace that tracks open designs and the active one.
package design

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/inamate/canvas/internal/camera"
	"github.com/inamate/canvas/internal/document"
	"github.com/inamate/canvas/internal/drawing"
	"github.com/inamate/canvas/internal/geom"
	"github.com/inamate/canvas/internal/history"
	"github.com/inamate/canvas/internal/layers"
	"github.com/inamate/canvas/internal/scene"
	"github.com/inamate/canvas/internal/snap"
	"github.com/inamate/canvas/internal/typeid"
)

var (
	ErrClosed   = errors.New("design is closed")
	ErrNotFound = document.ErrNotFound
)

// PasteOffset is applied to duplicated and pasted objects.
const PasteOffset = 20.0

type Options struct {
	History       history.Config
	SnapThreshold float64
	ViewWidth     float64
	ViewHeight    float64
	Logger        *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.SnapThreshold <= 0 {
		o.SnapThreshold = snap.DefaultThreshold
	}
	if o.ViewWidth <= 0 {
		o.ViewWidth = 1280
	}
	if o.ViewHeight <= 0 {
		o.ViewHeight = 800
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

type Manager struct {
	mu sync.Mutex

	id        string
	name      string
	createdAt time.Time
	updatedAt time.Time

	scene    *scene.Scene
	layers   *layers.Registry
	history  *history.Engine
	camera   *camera.Controller
	drawing  *drawing.Machine
	defaults document.Defaults
	snapOpts snap.Options
	log      *slog.Logger

	clipboard []*scene.Object
	editing   *scene.Object
	drag      *dragState
	guides    []snap.Guide

	subs    map[int]Subscriber
	nextSub int
	outbox  []Event

	batch       int
	dirty       bool
	revision    uint64
	closed      bool
	toolChanged bool
	offScene    func()
}

// New creates an empty design of the given size.
func New(name string, width, height int, defaults document.Defaults, opts Options) (*Manager, error) {
	file, err := document.NewEmptyDesign(typeid.NewDesignID(), name, width, height, defaults)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	file.CreatedAt, file.UpdatedAt = now, now
	m, err := Open(file, opts)
	if err != nil {
		return nil, err
	}
	m.dirty = true
	return m, nil
}

// Open builds a live design from a design file. Objects that have no layer
// entry are adopted with default names; layer entries without an object are
// dropped.
func Open(file *document.Design, opts Options) (*Manager, error) {
	if err := file.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	s, err := scene.Decode(file.Scene)
	if err != nil {
		return nil, fmt.Errorf("open design %s: %w", file.ID, err)
	}
	reg := layers.NewRegistry(s)
	if dropped := reg.Rebuild(file.Layers); dropped > 0 {
		opts.Logger.Warn("dropped orphan layers", "design", file.ID, "count", dropped)
	}
	for _, o := range s.UserObjects() {
		if _, ok := reg.FindByObject(o); ok {
			continue
		}
		id := o.LayerID
		if _, taken := reg.Get(id); taken {
			id = ""
		}
		reg.Add(layers.Layer{ID: id, Object: o})
	}
	reg.Select("")
	reg.SyncPaintOrder()

	m := &Manager{
		id:       file.ID,
		name:     file.Name,
		scene:    s,
		layers:   reg,
		drawing:  drawing.New(),
		defaults: file.Defaults.Merge(document.DefaultDefaults()),
		snapOpts: snap.Options{Threshold: opts.SnapThreshold, Edges: true, Centers: true},
		log:      opts.Logger.With("design", file.ID),
		subs:     make(map[int]Subscriber),
	}
	m.createdAt = parseTime(file.CreatedAt)
	m.updatedAt = parseTime(file.UpdatedAt)

	m.camera = camera.New(opts.ViewWidth, opts.ViewHeight, s.Base().Bounds())
	m.camera.Restore(file.Camera)
	m.camera.OnChange(func(st camera.State) {
		m.queue(Event{Type: EventViewport, Camera: &st})
	})
	m.drawing.OnToolChange(func(drawing.Tool) { m.toolChanged = true })

	m.history = history.New(history.SceneSource{Scene: s, Layers: reg}, opts.History, m.log)
	m.offScene = s.On(m.onSceneEvent)
	m.history.Snapshot()
	return m, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Now().UTC()
	}
	return t
}

// onSceneEvent turns structural scene events into history snapshots. While
// a batch is open the enclosing operation takes one snapshot at its end.
func (m *Manager) onSceneEvent(e scene.Event) {
	switch e.Type {
	case scene.EventSelection:
		m.syncSelectedLayer()
		m.selectionChanged()
		return
	case scene.EventLoaded:
		return
	}
	if m.batch > 0 || m.history.Restoring() {
		return
	}
	m.commit()
}

// commit records a snapshot and marks the design changed.
func (m *Manager) commit() {
	m.history.Snapshot()
	m.touch()
	m.changed()
}

func (m *Manager) touch() {
	m.dirty = true
	m.revision++
	m.updatedAt = time.Now().UTC()
}

// mutate runs fn as one logical operation: scene events inside it do not
// snapshot, and a single snapshot is taken afterwards when fn reports a
// change. Callers hold m.mu.
func (m *Manager) mutate(fn func() bool) bool {
	m.batch++
	ok := fn()
	m.batch--
	if ok {
		m.commit()
	}
	return ok
}

// syncSelectedLayer mirrors a single active object onto the registry selection.
func (m *Manager) syncSelectedLayer() {
	if o := m.scene.ActiveObject(); o != nil {
		if l, ok := m.layers.FindByObject(o); ok {
			m.layers.Select(l.ID)
			return
		}
	}
	if len(m.scene.Active()) == 0 {
		m.layers.Select("")
	}
}

func (m *Manager) selectedIDs() []string {
	var ids []string
	for _, o := range m.scene.Active() {
		if l, ok := m.layers.FindByObject(o); ok {
			ids = append(ids, l.ID)
		}
	}
	return ids
}

// ready reports whether the design accepts operations. Callers hold m.mu.
func (m *Manager) ready() bool {
	return !m.closed && m.scene != nil && !m.scene.Disposed() && m.scene.Base() != nil
}

func (m *Manager) ID() string { return m.id }

func (m *Manager) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

// Rename changes the display name.
func (m *Manager) Rename(name string) bool {
	m.mu.Lock()
	defer m.unlock()
	if !m.ready() || name == "" {
		return false
	}
	m.name = name
	m.touch()
	m.changed()
	return true
}

func (m *Manager) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Dirty reports whether the design changed since the last MarkClean.
func (m *Manager) Dirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty
}

// MarkClean clears the dirty flag if the design has not changed since the
// file at revision was captured.
func (m *Manager) MarkClean(revision uint64) {
	m.mu.Lock()
	if m.revision == revision {
		m.dirty = false
	}
	m.mu.Unlock()
}

// Close disposes the scene and removes all subscribers. Pending async
// operations observe the closed state and drop their results.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.queue(Event{Type: EventClosed})
	m.closed = true
	if m.offScene != nil {
		m.offScene()
	}
	m.scene.Dispose()
	m.history.Reset()
	m.clipboard = nil
	m.drag = nil
	m.editing = nil
	m.unlock()

	m.mu.Lock()
	m.subs = make(map[int]Subscriber)
	m.mu.Unlock()
}

// File captures the design in its persisted form.
func (m *Manager) File() (*document.Design, error) {
	file, _, err := m.capture()
	return file, err
}

// capture returns the persisted form together with the revision it reflects.
func (m *Manager) capture() (*document.Design, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, 0, ErrClosed
	}
	data, err := json.Marshal(m.scene)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal scene: %w", err)
	}
	return &document.Design{
		ID:        m.id,
		Name:      m.name,
		Version:   document.FileVersion,
		CreatedAt: m.createdAt.Format(time.RFC3339),
		UpdatedAt: m.updatedAt.Format(time.RFC3339),
		Scene:     data,
		Layers:    m.layers.Metadata(),
		Camera:    m.camera.State(),
		Defaults:  m.defaults,
	}, m.revision, nil
}

// Summary returns the listing form of the design.
func (m *Manager) Summary() document.Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return document.Summary{ID: m.id, Name: m.name, UpdatedAt: m.updatedAt.Format(time.RFC3339)}
}

// Defaults returns the style applied to new objects.
func (m *Manager) Defaults() document.Defaults {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defaults
}

// SetDefaults replaces the style defaults. Missing fields keep their values.
func (m *Manager) SetDefaults(d document.Defaults) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaults = d.Merge(m.defaults)
}

// Bounds returns the document boundary.
func (m *Manager) Bounds() (geom.Rect, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready() {
		return geom.Rect{}, false
	}
	return m.scene.Base().Bounds(), true
}
