package design

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/inamate/canvas/internal/document"
	"github.com/inamate/canvas/internal/logging"
)

// Store persists design files.
type Store interface {
	Save(ctx context.Context, d *document.Design) error
	Load(ctx context.Context, id string) (*document.Design, error)
	List(ctx context.Context) ([]document.Summary, error)
	Delete(ctx context.Context, id string) error
}

// Workspace tracks the open designs, which one is active and the global
// defaults new designs start from. Designs share no state.
type Workspace struct {
	mu       sync.RWMutex
	store    Store
	opts     Options
	defaults document.Defaults
	designs  map[string]*Manager
	order    []string
	active   string
	log      *slog.Logger
}

func NewWorkspace(store Store, defaults document.Defaults, opts Options) *Workspace {
	opts = opts.withDefaults()
	return &Workspace{
		store:    store,
		opts:     opts,
		defaults: defaults.Merge(document.DefaultDefaults()),
		designs:  make(map[string]*Manager),
		log:      logging.WithComponent(opts.Logger, "workspace"),
	}
}

// Create opens a new empty design and makes it active.
func (w *Workspace) Create(name string, width, height int) (*Manager, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if name == "" {
		name = fmt.Sprintf("Untitled %d", len(w.designs)+1)
	}
	m, err := New(name, width, height, w.defaults, w.opts)
	if err != nil {
		return nil, fmt.Errorf("create design: %w", err)
	}
	w.track(m)
	return m, nil
}

// Adopt registers a design opened elsewhere, such as from an import.
func (w *Workspace) Adopt(file *document.Design) (*Manager, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if m, ok := w.designs[file.ID]; ok {
		return m, nil
	}
	m, err := Open(file, w.opts)
	if err != nil {
		return nil, err
	}
	w.track(m)
	return m, nil
}

func (w *Workspace) track(m *Manager) {
	w.designs[m.ID()] = m
	w.order = append(w.order, m.ID())
	w.active = m.ID()
}

// Open returns an open design or loads it from the store.
func (w *Workspace) Open(ctx context.Context, id string) (*Manager, error) {
	w.mu.RLock()
	m, ok := w.designs[id]
	w.mu.RUnlock()
	if ok {
		return m, nil
	}
	if w.store == nil {
		return nil, ErrNotFound
	}
	file, err := w.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load design %s: %w", id, err)
	}
	return w.Adopt(file)
}

// Get returns an open design.
func (w *Workspace) Get(id string) (*Manager, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	m, ok := w.designs[id]
	return m, ok
}

// Open designs in opening order.
func (w *Workspace) Designs() []*Manager {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*Manager, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.designs[id])
	}
	return out
}

// List merges stored and open designs.
func (w *Workspace) List(ctx context.Context) ([]document.Summary, error) {
	var stored []document.Summary
	if w.store != nil {
		var err error
		if stored, err = w.store.List(ctx); err != nil {
			return nil, fmt.Errorf("list designs: %w", err)
		}
	}
	seen := make(map[string]bool, len(stored))
	for _, s := range stored {
		seen[s.ID] = true
	}
	for _, m := range w.Designs() {
		if !seen[m.ID()] {
			stored = append(stored, m.Summary())
		}
	}
	return stored, nil
}

// SetActive switches the active design.
func (w *Workspace) SetActive(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.designs[id]; !ok {
		return false
	}
	w.active = id
	return true
}

// Active returns the active design.
func (w *Workspace) Active() (*Manager, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	m, ok := w.designs[w.active]
	return m, ok
}

func (w *Workspace) Defaults() document.Defaults {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.defaults
}

// SetDefaults updates the global defaults and the active design's defaults.
func (w *Workspace) SetDefaults(d document.Defaults) {
	w.mu.Lock()
	w.defaults = d.Merge(w.defaults)
	active := w.designs[w.active]
	defaults := w.defaults
	w.mu.Unlock()
	if active != nil {
		active.SetDefaults(defaults)
	}
}

// Close saves a design if dirty and closes it.
func (w *Workspace) Close(ctx context.Context, id string) error {
	w.mu.Lock()
	m, ok := w.designs[id]
	if !ok {
		w.mu.Unlock()
		return ErrNotFound
	}
	delete(w.designs, id)
	w.order = slices.DeleteFunc(w.order, func(s string) bool { return s == id })
	if w.active == id {
		w.active = ""
		if n := len(w.order); n > 0 {
			w.active = w.order[n-1]
		}
	}
	w.mu.Unlock()

	err := w.save(ctx, m)
	m.Close()
	return err
}

// Delete closes a design without saving and removes it from the store.
func (w *Workspace) Delete(ctx context.Context, id string) error {
	w.mu.Lock()
	m, ok := w.designs[id]
	if ok {
		delete(w.designs, id)
		w.order = slices.DeleteFunc(w.order, func(s string) bool { return s == id })
		if w.active == id {
			w.active = ""
		}
	}
	w.mu.Unlock()
	if ok {
		m.Close()
	}
	if w.store == nil {
		if !ok {
			return ErrNotFound
		}
		return nil
	}
	err := w.store.Delete(ctx, id)
	if ok && errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// Save writes an open design to the store if it has unsaved changes.
func (w *Workspace) Save(ctx context.Context, id string) error {
	m, ok := w.Get(id)
	if !ok {
		return ErrNotFound
	}
	return w.save(ctx, m)
}

func (w *Workspace) save(ctx context.Context, m *Manager) error {
	if w.store == nil || !m.Dirty() {
		return nil
	}
	file, revision, err := m.capture()
	if err != nil {
		return err
	}
	if err := w.store.Save(ctx, file); err != nil {
		return fmt.Errorf("save design %s: %w", m.ID(), err)
	}
	m.MarkClean(revision)
	return nil
}

// Flush saves every dirty design.
func (w *Workspace) Flush(ctx context.Context) error {
	var errs []error
	for _, m := range w.Designs() {
		if err := w.save(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Autosave flushes dirty designs every interval until ctx is done.
func (w *Workspace) Autosave(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Flush(ctx); err != nil {
				w.log.Error("autosave", "error", err)
			}
		}
	}
}

// Shutdown flushes and closes every design.
func (w *Workspace) Shutdown(ctx context.Context) error {
	err := w.Flush(ctx)
	for _, m := range w.Designs() {
		m.Close()
	}
	w.mu.Lock()
	w.designs = make(map[string]*Manager)
	w.order = nil
	w.active = ""
	w.mu.Unlock()
	return err
}
