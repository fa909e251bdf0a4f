package store

import (
	"context"
	"sync"

	"github.com/inamate/canvas/internal/document"
)

// Memory keeps encoded designs in a map, so callers never share state with it.
type Memory struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte)}
}

func (m *Memory) Save(_ context.Context, d *document.Design) error {
	data, err := encode(d)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.files[d.ID] = data
	m.mu.Unlock()
	return nil
}

func (m *Memory) Load(_ context.Context, id string) (*document.Design, error) {
	m.mu.RLock()
	data, ok := m.files[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decode(data)
}

func (m *Memory) List(context.Context) ([]document.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]document.Summary, 0, len(m.files))
	for _, data := range m.files {
		d, err := decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, d.Summary())
	}
	sortSummaries(out)
	return out, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[id]; !ok {
		return ErrNotFound
	}
	delete(m.files, id)
	return nil
}

func (m *Memory) Close() error { return nil }
