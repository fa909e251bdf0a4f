package design

import (
	"github.com/inamate/canvas/internal/camera"
	"github.com/inamate/canvas/internal/drawing"
	"github.com/inamate/canvas/internal/geom"
	"github.com/inamate/canvas/internal/history"
	"github.com/inamate/canvas/internal/snap"
)

type EventType string

const (
	EventChanged   EventType = "design.changed"
	EventSelection EventType = "selection.changed"
	EventTool      EventType = "tool.changed"
	EventViewport  EventType = "viewport.changed"
	EventImagePick EventType = "image.pick"
	EventPreview   EventType = "drawing.preview"
	EventGuides    EventType = "guides.changed"
	EventClosed    EventType = "design.closed"
)

// Event is delivered to subscribers after the mutation that caused it has
// completed and the design lock has been released.
type Event struct {
	Type     EventType      `json:"type"`
	DesignID string         `json:"designId"`
	Tool     drawing.Tool   `json:"tool,omitempty"`
	Camera   *camera.State  `json:"camera,omitempty"`
	Rect     *geom.Rect     `json:"rect,omitempty"`
	Guides   []snap.Guide   `json:"guides,omitempty"`
	LayerIDs []string       `json:"layerIds,omitempty"`
	History  *history.State `json:"history,omitempty"`
}

type Subscriber func(Event)

// Subscribe registers fn for design events and returns the unsubscribe func.
func (m *Manager) Subscribe(fn Subscriber) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return func() {}
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// queue records an event for delivery on unlock. Callers hold m.mu.
func (m *Manager) queue(ev Event) {
	ev.DesignID = m.id
	m.outbox = append(m.outbox, ev)
}

// unlock releases the design lock and then delivers queued events, so
// subscribers may call back into the manager.
func (m *Manager) unlock() {
	// tool.changed follows the commit that caused it.
	if m.toolChanged {
		m.toolChanged = false
		m.queue(Event{Type: EventTool, Tool: m.drawing.Tool()})
	}
	events := m.outbox
	m.outbox = nil
	var subs []Subscriber
	if len(events) > 0 {
		subs = make([]Subscriber, 0, len(m.subs))
		for i := 0; i < m.nextSub; i++ {
			if s, ok := m.subs[i]; ok {
				subs = append(subs, s)
			}
		}
	}
	m.mu.Unlock()
	for _, ev := range events {
		for _, s := range subs {
			s(ev)
		}
	}
}

func (m *Manager) changed() {
	st := m.history.State()
	m.queue(Event{Type: EventChanged, History: &st})
}

func (m *Manager) selectionChanged() {
	m.queue(Event{Type: EventSelection, LayerIDs: m.selectedIDs()})
}
