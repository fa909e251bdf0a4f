// Package scene is the retained scene graph of a design: an ordered list of
// drawable objects in paint order with the base layer pinned at index 0.
package scene

import (
	"slices"
)

type EventType string

const (
	EventObjectAdded    EventType = "object.added"
	EventObjectRemoved  EventType = "object.removed"
	EventObjectModified EventType = "object.modified"
	EventSelection      EventType = "selection.changed"
	EventCleared        EventType = "scene.cleared"
	EventLoaded         EventType = "scene.loaded"
)

type Event struct {
	Type   EventType
	Object *Object
}

type Listener func(Event)

// Scene holds objects in paint order (index 0 painted first).
type Scene struct {
	objects   []*Object
	active    []*Object
	listeners map[int]Listener
	nextID    int
	silent    int
	disposed  bool
}

// New creates a scene whose only object is base.
func New(base *Object) *Scene {
	s := &Scene{listeners: make(map[int]Listener)}
	if base != nil {
		base.Selectable = false
		base.Evented = false
		s.objects = append(s.objects, base)
	}
	return s
}

// On subscribes to scene events and returns the unsubscribe function.
func (s *Scene) On(l Listener) func() {
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() { delete(s.listeners, id) }
}

// Silently runs fn with event emission suspended.
func (s *Scene) Silently(fn func()) {
	s.silent++
	defer func() { s.silent-- }()
	fn()
}

func (s *Scene) emit(t EventType, o *Object) {
	if s.silent > 0 || s.disposed {
		return
	}
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if l, ok := s.listeners[id]; ok {
			l(Event{Type: t, Object: o})
		}
	}
}

// Dispose releases the scene's objects and detaches every listener.
func (s *Scene) Dispose() {
	s.objects = nil
	s.active = nil
	s.listeners = make(map[int]Listener)
	s.disposed = true
}

// Disposed reports whether Dispose has been called.
func (s *Scene) Disposed() bool { return s == nil || s.disposed }

// Base returns the base layer, found by kind.
func (s *Scene) Base() *Object {
	for _, o := range s.objects {
		if o.IsBase() {
			return o
		}
	}
	return nil
}

// Objects returns every object in paint order, base included.
func (s *Scene) Objects() []*Object {
	return slices.Clone(s.objects)
}

// UserObjects returns the non-base objects in paint order.
func (s *Scene) UserObjects() []*Object {
	out := make([]*Object, 0, len(s.objects))
	for _, o := range s.objects {
		if !o.IsBase() {
			out = append(out, o)
		}
	}
	return out
}

// Len returns the number of objects including the base layer.
func (s *Scene) Len() int { return len(s.objects) }

// IndexOf returns the paint index of o, or -1.
func (s *Scene) IndexOf(o *Object) int {
	return slices.Index(s.objects, o)
}

// Contains reports whether o is part of the scene.
func (s *Scene) Contains(o *Object) bool { return s.IndexOf(o) >= 0 }

// FindByLayerID returns the object tagged with the layer id.
func (s *Scene) FindByLayerID(id string) *Object {
	if id == "" {
		return nil
	}
	for _, o := range s.objects {
		if o.LayerID == id {
			return o
		}
	}
	return nil
}

// Add appends o at the top of the paint order.
func (s *Scene) Add(o *Object) {
	if o == nil || s.disposed || s.Contains(o) {
		return
	}
	s.objects = append(s.objects, o)
	s.emit(EventObjectAdded, o)
}

// Insert places o at paint index i, clamped to the valid range.
func (s *Scene) Insert(i int, o *Object) {
	if o == nil || s.disposed || s.Contains(o) {
		return
	}
	i = max(0, min(i, len(s.objects)))
	s.objects = slices.Insert(s.objects, i, o)
	s.emit(EventObjectAdded, o)
}

// Remove deletes o from the scene and from the active selection.
func (s *Scene) Remove(o *Object) bool {
	i := s.IndexOf(o)
	if i < 0 {
		return false
	}
	s.objects = slices.Delete(s.objects, i, i+1)
	if j := slices.Index(s.active, o); j >= 0 {
		s.active = slices.Delete(s.active, j, j+1)
	}
	s.emit(EventObjectRemoved, o)
	return true
}

// MoveTo moves o to paint index i.
func (s *Scene) MoveTo(o *Object, i int) bool {
	from := s.IndexOf(o)
	if from < 0 {
		return false
	}
	s.objects = slices.Delete(s.objects, from, from+1)
	i = max(0, min(i, len(s.objects)))
	s.objects = slices.Insert(s.objects, i, o)
	return true
}

// SendToBack moves o to paint index 0.
func (s *Scene) SendToBack(o *Object) bool { return s.MoveTo(o, 0) }

// BringToFront moves o to the top of the paint order.
func (s *Scene) BringToFront(o *Object) bool { return s.MoveTo(o, len(s.objects)) }

// PinBase re-sends the base layer to the very bottom.
func (s *Scene) PinBase() {
	if b := s.Base(); b != nil {
		s.SendToBack(b)
	}
}

// Modified announces that o changed in place.
func (s *Scene) Modified(o *Object) {
	if o == nil || !s.Contains(o) {
		return
	}
	s.emit(EventObjectModified, o)
}

// Clear removes every user object, keeping the base layer.
func (s *Scene) Clear() {
	base := s.Base()
	s.objects = s.objects[:0]
	if base != nil {
		s.objects = append(s.objects, base)
	}
	s.active = nil
	s.emit(EventCleared, nil)
}

// SetActive replaces the active selection. The base layer and non-selectable
// objects are never selected.
func (s *Scene) SetActive(objs ...*Object) {
	next := make([]*Object, 0, len(objs))
	for _, o := range objs {
		if o == nil || o.IsBase() || !o.Selectable || !s.Contains(o) || slices.Contains(next, o) {
			continue
		}
		next = append(next, o)
	}
	if slices.Equal(next, s.active) {
		return
	}
	s.active = next
	s.emit(EventSelection, s.ActiveObject())
}

// Discard clears the active selection.
func (s *Scene) Discard() {
	if len(s.active) == 0 {
		return
	}
	s.active = nil
	s.emit(EventSelection, nil)
}

// Active returns the selected objects in selection order.
func (s *Scene) Active() []*Object {
	return slices.Clone(s.active)
}

// ActiveObject returns the single selected object, or nil when the selection
// is empty or holds several objects.
func (s *Scene) ActiveObject() *Object {
	if len(s.active) != 1 {
		return nil
	}
	return s.active[0]
}

// HitTest returns the topmost evented, visible user object containing (x, y).
func (s *Scene) HitTest(x, y float64) *Object {
	for i := len(s.objects) - 1; i >= 0; i-- {
		o := s.objects[i]
		if o.IsBase() || !o.Visible || !o.Evented {
			continue
		}
		if o.ContainsPoint(x, y) {
			return o
		}
	}
	return nil
}
