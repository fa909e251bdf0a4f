// Package layers maintains the ordered, user-visible layer list of a design.
// Registry order is the authoritative z-order; the scene's paint order is a
// projection rebuilt from it.
package layers

import (
	"slices"
	"strconv"

	"github.com/inamate/canvas/internal/scene"
	"github.com/inamate/canvas/internal/typeid"
)

type Layer struct {
	ID      string
	Name    string
	Object  *scene.Object
	Visible bool
	Locked  bool
}

// Meta is the serializable part of a layer, without the live object.
type Meta struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
	Locked  bool   `json:"locked"`
}

// Registry maps stable layer ids to scene objects. Index 0 is the bottom
// layer, painted just above the base layer.
type Registry struct {
	scene    *scene.Scene
	layers   []*Layer
	selected string
}

func NewRegistry(s *scene.Scene) *Registry {
	return &Registry{scene: s}
}

// Add appends a layer for data.Object, assigning an id when none is given,
// marks it selected and re-pins the base layer. The object must already be
// part of the scene.
func (r *Registry) Add(data Layer) *Layer {
	if data.Object == nil {
		return nil
	}
	if data.ID == "" {
		data.ID = typeid.NewLayerID()
	}
	if data.Name == "" {
		data.Name = r.DefaultName(data.Object.Kind)
	}
	l := &Layer{
		ID:      data.ID,
		Name:    data.Name,
		Object:  data.Object,
		Visible: data.Object.Visible,
		Locked:  !data.Object.Selectable,
	}
	l.Object.LayerID = l.ID
	r.layers = append(r.layers, l)
	r.selected = l.ID
	r.scene.PinBase()
	return l
}

// InsertAbove adds a layer directly above the layer with id anchor. When the
// anchor is unknown it behaves like Add.
func (r *Registry) InsertAbove(anchor string, data Layer) *Layer {
	l := r.Add(data)
	if l == nil {
		return nil
	}
	if i := r.IndexOf(anchor); i >= 0 && i+1 < len(r.layers)-1 {
		r.layers = slices.Delete(r.layers, len(r.layers)-1, len(r.layers))
		r.layers = slices.Insert(r.layers, i+1, l)
	}
	return l
}

// DefaultName returns "<Kind> <n>" with n one past the current layer count.
func (r *Registry) DefaultName(k scene.Kind) string {
	return k.Title() + " " + strconv.Itoa(len(r.layers)+1)
}

// Remove drops the layer and clears the selection if it pointed at it.
// The caller is responsible for removing the scene object.
func (r *Registry) Remove(id string) (*Layer, bool) {
	i := r.IndexOf(id)
	if i < 0 {
		return nil, false
	}
	l := r.layers[i]
	r.layers = slices.Delete(r.layers, i, i+1)
	if r.selected == id {
		r.selected = ""
	}
	return l, true
}

// Get returns the layer with the given id.
func (r *Registry) Get(id string) (*Layer, bool) {
	i := r.IndexOf(id)
	if i < 0 {
		return nil, false
	}
	return r.layers[i], true
}

// IndexOf returns the registry index of id, or -1.
func (r *Registry) IndexOf(id string) int {
	return slices.IndexFunc(r.layers, func(l *Layer) bool { return l.ID == id })
}

// FindByObject returns the layer owning o.
func (r *Registry) FindByObject(o *scene.Object) (*Layer, bool) {
	for _, l := range r.layers {
		if l.Object == o {
			return l, true
		}
	}
	return nil, false
}

// FindByName returns the topmost layer with the given name.
func (r *Registry) FindByName(name string) (*Layer, bool) {
	for i := len(r.layers) - 1; i >= 0; i-- {
		if r.layers[i].Name == name {
			return r.layers[i], true
		}
	}
	return nil, false
}

// At returns the layer at registry index i.
func (r *Registry) At(i int) (*Layer, bool) {
	if i < 0 || i >= len(r.layers) {
		return nil, false
	}
	return r.layers[i], true
}

// Layers returns the layers bottom to top.
func (r *Registry) Layers() []*Layer {
	return slices.Clone(r.layers)
}

func (r *Registry) Len() int { return len(r.layers) }

// Select marks id as the selected layer. An empty id clears the selection.
func (r *Registry) Select(id string) bool {
	if id == "" {
		r.selected = ""
		return true
	}
	if r.IndexOf(id) < 0 {
		return false
	}
	r.selected = id
	return true
}

// Selected returns the selected layer, if any.
func (r *Registry) Selected() (*Layer, bool) {
	if r.selected == "" {
		return nil, false
	}
	return r.Get(r.selected)
}

// Rename changes a layer's display name.
func (r *Registry) Rename(id, name string) bool {
	l, ok := r.Get(id)
	if !ok || name == "" {
		return false
	}
	l.Name = name
	return true
}

// Reorder moves a layer to newIndex and rebuilds the scene paint order.
// It returns false when id is unknown or the index does not change.
func (r *Registry) Reorder(id string, newIndex int) bool {
	from := r.IndexOf(id)
	if from < 0 {
		return false
	}
	newIndex = max(0, min(newIndex, len(r.layers)-1))
	if newIndex == from {
		return false
	}
	l := r.layers[from]
	r.layers = slices.Delete(r.layers, from, from+1)
	r.layers = slices.Insert(r.layers, newIndex, l)
	r.SyncPaintOrder()
	return true
}

// SyncPaintOrder removes every non-base object from the scene and re-adds
// them in registry order, then pins the base layer to the bottom. Objects
// not owned by a layer are re-added on top so nothing is lost.
func (r *Registry) SyncPaintOrder() {
	owned := make(map[*scene.Object]bool, len(r.layers))
	for _, l := range r.layers {
		owned[l.Object] = true
	}
	var strays []*scene.Object
	for _, o := range r.scene.UserObjects() {
		if !owned[o] {
			strays = append(strays, o)
		}
		r.scene.Remove(o)
	}
	for _, l := range r.layers {
		r.scene.Add(l.Object)
	}
	for _, o := range strays {
		r.scene.Add(o)
	}
	r.scene.PinBase()
}

// ToggleVisibility flips the visible flag and mirrors it onto the object.
func (r *Registry) ToggleVisibility(id string) bool {
	l, ok := r.Get(id)
	if !ok {
		return false
	}
	r.SetVisible(l, !l.Visible)
	return true
}

// ToggleLock flips the locked flag and mirrors it onto the object.
func (r *Registry) ToggleLock(id string) bool {
	l, ok := r.Get(id)
	if !ok {
		return false
	}
	r.SetLocked(l, !l.Locked)
	return true
}

// SetVisible sets the visible flag; hidden objects are not painted and are
// dropped from the active selection.
func (r *Registry) SetVisible(l *Layer, visible bool) {
	l.Visible = visible
	l.Object.Visible = visible
	if !visible {
		r.deselect(l.Object)
	}
}

// SetLocked sets the locked flag; locked objects are neither selectable nor
// receive pointer events.
func (r *Registry) SetLocked(l *Layer, locked bool) {
	l.Locked = locked
	l.Object.Selectable = !locked
	l.Object.Evented = !locked
	if locked {
		r.deselect(l.Object)
	}
}

func (r *Registry) deselect(o *scene.Object) {
	active := r.scene.Active()
	if i := slices.Index(active, o); i >= 0 {
		r.scene.SetActive(slices.Delete(active, i, i+1)...)
	}
}

// Metadata returns the serializable layer list, bottom to top.
func (r *Registry) Metadata() []Meta {
	out := make([]Meta, len(r.layers))
	for i, l := range r.layers {
		out[i] = Meta{ID: l.ID, Name: l.Name, Visible: l.Visible, Locked: l.Locked}
	}
	return out
}

// Rebuild replaces the registry from serialized metadata, matching each entry
// to the scene object carrying the same layer id. Entries whose object is
// missing are dropped. The selection is cleared.
func (r *Registry) Rebuild(metas []Meta) int {
	r.layers = r.layers[:0]
	r.selected = ""
	dropped := 0
	for _, m := range metas {
		o := r.scene.FindByLayerID(m.ID)
		if o == nil {
			dropped++
			continue
		}
		l := &Layer{ID: m.ID, Name: m.Name, Object: o}
		r.layers = append(r.layers, l)
		r.SetVisible(l, m.Visible)
		r.SetLocked(l, m.Locked)
	}
	return dropped
}

// Consistent reports whether the registry's objects and the scene's
// non-base objects are the same set.
func (r *Registry) Consistent() bool {
	objs := r.scene.UserObjects()
	if len(objs) != len(r.layers) {
		return false
	}
	for _, o := range objs {
		if _, ok := r.FindByObject(o); !ok {
			return false
		}
	}
	return true
}
