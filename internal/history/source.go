package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/inamate/canvas/internal/layers"
	"github.com/inamate/canvas/internal/scene"
)

// SceneSource snapshots a scene together with its layer registry.
type SceneSource struct {
	Scene  *scene.Scene
	Layers *layers.Registry
}

func (s SceneSource) Capture() (Snapshot, error) {
	data, err := json.Marshal(s.Scene)
	if err != nil {
		return Snapshot{}, fmt.Errorf("marshal scene: %w", err)
	}
	return Snapshot{
		Scene:   data,
		Layers:  s.Layers.Metadata(),
		TakenAt: time.Now(),
	}, nil
}

// Restore reloads the scene without emitting events and rebuilds the
// registry from the snapshot's layer metadata. Layers whose object did not
// survive the reload are dropped.
func (s SceneSource) Restore(snap Snapshot) error {
	var err error
	s.Scene.Silently(func() {
		if err = s.Scene.Load(snap.Scene); err != nil {
			return
		}
		s.Layers.Rebuild(snap.Layers)
		s.Layers.SyncPaintOrder()
	})
	if err != nil {
		return fmt.Errorf("restore scene: %w", err)
	}
	return nil
}
