package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/inamate/canvas/internal/document"
)

func newDesign(t *testing.T, id, name string) *document.Design {
	t.Helper()
	d, err := document.NewEmptyDesign(id, name, 200, 100, document.Defaults{})
	if err != nil {
		t.Fatalf("new design: %v", err)
	}
	return d
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()
	out := map[string]Store{"memory": NewMemory()}

	lite, err := NewSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	out["sqlite"] = lite

	if url := os.Getenv("CANVAS_TEST_DATABASE_URL"); url != "" {
		pg, err := NewPostgres(ctx, url)
		if err != nil {
			t.Fatalf("open postgres: %v", err)
		}
		out["postgres"] = pg
	}
	for _, s := range out {
		t.Cleanup(func() { s.Close() })
	}
	return out
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			id := "design_roundtrip_" + name
			d := newDesign(t, id, "Poster")
			if err := s.Save(ctx, d); err != nil {
				t.Fatalf("save: %v", err)
			}
			d.Name = "Poster v2"
			if err := s.Save(ctx, d); err != nil {
				t.Fatalf("second save: %v", err)
			}

			got, err := s.Load(ctx, id)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if got.Name != "Poster v2" {
				t.Fatalf("expected latest name, got %q", got.Name)
			}
			if err := got.Validate(); err != nil {
				t.Fatalf("loaded design is invalid: %v", err)
			}

			list, err := s.List(ctx)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			found := false
			for _, sm := range list {
				if sm.ID == id {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected %s in list %v", id, list)
			}

			if err := s.Delete(ctx, id); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := s.Load(ctx, id); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
			if err := s.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound on second delete, got %v", err)
			}
		})
	}
}

func TestStoreRejectsMissingID(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Save(context.Background(), &document.Design{})
			if !errors.Is(err, document.ErrInvalidDesign) {
				t.Fatalf("expected ErrInvalidDesign, got %v", err)
			}
		})
	}
}

func TestMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	d := newDesign(t, "design_copy", "Original")
	if err := s.Save(ctx, d); err != nil {
		t.Fatalf("save: %v", err)
	}
	d.Name = "Mutated"

	got, _ := s.Load(ctx, "design_copy")
	if got.Name != "Original" {
		t.Fatalf("expected stored copy to be unaffected, got %q", got.Name)
	}
}

func TestSQLiteVersions(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLite(ctx, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	d := newDesign(t, "design_versions", "One")
	for _, name := range []string{"One", "Two", "Three"} {
		d.Name = name
		if err := s.Save(ctx, d); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}

	versions, err := s.Versions(ctx, d.ID)
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(versions))
	}
	for i, v := range versions {
		if v.Version != i+1 {
			t.Fatalf("expected version %d, got %d", i+1, v.Version)
		}
	}

	old, err := s.LoadVersion(ctx, d.ID, 2)
	if err != nil {
		t.Fatalf("load version: %v", err)
	}
	if old.Name != "Two" {
		t.Fatalf("expected version 2 to be named Two, got %q", old.Name)
	}
	if _, err := s.LoadVersion(ctx, d.ID, 9); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing version, got %v", err)
	}

	// Deleting the design cascades to its snapshots.
	if err := s.Delete(ctx, d.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	versions, _ = s.Versions(ctx, d.ID)
	if len(versions) != 0 {
		t.Fatalf("expected snapshots to be removed, got %d", len(versions))
	}
}

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "memory", "")
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Fatalf("expected *Memory, got %T", s)
	}
	if _, err := Open(ctx, "mongo", ""); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
