package typeid

import (
	"strings"
	"testing"
)

func TestNewCarriesPrefix(t *testing.T) {
	id := NewLayerID()
	if !strings.HasPrefix(id, PrefixLayer+"_") {
		t.Fatalf("expected %q prefix, got %q", PrefixLayer, id)
	}
	if err := Validate(id, PrefixLayer); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := Validate(id, PrefixDesign); err == nil {
		t.Fatalf("expected prefix mismatch error")
	}
}

func TestIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewDesignID()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
