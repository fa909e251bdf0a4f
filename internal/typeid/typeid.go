// Package typeid mints the prefixed, sortable ids used for designs, layers,
// stored snapshots and uploaded assets.
package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixDesign   = "design"
	PrefixLayer    = "layer"
	PrefixSnapshot = "snap"
	PrefixAsset    = "asset"
)

func New(prefix string) string {
	return typeid.MustGenerate(prefix).String()
}

func NewDesignID() string   { return New(PrefixDesign) }
func NewLayerID() string    { return New(PrefixLayer) }
func NewSnapshotID() string { return New(PrefixSnapshot) }
func NewAssetID() string    { return New(PrefixAsset) }

// Validate checks that id parses and carries the expected prefix.
func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("id %q has prefix %q, want %q", id, parsed.Prefix(), expectedPrefix)
	}
	return nil
}
