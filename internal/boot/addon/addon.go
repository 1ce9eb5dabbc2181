// Package addon classifies the server add-ons (mod jars) and relocates them to
// the directory of their disposition.
package addon

import (
	"path/filepath"

	"github.com/slok/gsx/internal/model"
)

// Affinity is the loader family affinity detected for an artifact.
type Affinity string

const (
	AffinityUnknown Affinity = "unknown"
	AffinitySingle  Affinity = "single"
	AffinityMulti   Affinity = "multi"
)

// Flag is a tri-state flag.
type Flag string

const (
	FlagUnknown Flag = "unknown"
	FlagTrue    Flag = "true"
	FlagFalse   Flag = "false"
)

// Disposition is where an artifact belongs. An artifact has exactly one at a time.
type Disposition string

const (
	DispositionActive       Disposition = "active"
	DispositionIncompatible Disposition = "quarantined-incompatible"
	DispositionClientOnly   Disposition = "quarantined-client-only"
)

// Artifact is an add-on binary bundle.
type Artifact struct {
	Path       string
	Size       int64
	Loaders    []model.LoaderFamily
	Affinity   Affinity
	ClientOnly Flag
	// Forced is set when a force pattern classified the artifact as client-only.
	Forced      bool
	ModIDs      []string
	Disposition Disposition
	// Reason explains the disposition.
	Reason string
}

// Name returns the artifact filename.
func (a Artifact) Name() string { return filepath.Base(a.Path) }

// Layout maps every disposition to its directory.
type Layout map[Disposition]string

// NewLayout returns the relocation table for an add-ons directory and its quarantine directory.
func NewLayout(addonsDir, quarantineDir string) Layout {
	return Layout{
		DispositionActive:       addonsDir,
		DispositionIncompatible: filepath.Join(quarantineDir, "incompatible"),
		DispositionClientOnly:   filepath.Join(quarantineDir, "client-only"),
	}
}
