package addon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/slok/gsx/internal/boot/patterns"
	"github.com/slok/gsx/internal/log"
	"github.com/slok/gsx/internal/model"
)

// Policy decides artifact dispositions for an instance.
type Policy struct {
	Family  model.Family
	Version string
	// PurgeClient quarantines client-only artifacts. Forced artifacts are quarantined anyway.
	PurgeClient       bool
	PurgeIncompatible bool
	// Allowlist keeps incompatible artifacts active, by filename pattern or mod ID.
	Allowlist patterns.List
}

// AcceptedLoaders returns the loader families the instance family can load.
func (p Policy) AcceptedLoaders() []model.LoaderFamily {
	switch p.Family {
	case model.FamilyFabric:
		return []model.LoaderFamily{model.LoaderFabric}
	case model.FamilyQuilt:
		return []model.LoaderFamily{model.LoaderQuilt, model.LoaderFabric}
	case model.FamilyForge:
		return []model.LoaderFamily{model.LoaderForge}
	case model.FamilyNeoForge:
		// NeoForge 1.20.1 still loads Forge mods.
		v, _, _ := strings.Cut(strings.TrimSpace(p.Version), "-")
		if v == "1.20.1" {
			return []model.LoaderFamily{model.LoaderNeoForge, model.LoaderForge}
		}
		return []model.LoaderFamily{model.LoaderNeoForge}
	}
	return nil
}

// Decide sets the disposition of the artifact. Incompatible loaders take
// precedence over client-only, multi-family artifacts are never incompatible.
func (p Policy) Decide(a *Artifact) {
	if p.PurgeIncompatible && a.Affinity == AffinitySingle && !slices.Contains(p.AcceptedLoaders(), a.Loaders[0]) {
		if !p.allowlisted(a) {
			a.Disposition = DispositionIncompatible
			a.Reason = fmt.Sprintf("%s add-on on a %s server", a.Loaders[0], p.Family)
			return
		}
	}

	if a.ClientOnly == FlagTrue && (p.PurgeClient || a.Forced) {
		a.Disposition = DispositionClientOnly
		return
	}

	a.Disposition = DispositionActive
	a.Reason = ""
}

func (p Policy) allowlisted(a *Artifact) bool {
	if _, ok := p.Allowlist.MatchAny(a.Name()); ok {
		return true
	}
	for _, id := range a.ModIDs {
		if p.Allowlist.Has(id) {
			return true
		}
	}
	return false
}

// SorterConfig is the configuration of the artifact sorter.
type SorterConfig struct {
	Classifier *Classifier
	Policy     Policy
	Layout     Layout
	Logger     log.Logger
}

func (c *SorterConfig) defaults() error {
	if c.Classifier == nil {
		return fmt.Errorf("classifier is required")
	}

	if c.Layout[DispositionActive] == "" {
		return fmt.Errorf("active add-ons directory is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "boot.addon.Sorter"})

	return nil
}

// Sorter classifies every artifact of the layout and moves it to the directory
// of its disposition.
type Sorter struct {
	classifier *Classifier
	policy     Policy
	layout     Layout
	logger     log.Logger
}

// NewSorter returns a new artifact sorter.
func NewSorter(cfg SorterConfig) (*Sorter, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Sorter{
		classifier: cfg.Classifier,
		policy:     cfg.Policy,
		layout:     cfg.Layout,
		logger:     cfg.Logger,
	}, nil
}

// Result is the outcome of a sort.
type Result struct {
	// Skipped is set when there was nothing to sort.
	Skipped   bool
	Artifacts []Artifact
}

// Active returns the active artifacts.
func (r Result) Active() []Artifact {
	var res []Artifact
	for _, a := range r.Artifacts {
		if a.Disposition == DispositionActive {
			res = append(res, a)
		}
	}
	return res
}

// Sort re-evaluates the artifacts of all the disposition directories, so an
// artifact ends in the same place for the same configuration.
func (s *Sorter) Sort(ctx context.Context) (*Result, error) {
	if !s.policy.Family.Modded() {
		s.logger.Debugf("%s servers don't load add-ons, skipping", s.policy.Family)
		return &Result{Skipped: true}, nil
	}

	if _, err := os.Stat(s.layout[DispositionActive]); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Infof("No add-ons directory, skipping")
			return &Result{Skipped: true}, nil
		}
		return nil, fmt.Errorf("could not stat add-ons directory: %w", err)
	}

	paths, err := s.artifactPaths()
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		a, err := s.classifier.Classify(p)
		if err != nil {
			return nil, err
		}
		s.policy.Decide(a)

		if err := s.relocate(a); err != nil {
			return nil, err
		}
		res.Artifacts = append(res.Artifacts, *a)
	}

	counts := map[Disposition]int{}
	for _, a := range res.Artifacts {
		counts[a.Disposition]++
	}
	s.logger.Infof("Sorted %d add-ons: %d active, %d incompatible, %d client-only", len(res.Artifacts),
		counts[DispositionActive], counts[DispositionIncompatible], counts[DispositionClientOnly])

	return res, nil
}

func (s *Sorter) artifactPaths() ([]string, error) {
	var paths []string
	for _, d := range []Disposition{DispositionActive, DispositionIncompatible, DispositionClientOnly} {
		entries, err := os.ReadDir(s.layout[d])
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("could not read %q: %w", s.layout[d], err)
		}

		for _, e := range entries {
			if e.Type().IsRegular() && strings.HasSuffix(strings.ToLower(e.Name()), ".jar") {
				paths = append(paths, filepath.Join(s.layout[d], e.Name()))
			}
		}
	}
	sort.SliceStable(paths, func(i, j int) bool { return filepath.Base(paths[i]) < filepath.Base(paths[j]) })

	return paths, nil
}

func (s *Sorter) relocate(a *Artifact) error {
	dstDir := s.layout[a.Disposition]
	dst := filepath.Join(dstDir, a.Name())
	if dst == a.Path {
		return nil
	}

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("could not create %q: %w", dstDir, err)
	}

	// Another artifact with the same name already sits there, both are kept and
	// this one stays where it is.
	if _, err := os.Lstat(dst); err == nil {
		a.Disposition = s.dispositionOf(a.Path)
		a.Reason = fmt.Sprintf("name clash with %q", dst)
		s.logger.Warningf("Not moving %q, %q already exists", a.Path, dst)
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not stat %q: %w", dst, err)
	}

	if err := os.Rename(a.Path, dst); err != nil {
		return fmt.Errorf("could not move %q: %w", a.Name(), err)
	}

	if a.Disposition == DispositionActive {
		s.logger.Infof("Restored %q", a.Name())
	} else {
		s.logger.Infof("Quarantined %q as %s: %s", a.Name(), a.Disposition, a.Reason)
	}
	a.Path = dst

	return nil
}

func (s *Sorter) dispositionOf(path string) Disposition {
	dir := filepath.Dir(path)
	for d, p := range s.layout {
		if filepath.Clean(p) == dir {
			return d
		}
	}
	return DispositionActive
}
