// Package overlay prunes the declarative data overlays whose add-on is not active.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/slok/gsx/internal/boot/addon"
	"github.com/slok/gsx/internal/boot/patterns"
	"github.com/slok/gsx/internal/log"
)

// builtin namespaces never depend on an add-on.
var builtin = map[string]struct{}{
	"minecraft": {},
	"c":         {},
	"forge":     {},
	"neoforge":  {},
	"fabric":    {},
	"quilt":     {},
	"kubejs":    {},
}

// NamespaceStatus is the state of an overlay namespace.
type NamespaceStatus string

const (
	NamespaceStatusActive   NamespaceStatus = "active"
	NamespaceStatusDisabled NamespaceStatus = "disabled"
)

// Namespace is a named data overlay subtree.
type Namespace struct {
	Name   string
	Status NamespaceStatus
	Reason string
}

// PrunerConfig is the configuration of the overlay pruner.
type PrunerConfig struct {
	// AddonsDir is the active add-ons directory, automatic pruning is skipped when missing.
	AddonsDir   string
	OverlayDir  string
	DisabledDir string
	// Disabled are namespaces disabled by the operator.
	Disabled patterns.List
	// AutoPrune relocates unsatisfied namespaces.
	AutoPrune bool
	Logger    log.Logger
}

func (c *PrunerConfig) defaults() error {
	if c.AddonsDir == "" {
		return fmt.Errorf("add-ons directory is required")
	}

	if c.OverlayDir == "" {
		return fmt.Errorf("overlay directory is required")
	}

	if c.DisabledDir == "" {
		c.DisabledDir = c.OverlayDir + ".disabled"
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "boot.overlay.Pruner"})

	return nil
}

// Pruner relocates overlay namespaces to the disabled tree.
type Pruner struct {
	addonsDir   string
	overlayDir  string
	disabledDir string
	disabled    patterns.List
	autoPrune   bool
	logger      log.Logger
}

// NewPruner returns a new overlay pruner.
func NewPruner(cfg PrunerConfig) (*Pruner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Pruner{
		addonsDir:   cfg.AddonsDir,
		overlayDir:  cfg.OverlayDir,
		disabledDir: cfg.DisabledDir,
		disabled:    cfg.Disabled,
		autoPrune:   cfg.AutoPrune,
		logger:      cfg.Logger,
	}, nil
}

// Prune disables the operator selected namespaces first and then every namespace
// no active artifact satisfies. Namespaces already in the disabled tree are never
// evaluated again. It returns the namespaces that remain in the overlay.
func (p *Pruner) Prune(ctx context.Context, active []addon.Artifact) ([]Namespace, error) {
	if !p.autoPrune && len(p.disabled) == 0 {
		p.logger.Debugf("Overlay pruning disabled, skipping")
		return nil, nil
	}

	// Without add-ons nothing can be judged unsatisfied, operator disabled
	// namespaces are still relocated.
	autoPrune := p.autoPrune
	if _, err := os.Stat(p.addonsDir); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("could not stat add-ons directory: %w", err)
		}
		if autoPrune {
			p.logger.Debugf("No add-ons directory, skipping automatic pruning")
		}
		autoPrune = false
	}

	names, err := p.namespaces()
	if err != nil {
		return nil, err
	}

	var res []Namespace
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ns := Namespace{Name: name, Status: NamespaceStatusActive}
		switch {
		case p.disabled.Has(name):
			ns.Status = NamespaceStatusDisabled
			ns.Reason = "disabled by configuration"
		case !autoPrune:
		case isBuiltin(name):
		case !satisfied(name, active):
			ns.Status = NamespaceStatusDisabled
			ns.Reason = "no active add-on provides it"
		}

		if ns.Status == NamespaceStatusDisabled {
			if err := p.relocate(ns); err != nil {
				return nil, err
			}
			continue
		}
		res = append(res, ns)
	}

	return res, nil
}

func (p *Pruner) namespaces() ([]string, error) {
	entries, err := os.ReadDir(p.overlayDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not read overlay directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	return names, nil
}

func (p *Pruner) relocate(ns Namespace) error {
	src := filepath.Join(p.overlayDir, ns.Name)
	dst := filepath.Join(p.disabledDir, ns.Name)

	if err := os.MkdirAll(p.disabledDir, 0o755); err != nil {
		return fmt.Errorf("could not create disabled overlay directory: %w", err)
	}
	if err := p.setAside(dst); err != nil {
		return fmt.Errorf("could not keep previous disabled namespace %q: %w", ns.Name, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("could not disable namespace %q: %w", ns.Name, err)
	}

	p.logger.Infof("Disabled overlay namespace %q: %s", ns.Name, ns.Reason)
	return nil
}

// setAside renames a previously disabled copy with a timestamp suffix so a
// namespace disabled again never overwrites it.
func (p *Pruner) setAside(path string) error {
	if _, err := os.Lstat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	base := path + "." + time.Now().UTC().Format("20060102T150405")
	aside := base
	for i := 1; ; i++ {
		if _, err := os.Lstat(aside); errors.Is(err, os.ErrNotExist) {
			break
		}
		aside = fmt.Sprintf("%s-%d", base, i)
	}

	if err := os.Rename(path, aside); err != nil {
		return err
	}
	p.logger.Warningf("Kept previous disabled copy of %q as %q", filepath.Base(path), filepath.Base(aside))
	return nil
}

func isBuiltin(name string) bool {
	_, ok := builtin[strings.ToLower(name)]
	return ok
}

func normalize(s string) string {
	return strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(s))
}

// satisfied returns true if an active artifact filename or mod ID contains the namespace token.
func satisfied(name string, active []addon.Artifact) bool {
	token := normalize(name)
	for _, a := range active {
		if strings.Contains(normalize(a.Name()), token) {
			return true
		}
		for _, id := range a.ModIDs {
			if strings.Contains(normalize(id), token) {
				return true
			}
		}
	}
	return false
}
