// Package launch resolves the single artifact a boot launches.
package launch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/slok/gsx/internal/boot/match"
	"github.com/slok/gsx/internal/log"
	"github.com/slok/gsx/internal/model"
)

var (
	// ErrNoLaunchTarget is returned when no artifact can be launched.
	ErrNoLaunchTarget = errors.New("no launch target found")
	// ErrCorruptArtifact is returned when the launch target is too small to be real.
	ErrCorruptArtifact = errors.New("corrupt launch artifact")
)

// Kind is how a target is launched.
type Kind string

const (
	// KindJar targets are launched with `-jar`.
	KindJar Kind = "jar"
	// KindArgsFile targets are JVM argument files (`@file`) written by modern installers.
	KindArgsFile Kind = "args-file"
)

// Target is the resolved launch candidate.
type Target struct {
	Path string
	Kind Kind
	Size int64
	// Matcher is the matcher that selected the target.
	Matcher string
}

type familyRules struct {
	canonical    string
	globs        []match.Matcher
	loaderTokens []string // Light loader launchers, any other jar is a full server.
}

const (
	loaderMinSize = 10 * 1024
	serverMinSize = 50 * 1024
)

var rules = map[model.Family]familyRules{
	model.FamilyVanilla: {
		canonical: "server.jar",
		globs:     []match.Matcher{match.Glob("minecraft_server.*.jar")},
	},
	model.FamilyPaper: {
		canonical: "server.jar",
		globs:     []match.Matcher{match.Glob("paper-*.jar"), match.Glob("paperclip*.jar")},
	},
	model.FamilyPurpur: {
		canonical: "server.jar",
		globs:     []match.Matcher{match.Glob("purpur-*.jar")},
	},
	model.FamilySpigot: {
		canonical: "server.jar",
		globs:     []match.Matcher{match.Glob("spigot-*.jar"), match.Glob("craftbukkit-*.jar")},
	},
	model.FamilyFabric: {
		canonical: "fabric-server-launch.jar",
		globs: []match.Matcher{
			match.Exact("server.jar"),
			match.Glob("fabric-server-mc.*-launcher.*.jar"),
			match.Glob("fabric-server-*.jar"),
		},
		loaderTokens: []string{"fabric-server-"},
	},
	model.FamilyQuilt: {
		canonical: "quilt-server-launch.jar",
		globs: []match.Matcher{
			match.Exact("server.jar"),
			match.Glob("quilt-server-*.jar"),
		},
		loaderTokens: []string{"quilt-server-"},
	},
	model.FamilyForge: {
		canonical: "server.jar",
		globs: []match.Matcher{
			match.Glob("forge-*-shim.jar"),
			match.Glob("forge-*-universal.jar"),
			match.Regex(`^forge-[0-9.]+-[0-9.]+\.jar$`),
			match.Glob("libraries/net/minecraftforge/forge/*/unix_args.txt"),
		},
	},
	model.FamilyNeoForge: {
		canonical: "server.jar",
		globs: []match.Matcher{
			match.Glob("libraries/net/neoforged/neoforge/*/unix_args.txt"),
		},
	},
}

var generic = match.Glob("*server*.jar")

// ResolverConfig is the configuration of the launch target resolver.
type ResolverConfig struct {
	WorkDir string
	Family  model.Family
	// Override is an explicit artifact, relative to the working directory or absolute.
	Override string
	Logger   log.Logger
}

func (c *ResolverConfig) defaults() error {
	if c.WorkDir == "" {
		return fmt.Errorf("working directory is required")
	}

	if _, ok := rules[c.Family]; !ok {
		return fmt.Errorf("unknown family %q: %w", c.Family, model.ErrNotValid)
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "boot.launch.Resolver"})

	return nil
}

// Resolver picks exactly one launch target.
type Resolver struct {
	workDir  string
	rules    familyRules
	override string
	logger   log.Logger
}

// NewResolver returns a new launch target resolver.
func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Resolver{
		workDir:  cfg.WorkDir,
		rules:    rules[cfg.Family],
		override: cfg.Override,
		logger:   cfg.Logger,
	}, nil
}

// Resolve returns the explicit override when it exists, otherwise the first hit of
// the canonical name, the family globs and the generic fallback, in that order.
func (r *Resolver) Resolve() (*Target, error) {
	if r.override != "" {
		p := r.override
		if !filepath.IsAbs(p) {
			p = filepath.Join(r.workDir, p)
		}
		if match.RegularFile(p) {
			return r.target(p, "override")
		}
		r.logger.Warningf("Launch override %q does not exist, ignoring", r.override)
	}

	ms := append([]match.Matcher{match.Exact(r.rules.canonical)}, r.rules.globs...)
	ms = append(ms, generic)

	p, m, err := match.First(r.workDir, ms, match.RegularFile, notInstaller)
	if err != nil {
		return nil, err
	}
	if p == "" {
		return nil, ErrNoLaunchTarget
	}

	return r.target(p, m.String())
}

func (r *Resolver) target(path, matcher string) (*Target, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("could not stat launch target: %w", err)
	}

	t := &Target{Path: path, Kind: KindJar, Size: info.Size(), Matcher: matcher}
	if strings.HasSuffix(path, ".txt") {
		t.Kind = KindArgsFile
	}

	if threshold := r.minSize(path); t.Kind == KindJar && t.Size < threshold {
		return nil, fmt.Errorf("%q is %d bytes, expected at least %d: %w", filepath.Base(path), t.Size, threshold, ErrCorruptArtifact)
	}

	r.logger.Infof("Launch target %q selected by %s", filepath.Base(path), matcher)
	return t, nil
}

func (r *Resolver) minSize(path string) int64 {
	name := strings.ToLower(filepath.Base(path))
	for _, tk := range r.rules.loaderTokens {
		if strings.Contains(name, tk) {
			return loaderMinSize
		}
	}
	return serverMinSize
}

func notInstaller(path string) bool {
	return !strings.Contains(strings.ToLower(filepath.Base(path)), "installer")
}
