package runtime

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/slok/gsx/internal/boot/match"
	"github.com/slok/gsx/internal/log"
)

// ErrRuntimeNotFound is returned when no Java binary can be used.
var ErrRuntimeNotFound = errors.New("java runtime not found")

// BinarySource tells where a resolved binary came from.
type BinarySource string

const (
	BinarySourceOverride   BinarySource = "override"
	BinarySourceDiscovered BinarySource = "discovered"
	BinarySourceSystem     BinarySource = "system"
)

// Binary is a resolved Java binary.
type Binary struct {
	Path   string
	Source BinarySource
}

// ResolverConfig is the configuration of the binary resolver.
type ResolverConfig struct {
	// OverridePath is an explicit java binary path.
	OverridePath string
	// Roots are the directories where JDKs are installed.
	Roots    []string
	LookPath func(file string) (string, error)
	Logger   log.Logger
}

func (c *ResolverConfig) defaults() error {
	if c.Roots == nil {
		c.Roots = []string{"/opt/java", "/usr/lib/jvm"}
	}

	if c.LookPath == nil {
		c.LookPath = exec.LookPath
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "boot.runtime.Resolver"})

	return nil
}

// Resolver finds the Java binary for a runtime major.
type Resolver struct {
	overridePath string
	roots        []string
	lookPath     func(file string) (string, error)
	logger       log.Logger
}

// NewResolver returns a new binary resolver.
func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Resolver{
		overridePath: cfg.OverridePath,
		roots:        cfg.Roots,
		lookPath:     cfg.LookPath,
		logger:       cfg.Logger,
	}, nil
}

// Resolve falls back through override, a discovered binary of the same major
// and the system default binary.
func (r *Resolver) Resolve(major int) (*Binary, error) {
	if r.overridePath != "" {
		if match.RegularFile(r.overridePath) {
			return &Binary{Path: r.overridePath, Source: BinarySourceOverride}, nil
		}
		r.logger.Warningf("Java override %q does not exist, ignoring", r.overridePath)
	}

	n := strconv.Itoa(major)
	matchers := []match.Matcher{
		match.Exact(n + "/bin/java"),
		match.Glob("jdk-" + n + "*/bin/java"),
		match.Glob("*-" + n + "-*/bin/java"),
		match.Glob("temurin-" + n + "*/bin/java"),
	}
	for _, root := range r.roots {
		if _, err := os.Stat(root); err != nil {
			continue
		}

		p, _, err := match.First(root, matchers, match.RegularFile)
		if err != nil {
			return nil, err
		}
		if p != "" {
			return &Binary{Path: p, Source: BinarySourceDiscovered}, nil
		}
	}

	p, err := r.lookPath("java")
	if err == nil {
		r.logger.Warningf("No java %d installation discovered, using system default %q", major, p)
		return &Binary{Path: p, Source: BinarySourceSystem}, nil
	}

	return nil, fmt.Errorf("java %d: %w", major, ErrRuntimeNotFound)
}
