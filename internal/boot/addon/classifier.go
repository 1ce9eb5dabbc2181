package addon

import (
	"archive/zip"
	"fmt"
	"os"
	"slices"

	"github.com/slok/gsx/internal/boot/patterns"
	"github.com/slok/gsx/internal/log"
)

// ClassifierConfig is the configuration of the artifact classifier.
type ClassifierConfig struct {
	// ClientPatterns are filename hints for artifacts without descriptors.
	ClientPatterns patterns.List
	// ForcePatterns mark artifacts as client-only whatever they declare.
	ForcePatterns patterns.List
	Logger        log.Logger
}

func (c *ClassifierConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "boot.addon.Classifier"})

	return nil
}

// Classifier detects loader affinity and the client-only flag of artifacts.
type Classifier struct {
	clientPatterns patterns.List
	forcePatterns  patterns.List
	logger         log.Logger
}

// NewClassifier returns a new artifact classifier.
func NewClassifier(cfg ClassifierConfig) (*Classifier, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Classifier{
		clientPatterns: cfg.ClientPatterns,
		forcePatterns:  cfg.ForcePatterns,
		logger:         cfg.Logger,
	}, nil
}

// Classify inspects the artifact at path. Artifacts that are not readable
// archives are classified from their filename only.
func (c *Classifier) Classify(path string) (*Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("could not stat artifact: %w", err)
	}

	a := &Artifact{
		Path:       path,
		Size:       info.Size(),
		Affinity:   AffinityUnknown,
		ClientOnly: FlagUnknown,
	}

	descs, err := c.descriptors(path)
	if err != nil {
		c.logger.Warningf("Could not read descriptors of %q: %s", a.Name(), err)
	}

	for _, d := range descs {
		if !slices.Contains(a.Loaders, d.loader) {
			a.Loaders = append(a.Loaders, d.loader)
		}
		a.ModIDs = append(a.ModIDs, d.modIDs...)

		// The first descriptor declaring client-only decides.
		if a.ClientOnly == FlagTrue || d.clientOnly == nil {
			continue
		}
		if *d.clientOnly {
			a.ClientOnly = FlagTrue
			a.Reason = fmt.Sprintf("%s descriptor declares client-only", d.loader)
		} else {
			a.ClientOnly = FlagFalse
		}
	}

	switch len(a.Loaders) {
	case 0:
		a.Affinity = AffinityUnknown
	case 1:
		a.Affinity = AffinitySingle
	default:
		a.Affinity = AffinityMulti
	}

	if len(descs) == 0 {
		if p, ok := c.clientPatterns.MatchAny(a.Name()); ok {
			a.ClientOnly = FlagTrue
			a.Reason = fmt.Sprintf("filename matches client pattern %q", p)
		}
	}

	if p, ok := c.forcePatterns.MatchAny(a.Name()); ok {
		a.ClientOnly = FlagTrue
		a.Forced = true
		a.Reason = fmt.Sprintf("filename matches force pattern %q", p)
	}

	return a, nil
}

func (c *Classifier) descriptors(path string) ([]descriptor, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	return readDescriptors(&zr.Reader)
}
