package boot

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/slok/gsx/internal/boot/patterns"
	"github.com/slok/gsx/internal/model"
)

// EnvPrefix is the prefix of the boot configuration environment variables.
const EnvPrefix = "GSX"

// PatternSource is a pattern list source.
type PatternSource struct {
	Inline string
	URL    string
	File   string
}

func (p PatternSource) source() patterns.Source {
	return patterns.Source{Inline: p.Inline, URL: p.URL, File: p.File}
}

// Config is the immutable boot configuration the control plane hands to the sandbox.
// Variables are named after the fields (`GSX_MEMORY_MIN`, `GSX_CLIENT_PATTERNS_URL`...),
// no unprefixed fallbacks are read since sandbox images set their own `JAVA_VERSION`.
type Config struct {
	Family  string `required:"true"`
	Version string `default:"latest"`

	// WorkDir has the server files, DataDir the boot runtime files (command pipe, state).
	WorkDir string `split_words:"true" default:"/data"`
	DataDir string `split_words:"true" default:"/data"`

	MemoryMin string `split_words:"true" default:"1024M"`
	MemoryMax string `split_words:"true" default:"1024M"`
	JVMArgs   string `split_words:"true"`

	JavaVersion    int      `split_words:"true"`
	JavaPath       string   `split_words:"true"`
	JavaRoots      []string `split_words:"true" default:"/opt/java,/usr/lib/jvm"`
	LaunchArtifact string   `split_words:"true"`

	AddonsDir          string `split_words:"true" default:"mods"`
	QuarantineDir      string `split_words:"true" default:"mods-quarantine"`
	OverlayDir         string `split_words:"true" default:"kubejs/data"`
	OverlayDisabledDir string `split_words:"true" default:"kubejs/data.disabled"`

	PurgeClientAddons       bool `split_words:"true" default:"true"`
	PurgeIncompatibleAddons bool `split_words:"true" default:"true"`
	PruneOverlays           bool `split_words:"true" default:"true"`

	ClientPatterns        PatternSource `split_words:"true"`
	ForcePatterns         PatternSource `split_words:"true"`
	IncompatibleAllowlist PatternSource `split_words:"true"`
	DisabledNamespaces    PatternSource `split_words:"true"`
	PatternFetchTimeout   time.Duration `split_words:"true" default:"10s"`
}

// LoadConfig loads the configuration from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("could not load boot configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var memoryRe = regexp.MustCompile(`^[0-9]+[KkMmGg]?$`)

// Validate validates the configuration.
func (c Config) Validate() error {
	if _, err := model.ParseFamily(c.Family); err != nil {
		return err
	}

	for _, m := range []string{c.MemoryMin, c.MemoryMax} {
		if !memoryRe.MatchString(m) {
			return fmt.Errorf("invalid memory size %q: %w", m, model.ErrNotValid)
		}
	}

	if c.JavaVersion < 0 {
		return fmt.Errorf("invalid java version %d: %w", c.JavaVersion, model.ErrNotValid)
	}

	if c.WorkDir == "" || c.DataDir == "" {
		return fmt.Errorf("working and data directories are required: %w", model.ErrNotValid)
	}

	return nil
}

// FamilyValue returns the parsed family. The configuration must be valid.
func (c Config) FamilyValue() model.Family {
	f, _ := model.ParseFamily(c.Family)
	return f
}

// JVMArgList returns the extra JVM arguments.
func (c Config) JVMArgList() []string {
	return strings.Fields(c.JVMArgs)
}

// WorkPath resolves p relative to the working directory.
func (c Config) WorkPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.WorkDir, p)
}

// Environ returns the configuration as environment variables, only the set values
// are rendered so the sandbox applies its own defaults to the rest.
func (c Config) Environ() []string {
	var env []string
	add := func(key, value string) {
		if value != "" {
			env = append(env, EnvPrefix+"_"+key+"="+value)
		}
	}
	addBool := func(key string, value bool) {
		env = append(env, EnvPrefix+"_"+key+"="+strconv.FormatBool(value))
	}
	addSource := func(key string, s PatternSource) {
		add(key+"_INLINE", s.Inline)
		add(key+"_URL", s.URL)
		add(key+"_FILE", s.File)
	}

	add("FAMILY", c.Family)
	add("VERSION", c.Version)
	add("WORK_DIR", c.WorkDir)
	add("DATA_DIR", c.DataDir)
	add("MEMORY_MIN", c.MemoryMin)
	add("MEMORY_MAX", c.MemoryMax)
	add("JVM_ARGS", c.JVMArgs)
	if c.JavaVersion > 0 {
		add("JAVA_VERSION", strconv.Itoa(c.JavaVersion))
	}
	add("JAVA_PATH", c.JavaPath)
	add("JAVA_ROOTS", strings.Join(c.JavaRoots, ","))
	add("LAUNCH_ARTIFACT", c.LaunchArtifact)
	add("ADDONS_DIR", c.AddonsDir)
	add("QUARANTINE_DIR", c.QuarantineDir)
	add("OVERLAY_DIR", c.OverlayDir)
	add("OVERLAY_DISABLED_DIR", c.OverlayDisabledDir)
	addBool("PURGE_CLIENT_ADDONS", c.PurgeClientAddons)
	addBool("PURGE_INCOMPATIBLE_ADDONS", c.PurgeIncompatibleAddons)
	addBool("PRUNE_OVERLAYS", c.PruneOverlays)
	addSource("CLIENT_PATTERNS", c.ClientPatterns)
	addSource("FORCE_PATTERNS", c.ForcePatterns)
	addSource("INCOMPATIBLE_ALLOWLIST", c.IncompatibleAllowlist)
	addSource("DISABLED_NAMESPACES", c.DisabledNamespaces)
	if c.PatternFetchTimeout > 0 {
		add("PATTERN_FETCH_TIMEOUT", c.PatternFetchTimeout.String())
	}

	return env
}

// DefaultConfig returns the configuration with the defaults the sandbox would apply.
func DefaultConfig() Config {
	return Config{
		Version:                 "latest",
		WorkDir:                 "/data",
		DataDir:                 "/data",
		MemoryMin:               "1024M",
		MemoryMax:               "1024M",
		JavaRoots:               []string{"/opt/java", "/usr/lib/jvm"},
		AddonsDir:               "mods",
		QuarantineDir:           "mods-quarantine",
		OverlayDir:              "kubejs/data",
		OverlayDisabledDir:      "kubejs/data.disabled",
		PurgeClientAddons:       true,
		PurgeIncompatibleAddons: true,
		PruneOverlays:           true,
		PatternFetchTimeout:     10 * time.Second,
	}
}
