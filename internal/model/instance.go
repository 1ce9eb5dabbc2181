package model

import (
	"fmt"
	"strings"
	"time"
)

// Instance represents a game server instance and its sandbox.
type Instance struct {
	ID          string
	Name        string
	Status      InstanceStatus
	Config      InstanceConfig
	ContainerID string
	// ExitCode and Error are the last terminal state reported by the sandbox.
	ExitCode  int
	Error     string
	CreatedAt time.Time
	StartedAt *time.Time
	StoppedAt *time.Time
}

// InstanceConfig is the configuration an instance sandbox is created with.
// These settings are immutable after creation.
type InstanceConfig struct {
	Name    string
	Family  Family
	Version string
	Memory  Memory
	// Port is the published host port, 0 means allocate one.
	Port int
	// Image overrides the engine default sandbox image.
	Image     string
	Overrides BootOverrides
	// Env has extra boot variables (pattern sources, purge toggles, directory hints...).
	Env map[string]string
}

// Memory are the JVM heap bounds.
type Memory struct {
	MinMB int
	MaxMB int
}

// BootOverrides are the operator overrides applied by the boot sequence.
type BootOverrides struct {
	JavaVersion    int
	JavaPath       string
	LaunchArtifact string
	JVMArgs        []string
}

// Validate validates the instance configuration.
func (c *InstanceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required: %w", ErrNotValid)
	}
	if strings.ContainsAny(c.Name, " /\\:") {
		return fmt.Errorf("name %q has invalid characters: %w", c.Name, ErrNotValid)
	}

	if _, err := ParseFamily(string(c.Family)); err != nil {
		return err
	}

	if strings.TrimSpace(c.Version) == "" {
		return fmt.Errorf("version is required: %w", ErrNotValid)
	}

	if c.Memory.MinMB <= 0 {
		return fmt.Errorf("min memory must be positive: %w", ErrNotValid)
	}
	if c.Memory.MaxMB < c.Memory.MinMB {
		return fmt.Errorf("max memory (%d MB) is lower than min memory (%d MB): %w", c.Memory.MaxMB, c.Memory.MinMB, ErrNotValid)
	}

	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range (0-65535): %w", c.Port, ErrNotValid)
	}

	if c.Overrides.JavaVersion < 0 {
		return fmt.Errorf("java version override must be positive: %w", ErrNotValid)
	}

	return nil
}
