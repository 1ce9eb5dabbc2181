package io

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/docker/go-units"
	"gopkg.in/yaml.v3"

	"github.com/slok/gsx/internal/model"
)

// InstanceYAMLRepository loads instance specifications from YAML files.
type InstanceYAMLRepository struct {
	fs fs.FS
}

// NewInstanceYAMLRepository creates a new YAML instance spec repository.
func NewInstanceYAMLRepository(filesystem fs.FS) *InstanceYAMLRepository {
	return &InstanceYAMLRepository{fs: filesystem}
}

// GetConfig loads an instance configuration from a YAML file and returns a validated domain model.
func (r *InstanceYAMLRepository) GetConfig(ctx context.Context, path string) (model.InstanceConfig, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.InstanceConfig{}, fmt.Errorf("reading instance file: %w", err)
	}

	if ctx.Err() != nil {
		return model.InstanceConfig{}, ctx.Err()
	}

	var spec InstanceSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return model.InstanceConfig{}, fmt.Errorf("parsing YAML: %w", err)
	}

	cfg, err := spec.ToModel()
	if err != nil {
		return model.InstanceConfig{}, fmt.Errorf("invalid instance spec: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return model.InstanceConfig{}, fmt.Errorf("invalid instance spec: %w", err)
	}

	return cfg, nil
}

// InstanceSpec represents the YAML structure of an instance specification.
// The HTTP API accepts the same shape in JSON.
//
//	name: survival
//	family: fabric
//	version: 1.20.1
//	memory: {min: 1G, max: 4G}
//	port: 25565
//	java: {version: 17, args: ["-XX:+UseG1GC"]}
//	env:
//	  GSX_PURGE_CLIENT_ADDONS: "false"
type InstanceSpec struct {
	Name           string            `yaml:"name" json:"name,omitempty"`
	Family         string            `yaml:"family" json:"family,omitempty"`
	Version        string            `yaml:"version" json:"version,omitempty"`
	Memory         MemorySpec        `yaml:"memory" json:"memory,omitempty"`
	Port           int               `yaml:"port" json:"port,omitempty"`
	Image          string            `yaml:"image" json:"image,omitempty"`
	Java           JavaSpec          `yaml:"java" json:"java,omitempty"`
	LaunchArtifact string            `yaml:"launch_artifact" json:"launch_artifact,omitempty"`
	Env            map[string]string `yaml:"env" json:"env,omitempty"`
}

// MemorySpec are the JVM heap bounds in human units (512M, 4G...).
type MemorySpec struct {
	Min string `yaml:"min" json:"min,omitempty"`
	Max string `yaml:"max" json:"max,omitempty"`
}

// JavaSpec are the runtime overrides.
type JavaSpec struct {
	Version int      `yaml:"version" json:"version,omitempty"`
	Path    string   `yaml:"path" json:"path,omitempty"`
	Args    []string `yaml:"args" json:"args,omitempty"`
}

// ToModel maps the spec into an instance configuration, filling the defaults.
func (s InstanceSpec) ToModel() (model.InstanceConfig, error) {
	if s.Name == "" {
		return model.InstanceConfig{}, fmt.Errorf("name is required: %w", model.ErrNotValid)
	}

	family, err := model.ParseFamily(s.Family)
	if err != nil {
		return model.InstanceConfig{}, err
	}

	minMB, err := ParseMemoryMB(s.Memory.Min, 1024)
	if err != nil {
		return model.InstanceConfig{}, fmt.Errorf("memory.min: %w", err)
	}
	maxMB, err := ParseMemoryMB(s.Memory.Max, minMB)
	if err != nil {
		return model.InstanceConfig{}, fmt.Errorf("memory.max: %w", err)
	}

	version := s.Version
	if version == "" {
		version = "latest"
	}

	return model.InstanceConfig{
		Name:    s.Name,
		Family:  family,
		Version: version,
		Memory:  model.Memory{MinMB: minMB, MaxMB: maxMB},
		Port:    s.Port,
		Image:   s.Image,
		Overrides: model.BootOverrides{
			JavaVersion:    s.Java.Version,
			JavaPath:       s.Java.Path,
			LaunchArtifact: s.LaunchArtifact,
			JVMArgs:        s.Java.Args,
		},
		Env: s.Env,
	}, nil
}

// ParseMemoryMB parses a human memory size ("512M", "4G", "4096") into megabytes.
// Values without unit are megabytes. Empty values return def.
func ParseMemoryMB(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}

	// Bare numbers are megabytes.
	if isDigits(v) {
		v += "m"
	}

	b, err := units.RAMInBytes(v)
	if err != nil {
		return 0, fmt.Errorf("invalid memory %q: %w", v, model.ErrNotValid)
	}
	mb := b / units.MiB
	if mb <= 0 {
		return 0, fmt.Errorf("memory %q is lower than 1M: %w", v, model.ErrNotValid)
	}

	return int(mb), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
