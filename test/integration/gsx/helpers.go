package gsx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/slok/gsx/test/integration/testutils"
)

// Config holds integration test configuration loaded from environment variables.
type Config struct {
	Binary string
	Engine string
}

func (c *Config) defaults() error {
	if c.Binary == "" {
		c.Binary = "gsx"
	}

	// go test changes the CWD to the test package directory, relative paths would break.
	if !filepath.IsAbs(c.Binary) {
		return fmt.Errorf("GSX_INTEGRATION_BINARY must be an absolute path, got %q", c.Binary)
	}
	if _, err := os.Stat(c.Binary); err != nil {
		return fmt.Errorf("gsx binary not found at %q: %w", c.Binary, err)
	}

	if c.Engine == "" {
		c.Engine = "docker"
	}

	return nil
}

// NewConfig loads integration test configuration from environment variables.
// If the config is invalid or the activation env var is not set, the test is skipped.
func NewConfig(t *testing.T) Config {
	t.Helper()

	const (
		envActivation = "GSX_INTEGRATION"
		envBinary     = "GSX_INTEGRATION_BINARY"
		envEngine     = "GSX_INTEGRATION_ENGINE"
	)

	if os.Getenv(envActivation) != "true" {
		t.Skipf("Skipping integration test: %s is not set to 'true'", envActivation)
	}

	c := Config{
		Binary: os.Getenv(envBinary),
		Engine: os.Getenv(envEngine),
	}

	if err := c.defaults(); err != nil {
		t.Skipf("Skipping due to invalid config: %s", err)
	}

	return c
}

// RunGSXCmd runs a gsx command isolated on its own data directory.
func RunGSXCmd(ctx context.Context, config Config, dataDir, cmdArgs string) (stdout, stderr []byte, err error) {
	args := fmt.Sprintf("--no-log --engine %s --data-dir %s %s", config.Engine, dataDir, cmdArgs)
	return testutils.RunGSX(ctx, nil, config.Binary, args, true)
}

// RunCreate creates a paper instance, a zero port lets gsx allocate one.
func RunCreate(ctx context.Context, config Config, dataDir, name string, port int) (stdout, stderr []byte, err error) {
	args := fmt.Sprintf("create --name %s --family paper --version 1.20.4 --min-mem 512 --max-mem 1024", name)
	if port != 0 {
		args = fmt.Sprintf("%s --port %d", args, port)
	}
	return RunGSXCmd(ctx, config, dataDir, args)
}

// RunRm removes an instance (with force).
func RunRm(ctx context.Context, config Config, dataDir, name string) (stdout, stderr []byte, err error) {
	return RunGSXCmd(ctx, config, dataDir, fmt.Sprintf("rm --force %s", name))
}

// RunList lists instances in JSON format.
func RunList(ctx context.Context, config Config, dataDir string) (stdout, stderr []byte, err error) {
	return RunGSXCmd(ctx, config, dataDir, "list --format json")
}

// RunStatus gets the status of an instance in JSON format.
func RunStatus(ctx context.Context, config Config, dataDir, name string) (stdout, stderr []byte, err error) {
	return RunGSXCmd(ctx, config, dataDir, fmt.Sprintf("status %s --format json", name))
}
