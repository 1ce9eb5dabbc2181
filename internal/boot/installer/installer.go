// Package installer runs the one-time family installers that materialize the
// launchable server artifact.
package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/slok/gsx/internal/boot/match"
	"github.com/slok/gsx/internal/log"
	"github.com/slok/gsx/internal/model"
)

// ErrInstallerFailed is returned when an installer fails with both invocations.
var ErrInstallerFailed = errors.New("installer failed")

// CanonicalName is the filename installer outputs are renamed to.
const CanonicalName = "server.jar"

// CommandRunner runs a command in a directory.
type CommandRunner interface {
	Run(ctx context.Context, dir string, name string, args ...string) error
}

// NewExecRunner returns a CommandRunner that runs real processes.
func NewExecRunner(stdout, stderr io.Writer) CommandRunner {
	return execRunner{stdout: stdout, stderr: stderr}
}

type execRunner struct {
	stdout io.Writer
	stderr io.Writer
}

func (e execRunner) Run(ctx context.Context, dir string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = e.stdout
	cmd.Stderr = e.stderr
	return cmd.Run()
}

type spec struct {
	glob    string
	args    func(version string) []string
	altArgs func(version string) []string
	// outputs are renamed to the canonical name, first hit wins.
	outputs []match.Matcher
}

var specs = map[model.Family]spec{
	model.FamilyForge: {
		glob:    "forge-*-installer.jar",
		args:    func(string) []string { return []string{"--installServer"} },
		altArgs: func(string) []string { return []string{"--install-server"} },
		outputs: []match.Matcher{
			match.Glob("forge-*-shim.jar"),
			match.Glob("forge-*-universal.jar"),
			match.Regex(`^forge-[0-9.]+-[0-9.]+\.jar$`),
		},
	},
	model.FamilyNeoForge: {
		glob:    "neoforge-*-installer.jar",
		args:    func(string) []string { return []string{"--installServer"} },
		altArgs: func(string) []string { return []string{"--install-server"} },
	},
	model.FamilyFabric: {
		glob:    "fabric-installer*.jar",
		args:    func(string) []string { return []string{"server", "-downloadMinecraft"} },
		altArgs: func(string) []string { return []string{"server"} },
	},
	model.FamilyQuilt: {
		glob: "quilt-installer*.jar",
		args: func(v string) []string {
			return []string{"install", "server", v, "--download-server", "--install-dir=."}
		},
		altArgs: func(v string) []string {
			return []string{"install", "server", v, "--download-server"}
		},
	},
}

// RunnerConfig is the configuration of the installer runner.
type RunnerConfig struct {
	WorkDir string
	Family  model.Family
	Version string
	// Java is the binary that runs the installer jar.
	Java   string
	Runner CommandRunner
	Logger log.Logger
}

func (c *RunnerConfig) defaults() error {
	if c.WorkDir == "" {
		return fmt.Errorf("working directory is required")
	}

	if c.Java == "" {
		c.Java = "java"
	}

	if c.Runner == nil {
		c.Runner = NewExecRunner(os.Stdout, os.Stderr)
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "boot.installer.Runner"})

	return nil
}

// Runner runs the family installer if there is one.
type Runner struct {
	workDir string
	family  model.Family
	version string
	java    string
	runner  CommandRunner
	logger  log.Logger
}

// NewRunner returns a new installer runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Runner{
		workDir: cfg.WorkDir,
		family:  cfg.Family,
		version: cfg.Version,
		java:    cfg.Java,
		runner:  cfg.Runner,
		logger:  cfg.Logger,
	}, nil
}

// Result is the outcome of an installer run.
type Result struct {
	// Installer is the consumed installer path, empty when nothing ran.
	Installer string
	// Output is the canonical artifact the installer output was renamed to, if any.
	Output string
}

// Run runs the installer present in the working directory. A consumed installer
// is deleted so the next boot doesn't run it again.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	s, ok := specs[r.family]
	if !ok {
		return &Result{}, nil
	}

	installer, _, err := match.First(r.workDir, []match.Matcher{match.Glob(s.glob)}, match.RegularFile)
	if err != nil {
		return nil, err
	}
	if installer == "" {
		r.logger.Debugf("No installer found")
		return &Result{}, nil
	}

	name := filepath.Base(installer)
	r.logger.Infof("Running installer %q", name)
	err = r.run(ctx, installer, s.args(r.version))
	if err != nil {
		r.logger.Warningf("Installer %q failed (%s), retrying with alternate arguments", name, err)
		err = r.run(ctx, installer, s.altArgs(r.version))
	}
	if err != nil {
		return nil, fmt.Errorf("%q: %w: %w", name, ErrInstallerFailed, err)
	}

	if err := os.Remove(installer); err != nil {
		return nil, fmt.Errorf("could not delete consumed installer: %w", err)
	}

	res := &Result{Installer: installer}
	if len(s.outputs) == 0 {
		return res, nil
	}

	out, _, err := match.First(r.workDir, s.outputs, match.RegularFile)
	if err != nil {
		return nil, err
	}
	if out == "" {
		r.logger.Warningf("Installer didn't produce a known output")
		return res, nil
	}

	canonical := filepath.Join(r.workDir, CanonicalName)
	if err := os.Rename(out, canonical); err != nil {
		return nil, fmt.Errorf("could not rename installer output: %w", err)
	}
	r.logger.Infof("Renamed %q to %q", filepath.Base(out), CanonicalName)
	res.Output = canonical

	return res, nil
}

func (r *Runner) run(ctx context.Context, installer string, args []string) error {
	return r.runner.Run(ctx, r.workDir, r.java, append([]string{"-jar", filepath.Base(installer)}, args...)...)
}
