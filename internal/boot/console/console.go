// Package console launches the server process with the command pipe as its
// standard input.
package console

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/slok/gsx/internal/boot/launch"
	"github.com/slok/gsx/internal/log"
)

// PipeName is the command pipe path relative to the data directory.
var PipeName = filepath.Join(".gsx", "console.pipe")

// loaderTokens are the launcher names that need the `server` argument.
var loaderTokens = []string{"fabric", "quilt"}

// Command is a server process invocation.
type Command struct {
	Java string
	// Args don't include the binary.
	Args []string
	Dir  string
}

// String returns the command as a shell-like line.
func (c Command) String() string {
	return strings.Join(append([]string{c.Java}, c.Args...), " ")
}

// CommandSpec is what the server command is built from.
type CommandSpec struct {
	Java      string
	Target    launch.Target
	WorkDir   string
	MemoryMin string
	MemoryMax string
	JVMArgs   []string
}

// BuildCommand builds the server invocation. Loader launchers get the trailing
// `server` argument, everything else `nogui`.
func BuildCommand(s CommandSpec) Command {
	var args []string
	if s.MemoryMin != "" {
		args = append(args, "-Xms"+s.MemoryMin)
	}
	if s.MemoryMax != "" {
		args = append(args, "-Xmx"+s.MemoryMax)
	}
	args = append(args, s.JVMArgs...)

	switch s.Target.Kind {
	case launch.KindArgsFile:
		if _, err := os.Stat(filepath.Join(s.WorkDir, "user_jvm_args.txt")); err == nil {
			args = append(args, "@user_jvm_args.txt")
		}
		args = append(args, "@"+relative(s.WorkDir, s.Target.Path), "nogui")
	default:
		args = append(args, "-jar", relative(s.WorkDir, s.Target.Path), trailingArg(s.Target.Path))
	}

	return Command{Java: s.Java, Args: args, Dir: s.WorkDir}
}

func trailingArg(path string) string {
	name := strings.ToLower(filepath.Base(path))
	for _, t := range loaderTokens {
		if strings.Contains(name, t) {
			return "server"
		}
	}
	return "nogui"
}

func relative(base, path string) string {
	if rel, err := filepath.Rel(base, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// LauncherConfig is the configuration of the process launcher.
type LauncherConfig struct {
	DataDir string
	// DryRun prints the command instead of replacing the process.
	DryRun bool
	Out    io.Writer
	Logger log.Logger
}

func (c *LauncherConfig) defaults() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory is required")
	}

	if c.Out == nil {
		c.Out = os.Stdout
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "boot.console.Launcher"})

	return nil
}

// Launcher replaces the current process with the server.
type Launcher struct {
	pipePath string
	dryRun   bool
	out      io.Writer
	logger   log.Logger
}

// NewLauncher returns a new process launcher.
func NewLauncher(cfg LauncherConfig) (*Launcher, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Launcher{
		pipePath: filepath.Join(cfg.DataDir, PipeName),
		dryRun:   cfg.DryRun,
		out:      cfg.Out,
		logger:   cfg.Logger,
	}, nil
}

// PipePath returns the command pipe path.
func (l *Launcher) PipePath() string { return l.pipePath }

// Launch wires the command pipe as standard input and replaces the process image
// with the command. It only returns on failure, or after printing in dry-run mode.
func (l *Launcher) Launch(cmd Command) error {
	if l.dryRun {
		_, err := fmt.Fprintf(l.out, "cd %s && %s < %s\n", cmd.Dir, cmd, l.pipePath)
		return err
	}

	java := cmd.Java
	if filepath.Base(java) != java {
		abs, err := filepath.Abs(java)
		if err != nil {
			return fmt.Errorf("could not resolve java path: %w", err)
		}
		java = abs
	}

	if err := ensurePipe(l.pipePath); err != nil {
		return fmt.Errorf("could not prepare command pipe: %w", err)
	}
	if err := attachStdin(l.pipePath); err != nil {
		return fmt.Errorf("could not attach command pipe: %w", err)
	}
	if err := os.Chdir(cmd.Dir); err != nil {
		return fmt.Errorf("could not change to working directory: %w", err)
	}

	l.logger.Infof("Launching: %s", cmd)
	return execve(java, append([]string{cmd.Java}, cmd.Args...), os.Environ())
}
