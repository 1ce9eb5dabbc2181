// Package boot is the in-sandbox boot sequence. It prepares the working directory
// and finally replaces the bootstrap process with the game server.
package boot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/slok/gsx/internal/boot/addon"
	"github.com/slok/gsx/internal/boot/console"
	"github.com/slok/gsx/internal/boot/crash"
	"github.com/slok/gsx/internal/boot/installer"
	"github.com/slok/gsx/internal/boot/launch"
	"github.com/slok/gsx/internal/boot/overlay"
	"github.com/slok/gsx/internal/boot/patterns"
	"github.com/slok/gsx/internal/boot/runtime"
	"github.com/slok/gsx/internal/log"
	"github.com/slok/gsx/internal/model"
)

// Plan is what the boot steps decide, every step reads the previous ones.
type Plan struct {
	// Step is the running (or failed) step.
	Step      string
	Addons    *addon.Result
	Overlays  []overlay.Namespace
	Installer *installer.Result
	Target    *launch.Target
	Runtime   runtime.Selection
	Java      *runtime.Binary
	Crash     *crash.Result
	Command   console.Command
}

// BootstrapperConfig is the configuration of the bootstrapper.
type BootstrapperConfig struct {
	Config Config
	// DryRun prints the server command instead of launching it.
	DryRun bool
	Out    io.Writer
	// ErrOut receives the diagnostics of fatal failures.
	ErrOut          io.Writer
	HTTPClient      *http.Client
	InstallerRunner installer.CommandRunner
	LookPath        func(file string) (string, error)
	TimeNow         func() time.Time
	Logger          log.Logger
}

func (c *BootstrapperConfig) defaults() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}

	if c.Out == nil {
		c.Out = os.Stdout
	}

	if c.ErrOut == nil {
		c.ErrOut = os.Stderr
	}

	if c.InstallerRunner == nil {
		c.InstallerRunner = installer.NewExecRunner(c.Out, c.ErrOut)
	}

	if c.TimeNow == nil {
		c.TimeNow = time.Now
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "boot.Bootstrapper"})

	return nil
}

// Bootstrapper runs the boot sequence.
type Bootstrapper struct {
	cfg             Config
	family          model.Family
	dryRun          bool
	out             io.Writer
	errOut          io.Writer
	httpCli         *http.Client
	installerRunner installer.CommandRunner
	lookPath        func(file string) (string, error)
	timeNow         func() time.Time
	logger          log.Logger
}

// NewBootstrapper returns a new bootstrapper.
func NewBootstrapper(cfg BootstrapperConfig) (*Bootstrapper, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Bootstrapper{
		cfg:             cfg.Config,
		family:          cfg.Config.FamilyValue(),
		dryRun:          cfg.DryRun,
		out:             cfg.Out,
		errOut:          cfg.ErrOut,
		httpCli:         cfg.HTTPClient,
		installerRunner: cfg.InstallerRunner,
		lookPath:        cfg.LookPath,
		timeNow:         cfg.TimeNow,
		logger:          cfg.Logger,
	}, nil
}

// Run runs the boot sequence. On success it never returns unless in dry-run mode,
// the process is replaced by the server. On failure the state is reported as failed
// and the directory listings are written for diagnostics.
func (b *Bootstrapper) Run(ctx context.Context) (*Plan, error) {
	b.logger.Infof("Booting %s %s", b.family, b.cfg.Version)
	b.writeState(model.BootState{Phase: model.BootPhaseBooting})

	plan := &Plan{}
	chain := NewStepChain(
		NewLogStep("classify", b.logger, StepFunc(b.classify)),
		NewLogStep("prune", b.logger, StepFunc(b.prune)),
		NewLogStep("install", b.logger, StepFunc(b.install)),
		NewLogStep("resolve", b.logger, StepFunc(b.resolveTarget)),
		NewLogStep("runtime", b.logger, StepFunc(b.selectRuntime)),
		NewLogStep("reconcile", b.logger, StepFunc(b.reconcile)),
		NewLogStep("launch", b.logger, StepFunc(b.launchServer)),
	)

	err := chain.Run(ctx, plan)
	if err != nil {
		b.writeState(model.BootState{Phase: model.BootPhaseFailed, Step: plan.Step, Error: err.Error()})
		b.diagnose(err)
		return plan, err
	}

	return plan, nil
}

func (b *Bootstrapper) classify(ctx context.Context, plan *Plan) error {
	loader, err := b.patternLoader()
	if err != nil {
		return err
	}

	classifier, err := addon.NewClassifier(addon.ClassifierConfig{
		ClientPatterns: loader.Load(ctx, b.cfg.ClientPatterns.source()),
		ForcePatterns:  loader.Load(ctx, b.cfg.ForcePatterns.source()),
		Logger:         b.logger,
	})
	if err != nil {
		return err
	}

	sorter, err := addon.NewSorter(addon.SorterConfig{
		Classifier: classifier,
		Policy: addon.Policy{
			Family:            b.family,
			Version:           b.cfg.Version,
			PurgeClient:       b.cfg.PurgeClientAddons,
			PurgeIncompatible: b.cfg.PurgeIncompatibleAddons,
			Allowlist:         loader.Load(ctx, b.cfg.IncompatibleAllowlist.source()),
		},
		Layout: addon.NewLayout(b.cfg.WorkPath(b.cfg.AddonsDir), b.cfg.WorkPath(b.cfg.QuarantineDir)),
		Logger: b.logger,
	})
	if err != nil {
		return err
	}

	plan.Addons, err = sorter.Sort(ctx)
	return err
}

func (b *Bootstrapper) prune(ctx context.Context, plan *Plan) error {
	loader, err := b.patternLoader()
	if err != nil {
		return err
	}

	pruner, err := overlay.NewPruner(overlay.PrunerConfig{
		AddonsDir:   b.cfg.WorkPath(b.cfg.AddonsDir),
		OverlayDir:  b.cfg.WorkPath(b.cfg.OverlayDir),
		DisabledDir: b.cfg.WorkPath(b.cfg.OverlayDisabledDir),
		Disabled:    loader.Load(ctx, b.cfg.DisabledNamespaces.source()),
		AutoPrune:   b.cfg.PruneOverlays,
		Logger:      b.logger,
	})
	if err != nil {
		return err
	}

	var active []addon.Artifact
	if plan.Addons != nil {
		active = plan.Addons.Active()
	}
	plan.Overlays, err = pruner.Prune(ctx, active)
	return err
}

func (b *Bootstrapper) install(ctx context.Context, plan *Plan) error {
	r, err := installer.NewRunner(installer.RunnerConfig{
		WorkDir: b.cfg.WorkDir,
		Family:  b.family,
		Version: b.cfg.Version,
		Java:    b.cfg.JavaPath,
		Runner:  b.installerRunner,
		Logger:  b.logger,
	})
	if err != nil {
		return err
	}

	plan.Installer, err = r.Run(ctx)
	return err
}

func (b *Bootstrapper) resolveTarget(_ context.Context, plan *Plan) error {
	r, err := launch.NewResolver(launch.ResolverConfig{
		WorkDir:  b.cfg.WorkDir,
		Family:   b.family,
		Override: b.cfg.LaunchArtifact,
		Logger:   b.logger,
	})
	if err != nil {
		return err
	}

	plan.Target, err = r.Resolve()
	return err
}

func (b *Bootstrapper) selectRuntime(_ context.Context, plan *Plan) error {
	plan.Runtime = runtime.Select(b.family, b.cfg.Version, b.cfg.JavaVersion)
	b.logger.Infof("Selected java %d (%s)", plan.Runtime.Major, plan.Runtime.Source)

	r, err := runtime.NewResolver(runtime.ResolverConfig{
		OverridePath: b.cfg.JavaPath,
		Roots:        b.cfg.JavaRoots,
		LookPath:     b.lookPath,
		Logger:       b.logger,
	})
	if err != nil {
		return err
	}

	plan.Java, err = r.Resolve(plan.Runtime.Major)
	return err
}

func (b *Bootstrapper) reconcile(_ context.Context, plan *Plan) error {
	r, err := crash.NewReconciler(crash.ReconcilerConfig{WorkDir: b.cfg.WorkDir, Logger: b.logger})
	if err != nil {
		return err
	}

	plan.Crash, err = r.Reconcile()
	return err
}

func (b *Bootstrapper) launchServer(_ context.Context, plan *Plan) error {
	l, err := console.NewLauncher(console.LauncherConfig{
		DataDir: b.cfg.DataDir,
		DryRun:  b.dryRun,
		Out:     b.out,
		Logger:  b.logger,
	})
	if err != nil {
		return err
	}

	plan.Command = console.BuildCommand(console.CommandSpec{
		Java:      plan.Java.Path,
		Target:    *plan.Target,
		WorkDir:   b.cfg.WorkDir,
		MemoryMin: b.cfg.MemoryMin,
		MemoryMax: b.cfg.MemoryMax,
		JVMArgs:   b.cfg.JVMArgList(),
	})

	b.writeState(model.BootState{Phase: model.BootPhaseLaunching})
	return l.Launch(plan.Command)
}

func (b *Bootstrapper) patternLoader() (*patterns.Loader, error) {
	return patterns.NewLoader(patterns.LoaderConfig{
		HTTPClient:   b.httpCli,
		FetchTimeout: b.cfg.PatternFetchTimeout,
		BaseDir:      b.cfg.WorkDir,
		Logger:       b.logger,
	})
}

func (b *Bootstrapper) writeState(st model.BootState) {
	st.UpdatedAt = b.timeNow().UTC()
	if err := WriteState(b.cfg.DataDir, st); err != nil {
		b.logger.Warningf("Could not report boot state: %s", err)
	}
}

func (b *Bootstrapper) diagnose(bootErr error) {
	fmt.Fprintf(b.errOut, "Boot failed: %s\n", bootErr)
	if err := WriteListing(b.errOut, b.cfg.WorkDir); err != nil {
		b.logger.Warningf("Could not list working directory: %s", err)
	}
	if b.cfg.DataDir != b.cfg.WorkDir {
		if err := WriteListing(b.errOut, b.cfg.DataDir); err != nil {
			b.logger.Warningf("Could not list data directory: %s", err)
		}
	}
}
