package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/gsx/internal/app/create"
	"github.com/slok/gsx/internal/model"
	storageio "github.com/slok/gsx/internal/storage/io"
	"github.com/slok/gsx/internal/utils/env"
)

type CreateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	// Spec file.
	file string

	// Inline spec flags.
	name           string
	family         string
	version        string
	minMem         string
	maxMem         string
	port           int
	image          string
	javaVersion    int
	javaPath       string
	jvmArgs        []string
	launchArtifact string
	envSpecs       []string
}

// NewCreateCommand returns the create command.
func NewCreateCommand(rootCmd *RootCommand, app *kingpin.Application) *CreateCommand {
	c := &CreateCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("create", "Create a new game server instance.")
	c.Cmd.Flag("file", "Instance spec YAML file, inline flags are ignored except --env.").Short('f').StringVar(&c.file)

	c.Cmd.Flag("name", "Name for the instance.").Short('n').StringVar(&c.name)
	c.Cmd.Flag("family", "Server family (vanilla, paper, spigot, purpur, fabric, quilt, forge, neoforge).").Default(string(model.FamilyVanilla)).StringVar(&c.family)
	c.Cmd.Flag("version", "Game version.").Default("latest").StringVar(&c.version)
	c.Cmd.Flag("min-mem", "Minimum JVM heap (e.g. 512M, 1G).").Default("1G").StringVar(&c.minMem)
	c.Cmd.Flag("max-mem", "Maximum JVM heap, defaults to the minimum.").StringVar(&c.maxMem)
	c.Cmd.Flag("port", "Host port, the first free one from 25565 when not set.").IntVar(&c.port)
	c.Cmd.Flag("image", "Sandbox image, the engine default when not set.").StringVar(&c.image)
	c.Cmd.Flag("java-version", "Force a Java major version.").IntVar(&c.javaVersion)
	c.Cmd.Flag("java-path", "Force a Java executable path inside the sandbox.").StringVar(&c.javaPath)
	c.Cmd.Flag("jvm-arg", "Extra JVM argument (repeatable).").StringsVar(&c.jvmArgs)
	c.Cmd.Flag("launch-artifact", "Force the launch target, relative to the server directory.").StringVar(&c.launchArtifact)
	c.Cmd.Flag("env", "Boot environment variable KEY=VALUE, or KEY to inherit from the host (repeatable).").Short('e').StringsVar(&c.envSpecs)

	return c
}

func (c CreateCommand) Name() string { return c.Cmd.FullCommand() }

func (c CreateCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cfg, err := c.instanceConfig(ctx)
	if err != nil {
		return err
	}

	d, err := c.rootCmd.newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	svc, err := create.NewService(create.ServiceConfig{
		Engine:     d.engine,
		Repository: d.repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	inst, err := svc.Create(ctx, create.CreateOptions{
		Config: *cfg,
	})
	if err != nil {
		return fmt.Errorf("could not create instance: %w", err)
	}

	fmt.Fprintf(c.rootCmd.Stdout, "Instance created successfully!\n")
	fmt.Fprintf(c.rootCmd.Stdout, "  ID:     %s\n", inst.ID)
	fmt.Fprintf(c.rootCmd.Stdout, "  Name:   %s\n", inst.Name)
	fmt.Fprintf(c.rootCmd.Stdout, "  Server: %s %s\n", inst.Config.Family, inst.Config.Version)
	fmt.Fprintf(c.rootCmd.Stdout, "  Port:   %d\n", inst.Config.Port)
	fmt.Fprintf(c.rootCmd.Stdout, "  Status: %s\n", inst.Status)

	return nil
}

// instanceConfig builds the instance config from the spec file or the inline flags.
func (c CreateCommand) instanceConfig(ctx context.Context) (*model.InstanceConfig, error) {
	extraEnv, err := env.ParseSpecs(c.envSpecs)
	if err != nil {
		return nil, fmt.Errorf("invalid --env: %w", err)
	}

	var cfg model.InstanceConfig
	if c.file != "" {
		abs, err := filepath.Abs(c.file)
		if err != nil {
			return nil, fmt.Errorf("invalid spec file path: %w", err)
		}
		loader := storageio.NewInstanceYAMLRepository(os.DirFS(filepath.Dir(abs)))
		cfg, err = loader.GetConfig(ctx, filepath.Base(abs))
		if err != nil {
			return nil, fmt.Errorf("could not load spec file: %w", err)
		}
	} else {
		if c.name == "" {
			return nil, fmt.Errorf("--name or --file is required")
		}
		spec := storageio.InstanceSpec{
			Name:           c.name,
			Family:         c.family,
			Version:        c.version,
			Memory:         storageio.MemorySpec{Min: c.minMem, Max: c.maxMem},
			Port:           c.port,
			Image:          c.image,
			Java:           storageio.JavaSpec{Version: c.javaVersion, Path: c.javaPath, Args: c.jvmArgs},
			LaunchArtifact: c.launchArtifact,
		}
		cfg, err = spec.ToModel()
		if err != nil {
			return nil, fmt.Errorf("invalid instance flags: %w", err)
		}
	}

	if len(extraEnv) > 0 {
		cfg.Env = env.MergeMaps(cfg.Env, extraEnv)
	}

	return &cfg, nil
}
