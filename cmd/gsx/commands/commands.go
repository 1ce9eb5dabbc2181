package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/slok/gsx/internal/log"
	"github.com/slok/gsx/internal/printer"
	"github.com/slok/gsx/internal/sandbox"
	"github.com/slok/gsx/internal/sandbox/docker"
	"github.com/slok/gsx/internal/sandbox/fake"
	"github.com/slok/gsx/internal/storage"
	"github.com/slok/gsx/internal/storage/sqlite"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"

	// EngineDocker runs instances in Docker containers.
	EngineDocker = "docker"
	// EngineFake simulates instances in memory.
	EngineFake = "fake"

	formatTable = "table"
	formatJSON  = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	DataDir    string
	DBPath     string
	Engine     string
	Image      string
	BootBinary string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)

	defaultDataDir := filepath.Join(homedir.HomeDir(), ".gsx")
	app.Flag("data-dir", "Directory where instance data and state are stored.").Envar("GSX_DATA_DIR").Default(defaultDataDir).StringVar(&c.DataDir)
	app.Flag("db-path", "Path to the SQLite database file (defaults to <data-dir>/gsx.db).").Envar("GSX_DB_PATH").StringVar(&c.DBPath)
	app.Flag("engine", "Sandbox engine (docker, fake).").Envar("GSX_ENGINE").Default(EngineDocker).EnumVar(&c.Engine, EngineDocker, EngineFake)
	app.Flag("image", "Default sandbox image for new instances.").Envar("GSX_IMAGE").Default(docker.DefaultImage).StringVar(&c.Image)
	app.Flag("boot-binary", "Host path of the gsboot binary mounted in the sandboxes.").Envar("GSX_BOOT_BINARY").StringVar(&c.BootBinary)

	return c
}

// deps are the shared dependencies the lifecycle commands run on.
type deps struct {
	repo   *sqlite.Repository
	engine sandbox.Engine
}

func (d deps) Close() error { return d.repo.Close() }

// newDeps opens the state database and the selected sandbox engine.
func (r RootCommand) newDeps(ctx context.Context) (*deps, error) {
	dbPath := r.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(r.DataDir, "gsx.db")
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: dbPath,
		Logger: r.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create repository: %w", err)
	}

	taskRepo, err := sqlite.NewTaskRepository(sqlite.TaskRepositoryConfig{
		DB:     repo.DB(),
		Logger: r.Logger,
	})
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("could not create task repository: %w", err)
	}

	eng, err := r.newEngine(taskRepo)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	return &deps{repo: repo, engine: eng}, nil
}

// newEngine returns the selected sandbox engine, taskRepo is optional.
func (r RootCommand) newEngine(taskRepo storage.TaskRepository) (sandbox.Engine, error) {
	switch r.Engine {
	case EngineFake:
		eng, err := fake.NewEngine(fake.EngineConfig{
			TaskRepo: taskRepo,
			Logger:   r.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create fake engine: %w", err)
		}
		return eng, nil
	default:
		eng, err := docker.NewEngine(docker.EngineConfig{
			DataDir:    r.DataDir,
			Image:      r.Image,
			BootBinary: r.BootBinary,
			TaskRepo:   taskRepo,
			Logger:     r.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create docker engine: %w", err)
		}
		return eng, nil
	}
}

func (r RootCommand) printer(format string) printer.Printer {
	if format == formatJSON {
		return printer.NewJSONPrinter(r.Stdout)
	}
	return printer.NewTablePrinter(r.Stdout)
}
