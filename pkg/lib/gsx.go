package lib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/slok/gsx/internal/app/command"
	"github.com/slok/gsx/internal/app/create"
	"github.com/slok/gsx/internal/app/kill"
	"github.com/slok/gsx/internal/app/list"
	"github.com/slok/gsx/internal/app/logs"
	"github.com/slok/gsx/internal/app/remove"
	"github.com/slok/gsx/internal/app/restart"
	"github.com/slok/gsx/internal/app/start"
	"github.com/slok/gsx/internal/app/stats"
	"github.com/slok/gsx/internal/app/status"
	"github.com/slok/gsx/internal/app/stop"
	"github.com/slok/gsx/internal/sandbox"
	"github.com/slok/gsx/internal/sandbox/docker"
	"github.com/slok/gsx/internal/sandbox/fake"
	"github.com/slok/gsx/internal/storage"
	"github.com/slok/gsx/internal/storage/sqlite"
	"github.com/slok/gsx/pkg/lib/log"
)

const (
	defaultDataDir = ".gsx"
	defaultDBFile  = "gsx.db"
)

// Config configures the SDK client.
//
// All fields are optional and have sensible defaults. At minimum, an empty
// Config{} will use ~/.gsx/gsx.db for storage and the Docker engine.
type Config struct {
	// DBPath is the SQLite database path.
	// Default: ~/.gsx/gsx.db.
	DBPath string

	// DataDir is the base directory for gsx data (instance worlds, boot state).
	// Default: ~/.gsx.
	DataDir string

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger

	// Engine selects the sandbox engine.
	// Default: [EngineDocker].
	//
	// Set this to [EngineFake] for testing without real infrastructure.
	Engine EngineType

	// Image is the default sandbox image for instances that don't set one.
	// Only used when Engine is [EngineDocker].
	Image string

	// BootBinary is the host path of the gsboot binary mounted in the sandboxes.
	// If empty, the image must provide gsboot in its PATH.
	// Only used when Engine is [EngineDocker].
	BootBinary string
}

func (c *Config) defaults() error {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not get user home dir: %w", err)
		}
		c.DataDir = filepath.Join(home, defaultDataDir)
	}

	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, defaultDBFile)
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	if c.Engine == "" {
		c.Engine = EngineDocker
	}

	return nil
}

// Client is the main SDK entry point for managing game server instances programmatically.
//
// Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use.
type Client struct {
	engine  sandbox.Engine
	logger  log.Logger
	closeFn func() error

	createSvc  *create.Service
	startSvc   *start.Service
	stopSvc    *stop.Service
	restartSvc *restart.Service
	killSvc    *kill.Service
	removeSvc  *remove.Service
	listSvc    *list.Service
	statusSvc  *status.Service
	logsSvc    *logs.Service
	statsSvc   *stats.Service
	commandSvc *command.Service
}

// New creates a new SDK client backed by a SQLite database.
//
// The caller must call [Client.Close] when done to release the database
// connection. Typically used with defer:
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: cfg.DBPath,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create repository: %w", err)
	}

	taskRepo, err := sqlite.NewTaskRepository(sqlite.TaskRepositoryConfig{
		DB:     repo.DB(),
		Logger: cfg.Logger,
	})
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("could not create task repository: %w", err)
	}

	eng, err := newEngine(cfg, taskRepo)
	if err != nil {
		_ = repo.Close()
		return nil, mapError(fmt.Errorf("could not create engine: %w", err))
	}

	c, err := newClient(eng, repo, cfg.Logger)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	c.closeFn = repo.Close

	return c, nil
}

func newClient(eng sandbox.Engine, repo storage.Repository, logger log.Logger) (*Client, error) {
	c := &Client{engine: eng, logger: logger}

	var err error
	if c.createSvc, err = create.NewService(create.ServiceConfig{Engine: eng, Repository: repo, Logger: logger}); err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}
	if c.startSvc, err = start.NewService(start.ServiceConfig{Engine: eng, Repository: repo, Logger: logger}); err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}
	if c.stopSvc, err = stop.NewService(stop.ServiceConfig{Engine: eng, Repository: repo, Logger: logger}); err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}
	if c.restartSvc, err = restart.NewService(restart.ServiceConfig{Engine: eng, Repository: repo, Logger: logger}); err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}
	if c.killSvc, err = kill.NewService(kill.ServiceConfig{Engine: eng, Repository: repo, Logger: logger}); err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}
	if c.removeSvc, err = remove.NewService(remove.ServiceConfig{Engine: eng, Repository: repo, Logger: logger}); err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}
	if c.listSvc, err = list.NewService(list.ServiceConfig{Engine: eng, Repository: repo, Logger: logger}); err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}
	if c.statusSvc, err = status.NewService(status.ServiceConfig{Engine: eng, Repository: repo, Logger: logger}); err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}
	if c.logsSvc, err = logs.NewService(logs.ServiceConfig{Engine: eng, Repository: repo, Logger: logger}); err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}
	if c.statsSvc, err = stats.NewService(stats.ServiceConfig{Engine: eng, Repository: repo, Logger: logger}); err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}
	if c.commandSvc, err = command.NewService(command.ServiceConfig{Engine: eng, Repository: repo, Logger: logger}); err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	return c, nil
}

// Close releases resources held by the client, including the database connection.
// After Close returns, the client must not be used.
func (c *Client) Close() error {
	if c.closeFn != nil {
		return c.closeFn()
	}
	return nil
}

func newEngine(cfg Config, taskRepo storage.TaskRepository) (sandbox.Engine, error) {
	switch cfg.Engine {
	case EngineDocker:
		return docker.NewEngine(docker.EngineConfig{
			DataDir:    cfg.DataDir,
			Image:      cfg.Image,
			BootBinary: cfg.BootBinary,
			TaskRepo:   taskRepo,
			Logger:     cfg.Logger,
		})
	case EngineFake:
		return fake.NewEngine(fake.EngineConfig{
			TaskRepo: taskRepo,
			Logger:   cfg.Logger,
		})
	default:
		return nil, fmt.Errorf("unsupported engine type: %s: %w", cfg.Engine, ErrNotValid)
	}
}

// Doctor runs preflight health checks for the configured engine.
//
// For [EngineDocker], this checks the daemon is reachable and the default
// image is available. For [EngineFake], the single check always passes.
//
// Returns a slice of [CheckResult] describing each check's outcome.
func (c *Client) Doctor(ctx context.Context) ([]CheckResult, error) {
	results := c.engine.Check(ctx)
	return fromInternalCheckResults(results), nil
}
