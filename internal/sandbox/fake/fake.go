package fake

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/slok/gsx/internal/log"
	"github.com/slok/gsx/internal/model"
	"github.com/slok/gsx/internal/storage"
)

// EngineConfig is the configuration for the fake engine.
type EngineConfig struct {
	TaskRepo storage.TaskRepository // Optional: for testing task system integration
	// MaxPlayers is the capacity the simulated server reports on `list`.
	MaxPlayers int
	Logger     log.Logger
}

func (c *EngineConfig) defaults() error {
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = 20
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "engine.Fake"})
	return nil
}

type sandbox struct {
	inst     model.Instance
	state    model.RuntimeState
	logs     []string
	players  []string
	commands []string
}

// Engine is a fake implementation of the sandbox.Engine interface.
// It simulates the sandbox lifecycle and a server that boots instantly.
type Engine struct {
	sandboxes  map[string]*sandbox
	taskRepo   storage.TaskRepository
	maxPlayers int
	mu         sync.RWMutex
	logger     log.Logger
}

// NewEngine creates a new fake engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Engine{
		sandboxes:  make(map[string]*sandbox),
		taskRepo:   cfg.TaskRepo,
		maxPlayers: cfg.MaxPlayers,
		logger:     cfg.Logger,
	}, nil
}

// Check always succeeds.
func (e *Engine) Check(ctx context.Context) []model.CheckResult {
	return []model.CheckResult{{ID: "fake_engine", Message: "fake engine is always available", Status: model.CheckStatusOK}}
}

// Create registers a new sandbox in created state.
func (e *Engine) Create(ctx context.Context, inst model.Instance) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.sandboxes[inst.ID]; ok {
		return "", fmt.Errorf("sandbox %s: %w", inst.ID, model.ErrAlreadyExists)
	}

	if err := e.trackTask(ctx, inst.ID, "create", "create_container"); err != nil {
		return "", err
	}

	e.sandboxes[inst.ID] = &sandbox{
		inst:  inst,
		state: model.RuntimeState{State: model.ContainerStateCreated},
	}
	e.logger.Infof("Created fake sandbox: %s (name: %s)", inst.ID, inst.Name)

	return "fake-" + strings.ToLower(inst.ID), nil
}

// Start runs the simulated boot sequence and server.
func (e *Engine) Start(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sb, ok := e.sandboxes[id]
	if !ok {
		// Not created by this engine instance (e.g. a previous CLI run), the storage layer owns the state.
		e.logger.Debugf("Starting fake sandbox: %s (not in engine memory, adopting it)", id)
		sb = &sandbox{inst: model.Instance{ID: id}}
		e.sandboxes[id] = sb
	}

	if sb.state.State == model.ContainerStateRunning {
		e.logger.Debugf("Sandbox %s is already running", id)
		return nil // Idempotent.
	}

	e.start(sb)
	e.logger.Infof("Started fake sandbox: %s", id)

	return nil
}

func (e *Engine) start(sb *sandbox) {
	now := time.Now().UTC()
	sb.state = model.RuntimeState{
		State:     model.ContainerStateRunning,
		StartedAt: &now,
		Boot:      &model.BootState{Phase: model.BootPhaseLaunching, UpdatedAt: now},
	}
	sb.players = nil
	sb.logs = append(sb.logs,
		fmt.Sprintf("[Server thread/INFO]: Starting minecraft server version %s", sb.inst.Config.Version),
		fmt.Sprintf("[Server thread/INFO]: Starting Minecraft server on *:%d", sb.inst.Config.Port),
		`[Server thread/INFO]: Done (0.001s)! For help, type "help"`,
	)
}

// Stop stops the simulated server gracefully, the timeout is ignored.
func (e *Engine) Stop(ctx context.Context, id string, timeout time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sb, err := e.get(id)
	if err != nil {
		return err
	}

	e.exit(sb, 0)
	sb.logs = append(sb.logs, "[Server thread/INFO]: Stopping server")
	e.logger.Infof("Stopped fake sandbox: %s", id)

	return nil
}

// Restart stops and starts again the simulated server.
func (e *Engine) Restart(ctx context.Context, id string, timeout time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sb, err := e.get(id)
	if err != nil {
		return err
	}

	e.exit(sb, 0)
	e.start(sb)
	e.logger.Infof("Restarted fake sandbox: %s", id)

	return nil
}

// Kill stops the simulated server immediately.
func (e *Engine) Kill(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sb, err := e.get(id)
	if err != nil {
		return err
	}

	e.exit(sb, 137)
	e.logger.Infof("Killed fake sandbox: %s", id)

	return nil
}

func (e *Engine) exit(sb *sandbox, code int) {
	if sb.state.State != model.ContainerStateRunning {
		return
	}
	now := time.Now().UTC()
	sb.state.State = model.ContainerStateExited
	sb.state.ExitCode = code
	sb.state.FinishedAt = &now
	sb.players = nil
}

// Crash makes a running sandbox exit as if the server or the boot sequence failed.
// An empty bootErr simulates a server crash after launch.
func (e *Engine) Crash(id string, exitCode int, bootErr string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sb, err := e.get(id)
	if err != nil {
		return err
	}

	e.exit(sb, exitCode)
	if bootErr != "" {
		sb.state.Boot = &model.BootState{Phase: model.BootPhaseFailed, Error: bootErr, UpdatedAt: time.Now().UTC()}
	}

	return nil
}

// Join simulates a player joining a running server.
func (e *Engine) Join(id, player string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sb, err := e.get(id)
	if err != nil {
		return err
	}
	if sb.state.State != model.ContainerStateRunning {
		return fmt.Errorf("sandbox %s is not running: %w", id, model.ErrNotValid)
	}

	sb.players = append(sb.players, player)
	sb.logs = append(sb.logs, fmt.Sprintf("[Server thread/INFO]: %s joined the game", player))

	return nil
}

// Commands returns the console commands received by a sandbox.
func (e *Engine) Commands(id string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sb, ok := e.sandboxes[id]
	if !ok {
		return nil
	}
	return append([]string{}, sb.commands...)
}

// Remove forgets the sandbox.
func (e *Engine) Remove(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.trackTask(ctx, id, "remove", "remove_container"); err != nil {
		return err
	}
	if e.taskRepo != nil {
		if err := e.taskRepo.ClearInstance(ctx, id); err != nil {
			e.logger.Warningf("Could not clear task journal of %s: %v", id, err)
		}
	}

	if _, ok := e.sandboxes[id]; !ok {
		e.logger.Debugf("Fake sandbox %s already removed", id)
		return nil
	}

	delete(e.sandboxes, id)
	e.logger.Infof("Removed fake sandbox: %s", id)

	return nil
}

// Status returns the simulated runtime state.
func (e *Engine) Status(ctx context.Context, id string) (*model.RuntimeState, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sb, ok := e.sandboxes[id]
	if !ok {
		return &model.RuntimeState{State: model.ContainerStateMissing}, nil
	}

	// Return a copy to avoid external modifications.
	st := sb.state
	if st.Boot != nil {
		b := *st.Boot
		st.Boot = &b
	}
	return &st, nil
}

// Logs returns the simulated server output.
func (e *Engine) Logs(ctx context.Context, id string, tail int) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sb, err := e.get(id)
	if err != nil {
		return nil, err
	}

	lines := sb.logs
	if tail > 0 && len(lines) > tail {
		lines = lines[len(lines)-tail:]
	}
	return append([]string{}, lines...), nil
}

// Stats returns fixed resource values for running sandboxes.
func (e *Engine) Stats(ctx context.Context, id string) (*model.Stats, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sb, err := e.get(id)
	if err != nil {
		return nil, err
	}
	if sb.state.State != model.ContainerStateRunning {
		return &model.Stats{}, nil
	}

	return &model.Stats{
		CPUPercent:       12.5,
		MemoryUsedBytes:  uint64(sb.inst.Config.Memory.MinMB) * 1024 * 1024,
		MemoryLimitBytes: uint64(sb.inst.Config.Memory.MaxMB) * 1024 * 1024,
		NetInBytes:       1024,
		NetOutBytes:      2048,
	}, nil
}

// SendCommand records the command, `list` answers with the online players like a real server.
func (e *Engine) SendCommand(ctx context.Context, id string, command string) error {
	if strings.ContainsAny(command, "\r\n") {
		return fmt.Errorf("command must be a single line: %w", model.ErrNotValid)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	sb, err := e.get(id)
	if err != nil {
		return err
	}
	if sb.state.State != model.ContainerStateRunning {
		return fmt.Errorf("sandbox %s is not running: %w", id, model.ErrNotValid)
	}

	sb.commands = append(sb.commands, command)
	if strings.TrimSpace(command) == "list" {
		sb.logs = append(sb.logs, fmt.Sprintf("[Server thread/INFO]: There are %d of a max of %d players online: %s",
			len(sb.players), e.maxPlayers, strings.Join(sb.players, ", ")))
	}

	return nil
}

func (e *Engine) get(id string) (*sandbox, error) {
	sb, ok := e.sandboxes[id]
	if !ok {
		return nil, fmt.Errorf("sandbox %s: %w", id, model.ErrNotFound)
	}
	return sb, nil
}

// trackTask completes the task immediately since the fake engine is instant.
func (e *Engine) trackTask(ctx context.Context, id, operation, name string) error {
	if e.taskRepo == nil {
		return nil
	}

	if err := e.taskRepo.AddTasks(ctx, id, operation, []string{name}); err != nil {
		return fmt.Errorf("failed to add task: %w", err)
	}
	tsk, err := e.taskRepo.NextTask(ctx, id, operation)
	if err != nil {
		return fmt.Errorf("failed to get next task: %w", err)
	}
	if tsk == nil {
		return nil
	}
	if err := e.taskRepo.CompleteTask(ctx, tsk.ID); err != nil {
		e.logger.Errorf("Failed to complete task %s: %v", tsk.ID, err)
	}

	return nil
}
