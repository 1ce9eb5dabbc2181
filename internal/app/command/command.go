package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/slok/gsx/internal/app/observe"
	"github.com/slok/gsx/internal/log"
	"github.com/slok/gsx/internal/metrics"
	"github.com/slok/gsx/internal/model"
	"github.com/slok/gsx/internal/sandbox"
	"github.com/slok/gsx/internal/storage"
)

// ServiceConfig is the configuration for the command service.
type ServiceConfig struct {
	Engine          sandbox.Engine
	Repository      storage.Repository
	MetricsRecorder metrics.Recorder
	Logger          log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Engine == nil {
		return fmt.Errorf("engine is required")
	}

	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.MetricsRecorder == nil {
		c.MetricsRecorder = metrics.Noop
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Command"})

	return nil
}

// Service writes console commands into the instance server.
type Service struct {
	engine   sandbox.Engine
	repo     storage.Repository
	observer *observe.Observer
	recorder metrics.Recorder
	logger   log.Logger
}

// NewService creates a new command service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	observer, err := observe.NewObserver(observe.ObserverConfig{
		Engine:          cfg.Engine,
		Repository:      cfg.Repository,
		MetricsRecorder: cfg.MetricsRecorder,
		Logger:          cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create observer: %w", err)
	}

	return &Service{
		engine:   cfg.Engine,
		repo:     cfg.Repository,
		observer: observer,
		recorder: cfg.MetricsRecorder,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the command request parameters.
type Request struct {
	// NameOrID is the instance name or ID.
	NameOrID string
	// Command is the single console line to send, without the leading slash.
	Command string
}

// Run sends a console command to a running instance by name or ID.
// Delivery is best effort, there is no acknowledgement from the server.
func (s *Service) Run(ctx context.Context, req Request) (err error) {
	defer func(t0 time.Time) {
		s.recorder.ObserveOperation(ctx, "command", err == nil, time.Since(t0))
	}(time.Now())

	command := strings.TrimSpace(req.Command)
	if command == "" {
		return fmt.Errorf("command is required: %w", model.ErrNotValid)
	}
	if strings.ContainsAny(command, "\r\n") {
		return fmt.Errorf("command must be a single line: %w", model.ErrNotValid)
	}

	inst, err := storage.GetInstanceByRef(ctx, s.repo, req.NameOrID)
	if err != nil {
		return err
	}

	if inst.Status.Active() {
		inst, _, err = s.observer.Refresh(ctx, *inst)
		if err != nil {
			return err
		}
	}

	if inst.Status != model.InstanceStatusRunning {
		return fmt.Errorf("server is not running (current status: %s): %w", inst.Status, model.ErrNotValid)
	}

	err = s.engine.SendCommand(ctx, inst.ID, command)
	s.recorder.IncConsoleCommand(ctx, err == nil)
	if err != nil {
		return fmt.Errorf("could not send command: %w", err)
	}

	s.logger.Infof("sent command to instance %s: %s", inst.Name, command)
	return nil
}
