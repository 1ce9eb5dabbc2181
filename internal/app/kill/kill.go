package kill

import (
	"context"
	"fmt"
	"time"

	"github.com/slok/gsx/internal/app/observe"
	"github.com/slok/gsx/internal/log"
	"github.com/slok/gsx/internal/metrics"
	"github.com/slok/gsx/internal/model"
	"github.com/slok/gsx/internal/sandbox"
	"github.com/slok/gsx/internal/storage"
)

// ServiceConfig is the configuration for the kill service.
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
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Kill"})

	return nil
}

// Service kills an instance immediately.
type Service struct {
	engine   sandbox.Engine
	repo     storage.Repository
	recorder metrics.Recorder
	logger   log.Logger
}

// NewService creates a new kill service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		engine:   cfg.Engine,
		repo:     cfg.Repository,
		recorder: cfg.MetricsRecorder,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the kill request parameters.
type Request struct {
	// NameOrID is the instance name or ID to kill.
	NameOrID string
}

// Run kills an instance by name or ID with SIGKILL, no grace period.
func (s *Service) Run(ctx context.Context, req Request) (inst *model.Instance, err error) {
	defer func(t0 time.Time) {
		s.recorder.ObserveOperation(ctx, "kill", err == nil, time.Since(t0))
	}(time.Now())

	s.logger.Debugf("killing instance: %s", req.NameOrID)

	inst, err = storage.GetInstanceByRef(ctx, s.repo, req.NameOrID)
	if err != nil {
		return nil, err
	}

	if !inst.Status.Active() {
		return nil, fmt.Errorf("cannot kill instance: not running (current status: %s): %w", inst.Status, model.ErrNotValid)
	}

	if err := s.engine.Kill(ctx, inst.ID); err != nil {
		return nil, fmt.Errorf("could not kill instance: %w", err)
	}

	prev := inst.Status
	now := time.Now().UTC()
	inst.Status = model.InstanceStatusStopped
	inst.StoppedAt = &now
	inst.ExitCode = 137
	inst.Error = ""

	if err := observe.Transition(ctx, s.repo, s.recorder, prev, *inst); err != nil {
		return nil, err
	}

	s.logger.Infof("killed instance: %s (ID: %s)", inst.Name, inst.ID)
	return inst, nil
}
