package restart

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

// ServiceConfig is the configuration for the restart service.
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
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Restart"})

	return nil
}

// Service restarts an instance, the boot sequence runs again.
type Service struct {
	engine   sandbox.Engine
	repo     storage.Repository
	observer *observe.Observer
	recorder metrics.Recorder
	logger   log.Logger
}

// NewService creates a new restart service.
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

// Request represents the restart request parameters.
type Request struct {
	// NameOrID is the instance name or ID to restart.
	NameOrID string
	// Timeout is the grace period before the server is killed, 0 uses the engine default.
	Timeout time.Duration
}

// Run restarts an instance by name or ID.
// A stopped or crashed instance is just started.
func (s *Service) Run(ctx context.Context, req Request) (inst *model.Instance, err error) {
	defer func(t0 time.Time) {
		s.recorder.ObserveOperation(ctx, "restart", err == nil, time.Since(t0))
	}(time.Now())

	s.logger.Debugf("restarting instance: %s", req.NameOrID)

	inst, err = storage.GetInstanceByRef(ctx, s.repo, req.NameOrID)
	if err != nil {
		return nil, err
	}

	if inst.Status.Active() {
		inst, _, err = s.observer.Refresh(ctx, *inst)
		if err != nil {
			return nil, err
		}
	}

	if !inst.Status.CanTransition(model.InstanceStatusStarting) {
		return nil, fmt.Errorf("cannot restart instance (current status: %s): %w", inst.Status, model.ErrNotValid)
	}

	if err := s.engine.Restart(ctx, inst.ID, req.Timeout); err != nil {
		return nil, fmt.Errorf("could not restart instance: %w", err)
	}

	prev := inst.Status
	now := time.Now().UTC()
	inst.Status = model.InstanceStatusStarting
	inst.StartedAt = &now
	inst.StoppedAt = nil
	inst.ExitCode = 0
	inst.Error = ""

	if err := observe.Transition(ctx, s.repo, s.recorder, prev, *inst); err != nil {
		return nil, err
	}

	s.logger.Infof("restarted instance: %s (ID: %s)", inst.Name, inst.ID)
	return inst, nil
}
