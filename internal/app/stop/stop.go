package stop

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

// ServiceConfig is the configuration for the stop service.
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
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Stop"})

	return nil
}

// Service stops a running instance gracefully.
type Service struct {
	engine   sandbox.Engine
	repo     storage.Repository
	observer *observe.Observer
	recorder metrics.Recorder
	logger   log.Logger
}

// NewService creates a new stop service.
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

// Request represents the stop request parameters.
type Request struct {
	// NameOrID is the instance name or ID to stop.
	NameOrID string
	// Timeout is the grace period before the server is killed, 0 uses the engine default.
	Timeout time.Duration
}

// Run stops an instance by name or ID.
// The server gets SIGTERM and is killed if it doesn't exit before the timeout.
func (s *Service) Run(ctx context.Context, req Request) (inst *model.Instance, err error) {
	defer func(t0 time.Time) {
		s.recorder.ObserveOperation(ctx, "stop", err == nil, time.Since(t0))
	}(time.Now())

	s.logger.Debugf("stopping instance: %s", req.NameOrID)

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

	if inst.Status != model.InstanceStatusRunning && inst.Status != model.InstanceStatusStarting {
		return nil, fmt.Errorf("cannot stop instance: not running (current status: %s): %w", inst.Status, model.ErrNotValid)
	}

	prev := inst.Status
	inst.Status = model.InstanceStatusStopping
	if err := observe.Transition(ctx, s.repo, s.recorder, prev, *inst); err != nil {
		return nil, err
	}

	if err := s.engine.Stop(ctx, inst.ID, req.Timeout); err != nil {
		return nil, fmt.Errorf("could not stop instance: %w", err)
	}

	// The engine stop waits for the exit so this observation settles the stop.
	inst, _, err = s.observer.Refresh(ctx, *inst)
	if err != nil {
		return nil, err
	}

	s.logger.Infof("stopped instance: %s (ID: %s)", inst.Name, inst.ID)
	return inst, nil
}
