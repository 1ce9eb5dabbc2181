package remove

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

// ServiceConfig is the configuration for the remove service.
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
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Remove"})

	return nil
}

// Service removes an instance and its sandbox, the instance data is kept.
type Service struct {
	engine   sandbox.Engine
	repo     storage.Repository
	observer *observe.Observer
	recorder metrics.Recorder
	logger   log.Logger
}

// NewService creates a new remove service.
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

// Request represents the remove request parameters.
type Request struct {
	// NameOrID is the instance name or ID to remove.
	NameOrID string
	// Force indicates whether to kill a running instance before removal.
	Force bool
}

// Run removes an instance by name or ID.
// If the instance is running and Force is false, it returns an error.
// If Force is true, it kills the instance first then removes it.
func (s *Service) Run(ctx context.Context, req Request) (inst *model.Instance, err error) {
	defer func(t0 time.Time) {
		s.recorder.ObserveOperation(ctx, "remove", err == nil, time.Since(t0))
	}(time.Now())

	s.logger.Debugf("removing instance: %s (force: %v)", req.NameOrID, req.Force)

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

	if inst.Status.Active() {
		if !req.Force {
			return nil, fmt.Errorf("cannot remove running instance without --force: %w", model.ErrNotValid)
		}

		// Best effort, the sandbox removal is forced anyway.
		s.logger.Infof("force removing running instance, killing first: %s", inst.ID)
		if err := s.engine.Kill(ctx, inst.ID); err != nil {
			s.logger.Warningf("could not kill instance %s: %v", inst.ID, err)
		}
	}

	if err := s.engine.Remove(ctx, inst.ID); err != nil {
		return nil, fmt.Errorf("could not remove instance sandbox: %w", err)
	}

	if err := s.repo.DeleteInstance(ctx, inst.ID); err != nil {
		return nil, fmt.Errorf("could not delete instance from repository: %w", err)
	}
	s.recorder.IncInstanceTransition(ctx, inst.Status, model.InstanceStatusRemoved)
	inst.Status = model.InstanceStatusRemoved

	s.logger.Infof("removed instance: %s (ID: %s)", inst.Name, inst.ID)
	return inst, nil
}
