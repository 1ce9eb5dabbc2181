package status

import (
	"context"
	"fmt"

	"github.com/slok/gsx/internal/app/observe"
	"github.com/slok/gsx/internal/log"
	"github.com/slok/gsx/internal/metrics"
	"github.com/slok/gsx/internal/model"
	"github.com/slok/gsx/internal/sandbox"
	"github.com/slok/gsx/internal/storage"
)

// ServiceConfig is the configuration for the status service.
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
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Status"})

	return nil
}

// Service retrieves the observed instance status.
type Service struct {
	repo     storage.Repository
	observer *observe.Observer
	logger   log.Logger
}

// NewService creates a new status service.
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
		repo:     cfg.Repository,
		observer: observer,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the status request parameters.
type Request struct {
	// NameOrID is the instance name or ID to query.
	NameOrID string
}

// Result is the observed status of an instance.
type Result struct {
	Instance model.Instance
	// Runtime is the raw sandbox observation, nil when the sandbox was not observed.
	Runtime *model.RuntimeState
}

// Run observes the sandbox of an instance by name or ID and returns its up to date status.
// Crashes are surfaced with the exit code and the boot error, never retried.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	s.logger.Debugf("getting status for instance: %s", req.NameOrID)

	inst, err := storage.GetInstanceByRef(ctx, s.repo, req.NameOrID)
	if err != nil {
		return nil, err
	}

	inst, rt, err := s.observer.Refresh(ctx, *inst)
	if err != nil {
		return nil, fmt.Errorf("could not get instance status: %w", err)
	}

	return &Result{Instance: *inst, Runtime: rt}, nil
}
