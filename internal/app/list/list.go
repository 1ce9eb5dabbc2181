package list

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

// ServiceConfig is the configuration for the list service.
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
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.List"})

	return nil
}

// Service lists instances with optional filtering.
type Service struct {
	repo     storage.Repository
	observer *observe.Observer
	logger   log.Logger
}

// NewService creates a new list service.
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

// Request represents the list request parameters.
type Request struct {
	// StatusFilter is an optional filter to only show instances with this status.
	StatusFilter *model.InstanceStatus
}

// Run lists all instances, optionally filtered by status.
// Active instances are observed so a crash is reported without asking for the status.
func (s *Service) Run(ctx context.Context, req Request) ([]model.Instance, error) {
	s.logger.Debugf("listing instances with filter: %v", req.StatusFilter)

	instances, err := s.repo.ListInstances(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list instances: %w", err)
	}

	for i, inst := range instances {
		if !inst.Status.Active() {
			continue
		}
		refreshed, _, err := s.observer.Refresh(ctx, inst)
		if err != nil {
			s.logger.Warningf("could not observe instance %s: %v", inst.Name, err)
			continue
		}
		instances[i] = *refreshed
	}

	// Apply status filter if provided
	if req.StatusFilter != nil {
		filtered := make([]model.Instance, 0, len(instances))
		for _, inst := range instances {
			if inst.Status == *req.StatusFilter {
				filtered = append(filtered, inst)
			}
		}
		instances = filtered
	}

	s.logger.Debugf("found %d instances", len(instances))
	return instances, nil
}
