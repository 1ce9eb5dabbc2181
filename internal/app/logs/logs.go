package logs

import (
	"context"
	"fmt"

	"github.com/slok/gsx/internal/log"
	"github.com/slok/gsx/internal/metrics"
	"github.com/slok/gsx/internal/sandbox"
	"github.com/slok/gsx/internal/storage"
)

// ServiceConfig is the configuration for the logs service.
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
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Logs"})

	return nil
}

// Service reads the instance server output.
type Service struct {
	engine sandbox.Engine
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new logs service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		engine: cfg.Engine,
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the logs request parameters.
type Request struct {
	// NameOrID is the instance name or ID.
	NameOrID string
	// Tail is the number of last lines to return, all of them when <= 0.
	Tail int
}

// Run returns the sandbox output of an instance by name or ID.
// It is a point in time read, callers poll for new lines.
func (s *Service) Run(ctx context.Context, req Request) ([]string, error) {
	s.logger.Debugf("getting logs for instance: %s (tail: %d)", req.NameOrID, req.Tail)

	inst, err := storage.GetInstanceByRef(ctx, s.repo, req.NameOrID)
	if err != nil {
		return nil, err
	}

	lines, err := s.engine.Logs(ctx, inst.ID, req.Tail)
	if err != nil {
		return nil, fmt.Errorf("could not get instance logs: %w", err)
	}

	return lines, nil
}
