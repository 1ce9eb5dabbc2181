package create

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/gsx/internal/conventions"
	"github.com/slok/gsx/internal/log"
	"github.com/slok/gsx/internal/metrics"
	"github.com/slok/gsx/internal/model"
	"github.com/slok/gsx/internal/sandbox"
	"github.com/slok/gsx/internal/storage"
)

// ServiceConfig is the configuration for the create service.
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
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Create"})
	return nil
}

// Service handles instance creation business logic.
type Service struct {
	engine   sandbox.Engine
	repo     storage.Repository
	recorder metrics.Recorder
	logger   log.Logger
	// mu serializes creations so the host port check and the insert are atomic.
	mu sync.Mutex
}

// NewService creates a new create service.
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

// CreateOptions are the options for creating an instance.
type CreateOptions struct {
	Config model.InstanceConfig
}

// Create creates a new instance and its sandbox, the instance is not started.
func (s *Service) Create(ctx context.Context, opts CreateOptions) (inst *model.Instance, err error) {
	defer func(t0 time.Time) {
		s.recorder.ObserveOperation(ctx, "create", err == nil, time.Since(t0))
	}(time.Now())

	// 1. Validate config
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// 2. Check name uniqueness
	_, err = s.repo.GetInstanceByName(ctx, cfg.Name)
	if err == nil {
		return nil, fmt.Errorf("instance with name %q already exists: %w", cfg.Name, model.ErrAlreadyExists)
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("could not check name uniqueness: %w", err)
	}

	// 3. Host port
	instances, err := s.repo.ListInstances(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list instances: %w", err)
	}
	port, err := allocatePort(cfg.Port, instances)
	if err != nil {
		return nil, err
	}
	cfg.Port = port

	// 4. Create via engine
	newInst := model.Instance{
		ID:        ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String(),
		Name:      cfg.Name,
		Status:    model.InstanceStatusCreated,
		Config:    cfg,
		CreatedAt: time.Now().UTC(),
	}
	containerID, err := s.engine.Create(ctx, newInst)
	if err != nil {
		return nil, fmt.Errorf("could not create instance sandbox: %w", err)
	}
	newInst.ContainerID = containerID

	// 5. Save to repository
	if err := s.repo.CreateInstance(ctx, newInst); err != nil {
		if rmErr := s.engine.Remove(ctx, newInst.ID); rmErr != nil {
			s.logger.Warningf("Could not remove sandbox of unsaved instance %s: %v", newInst.ID, rmErr)
		}
		return nil, fmt.Errorf("could not save instance: %w", err)
	}
	s.recorder.IncInstanceTransition(ctx, "", model.InstanceStatusCreated)

	s.logger.Infof("Created instance: %s (%s) on port %d", newInst.Name, newInst.ID, newInst.Config.Port)

	return &newInst, nil
}

// allocatePort validates a requested host port or picks the first free one.
func allocatePort(requested int, instances []model.Instance) (int, error) {
	used := make(map[int]string, len(instances))
	for _, i := range instances {
		used[i.Config.Port] = i.Name
	}

	if requested != 0 {
		if owner, ok := used[requested]; ok {
			return 0, fmt.Errorf("port %d is already used by instance %q: %w", requested, owner, model.ErrAlreadyExists)
		}
		return requested, nil
	}

	for p := conventions.FirstHostPort; p <= 65535; p++ {
		if _, ok := used[p]; !ok {
			return p, nil
		}
	}

	return 0, fmt.Errorf("no free host port available: %w", model.ErrNotValid)
}
