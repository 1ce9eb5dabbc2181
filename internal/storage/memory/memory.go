package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/slok/gsx/internal/log"
	"github.com/slok/gsx/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.Repository.
type Repository struct {
	instances map[string]model.Instance
	mu        sync.RWMutex
	logger    log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		instances: make(map[string]model.Instance),
		logger:    cfg.Logger,
	}, nil
}

// CreateInstance creates a new instance in the repository.
func (r *Repository) CreateInstance(ctx context.Context, i model.Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.instances[i.ID]; ok {
		return fmt.Errorf("instance with id %s: %w", i.ID, model.ErrAlreadyExists)
	}

	for _, existing := range r.instances {
		if existing.Name == i.Name {
			return fmt.Errorf("instance with name %s: %w", i.Name, model.ErrAlreadyExists)
		}
	}

	r.instances[i.ID] = i
	r.logger.Debugf("Created instance in repository: %s", i.ID)

	return nil
}

// GetInstance retrieves an instance by ID.
func (r *Repository) GetInstance(ctx context.Context, id string) (*model.Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	instance, ok := r.instances[id]
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", id, model.ErrNotFound)
	}

	return &instance, nil
}

// GetInstanceByName retrieves an instance by name.
func (r *Repository) GetInstanceByName(ctx context.Context, name string) (*model.Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, instance := range r.instances {
		if instance.Name == name {
			return &instance, nil
		}
	}

	return nil, fmt.Errorf("instance with name %s: %w", name, model.ErrNotFound)
}

// ListInstances returns all instances, newest first.
func (r *Repository) ListInstances(ctx context.Context) ([]model.Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	instances := make([]model.Instance, 0, len(r.instances))
	for _, instance := range r.instances {
		instances = append(instances, instance)
	}
	sort.Slice(instances, func(a, b int) bool {
		if instances[a].CreatedAt.Equal(instances[b].CreatedAt) {
			return instances[a].ID > instances[b].ID
		}
		return instances[a].CreatedAt.After(instances[b].CreatedAt)
	})

	return instances, nil
}

// UpdateInstance updates an existing instance.
func (r *Repository) UpdateInstance(ctx context.Context, i model.Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.instances[i.ID]; !ok {
		return fmt.Errorf("instance %s: %w", i.ID, model.ErrNotFound)
	}
	for id, existing := range r.instances {
		if id != i.ID && existing.Name == i.Name {
			return fmt.Errorf("instance with name %s: %w", i.Name, model.ErrAlreadyExists)
		}
	}

	r.instances[i.ID] = i
	r.logger.Debugf("Updated instance in repository: %s", i.ID)

	return nil
}

// DeleteInstance deletes an instance.
func (r *Repository) DeleteInstance(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.instances[id]; !ok {
		return fmt.Errorf("instance %s: %w", id, model.ErrNotFound)
	}

	delete(r.instances, id)
	r.logger.Debugf("Deleted instance from repository: %s", id)

	return nil
}
