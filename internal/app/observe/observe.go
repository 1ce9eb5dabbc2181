package observe

import (
	"context"
	"fmt"
	"time"

	"github.com/slok/gsx/internal/log"
	"github.com/slok/gsx/internal/metrics"
	"github.com/slok/gsx/internal/model"
	"github.com/slok/gsx/internal/sandbox"
	"github.com/slok/gsx/internal/storage"
)

// ObserverConfig is the configuration for the observer.
type ObserverConfig struct {
	Engine          sandbox.Engine
	Repository      storage.Repository
	MetricsRecorder metrics.Recorder
	Logger          log.Logger
	// TimeNow is used to stamp transitions the engine can't date.
	TimeNow func() time.Time
}

func (c *ObserverConfig) defaults() error {
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
	if c.TimeNow == nil {
		c.TimeNow = func() time.Time { return time.Now().UTC() }
	}
	return nil
}

// Observer refreshes the persisted instance status from its sandbox on demand.
// There is no loop, every read operation observes the instances it returns.
type Observer struct {
	engine   sandbox.Engine
	repo     storage.Repository
	recorder metrics.Recorder
	logger   log.Logger
	timeNow  func() time.Time
}

// NewObserver returns a new observer.
func NewObserver(cfg ObserverConfig) (*Observer, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Observer{
		engine:   cfg.Engine,
		repo:     cfg.Repository,
		recorder: cfg.MetricsRecorder,
		logger:   cfg.Logger,
		timeNow:  cfg.TimeNow,
	}, nil
}

// Refresh observes the instance sandbox and persists the resulting status when it changed.
func (o *Observer) Refresh(ctx context.Context, inst model.Instance) (*model.Instance, *model.RuntimeState, error) {
	rt, err := o.engine.Status(ctx, inst.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("could not observe instance sandbox: %w", err)
	}

	updated, changed := sandbox.Observe(inst, *rt, o.timeNow())
	if !changed {
		return &inst, rt, nil
	}

	if err := Transition(ctx, o.repo, o.recorder, inst.Status, updated); err != nil {
		return nil, nil, err
	}
	if updated.Status == model.InstanceStatusCrashed {
		o.logger.Warningf("Instance %s crashed (exit code %d): %s", updated.Name, updated.ExitCode, updated.Error)
	} else {
		o.logger.Debugf("Instance %s is now %s", updated.Name, updated.Status)
	}

	return &updated, rt, nil
}

// Transition persists an instance that moved from a status and records the transition.
func Transition(ctx context.Context, repo storage.Repository, recorder metrics.Recorder, from model.InstanceStatus, inst model.Instance) error {
	if err := repo.UpdateInstance(ctx, inst); err != nil {
		return fmt.Errorf("could not update instance: %w", err)
	}
	if from != inst.Status {
		recorder.IncInstanceTransition(ctx, from, inst.Status)
	}
	return nil
}
