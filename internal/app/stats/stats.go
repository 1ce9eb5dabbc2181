package stats

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/slok/gsx/internal/app/observe"
	"github.com/slok/gsx/internal/log"
	"github.com/slok/gsx/internal/metrics"
	"github.com/slok/gsx/internal/model"
	"github.com/slok/gsx/internal/sandbox"
	"github.com/slok/gsx/internal/storage"
)

// ServiceConfig is the configuration for the stats service.
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
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Stats"})

	return nil
}

// Service returns the resource usage of an instance.
type Service struct {
	engine   sandbox.Engine
	repo     storage.Repository
	observer *observe.Observer
	logger   log.Logger
}

// NewService creates a new stats service.
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
		logger:   cfg.Logger,
	}, nil
}

// PlayerScanLines is the log tail scanned to compute the online players.
const PlayerScanLines = 1000

// Request represents the stats request parameters.
type Request struct {
	// NameOrID is the instance name or ID.
	NameOrID string
}

// Run returns a resource snapshot of a running instance by name or ID.
// The player count is derived from the server log tail.
func (s *Service) Run(ctx context.Context, req Request) (*model.Stats, error) {
	s.logger.Debugf("getting stats for instance: %s", req.NameOrID)

	inst, err := storage.GetInstanceByRef(ctx, s.repo, req.NameOrID)
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
		return nil, fmt.Errorf("instance is not running (current status: %s): %w", inst.Status, model.ErrNotValid)
	}

	stats, err := s.engine.Stats(ctx, inst.ID)
	if err != nil {
		return nil, fmt.Errorf("could not get instance stats: %w", err)
	}

	lines, err := s.engine.Logs(ctx, inst.ID, PlayerScanLines)
	if err != nil {
		s.logger.Warningf("could not read logs of %s for the player count: %v", inst.Name, err)
		return stats, nil
	}
	stats.PlayerCount = PlayerCount(lines)

	return stats, nil
}

var (
	listRegexp   = regexp.MustCompile(`There are (\d+)(?: of a max(?: of)? \d+|/\d+) players online`)
	joinedRegexp = regexp.MustCompile(`: (\S+) joined the game`)
	leftRegexp   = regexp.MustCompile(`: (\S+) left the game`)
	launchRegexp = regexp.MustCompile(`: Done \([\d.,]+s\)!`)
)

// PlayerCount derives the online player count from server log lines.
// A `list` answer is authoritative, join and leave events adjust it and a
// server launch resets it.
func PlayerCount(lines []string) int {
	count := 0
	for _, l := range lines {
		switch {
		case launchRegexp.MatchString(l):
			count = 0
		case joinedRegexp.MatchString(l):
			count++
		case leftRegexp.MatchString(l):
			if count > 0 {
				count--
			}
		default:
			if m := listRegexp.FindStringSubmatch(l); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil {
					count = n
				}
			}
		}
	}
	return count
}
