// Package crash recovers the working directory from an unclean previous shutdown.
package crash

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/slok/gsx/internal/log"
)

const (
	defaultWorld   = "world"
	lockName       = "session.lock"
	propertiesName = "server.properties"
)

// ReconcilerConfig is the configuration of the crash state reconciler.
type ReconcilerConfig struct {
	WorkDir string
	Logger  log.Logger
}

func (c *ReconcilerConfig) defaults() error {
	if c.WorkDir == "" {
		return fmt.Errorf("working directory is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "boot.crash.Reconciler"})

	return nil
}

// Reconciler removes the stale world lock. A sandbox runs a single server so a
// lock at boot is always a leftover.
type Reconciler struct {
	workDir string
	logger  log.Logger
}

// NewReconciler returns a new crash state reconciler.
func NewReconciler(cfg ReconcilerConfig) (*Reconciler, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Reconciler{
		workDir: cfg.WorkDir,
		logger:  cfg.Logger,
	}, nil
}

// Result is the outcome of a reconciliation.
type Result struct {
	World string
	// RemovedLock is the size of the removed lock, -1 when there was no lock.
	RemovedLock int64
}

// Reconcile removes the world lock if present.
func (r *Reconciler) Reconcile() (*Result, error) {
	world, err := r.worldName()
	if err != nil {
		return nil, err
	}

	res := &Result{World: world, RemovedLock: -1}
	lock := filepath.Join(r.workDir, world, lockName)
	info, err := os.Stat(lock)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return res, nil
		}
		return nil, fmt.Errorf("could not stat world lock: %w", err)
	}

	if err := os.Remove(lock); err != nil {
		return nil, fmt.Errorf("could not remove world lock: %w", err)
	}
	r.logger.Warningf("Removed stale %q lock of world %q (%d bytes), previous shutdown was unclean", lockName, world, info.Size())
	res.RemovedLock = info.Size()

	return res, nil
}

// worldName reads `level-name` from the server properties.
func (r *Reconciler) worldName() (string, error) {
	f, err := os.Open(filepath.Join(r.workDir, propertiesName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultWorld, nil
		}
		return "", fmt.Errorf("could not open server properties: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}

		k, v, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(k) != "level-name" {
			continue
		}
		if v = strings.TrimSpace(v); v != "" {
			return v, nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("could not read server properties: %w", err)
	}

	return defaultWorld, nil
}
