// Package retry retries transient failures with exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/slok/gsx/internal/log"
)

// Config controls the retry behaviour.
type Config struct {
	// Attempts is the total number of attempts, including the first one.
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// Retryable classifies errors, when nil every error is retried.
	Retryable func(err error) bool
	Logger    log.Logger
}

func (c *Config) defaults() {
	if c.Attempts <= 0 {
		c.Attempts = 1
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 500 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.Retryable == nil {
		c.Retryable = func(error) bool { return true }
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
}

// Do calls fn until it succeeds, the attempts are exhausted or the context is done.
// The last error is returned.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	cfg.defaults()

	delay := cfg.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Join(lastErr, err)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !cfg.Retryable(lastErr) || attempt == cfg.Attempts {
			return lastErr
		}

		cfg.Logger.Debugf("Attempt %d/%d failed, retrying in %s: %s", attempt, cfg.Attempts, delay, lastErr)
		select {
		case <-ctx.Done():
			return errors.Join(lastErr, ctx.Err())
		case <-time.After(delay):
		}

		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return lastErr
}
