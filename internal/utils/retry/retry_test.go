package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/slok/gsx/internal/utils/retry"
)

var errBoom = errors.New("boom")

func TestDo(t *testing.T) {
	errFatal := errors.New("fatal")

	tests := map[string]struct {
		cfg          retry.Config
		failures     int
		failWith     error
		expCalls     int
		expErr       error
		cancelledCtx bool
	}{
		"A successful call should not be retried.": {
			cfg:      retry.Config{Attempts: 3},
			expCalls: 1,
		},

		"A transient failure should be retried until success.": {
			cfg:      retry.Config{Attempts: 3},
			failures: 2,
			failWith: errBoom,
			expCalls: 3,
		},

		"Exhausted attempts should return the last error.": {
			cfg:      retry.Config{Attempts: 2},
			failures: 5,
			failWith: errBoom,
			expCalls: 2,
			expErr:   errBoom,
		},

		"Non retryable errors should stop immediately.": {
			cfg: retry.Config{
				Attempts:  5,
				Retryable: func(err error) bool { return !errors.Is(err, errFatal) },
			},
			failures: 5,
			failWith: errFatal,
			expCalls: 1,
			expErr:   errFatal,
		},

		"A cancelled context should not call the function.": {
			cfg:          retry.Config{Attempts: 3},
			cancelledCtx: true,
			expCalls:     0,
			expErr:       context.Canceled,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			ctx := context.Background()
			if test.cancelledCtx {
				var cancel context.CancelFunc
				ctx, cancel = context.WithCancel(ctx)
				cancel()
			}

			test.cfg.InitialDelay = time.Millisecond
			calls := 0
			err := retry.Do(ctx, test.cfg, func(context.Context) error {
				calls++
				if calls <= test.failures {
					return test.failWith
				}
				return nil
			})

			assert.Equal(test.expCalls, calls)
			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
			} else {
				assert.NoError(err)
			}
		})
	}
}
