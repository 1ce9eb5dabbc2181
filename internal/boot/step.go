package boot

import (
	"context"
	"fmt"

	"github.com/slok/gsx/internal/log"
)

// Step is a boot step. Steps MUST be idempotent, running a boot twice over the same
// working directory must produce the same result.
type Step interface {
	Run(ctx context.Context, plan *Plan) error
}

// StepFunc is a convenience adapter to allow the use of ordinary functions as Steps.
type StepFunc func(ctx context.Context, plan *Plan) error

func (f StepFunc) Run(ctx context.Context, plan *Plan) error { return f(ctx, plan) }

// NamedStep is a step with a name.
type NamedStep struct {
	Name string
	Step Step
}

// NewStepChain returns a Step that runs all steps sequentially and stops on the
// first failure. Every step is recorded on the plan before running.
func NewStepChain(steps ...NamedStep) Step {
	return StepFunc(func(ctx context.Context, plan *Plan) error {
		for _, s := range steps {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("boot cancelled at %q step: %w", s.Name, err)
			}

			plan.Step = s.Name
			if err := s.Step.Run(ctx, plan); err != nil {
				return fmt.Errorf("%s step failed: %w", s.Name, err)
			}
		}
		return nil
	})
}

// NewLogStep wraps a step with debug logging before and after execution.
func NewLogStep(name string, logger log.Logger, s Step) NamedStep {
	return NamedStep{
		Name: name,
		Step: StepFunc(func(ctx context.Context, plan *Plan) error {
			logger.Debugf("Running %q step...", name)

			if err := s.Run(ctx, plan); err != nil {
				return err
			}

			logger.Debugf("Step %q done", name)
			return nil
		}),
	}
}
