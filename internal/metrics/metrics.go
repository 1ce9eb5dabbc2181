package metrics

import (
	"context"
	"time"

	"github.com/slok/gsx/internal/model"
)

// Recorder knows how to record the control plane metrics.
type Recorder interface {
	// ObserveOperation records a lifecycle operation (create, start, stop...) duration.
	ObserveOperation(ctx context.Context, op string, success bool, duration time.Duration)
	// IncInstanceTransition records an instance status change.
	IncInstanceTransition(ctx context.Context, from, to model.InstanceStatus)
	IncConsoleCommand(ctx context.Context, success bool)
}

// Noop recorder doesn't record anything.
const Noop = noop(0)

type noop int

func (noop) ObserveOperation(context.Context, string, bool, time.Duration)                     {}
func (noop) IncInstanceTransition(context.Context, model.InstanceStatus, model.InstanceStatus) {}
func (noop) IncConsoleCommand(context.Context, bool)                                           {}
