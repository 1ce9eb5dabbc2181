package sandbox

import (
	"context"
	"time"

	"github.com/slok/gsx/internal/model"
)

// DefaultStopTimeout is the graceful stop time before the server process is killed.
const DefaultStopTimeout = 30 * time.Second

// Engine is the interface for instance sandbox lifecycle management.
// Every operation is addressed by instance ID.
type Engine interface {
	// Check performs preflight checks and returns the results.
	// Checks verify that the engine has all required dependencies and permissions.
	Check(ctx context.Context) []model.CheckResult

	// Create prepares the instance data directory and creates the sandbox without starting it.
	// It returns the engine sandbox reference (e.g. the container ID).
	Create(ctx context.Context, inst model.Instance) (string, error)
	Start(ctx context.Context, id string) error
	// Stop asks the server to stop (SIGTERM) and kills it when the timeout expires.
	Stop(ctx context.Context, id string, timeout time.Duration) error
	// Restart is a Stop followed by a Start.
	Restart(ctx context.Context, id string, timeout time.Duration) error
	// Kill stops the sandbox immediately (SIGKILL).
	Kill(ctx context.Context, id string) error
	// Remove removes the sandbox, the instance data is kept.
	Remove(ctx context.Context, id string) error

	// Status observes the sandbox, a missing sandbox is reported as model.ContainerStateMissing.
	Status(ctx context.Context, id string) (*model.RuntimeState, error)
	// Logs returns the last tail lines of the sandbox output, all of them if tail <= 0.
	Logs(ctx context.Context, id string, tail int) ([]string, error)
	// Stats returns a resource usage snapshot of a running sandbox.
	Stats(ctx context.Context, id string) (*model.Stats, error)
	// SendCommand writes a single console line into the server command pipe.
	// Once the pipe exists the write waits for the server to read it, before that
	// (server still booting) it fails right away with model.ErrNotValid instead of
	// blocking the caller for the whole boot.
	SendCommand(ctx context.Context, id string, command string) error
}
