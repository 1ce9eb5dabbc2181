package storage

import (
	"context"

	"github.com/slok/gsx/internal/model"
)

// Repository is the interface for instance persistence.
type Repository interface {
	CreateInstance(ctx context.Context, i model.Instance) error
	GetInstance(ctx context.Context, id string) (*model.Instance, error)
	GetInstanceByName(ctx context.Context, name string) (*model.Instance, error)
	ListInstances(ctx context.Context) ([]model.Instance, error)
	UpdateInstance(ctx context.Context, i model.Instance) error
	DeleteInstance(ctx context.Context, id string) error
}

// TaskRepository journals the steps of multi-step engine operations so an
// interrupted operation can resume where it stopped.
type TaskRepository interface {
	// AddTasks appends pending steps to an instance operation, in order.
	AddTasks(ctx context.Context, instanceID, operation string, names []string) error
	// NextTask returns the first pending step of an operation, nil when there is none.
	NextTask(ctx context.Context, instanceID, operation string) (*model.Task, error)
	CompleteTask(ctx context.Context, taskID string) error
	// FailTask marks a step as failed, keeping the error.
	FailTask(ctx context.Context, taskID string, err error) error
	// ClearInstance drops the journal of a removed instance.
	ClearInstance(ctx context.Context, instanceID string) error
}
