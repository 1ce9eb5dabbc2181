package model

import (
	"time"
)

// TaskStatus represents the state of a task.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusDone    TaskStatus = "done"
	TaskStatusFailed  TaskStatus = "failed"
)

// Task is a single step of a multi-step engine operation on an instance.
type Task struct {
	ID         string
	InstanceID string
	Operation  string
	Sequence   int
	Name       string
	Status     TaskStatus
	Error      string
	CreatedAt  time.Time
}
