package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/gsx/internal/log"
	"github.com/slok/gsx/internal/model"
)

// TaskRepositoryConfig is the configuration for the SQLite task repository.
type TaskRepositoryConfig struct {
	// DB is shared with the instance repository, the tasks table comes from the same migrations.
	DB     *sql.DB
	Logger log.Logger
}

func (c *TaskRepositoryConfig) defaults() error {
	if c.DB == nil {
		return fmt.Errorf("db is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.TaskRepository"})
	return nil
}

// TaskRepository is the journal of the engine operation steps, stored in SQLite.
type TaskRepository struct {
	db     *sql.DB
	logger log.Logger
}

// NewTaskRepository creates a new SQLite task repository.
func NewTaskRepository(cfg TaskRepositoryConfig) (*TaskRepository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &TaskRepository{
		db:     cfg.DB,
		logger: cfg.Logger,
	}, nil
}

// AddTasks appends pending steps to an instance operation, after the ones it already has.
func (r *TaskRepository) AddTasks(ctx context.Context, instanceID, operation string, names []string) error {
	if len(names) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var last int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM tasks WHERE instance_id = ? AND operation = ?`,
		instanceID, operation).Scan(&last)
	if err != nil {
		return fmt.Errorf("could not get last sequence: %w", err)
	}

	createdAt := time.Now().UTC().Unix()
	for i, name := range names {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tasks (id, instance_id, operation, sequence, name, status, error, created_at) VALUES (?, ?, ?, ?, ?, ?, '', ?)`,
			ulid.Make().String(), instanceID, operation, last+i+1, name, model.TaskStatusPending, createdAt)
		if err != nil {
			return fmt.Errorf("could not insert task %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	r.logger.Debugf("Journaled %s of instance %s: %v", operation, instanceID, names)
	return nil
}

// NextTask returns the first pending step of an operation, nil when there is none.
func (r *TaskRepository) NextTask(ctx context.Context, instanceID, operation string) (*model.Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, instance_id, operation, sequence, name, status, error, created_at
		FROM tasks
		WHERE instance_id = ? AND operation = ? AND status = ?
		ORDER BY sequence ASC
		LIMIT 1`,
		instanceID, operation, model.TaskStatusPending)

	var (
		t         model.Task
		createdAt int64
	)
	err := row.Scan(&t.ID, &t.InstanceID, &t.Operation, &t.Sequence, &t.Name, &t.Status, &t.Error, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not query next task: %w", err)
	}
	t.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &t, nil
}

// CompleteTask marks a step as done.
func (r *TaskRepository) CompleteTask(ctx context.Context, taskID string) error {
	return r.finish(ctx, taskID, model.TaskStatusDone, "")
}

// FailTask marks a step as failed, the error is kept for diagnosis.
func (r *TaskRepository) FailTask(ctx context.Context, taskID string, taskErr error) error {
	msg := ""
	if taskErr != nil {
		msg = taskErr.Error()
	}
	return r.finish(ctx, taskID, model.TaskStatusFailed, msg)
}

func (r *TaskRepository) finish(ctx context.Context, taskID string, status model.TaskStatus, msg string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tasks SET status = ?, error = ? WHERE id = ?`, status, msg, taskID)
	if err != nil {
		return fmt.Errorf("could not update task: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
	}

	r.logger.Debugf("Task %s is %s", taskID, status)
	return nil
}

// ClearInstance drops the journal of every operation of an instance.
func (r *TaskRepository) ClearInstance(ctx context.Context, instanceID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE instance_id = ?`, instanceID)
	if err != nil {
		return fmt.Errorf("could not delete tasks: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil {
		r.logger.Debugf("Cleared %d tasks of instance %s", n, instanceID)
	}
	return nil
}
