package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/slok/gsx/internal/log"
	"github.com/slok/gsx/internal/model"
	"github.com/slok/gsx/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.Repository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository creates a new SQLite repository.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// DB returns the underlying database so other repositories can share it.
func (r *Repository) DB() *sql.DB { return r.db }

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

const instanceColumns = `
	id, name, status,
	family, version,
	memory_min_mb, memory_max_mb, port, image,
	java_version, java_path, launch_artifact, jvm_args, env,
	container_id, exit_code, error,
	created_at, started_at, stopped_at`

// CreateInstance creates a new instance in the repository.
func (r *Repository) CreateInstance(ctx context.Context, i model.Instance) error {
	args, err := instanceArgs(i)
	if err != nil {
		return err
	}

	query := `INSERT INTO instances (` + instanceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: instances.") {
			return fmt.Errorf("instance already exists: %w", model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert instance: %w", err)
	}

	r.logger.Debugf("Created instance in repository: %s", i.ID)
	return nil
}

// GetInstance retrieves an instance by ID.
func (r *Repository) GetInstance(ctx context.Context, id string) (*model.Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances WHERE id = ?`

	instance, err := r.scanOne(ctx, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("instance %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query instance: %w", err)
	}

	return instance, nil
}

// GetInstanceByName retrieves an instance by name.
func (r *Repository) GetInstanceByName(ctx context.Context, name string) (*model.Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances WHERE name = ?`

	instance, err := r.scanOne(ctx, query, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("instance with name %s: %w", name, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query instance: %w", err)
	}

	return instance, nil
}

// ListInstances returns all instances, newest first.
func (r *Repository) ListInstances(ctx context.Context) ([]model.Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("could not query instances: %w", err)
	}
	defer rows.Close()

	var instances []model.Instance
	for rows.Next() {
		instance, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		instances = append(instances, instance)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return instances, nil
}

// UpdateInstance updates an existing instance.
func (r *Repository) UpdateInstance(ctx context.Context, i model.Instance) error {
	args, err := instanceArgs(i)
	if err != nil {
		return err
	}

	query := `
		UPDATE instances SET
			name = ?, status = ?,
			family = ?, version = ?,
			memory_min_mb = ?, memory_max_mb = ?, port = ?, image = ?,
			java_version = ?, java_path = ?, launch_artifact = ?, jvm_args = ?, env = ?,
			container_id = ?, exit_code = ?, error = ?,
			created_at = ?, started_at = ?, stopped_at = ?
		WHERE id = ?
	`

	// Same column order as the insert, with the ID moved to the WHERE clause.
	args = append(args[1:], args[0])
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: instances.") {
			return fmt.Errorf("instance name already used: %w", model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not update instance: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("instance %s: %w", i.ID, model.ErrNotFound)
	}

	r.logger.Debugf("Updated instance in repository: %s", i.ID)
	return nil
}

// DeleteInstance deletes an instance.
func (r *Repository) DeleteInstance(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM instances WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("could not delete instance: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("instance %s: %w", id, model.ErrNotFound)
	}

	r.logger.Debugf("Deleted instance from repository: %s", id)
	return nil
}

func instanceArgs(i model.Instance) ([]any, error) {
	jvmArgs := i.Config.Overrides.JVMArgs
	if jvmArgs == nil {
		jvmArgs = []string{}
	}
	jvmArgsJSON, err := json.Marshal(jvmArgs)
	if err != nil {
		return nil, fmt.Errorf("could not marshal jvm args: %w", err)
	}

	env := i.Config.Env
	if env == nil {
		env = map[string]string{}
	}
	envJSON, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("could not marshal env: %w", err)
	}

	return []any{
		i.ID,
		i.Name,
		i.Status,
		i.Config.Family,
		i.Config.Version,
		i.Config.Memory.MinMB,
		i.Config.Memory.MaxMB,
		i.Config.Port,
		i.Config.Image,
		i.Config.Overrides.JavaVersion,
		i.Config.Overrides.JavaPath,
		i.Config.Overrides.LaunchArtifact,
		string(jvmArgsJSON),
		string(envJSON),
		i.ContainerID,
		i.ExitCode,
		i.Error,
		i.CreatedAt.Unix(),
		unixOrNil(i.StartedAt),
		unixOrNil(i.StoppedAt),
	}, nil
}

func unixOrNil(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	u := t.Unix()
	return &u
}

func (r *Repository) scanOne(ctx context.Context, query string, arg any) (*model.Instance, error) {
	row := r.db.QueryRowContext(ctx, query, arg)
	instance, err := r.scanRow(row)
	if err != nil {
		return nil, err
	}
	return &instance, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanRow(s scanner) (model.Instance, error) {
	var i model.Instance
	var jvmArgsJSON, envJSON string
	var createdAt, startedAt, stoppedAt sql.NullInt64

	err := s.Scan(
		&i.ID,
		&i.Name,
		&i.Status,
		&i.Config.Family,
		&i.Config.Version,
		&i.Config.Memory.MinMB,
		&i.Config.Memory.MaxMB,
		&i.Config.Port,
		&i.Config.Image,
		&i.Config.Overrides.JavaVersion,
		&i.Config.Overrides.JavaPath,
		&i.Config.Overrides.LaunchArtifact,
		&jvmArgsJSON,
		&envJSON,
		&i.ContainerID,
		&i.ExitCode,
		&i.Error,
		&createdAt,
		&startedAt,
		&stoppedAt,
	)
	if err != nil {
		return model.Instance{}, err
	}
	i.Config.Name = i.Name

	if err := json.Unmarshal([]byte(jvmArgsJSON), &i.Config.Overrides.JVMArgs); err != nil {
		return model.Instance{}, fmt.Errorf("could not unmarshal jvm args: %w", err)
	}
	if len(i.Config.Overrides.JVMArgs) == 0 {
		i.Config.Overrides.JVMArgs = nil
	}
	if err := json.Unmarshal([]byte(envJSON), &i.Config.Env); err != nil {
		return model.Instance{}, fmt.Errorf("could not unmarshal env: %w", err)
	}
	if len(i.Config.Env) == 0 {
		i.Config.Env = nil
	}

	if err := r.setTimestamps(&i, createdAt, startedAt, stoppedAt); err != nil {
		return model.Instance{}, err
	}

	return i, nil
}

func (r *Repository) setTimestamps(i *model.Instance, createdAt, startedAt, stoppedAt sql.NullInt64) error {
	if !createdAt.Valid {
		return fmt.Errorf("created_at is required")
	}
	i.CreatedAt = timeFromUnix(createdAt.Int64)

	if startedAt.Valid {
		t := timeFromUnix(startedAt.Int64)
		i.StartedAt = &t
	}
	if stoppedAt.Valid {
		t := timeFromUnix(stoppedAt.Int64)
		i.StoppedAt = &t
	}

	return nil
}

func timeFromUnix(unix int64) time.Time { return time.Unix(unix, 0).UTC() }
