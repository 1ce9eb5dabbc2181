package lib

import (
	"time"

	"github.com/slok/gsx/internal/model"
)

// EngineType identifies the sandbox engine implementation.
type EngineType string

const (
	// EngineDocker runs every instance in its own Docker container.
	// Requires access to a Docker daemon.
	EngineDocker EngineType = "docker"

	// EngineFake uses an in-memory simulation (no real containers).
	// Use this for unit testing without infrastructure dependencies.
	EngineFake EngineType = "fake"
)

// Family is the server distribution an instance runs.
type Family string

const (
	FamilyVanilla  Family = "vanilla"
	FamilyPaper    Family = "paper"
	FamilySpigot   Family = "spigot"
	FamilyPurpur   Family = "purpur"
	FamilyFabric   Family = "fabric"
	FamilyQuilt    Family = "quilt"
	FamilyForge    Family = "forge"
	FamilyNeoForge Family = "neoforge"
)

// InstanceStatus represents the lifecycle state of an instance.
//
// The typical lifecycle is:
//
//	created -> starting -> running -> stopping -> stopped -> (removed)
//
// An instance whose server exits without being asked to becomes crashed.
type InstanceStatus string

const (
	InstanceStatusCreated  InstanceStatus = "created"
	InstanceStatusStarting InstanceStatus = "starting"
	InstanceStatusRunning  InstanceStatus = "running"
	InstanceStatusStopping InstanceStatus = "stopping"
	InstanceStatusStopped  InstanceStatus = "stopped"
	InstanceStatusCrashed  InstanceStatus = "crashed"
	InstanceStatusRemoved  InstanceStatus = "removed"
)

// Instance represents a game server instance returned by the SDK.
//
// This is a read-only snapshot of the instance state at the time of the API call.
// Use [Client.GetInstance] to get the latest state.
type Instance struct {
	// ID is the unique identifier (ULID) assigned at creation.
	ID string
	// Name is the human-friendly name.
	Name string
	// Status is the observed lifecycle state.
	Status InstanceStatus
	// Config is the configuration set at creation time, with the allocated port.
	Config InstanceConfig
	// ExitCode is the last exit code of the server, meaningful when stopped or crashed.
	ExitCode int
	// Error is the reason of the last failure, empty if none.
	Error     string
	CreatedAt time.Time
	// StartedAt is nil if the instance was never started.
	StartedAt *time.Time
	// StoppedAt is nil if the instance was never stopped.
	StoppedAt *time.Time
}

// InstanceConfig is the configuration of an instance.
type InstanceConfig struct {
	Name    string
	Family  Family
	Version string
	Memory  Memory
	// Port is the host port the server is published on.
	Port int
	// Image is the sandbox image, empty means the engine default.
	Image     string
	Overrides BootOverrides
	Env       map[string]string
}

// Memory is the JVM heap range in megabytes.
type Memory struct {
	MinMB int
	MaxMB int
}

// BootOverrides change how the boot sequence picks the Java runtime and the launch target.
type BootOverrides struct {
	JavaVersion    int
	JavaPath       string
	LaunchArtifact string
	JVMArgs        []string
}

// CreateInstanceOpts configures instance creation.
//
// Name, Family, Version and Memory are required. A zero Port allocates the
// first free host port starting at 25565.
type CreateInstanceOpts struct {
	Name      string
	Family    Family
	Version   string
	Memory    Memory
	Port      int
	Image     string
	Overrides BootOverrides
	Env       map[string]string
}

// StopInstanceOpts configures graceful stops and restarts.
//
// Pass nil to use the engine default grace period.
type StopInstanceOpts struct {
	// Timeout is the grace period before the server is killed.
	Timeout time.Duration
}

// ListInstancesOpts configures instance listing.
//
// Pass nil to [Client.ListInstances] to list all instances.
type ListInstancesOpts struct {
	// Status filters instances by status. Nil means all statuses.
	Status *InstanceStatus
}

// LogsOpts configures log retrieval.
type LogsOpts struct {
	// Tail is the number of last lines to return, all of them when <= 0.
	Tail int
}

// Stats is a point in time resource snapshot of a running instance.
type Stats struct {
	CPUPercent       float64
	MemoryUsedBytes  uint64
	MemoryLimitBytes uint64
	NetInBytes       uint64
	NetOutBytes      uint64
	// PlayerCount is the number of online players tracked from the server output.
	PlayerCount int
}

// --- Doctor types ---

// CheckStatus represents the status of a preflight check.
type CheckStatus string

const (
	// CheckStatusOK indicates the check passed.
	CheckStatusOK CheckStatus = "ok"
	// CheckStatusWarning indicates the check passed with a warning.
	CheckStatusWarning CheckStatus = "warning"
	// CheckStatusError indicates the check failed.
	CheckStatusError CheckStatus = "error"
)

// CheckResult represents the result of a single preflight check.
type CheckResult struct {
	// ID is a unique identifier for the check (e.g. "docker_daemon").
	ID string
	// Message is a human-readable description of the result.
	Message string
	// Status is the check status.
	Status CheckStatus
}

// --- Internal conversion helpers ---

func toInternalInstanceConfig(opts CreateInstanceOpts) model.InstanceConfig {
	return model.InstanceConfig{
		Name:    opts.Name,
		Family:  model.Family(opts.Family),
		Version: opts.Version,
		Memory: model.Memory{
			MinMB: opts.Memory.MinMB,
			MaxMB: opts.Memory.MaxMB,
		},
		Port:  opts.Port,
		Image: opts.Image,
		Overrides: model.BootOverrides{
			JavaVersion:    opts.Overrides.JavaVersion,
			JavaPath:       opts.Overrides.JavaPath,
			LaunchArtifact: opts.Overrides.LaunchArtifact,
			JVMArgs:        opts.Overrides.JVMArgs,
		},
		Env: opts.Env,
	}
}

func fromInternalInstance(i model.Instance) Instance {
	return Instance{
		ID:        i.ID,
		Name:      i.Name,
		Status:    InstanceStatus(i.Status),
		ExitCode:  i.ExitCode,
		Error:     i.Error,
		CreatedAt: i.CreatedAt,
		StartedAt: i.StartedAt,
		StoppedAt: i.StoppedAt,
		Config: InstanceConfig{
			Name:    i.Config.Name,
			Family:  Family(i.Config.Family),
			Version: i.Config.Version,
			Memory: Memory{
				MinMB: i.Config.Memory.MinMB,
				MaxMB: i.Config.Memory.MaxMB,
			},
			Port:  i.Config.Port,
			Image: i.Config.Image,
			Overrides: BootOverrides{
				JavaVersion:    i.Config.Overrides.JavaVersion,
				JavaPath:       i.Config.Overrides.JavaPath,
				LaunchArtifact: i.Config.Overrides.LaunchArtifact,
				JVMArgs:        i.Config.Overrides.JVMArgs,
			},
			Env: i.Config.Env,
		},
	}
}

func fromInternalInstanceList(is []model.Instance) []Instance {
	result := make([]Instance, len(is))
	for i, inst := range is {
		result[i] = fromInternalInstance(inst)
	}
	return result
}

func fromInternalStats(s model.Stats) Stats {
	return Stats{
		CPUPercent:       s.CPUPercent,
		MemoryUsedBytes:  s.MemoryUsedBytes,
		MemoryLimitBytes: s.MemoryLimitBytes,
		NetInBytes:       s.NetInBytes,
		NetOutBytes:      s.NetOutBytes,
		PlayerCount:      s.PlayerCount,
	}
}

func toInternalStatusFilter(opts *ListInstancesOpts) *model.InstanceStatus {
	if opts == nil || opts.Status == nil {
		return nil
	}
	s := model.InstanceStatus(*opts.Status)
	return &s
}

func stopTimeout(opts *StopInstanceOpts) time.Duration {
	if opts == nil {
		return 0
	}
	return opts.Timeout
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case isInternalError(err, model.ErrNotFound):
		return joinErrors(err, ErrNotFound)
	case isInternalError(err, model.ErrAlreadyExists):
		return joinErrors(err, ErrAlreadyExists)
	case isInternalError(err, model.ErrNotValid):
		return joinErrors(err, ErrNotValid)
	default:
		return err
	}
}

func isInternalError(err, target error) bool {
	for {
		if err == target {
			return true
		}
		unwrapped := unwrapSingle(err)
		if unwrapped == nil {
			return false
		}
		err = unwrapped
	}
}

func unwrapSingle(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}

func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }

// --- Doctor conversion helpers ---

func fromInternalCheckResults(results []model.CheckResult) []CheckResult {
	out := make([]CheckResult, len(results))
	for i, r := range results {
		out[i] = CheckResult{
			ID:      r.ID,
			Message: r.Message,
			Status:  CheckStatus(r.Status),
		}
	}
	return out
}
