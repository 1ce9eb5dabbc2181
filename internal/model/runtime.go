package model

import "time"

// ContainerState is the raw sandbox state observed on the engine.
type ContainerState string

const (
	ContainerStateCreated ContainerState = "created"
	ContainerStateRunning ContainerState = "running"
	ContainerStateExited  ContainerState = "exited"
	ContainerStateMissing ContainerState = "missing"
)

// RuntimeState is a point in time observation of an instance sandbox.
type RuntimeState struct {
	State      ContainerState
	ExitCode   int
	Error      string
	StartedAt  *time.Time
	FinishedAt *time.Time
	// Boot is the state reported by the in-sandbox boot sequence, nil if not reported yet.
	Boot *BootState
}

// Stats is a point in time resource snapshot of an instance.
type Stats struct {
	CPUPercent       float64
	MemoryUsedBytes  uint64
	MemoryLimitBytes uint64
	NetInBytes       uint64
	NetOutBytes      uint64
	PlayerCount      int
}

// BootPhase is the phase the boot sequence reports.
type BootPhase string

const (
	BootPhaseBooting   BootPhase = "booting"
	BootPhaseLaunching BootPhase = "launching"
	BootPhaseFailed    BootPhase = "failed"
)

// BootState is the report the boot sequence leaves in the instance data directory
// so the control plane can tell a booting sandbox from a running server.
type BootState struct {
	Phase     BootPhase `json:"phase"`
	Step      string    `json:"step,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
