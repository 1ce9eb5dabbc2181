package model

// InstanceStatus represents the lifecycle state of an instance.
type InstanceStatus string

const (
	// InstanceStatusCreated indicates the sandbox exists but was never started.
	InstanceStatusCreated InstanceStatus = "created"
	// InstanceStatusStarting indicates the boot sequence is running.
	InstanceStatusStarting InstanceStatus = "starting"
	// InstanceStatusRunning indicates the server process has been launched.
	InstanceStatusRunning InstanceStatus = "running"
	// InstanceStatusStopping indicates a graceful stop is in progress.
	InstanceStatusStopping InstanceStatus = "stopping"
	// InstanceStatusStopped indicates the instance was stopped on request.
	InstanceStatusStopped InstanceStatus = "stopped"
	// InstanceStatusCrashed indicates the sandbox exited without being asked to,
	// including fatal boot errors.
	InstanceStatusCrashed InstanceStatus = "crashed"
	// InstanceStatusRemoved indicates the instance has been deleted.
	InstanceStatusRemoved InstanceStatus = "removed"
)

var instanceTransitions = map[InstanceStatus][]InstanceStatus{
	InstanceStatusCreated:  {InstanceStatusStarting, InstanceStatusRemoved},
	InstanceStatusStarting: {InstanceStatusRunning, InstanceStatusCrashed, InstanceStatusStopping, InstanceStatusStopped, InstanceStatusStarting},
	InstanceStatusRunning:  {InstanceStatusStopping, InstanceStatusStopped, InstanceStatusCrashed, InstanceStatusStarting},
	InstanceStatusStopping: {InstanceStatusStopped, InstanceStatusCrashed},
	InstanceStatusStopped:  {InstanceStatusStarting, InstanceStatusRemoved},
	InstanceStatusCrashed:  {InstanceStatusStarting, InstanceStatusRemoved},
}

// CanTransition returns true if the state machine allows moving from one status to another.
func (s InstanceStatus) CanTransition(to InstanceStatus) bool {
	for _, allowed := range instanceTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Active returns true when the instance sandbox is expected to be alive.
func (s InstanceStatus) Active() bool {
	return s == InstanceStatusStarting || s == InstanceStatusRunning || s == InstanceStatusStopping
}
