package sandbox

import (
	"fmt"
	"time"

	"github.com/slok/gsx/internal/model"
)

// Observe maps an engine observation into the instance state machine.
// It returns the updated instance and if anything changed. There is no
// retry here, a crash is only surfaced.
func Observe(inst model.Instance, rt model.RuntimeState, now time.Time) (model.Instance, bool) {
	next := observedStatus(inst.Status, rt)
	if next == inst.Status || !inst.Status.CanTransition(next) {
		return inst, false
	}

	prev := inst.Status
	inst.Status = next
	switch next {
	case model.InstanceStatusRunning:
		if rt.StartedAt != nil && (inst.StartedAt == nil || prev == model.InstanceStatusStarting) {
			t := *rt.StartedAt
			inst.StartedAt = &t
		}
	case model.InstanceStatusStopped, model.InstanceStatusCrashed:
		stoppedAt := now
		if rt.FinishedAt != nil {
			stoppedAt = *rt.FinishedAt
		}
		inst.StoppedAt = &stoppedAt
		inst.ExitCode = rt.ExitCode
		inst.Error = ""
		if next == model.InstanceStatusCrashed {
			inst.Error = crashReason(rt)
		}
	}

	return inst, true
}

func observedStatus(current model.InstanceStatus, rt model.RuntimeState) model.InstanceStatus {
	switch rt.State {
	case model.ContainerStateRunning:
		if current == model.InstanceStatusStopping {
			return current
		}
		if rt.Boot != nil && rt.Boot.Phase == model.BootPhaseLaunching {
			return model.InstanceStatusRunning
		}
		return model.InstanceStatusStarting

	case model.ContainerStateExited:
		switch current {
		case model.InstanceStatusStopping:
			return model.InstanceStatusStopped
		case model.InstanceStatusStarting, model.InstanceStatusRunning:
			// A server shut down from its own console exits cleanly after launch.
			if rt.ExitCode == 0 && rt.Boot != nil && rt.Boot.Phase == model.BootPhaseLaunching {
				return model.InstanceStatusStopped
			}
			return model.InstanceStatusCrashed
		}

	case model.ContainerStateMissing:
		if current.Active() {
			return model.InstanceStatusCrashed
		}
	}

	return current
}

func crashReason(rt model.RuntimeState) string {
	switch {
	case rt.State == model.ContainerStateMissing:
		return "sandbox is missing"
	case rt.Boot != nil && rt.Boot.Phase == model.BootPhaseFailed:
		if rt.Boot.Step != "" {
			return fmt.Sprintf("boot failed at %s: %s", rt.Boot.Step, rt.Boot.Error)
		}
		return "boot failed: " + rt.Boot.Error
	case rt.Error != "":
		return rt.Error
	default:
		return fmt.Sprintf("server exited with code %d", rt.ExitCode)
	}
}
