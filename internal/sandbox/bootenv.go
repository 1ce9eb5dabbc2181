package sandbox

import (
	"fmt"
	"strings"

	"github.com/slok/gsx/internal/boot"
	"github.com/slok/gsx/internal/conventions"
	"github.com/slok/gsx/internal/model"
	"github.com/slok/gsx/internal/utils/env"
)

// BootEnv renders the immutable boot configuration of an instance as the sandbox environment.
// The instance extra variables are applied on top, sorted by key.
func BootEnv(inst model.Instance) []string {
	cfg := boot.DefaultConfig()
	cfg.Family = string(inst.Config.Family)
	cfg.Version = inst.Config.Version
	cfg.WorkDir = conventions.SandboxDataDir
	cfg.DataDir = conventions.SandboxDataDir
	cfg.MemoryMin = fmt.Sprintf("%dM", inst.Config.Memory.MinMB)
	cfg.MemoryMax = fmt.Sprintf("%dM", inst.Config.Memory.MaxMB)
	cfg.JVMArgs = strings.Join(inst.Config.Overrides.JVMArgs, " ")
	cfg.JavaVersion = inst.Config.Overrides.JavaVersion
	cfg.JavaPath = inst.Config.Overrides.JavaPath
	cfg.LaunchArtifact = inst.Config.Overrides.LaunchArtifact

	return env.ToList(env.MergeMaps(env.ParseList(cfg.Environ()), inst.Config.Env))
}

// MemoryLimitMB is the sandbox memory limit for a max heap, it leaves room for the JVM off-heap memory.
func MemoryLimitMB(maxHeapMB int) int {
	overhead := maxHeapMB / 4
	if overhead < 512 {
		overhead = 512
	}
	return maxHeapMB + overhead
}
