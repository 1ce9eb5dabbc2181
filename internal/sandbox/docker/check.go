package docker

import (
	"context"
	"fmt"
	"os"

	"github.com/slok/gsx/internal/model"
)

// Check performs the Docker engine preflight checks.
func (e *Engine) Check(ctx context.Context) []model.CheckResult {
	var results []model.CheckResult

	daemon := e.checkDaemon(ctx)
	results = append(results, daemon)

	// Image checks need the daemon.
	if daemon.Status == model.CheckStatusOK {
		results = append(results, e.checkImage(ctx))
	}

	results = append(results, e.checkBootBinary())
	results = append(results, e.checkDataDir())

	return results
}

func (e *Engine) checkDaemon(ctx context.Context) model.CheckResult {
	ping, err := e.client.Ping(ctx)
	if err != nil {
		return model.CheckResult{
			ID:      "docker_daemon",
			Message: fmt.Sprintf("Docker daemon is not reachable: %v", err),
			Status:  model.CheckStatusError,
		}
	}

	return model.CheckResult{
		ID:      "docker_daemon",
		Message: fmt.Sprintf("Docker daemon is reachable (API %s, %s)", ping.APIVersion, ping.OSType),
		Status:  model.CheckStatusOK,
	}
}

func (e *Engine) checkImage(ctx context.Context) model.CheckResult {
	if _, err := e.client.ImageInspect(ctx, e.image); err != nil {
		return model.CheckResult{
			ID:      "sandbox_image",
			Message: fmt.Sprintf("Image %s is not present locally, it will be pulled on create", e.image),
			Status:  model.CheckStatusWarning,
		}
	}

	return model.CheckResult{
		ID:      "sandbox_image",
		Message: fmt.Sprintf("Image %s is present", e.image),
		Status:  model.CheckStatusOK,
	}
}

func (e *Engine) checkBootBinary() model.CheckResult {
	if e.bootBinary == "" {
		return model.CheckResult{
			ID:      "boot_binary",
			Message: "No bootstrap binary configured, the sandbox image must provide gsboot",
			Status:  model.CheckStatusWarning,
		}
	}

	info, err := os.Stat(e.bootBinary)
	if err != nil {
		return model.CheckResult{
			ID:      "boot_binary",
			Message: fmt.Sprintf("Bootstrap binary not found at %s: %v", e.bootBinary, err),
			Status:  model.CheckStatusError,
		}
	}
	if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return model.CheckResult{
			ID:      "boot_binary",
			Message: fmt.Sprintf("Bootstrap binary %s is not an executable file", e.bootBinary),
			Status:  model.CheckStatusError,
		}
	}

	return model.CheckResult{
		ID:      "boot_binary",
		Message: fmt.Sprintf("Bootstrap binary found at %s", e.bootBinary),
		Status:  model.CheckStatusOK,
	}
}

func (e *Engine) checkDataDir() model.CheckResult {
	if err := os.MkdirAll(e.dataDir, 0o755); err != nil {
		return model.CheckResult{
			ID:      "data_dir",
			Message: fmt.Sprintf("Cannot create data directory %s: %v", e.dataDir, err),
			Status:  model.CheckStatusError,
		}
	}

	f, err := os.CreateTemp(e.dataDir, ".check-*")
	if err != nil {
		return model.CheckResult{
			ID:      "data_dir",
			Message: fmt.Sprintf("Data directory %s is not writable: %v", e.dataDir, err),
			Status:  model.CheckStatusError,
		}
	}
	f.Close()
	os.Remove(f.Name())

	return model.CheckResult{
		ID:      "data_dir",
		Message: fmt.Sprintf("Data directory %s is writable", e.dataDir),
		Status:  model.CheckStatusOK,
	}
}
