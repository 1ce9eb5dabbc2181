package docker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/slok/gsx/internal/boot"
	"github.com/slok/gsx/internal/boot/console"
	"github.com/slok/gsx/internal/conventions"
	"github.com/slok/gsx/internal/log"
	"github.com/slok/gsx/internal/model"
	"github.com/slok/gsx/internal/sandbox"
	"github.com/slok/gsx/internal/storage"
)

// DefaultImage is the sandbox image used when the instance doesn't set one.
const DefaultImage = "eclipse-temurin:21-jdk"

// DockerClient is the interface for Docker operations that we use.
// This allows us to mock the Docker client for testing.
type DockerClient interface {
	Ping(ctx context.Context) (types.Ping, error)
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
	ImageInspect(ctx context.Context, imageID string, inspectOpts ...client.ImageInspectOption) (image.InspectResponse, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRestart(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerKill(ctx context.Context, containerID, signal string) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerStats(ctx context.Context, containerID string, stream bool) (container.StatsResponseReader, error)
	ContainerExecCreate(ctx context.Context, containerID string, options container.ExecOptions) (container.ExecCreateResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, config container.ExecAttachOptions) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (container.ExecInspect, error)
}

// EngineConfig is the configuration for the Docker engine.
type EngineConfig struct {
	Client DockerClient
	// DataDir is the gsx data directory, instance data lives under it.
	DataDir string
	// Image is the default sandbox image.
	Image string
	// BootBinary is the host path of the bootstrap binary mounted as the sandbox entrypoint.
	// When empty the image must ship `gsboot` in its PATH.
	BootBinary string
	TaskRepo   storage.TaskRepository
	Logger     log.Logger
}

func (c *EngineConfig) defaults() error {
	if c.DataDir == "" {
		return fmt.Errorf("data dir is required")
	}
	if c.Client == nil {
		cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
		if err != nil {
			return fmt.Errorf("could not create Docker client: %w", err)
		}
		c.Client = cli
	}
	if c.Image == "" {
		c.Image = DefaultImage
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "engine.Docker"})
	return nil
}

// Engine is the Docker implementation of the sandbox.Engine interface.
// One container per instance, named after the instance ID.
type Engine struct {
	client     DockerClient
	dataDir    string
	image      string
	bootBinary string
	taskRepo   storage.TaskRepository
	logger     log.Logger
}

// NewEngine creates a new Docker engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Engine{
		client:     cfg.Client,
		dataDir:    cfg.DataDir,
		image:      cfg.Image,
		bootBinary: cfg.BootBinary,
		taskRepo:   cfg.TaskRepo,
		logger:     cfg.Logger,
	}, nil
}

// ContainerName returns the container name of an instance.
func ContainerName(id string) string {
	return conventions.ContainerPrefix + strings.ToLower(id)
}

var serverPort = nat.Port(strconv.Itoa(conventions.ServerPort) + "/tcp")

// Create pulls the image, prepares the data directory and creates the instance container.
func (e *Engine) Create(ctx context.Context, inst model.Instance) (string, error) {
	containerName := ContainerName(inst.ID)
	img := inst.Config.Image
	if img == "" {
		img = e.image
	}
	dataDir := conventions.InstanceDataDir(e.dataDir, inst.ID)

	if e.taskRepo != nil {
		taskNames := []string{"pull_image", "prepare_data", "create_container"}
		if err := e.taskRepo.AddTasks(ctx, inst.ID, "create", taskNames); err != nil {
			return "", fmt.Errorf("failed to add tasks: %w", err)
		}
	}

	// Task 1: Pull the image.
	if err := e.executeTask(ctx, inst.ID, "create", "pull_image", func() error {
		if _, err := e.client.ImageInspect(ctx, img); err == nil {
			e.logger.Infof("[1/3] Image present: %s", img)
			return nil
		}

		e.logger.Infof("[1/3] Pulling image: %s", img)
		pullResp, err := e.client.ImagePull(ctx, img, image.PullOptions{})
		if err != nil {
			return fmt.Errorf("failed to pull image %s: %w", img, err)
		}
		// Consume the pull response to ensure it completes.
		_, _ = io.Copy(io.Discard, pullResp)
		pullResp.Close()
		return nil
	}); err != nil {
		return "", err
	}

	// Task 2: Instance data directory, kept across container recreations.
	if err := e.executeTask(ctx, inst.ID, "create", "prepare_data", func() error {
		e.logger.Infof("[2/3] Preparing data directory: %s", dataDir)
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return fmt.Errorf("could not create data directory: %w", err)
		}
		if err := boot.ClearState(dataDir); err != nil {
			return fmt.Errorf("could not clear boot state: %w", err)
		}
		return nil
	}); err != nil {
		return "", err
	}

	// Task 3: Create the container.
	var containerID string
	if err := e.executeTask(ctx, inst.ID, "create", "create_container", func() error {
		e.logger.Infof("[3/3] Creating container: %s", containerName)

		containerConfig, hostConfig := e.containerSpec(inst, img, dataDir)
		resp, err := e.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, containerName)
		if err != nil {
			if errdefs.IsConflict(err) {
				return fmt.Errorf("container %s: %w", containerName, model.ErrAlreadyExists)
			}
			return fmt.Errorf("failed to create container: %w", err)
		}
		for _, w := range resp.Warnings {
			e.logger.Warningf("Container create: %s", w)
		}

		containerID = resp.ID
		return nil
	}); err != nil {
		return "", err
	}

	e.logger.Infof("Created Docker sandbox: %s (container: %s)", inst.ID, containerID)

	return containerID, nil
}

func (e *Engine) containerSpec(inst model.Instance, img, dataDir string) (*container.Config, *container.HostConfig) {
	entrypoint := "gsboot"
	mounts := []mount.Mount{
		{Type: mount.TypeBind, Source: dataDir, Target: conventions.SandboxDataDir},
	}
	if e.bootBinary != "" {
		entrypoint = conventions.SandboxBootBinary
		mounts = append(mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   e.bootBinary,
			Target:   conventions.SandboxBootBinary,
			ReadOnly: true,
		})
	}

	stopTimeout := int(sandbox.DefaultStopTimeout.Seconds())
	containerConfig := &container.Config{
		Image:        img,
		Env:          sandbox.BootEnv(inst),
		Entrypoint:   []string{entrypoint},
		WorkingDir:   conventions.SandboxDataDir,
		ExposedPorts: nat.PortSet{serverPort: struct{}{}},
		StopSignal:   "SIGTERM",
		StopTimeout:  &stopTimeout,
		Labels: map[string]string{
			conventions.ManagedByLabel:    "gsx",
			conventions.InstanceIDLabel:   inst.ID,
			conventions.InstanceNameLabel: inst.Name,
			conventions.FamilyLabel:       string(inst.Config.Family),
		},
	}

	hostConfig := &container.HostConfig{
		Mounts: mounts,
		PortBindings: nat.PortMap{
			serverPort: []nat.PortBinding{{HostPort: strconv.Itoa(inst.Config.Port)}},
		},
		Resources: container.Resources{
			Memory: int64(sandbox.MemoryLimitMB(inst.Config.Memory.MaxMB)) * 1024 * 1024,
		},
		// Crashes are surfaced, never retried.
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyDisabled},
	}

	return containerConfig, hostConfig
}

// executeTask executes a task function and tracks its completion.
func (e *Engine) executeTask(ctx context.Context, instanceID, operation, taskName string, fn func() error) error {
	if e.taskRepo == nil {
		return fn()
	}

	tsk, err := e.taskRepo.NextTask(ctx, instanceID, operation)
	if err != nil {
		return fmt.Errorf("failed to get next task: %w", err)
	}
	if tsk == nil {
		return fmt.Errorf("no pending task found for operation %s", operation)
	}
	if tsk.Name != taskName {
		return fmt.Errorf("expected task %s, got %s", taskName, tsk.Name)
	}

	err = fn()
	if err != nil {
		if failErr := e.taskRepo.FailTask(ctx, tsk.ID, err); failErr != nil {
			e.logger.Errorf("Failed to mark task as failed: %v", failErr)
		}
		return err
	}

	if err := e.taskRepo.CompleteTask(ctx, tsk.ID); err != nil {
		return fmt.Errorf("failed to mark task as completed: %w", err)
	}

	return nil
}

// Start starts the instance container, the bootstrap runs the boot sequence again.
func (e *Engine) Start(ctx context.Context, id string) error {
	containerName := ContainerName(id)

	// A stale report from the previous run would look like a launched server.
	if err := boot.ClearState(conventions.InstanceDataDir(e.dataDir, id)); err != nil {
		return fmt.Errorf("could not clear boot state: %w", err)
	}

	e.logger.Infof("Starting container: %s", containerName)
	if err := e.client.ContainerStart(ctx, containerName, container.StartOptions{}); err != nil {
		if client.IsErrNotFound(err) {
			return fmt.Errorf("container %s: %w", containerName, model.ErrNotFound)
		}
		if strings.Contains(err.Error(), "already started") || strings.Contains(err.Error(), "is already running") {
			e.logger.Debugf("Container %s is already running", containerName)
			return nil
		}
		return fmt.Errorf("failed to start container %s: %w", containerName, err)
	}

	e.logger.Infof("Started Docker sandbox: %s", id)
	return nil
}

// Stop stops the instance container, SIGTERM first and SIGKILL after the timeout.
func (e *Engine) Stop(ctx context.Context, id string, timeout time.Duration) error {
	containerName := ContainerName(id)
	seconds := stopSeconds(timeout)

	e.logger.Infof("Stopping container: %s (timeout %ds)", containerName, seconds)
	if err := e.client.ContainerStop(ctx, containerName, container.StopOptions{Timeout: &seconds}); err != nil {
		if client.IsErrNotFound(err) {
			return fmt.Errorf("container %s: %w", containerName, model.ErrNotFound)
		}
		if strings.Contains(err.Error(), "is already stopped") || strings.Contains(err.Error(), "is not running") {
			e.logger.Debugf("Container %s is already stopped", containerName)
			return nil
		}
		return fmt.Errorf("failed to stop container %s: %w", containerName, err)
	}

	e.logger.Infof("Stopped Docker sandbox: %s", id)
	return nil
}

// Restart stops the instance container gracefully and starts it again.
func (e *Engine) Restart(ctx context.Context, id string, timeout time.Duration) error {
	containerName := ContainerName(id)
	seconds := stopSeconds(timeout)

	if err := boot.ClearState(conventions.InstanceDataDir(e.dataDir, id)); err != nil {
		return fmt.Errorf("could not clear boot state: %w", err)
	}

	e.logger.Infof("Restarting container: %s (timeout %ds)", containerName, seconds)
	if err := e.client.ContainerRestart(ctx, containerName, container.StopOptions{Timeout: &seconds}); err != nil {
		if client.IsErrNotFound(err) {
			return fmt.Errorf("container %s: %w", containerName, model.ErrNotFound)
		}
		return fmt.Errorf("failed to restart container %s: %w", containerName, err)
	}

	e.logger.Infof("Restarted Docker sandbox: %s", id)
	return nil
}

// Kill kills the instance container immediately.
func (e *Engine) Kill(ctx context.Context, id string) error {
	containerName := ContainerName(id)

	e.logger.Infof("Killing container: %s", containerName)
	if err := e.client.ContainerKill(ctx, containerName, "SIGKILL"); err != nil {
		if client.IsErrNotFound(err) {
			return fmt.Errorf("container %s: %w", containerName, model.ErrNotFound)
		}
		// Killing a stopped container is a conflict on the daemon side.
		if errdefs.IsConflict(err) || strings.Contains(err.Error(), "is not running") {
			e.logger.Debugf("Container %s is not running", containerName)
			return nil
		}
		return fmt.Errorf("failed to kill container %s: %w", containerName, err)
	}

	e.logger.Infof("Killed Docker sandbox: %s", id)
	return nil
}

// Remove removes the instance container, the instance data directory is kept.
func (e *Engine) Remove(ctx context.Context, id string) error {
	containerName := ContainerName(id)

	if e.taskRepo != nil {
		if err := e.taskRepo.AddTasks(ctx, id, "remove", []string{"remove_container"}); err != nil {
			return fmt.Errorf("failed to add tasks: %w", err)
		}
	}

	if err := e.executeTask(ctx, id, "remove", "remove_container", func() error {
		e.logger.Infof("[1/1] Removing container: %s", containerName)
		if err := e.client.ContainerRemove(ctx, containerName, container.RemoveOptions{Force: true}); err != nil {
			if client.IsErrNotFound(err) {
				e.logger.Debugf("Container %s already removed", containerName)
				return nil
			}
			return fmt.Errorf("failed to remove container %s: %w", containerName, err)
		}
		return nil
	}); err != nil {
		return err
	}

	if e.taskRepo != nil {
		if err := e.taskRepo.ClearInstance(ctx, id); err != nil {
			e.logger.Warningf("Could not clear task journal of %s: %v", id, err)
		}
	}

	e.logger.Infof("Removed Docker sandbox: %s", id)
	return nil
}

// Status inspects the instance container and reads the boot state it left in the data directory.
func (e *Engine) Status(ctx context.Context, id string) (*model.RuntimeState, error) {
	containerName := ContainerName(id)

	e.logger.Debugf("Inspecting container: %s", containerName)
	info, err := e.client.ContainerInspect(ctx, containerName)
	if err != nil {
		if client.IsErrNotFound(err) {
			return &model.RuntimeState{State: model.ContainerStateMissing}, nil
		}
		return nil, fmt.Errorf("failed to inspect container %s: %w", containerName, err)
	}
	if info.ContainerJSONBase == nil || info.State == nil {
		return nil, fmt.Errorf("container %s inspect has no state", containerName)
	}

	st := &model.RuntimeState{
		State:      containerState(string(info.State.Status)),
		ExitCode:   info.State.ExitCode,
		Error:      info.State.Error,
		StartedAt:  parseDockerTime(info.State.StartedAt),
		FinishedAt: parseDockerTime(info.State.FinishedAt),
	}
	if info.State.OOMKilled && st.Error == "" {
		st.Error = "out of memory"
	}

	bootState, err := boot.ReadState(conventions.InstanceDataDir(e.dataDir, id))
	switch {
	case err == nil:
		st.Boot = bootState
	case errors.Is(err, model.ErrNotFound):
	default:
		e.logger.Warningf("Could not read boot state of %s: %v", id, err)
	}

	return st, nil
}

func containerState(s string) model.ContainerState {
	switch strings.ToLower(s) {
	case "created":
		return model.ContainerStateCreated
	case "running", "restarting", "paused":
		return model.ContainerStateRunning
	default:
		return model.ContainerStateExited
	}
}

func parseDockerTime(s string) *time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil || t.IsZero() || t.Year() <= 1 {
		return nil
	}
	t = t.UTC()
	return &t
}

// Logs returns the container output lines, stdout and stderr merged.
func (e *Engine) Logs(ctx context.Context, id string, tail int) ([]string, error) {
	containerName := ContainerName(id)

	opts := container.LogsOptions{ShowStdout: true, ShowStderr: true, Tail: "all"}
	if tail > 0 {
		opts.Tail = strconv.Itoa(tail)
	}

	rc, err := e.client.ContainerLogs(ctx, containerName, opts)
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, fmt.Errorf("container %s: %w", containerName, model.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get container logs: %w", err)
	}
	defer rc.Close()

	// Containers run without TTY so the stream is multiplexed.
	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, rc); err != nil {
		return nil, fmt.Errorf("could not read container logs: %w", err)
	}

	return splitLines(buf.String()), nil
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}

// Stats returns a resource snapshot of the instance container.
func (e *Engine) Stats(ctx context.Context, id string) (*model.Stats, error) {
	containerName := ContainerName(id)

	resp, err := e.client.ContainerStats(ctx, containerName, false)
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, fmt.Errorf("container %s: %w", containerName, model.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get container stats: %w", err)
	}
	defer resp.Body.Close()

	var raw container.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("could not decode container stats: %w", err)
	}

	return statsFromDocker(raw), nil
}

func statsFromDocker(s container.StatsResponse) *model.Stats {
	stats := &model.Stats{
		CPUPercent:       cpuPercent(s),
		MemoryUsedBytes:  s.MemoryStats.Usage,
		MemoryLimitBytes: s.MemoryStats.Limit,
	}

	// Page cache is reclaimable, docker CLI reports usage without it.
	cache := s.MemoryStats.Stats["inactive_file"]
	if cache == 0 {
		cache = s.MemoryStats.Stats["total_inactive_file"]
	}
	if cache < stats.MemoryUsedBytes {
		stats.MemoryUsedBytes -= cache
	}

	for _, n := range s.Networks {
		stats.NetInBytes += n.RxBytes
		stats.NetOutBytes += n.TxBytes
	}

	return stats
}

func cpuPercent(s container.StatsResponse) float64 {
	cpuDelta := float64(s.CPUStats.CPUUsage.TotalUsage) - float64(s.PreCPUStats.CPUUsage.TotalUsage)
	systemDelta := float64(s.CPUStats.SystemUsage) - float64(s.PreCPUStats.SystemUsage)
	if cpuDelta <= 0 || systemDelta <= 0 {
		return 0
	}

	cpus := float64(s.CPUStats.OnlineCPUs)
	if cpus == 0 {
		cpus = float64(len(s.CPUStats.CPUUsage.PercpuUsage))
	}
	if cpus == 0 {
		cpus = 1
	}

	return cpuDelta / systemDelta * cpus * 100
}

// pipeNotReadyCode is the exit code of the command writer when the server has no command pipe yet.
const pipeNotReadyCode = 3

// SendCommand writes the command line into the console pipe of the running server.
// The write blocks until the server reads the pipe, a missing pipe fails fast.
func (e *Engine) SendCommand(ctx context.Context, id string, command string) error {
	if strings.ContainsAny(command, "\r\n") {
		return fmt.Errorf("command must be a single line: %w", model.ErrNotValid)
	}
	containerName := ContainerName(id)
	pipe := path.Join(conventions.SandboxDataDir, console.PipeName)

	// The pipe check avoids creating a regular file when the server is still booting.
	script := fmt.Sprintf(`[ -p "$2" ] || exit %d; printf '%%s\n' "$1" > "$2"`, pipeNotReadyCode)
	exec, err := e.client.ContainerExecCreate(ctx, containerName, container.ExecOptions{
		Cmd:          []string{"sh", "-c", script, "gsx", command, pipe},
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		if client.IsErrNotFound(err) {
			return fmt.Errorf("container %s: %w", containerName, model.ErrNotFound)
		}
		if errdefs.IsConflict(err) {
			return fmt.Errorf("container %s is not running: %w", containerName, model.ErrNotValid)
		}
		return fmt.Errorf("failed to create exec: %w", err)
	}

	attach, err := e.client.ContainerExecAttach(ctx, exec.ID, container.ExecAttachOptions{})
	if err != nil {
		return fmt.Errorf("failed to attach exec: %w", err)
	}
	var stderr bytes.Buffer
	_, copyErr := stdcopy.StdCopy(io.Discard, &stderr, attach.Reader)
	attach.Close()
	if copyErr != nil {
		return fmt.Errorf("failed to read exec output: %w", copyErr)
	}

	inspect, err := e.client.ContainerExecInspect(ctx, exec.ID)
	if err != nil {
		return fmt.Errorf("failed to inspect exec: %w", err)
	}
	switch inspect.ExitCode {
	case 0:
	case pipeNotReadyCode:
		return fmt.Errorf("server console is not ready: %w", model.ErrNotValid)
	default:
		return fmt.Errorf("command write exited with %d: %s", inspect.ExitCode, strings.TrimSpace(stderr.String()))
	}

	e.logger.Debugf("Sent command to %s: %q", containerName, command)
	return nil
}

func stopSeconds(timeout time.Duration) int {
	if timeout <= 0 {
		timeout = sandbox.DefaultStopTimeout
	}
	return int(timeout.Round(time.Second).Seconds())
}
