package docker_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/gsx/internal/boot"
	"github.com/slok/gsx/internal/conventions"
	"github.com/slok/gsx/internal/model"
	"github.com/slok/gsx/internal/sandbox/docker"
	"github.com/slok/gsx/internal/sandbox/docker/dockermock"
	"github.com/slok/gsx/internal/storage/storagemock"
	"github.com/slok/gsx/internal/utils/env"
)

const instanceID = "01HZY6M5V0QJ4X3W2T1R9P8N7K"

func testInstance() model.Instance {
	return model.Instance{
		ID:   instanceID,
		Name: "survival",
		Config: model.InstanceConfig{
			Name:    "survival",
			Family:  model.FamilyFabric,
			Version: "1.20.1",
			Memory:  model.Memory{MinMB: 1024, MaxMB: 4096},
			Port:    25570,
		},
	}
}

func newEngine(t *testing.T, m *dockermock.MockDockerClient, dataDir string) *docker.Engine {
	t.Helper()
	e, err := docker.NewEngine(docker.EngineConfig{
		Client:     m,
		DataDir:    dataDir,
		BootBinary: "/usr/local/lib/gsx/gsboot",
	})
	require.NoError(t, err)
	return e
}

func TestEngineCreate(t *testing.T) {
	tests := map[string]struct {
		mock       func(m *dockermock.MockDockerClient)
		expErr     bool
		expErrIs   error
		expCreated bool
	}{
		"A missing image should be pulled and the container created.": {
			mock: func(m *dockermock.MockDockerClient) {
				m.On("ImageInspect", mock.Anything, docker.DefaultImage).Once().Return(image.InspectResponse{}, errdefs.NotFound(errors.New("no such image")))
				m.On("ImagePull", mock.Anything, docker.DefaultImage, mock.Anything).Once().Return(io.NopCloser(strings.NewReader("{}")), nil)
				m.On("ContainerCreate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, "gsx-01hzy6m5v0qj4x3w2t1r9p8n7k").Once().Return(container.CreateResponse{ID: "c0ffee"}, nil)
			},
			expCreated: true,
		},

		"A present image should not be pulled.": {
			mock: func(m *dockermock.MockDockerClient) {
				m.On("ImageInspect", mock.Anything, docker.DefaultImage).Once().Return(image.InspectResponse{}, nil)
				m.On("ContainerCreate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Once().Return(container.CreateResponse{ID: "c0ffee"}, nil)
			},
			expCreated: true,
		},

		"A pull error should fail the creation.": {
			mock: func(m *dockermock.MockDockerClient) {
				m.On("ImageInspect", mock.Anything, mock.Anything).Once().Return(image.InspectResponse{}, errors.New("missing"))
				m.On("ImagePull", mock.Anything, mock.Anything, mock.Anything).Once().Return(nil, errors.New("registry down"))
			},
			expErr: true,
		},

		"An existing container should fail with already exists.": {
			mock: func(m *dockermock.MockDockerClient) {
				m.On("ImageInspect", mock.Anything, mock.Anything).Once().Return(image.InspectResponse{}, nil)
				m.On("ContainerCreate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Once().Return(container.CreateResponse{}, errdefs.Conflict(errors.New("name in use")))
			},
			expErr:   true,
			expErrIs: model.ErrAlreadyExists,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			dataDir := t.TempDir()
			m := dockermock.NewMockDockerClient(t)
			test.mock(m)
			e := newEngine(t, m, dataDir)

			id, err := e.Create(context.Background(), testInstance())
			if test.expErr {
				require.Error(err)
				if test.expErrIs != nil {
					assert.ErrorIs(err, test.expErrIs)
				}
				return
			}
			require.NoError(err)
			assert.Equal("c0ffee", id)
			assert.DirExists(conventions.InstanceDataDir(dataDir, instanceID))
		})
	}
}

func TestEngineCreateContainerSpec(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	dataDir := t.TempDir()
	m := dockermock.NewMockDockerClient(t)
	m.On("ImageInspect", mock.Anything, "ghcr.io/acme/java:all").Once().Return(image.InspectResponse{}, nil)

	var gotCfg *container.Config
	var gotHost *container.HostConfig
	m.On("ContainerCreate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Once().
		Run(func(args mock.Arguments) {
			gotCfg = args.Get(1).(*container.Config)
			gotHost = args.Get(2).(*container.HostConfig)
		}).
		Return(container.CreateResponse{ID: "c0ffee"}, nil)

	tasks := storagemock.NewMockTaskRepository(t)
	tasks.On("AddTasks", mock.Anything, instanceID, "create", []string{"pull_image", "prepare_data", "create_container"}).Once().Return(nil)
	for i, name := range []string{"pull_image", "prepare_data", "create_container"} {
		tasks.On("NextTask", mock.Anything, instanceID, "create").Once().Return(&model.Task{ID: name, Sequence: i, Name: name}, nil)
		tasks.On("CompleteTask", mock.Anything, name).Once().Return(nil)
	}
	e, err := docker.NewEngine(docker.EngineConfig{
		Client:     m,
		DataDir:    dataDir,
		BootBinary: "/usr/local/lib/gsx/gsboot",
		TaskRepo:   tasks,
	})
	require.NoError(err)

	inst := testInstance()
	inst.Config.Image = "ghcr.io/acme/java:all"
	inst.Config.Env = map[string]string{"GSX_PURGE_CLIENT_ADDONS": "false"}
	_, err = e.Create(context.Background(), inst)
	require.NoError(err)

	require.NotNil(gotCfg)
	assert.Equal("ghcr.io/acme/java:all", gotCfg.Image)
	assert.Equal([]string{conventions.SandboxBootBinary}, []string(gotCfg.Entrypoint))
	assert.Equal(instanceID, gotCfg.Labels[conventions.InstanceIDLabel])
	assert.Contains(gotCfg.ExposedPorts, nat.Port("25565/tcp"))

	gotEnv := env.ParseList(gotCfg.Env)
	assert.Equal("fabric", gotEnv["GSX_FAMILY"])
	assert.Equal("4096M", gotEnv["GSX_MEMORY_MAX"])
	assert.Equal("false", gotEnv["GSX_PURGE_CLIENT_ADDONS"])

	require.NotNil(gotHost)
	assert.Equal([]nat.PortBinding{{HostPort: "25570"}}, gotHost.PortBindings[nat.Port("25565/tcp")])
	assert.Equal(int64(5120*1024*1024), gotHost.Memory)
	assert.Equal([]mount.Mount{
		{Type: mount.TypeBind, Source: conventions.InstanceDataDir(dataDir, instanceID), Target: "/data"},
		{Type: mount.TypeBind, Source: "/usr/local/lib/gsx/gsboot", Target: conventions.SandboxBootBinary, ReadOnly: true},
	}, gotHost.Mounts)
}

func TestEngineStatus(t *testing.T) {
	started := "2024-05-01T10:00:00.123456789Z"

	tests := map[string]struct {
		bootState *model.BootState
		mock      func(m *dockermock.MockDockerClient)
		expState  *model.RuntimeState
		expErr    bool
	}{
		"A missing container should be reported as missing.": {
			mock: func(m *dockermock.MockDockerClient) {
				m.On("ContainerInspect", mock.Anything, mock.Anything).Once().Return(container.InspectResponse{}, errdefs.NotFound(errors.New("no such container")))
			},
			expState: &model.RuntimeState{State: model.ContainerStateMissing},
		},

		"A running container should include the boot state.": {
			bootState: &model.BootState{Phase: model.BootPhaseLaunching, UpdatedAt: time.Unix(1714557600, 0).UTC()},
			mock: func(m *dockermock.MockDockerClient) {
				m.On("ContainerInspect", mock.Anything, "gsx-01hzy6m5v0qj4x3w2t1r9p8n7k").Once().Return(container.InspectResponse{
					ContainerJSONBase: &container.ContainerJSONBase{
						ID:    "c0ffee",
						State: &container.State{Status: "running", StartedAt: started, FinishedAt: "0001-01-01T00:00:00Z"},
					},
				}, nil)
			},
			expState: &model.RuntimeState{
				State:     model.ContainerStateRunning,
				StartedAt: timePtr(time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC)),
				Boot:      &model.BootState{Phase: model.BootPhaseLaunching, UpdatedAt: time.Unix(1714557600, 0).UTC()},
			},
		},

		"An exited container should include the exit code and the boot error.": {
			bootState: &model.BootState{Phase: model.BootPhaseFailed, Step: "resolve", Error: "no launch target", UpdatedAt: time.Unix(1714557600, 0).UTC()},
			mock: func(m *dockermock.MockDockerClient) {
				m.On("ContainerInspect", mock.Anything, mock.Anything).Once().Return(container.InspectResponse{
					ContainerJSONBase: &container.ContainerJSONBase{
						State: &container.State{Status: "exited", ExitCode: 1, StartedAt: started, FinishedAt: started},
					},
				}, nil)
			},
			expState: &model.RuntimeState{
				State:      model.ContainerStateExited,
				ExitCode:   1,
				StartedAt:  timePtr(time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC)),
				FinishedAt: timePtr(time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC)),
				Boot:       &model.BootState{Phase: model.BootPhaseFailed, Step: "resolve", Error: "no launch target", UpdatedAt: time.Unix(1714557600, 0).UTC()},
			},
		},

		"An OOM killed container should report it.": {
			mock: func(m *dockermock.MockDockerClient) {
				m.On("ContainerInspect", mock.Anything, mock.Anything).Once().Return(container.InspectResponse{
					ContainerJSONBase: &container.ContainerJSONBase{
						State: &container.State{Status: "exited", ExitCode: 137, OOMKilled: true},
					},
				}, nil)
			},
			expState: &model.RuntimeState{State: model.ContainerStateExited, ExitCode: 137, Error: "out of memory"},
		},

		"An inspect error should fail.": {
			mock: func(m *dockermock.MockDockerClient) {
				m.On("ContainerInspect", mock.Anything, mock.Anything).Once().Return(container.InspectResponse{}, errors.New("daemon down"))
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			dataDir := t.TempDir()
			if test.bootState != nil {
				require.NoError(t, boot.WriteState(conventions.InstanceDataDir(dataDir, instanceID), *test.bootState))
			}
			m := dockermock.NewMockDockerClient(t)
			test.mock(m)
			e := newEngine(t, m, dataDir)

			st, err := e.Status(context.Background(), instanceID)
			if test.expErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expState, st)
		})
	}
}

func TestEngineStartClearsBootState(t *testing.T) {
	dataDir := t.TempDir()
	instDir := conventions.InstanceDataDir(dataDir, instanceID)
	require.NoError(t, boot.WriteState(instDir, model.BootState{Phase: model.BootPhaseLaunching}))

	m := dockermock.NewMockDockerClient(t)
	m.On("ContainerStart", mock.Anything, "gsx-01hzy6m5v0qj4x3w2t1r9p8n7k", mock.Anything).Once().Return(nil)
	e := newEngine(t, m, dataDir)

	require.NoError(t, e.Start(context.Background(), instanceID))
	_, err := os.Stat(filepath.Join(instDir, boot.StateName))
	assert.True(t, os.IsNotExist(err))
}

func TestEngineStopKill(t *testing.T) {
	tests := map[string]struct {
		mock     func(m *dockermock.MockDockerClient)
		exec     func(e *docker.Engine) error
		expErrIs error
	}{
		"Stop should use the timeout in seconds.": {
			mock: func(m *dockermock.MockDockerClient) {
				m.On("ContainerStop", mock.Anything, mock.Anything, mock.MatchedBy(func(o container.StopOptions) bool {
					return o.Timeout != nil && *o.Timeout == 45
				})).Once().Return(nil)
			},
			exec: func(e *docker.Engine) error { return e.Stop(context.Background(), instanceID, 45*time.Second) },
		},

		"Stop without timeout should use the default.": {
			mock: func(m *dockermock.MockDockerClient) {
				m.On("ContainerStop", mock.Anything, mock.Anything, mock.MatchedBy(func(o container.StopOptions) bool {
					return o.Timeout != nil && *o.Timeout == 30
				})).Once().Return(nil)
			},
			exec: func(e *docker.Engine) error { return e.Stop(context.Background(), instanceID, 0) },
		},

		"Stop on a missing container should fail with not found.": {
			mock: func(m *dockermock.MockDockerClient) {
				m.On("ContainerStop", mock.Anything, mock.Anything, mock.Anything).Once().Return(errdefs.NotFound(errors.New("no such container")))
			},
			exec:     func(e *docker.Engine) error { return e.Stop(context.Background(), instanceID, time.Second) },
			expErrIs: model.ErrNotFound,
		},

		"Kill should send SIGKILL.": {
			mock: func(m *dockermock.MockDockerClient) {
				m.On("ContainerKill", mock.Anything, mock.Anything, "SIGKILL").Once().Return(nil)
			},
			exec: func(e *docker.Engine) error { return e.Kill(context.Background(), instanceID) },
		},

		"Kill on a stopped container should be a no-op.": {
			mock: func(m *dockermock.MockDockerClient) {
				m.On("ContainerKill", mock.Anything, mock.Anything, "SIGKILL").Once().Return(errdefs.Conflict(errors.New("container is not running")))
			},
			exec: func(e *docker.Engine) error { return e.Kill(context.Background(), instanceID) },
		},

		"Remove on a missing container should be a no-op.": {
			mock: func(m *dockermock.MockDockerClient) {
				m.On("ContainerRemove", mock.Anything, mock.Anything, container.RemoveOptions{Force: true}).Once().Return(errdefs.NotFound(errors.New("no such container")))
			},
			exec: func(e *docker.Engine) error { return e.Remove(context.Background(), instanceID) },
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			m := dockermock.NewMockDockerClient(t)
			test.mock(m)
			e := newEngine(t, m, t.TempDir())

			err := test.exec(e)
			if test.expErrIs != nil {
				assert.ErrorIs(t, err, test.expErrIs)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestEngineLogs(t *testing.T) {
	var stream bytes.Buffer
	_, _ = stdcopy.NewStdWriter(&stream, stdcopy.Stdout).Write([]byte("[Server thread/INFO]: Starting minecraft server\n"))
	_, _ = stdcopy.NewStdWriter(&stream, stdcopy.Stderr).Write([]byte("WARN something\r\n"))
	_, _ = stdcopy.NewStdWriter(&stream, stdcopy.Stdout).Write([]byte("[Server thread/INFO]: Done (3.2s)!\n"))

	m := dockermock.NewMockDockerClient(t)
	m.On("ContainerLogs", mock.Anything, mock.Anything, container.LogsOptions{ShowStdout: true, ShowStderr: true, Tail: "50"}).Once().Return(io.NopCloser(&stream), nil)
	e := newEngine(t, m, t.TempDir())

	lines, err := e.Logs(context.Background(), instanceID, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"[Server thread/INFO]: Starting minecraft server",
		"WARN something",
		"[Server thread/INFO]: Done (3.2s)!",
	}, lines)
}

func TestEngineStats(t *testing.T) {
	raw := container.StatsResponse{}
	raw.CPUStats.CPUUsage.TotalUsage = 3_000_000
	raw.CPUStats.SystemUsage = 20_000_000
	raw.CPUStats.OnlineCPUs = 4
	raw.PreCPUStats.CPUUsage.TotalUsage = 1_000_000
	raw.PreCPUStats.SystemUsage = 10_000_000
	raw.MemoryStats.Usage = 600
	raw.MemoryStats.Limit = 1000
	raw.MemoryStats.Stats = map[string]uint64{"inactive_file": 100}
	raw.Networks = map[string]container.NetworkStats{
		"eth0": {RxBytes: 10, TxBytes: 20},
		"eth1": {RxBytes: 1, TxBytes: 2},
	}
	body, err := json.Marshal(raw)
	require.NoError(t, err)

	m := dockermock.NewMockDockerClient(t)
	m.On("ContainerStats", mock.Anything, mock.Anything, false).Once().Return(container.StatsResponseReader{Body: io.NopCloser(bytes.NewReader(body))}, nil)
	e := newEngine(t, m, t.TempDir())

	stats, err := e.Stats(context.Background(), instanceID)
	require.NoError(t, err)
	assert.Equal(t, &model.Stats{
		CPUPercent:       80,
		MemoryUsedBytes:  500,
		MemoryLimitBytes: 1000,
		NetInBytes:       11,
		NetOutBytes:      22,
	}, stats)
}

func TestEngineSendCommand(t *testing.T) {
	tests := map[string]struct {
		command  string
		mock     func(m *dockermock.MockDockerClient)
		expErr   bool
		expErrIs error
	}{
		"A multi line command should be rejected.": {
			command:  "say hi\nstop",
			mock:     func(m *dockermock.MockDockerClient) {},
			expErrIs: model.ErrNotValid,
		},

		"A command should be written into the console pipe.": {
			command: "say hello world",
			mock: func(m *dockermock.MockDockerClient) {
				m.On("ContainerExecCreate", mock.Anything, "gsx-01hzy6m5v0qj4x3w2t1r9p8n7k", mock.MatchedBy(func(o container.ExecOptions) bool {
					n := len(o.Cmd)
					return n == 6 && o.Cmd[0] == "sh" && o.Cmd[4] == "say hello world" && o.Cmd[5] == "/data/.gsx/console.pipe"
				})).Once().Return(container.ExecCreateResponse{ID: "exec-1"}, nil)
				m.On("ContainerExecAttach", mock.Anything, "exec-1", mock.Anything).Once().Return(hijacked(t), nil)
				m.On("ContainerExecInspect", mock.Anything, "exec-1").Once().Return(container.ExecInspect{ExitCode: 0}, nil)
			},
		},

		"A server without console pipe should fail as not ready.": {
			command: "list",
			mock: func(m *dockermock.MockDockerClient) {
				m.On("ContainerExecCreate", mock.Anything, mock.Anything, mock.MatchedBy(func(o container.ExecOptions) bool {
					return len(o.Cmd) == 6 && strings.HasPrefix(o.Cmd[2], `[ -p "$2" ] || exit 3;`)
				})).Once().Return(container.ExecCreateResponse{ID: "exec-1"}, nil)
				m.On("ContainerExecAttach", mock.Anything, mock.Anything, mock.Anything).Once().Return(hijacked(t), nil)
				m.On("ContainerExecInspect", mock.Anything, mock.Anything).Once().Return(container.ExecInspect{ExitCode: 3}, nil)
			},
			expErrIs: model.ErrNotValid,
		},

		"A stopped container should fail as not valid.": {
			command: "list",
			mock: func(m *dockermock.MockDockerClient) {
				m.On("ContainerExecCreate", mock.Anything, mock.Anything, mock.Anything).Once().Return(container.ExecCreateResponse{}, errdefs.Conflict(errors.New("container is not running")))
			},
			expErrIs: model.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			m := dockermock.NewMockDockerClient(t)
			test.mock(m)
			e := newEngine(t, m, t.TempDir())

			err := e.SendCommand(context.Background(), instanceID, test.command)
			switch {
			case test.expErrIs != nil:
				assert.ErrorIs(t, err, test.expErrIs)
			case test.expErr:
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestEngineCheck(t *testing.T) {
	m := dockermock.NewMockDockerClient(t)
	m.On("Ping", mock.Anything).Once().Return(types.Ping{APIVersion: "1.47", OSType: "linux"}, nil)
	m.On("ImageInspect", mock.Anything, docker.DefaultImage).Once().Return(image.InspectResponse{}, errors.New("missing"))

	bin := filepath.Join(t.TempDir(), "gsboot")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))
	e, err := docker.NewEngine(docker.EngineConfig{Client: m, DataDir: t.TempDir(), BootBinary: bin})
	require.NoError(t, err)

	got := map[string]model.CheckStatus{}
	for _, r := range e.Check(context.Background()) {
		got[r.ID] = r.Status
	}
	assert.Equal(t, map[string]model.CheckStatus{
		"docker_daemon": model.CheckStatusOK,
		"sandbox_image": model.CheckStatusWarning,
		"boot_binary":   model.CheckStatusOK,
		"data_dir":      model.CheckStatusOK,
	}, got)
}

func hijacked(t *testing.T) types.HijackedResponse {
	c1, c2 := net.Pipe()
	t.Cleanup(func() { c2.Close() })
	return types.HijackedResponse{Conn: c1, Reader: bufio.NewReader(strings.NewReader(""))}
}

func timePtr(t time.Time) *time.Time { return &t }
