package fake_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/gsx/internal/model"
	"github.com/slok/gsx/internal/sandbox/fake"
	"github.com/slok/gsx/internal/storage/storagemock"
)

func testInstance(id string) model.Instance {
	return model.Instance{
		ID:   id,
		Name: "lobby",
		Config: model.InstanceConfig{
			Name:    "lobby",
			Family:  model.FamilyPaper,
			Version: "1.21.1",
			Memory:  model.Memory{MinMB: 1024, MaxMB: 2048},
			Port:    25566,
		},
	}
}

func TestEngineLifecycle(t *testing.T) {
	tests := map[string]struct {
		actions func(ctx context.Context, t *testing.T, eng *fake.Engine)
	}{
		"A created sandbox should be reported as created.": {
			actions: func(ctx context.Context, t *testing.T, eng *fake.Engine) {
				ref, err := eng.Create(ctx, testInstance("i1"))
				require.NoError(t, err)
				assert.Equal(t, "fake-i1", ref)

				st, err := eng.Status(ctx, "i1")
				require.NoError(t, err)
				assert.Equal(t, model.ContainerStateCreated, st.State)
				assert.Nil(t, st.Boot)
			},
		},

		"Creating twice the same sandbox should fail.": {
			actions: func(ctx context.Context, t *testing.T, eng *fake.Engine) {
				_, err := eng.Create(ctx, testInstance("i1"))
				require.NoError(t, err)
				_, err = eng.Create(ctx, testInstance("i1"))
				assert.ErrorIs(t, err, model.ErrAlreadyExists)
			},
		},

		"A started sandbox should be running with a launched server.": {
			actions: func(ctx context.Context, t *testing.T, eng *fake.Engine) {
				_, err := eng.Create(ctx, testInstance("i1"))
				require.NoError(t, err)
				require.NoError(t, eng.Start(ctx, "i1"))
				require.NoError(t, eng.Start(ctx, "i1"))

				st, err := eng.Status(ctx, "i1")
				require.NoError(t, err)
				assert.Equal(t, model.ContainerStateRunning, st.State)
				require.NotNil(t, st.Boot)
				assert.Equal(t, model.BootPhaseLaunching, st.Boot.Phase)
				assert.NotNil(t, st.StartedAt)

				logs, err := eng.Logs(ctx, "i1", 1)
				require.NoError(t, err)
				assert.Equal(t, []string{`[Server thread/INFO]: Done (0.001s)! For help, type "help"`}, logs)
			},
		},

		"A stopped sandbox should exit with code 0.": {
			actions: func(ctx context.Context, t *testing.T, eng *fake.Engine) {
				_, err := eng.Create(ctx, testInstance("i1"))
				require.NoError(t, err)
				require.NoError(t, eng.Start(ctx, "i1"))
				require.NoError(t, eng.Stop(ctx, "i1", time.Second))

				st, err := eng.Status(ctx, "i1")
				require.NoError(t, err)
				assert.Equal(t, model.ContainerStateExited, st.State)
				assert.Equal(t, 0, st.ExitCode)
				assert.NotNil(t, st.FinishedAt)
			},
		},

		"A killed sandbox should exit with code 137.": {
			actions: func(ctx context.Context, t *testing.T, eng *fake.Engine) {
				_, err := eng.Create(ctx, testInstance("i1"))
				require.NoError(t, err)
				require.NoError(t, eng.Start(ctx, "i1"))
				require.NoError(t, eng.Kill(ctx, "i1"))

				st, err := eng.Status(ctx, "i1")
				require.NoError(t, err)
				assert.Equal(t, model.ContainerStateExited, st.State)
				assert.Equal(t, 137, st.ExitCode)
			},
		},

		"A boot failure should be reported in the boot state.": {
			actions: func(ctx context.Context, t *testing.T, eng *fake.Engine) {
				_, err := eng.Create(ctx, testInstance("i1"))
				require.NoError(t, err)
				require.NoError(t, eng.Start(ctx, "i1"))
				require.NoError(t, eng.Crash("i1", 1, "no launch target"))

				st, err := eng.Status(ctx, "i1")
				require.NoError(t, err)
				assert.Equal(t, model.ContainerStateExited, st.State)
				assert.Equal(t, 1, st.ExitCode)
				require.NotNil(t, st.Boot)
				assert.Equal(t, model.BootPhaseFailed, st.Boot.Phase)
				assert.Equal(t, "no launch target", st.Boot.Error)
			},
		},

		"A removed sandbox should be missing.": {
			actions: func(ctx context.Context, t *testing.T, eng *fake.Engine) {
				_, err := eng.Create(ctx, testInstance("i1"))
				require.NoError(t, err)
				require.NoError(t, eng.Remove(ctx, "i1"))
				require.NoError(t, eng.Remove(ctx, "i1"))

				st, err := eng.Status(ctx, "i1")
				require.NoError(t, err)
				assert.Equal(t, model.ContainerStateMissing, st.State)
			},
		},

		"Operating a missing sandbox should fail with not found.": {
			actions: func(ctx context.Context, t *testing.T, eng *fake.Engine) {
				assert.ErrorIs(t, eng.Stop(ctx, "missing", time.Second), model.ErrNotFound)
				assert.ErrorIs(t, eng.Kill(ctx, "missing"), model.ErrNotFound)
				_, err := eng.Logs(ctx, "missing", 0)
				assert.ErrorIs(t, err, model.ErrNotFound)
			},
		},

		"Starting a sandbox unknown to the engine should adopt it.": {
			actions: func(ctx context.Context, t *testing.T, eng *fake.Engine) {
				require.NoError(t, eng.Start(ctx, "i9"))

				st, err := eng.Status(ctx, "i9")
				require.NoError(t, err)
				assert.Equal(t, model.ContainerStateRunning, st.State)
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			eng, err := fake.NewEngine(fake.EngineConfig{})
			require.NoError(t, err)

			test.actions(context.Background(), t, eng)
		})
	}
}

func TestEngineSendCommand(t *testing.T) {
	tests := map[string]struct {
		start   bool
		players []string
		command string
		expErr  error
		expLast string
	}{
		"A command on a stopped sandbox should fail.": {
			command: "list",
			expErr:  model.ErrNotValid,
		},

		"A multi line command should fail.": {
			start:   true,
			command: "say a\nstop",
			expErr:  model.ErrNotValid,
		},

		"The list command should report the online players.": {
			start:   true,
			players: []string{"alex", "steve"},
			command: "list",
			expLast: "[Server thread/INFO]: There are 2 of a max of 20 players online: alex, steve",
		},

		"Other commands should be recorded.": {
			start:   true,
			command: "say hi",
			expLast: "[Server thread/INFO]: Done (0.001s)! For help, type \"help\"",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			eng, err := fake.NewEngine(fake.EngineConfig{})
			require.NoError(t, err)
			_, err = eng.Create(ctx, testInstance("i1"))
			require.NoError(t, err)
			if test.start {
				require.NoError(t, eng.Start(ctx, "i1"))
			}
			for _, p := range test.players {
				require.NoError(t, eng.Join("i1", p))
			}

			err = eng.SendCommand(ctx, "i1", test.command)
			if test.expErr != nil {
				assert.ErrorIs(t, err, test.expErr)
				assert.Empty(t, eng.Commands("i1"))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{test.command}, eng.Commands("i1"))

			logs, err := eng.Logs(ctx, "i1", 1)
			require.NoError(t, err)
			assert.Equal(t, []string{test.expLast}, logs)
		})
	}
}

func TestEngineStats(t *testing.T) {
	ctx := context.Background()
	eng, err := fake.NewEngine(fake.EngineConfig{})
	require.NoError(t, err)
	_, err = eng.Create(ctx, testInstance("i1"))
	require.NoError(t, err)

	stats, err := eng.Stats(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, &model.Stats{}, stats)

	require.NoError(t, eng.Start(ctx, "i1"))
	stats, err = eng.Stats(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2048*1024*1024), stats.MemoryLimitBytes)
	assert.Equal(t, uint64(1024*1024*1024), stats.MemoryUsedBytes)
}

func TestEngineTasks(t *testing.T) {
	ctx := context.Background()
	tasks := storagemock.NewMockTaskRepository(t)
	tasks.On("AddTasks", mock.Anything, "i1", "create", []string{"create_container"}).Once().Return(nil)
	tasks.On("NextTask", mock.Anything, "i1", "create").Once().Return(&model.Task{ID: "t1", Name: "create_container"}, nil)
	tasks.On("CompleteTask", mock.Anything, "t1").Once().Return(nil)
	tasks.On("AddTasks", mock.Anything, "i1", "remove", []string{"remove_container"}).Once().Return(nil)
	tasks.On("NextTask", mock.Anything, "i1", "remove").Once().Return(&model.Task{ID: "t2", Name: "remove_container"}, nil)
	tasks.On("CompleteTask", mock.Anything, "t2").Once().Return(nil)
	tasks.On("ClearInstance", mock.Anything, "i1").Once().Return(nil)

	eng, err := fake.NewEngine(fake.EngineConfig{TaskRepo: tasks})
	require.NoError(t, err)

	_, err = eng.Create(ctx, testInstance("i1"))
	require.NoError(t, err)
	require.NoError(t, eng.Remove(ctx, "i1"))
}
