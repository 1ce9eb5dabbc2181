package status_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/gsx/internal/app/status"
	"github.com/slok/gsx/internal/log"
	"github.com/slok/gsx/internal/model"
	"github.com/slok/gsx/internal/sandbox/sandboxmock"
	"github.com/slok/gsx/internal/storage/storagemock"
)

func TestNewService(t *testing.T) {
	tests := map[string]struct {
		cfg    status.ServiceConfig
		expErr bool
	}{
		"valid config should create service": {
			cfg: status.ServiceConfig{
				Engine:     &sandboxmock.MockEngine{},
				Repository: &storagemock.MockRepository{},
				Logger:     log.Noop,
			},
		},
		"missing engine should fail": {
			cfg:    status.ServiceConfig{Repository: &storagemock.MockRepository{}},
			expErr: true,
		},
		"missing repository should fail": {
			cfg:    status.ServiceConfig{Engine: &sandboxmock.MockEngine{}},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := status.NewService(test.cfg)
			if test.expErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestService_Run(t *testing.T) {
	const id = "01H2QWERTYASDFGZXCVBNMLKJH"

	tests := map[string]struct {
		stored     model.Instance
		mockRepo   func(m *storagemock.MockRepository)
		runtime    *model.RuntimeState
		runtimeErr error
		expInst    model.Instance
		expErr     bool
	}{
		"a booting sandbox should report starting": {
			stored:   model.Instance{ID: id, Name: "my-server", Status: model.InstanceStatusStarting},
			mockRepo: func(m *storagemock.MockRepository) {},
			runtime:  &model.RuntimeState{State: model.ContainerStateRunning, Boot: &model.BootState{Phase: model.BootPhaseBooting, Step: "installer"}},
			expInst:  model.Instance{ID: id, Name: "my-server", Status: model.InstanceStatusStarting},
		},
		"a launched server should report running": {
			stored: model.Instance{ID: id, Name: "my-server", Status: model.InstanceStatusStarting},
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("UpdateInstance", mock.Anything, model.Instance{ID: id, Name: "my-server", Status: model.InstanceStatusRunning}).Once().Return(nil)
			},
			runtime: &model.RuntimeState{State: model.ContainerStateRunning, Boot: &model.BootState{Phase: model.BootPhaseLaunching}},
			expInst: model.Instance{ID: id, Name: "my-server", Status: model.InstanceStatusRunning},
		},
		"a fatal boot should report crashed with the boot error": {
			stored: model.Instance{ID: id, Name: "my-server", Status: model.InstanceStatusStarting},
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("UpdateInstance", mock.Anything, mock.Anything).Once().Return(nil)
			},
			runtime: &model.RuntimeState{State: model.ContainerStateExited, ExitCode: 1, Boot: &model.BootState{Phase: model.BootPhaseFailed, Error: "no launch target found"}},
			expInst: model.Instance{ID: id, Name: "my-server", Status: model.InstanceStatusCrashed, ExitCode: 1, Error: "boot failed: no launch target found"},
		},
		"an engine error should fail": {
			stored:     model.Instance{ID: id, Name: "my-server", Status: model.InstanceStatusRunning},
			mockRepo:   func(m *storagemock.MockRepository) {},
			runtimeErr: errors.New("daemon down"),
			expErr:     true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			mRepo := storagemock.NewMockRepository(t)
			mEngine := sandboxmock.NewMockEngine(t)
			mRepo.On("GetInstanceByName", mock.Anything, "my-server").Once().Return(&test.stored, nil)
			test.mockRepo(mRepo)
			mEngine.On("Status", mock.Anything, id).Once().Return(test.runtime, test.runtimeErr)

			svc, err := status.NewService(status.ServiceConfig{Engine: mEngine, Repository: mRepo})
			require.NoError(t, err)

			res, err := svc.Run(context.Background(), status.Request{NameOrID: "my-server"})
			if test.expErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			gotInst := res.Instance
			gotInst.StoppedAt = nil
			assert.Equal(t, test.expInst, gotInst)
			assert.Equal(t, test.runtime, res.Runtime)
		})
	}
}
