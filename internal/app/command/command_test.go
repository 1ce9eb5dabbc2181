package command_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/gsx/internal/app/command"
	"github.com/slok/gsx/internal/log"
	"github.com/slok/gsx/internal/metrics/metricsmock"
	"github.com/slok/gsx/internal/model"
	"github.com/slok/gsx/internal/sandbox/sandboxmock"
	"github.com/slok/gsx/internal/storage/storagemock"
)

func TestService_Run(t *testing.T) {
	launched := func() *model.RuntimeState {
		return &model.RuntimeState{State: model.ContainerStateRunning, Boot: &model.BootState{Phase: model.BootPhaseLaunching}}
	}
	running := func() *model.Instance {
		return &model.Instance{ID: "id1", Name: "lobby", Status: model.InstanceStatusRunning}
	}

	tests := map[string]struct {
		req          command.Request
		mockRepo     func(m *storagemock.MockRepository)
		mockEngine   func(m *sandboxmock.MockEngine)
		mockRecorder func(m *metricsmock.MockRecorder)
		expErrIs     error
		expErr       bool
	}{
		"A command on a running instance should be sent trimmed.": {
			req: command.Request{NameOrID: "lobby", Command: "  say hello  "},
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetInstanceByName", mock.Anything, "lobby").Once().Return(running(), nil)
			},
			mockEngine: func(m *sandboxmock.MockEngine) {
				m.On("Status", mock.Anything, "id1").Once().Return(launched(), nil)
				m.On("SendCommand", mock.Anything, "id1", "say hello").Once().Return(nil)
			},
			mockRecorder: func(m *metricsmock.MockRecorder) {
				m.On("IncConsoleCommand", mock.Anything, true).Once().Return()
				m.On("ObserveOperation", mock.Anything, "command", true, mock.Anything).Once().Return()
			},
		},

		"An empty command should fail as not valid.": {
			req:        command.Request{NameOrID: "lobby", Command: "   "},
			mockRepo:   func(m *storagemock.MockRepository) {},
			mockEngine: func(m *sandboxmock.MockEngine) {},
			mockRecorder: func(m *metricsmock.MockRecorder) {
				m.On("ObserveOperation", mock.Anything, "command", false, mock.Anything).Once().Return()
			},
			expErr:   true,
			expErrIs: model.ErrNotValid,
		},

		"A multi line command should fail as not valid.": {
			req:        command.Request{NameOrID: "lobby", Command: "say hi\nstop"},
			mockRepo:   func(m *storagemock.MockRepository) {},
			mockEngine: func(m *sandboxmock.MockEngine) {},
			mockRecorder: func(m *metricsmock.MockRecorder) {
				m.On("ObserveOperation", mock.Anything, "command", false, mock.Anything).Once().Return()
			},
			expErr:   true,
			expErrIs: model.ErrNotValid,
		},

		"A command on a booting instance should fail as not valid.": {
			req: command.Request{NameOrID: "lobby", Command: "list"},
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetInstanceByName", mock.Anything, "lobby").Once().Return(&model.Instance{ID: "id1", Name: "lobby", Status: model.InstanceStatusStarting}, nil)
			},
			mockEngine: func(m *sandboxmock.MockEngine) {
				m.On("Status", mock.Anything, "id1").Once().Return(&model.RuntimeState{State: model.ContainerStateRunning}, nil)
			},
			mockRecorder: func(m *metricsmock.MockRecorder) {
				m.On("ObserveOperation", mock.Anything, "command", false, mock.Anything).Once().Return()
			},
			expErr:   true,
			expErrIs: model.ErrNotValid,
		},

		"A command on a stopped instance should fail as not valid.": {
			req: command.Request{NameOrID: "lobby", Command: "list"},
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetInstanceByName", mock.Anything, "lobby").Once().Return(&model.Instance{ID: "id1", Name: "lobby", Status: model.InstanceStatusStopped}, nil)
			},
			mockEngine: func(m *sandboxmock.MockEngine) {},
			mockRecorder: func(m *metricsmock.MockRecorder) {
				m.On("ObserveOperation", mock.Anything, "command", false, mock.Anything).Once().Return()
			},
			expErr:   true,
			expErrIs: model.ErrNotValid,
		},

		"An engine error should fail and be recorded.": {
			req: command.Request{NameOrID: "lobby", Command: "list"},
			mockRepo: func(m *storagemock.MockRepository) {
				m.On("GetInstanceByName", mock.Anything, "lobby").Once().Return(running(), nil)
			},
			mockEngine: func(m *sandboxmock.MockEngine) {
				m.On("Status", mock.Anything, "id1").Once().Return(launched(), nil)
				m.On("SendCommand", mock.Anything, "id1", "list").Once().Return(errors.New("pipe closed"))
			},
			mockRecorder: func(m *metricsmock.MockRecorder) {
				m.On("IncConsoleCommand", mock.Anything, false).Once().Return()
				m.On("ObserveOperation", mock.Anything, "command", false, mock.Anything).Once().Return()
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			mRepo := storagemock.NewMockRepository(t)
			mEngine := sandboxmock.NewMockEngine(t)
			mRecorder := metricsmock.NewMockRecorder(t)
			test.mockRepo(mRepo)
			test.mockEngine(mEngine)
			test.mockRecorder(mRecorder)

			svc, err := command.NewService(command.ServiceConfig{
				Engine:          mEngine,
				Repository:      mRepo,
				MetricsRecorder: mRecorder,
				Logger:          log.Noop,
			})
			require.NoError(t, err)

			err = svc.Run(context.Background(), test.req)
			if test.expErr {
				require.Error(t, err)
				if test.expErrIs != nil {
					assert.ErrorIs(t, err, test.expErrIs)
				}
				return
			}
			assert.NoError(t, err)
		})
	}
}
