package create_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/gsx/internal/app/create"
	"github.com/slok/gsx/internal/log"
	"github.com/slok/gsx/internal/model"
	"github.com/slok/gsx/internal/sandbox/sandboxmock"
	"github.com/slok/gsx/internal/storage/storagemock"
)

func TestNewService(t *testing.T) {
	tests := map[string]struct {
		cfg    create.ServiceConfig
		expErr bool
		errMsg string
	}{
		"Valid config with all fields": {
			cfg: create.ServiceConfig{
				Engine:     &sandboxmock.MockEngine{},
				Repository: &storagemock.MockRepository{},
				Logger:     log.Noop,
			},
			expErr: false,
		},
		"Valid config without logger uses Noop": {
			cfg: create.ServiceConfig{
				Engine:     &sandboxmock.MockEngine{},
				Repository: &storagemock.MockRepository{},
			},
			expErr: false,
		},
		"Missing engine returns error": {
			cfg: create.ServiceConfig{
				Repository: &storagemock.MockRepository{},
			},
			expErr: true,
			errMsg: "engine is required",
		},
		"Missing repository returns error": {
			cfg: create.ServiceConfig{
				Engine: &sandboxmock.MockEngine{},
			},
			expErr: true,
			errMsg: "repository is required",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			svc, err := create.NewService(tt.cfg)

			if tt.expErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Nil(t, svc)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func validConfig(port int) model.InstanceConfig {
	return model.InstanceConfig{
		Name:    "survival",
		Family:  model.FamilyPaper,
		Version: "1.20.4",
		Memory:  model.Memory{MinMB: 1024, MaxMB: 2048},
		Port:    port,
	}
}

func instanceOnPort(name string, port int) model.Instance {
	return model.Instance{Name: name, Config: model.InstanceConfig{Name: name, Port: port}}
}

func TestServiceCreate(t *testing.T) {
	tests := map[string]struct {
		config      model.InstanceConfig
		setupMocks  func(eng *sandboxmock.MockEngine, repo *storagemock.MockRepository)
		expErr      bool
		expErrIs    error
		errMsg      string
		validateRes func(t *testing.T, inst *model.Instance)
	}{
		"Successful creation should allocate the first free port.": {
			config: validConfig(0),
			setupMocks: func(eng *sandboxmock.MockEngine, repo *storagemock.MockRepository) {
				repo.On("GetInstanceByName", mock.Anything, "survival").Once().Return(nil, model.ErrNotFound)
				repo.On("ListInstances", mock.Anything).Once().Return([]model.Instance{
					instanceOnPort("a", 25565),
					instanceOnPort("b", 25567),
				}, nil)

				eng.On("Create", mock.Anything, mock.MatchedBy(func(i model.Instance) bool {
					return i.ID != "" && i.Config.Port == 25566 && i.Status == model.InstanceStatusCreated
				})).Once().Return("c0ffee", nil)

				repo.On("CreateInstance", mock.Anything, mock.MatchedBy(func(i model.Instance) bool {
					return i.ContainerID == "c0ffee" && i.Name == "survival" && i.Config.Port == 25566
				})).Once().Return(nil)
			},
			validateRes: func(t *testing.T, inst *model.Instance) {
				assert.Len(t, inst.ID, 26)
				assert.Equal(t, "survival", inst.Name)
				assert.Equal(t, model.InstanceStatusCreated, inst.Status)
				assert.Equal(t, 25566, inst.Config.Port)
				assert.Equal(t, "c0ffee", inst.ContainerID)
				assert.False(t, inst.CreatedAt.IsZero())
			},
		},

		"An explicit free port should be kept.": {
			config: validConfig(30000),
			setupMocks: func(eng *sandboxmock.MockEngine, repo *storagemock.MockRepository) {
				repo.On("GetInstanceByName", mock.Anything, "survival").Once().Return(nil, model.ErrNotFound)
				repo.On("ListInstances", mock.Anything).Once().Return([]model.Instance{instanceOnPort("a", 25565)}, nil)
				eng.On("Create", mock.Anything, mock.Anything).Once().Return("c0ffee", nil)
				repo.On("CreateInstance", mock.Anything, mock.Anything).Once().Return(nil)
			},
			validateRes: func(t *testing.T, inst *model.Instance) {
				assert.Equal(t, 30000, inst.Config.Port)
			},
		},

		"An explicit port used by another instance should fail.": {
			config: validConfig(25565),
			setupMocks: func(eng *sandboxmock.MockEngine, repo *storagemock.MockRepository) {
				repo.On("GetInstanceByName", mock.Anything, "survival").Once().Return(nil, model.ErrNotFound)
				repo.On("ListInstances", mock.Anything).Once().Return([]model.Instance{instanceOnPort("lobby", 25565)}, nil)
			},
			expErr:   true,
			expErrIs: model.ErrAlreadyExists,
			errMsg:   `port 25565 is already used by instance "lobby"`,
		},

		"Name conflict returns error": {
			config: validConfig(0),
			setupMocks: func(eng *sandboxmock.MockEngine, repo *storagemock.MockRepository) {
				repo.On("GetInstanceByName", mock.Anything, "survival").Once().Return(&model.Instance{ID: "01HRW9YZTEST0000000000002", Name: "survival"}, nil)
			},
			expErr:   true,
			expErrIs: model.ErrAlreadyExists,
			errMsg:   "already exists",
		},

		"Missing name in config returns validation error": {
			config: func() model.InstanceConfig {
				c := validConfig(0)
				c.Name = ""
				return c
			}(),
			setupMocks: func(eng *sandboxmock.MockEngine, repo *storagemock.MockRepository) {},
			expErr:     true,
			expErrIs:   model.ErrNotValid,
			errMsg:     "invalid config",
		},

		"Unknown family returns validation error": {
			config: func() model.InstanceConfig {
				c := validConfig(0)
				c.Family = "bukkit"
				return c
			}(),
			setupMocks: func(eng *sandboxmock.MockEngine, repo *storagemock.MockRepository) {},
			expErr:     true,
			expErrIs:   model.ErrNotValid,
			errMsg:     "invalid config",
		},

		"Max memory lower than min memory returns validation error": {
			config: func() model.InstanceConfig {
				c := validConfig(0)
				c.Memory = model.Memory{MinMB: 4096, MaxMB: 1024}
				return c
			}(),
			setupMocks: func(eng *sandboxmock.MockEngine, repo *storagemock.MockRepository) {},
			expErr:     true,
			expErrIs:   model.ErrNotValid,
			errMsg:     "invalid config",
		},

		"Engine error returns error": {
			config: validConfig(0),
			setupMocks: func(eng *sandboxmock.MockEngine, repo *storagemock.MockRepository) {
				repo.On("GetInstanceByName", mock.Anything, "survival").Once().Return(nil, model.ErrNotFound)
				repo.On("ListInstances", mock.Anything).Once().Return(nil, nil)
				eng.On("Create", mock.Anything, mock.Anything).Once().Return("", errors.New("image pull failed"))
			},
			expErr: true,
			errMsg: "could not create instance sandbox",
		},

		"Repository save error should remove the created sandbox.": {
			config: validConfig(0),
			setupMocks: func(eng *sandboxmock.MockEngine, repo *storagemock.MockRepository) {
				repo.On("GetInstanceByName", mock.Anything, "survival").Once().Return(nil, model.ErrNotFound)
				repo.On("ListInstances", mock.Anything).Once().Return(nil, nil)
				eng.On("Create", mock.Anything, mock.Anything).Once().Return("c0ffee", nil)
				repo.On("CreateInstance", mock.Anything, mock.Anything).Once().Return(errors.New("database error"))
				eng.On("Remove", mock.Anything, mock.Anything).Once().Return(nil)
			},
			expErr: true,
			errMsg: "could not save instance",
		},

		"Repository check error returns error": {
			config: validConfig(0),
			setupMocks: func(eng *sandboxmock.MockEngine, repo *storagemock.MockRepository) {
				repo.On("GetInstanceByName", mock.Anything, "survival").Once().Return(nil, errors.New("database connection error"))
			},
			expErr: true,
			errMsg: "could not check name uniqueness",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			mockEngine := sandboxmock.NewMockEngine(t)
			mockRepo := storagemock.NewMockRepository(t)
			tt.setupMocks(mockEngine, mockRepo)

			svc, err := create.NewService(create.ServiceConfig{
				Engine:     mockEngine,
				Repository: mockRepo,
				Logger:     log.Noop,
			})
			require.NoError(t, err)

			result, err := svc.Create(context.Background(), create.CreateOptions{
				Config: tt.config,
			})

			if tt.expErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				if tt.expErrIs != nil {
					assert.ErrorIs(t, err, tt.expErrIs)
				}
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				if tt.validateRes != nil {
					tt.validateRes(t, result)
				}
			}
		})
	}
}
