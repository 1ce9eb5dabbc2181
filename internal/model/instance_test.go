package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/gsx/internal/model"
)

func validConfig() model.InstanceConfig {
	return model.InstanceConfig{
		Name:    "survival",
		Family:  model.FamilyFabric,
		Version: "1.20.4",
		Memory:  model.Memory{MinMB: 1024, MaxMB: 4096},
		Port:    25565,
	}
}

func TestInstanceConfigValidate(t *testing.T) {
	tests := map[string]struct {
		config func() model.InstanceConfig
		expErr bool
	}{
		"A valid config should pass.": {
			config: validConfig,
		},

		"A zero port should be valid (allocated on create).": {
			config: func() model.InstanceConfig {
				c := validConfig()
				c.Port = 0
				return c
			},
		},

		"Missing name should fail.": {
			config: func() model.InstanceConfig {
				c := validConfig()
				c.Name = ""
				return c
			},
			expErr: true,
		},

		"A name with slashes should fail.": {
			config: func() model.InstanceConfig {
				c := validConfig()
				c.Name = "a/b"
				return c
			},
			expErr: true,
		},

		"Unknown family should fail.": {
			config: func() model.InstanceConfig {
				c := validConfig()
				c.Family = "bedrock"
				return c
			},
			expErr: true,
		},

		"Missing version should fail.": {
			config: func() model.InstanceConfig {
				c := validConfig()
				c.Version = " "
				return c
			},
			expErr: true,
		},

		"Max memory lower than min memory should fail.": {
			config: func() model.InstanceConfig {
				c := validConfig()
				c.Memory = model.Memory{MinMB: 2048, MaxMB: 1024}
				return c
			},
			expErr: true,
		},

		"Out of range port should fail.": {
			config: func() model.InstanceConfig {
				c := validConfig()
				c.Port = 70000
				return c
			},
			expErr: true,
		},

		"Negative java override should fail.": {
			config: func() model.InstanceConfig {
				c := validConfig()
				c.Overrides.JavaVersion = -1
				return c
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := test.config()
			err := cfg.Validate()
			if test.expErr {
				assert.ErrorIs(t, err, model.ErrNotValid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseFamily(t *testing.T) {
	f, err := model.ParseFamily(" NeoForge ")
	require.NoError(t, err)
	assert.Equal(t, model.FamilyNeoForge, f)
	assert.True(t, f.Modded())

	f, err = model.ParseFamily("paper")
	require.NoError(t, err)
	assert.False(t, f.Modded())

	_, err = model.ParseFamily("bedrock")
	assert.ErrorIs(t, err, model.ErrNotValid)
}

func TestInstanceStatusCanTransition(t *testing.T) {
	tests := map[string]struct {
		from model.InstanceStatus
		to   model.InstanceStatus
		exp  bool
	}{
		"Created can start.":                 {from: model.InstanceStatusCreated, to: model.InstanceStatusStarting, exp: true},
		"Created can't be running directly.": {from: model.InstanceStatusCreated, to: model.InstanceStatusRunning, exp: false},
		"Starting can crash on fatal boot.":  {from: model.InstanceStatusStarting, to: model.InstanceStatusCrashed, exp: true},
		"Starting can reach running.":        {from: model.InstanceStatusStarting, to: model.InstanceStatusRunning, exp: true},
		"Running can stop gracefully.":       {from: model.InstanceStatusRunning, to: model.InstanceStatusStopping, exp: true},
		"Stopping ends stopped.":             {from: model.InstanceStatusStopping, to: model.InstanceStatusStopped, exp: true},
		"Stopped can be removed.":            {from: model.InstanceStatusStopped, to: model.InstanceStatusRemoved, exp: true},
		"Crashed can be started again.":      {from: model.InstanceStatusCrashed, to: model.InstanceStatusStarting, exp: true},
		"Running can't be removed directly.": {from: model.InstanceStatusRunning, to: model.InstanceStatusRemoved, exp: false},
		"Removed is terminal.":               {from: model.InstanceStatusRemoved, to: model.InstanceStatusStarting, exp: false},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, test.from.CanTransition(test.to))
		})
	}
}
