package io

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/gsx/internal/model"
)

func TestInstanceYAMLRepositoryGetConfig(t *testing.T) {
	tests := map[string]struct {
		data   string
		expCfg model.InstanceConfig
		expErr bool
	}{
		"A complete spec should load.": {
			data: `
name: survival
family: fabric
version: 1.20.1
memory: {min: 1G, max: 4G}
port: 25570
image: ghcr.io/acme/java:all
java:
  version: 17
  path: /opt/java/17/bin/java
  args: ["-XX:+UseG1GC"]
launch_artifact: custom-launcher.jar
env:
  GSX_PURGE_CLIENT_ADDONS: "false"
`,
			expCfg: model.InstanceConfig{
				Name:    "survival",
				Family:  model.FamilyFabric,
				Version: "1.20.1",
				Memory:  model.Memory{MinMB: 1024, MaxMB: 4096},
				Port:    25570,
				Image:   "ghcr.io/acme/java:all",
				Overrides: model.BootOverrides{
					JavaVersion:    17,
					JavaPath:       "/opt/java/17/bin/java",
					LaunchArtifact: "custom-launcher.jar",
					JVMArgs:        []string{"-XX:+UseG1GC"},
				},
				Env: map[string]string{"GSX_PURGE_CLIENT_ADDONS": "false"},
			},
		},

		"A minimal spec should use the defaults.": {
			data: "name: lobby\nfamily: paper\n",
			expCfg: model.InstanceConfig{
				Name:    "lobby",
				Family:  model.FamilyPaper,
				Version: "latest",
				Memory:  model.Memory{MinMB: 1024, MaxMB: 1024},
			},
		},

		"Memory without unit should be megabytes.": {
			data: "name: lobby\nfamily: paper\nmemory: {min: 512, max: 2048}\n",
			expCfg: model.InstanceConfig{
				Name:    "lobby",
				Family:  model.FamilyPaper,
				Version: "latest",
				Memory:  model.Memory{MinMB: 512, MaxMB: 2048},
			},
		},

		"An unknown family should fail.": {
			data:   "name: lobby\nfamily: bukkit\n",
			expErr: true,
		},

		"A missing name should fail.": {
			data:   "family: paper\n",
			expErr: true,
		},

		"Max memory lower than min should fail.": {
			data:   "name: lobby\nfamily: paper\nmemory: {min: 4G, max: 1G}\n",
			expErr: true,
		},

		"Invalid memory should fail.": {
			data:   "name: lobby\nfamily: paper\nmemory: {min: lots}\n",
			expErr: true,
		},

		"Invalid YAML should fail.": {
			data:   "name: [lobby\n",
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			repo := NewInstanceYAMLRepository(fstest.MapFS{
				"instance.yaml": &fstest.MapFile{Data: []byte(test.data)},
			})

			cfg, err := repo.GetConfig(context.Background(), "instance.yaml")
			if test.expErr {
				assert.Error(err)
				return
			}
			require.NoError(err)
			assert.Equal(test.expCfg, cfg)
		})
	}
}

func TestInstanceYAMLRepositoryMissingFile(t *testing.T) {
	repo := NewInstanceYAMLRepository(fstest.MapFS{})
	_, err := repo.GetConfig(context.Background(), "missing.yaml")
	assert.Error(t, err)
}
