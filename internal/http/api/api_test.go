package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/gsx/internal/http/api"
	"github.com/slok/gsx/internal/log"
	gsxprometheus "github.com/slok/gsx/internal/metrics/prometheus"
	"github.com/slok/gsx/internal/model"
	"github.com/slok/gsx/internal/sandbox/fake"
	"github.com/slok/gsx/internal/sandbox/sandboxmock"
	"github.com/slok/gsx/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	engine, err := fake.NewEngine(fake.EngineConfig{})
	require.NoError(t, err)
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)
	reg := prometheus.NewRegistry()

	h, err := api.NewHandler(api.HandlerConfig{
		Engine:          engine,
		Repository:      repo,
		MetricsRecorder: gsxprometheus.NewRecorder(reg),
		MetricsGatherer: reg,
		Logger:          log.Noop,
	})
	require.NoError(t, err)

	return h
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decodeInstance(t *testing.T, w *httptest.ResponseRecorder) api.InstanceResponse {
	t.Helper()

	var resp api.InstanceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

const lobbySpec = `{"name": "lobby", "family": "paper", "version": "1.21.1", "memory": {"min": "1G", "max": "2G"}}`

func TestInstanceLifecycle(t *testing.T) {
	h := newTestHandler(t)

	// Create.
	w := do(t, h, http.MethodPost, "/v1/instances", lobbySpec)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeInstance(t, w)
	assert.Len(t, created.ID, 26)
	assert.Equal(t, "created", created.Status)
	assert.Equal(t, 25565, created.Port)
	assert.Equal(t, 1024, created.MinMemoryMB)
	assert.Equal(t, 2048, created.MaxMemoryMB)

	w = do(t, h, http.MethodPost, "/v1/instances", lobbySpec)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Start, the fake server launches instantly.
	w = do(t, h, http.MethodPost, "/v1/instances/lobby/start", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "starting", decodeInstance(t, w).Status)

	w = do(t, h, http.MethodGet, "/v1/instances/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decodeInstance(t, w)
	assert.Equal(t, "running", got.Status)
	require.NotNil(t, got.Boot)
	assert.Equal(t, "launching", got.Boot.Phase)

	// Console.
	w = do(t, h, http.MethodPost, "/v1/instances/lobby/command", `{"command": "list"}`)
	assert.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	w = do(t, h, http.MethodGet, "/v1/instances/lobby/logs?tail=1", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var logsResp struct {
		Lines []string `json:"lines"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logsResp))
	require.Len(t, logsResp.Lines, 1)
	assert.Contains(t, logsResp.Lines[0], "There are 0 of a max of 20 players online")

	w = do(t, h, http.MethodGet, "/v1/instances/lobby/stats", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var statsResp api.StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &statsResp))
	assert.Equal(t, uint64(2048*1024*1024), statsResp.MemoryLimitBytes)
	assert.Equal(t, 0, statsResp.Players)

	// List.
	w = do(t, h, http.MethodGet, "/v1/instances?status=running", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var listResp struct {
		Instances []api.InstanceResponse `json:"instances"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
	require.Len(t, listResp.Instances, 1)
	assert.Equal(t, "lobby", listResp.Instances[0].Name)

	// Removal of a running instance requires force.
	w = do(t, h, http.MethodDelete, "/v1/instances/lobby", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/v1/instances/lobby/stop?timeout=5s", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	stopped := decodeInstance(t, w)
	assert.Equal(t, "stopped", stopped.Status)
	assert.Equal(t, 0, stopped.ExitCode)

	w = do(t, h, http.MethodDelete, "/v1/instances/lobby", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "removed", decodeInstance(t, w).Status)

	w = do(t, h, http.MethodGet, "/v1/instances/lobby", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Metrics.
	w = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `gsx_lifecycle_instance_transitions_total{from="running",to="stopping"} 1`), body)
	assert.True(t, strings.Contains(body, `gsx_console_commands_total{success="true"} 1`), body)
}

func TestErrors(t *testing.T) {
	tests := map[string]struct {
		setup   []string
		method  string
		path    string
		body    string
		expCode int
	}{
		"A malformed create body should be a bad request.": {
			method:  http.MethodPost,
			path:    "/v1/instances",
			body:    `{"name":`,
			expCode: http.StatusBadRequest,
		},

		"An unknown family should be a bad request.": {
			method:  http.MethodPost,
			path:    "/v1/instances",
			body:    `{"name": "lobby", "family": "bukkit"}`,
			expCode: http.StatusBadRequest,
		},

		"An unknown status filter should be a bad request.": {
			method:  http.MethodGet,
			path:    "/v1/instances?status=flying",
			expCode: http.StatusBadRequest,
		},

		"A missing instance should be not found.": {
			method:  http.MethodPost,
			path:    "/v1/instances/missing/start",
			expCode: http.StatusNotFound,
		},

		"An invalid stop timeout should be a bad request.": {
			setup:   []string{lobbySpec},
			method:  http.MethodPost,
			path:    "/v1/instances/lobby/stop?timeout=soon",
			expCode: http.StatusBadRequest,
		},

		"Stopping a created instance should be a bad request.": {
			setup:   []string{lobbySpec},
			method:  http.MethodPost,
			path:    "/v1/instances/lobby/stop",
			expCode: http.StatusBadRequest,
		},

		"Stats of a created instance should be a bad request.": {
			setup:   []string{lobbySpec},
			method:  http.MethodGet,
			path:    "/v1/instances/lobby/stats",
			expCode: http.StatusBadRequest,
		},

		"A command without body should be a bad request.": {
			setup:   []string{lobbySpec},
			method:  http.MethodPost,
			path:    "/v1/instances/lobby/command",
			body:    `{}`,
			expCode: http.StatusBadRequest,
		},

		"A port already in use should be a conflict.": {
			setup:   []string{`{"name": "a", "family": "vanilla", "port": 25570}`},
			method:  http.MethodPost,
			path:    "/v1/instances",
			body:    `{"name": "b", "family": "vanilla", "port": 25570}`,
			expCode: http.StatusConflict,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			h := newTestHandler(t)
			for _, spec := range test.setup {
				w := do(t, h, http.MethodPost, "/v1/instances", spec)
				require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
			}

			w := do(t, h, test.method, test.path, test.body)
			assert.Equal(t, test.expCode, w.Code, w.Body.String())

			if test.expCode >= 400 {
				var resp api.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp.Error)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	tests := map[string]struct {
		checks    []model.CheckResult
		expCode   int
		expStatus string
	}{
		"An engine with passing checks should be healthy.": {
			checks: []model.CheckResult{
				{ID: "docker_daemon", Status: model.CheckStatusOK},
				{ID: "boot_binary", Status: model.CheckStatusWarning},
			},
			expCode:   http.StatusOK,
			expStatus: "ok",
		},
		"An engine with a failing check should be unhealthy.": {
			checks: []model.CheckResult{
				{ID: "docker_daemon", Status: model.CheckStatusError, Message: "cannot connect"},
			},
			expCode:   http.StatusServiceUnavailable,
			expStatus: "unhealthy",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			eng := sandboxmock.NewMockEngine(t)
			eng.On("Check", mock.Anything).Once().Return(test.checks)
			repo, err := memory.NewRepository(memory.RepositoryConfig{})
			require.NoError(t, err)
			h, err := api.NewHandler(api.HandlerConfig{Engine: eng, Repository: repo})
			require.NoError(t, err)

			w := do(t, h, http.MethodGet, "/health", "")
			require.Equal(t, test.expCode, w.Code)

			var resp api.HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, test.expStatus, resp.Status)
			assert.Len(t, resp.Checks, len(test.checks))
		})
	}
}
