package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/slok/gsx/internal/app/command"
	"github.com/slok/gsx/internal/app/create"
	"github.com/slok/gsx/internal/app/kill"
	"github.com/slok/gsx/internal/app/list"
	"github.com/slok/gsx/internal/app/logs"
	"github.com/slok/gsx/internal/app/remove"
	"github.com/slok/gsx/internal/app/restart"
	"github.com/slok/gsx/internal/app/start"
	"github.com/slok/gsx/internal/app/stats"
	"github.com/slok/gsx/internal/app/status"
	"github.com/slok/gsx/internal/app/stop"
	"github.com/slok/gsx/internal/model"
	storageio "github.com/slok/gsx/internal/storage/io"
)

// InstanceResponse represents an instance in API responses.
type InstanceResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Status      string            `json:"status"`
	Family      string            `json:"family"`
	Version     string            `json:"version"`
	Port        int               `json:"port"`
	MinMemoryMB int               `json:"min_memory_mb"`
	MaxMemoryMB int               `json:"max_memory_mb"`
	Image       string            `json:"image,omitempty"`
	ContainerID string            `json:"container_id,omitempty"`
	ExitCode    int               `json:"exit_code"`
	Error       string            `json:"error,omitempty"`
	Boot        *BootResponse     `json:"boot,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	StoppedAt   *time.Time        `json:"stopped_at,omitempty"`
}

// BootResponse is the in-sandbox boot progress.
type BootResponse struct {
	Phase string `json:"phase"`
	Step  string `json:"step,omitempty"`
	Error string `json:"error,omitempty"`
}

// StatsResponse is an instance resource snapshot.
type StatsResponse struct {
	CPUPercent       float64 `json:"cpu_percent"`
	MemoryUsedBytes  uint64  `json:"memory_used_bytes"`
	MemoryLimitBytes uint64  `json:"memory_limit_bytes"`
	NetInBytes       uint64  `json:"net_in_bytes"`
	NetOutBytes      uint64  `json:"net_out_bytes"`
	Players          int     `json:"players"`
}

// CommandRequest is the body of a console command request.
type CommandRequest struct {
	Command string `json:"command" binding:"required"`
}

// HealthResponse reports the sandbox engine preflight checks.
type HealthResponse struct {
	Status string          `json:"status"`
	Checks []CheckResponse `json:"checks"`
}

type CheckResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ErrorResponse is returned on every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func instanceToResponse(i model.Instance, rt *model.RuntimeState) InstanceResponse {
	resp := InstanceResponse{
		ID:          i.ID,
		Name:        i.Name,
		Status:      string(i.Status),
		Family:      string(i.Config.Family),
		Version:     i.Config.Version,
		Port:        i.Config.Port,
		MinMemoryMB: i.Config.Memory.MinMB,
		MaxMemoryMB: i.Config.Memory.MaxMB,
		Image:       i.Config.Image,
		ContainerID: i.ContainerID,
		ExitCode:    i.ExitCode,
		Error:       i.Error,
		Env:         i.Config.Env,
		CreatedAt:   i.CreatedAt,
		StartedAt:   i.StartedAt,
		StoppedAt:   i.StoppedAt,
	}
	if rt != nil && rt.Boot != nil {
		resp.Boot = &BootResponse{Phase: string(rt.Boot.Phase), Step: rt.Boot.Step, Error: rt.Boot.Error}
	}
	return resp
}

// health reports the engine preflight checks.
// GET /health
func (h *handler) health(c *gin.Context) {
	results := h.engine.Check(c.Request.Context())

	resp := HealthResponse{Status: "ok", Checks: make([]CheckResponse, 0, len(results))}
	for _, r := range results {
		resp.Checks = append(resp.Checks, CheckResponse{ID: r.ID, Status: string(r.Status), Message: r.Message})
	}

	code := http.StatusOK
	if !model.SummarizeChecks(results).Healthy() {
		resp.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}

// createInstance creates a new instance from an instance spec.
// POST /v1/instances
func (h *handler) createInstance(c *gin.Context) {
	var spec storageio.InstanceSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		h.fail(c, fmt.Errorf("invalid body: %v: %w", err, model.ErrNotValid))
		return
	}

	cfg, err := spec.ToModel()
	if err != nil {
		h.fail(c, err)
		return
	}

	inst, err := h.create.Create(c.Request.Context(), create.CreateOptions{Config: cfg})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, instanceToResponse(*inst, nil))
}

// listInstances returns the observed instances, optionally filtered by status.
// GET /v1/instances?status=running
func (h *handler) listInstances(c *gin.Context) {
	req := list.Request{}
	if s := c.Query("status"); s != "" {
		st, err := parseStatus(s)
		if err != nil {
			h.fail(c, err)
			return
		}
		req.StatusFilter = &st
	}

	instances, err := h.list.Run(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := make([]InstanceResponse, 0, len(instances))
	for _, i := range instances {
		resp = append(resp, instanceToResponse(i, nil))
	}

	c.JSON(http.StatusOK, gin.H{"instances": resp})
}

// getInstance returns the observed status of an instance.
// GET /v1/instances/:ref
func (h *handler) getInstance(c *gin.Context) {
	res, err := h.status.Run(c.Request.Context(), status.Request{NameOrID: c.Param("ref")})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, instanceToResponse(res.Instance, res.Runtime))
}

// removeInstance deletes an instance and its sandbox.
// DELETE /v1/instances/:ref?force=true
func (h *handler) removeInstance(c *gin.Context) {
	force, err := queryBool(c, "force")
	if err != nil {
		h.fail(c, err)
		return
	}

	inst, err := h.remove.Run(c.Request.Context(), remove.Request{NameOrID: c.Param("ref"), Force: force})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, instanceToResponse(*inst, nil))
}

// POST /v1/instances/:ref/start
func (h *handler) startInstance(c *gin.Context) {
	inst, err := h.start.Run(c.Request.Context(), start.Request{NameOrID: c.Param("ref")})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, instanceToResponse(*inst, nil))
}

// POST /v1/instances/:ref/stop?timeout=30s
func (h *handler) stopInstance(c *gin.Context) {
	timeout, err := queryDuration(c, "timeout")
	if err != nil {
		h.fail(c, err)
		return
	}

	inst, err := h.stop.Run(c.Request.Context(), stop.Request{NameOrID: c.Param("ref"), Timeout: timeout})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, instanceToResponse(*inst, nil))
}

// POST /v1/instances/:ref/restart?timeout=30s
func (h *handler) restartInstance(c *gin.Context) {
	timeout, err := queryDuration(c, "timeout")
	if err != nil {
		h.fail(c, err)
		return
	}

	inst, err := h.restart.Run(c.Request.Context(), restart.Request{NameOrID: c.Param("ref"), Timeout: timeout})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, instanceToResponse(*inst, nil))
}

// POST /v1/instances/:ref/kill
func (h *handler) killInstance(c *gin.Context) {
	inst, err := h.kill.Run(c.Request.Context(), kill.Request{NameOrID: c.Param("ref")})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, instanceToResponse(*inst, nil))
}

// GET /v1/instances/:ref/logs?tail=100
func (h *handler) instanceLogs(c *gin.Context) {
	tail := 0
	if v := c.Query("tail"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.fail(c, fmt.Errorf("invalid tail %q: %w", v, model.ErrNotValid))
			return
		}
		tail = n
	}

	lines, err := h.logs.Run(c.Request.Context(), logs.Request{NameOrID: c.Param("ref"), Tail: tail})
	if err != nil {
		h.fail(c, err)
		return
	}
	if lines == nil {
		lines = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"lines": lines})
}

// GET /v1/instances/:ref/stats
func (h *handler) instanceStats(c *gin.Context) {
	st, err := h.stats.Run(c.Request.Context(), stats.Request{NameOrID: c.Param("ref")})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, StatsResponse{
		CPUPercent:       st.CPUPercent,
		MemoryUsedBytes:  st.MemoryUsedBytes,
		MemoryLimitBytes: st.MemoryLimitBytes,
		NetInBytes:       st.NetInBytes,
		NetOutBytes:      st.NetOutBytes,
		Players:          st.PlayerCount,
	})
}

// instanceCommand writes a console line, there is no server acknowledgement.
// POST /v1/instances/:ref/command
func (h *handler) instanceCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("invalid body: %v: %w", err, model.ErrNotValid))
		return
	}

	err := h.command.Run(c.Request.Context(), command.Request{NameOrID: c.Param("ref"), Command: req.Command})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Status(http.StatusAccepted)
}

// fail maps the domain errors to HTTP status codes.
func (h *handler) fail(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, model.ErrNotValid):
		code = http.StatusBadRequest
	case errors.Is(err, model.ErrAlreadyExists):
		code = http.StatusConflict
	case errors.Is(err, model.ErrNotSupported):
		code = http.StatusNotImplemented
	}

	if code == http.StatusInternalServerError {
		h.logger.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}

	c.AbortWithStatusJSON(code, ErrorResponse{Error: err.Error()})
}

func parseStatus(s string) (model.InstanceStatus, error) {
	st := model.InstanceStatus(s)
	switch st {
	case model.InstanceStatusCreated, model.InstanceStatusStarting, model.InstanceStatusRunning,
		model.InstanceStatusStopping, model.InstanceStatusStopped, model.InstanceStatusCrashed:
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q: %w", s, model.ErrNotValid)
}

func queryBool(c *gin.Context, key string) (bool, error) {
	v := c.Query(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, model.ErrNotValid)
	}
	return b, nil
}

func queryDuration(c *gin.Context, key string) (time.Duration, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, model.ErrNotValid)
	}
	return d, nil
}
