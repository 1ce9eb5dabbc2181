package lib

import (
	"context"

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
)

// CreateInstance creates a new instance and its sandbox, the server is not started.
func (c *Client) CreateInstance(ctx context.Context, opts CreateInstanceOpts) (*Instance, error) {
	inst, err := c.createSvc.Create(ctx, create.CreateOptions{
		Config: toInternalInstanceConfig(opts),
	})
	if err != nil {
		return nil, mapError(err)
	}

	return toPublic(inst), nil
}

// StartInstance starts a created, stopped or crashed instance.
// The returned instance is starting until the boot sequence launches the server.
func (c *Client) StartInstance(ctx context.Context, nameOrID string) (*Instance, error) {
	inst, err := c.startSvc.Run(ctx, start.Request{NameOrID: nameOrID})
	if err != nil {
		return nil, mapError(err)
	}

	return toPublic(inst), nil
}

// StopInstance gracefully stops a starting or running instance.
// Pass nil opts for defaults.
func (c *Client) StopInstance(ctx context.Context, nameOrID string, opts *StopInstanceOpts) (*Instance, error) {
	inst, err := c.stopSvc.Run(ctx, stop.Request{
		NameOrID: nameOrID,
		Timeout:  stopTimeout(opts),
	})
	if err != nil {
		return nil, mapError(err)
	}

	return toPublic(inst), nil
}

// RestartInstance stops and starts an instance again, running the full boot sequence.
// Pass nil opts for defaults.
func (c *Client) RestartInstance(ctx context.Context, nameOrID string, opts *StopInstanceOpts) (*Instance, error) {
	inst, err := c.restartSvc.Run(ctx, restart.Request{
		NameOrID: nameOrID,
		Timeout:  stopTimeout(opts),
	})
	if err != nil {
		return nil, mapError(err)
	}

	return toPublic(inst), nil
}

// KillInstance stops an instance immediately without a graceful shutdown.
func (c *Client) KillInstance(ctx context.Context, nameOrID string) (*Instance, error) {
	inst, err := c.killSvc.Run(ctx, kill.Request{NameOrID: nameOrID})
	if err != nil {
		return nil, mapError(err)
	}

	return toPublic(inst), nil
}

// RemoveInstance removes an instance and its sandbox. The instance data directory is kept.
// A starting or running instance is only removed when force is set.
func (c *Client) RemoveInstance(ctx context.Context, nameOrID string, force bool) (*Instance, error) {
	inst, err := c.removeSvc.Run(ctx, remove.Request{
		NameOrID: nameOrID,
		Force:    force,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return toPublic(inst), nil
}

// ListInstances returns the instances with their observed status.
// Pass nil opts to list all instances.
func (c *Client) ListInstances(ctx context.Context, opts *ListInstancesOpts) ([]Instance, error) {
	instances, err := c.listSvc.Run(ctx, list.Request{
		StatusFilter: toInternalStatusFilter(opts),
	})
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalInstanceList(instances), nil
}

// GetInstance returns an instance by name or ID with its observed status.
func (c *Client) GetInstance(ctx context.Context, nameOrID string) (*Instance, error) {
	res, err := c.statusSvc.Run(ctx, status.Request{NameOrID: nameOrID})
	if err != nil {
		return nil, mapError(err)
	}

	return toPublic(&res.Instance), nil
}

// Logs returns the server output of an instance.
// Pass nil opts to get all the lines.
func (c *Client) Logs(ctx context.Context, nameOrID string, opts *LogsOpts) ([]string, error) {
	req := logs.Request{NameOrID: nameOrID}
	if opts != nil {
		req.Tail = opts.Tail
	}

	lines, err := c.logsSvc.Run(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}

	return lines, nil
}

// Stats returns the resource usage and online players of a running instance.
func (c *Client) Stats(ctx context.Context, nameOrID string) (*Stats, error) {
	st, err := c.statsSvc.Run(ctx, stats.Request{NameOrID: nameOrID})
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalStats(*st)
	return &result, nil
}

// SendCommand writes a single console line to a running server, e.g. "say hello".
func (c *Client) SendCommand(ctx context.Context, nameOrID, cmd string) error {
	err := c.commandSvc.Run(ctx, command.Request{
		NameOrID: nameOrID,
		Command:  cmd,
	})
	return mapError(err)
}

func toPublic(inst *model.Instance) *Instance {
	result := fromInternalInstance(*inst)
	return &result
}
