package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/gsx/internal/app/list"
	"github.com/slok/gsx/internal/model"
)

type ListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	statusFilter string
	format       string
}

// NewListCommand returns the list command.
func NewListCommand(rootCmd *RootCommand, app *kingpin.Application) *ListCommand {
	c := &ListCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("list", "List all instances.").Alias("ls")
	c.Cmd.Flag("status", "Filter by status (created, starting, running, stopping, stopped, crashed).").StringVar(&c.statusFilter)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c ListCommand) Name() string { return c.Cmd.FullCommand() }

func (c ListCommand) Run(ctx context.Context) error {
	// Parse status filter if provided.
	var statusFilter *model.InstanceStatus
	if c.statusFilter != "" {
		status := model.InstanceStatus(strings.ToLower(c.statusFilter))
		switch status {
		case model.InstanceStatusCreated, model.InstanceStatusStarting, model.InstanceStatusRunning,
			model.InstanceStatusStopping, model.InstanceStatusStopped, model.InstanceStatusCrashed:
			statusFilter = &status
		default:
			return fmt.Errorf("invalid status filter: %s (must be: created, starting, running, stopping, stopped, crashed)", c.statusFilter)
		}
	}

	d, err := c.rootCmd.newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	svc, err := list.NewService(list.ServiceConfig{
		Engine:     d.engine,
		Repository: d.repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	instances, err := svc.Run(ctx, list.Request{StatusFilter: statusFilter})
	if err != nil {
		return fmt.Errorf("could not list instances: %w", err)
	}

	if err := c.rootCmd.printer(c.format).PrintList(instances); err != nil {
		return fmt.Errorf("could not print list: %w", err)
	}

	return nil
}
