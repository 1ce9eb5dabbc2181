package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/gsx/internal/app/stats"
	"github.com/slok/gsx/internal/storage"
)

type StatsCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
	format   string
}

// NewStatsCommand returns the stats command.
func NewStatsCommand(rootCmd *RootCommand, app *kingpin.Application) *StatsCommand {
	c := &StatsCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("stats", "Show the resource usage and online players of a running instance.")
	c.Cmd.Arg("name-or-id", "Instance name or ID.").Required().StringVar(&c.nameOrID)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c StatsCommand) Name() string { return c.Cmd.FullCommand() }

func (c StatsCommand) Run(ctx context.Context) error {
	d, err := c.rootCmd.newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	svc, err := stats.NewService(stats.ServiceConfig{
		Engine:     d.engine,
		Repository: d.repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	st, err := svc.Run(ctx, stats.Request{NameOrID: c.nameOrID})
	if err != nil {
		return fmt.Errorf("could not get instance stats: %w", err)
	}

	inst, err := storage.GetInstanceByRef(ctx, d.repo, c.nameOrID)
	if err != nil {
		return err
	}

	if err := c.rootCmd.printer(c.format).PrintStats(*inst, *st); err != nil {
		return fmt.Errorf("could not print stats: %w", err)
	}

	return nil
}
