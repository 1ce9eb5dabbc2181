package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/gsx/internal/app/logs"
)

type LogsCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
	tail     int
	follow   bool
	interval time.Duration
}

// NewLogsCommand returns the logs command.
func NewLogsCommand(rootCmd *RootCommand, app *kingpin.Application) *LogsCommand {
	c := &LogsCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("logs", "Show the boot sequence and server output of an instance.")
	c.Cmd.Arg("name-or-id", "Instance name or ID.").Required().StringVar(&c.nameOrID)
	c.Cmd.Flag("tail", "Number of last lines to show, all of them when 0.").Short('n').Default("100").IntVar(&c.tail)
	c.Cmd.Flag("follow", "Keep printing new lines until interrupted.").Short('f').BoolVar(&c.follow)
	c.Cmd.Flag("interval", "Poll interval when following.").Default("1s").DurationVar(&c.interval)

	return c
}

func (c LogsCommand) Name() string { return c.Cmd.FullCommand() }

func (c LogsCommand) Run(ctx context.Context) error {
	d, err := c.rootCmd.newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	svc, err := logs.NewService(logs.ServiceConfig{
		Engine:     d.engine,
		Repository: d.repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	lines, err := svc.Run(ctx, logs.Request{NameOrID: c.nameOrID, Tail: c.tail})
	if err != nil {
		return fmt.Errorf("could not get instance logs: %w", err)
	}
	for _, l := range lines {
		fmt.Fprintln(c.rootCmd.Stdout, l)
	}
	if !c.follow {
		return nil
	}

	// Logs are a point in time read, follow polls the whole output and prints the new lines.
	all, err := svc.Run(ctx, logs.Request{NameOrID: c.nameOrID})
	if err != nil {
		return fmt.Errorf("could not get instance logs: %w", err)
	}
	printed := len(all)

	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}

		all, err := svc.Run(ctx, logs.Request{NameOrID: c.nameOrID})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("could not get instance logs: %w", err)
		}

		// A recreated sandbox starts a new output.
		if len(all) < printed {
			printed = 0
		}
		for _, l := range all[printed:] {
			fmt.Fprintln(c.rootCmd.Stdout, l)
		}
		printed = len(all)
	}
}
