package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/gsx/internal/app/start"
	"github.com/slok/gsx/internal/printer"
)

type StartCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
}

// NewStartCommand returns the start command.
func NewStartCommand(rootCmd *RootCommand, app *kingpin.Application) *StartCommand {
	c := &StartCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("start", "Start a created, stopped or crashed instance.")
	c.Cmd.Arg("name-or-id", "Instance name or ID.").Required().StringVar(&c.nameOrID)

	return c
}

func (c StartCommand) Name() string { return c.Cmd.FullCommand() }

func (c StartCommand) Run(ctx context.Context) error {
	d, err := c.rootCmd.newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	svc, err := start.NewService(start.ServiceConfig{
		Engine:     d.engine,
		Repository: d.repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	inst, err := svc.Run(ctx, start.Request{NameOrID: c.nameOrID})
	if err != nil {
		return fmt.Errorf("could not start instance: %w", err)
	}

	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	if err := p.PrintMessage(fmt.Sprintf("Started instance: %s (booting, follow it with `gsx logs -f %s`)", inst.Name, inst.Name)); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}
