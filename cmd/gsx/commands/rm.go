package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/gsx/internal/app/remove"
	"github.com/slok/gsx/internal/printer"
)

type RemoveCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
	force    bool
}

// NewRemoveCommand returns the remove command.
func NewRemoveCommand(rootCmd *RootCommand, app *kingpin.Application) *RemoveCommand {
	c := &RemoveCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("rm", "Remove an instance, its data directory is kept.")
	c.Cmd.Arg("name-or-id", "Instance name or ID.").Required().StringVar(&c.nameOrID)
	c.Cmd.Flag("force", "Kill and remove a running instance.").BoolVar(&c.force)

	return c
}

func (c RemoveCommand) Name() string { return c.Cmd.FullCommand() }

func (c RemoveCommand) Run(ctx context.Context) error {
	d, err := c.rootCmd.newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	svc, err := remove.NewService(remove.ServiceConfig{
		Engine:     d.engine,
		Repository: d.repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	inst, err := svc.Run(ctx, remove.Request{NameOrID: c.nameOrID, Force: c.force})
	if err != nil {
		return fmt.Errorf("could not remove instance: %w", err)
	}

	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	if err := p.PrintMessage(fmt.Sprintf("Removed instance: %s", inst.Name)); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}
