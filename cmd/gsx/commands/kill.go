package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/gsx/internal/app/kill"
	"github.com/slok/gsx/internal/printer"
)

type KillCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
}

// NewKillCommand returns the kill command.
func NewKillCommand(rootCmd *RootCommand, app *kingpin.Application) *KillCommand {
	c := &KillCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("kill", "Kill an instance immediately, the world may not be saved.")
	c.Cmd.Arg("name-or-id", "Instance name or ID.").Required().StringVar(&c.nameOrID)

	return c
}

func (c KillCommand) Name() string { return c.Cmd.FullCommand() }

func (c KillCommand) Run(ctx context.Context) error {
	d, err := c.rootCmd.newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	svc, err := kill.NewService(kill.ServiceConfig{
		Engine:     d.engine,
		Repository: d.repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	inst, err := svc.Run(ctx, kill.Request{NameOrID: c.nameOrID})
	if err != nil {
		return fmt.Errorf("could not kill instance: %w", err)
	}

	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	if err := p.PrintMessage(fmt.Sprintf("Killed instance: %s", inst.Name)); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}
