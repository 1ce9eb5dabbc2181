package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/gsx/internal/app/restart"
	"github.com/slok/gsx/internal/printer"
)

type RestartCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
	timeout  time.Duration
}

// NewRestartCommand returns the restart command.
func NewRestartCommand(rootCmd *RootCommand, app *kingpin.Application) *RestartCommand {
	c := &RestartCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("restart", "Restart an instance, the boot sequence runs again.")
	c.Cmd.Arg("name-or-id", "Instance name or ID.").Required().StringVar(&c.nameOrID)
	c.Cmd.Flag("timeout", "Grace period before the server is killed, 0 uses the engine default.").Short('t').DurationVar(&c.timeout)

	return c
}

func (c RestartCommand) Name() string { return c.Cmd.FullCommand() }

func (c RestartCommand) Run(ctx context.Context) error {
	d, err := c.rootCmd.newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	svc, err := restart.NewService(restart.ServiceConfig{
		Engine:     d.engine,
		Repository: d.repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	inst, err := svc.Run(ctx, restart.Request{NameOrID: c.nameOrID, Timeout: c.timeout})
	if err != nil {
		return fmt.Errorf("could not restart instance: %w", err)
	}

	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	if err := p.PrintMessage(fmt.Sprintf("Restarted instance: %s", inst.Name)); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}
