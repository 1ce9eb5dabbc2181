package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/gsx/internal/app/command"
	"github.com/slok/gsx/internal/printer"
)

type CmdCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
	command  []string
}

// NewCmdCommand returns the console command command.
func NewCmdCommand(rootCmd *RootCommand, app *kingpin.Application) *CmdCommand {
	c := &CmdCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("cmd", "Send a console command to a running server (e.g. `gsx cmd lobby say hello`).")
	c.Cmd.Arg("name-or-id", "Instance name or ID.").Required().StringVar(&c.nameOrID)
	c.Cmd.Arg("command", "Console command, without the leading slash.").Required().StringsVar(&c.command)

	return c
}

func (c CmdCommand) Name() string { return c.Cmd.FullCommand() }

func (c CmdCommand) Run(ctx context.Context) error {
	d, err := c.rootCmd.newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	svc, err := command.NewService(command.ServiceConfig{
		Engine:     d.engine,
		Repository: d.repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	line := strings.Join(c.command, " ")
	if err := svc.Run(ctx, command.Request{NameOrID: c.nameOrID, Command: line}); err != nil {
		return fmt.Errorf("could not send command: %w", err)
	}

	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	if err := p.PrintMessage(fmt.Sprintf("Sent to %s: %s", c.nameOrID, line)); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}
