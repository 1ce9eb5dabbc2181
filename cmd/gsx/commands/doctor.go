package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/gsx/internal/model"
)

type DoctorCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewDoctorCommand returns the doctor command.
func NewDoctorCommand(rootCmd *RootCommand, app *kingpin.Application) *DoctorCommand {
	c := &DoctorCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("doctor", "Run preflight checks for the selected sandbox engine.")

	return c
}

func (c DoctorCommand) Name() string { return c.Cmd.FullCommand() }

func (c DoctorCommand) Run(ctx context.Context) error {
	out := c.rootCmd.Stdout

	eng, err := c.rootCmd.newEngine(nil)
	if err != nil {
		return err
	}

	results := eng.Check(ctx)

	fmt.Fprintf(out, "\nChecking %s engine...\n", c.rootCmd.Engine)
	for _, r := range results {
		fmt.Fprintf(out, "  %s %-20s %s\n", getStatusIcon(r.Status), r.ID, r.Message)
	}

	// Summary
	sum := model.SummarizeChecks(results)
	fmt.Fprintln(out)
	if sum.Errors == 0 && sum.Warnings == 0 {
		fmt.Fprintln(out, "All checks passed!")
	} else {
		var summary []string
		if sum.Errors > 0 {
			summary = append(summary, fmt.Sprintf("%d error(s)", sum.Errors))
		}
		if sum.Warnings > 0 {
			summary = append(summary, fmt.Sprintf("%d warning(s)", sum.Warnings))
		}
		fmt.Fprintln(out, strings.Join(summary, ", "))
	}

	if !sum.Healthy() {
		return fmt.Errorf("preflight checks failed with %d error(s): %w", sum.Errors, model.ErrNotValid)
	}

	return nil
}

func getStatusIcon(status model.CheckStatus) string {
	switch status {
	case model.CheckStatusOK:
		return "OK"
	case model.CheckStatusWarning:
		return "!!"
	case model.CheckStatusError:
		return "XX"
	default:
		return "??"
	}
}
