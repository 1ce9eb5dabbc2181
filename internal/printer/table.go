package printer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/slok/gsx/internal/model"
)

// TablePrinter prints instance information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintList prints instances in a table format.
func (t *TablePrinter) PrintList(instances []model.Instance) error {
	if len(instances) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header
	fmt.Fprintln(tw, "NAME\tSTATUS\tFAMILY\tVERSION\tPORT\tCREATED")

	// Print rows
	for _, i := range instances {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			i.Name,
			i.Status,
			i.Config.Family,
			i.Config.Version,
			i.Config.Port,
			TimeAgo(i.CreatedAt),
		)
	}

	return nil
}

// PrintStatus prints detailed instance status.
func (t *TablePrinter) PrintStatus(inst model.Instance, rt *model.RuntimeState) error {
	fmt.Fprintf(t.writer, "Name:       %s\n", inst.Name)
	fmt.Fprintf(t.writer, "ID:         %s\n", inst.ID)
	fmt.Fprintf(t.writer, "Status:     %s\n", inst.Status)
	fmt.Fprintf(t.writer, "Server:     %s %s\n", inst.Config.Family, inst.Config.Version)
	fmt.Fprintf(t.writer, "Port:       %d\n", inst.Config.Port)
	fmt.Fprintf(t.writer, "Memory:     %d-%d MB\n", inst.Config.Memory.MinMB, inst.Config.Memory.MaxMB)

	if inst.Config.Image != "" {
		fmt.Fprintf(t.writer, "Image:      %s\n", inst.Config.Image)
	}

	if rt != nil && rt.Boot != nil {
		boot := string(rt.Boot.Phase)
		if rt.Boot.Step != "" {
			boot += " (" + rt.Boot.Step + ")"
		}
		fmt.Fprintf(t.writer, "Boot:       %s\n", boot)
	}

	fmt.Fprintf(t.writer, "Created:    %s\n", FormatTimestamp(inst.CreatedAt))

	if inst.StartedAt != nil {
		fmt.Fprintf(t.writer, "Started:    %s\n", FormatTimestamp(*inst.StartedAt))
	}

	if inst.StoppedAt != nil {
		fmt.Fprintf(t.writer, "Stopped:    %s\n", FormatTimestamp(*inst.StoppedAt))
		fmt.Fprintf(t.writer, "Exit code:  %d\n", inst.ExitCode)
	}

	if inst.Error != "" {
		fmt.Fprintf(t.writer, "Error:      %s\n", inst.Error)
	}

	return nil
}

// PrintStats prints an instance resource snapshot.
func (t *TablePrinter) PrintStats(inst model.Instance, stats model.Stats) error {
	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "NAME\tCPU %\tMEM USAGE / LIMIT\tNET I/O\tPLAYERS")
	fmt.Fprintf(tw, "%s\t%.2f%%\t%s / %s\t%s / %s\t%d\n",
		inst.Name,
		stats.CPUPercent,
		FormatBytes(stats.MemoryUsedBytes),
		FormatBytes(stats.MemoryLimitBytes),
		FormatBytes(stats.NetInBytes),
		FormatBytes(stats.NetOutBytes),
		stats.PlayerCount,
	)

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}
