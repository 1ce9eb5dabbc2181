package printer

import "github.com/slok/gsx/internal/model"

// Printer knows how to print instance information in different formats.
type Printer interface {
	PrintList(instances []model.Instance) error
	PrintStatus(inst model.Instance, rt *model.RuntimeState) error
	PrintStats(inst model.Instance, stats model.Stats) error
	PrintMessage(msg string) error
}
