package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/gsx/internal/model"
)

// JSONPrinter prints instance information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// listItem represents an instance in the list output (subset of fields).
type listItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Family    string    `json:"family"`
	Version   string    `json:"version"`
	Port      int       `json:"port"`
	CreatedAt time.Time `json:"created_at"`
}

// statusOutput represents the full instance status output.
type statusOutput struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Status      string      `json:"status"`
	Family      string      `json:"family"`
	Version     string      `json:"version"`
	Port        int         `json:"port"`
	MinMemoryMB int         `json:"min_memory_mb"`
	MaxMemoryMB int         `json:"max_memory_mb"`
	Image       string      `json:"image,omitempty"`
	ContainerID string      `json:"container_id,omitempty"`
	ExitCode    int         `json:"exit_code"`
	Error       string      `json:"error,omitempty"`
	Boot        *bootOutput `json:"boot,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	StartedAt   *time.Time  `json:"started_at"`
	StoppedAt   *time.Time  `json:"stopped_at"`
}

// bootOutput represents the in-sandbox boot progress.
type bootOutput struct {
	Phase string `json:"phase"`
	Step  string `json:"step,omitempty"`
	Error string `json:"error,omitempty"`
}

type statsOutput struct {
	Name             string  `json:"name"`
	CPUPercent       float64 `json:"cpu_percent"`
	MemoryUsedBytes  uint64  `json:"memory_used_bytes"`
	MemoryLimitBytes uint64  `json:"memory_limit_bytes"`
	NetInBytes       uint64  `json:"net_in_bytes"`
	NetOutBytes      uint64  `json:"net_out_bytes"`
	Players          int     `json:"players"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintList prints instances in JSON format with a subset of fields.
func (j *JSONPrinter) PrintList(instances []model.Instance) error {
	items := make([]listItem, len(instances))
	for i, inst := range instances {
		items[i] = listItem{
			ID:        inst.ID,
			Name:      inst.Name,
			Status:    string(inst.Status),
			Family:    string(inst.Config.Family),
			Version:   inst.Config.Version,
			Port:      inst.Config.Port,
			CreatedAt: inst.CreatedAt.UTC(),
		}
	}

	return j.encode(items)
}

// PrintStatus prints detailed instance status in JSON format.
func (j *JSONPrinter) PrintStatus(inst model.Instance, rt *model.RuntimeState) error {
	output := statusOutput{
		ID:          inst.ID,
		Name:        inst.Name,
		Status:      string(inst.Status),
		Family:      string(inst.Config.Family),
		Version:     inst.Config.Version,
		Port:        inst.Config.Port,
		MinMemoryMB: inst.Config.Memory.MinMB,
		MaxMemoryMB: inst.Config.Memory.MaxMB,
		Image:       inst.Config.Image,
		ContainerID: inst.ContainerID,
		ExitCode:    inst.ExitCode,
		Error:       inst.Error,
		CreatedAt:   inst.CreatedAt.UTC(),
		StartedAt:   utcPtr(inst.StartedAt),
		StoppedAt:   utcPtr(inst.StoppedAt),
	}

	if rt != nil && rt.Boot != nil {
		output.Boot = &bootOutput{
			Phase: string(rt.Boot.Phase),
			Step:  rt.Boot.Step,
			Error: rt.Boot.Error,
		}
	}

	return j.encode(output)
}

// PrintStats prints an instance resource snapshot in JSON format.
func (j *JSONPrinter) PrintStats(inst model.Instance, stats model.Stats) error {
	return j.encode(statsOutput{
		Name:             inst.Name,
		CPUPercent:       stats.CPUPercent,
		MemoryUsedBytes:  stats.MemoryUsedBytes,
		MemoryLimitBytes: stats.MemoryLimitBytes,
		NetInBytes:       stats.NetInBytes,
		NetOutBytes:      stats.NetOutBytes,
		Players:          stats.PlayerCount,
	})
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
