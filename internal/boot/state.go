package boot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/slok/gsx/internal/model"
)

// StateName is the boot state file path relative to the data directory.
var StateName = filepath.Join(".gsx", "boot-state.json")

// WriteState atomically replaces the boot state of a data directory.
func WriteState(dataDir string, st model.BootState) error {
	path := filepath.Join(dataDir, StateName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("could not create state directory: %w", err)
	}

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("could not marshal boot state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("could not write boot state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("could not write boot state: %w", err)
	}

	return nil
}

// ReadState reads the boot state of a data directory.
func ReadState(dataDir string) (*model.BootState, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, StateName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("boot state: %w", model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not read boot state: %w", err)
	}

	st := &model.BootState{}
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("could not unmarshal boot state: %w", err)
	}

	return st, nil
}

// ClearState removes the boot state so a new boot starts from a clean report.
func ClearState(dataDir string) error {
	err := os.Remove(filepath.Join(dataDir, StateName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not clear boot state: %w", err)
	}
	return nil
}
