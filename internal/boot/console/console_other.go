//go:build !linux

package console

import (
	"fmt"
	"runtime"

	"github.com/slok/gsx/internal/model"
)

func ensurePipe(string) error {
	return fmt.Errorf("command pipe on %s: %w", runtime.GOOS, model.ErrNotSupported)
}

func attachStdin(string) error {
	return fmt.Errorf("command pipe on %s: %w", runtime.GOOS, model.ErrNotSupported)
}

func execve(string, []string, []string) error {
	return fmt.Errorf("process replacement on %s: %w", runtime.GOOS, model.ErrNotSupported)
}
