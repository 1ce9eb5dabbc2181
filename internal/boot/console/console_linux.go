package console

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ensurePipe creates the FIFO or reuses an existing one. Anything else squatting
// the path is replaced.
func ensurePipe(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	info, err := os.Lstat(path)
	switch {
	case err == nil && info.Mode()&os.ModeNamedPipe != 0:
		return nil
	case err == nil:
		if err := os.RemoveAll(path); err != nil {
			return err
		}
	case !errors.Is(err, os.ErrNotExist):
		return err
	}

	if err := unix.Mkfifo(path, 0o620); err != nil {
		return fmt.Errorf("mkfifo: %w", err)
	}
	return nil
}

// attachStdin opens the pipe read-write, so writers coming and going never
// deliver EOF, and makes it the standard input.
func attachStdin(path string) error {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}

	if err := unix.Dup3(fd, int(os.Stdin.Fd()), 0); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("dup3: %w", err)
	}
	return unix.Close(fd)
}

func execve(binary string, argv []string, env []string) error {
	return unix.Exec(binary, argv, env)
}
