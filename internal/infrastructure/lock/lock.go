// Package lock keeps a second agent process out of a temp directory.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nightlyone/lockfile"

	"github.com/semmidev/phylax-agent/internal/domain"
)

// FileName is the lock file created inside the temp directory.
const FileName = "phylax-agent.lock"

var ErrHeld = domain.ErrTempDirInUse

type Lock struct {
	file lockfile.Lockfile
}

// Acquire locks dir, creating it when missing.
func Acquire(dir string) (*Lock, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve temp dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0700); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	file, err := lockfile.New(filepath.Join(abs, FileName))
	if err != nil {
		return nil, fmt.Errorf("create lock file: %w", err)
	}
	if err := file.TryLock(); err != nil {
		if errors.Is(err, lockfile.ErrBusy) {
			return nil, fmt.Errorf("%w: %s", ErrHeld, abs)
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	return &Lock{file: file}, nil
}

func (l *Lock) Release() error {
	return l.file.Unlock()
}
