package database

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/semmidev/phylax-agent/internal/domain"
)

// ToolResolver finds external executables, preferring a configured bin
// directory over PATH. Results are cached for the resolver's lifetime.
type ToolResolver struct {
	binDir string

	mu    sync.Mutex
	paths map[string]string
}

func NewToolResolver(binDir string) *ToolResolver {
	return &ToolResolver{
		binDir: binDir,
		paths:  make(map[string]string),
	}
}

func (r *ToolResolver) Resolve(tool string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if path, ok := r.paths[tool]; ok {
		return path, nil
	}

	name := tool
	if runtime.GOOS == "windows" {
		name += ".exe"
	}

	if r.binDir != "" {
		candidate, err := filepath.Abs(filepath.Join(r.binDir, name))
		if err == nil {
			if path, err := exec.LookPath(candidate); err == nil {
				r.paths[tool] = path
				return path, nil
			}
		}
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q not in %q or PATH", domain.ErrToolNotFound, name, r.binDir)
	}
	r.paths[tool] = path
	return path, nil
}
