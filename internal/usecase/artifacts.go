package usecase

import (
	"os"

	"github.com/hashicorp/go-multierror"
)

// artifacts is the set of temp files owned by one run.
type artifacts struct {
	paths []string
}

func (a *artifacts) track(path string) string {
	a.paths = append(a.paths, path)
	return path
}

// removeAll deletes every tracked path, newest first. Paths that never got
// created are fine.
func (a *artifacts) removeAll() error {
	var result *multierror.Error
	for i := len(a.paths) - 1; i >= 0; i-- {
		if err := os.Remove(a.paths[i]); err != nil && !os.IsNotExist(err) {
			result = multierror.Append(result, err)
		}
	}
	a.paths = nil
	return result.ErrorOrNil()
}

func (p *Pipeline) release(jobName string, a *artifacts) {
	if err := a.removeAll(); err != nil {
		p.logger.Warnw("failed to remove temp artifacts", "job", jobName, "error", err)
	}
}
