package usecase

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/semmidev/phylax-agent/internal/domain"
)

// artifactPattern matches "<database>_<date>_<time>_<id>.<ext>..." and
// captures the timestamp.
var artifactPattern = regexp.MustCompile(`_(\d{8})_(\d{6})_[0-9a-f]{8}\.`)

func extractTimestamp(filename string) (time.Time, error) {
	matches := artifactPattern.FindStringSubmatch(filename)
	if len(matches) < 3 {
		return time.Time{}, fmt.Errorf("invalid filename format: no timestamp found")
	}
	return time.ParseInLocation(domain.TimestampLayout, matches[1]+"_"+matches[2], time.Local)
}

// SweepStale removes artifacts left in the temp dir by an agent process that
// died mid-run. Only files named like artifacts and older than the
// configured age are touched.
func (p *Pipeline) SweepStale(now time.Time) (int, error) {
	if p.staleAge <= 0 {
		return 0, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	entries, err := os.ReadDir(p.tempDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read temp directory: %w", err)
	}

	cutoff := now.Add(-p.staleAge)
	stale := &artifacts{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		timestamp, err := extractTimestamp(entry.Name())
		if err != nil {
			continue
		}
		if timestamp.Before(cutoff) {
			p.logger.Infof("Removing stale artifact: %s", entry.Name())
			stale.track(filepath.Join(p.tempDir, entry.Name()))
		}
	}

	removed := len(stale.paths)
	if err := stale.removeAll(); err != nil {
		return removed, fmt.Errorf("failed to remove stale artifacts: %w", err)
	}
	return removed, nil
}
