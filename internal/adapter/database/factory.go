package database

import (
	"fmt"
	"sync"

	"github.com/semmidev/phylax-agent/internal/domain"
)

// BinPaths returns the configured tool directory for an engine family, or ""
// when tools should come from PATH.
type BinPaths interface {
	BinPath(family string) string
}

// Factory builds one driver per job and keeps it, so each driver's tool
// cache survives across runs.
type Factory struct {
	tempDir    string
	compressor domain.Compressor
	binPaths   BinPaths

	mu      sync.Mutex
	drivers map[string]domain.Database
}

func NewFactory(tempDir string, comp domain.Compressor, binPaths BinPaths) *Factory {
	return &Factory{
		tempDir:    tempDir,
		compressor: comp,
		binPaths:   binPaths,
		drivers:    make(map[string]domain.Database),
	}
}

// Family is the key prefix used for an engine's bin path override.
func Family(engine domain.EngineType) string {
	switch engine {
	case domain.PostgreSQL:
		return "postgres"
	default:
		return string(engine)
	}
}

func (f *Factory) Driver(job domain.JobDefinition) (domain.Database, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if db, ok := f.drivers[job.Name]; ok {
		return db, nil
	}

	binDir := ""
	if f.binPaths != nil {
		binDir = f.binPaths.BinPath(Family(job.Type))
	}
	tools := NewToolResolver(binDir)

	var db domain.Database
	switch job.Type {
	case domain.PostgreSQL:
		db = NewPostgreSQL(job, f.tempDir, f.compressor, tools)
	case domain.MySQL:
		db = NewMySQL(job, f.tempDir, f.compressor, tools)
	case domain.MongoDB:
		db = NewMongoDB(job, f.tempDir, f.compressor, tools)
	default:
		return nil, fmt.Errorf("unsupported database type %q for job %s", job.Type, job.Name)
	}

	f.drivers[job.Name] = db
	return db, nil
}
