package database

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/semmidev/phylax-agent/internal/domain"
)

type MongoDBDatabase struct {
	engine
}

func NewMongoDB(job domain.JobDefinition, tempDir string, comp domain.Compressor, tools *ToolResolver) *MongoDBDatabase {
	return &MongoDBDatabase{engine: engine{
		job:        job,
		tempDir:    tempDir,
		compressor: comp,
		tools:      tools,
	}}
}

func (m *MongoDBDatabase) GetType() domain.EngineType {
	return domain.MongoDB
}

func (m *MongoDBDatabase) uri() string {
	u := url.URL{
		Scheme: "mongodb",
		User:   url.UserPassword(m.job.Username, m.job.Password),
		Host:   m.job.Host + ":" + strconv.Itoa(m.job.Port),
		Path:   "/" + m.job.Database,
	}
	if m.job.AuthDatabase != "" {
		u.RawQuery = url.Values{"authSource": []string{m.job.AuthDatabase}}.Encode()
	}
	return u.String()
}

func (m *MongoDBDatabase) Backup(ctx context.Context) (domain.Artifact, error) {
	return m.backup(ctx, ".archive", func(ctx context.Context, rawPath string) error {
		args := []string{"--uri=" + m.uri(), "--archive"}
		return m.dumpToFile(ctx, "mongodump", args, os.Environ(), rawPath)
	})
}

// Restore replaces every collection present in the archive.
func (m *MongoDBDatabase) Restore(ctx context.Context, rawPath string) error {
	args := []string{"--uri=" + m.uri(), "--archive", "--drop"}
	return m.run(ctx, "mongorestore", args, os.Environ(), rawPath)
}

func (m *MongoDBDatabase) Ping(ctx context.Context) error {
	args := []string{m.uri(), "--quiet", "--eval", "db.runCommand({ ping: 1 })"}
	if err := m.run(ctx, "mongosh", args, os.Environ(), ""); err != nil {
		return fmt.Errorf("mongodb ping failed: %w", err)
	}
	return nil
}
