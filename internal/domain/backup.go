package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type EngineType string

const (
	PostgreSQL EngineType = "postgresql"
	MySQL      EngineType = "mysql"
	MongoDB    EngineType = "mongodb"
)

// JobDefinition is a named backup target. It is never mutated after load.
type JobDefinition struct {
	Name     string
	Type     EngineType
	Bucket   string
	Host     string
	Port     int
	Username string
	Password string
	Database string

	// PostgreSQL specific
	SSLMode string

	// MongoDB specific
	AuthDatabase string
}

// JobSet maps job names to their definitions.
type JobSet map[string]JobDefinition

func (s JobSet) Get(name string) (JobDefinition, error) {
	job, ok := s[name]
	if !ok {
		return JobDefinition{}, fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	return job, nil
}

// Buckets returns the job name to bucket mapping announced on identify.
func (s JobSet) Buckets() map[string]string {
	buckets := make(map[string]string, len(s))
	for name, job := range s {
		buckets[name] = job.Bucket
	}
	return buckets
}

func (s JobSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type ArtifactStage string

const (
	StageRaw        ArtifactStage = "raw"
	StageCompressed ArtifactStage = "compressed"
	StageEncrypted  ArtifactStage = "encrypted"
)

const (
	CompressedSuffix = ".gz"
	EncryptedSuffix  = ".enc"
	TimestampLayout  = "20060102_150405"
)

// Artifact is a temporary file owned by a single pipeline run.
type Artifact struct {
	Stage ArtifactStage
	Path  string
}

// ArtifactBaseName builds "<database>_<timestamp>_<id>". The random id keeps
// two runs started within the same second from sharing a file name.
func ArtifactBaseName(database string, now time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s", database, now.Format(TimestampLayout), id)
}
