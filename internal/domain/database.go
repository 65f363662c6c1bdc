package domain

import "context"

// Database is implemented once per engine family. Backup returns the
// compressed artifact it produced; Restore loads a raw, decompressed dump.
type Database interface {
	Backup(ctx context.Context) (Artifact, error)
	Restore(ctx context.Context, rawPath string) error
	Ping(ctx context.Context) error
	GetName() string
	GetType() EngineType
}
