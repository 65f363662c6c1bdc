package domain

import (
	"context"
	"time"
)

type Operation string

const (
	OperationBackup  Operation = "backup"
	OperationRestore Operation = "restore"
)

// RunReport describes the outcome of one pipeline run.
type RunReport struct {
	Job       string
	Operation Operation
	Object    string
	Stage     string
	Err       error
	Duration  time.Duration
}

func (r RunReport) Succeeded() bool {
	return r.Err == nil
}

type Notifier interface {
	Notify(ctx context.Context, report RunReport) error
}
