package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/semmidev/phylax-agent/internal/domain"
)

// Stage names reported with failures.
const (
	StageResolve    = "resolve"
	StageKey        = "key"
	StagePing       = "ping"
	StageDump       = "dump"
	StageEncrypt    = "encrypt"
	StageUpload     = "upload"
	StageValidate   = "validate"
	StageDownload   = "download"
	StageDecrypt    = "decrypt"
	StageDecompress = "decompress"
	StageRestore    = "restore"
	StageList       = "list"
)

type DriverFactory interface {
	Driver(job domain.JobDefinition) (domain.Database, error)
}

type KeySource interface {
	EncryptionKey() []byte
}

type Logger interface {
	Infof(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

// StageError tags a pipeline failure with the step that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}

type Config struct {
	Jobs       domain.JobSet
	Drivers    DriverFactory
	Storage    domain.Storage
	Cipher     domain.Cipher
	Compressor domain.Compressor
	Keys       KeySource
	Notifier   domain.Notifier
	Logger     Logger
	TempDir    string
	StaleAge   time.Duration
}

// Pipeline runs backups and restores one at a time. Every file a run
// creates in the temp dir is gone when the run returns.
type Pipeline struct {
	mu sync.Mutex

	jobs       domain.JobSet
	drivers    DriverFactory
	storage    domain.Storage
	cipher     domain.Cipher
	compressor domain.Compressor
	keys       KeySource
	notifier   domain.Notifier
	logger     Logger
	tempDir    string
	staleAge   time.Duration
}

func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{
		jobs:       cfg.Jobs,
		drivers:    cfg.Drivers,
		storage:    cfg.Storage,
		cipher:     cfg.Cipher,
		compressor: cfg.Compressor,
		keys:       cfg.Keys,
		notifier:   cfg.Notifier,
		logger:     cfg.Logger,
		tempDir:    cfg.TempDir,
		staleAge:   cfg.StaleAge,
	}
}

// ListBackups returns the object names stored in the job's bucket.
func (p *Pipeline) ListBackups(ctx context.Context, jobName string) ([]string, error) {
	job, err := p.jobs.Get(jobName)
	if err != nil {
		return nil, stageErr(StageResolve, err)
	}
	files, err := p.storage.List(ctx, job.Bucket)
	if err != nil {
		p.logger.Errorw("list failed", "job", jobName, "stage", StageList, "error", err)
		return nil, stageErr(StageList, err)
	}
	return files, nil
}

func (p *Pipeline) key() ([]byte, error) {
	key := p.keys.EncryptionKey()
	if len(key) == 0 {
		return nil, stageErr(StageKey, domain.ErrMissingKey)
	}
	return key, nil
}

// finish logs and reports the outcome of a run and returns its error.
func (p *Pipeline) finish(ctx context.Context, report domain.RunReport, err error) error {
	if err != nil {
		report.Err = err
		var se *StageError
		if errors.As(err, &se) {
			report.Stage = se.Stage
			report.Err = se.Err
		}
		p.logger.Errorw(string(report.Operation)+" failed",
			"job", report.Job, "stage", report.Stage, "error", report.Err)
	}

	if p.notifier != nil {
		if nerr := p.notifier.Notify(ctx, report); nerr != nil {
			p.logger.Warnw("notification failed", "job", report.Job, "error", nerr)
		}
	}
	return err
}
