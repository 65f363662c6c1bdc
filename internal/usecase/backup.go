package usecase

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/semmidev/phylax-agent/internal/domain"
)

// RunBackup dumps, encrypts and uploads the named job.
func (p *Pipeline) RunBackup(ctx context.Context, jobName string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	owned := &artifacts{}
	object, err := p.backup(ctx, jobName, owned)
	p.release(jobName, owned)

	if err == nil {
		p.logger.Infof("[%s] Backup completed in %s: %s", jobName, time.Since(start).Round(time.Second), object)
	}
	return p.finish(ctx, domain.RunReport{
		Job:       jobName,
		Operation: domain.OperationBackup,
		Object:    object,
		Duration:  time.Since(start),
	}, err)
}

func (p *Pipeline) backup(ctx context.Context, jobName string, owned *artifacts) (string, error) {
	job, err := p.jobs.Get(jobName)
	if err != nil {
		return "", stageErr(StageResolve, err)
	}
	key, err := p.key()
	if err != nil {
		return "", err
	}
	db, err := p.drivers.Driver(job)
	if err != nil {
		return "", stageErr(StageResolve, err)
	}

	p.logger.Infof("[%s] Starting backup...", jobName)
	if err := db.Ping(ctx); err != nil {
		return "", stageErr(StagePing, err)
	}

	artifact, err := db.Backup(ctx)
	if err != nil {
		return "", stageErr(StageDump, err)
	}
	owned.track(artifact.Path)
	if info, err := os.Stat(artifact.Path); err == nil {
		p.logger.Infof("[%s] Dump compressed, size: %.2f MB", jobName, float64(info.Size())/(1024*1024))
	}

	encPath := owned.track(artifact.Path + domain.EncryptedSuffix)
	if err := p.cipher.EncryptFile(key, artifact.Path, encPath); err != nil {
		return "", stageErr(StageEncrypt, err)
	}

	object := filepath.Base(encPath)
	p.logger.Infof("[%s] Uploading %s to %s...", jobName, object, job.Bucket)
	if err := p.storage.Upload(ctx, job.Bucket, encPath, object); err != nil {
		return "", stageErr(StageUpload, err)
	}
	return object, nil
}
