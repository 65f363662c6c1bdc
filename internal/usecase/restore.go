package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/semmidev/phylax-agent/internal/domain"
)

// ValidateObjectName accepts plain file names carrying the encrypted
// suffix.
func ValidateObjectName(name string) error {
	switch {
	case !strings.HasSuffix(name, domain.EncryptedSuffix) || name == domain.EncryptedSuffix:
		return fmt.Errorf("%w: %q must end with %s", domain.ErrInvalidObjectName, name, domain.EncryptedSuffix)
	case strings.ContainsAny(name, `/\`) || strings.Contains(name, ".."):
		return fmt.Errorf("%w: %q must be a plain file name", domain.ErrInvalidObjectName, name)
	}
	return nil
}

// RunRestore downloads object from the job's bucket and loads it into the
// job's database. A failure inside the engine's own restore can leave the
// target partially restored.
func (p *Pipeline) RunRestore(ctx context.Context, jobName, object string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	owned := &artifacts{}
	err := p.restore(ctx, jobName, object, owned)
	p.release(jobName, owned)

	if err == nil {
		p.logger.Infof("[%s] Restore of %s completed in %s", jobName, object, time.Since(start).Round(time.Second))
	}
	return p.finish(ctx, domain.RunReport{
		Job:       jobName,
		Operation: domain.OperationRestore,
		Object:    object,
		Duration:  time.Since(start),
	}, err)
}

func (p *Pipeline) restore(ctx context.Context, jobName, object string, owned *artifacts) error {
	if err := ValidateObjectName(object); err != nil {
		return stageErr(StageValidate, err)
	}
	job, err := p.jobs.Get(jobName)
	if err != nil {
		return stageErr(StageResolve, err)
	}
	key, err := p.key()
	if err != nil {
		return err
	}
	db, err := p.drivers.Driver(job)
	if err != nil {
		return stageErr(StageResolve, err)
	}

	encPath := owned.track(filepath.Join(p.tempDir, object))
	p.logger.Infof("[%s] Downloading %s from %s...", jobName, object, job.Bucket)
	if err := p.storage.Download(ctx, job.Bucket, object, encPath); err != nil {
		return stageErr(StageDownload, err)
	}

	compressedPath := owned.track(strings.TrimSuffix(encPath, domain.EncryptedSuffix))
	if err := p.cipher.DecryptFile(key, encPath, compressedPath); err != nil {
		return stageErr(StageDecrypt, err)
	}

	rawPath := strings.TrimSuffix(compressedPath, domain.CompressedSuffix)
	if rawPath == compressedPath {
		rawPath += ".raw"
	}
	owned.track(rawPath)
	if err := p.compressor.Decompress(compressedPath, rawPath); err != nil {
		return stageErr(StageDecompress, err)
	}

	p.logger.Warnw("restoring over the live database, an engine failure part-way leaves it partially restored",
		"job", jobName, "database", job.Database, "object", object)
	if err := db.Restore(ctx, rawPath); err != nil {
		return stageErr(StageRestore, err)
	}
	return nil
}
