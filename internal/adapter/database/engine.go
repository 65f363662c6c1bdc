package database

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/semmidev/phylax-agent/internal/domain"
)

// engine holds what every driver shares: the job, where artifacts go, and
// how tools are found.
type engine struct {
	job        domain.JobDefinition
	tempDir    string
	compressor domain.Compressor
	tools      *ToolResolver
}

func (e *engine) GetName() string {
	return e.job.Name
}

// backup runs dump into a fresh raw file, compresses it and removes the raw
// file on every path. On failure nothing is left in the temp dir.
func (e *engine) backup(ctx context.Context, ext string, dump func(ctx context.Context, rawPath string) error) (domain.Artifact, error) {
	rawPath := filepath.Join(e.tempDir, domain.ArtifactBaseName(e.job.Database, time.Now())+ext)
	compressedPath := rawPath + domain.CompressedSuffix
	defer os.Remove(rawPath)

	if err := dump(ctx, rawPath); err != nil {
		return domain.Artifact{}, err
	}

	if err := e.compressor.Compress(rawPath, compressedPath); err != nil {
		_ = os.Remove(compressedPath)
		return domain.Artifact{}, fmt.Errorf("compress dump: %w", err)
	}

	return domain.Artifact{Stage: domain.StageCompressed, Path: compressedPath}, nil
}

// dumpToFile runs tool with its stdout written to outPath.
func (e *engine) dumpToFile(ctx context.Context, tool string, args, env []string, outPath string) error {
	path, err := e.tools.Resolve(tool)
	if err != nil {
		return err
	}

	out, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create dump file: %w", err)
	}
	defer out.Close()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = env
	cmd.Stdout = out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &domain.ExternalToolError{Tool: tool, Output: stderr.String(), Err: err}
	}
	return out.Sync()
}

// run executes tool, feeding inputPath through stdin when it is set.
func (e *engine) run(ctx context.Context, tool string, args, env []string, inputPath string) error {
	path, err := e.tools.Resolve(tool)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = env

	if inputPath != "" {
		in, err := os.Open(inputPath)
		if err != nil {
			return fmt.Errorf("failed to open restore input: %w", err)
		}
		defer in.Close()
		cmd.Stdin = in
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return &domain.ExternalToolError{Tool: tool, Output: string(output), Err: err}
	}
	return nil
}
