package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfigMissing     = errors.New("configuration missing")
	ErrMissingKey        = fmt.Errorf("%w: encryption key not found, run generate-key first", ErrConfigMissing)
	ErrMissingToken      = fmt.Errorf("%w: access token not found", ErrConfigMissing)
	ErrToolNotFound      = errors.New("tool not found")
	ErrExternalTool      = errors.New("external tool failed")
	ErrTransport         = errors.New("transport failure")
	ErrDecryption        = errors.New("decryption failed")
	ErrInvalidObjectName = errors.New("invalid object name")
	ErrInvalidCommand    = errors.New("invalid command")
	ErrUnknownJob        = errors.New("unknown job")
	ErrTempDirInUse      = errors.New("temp directory is in use by another agent process")
)

// ExternalToolError carries the captured output of a dump or restore tool
// that exited non-zero.
type ExternalToolError struct {
	Tool   string
	Output string
	Err    error
}

func (e *ExternalToolError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s failed: %v, output: %s", e.Tool, e.Err, out)
}

func (e *ExternalToolError) Unwrap() error {
	return e.Err
}

func (e *ExternalToolError) Is(target error) bool {
	return target == ErrExternalTool
}

// IsOperational reports whether err belongs to the agent's error taxonomy,
// as opposed to an unexpected failure.
func IsOperational(err error) bool {
	for _, target := range []error{
		ErrConfigMissing,
		ErrToolNotFound,
		ErrExternalTool,
		ErrTransport,
		ErrDecryption,
		ErrInvalidObjectName,
		ErrInvalidCommand,
		ErrUnknownJob,
		ErrTempDirInUse,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
