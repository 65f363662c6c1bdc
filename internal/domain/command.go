package domain

import "fmt"

type Action string

const (
	ActionBackup          Action = "backup"
	ActionRestore         Action = "restore"
	ActionReloadSchedules Action = "reload_schedules"
)

// Command is an inbound control-plane request.
type Command struct {
	Action Action `json:"action"`
	Job    string `json:"job,omitempty"`
	File   string `json:"file,omitempty"`
}

// Validate checks required fields and that the job is served by this agent.
func (c Command) Validate(jobs JobSet) error {
	switch c.Action {
	case ActionReloadSchedules:
		return nil
	case ActionBackup, ActionRestore:
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidCommand, c.Action)
	}

	if c.Job == "" {
		return fmt.Errorf("%w: %s requires a job", ErrInvalidCommand, c.Action)
	}
	if _, err := jobs.Get(c.Job); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	if c.Action == ActionRestore && c.File == "" {
		return fmt.Errorf("%w: restore requires a file", ErrInvalidCommand)
	}
	return nil
}
