package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/semmidev/phylax-agent/internal/domain"
	"github.com/semmidev/phylax-agent/internal/infrastructure/logger"
)

const cronFields = 5

// Runner is what a trigger fires.
type Runner interface {
	RunBackup(ctx context.Context, job string) error
}

type Scheduler struct {
	cron   *cron.Cron
	parser cron.Parser
	jobs   domain.JobSet
	runner Runner
	log    *logger.Logger

	mu      sync.Mutex
	ctx     context.Context
	entries map[string]cron.EntryID
}

func New(jobs domain.JobSet, runner Runner, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	cl := cronLogger{log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		parser:  cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		jobs:    jobs,
		runner:  runner,
		log:     log,
		ctx:     context.Background(),
		entries: make(map[string]cron.EntryID),
	}
}

// Apply replaces every registered trigger with the active, well-formed
// entries whose job is known. It returns the jobs now scheduled, in entry
// order.
func (s *Scheduler) Apply(entries []domain.ScheduleEntry) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for job, id := range s.entries {
		s.cron.Remove(id)
		delete(s.entries, job)
	}

	var scheduled []string
	for _, e := range entries {
		if !e.IsActive {
			s.log.Debugf("[%s] schedule inactive, skipping", e.JobName)
			continue
		}
		if _, err := s.jobs.Get(e.JobName); err != nil {
			s.log.Warnw("schedule for unknown job skipped", "job", e.JobName)
			continue
		}
		if _, dup := s.entries[e.JobName]; dup {
			s.log.Warnw("duplicate schedule skipped", "job", e.JobName, "cron", e.CronString)
			continue
		}
		schedule, err := s.parse(e.CronString)
		if err != nil {
			s.log.Warnw("malformed schedule skipped", "job", e.JobName, "cron", e.CronString, "error", err)
			continue
		}

		s.entries[e.JobName] = s.cron.Schedule(schedule, s.trigger(e.JobName))
		scheduled = append(scheduled, e.JobName)
		s.log.Infof("[%s] scheduled with %q", e.JobName, e.CronString)
	}
	return scheduled
}

func (s *Scheduler) parse(expr string) (cron.Schedule, error) {
	if n := len(strings.Fields(expr)); n != cronFields {
		return nil, fmt.Errorf("expected exactly %d fields, found %d", cronFields, n)
	}
	return s.parser.Parse(expr)
}

func (s *Scheduler) trigger(job string) cron.Job {
	return cron.FuncJob(func() {
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()

		s.log.Infof("[%s] scheduled backup triggered", job)
		if err := s.runner.RunBackup(ctx, job); err != nil {
			s.log.Errorw("scheduled backup failed", "job", job, "error", err)
		}
	})
}

// Start begins firing triggers. Runs receive ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
}

// Stop halts the cron loop and waits for running triggers to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Active lists the scheduled job names.
func (s *Scheduler) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.entries))
	for job := range s.entries {
		names = append(names, job)
	}
	return names
}

// Next reports when job fires after from.
func (s *Scheduler) Next(job string, from time.Time) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.entries[job]
	if !ok {
		return time.Time{}, false
	}
	entry := s.cron.Entry(id)
	if !entry.Valid() {
		return time.Time{}, false
	}
	return entry.Schedule.Next(from), true
}

type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
