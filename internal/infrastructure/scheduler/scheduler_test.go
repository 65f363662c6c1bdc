package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/phylax-agent/internal/domain"
)

type recordingRunner struct {
	mu    sync.Mutex
	calls []string
	err   error
	panic bool
}

func (r *recordingRunner) RunBackup(ctx context.Context, job string) error {
	r.mu.Lock()
	r.calls = append(r.calls, job)
	r.mu.Unlock()
	if r.panic {
		panic("dump exploded")
	}
	return r.err
}

func (r *recordingRunner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func testJobs() domain.JobSet {
	return domain.JobSet{
		"pg_main":   {Name: "pg_main", Type: domain.PostgreSQL, Bucket: "pg-main-backups"},
		"mysql_web": {Name: "mysql_web", Type: domain.MySQL, Bucket: "mysql-web-backups"},
	}
}

func TestScheduler(t *testing.T) {
	Convey("Given a Scheduler over known jobs", t, func() {
		runner := &recordingRunner{}
		s := New(testJobs(), runner, nil)

		Convey("A valid daily entry fires at the configured time", func() {
			scheduled := s.Apply([]domain.ScheduleEntry{
				{JobName: "pg_main", CronString: "0 3 * * *", IsActive: true},
			})
			So(scheduled, ShouldResemble, []string{"pg_main"})

			from := time.Date(2024, 5, 1, 1, 30, 0, 0, time.Local)
			next, ok := s.Next("pg_main", from)
			So(ok, ShouldBeTrue)
			So(next.Equal(time.Date(2024, 5, 1, 3, 0, 0, 0, time.Local)), ShouldBeTrue)

			next, _ = s.Next("pg_main", next)
			So(next.Equal(time.Date(2024, 5, 2, 3, 0, 0, 0, time.Local)), ShouldBeTrue)
		})

		Convey("Malformed expressions are skipped without blocking the rest", func() {
			scheduled := s.Apply([]domain.ScheduleEntry{
				{JobName: "pg_main", CronString: "0 3 *", IsActive: true},
				{JobName: "mysql_web", CronString: "30 1 * * 0", IsActive: true},
			})

			So(scheduled, ShouldResemble, []string{"mysql_web"})
			_, ok := s.Next("pg_main", time.Now())
			So(ok, ShouldBeFalse)
		})

		Convey("Six-field and unparsable expressions are rejected", func() {
			scheduled := s.Apply([]domain.ScheduleEntry{
				{JobName: "pg_main", CronString: "0 0 3 * * *", IsActive: true},
				{JobName: "mysql_web", CronString: "61 * * * *", IsActive: true},
			})
			So(scheduled, ShouldBeEmpty)
			So(s.Active(), ShouldBeEmpty)
		})

		Convey("Inactive and unknown entries are skipped", func() {
			scheduled := s.Apply([]domain.ScheduleEntry{
				{JobName: "pg_main", CronString: "0 3 * * *", IsActive: false},
				{JobName: "ghost", CronString: "0 3 * * *", IsActive: true},
				{JobName: "mysql_web", CronString: "0 4 * * *", IsActive: true},
			})
			So(scheduled, ShouldResemble, []string{"mysql_web"})
		})

		Convey("The first entry wins for a duplicated job", func() {
			scheduled := s.Apply([]domain.ScheduleEntry{
				{JobName: "pg_main", CronString: "0 3 * * *", IsActive: true},
				{JobName: "pg_main", CronString: "0 5 * * *", IsActive: true},
			})
			So(scheduled, ShouldResemble, []string{"pg_main"})

			next, _ := s.Next("pg_main", time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local))
			So(next.Hour(), ShouldEqual, 3)
		})

		Convey("Apply replaces the whole set and is idempotent", func() {
			entries := []domain.ScheduleEntry{
				{JobName: "pg_main", CronString: "0 3 * * *", IsActive: true},
				{JobName: "mysql_web", CronString: "30 1 * * 0", IsActive: true},
			}
			s.Apply(entries)
			s.Apply(entries)
			So(s.Active(), ShouldHaveLength, 2)
			So(s.cron.Entries(), ShouldHaveLength, 2)

			s.Apply(entries[1:])
			So(s.Active(), ShouldResemble, []string{"mysql_web"})
			So(s.cron.Entries(), ShouldHaveLength, 1)

			s.Apply(nil)
			So(s.Active(), ShouldBeEmpty)
			So(s.cron.Entries(), ShouldBeEmpty)
		})

		Convey("Next is safe while schedules are being replaced", func() {
			entries := []domain.ScheduleEntry{
				{JobName: "pg_main", CronString: "0 3 * * *", IsActive: true},
			}
			s.Start(context.Background())
			defer s.Stop()

			done := make(chan struct{})
			go func() {
				defer close(done)
				for i := 0; i < 200; i++ {
					s.Apply(entries)
					s.Apply(nil)
				}
			}()

			So(func() {
				for i := 0; i < 200; i++ {
					s.Next("pg_main", time.Now())
				}
			}, ShouldNotPanic)
			<-done

			_, ok := s.Next("pg_main", time.Now())
			So(ok, ShouldBeFalse)
		})

		Convey("A trigger runs a backup of its job", func() {
			s.Apply([]domain.ScheduleEntry{
				{JobName: "pg_main", CronString: "0 3 * * *", IsActive: true},
			})

			s.cron.Entry(s.entries["pg_main"]).WrappedJob.Run()

			So(runner.Calls(), ShouldResemble, []string{"pg_main"})
		})

		Convey("A failing or panicking run does not escape the trigger", func() {
			s.Apply([]domain.ScheduleEntry{
				{JobName: "pg_main", CronString: "0 3 * * *", IsActive: true},
			})
			job := s.cron.Entry(s.entries["pg_main"]).WrappedJob

			runner.err = errors.New("upload failed")
			So(func() { job.Run() }, ShouldNotPanic)

			runner.panic = true
			So(func() { job.Run() }, ShouldNotPanic)
			So(runner.Calls(), ShouldHaveLength, 2)
		})

		Convey("Start and Stop work with no entries", func() {
			So(func() { s.Start(context.Background()) }, ShouldNotPanic)
			So(func() { s.Stop() }, ShouldNotPanic)
		})
	})
}
