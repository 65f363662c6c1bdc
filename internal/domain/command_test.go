package domain

import (
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCommandValidate(t *testing.T) {
	Convey("Given a job set", t, func() {
		jobs := JobSet{
			"pg_main": {Name: "pg_main", Type: PostgreSQL, Bucket: "pg-main-backups"},
		}

		Convey("reload_schedules needs no job", func() {
			So(Command{Action: ActionReloadSchedules}.Validate(jobs), ShouldBeNil)
		})

		Convey("backup of a known job is valid", func() {
			So(Command{Action: ActionBackup, Job: "pg_main"}.Validate(jobs), ShouldBeNil)
		})

		Convey("backup without a job is rejected", func() {
			err := Command{Action: ActionBackup}.Validate(jobs)
			So(errors.Is(err, ErrInvalidCommand), ShouldBeTrue)
		})

		Convey("an unknown job is rejected", func() {
			err := Command{Action: ActionBackup, Job: "nope"}.Validate(jobs)
			So(errors.Is(err, ErrInvalidCommand), ShouldBeTrue)
			So(errors.Is(err, ErrUnknownJob), ShouldBeTrue)
		})

		Convey("restore without a file is rejected", func() {
			err := Command{Action: ActionRestore, Job: "pg_main"}.Validate(jobs)
			So(errors.Is(err, ErrInvalidCommand), ShouldBeTrue)
		})

		Convey("an unknown action is rejected", func() {
			err := Command{Action: "drop_everything", Job: "pg_main"}.Validate(jobs)
			So(errors.Is(err, ErrInvalidCommand), ShouldBeTrue)
		})
	})
}

func TestJobSet(t *testing.T) {
	Convey("Given two jobs", t, func() {
		jobs := JobSet{
			"pg_main":   {Name: "pg_main", Bucket: "pg-main-backups"},
			"mysql_web": {Name: "mysql_web", Bucket: "mysql-web-backups"},
		}

		Convey("Buckets maps every job to its bucket", func() {
			So(jobs.Buckets(), ShouldResemble, map[string]string{
				"pg_main":   "pg-main-backups",
				"mysql_web": "mysql-web-backups",
			})
		})

		Convey("Names are sorted", func() {
			So(jobs.Names(), ShouldResemble, []string{"mysql_web", "pg_main"})
		})
	})
}

func TestArtifactBaseName(t *testing.T) {
	Convey("Given a fixed timestamp", t, func() {
		now := time.Date(2024, 5, 1, 3, 0, 7, 0, time.UTC)

		Convey("names carry the database, the timestamp and a random id", func() {
			name := ArtifactBaseName("shop", now)
			So(name, ShouldStartWith, "shop_20240501_030007_")
			So(regexp.MustCompile(`^shop_20240501_030007_[0-9a-f]{8}$`).MatchString(name), ShouldBeTrue)
		})

		Convey("two names from the same second differ", func() {
			So(ArtifactBaseName("shop", now), ShouldNotEqual, ArtifactBaseName("shop", now))
		})
	})
}

func TestErrorTaxonomy(t *testing.T) {
	Convey("ExternalToolError matches ErrExternalTool and keeps its output", t, func() {
		err := &ExternalToolError{Tool: "pg_dump", Output: "connection refused\n", Err: errors.New("exit status 1")}
		So(errors.Is(err, ErrExternalTool), ShouldBeTrue)
		So(err.Error(), ShouldContainSubstring, "connection refused")
		So(IsOperational(err), ShouldBeTrue)
	})

	Convey("ErrMissingKey is a ConfigMissing error", t, func() {
		So(errors.Is(ErrMissingKey, ErrConfigMissing), ShouldBeTrue)
	})

	Convey("A busy temp dir is operational", t, func() {
		So(IsOperational(fmt.Errorf("%w: /var/tmp/phylax", ErrTempDirInUse)), ShouldBeTrue)
	})

	Convey("Plain errors are not operational", t, func() {
		So(IsOperational(errors.New("boom")), ShouldBeFalse)
	})
}
