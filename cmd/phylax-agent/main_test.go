package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/phylax-agent/internal/domain"
)

func TestExitMessage(t *testing.T) {
	Convey("Taxonomy errors are operational", t, func() {
		err := fmt.Errorf("upload: %w", domain.ErrTransport)
		So(exitMessage(err), ShouldStartWith, "operational error: ")
	})

	Convey("Anything else is unexpected", t, func() {
		So(exitMessage(errors.New("nil map")), ShouldStartWith, "unexpected error: ")
	})
}

func TestRootCmd(t *testing.T) {
	Convey("Given the root command", t, func() {
		dir, err := os.MkdirTemp("", "cli_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)

		cfgPath := filepath.Join(dir, "config.yaml")
		content := fmt.Sprintf(`
agent:
  temp_dir: %s
  credentials_file: %s
log:
  level: error
jobs:
  - {name: pg_main, type: postgresql, bucket: pg-main-backups, host: db1, database: shop}
`, filepath.Join(dir, "tmp"), filepath.Join(dir, "agent.ini"))
		So(os.WriteFile(cfgPath, []byte(content), 0600), ShouldBeNil)

		run := func(args ...string) error {
			root := newRootCmd()
			root.SetOut(&bytes.Buffer{})
			root.SetErr(&bytes.Buffer{})
			root.SetArgs(append([]string{"--config", cfgPath}, args...))
			return root.Execute()
		}

		Convey("generate-key writes the credentials file", func() {
			So(run("generate-key"), ShouldBeNil)
			content, err := os.ReadFile(filepath.Join(dir, "agent.ini"))
			So(err, ShouldBeNil)
			So(string(content), ShouldContainSubstring, "EncryptionKey")
		})

		Convey("run-backup without --job is an invalid command", func() {
			err := run("run-backup")
			So(errors.Is(err, domain.ErrInvalidCommand), ShouldBeTrue)
		})

		Convey("run-restore without --file is an invalid command", func() {
			err := run("run-restore", "--job", "pg_main")
			So(errors.Is(err, domain.ErrInvalidCommand), ShouldBeTrue)
		})

		Convey("A missing config file is reported", func() {
			root := newRootCmd()
			root.SetArgs([]string{"--config", filepath.Join(dir, "absent.yaml"), "generate-key"})
			So(root.Execute(), ShouldNotBeNil)
		})
	})
}
