package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLogger(t *testing.T) {
	Convey("Given the Logger package", t, func() {
		Convey("New function", func() {
			Convey("When creating a logger with console output only", func() {
				logger, err := New(Config{Level: "info"})

				Convey("It should create a logger successfully", func() {
					So(err, ShouldBeNil)
					So(logger, ShouldNotBeNil)
					So(func() { logger.Info("Test log") }, ShouldNotPanic)
				})
			})

			Convey("When creating a logger with a valid log file", func() {
				tempDir, err := os.MkdirTemp("", "logger_test")
				So(err, ShouldBeNil)
				defer os.RemoveAll(tempDir)

				logFile := filepath.Join(tempDir, "agent.log")
				logger, err := New(Config{Level: "debug", File: logFile})

				Convey("It should write JSON lines with the structured fields", func() {
					So(err, ShouldBeNil)

					logger.Errorw("backup failed", "job", "pg_main", "stage", "dump")
					logger.Close()

					content, err := os.ReadFile(logFile)
					So(err, ShouldBeNil)
					line := strings.TrimSpace(string(content))
					So(line, ShouldContainSubstring, `"msg":"backup failed"`)
					So(line, ShouldContainSubstring, `"job":"pg_main"`)
					So(line, ShouldContainSubstring, `"stage":"dump"`)
				})
			})

			Convey("When creating a logger with an invalid log level", func() {
				logger, err := New(Config{Level: "invalid"})

				Convey("It should default to Info level", func() {
					So(err, ShouldBeNil)
					So(logger.Desugar().Core().Enabled(-1), ShouldBeFalse)
					So(logger.Desugar().Core().Enabled(0), ShouldBeTrue)
				})
			})

			Convey("When creating a logger with an invalid log file path", func() {
				tempDir, err := os.MkdirTemp("", "logger_test")
				So(err, ShouldBeNil)
				defer os.RemoveAll(tempDir)

				blocker := filepath.Join(tempDir, "not-a-dir")
				So(os.WriteFile(blocker, []byte("x"), 0600), ShouldBeNil)

				logger, err := New(Config{Level: "info", File: filepath.Join(blocker, "agent.log")})

				Convey("It should return an error", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "failed to create log directory")
					So(logger, ShouldBeNil)
				})
			})
		})

		Convey("Named and Nop", func() {
			tempDir, err := os.MkdirTemp("", "logger_test")
			So(err, ShouldBeNil)
			defer os.RemoveAll(tempDir)

			logFile := filepath.Join(tempDir, "agent.log")
			logger, err := New(Config{Level: "info", File: logFile})
			So(err, ShouldBeNil)

			logger.Named("channel").Info("connected")
			logger.Close()

			content, err := os.ReadFile(logFile)
			So(err, ShouldBeNil)
			So(string(content), ShouldContainSubstring, `"logger":"channel"`)

			So(func() { Nop().Named("x").Errorw("dropped", "k", "v") }, ShouldNotPanic)
		})
	})
}
