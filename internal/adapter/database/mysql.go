package database

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/semmidev/phylax-agent/internal/domain"
)

type MySQLDatabase struct {
	engine
}

func NewMySQL(job domain.JobDefinition, tempDir string, comp domain.Compressor, tools *ToolResolver) *MySQLDatabase {
	return &MySQLDatabase{engine: engine{
		job:        job,
		tempDir:    tempDir,
		compressor: comp,
		tools:      tools,
	}}
}

func (m *MySQLDatabase) GetType() domain.EngineType {
	return domain.MySQL
}

func (m *MySQLDatabase) connArgs() []string {
	return []string{
		"--host=" + m.job.Host,
		"--port=" + strconv.Itoa(m.job.Port),
		"--user=" + m.job.Username,
	}
}

// The password travels in MYSQL_PWD so it never shows up in the process list.
func (m *MySQLDatabase) env() []string {
	return append(os.Environ(), "MYSQL_PWD="+m.job.Password)
}

func (m *MySQLDatabase) Backup(ctx context.Context) (domain.Artifact, error) {
	return m.backup(ctx, ".sql", func(ctx context.Context, rawPath string) error {
		args := append(m.connArgs(),
			"--single-transaction",
			"--routines",
			"--triggers",
			m.job.Database,
		)
		return m.dumpToFile(ctx, "mysqldump", args, m.env(), rawPath)
	})
}

func (m *MySQLDatabase) Restore(ctx context.Context, rawPath string) error {
	return m.run(ctx, "mysql", append(m.connArgs(), m.job.Database), m.env(), rawPath)
}

func (m *MySQLDatabase) Ping(ctx context.Context) error {
	cfg := mysql.NewConfig()
	cfg.User = m.job.Username
	cfg.Passwd = m.job.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(m.job.Host, strconv.Itoa(m.job.Port))
	cfg.DBName = m.job.Database

	db, err := sqlx.ConnectContext(ctx, "mysql", cfg.FormatDSN())
	if err != nil {
		return fmt.Errorf("mysql ping failed: %w", err)
	}
	return db.Close()
}
