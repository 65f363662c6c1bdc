package database

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/semmidev/phylax-agent/internal/domain"
)

type PostgreSQLDatabase struct {
	engine
	sslMode string
}

func NewPostgreSQL(job domain.JobDefinition, tempDir string, comp domain.Compressor, tools *ToolResolver) *PostgreSQLDatabase {
	sslMode := job.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return &PostgreSQLDatabase{
		engine: engine{
			job:        job,
			tempDir:    tempDir,
			compressor: comp,
			tools:      tools,
		},
		sslMode: sslMode,
	}
}

func (p *PostgreSQLDatabase) GetType() domain.EngineType {
	return domain.PostgreSQL
}

func (p *PostgreSQLDatabase) connArgs() []string {
	return []string{
		"--host=" + p.job.Host,
		"--port=" + strconv.Itoa(p.job.Port),
		"--username=" + p.job.Username,
		"--no-password",
	}
}

func (p *PostgreSQLDatabase) env() []string {
	return append(os.Environ(),
		"PGPASSWORD="+p.job.Password,
		"PGSSLMODE="+p.sslMode,
	)
}

func (p *PostgreSQLDatabase) Backup(ctx context.Context) (domain.Artifact, error) {
	return p.backup(ctx, ".sql", func(ctx context.Context, rawPath string) error {
		args := append(p.connArgs(), "--dbname="+p.job.Database)
		return p.dumpToFile(ctx, "pg_dump", args, p.env(), rawPath)
	})
}

// Restore drops and recreates the database before loading the dump. A
// failure after the drop leaves the database absent or partially loaded.
func (p *PostgreSQLDatabase) Restore(ctx context.Context, rawPath string) error {
	env := p.env()

	if err := p.run(ctx, "dropdb", append(p.connArgs(), "--if-exists", p.job.Database), env, ""); err != nil {
		return err
	}
	if err := p.run(ctx, "createdb", append(p.connArgs(), p.job.Database), env, ""); err != nil {
		return err
	}

	args := append(p.connArgs(), "--dbname="+p.job.Database, "--quiet", "--set=ON_ERROR_STOP=1")
	return p.run(ctx, "psql", args, env, rawPath)
}

func (p *PostgreSQLDatabase) Ping(ctx context.Context) error {
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.job.Username, p.job.Password),
		Host:     net.JoinHostPort(p.job.Host, strconv.Itoa(p.job.Port)),
		Path:     p.job.Database,
		RawQuery: url.Values{"sslmode": []string{p.sslMode}}.Encode(),
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn.String())
	if err != nil {
		return fmt.Errorf("postgresql ping failed: %w", err)
	}
	return db.Close()
}
