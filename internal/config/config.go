package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/semmidev/phylax-agent/internal/domain"
)

const EnvPrefix = "PHYLAX"

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Agent  AgentConfig  `mapstructure:"agent"`
	Log    LogConfig    `mapstructure:"log"`
	Notify NotifyConfig `mapstructure:"notify"`
	Jobs   []JobConfig  `mapstructure:"jobs"`
}

type ServerConfig struct {
	URL               string        `mapstructure:"url"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	ReconnectInterval time.Duration `mapstructure:"reconnect_interval"`
}

type AgentConfig struct {
	TempDir          string        `mapstructure:"temp_dir"`
	CredentialsFile  string        `mapstructure:"credentials_file"`
	StaleArtifactAge time.Duration `mapstructure:"stale_artifact_age"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

type JobConfig struct {
	Name     string `mapstructure:"name"`
	Type     string `mapstructure:"type"`
	Bucket   string `mapstructure:"bucket"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`

	// PostgreSQL specific
	SSLMode string `mapstructure:"ssl_mode"`

	// MongoDB specific
	AuthDatabase string `mapstructure:"auth_database"`
}

var defaultPorts = map[domain.EngineType]int{
	domain.PostgreSQL: 5432,
	domain.MySQL:      3306,
	domain.MongoDB:    27017,
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.url", "http://127.0.0.1:8000")
	v.SetDefault("server.request_timeout", "30m")
	v.SetDefault("server.reconnect_interval", "5s")
	v.SetDefault("agent.temp_dir", filepath.Join(os.TempDir(), "phylax-agent"))
	v.SetDefault("agent.credentials_file", "phylax-agent.ini")
	v.SetDefault("agent.stale_artifact_age", "24h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("notify.telegram.enabled", false)
	v.SetDefault("notify.telegram.bot_token", "")
	v.SetDefault("notify.telegram.chat_id", "")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid config: %v", domain.ErrConfigMissing, err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server.url is required")
	}
	if c.Agent.TempDir == "" {
		return fmt.Errorf("agent.temp_dir is required")
	}
	if c.Agent.CredentialsFile == "" {
		return fmt.Errorf("agent.credentials_file is required")
	}
	if c.Notify.Telegram.Enabled && (c.Notify.Telegram.BotToken == "" || c.Notify.Telegram.ChatID == "") {
		return fmt.Errorf("notify.telegram: bot_token and chat_id are required when enabled")
	}

	if len(c.Jobs) == 0 {
		return fmt.Errorf("at least one job configuration is required")
	}

	seen := make(map[string]bool, len(c.Jobs))
	for i, job := range c.Jobs {
		if job.Name == "" {
			return fmt.Errorf("jobs[%d]: name is required", i)
		}
		if seen[job.Name] {
			return fmt.Errorf("jobs[%d]: duplicate job name %q", i, job.Name)
		}
		seen[job.Name] = true

		if _, ok := defaultPorts[domain.EngineType(job.Type)]; !ok {
			return fmt.Errorf("jobs[%d]: unsupported type %q", i, job.Type)
		}
		if job.Bucket == "" {
			return fmt.Errorf("jobs[%d]: bucket is required", i)
		}
		if job.Host == "" {
			return fmt.Errorf("jobs[%d]: host is required", i)
		}
		if job.Database == "" {
			return fmt.Errorf("jobs[%d]: database is required", i)
		}
	}

	return nil
}

// JobSet converts the job list into the immutable set used at runtime.
func (c *Config) JobSet() domain.JobSet {
	jobs := make(domain.JobSet, len(c.Jobs))
	for _, j := range c.Jobs {
		engine := domain.EngineType(j.Type)
		port := j.Port
		if port == 0 {
			port = defaultPorts[engine]
		}
		jobs[j.Name] = domain.JobDefinition{
			Name:         j.Name,
			Type:         engine,
			Bucket:       j.Bucket,
			Host:         j.Host,
			Port:         port,
			Username:     j.Username,
			Password:     j.Password,
			Database:     j.Database,
			SSLMode:      j.SSLMode,
			AuthDatabase: j.AuthDatabase,
		}
	}
	return jobs
}
