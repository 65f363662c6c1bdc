package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/semmidev/phylax-agent/internal/adapter/compressor"
	"github.com/semmidev/phylax-agent/internal/adapter/controlplane"
	"github.com/semmidev/phylax-agent/internal/adapter/credentials"
	"github.com/semmidev/phylax-agent/internal/adapter/crypto"
	"github.com/semmidev/phylax-agent/internal/adapter/database"
	"github.com/semmidev/phylax-agent/internal/adapter/notifier"
	"github.com/semmidev/phylax-agent/internal/channel"
	"github.com/semmidev/phylax-agent/internal/config"
	"github.com/semmidev/phylax-agent/internal/domain"
	"github.com/semmidev/phylax-agent/internal/infrastructure/lock"
	"github.com/semmidev/phylax-agent/internal/infrastructure/logger"
	"github.com/semmidev/phylax-agent/internal/infrastructure/scheduler"
	"github.com/semmidev/phylax-agent/internal/usecase"
)

type App struct {
	config    *config.Config
	logger    *logger.Logger
	jobs      domain.JobSet
	creds     *credentials.Store
	client    *controlplane.Client
	schedules domain.ScheduleSource
	pipeline  *usecase.Pipeline
	scheduler *scheduler.Scheduler
}

func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := os.MkdirAll(cfg.Agent.TempDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	creds, err := credentials.Open(cfg.Agent.CredentialsFile)
	if err != nil {
		return nil, err
	}

	client, err := controlplane.New(cfg.Server.URL, cfg.Server.RequestTimeout, creds)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigMissing, err)
	}

	jobs := cfg.JobSet()
	comp := compressor.NewGzip()

	pipeline := usecase.NewPipeline(usecase.Config{
		Jobs:       jobs,
		Drivers:    database.NewFactory(cfg.Agent.TempDir, comp, creds),
		Storage:    client,
		Cipher:     crypto.NewSecretBox(),
		Compressor: comp,
		Keys:       creds,
		Notifier:   initializeNotifier(cfg, log),
		Logger:     log.Named("pipeline"),
		TempDir:    cfg.Agent.TempDir,
		StaleAge:   cfg.Agent.StaleArtifactAge,
	})

	log.Debugf("Loaded %d job(s): %v", len(jobs), jobs.Names())

	return &App{
		config:    cfg,
		logger:    log,
		jobs:      jobs,
		creds:     creds,
		client:    client,
		schedules: client,
		pipeline:  pipeline,
		scheduler: scheduler.New(jobs, pipeline, log.Named("scheduler")),
	}, nil
}

func initializeNotifier(cfg *config.Config, log *logger.Logger) domain.Notifier {
	tg := cfg.Notify.Telegram
	if !tg.Enabled {
		return notifier.Nop{}
	}
	n, err := notifier.NewTelegram(tg.BotToken, tg.ChatID)
	if err != nil {
		log.Errorf("Failed to initialize Telegram: %v", err)
		return notifier.Nop{}
	}
	log.Infof("✓ Telegram notifications enabled")
	return n
}

// GenerateKey creates and stores a new encryption key.
func (a *App) GenerateKey() (string, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return "", err
	}
	if err := a.creds.SetEncryptionKey(key); err != nil {
		return "", err
	}
	a.logger.Infof("New encryption key stored in %s", a.config.Agent.CredentialsFile)
	return key, nil
}

// EnsureRegistered enrolls this host with the control plane unless an
// access token is already stored.
func (a *App) EnsureRegistered(ctx context.Context) error {
	if a.creds.AccessToken() != "" {
		return nil
	}

	hostname, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("failed to read hostname: %w", err)
	}

	a.logger.Infof("Registering %s with %s...", hostname, a.config.Server.URL)
	token, err := a.client.Register(ctx, hostname, runtime.GOOS)
	if err != nil {
		return fmt.Errorf("register agent: %w", err)
	}
	if err := a.creds.SetAccessToken(token); err != nil {
		return err
	}
	a.logger.Infof("✓ Registered, access token stored")
	return nil
}

// RunBackup runs one backup outside of listen. It holds the temp dir lock
// so a listening agent on the same dir cannot sweep or reuse its files.
func (a *App) RunBackup(ctx context.Context, job string) error {
	return a.withTempDirLock(func() error {
		if err := a.EnsureRegistered(ctx); err != nil {
			return err
		}
		return a.pipeline.RunBackup(ctx, job)
	})
}

// RunRestore runs one restore outside of listen, under the temp dir lock.
func (a *App) RunRestore(ctx context.Context, job, file string) error {
	if err := usecase.ValidateObjectName(file); err != nil {
		return err
	}
	return a.withTempDirLock(func() error {
		if err := a.EnsureRegistered(ctx); err != nil {
			return err
		}
		return a.pipeline.RunRestore(ctx, job, file)
	})
}

func (a *App) withTempDirLock(fn func() error) error {
	l, err := lock.Acquire(a.config.Agent.TempDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Release(); err != nil {
			a.logger.Warnw("failed to release temp dir lock", "error", err)
		}
	}()
	return fn()
}

func (a *App) ListBackups(ctx context.Context, job string) ([]string, error) {
	if err := a.EnsureRegistered(ctx); err != nil {
		return nil, err
	}
	return a.pipeline.ListBackups(ctx, job)
}

// ReloadSchedules fetches the server's schedules and replaces the local
// triggers with them.
func (a *App) ReloadSchedules(ctx context.Context) error {
	entries, err := a.schedules.FetchSchedules(ctx)
	if err != nil {
		return fmt.Errorf("fetch schedules: %w", err)
	}
	active := a.scheduler.Apply(entries)
	a.logger.Infof("Schedules applied: %d active of %d received", len(active), len(entries))
	return nil
}

// Listen serves scheduled and commanded runs until ctx is cancelled.
func (a *App) Listen(ctx context.Context) error {
	if err := a.EnsureRegistered(ctx); err != nil {
		return err
	}
	if len(a.creds.EncryptionKey()) == 0 {
		return domain.ErrMissingKey
	}

	l, err := lock.Acquire(a.config.Agent.TempDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Release(); err != nil {
			a.logger.Warnw("failed to release temp dir lock", "error", err)
		}
	}()

	if removed, err := a.pipeline.SweepStale(time.Now()); err != nil {
		a.logger.Warnw("stale artifact sweep failed", "error", err)
	} else if removed > 0 {
		a.logger.Infof("Removed %d stale artifact(s)", removed)
	}

	a.scheduler.Start(ctx)
	defer a.scheduler.Stop()

	ch := channel.New(channel.Config{
		Jobs:              a.jobs,
		Endpoint:          a.client,
		Handler:           listenHandler{a},
		ReconnectInterval: a.config.Server.ReconnectInterval,
		Logger:            a.logger.Named("channel"),
	})

	a.logger.Infof("Agent listening with %d job(s)", len(a.jobs))
	if err := ch.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// listenHandler serves channel commands. Listen already holds the temp dir
// lock, so runs go straight to the pipeline.
type listenHandler struct {
	app *App
}

func (h listenHandler) RunBackup(ctx context.Context, job string) error {
	return h.app.pipeline.RunBackup(ctx, job)
}

func (h listenHandler) RunRestore(ctx context.Context, job, file string) error {
	return h.app.pipeline.RunRestore(ctx, job, file)
}

func (h listenHandler) ReloadSchedules(ctx context.Context) error {
	return h.app.ReloadSchedules(ctx)
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down agent...")
	a.logger.Close()
}
