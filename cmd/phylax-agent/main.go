package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/semmidev/phylax-agent/internal/app"
	"github.com/semmidev/phylax-agent/internal/config"
	"github.com/semmidev/phylax-agent/internal/domain"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, exitMessage(err))
		os.Exit(1)
	}
}

func exitMessage(err error) string {
	if domain.IsOperational(err) {
		return "operational error: " + err.Error()
	}
	return "unexpected error: " + err.Error()
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "phylax-agent",
		Short:         "Database backup agent driven by a control plane",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "path to config file")

	// withApp loads config, builds the app and runs fn under a signal-aware
	// context.
	withApp := func(fn func(ctx context.Context, a *app.App) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a, err := app.New(cfg)
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}
			defer a.Shutdown()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return fn(ctx, a)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "generate-key",
			Short: "Create a new encryption key and store it in the credentials file",
			Args:  cobra.NoArgs,
			RunE: withApp(func(ctx context.Context, a *app.App) error {
				key, err := a.GenerateKey()
				if err != nil {
					return err
				}
				fmt.Println("Encryption key generated. Keep a copy somewhere safe, backups cannot be restored without it:")
				fmt.Println(key)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "listen",
			Short: "Connect to the control plane and serve scheduled and remote commands",
			Args:  cobra.NoArgs,
			RunE: withApp(func(ctx context.Context, a *app.App) error {
				return a.Listen(ctx)
			}),
		},
	)

	var job, file string
	requireJob := func() error {
		if job == "" {
			return fmt.Errorf("%w: --job is required", domain.ErrInvalidCommand)
		}
		return nil
	}

	backupCmd := &cobra.Command{
		Use:   "run-backup",
		Short: "Back up one job now",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app.App) error {
			if err := requireJob(); err != nil {
				return err
			}
			return a.RunBackup(ctx, job)
		}),
	}

	listCmd := &cobra.Command{
		Use:   "run-list",
		Short: "List the stored backups of one job",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app.App) error {
			if err := requireJob(); err != nil {
				return err
			}
			files, err := a.ListBackups(ctx, job)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Println(f)
			}
			return nil
		}),
	}

	restoreCmd := &cobra.Command{
		Use:   "run-restore",
		Short: "Restore one job from a stored backup",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app.App) error {
			if err := requireJob(); err != nil {
				return err
			}
			if file == "" {
				return fmt.Errorf("%w: --file is required", domain.ErrInvalidCommand)
			}
			return a.RunRestore(ctx, job, file)
		}),
	}

	for _, c := range []*cobra.Command{backupCmd, listCmd, restoreCmd} {
		c.Flags().StringVar(&job, "job", "", "job name from the config file")
	}
	restoreCmd.Flags().StringVar(&file, "file", "", "object name of the backup to restore")

	root.AddCommand(backupCmd, listCmd, restoreCmd)
	return root
}
