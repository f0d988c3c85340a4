package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/aretw0/promptvault/pkg/backup"
	"github.com/aretw0/promptvault/pkg/core"
)

var (
	backupDir        string
	backupKeep       int
	backupVersioning bool
	backupSchedule   string
	backupDaemon     bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write a snapshot backup, once or on a schedule",
	Long: `Write a snapshot of the library into the backup directory and keep only
the newest --keep files. With --versioning every backup is committed to a
git repository in that directory. With --daemon backups run on the cron
--schedule until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *core.Service) error {
			runner := newRunner(cmd, svc)
			if !backupDaemon {
				res, err := runner.Run(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", res.Path)
				if len(res.Pruned) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d old backups\n", len(res.Pruned))
				}
				return nil
			}

			if err := runner.Start(ctx); err != nil {
				return err
			}
			slog.Info("backup scheduler started", "schedule", backupConfig(cmd).Schedule, "next", runner.Next())
			<-ctx.Done()
			if last := runner.Last(); last != nil {
				slog.Info("backup scheduler stopped", "last", last.Path)
			}
			return nil
		}, readOnly())
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner := backup.New(nil, backupConfig(cmd))
		files, err := runner.List()
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Fprintln(cmd.OutOrStdout(), filepath.Base(f))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s backups\n", humanize.Comma(int64(len(files))))
		return nil
	},
}

// backupConfig merges flags over the config file.
func backupConfig(cmd *cobra.Command) backup.Config {
	c := backup.Config{
		Dir:        cfg.Backup.Dir,
		Keep:       cfg.Backup.Keep,
		Versioning: cfg.Backup.Versioning,
		Schedule:   cfg.Backup.Schedule,
		Logger:     slog.Default(),
	}
	flags := cmd.Flags()
	if flags.Changed("dir") {
		c.Dir = backupDir
	}
	if flags.Changed("keep") {
		c.Keep = backupKeep
	}
	if flags.Changed("versioning") {
		c.Versioning = backupVersioning
	}
	if flags.Changed("schedule") {
		c.Schedule = backupSchedule
	}
	return c
}

func newRunner(cmd *cobra.Command, svc *core.Service) *backup.Runner {
	return backup.New(svc, backupConfig(cmd))
}

func init() {
	backupCmd.PersistentFlags().StringVar(&backupDir, "dir", "", "Backup directory (default from config)")
	backupCmd.Flags().IntVar(&backupKeep, "keep", 0, "Backups to keep, 0 keeps all (default from config)")
	backupCmd.Flags().BoolVar(&backupVersioning, "versioning", false, "Commit backups to git")
	backupCmd.Flags().StringVar(&backupSchedule, "schedule", "", "Cron schedule for --daemon (default from config)")
	backupCmd.Flags().BoolVar(&backupDaemon, "daemon", false, "Keep running and back up on the schedule")
	backupCmd.AddCommand(backupListCmd)
	rootCmd.AddCommand(backupCmd)
}
