package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/promptvault/internal/platform"
	"github.com/aretw0/promptvault/pkg/core"
)

var (
	verbose   bool
	cfgFile   string
	adapter   string
	storePath string

	cfg *platform.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "promptvault",
	Short: "A local prompt library with notes, exports and safe imports",
	Long: `promptvault keeps a library of prompts and notes in a local store
(a directory of JSON files, a SQLite database, or memory). Exports are
versioned snapshots; imports replace the library or merge into it with a
decision for every duplicate, and a failed write is rolled back.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		root, _ := platform.FindRoot(".")
		file := cfgFile
		if file == "" && root != "" {
			if candidate := filepath.Join(root, platform.ConfigName+".yaml"); fileExists(candidate) {
				file = candidate
			}
		}
		loaded, err := platform.LoadConfig(file)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("adapter") {
			loaded.Store.Adapter = adapter
		}
		if cmd.Flags().Changed("path") {
			loaded.Store.Path = storePath
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		// Commands work from any subdirectory of the library root.
		if loaded.Store.Path == "" && root != "" && loaded.Store.Adapter != platform.AdapterMemory {
			loaded.Store.Path = filepath.Join(root, platform.DefaultPath(loaded.Store.Adapter))
		}
		cfg = loaded

		level, _ := cfg.LogLevel()
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./promptvault.yaml or $HOME/.promptvault/promptvault.yaml)")
	rootCmd.PersistentFlags().StringVar(&adapter, "adapter", "", "Storage adapter: fs, sqlite or memory")
	rootCmd.PersistentFlags().StringVar(&storePath, "path", "", "Store location (directory for fs, database file for sqlite)")
}

// openService opens the configured library. The caller closes it with
// platform.Close.
func openService(ctx context.Context, extra ...platform.Option) (*core.Service, error) {
	opts := append(cfg.Options(), platform.WithLogger(slog.Default()))
	opts = append(opts, extra...)
	svc, err := platform.New(ctx, cfg.Store.Path, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}
	return svc, nil
}

// withService runs fn against the configured library and closes it afterwards.
func withService(cmd *cobra.Command, fn func(ctx context.Context, svc *core.Service) error, extra ...platform.Option) error {
	ctx := cmd.Context()
	svc, err := openService(ctx, extra...)
	if err != nil {
		return err
	}
	defer platform.Close(svc)
	return fn(ctx, svc)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func readOnly() platform.Option {
	return platform.WithReadOnly(true)
}
