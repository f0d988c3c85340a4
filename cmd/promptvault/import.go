package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/promptvault/internal/platform"
	"github.com/aretw0/promptvault/pkg/core"
	"github.com/aretw0/promptvault/pkg/reconcile"
	"github.com/aretw0/promptvault/pkg/snapshot"
)

var (
	importMode       string
	importOnConflict string
	importDecisions  string
	importFormat     string
	importYes        bool
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a snapshot by replacing or merging",
	Long: `Import a snapshot file (or - for stdin).

--mode replace discards the current library. --mode merge (default) appends
new prompts and asks what to do with every prompt whose ID already exists:
keep the current one or overwrite it with the incoming one. Overwritten
prompts also take the incoming notes; existing notes are never lost.
A failed write restores the library as it was before the import.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		format, err := pickFormat(importFormat, args[0])
		if err != nil {
			return err
		}
		decoded, err := snapshot.New(snapshot.WithFormat(format), snapshot.WithLogger(slog.Default())).Decode(data)
		if err != nil {
			return err
		}

		var decider reconcile.Decider
		switch importMode {
		case "merge":
			policy := importOnConflict
			if policy == "" {
				policy = cfg.Import.OnConflict
			}
			decider, err = newDecider(policy, importDecisions, os.Stdin, cmd.ErrOrStderr(), stdinIsTerminal())
			if err != nil {
				return err
			}
		case "replace":
			if !importYes {
				if !stdinIsTerminal() {
					return errors.New("replace discards the current library; pass --yes to confirm")
				}
				question := fmt.Sprintf("Replace the library with %d prompts from %s?", len(decoded.Snapshot.Prompts), args[0])
				if !confirm(os.Stdin, cmd.ErrOrStderr(), question) {
					return errors.New("import cancelled")
				}
			}
		default:
			return fmt.Errorf("unknown import mode %q", importMode)
		}

		return withService(cmd, func(ctx context.Context, svc *core.Service) error {
			engine := platform.NewEngine(svc, append(cfg.Options(), platform.WithLogger(slog.Default()))...)
			var res *reconcile.Result
			err := svc.Write(func(lib *core.Library) error {
				var err error
				if importMode == "replace" {
					res, err = engine.Replace(ctx, lib, decoded)
				} else {
					res, err = engine.Merge(ctx, lib, decoded, decider)
				}
				return err
			})
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), importMode, res)
			return nil
		})
	},
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return data, nil
}

func printResult(w io.Writer, mode string, res *reconcile.Result) {
	if mode == "replace" {
		fmt.Fprintf(w, "Library replaced: %d prompts\n", res.Added)
	} else {
		fmt.Fprintf(w, "Merged: %d added, %d overwritten, %d kept\n", res.Added, res.Overwritten, res.Kept)
	}
	if len(res.DroppedGroups) > 0 {
		fmt.Fprintf(w, "Dropped note groups without a prompt: %v\n", res.DroppedGroups)
	}
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importMode, "mode", "merge", "Import mode: merge or replace")
	importCmd.Flags().StringVar(&importOnConflict, "on-conflict", "", "Duplicate policy: keep, overwrite or ask (default from config)")
	importCmd.Flags().StringVar(&importDecisions, "decisions", "", "YAML file with per-prompt decisions")
	importCmd.Flags().StringVarP(&importFormat, "format", "f", "", "Snapshot format: json or yaml (default from extension)")
	importCmd.Flags().BoolVarP(&importYes, "yes", "y", false, "Do not ask before replacing")
}
