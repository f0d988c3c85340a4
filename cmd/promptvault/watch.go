package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/lifecycle"
	"github.com/spf13/cobra"

	lcsource "github.com/aretw0/promptvault/pkg/adapters/lifecycle"
	"github.com/aretw0/promptvault/pkg/core"
)

var watchTypes []string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow library changes, including edits made by other processes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *core.Service) error {
			w, ok := svc.Library().Store().(core.Watchable)
			if !ok {
				return fmt.Errorf("the %s adapter cannot be watched", cfg.Store.Adapter)
			}
			external, err := w.Watch(ctx)
			if err != nil {
				return fmt.Errorf("failed to watch store: %w", err)
			}

			types := make([]core.EventType, 0, len(watchTypes))
			for _, t := range watchTypes {
				types = append(types, core.EventType(strings.ToUpper(t)))
			}
			src := lcsource.NewSource(svc.Subscribe(ctx), types...)
			if err := src.Start(ctx); err != nil {
				return err
			}

			// External writes replace what we hold in memory.
			lifecycle.Go(ctx, func(ctx context.Context) error {
				for e := range external {
					if err := svc.Reload(ctx); err != nil {
						slog.Warn("failed to reload library", "key", e.ID, "error", err)
						continue
					}
					svc.Publish(e)
				}
				return nil
			})

			slog.Info("watching library", "adapter", cfg.Store.Adapter, "prompts", svc.Library().Len())
			for e := range src.Events() {
				fmt.Fprintln(cmd.OutOrStdout(), e.String())
			}
			return nil
		}, readOnly())
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringSliceVar(&watchTypes, "type", nil, "Only show these event types (create, modify, delete, merge, replace, external)")
}
