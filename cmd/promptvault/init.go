package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/promptvault/pkg/core"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an empty prompt library",
	Long:  `Create the configured store (directory or database) and write empty prompt and note collections if none exist.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *core.Service) error {
			err := svc.Write(func(lib *core.Library) error {
				return lib.Persist(ctx)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized prompt library (%s) with %d prompts\n", cfg.Store.Adapter, svc.Library().Len())
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
