package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/promptvault/pkg/core"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a prompt and its notes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *core.Service) error {
			id, err := resolveID(ctx, svc, args[0])
			if err != nil {
				return err
			}
			if err := svc.DeletePrompt(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Prompt '%s' deleted.\n", id)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
