package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aretw0/promptvault/pkg/core"
)

var rateCmd = &cobra.Command{
	Use:   "rate <id> <0-5>",
	Short: "Rate a prompt from 0 to 5",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rating, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%w: %q", core.ErrInvalidRating, args[1])
		}
		return withService(cmd, func(ctx context.Context, svc *core.Service) error {
			id, err := resolveID(ctx, svc, args[0])
			if err != nil {
				return err
			}
			p, err := svc.RatePrompt(ctx, id, rating)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Prompt '%s' rated %s\n", p.Title, stars(p))
			return nil
		})
	},
}

var touchCmd = &cobra.Command{
	Use:   "touch <id>",
	Short: "Mark a prompt as used now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *core.Service) error {
			id, err := resolveID(ctx, svc, args[0])
			if err != nil {
				return err
			}
			p, err := svc.TouchPrompt(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Prompt '%s' updated at %s\n", p.Title, p.Metadata.UpdatedAt)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(rateCmd)
	rootCmd.AddCommand(touchCmd)
}
