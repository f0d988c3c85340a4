package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/promptvault/pkg/core"
)

var (
	addTitle   string
	addContent string
	addModel   string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a prompt",
	Long:  `Add a prompt to the library. Use --content - to read the content from stdin.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		content := addContent
		if content == "-" {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read content: %w", err)
			}
			content = string(data)
		}

		return withService(cmd, func(ctx context.Context, svc *core.Service) error {
			p, err := svc.AddPrompt(ctx, addTitle, strings.TrimRight(content, "\n"), addModel)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Prompt '%s' added (%s)\n", p.Title, p.ID)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addTitle, "title", "t", "", "Prompt title")
	addCmd.Flags().StringVarP(&addContent, "content", "c", "", "Prompt content, or - for stdin")
	addCmd.Flags().StringVarP(&addModel, "model", "m", "", "Model the prompt targets")
	_ = addCmd.MarkFlagRequired("title")
	_ = addCmd.MarkFlagRequired("content")
	_ = addCmd.MarkFlagRequired("model")
}
