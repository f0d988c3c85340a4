package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/aretw0/promptvault/pkg/core"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a prompt and its notes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *core.Service) error {
			id, err := resolveID(ctx, svc, args[0])
			if err != nil {
				return err
			}
			p, err := svc.GetPrompt(ctx, id)
			if err != nil {
				return err
			}
			notes, err := svc.Notes(ctx, id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if showJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Prompt core.Prompt `json:"prompt"`
					Notes  []core.Note `json:"notes"`
				}{p, notes})
			}

			fmt.Fprintf(out, "%s\n%s\n\n", p.Title, p.ID)
			fmt.Fprintf(out, "Model:   %s\n", p.Model())
			fmt.Fprintf(out, "Rating:  %s\n", stars(p))
			fmt.Fprintf(out, "Updated: %s\n", updated(p))
			if p.Metadata != nil {
				est := p.Metadata.TokenEstimate
				fmt.Fprintf(out, "Tokens:  %s-%s (%s)\n", humanize.Comma(int64(est.Min)), humanize.Comma(int64(est.Max)), est.Confidence)
			}
			fmt.Fprintf(out, "\n%s\n", p.Content)
			if len(notes) > 0 {
				fmt.Fprintf(out, "\nNotes:\n")
				printNotes(out, notes)
			}
			return nil
		}, readOnly())
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output in JSON format")
}
