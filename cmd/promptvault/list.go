package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/aretw0/promptvault/pkg/core"
	"github.com/aretw0/promptvault/pkg/metadata"
)

var (
	listJSON      bool
	listMatch     string
	listMinRating int
	listWords     int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List prompts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *core.Service) error {
			prompts, err := svc.ListPrompts(ctx, core.ListOptions{Match: listMatch, MinRating: listMinRating})
			if err != nil {
				return err
			}

			if listJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(prompts)
			}
			return printPrompts(cmd.OutOrStdout(), prompts, listWords)
		}, readOnly())
	},
}

func printPrompts(w io.Writer, prompts []core.Prompt, words int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tMODEL\tRATING\tUPDATED\tPREVIEW")
	for _, p := range prompts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(p.ID), p.Title, p.Model(), stars(p), updated(p), core.Preview(p.Content, words))
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func stars(p core.Prompt) string {
	if p.RatingValue() == 0 {
		return "-"
	}
	return strings.Repeat("*", p.RatingValue())
}

// updated renders the last change relative to now.
func updated(p core.Prompt) string {
	if p.Metadata != nil {
		if t, err := metadata.Parse(p.Metadata.UpdatedAt); err == nil {
			return humanize.Time(t)
		}
	}
	if p.CreatedAt > 0 {
		return humanize.Time(time.UnixMilli(p.CreatedAt))
	}
	return "-"
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().StringVar(&listMatch, "match", "", "Glob matched against title and model")
	listCmd.Flags().IntVar(&listMinRating, "min-rating", 0, "Only prompts rated at least this")
	listCmd.Flags().IntVar(&listWords, "words", 8, "Preview length in words")
}
