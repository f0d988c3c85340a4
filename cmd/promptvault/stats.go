package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/aretw0/promptvault/pkg/core"
	"github.com/aretw0/promptvault/pkg/snapshot"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show library statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *core.Service) error {
			var st core.Stats
			var notes int
			_ = svc.Read(func(lib *core.Library) error {
				st = snapshot.ComputeStats(lib.Prompts())
				for _, group := range lib.Notes() {
					notes += len(group)
				}
				return nil
			})

			out := cmd.OutOrStdout()
			if statsJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					core.Stats
					TotalNotes int `json:"totalNotes"`
				}{st, notes})
			}

			model := "-"
			if st.MostUsedModel != nil {
				model = *st.MostUsedModel
			}
			fmt.Fprintf(out, "Prompts:         %s\n", humanize.Comma(int64(st.TotalPrompts)))
			fmt.Fprintf(out, "Notes:           %s\n", humanize.Comma(int64(notes)))
			fmt.Fprintf(out, "Average rating:  %.2f\n", st.AverageRating)
			fmt.Fprintf(out, "Most used model: %s\n", model)
			return nil
		}, readOnly())
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output in JSON format")
}
