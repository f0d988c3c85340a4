package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/promptvault"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of promptvault",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "promptvault version %s (snapshot format v%d)\n", promptvault.Version, promptvault.SnapshotVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
