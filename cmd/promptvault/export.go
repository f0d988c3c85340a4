package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/promptvault/pkg/adapters/fs"
	"github.com/aretw0/promptvault/pkg/core"
	"github.com/aretw0/promptvault/pkg/snapshot"
)

var (
	exportOutput string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the library as a versioned snapshot",
	Long: `Export the library as a snapshot file. The default file name is
prompt-library-export-<timestamp>.json in the working directory; use -o - to
write to stdout. The format follows --format or the output extension.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		output := exportOutput
		if output == "" {
			output = snapshot.Filename(now)
			if exportFormat != "" {
				output = strings.TrimSuffix(output, ".json") + "." + exportFormat
			}
		}

		format, err := pickFormat(exportFormat, output)
		if err != nil {
			return err
		}
		codec := snapshot.New(
			snapshot.WithFormat(format),
			snapshot.WithLogger(slog.Default()),
			snapshot.WithClock(func() time.Time { return now }),
		)

		return withService(cmd, func(ctx context.Context, svc *core.Service) error {
			var data []byte
			err := svc.Read(func(lib *core.Library) error {
				var err error
				data, err = codec.Export(lib)
				return err
			})
			if err != nil {
				return err
			}

			if output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := fs.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d prompts to %s\n", svc.Library().Len(), output)
			return nil
		}, readOnly())
	},
}

// pickFormat resolves an explicit format name, falling back to the file
// extension of path.
func pickFormat(name, path string) (snapshot.Format, error) {
	if name != "" {
		return snapshot.FormatFor("snapshot." + name)
	}
	if path == "-" {
		return snapshot.JSONFormat{}, nil
	}
	return snapshot.FormatFor(filepath.Base(path))
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file, or - for stdout")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "Snapshot format: json or yaml")
}
