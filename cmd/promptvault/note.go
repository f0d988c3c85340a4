package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/aretw0/promptvault/pkg/core"
)

var noteJSON bool

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Manage the notes of a prompt",
}

var noteAddCmd = &cobra.Command{
	Use:   "add <prompt-id> <text...>",
	Short: "Add a note to a prompt",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *core.Service) error {
			id, err := resolveID(ctx, svc, args[0])
			if err != nil {
				return err
			}
			n, err := svc.AddNote(ctx, id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Note %s added to prompt %s\n", n.NoteID, id)
			return nil
		})
	},
}

var noteEditCmd = &cobra.Command{
	Use:   "edit <prompt-id> <note-id> <text...>",
	Short: "Replace the text of a note",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *core.Service) error {
			id, err := resolveID(ctx, svc, args[0])
			if err != nil {
				return err
			}
			n, err := svc.EditNote(ctx, id, args[1], strings.Join(args[2:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Note %s updated\n", n.NoteID)
			return nil
		})
	},
}

var noteDeleteCmd = &cobra.Command{
	Use:   "delete <prompt-id> <note-id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *core.Service) error {
			id, err := resolveID(ctx, svc, args[0])
			if err != nil {
				return err
			}
			if err := svc.DeleteNote(ctx, id, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Note %s deleted\n", args[1])
			return nil
		})
	},
}

var noteListCmd = &cobra.Command{
	Use:   "list <prompt-id>",
	Short: "List the notes of a prompt, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *core.Service) error {
			id, err := resolveID(ctx, svc, args[0])
			if err != nil {
				return err
			}
			notes, err := svc.Notes(ctx, id)
			if err != nil {
				return err
			}
			if noteJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(notes)
			}
			printNotes(cmd.OutOrStdout(), notes)
			return nil
		}, readOnly())
	},
}

func printNotes(w io.Writer, notes []core.Note) {
	for _, n := range notes {
		when := humanize.Time(time.UnixMilli(n.UpdatedAt))
		fmt.Fprintf(w, "  [%s] %s (%s)\n", n.NoteID, n.Text, when)
	}
}

func init() {
	noteListCmd.Flags().BoolVar(&noteJSON, "json", false, "Output in JSON format")
	noteCmd.AddCommand(noteAddCmd, noteEditCmd, noteDeleteCmd, noteListCmd)
	rootCmd.AddCommand(noteCmd)
}
