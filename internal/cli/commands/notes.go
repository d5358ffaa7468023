package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chronicler/internal/store"
	"chronicler/pkg/config"
)

// NotesOptions holds command-line options for the notes command.
type NotesOptions struct {
	Config string
	Avatar string
	Clear  bool
}

// NewNotesCommand creates the notes command.
func NewNotesCommand() *cobra.Command {
	opts := &NotesOptions{}

	cmd := &cobra.Command{
		Use:   "notes [text...]",
		Short: "Per-avatar notes in the local store",
		Long: `Show the avatar's note, or replace it when text is given. One note
is kept per avatar.

Example:
  chronicler notes
  chronicler notes bank alt has the obsidian chips
  chronicler notes --clear`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNotes(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "Config file (default $XDG_CONFIG_HOME/chronicler/config.yaml)")
	cmd.Flags().StringVarP(&opts.Avatar, "avatar", "a", "", "Avatar name (default from config or store)")
	cmd.Flags().BoolVar(&opts.Clear, "clear", false, "Delete the avatar's note")

	return cmd
}

func runNotes(cmd *cobra.Command, args []string, opts *NotesOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return err
	}
	avatar, err := resolveAvatar(ctx, opts.Avatar, cfg)
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.StorePath, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.Clear {
		if err := st.SetNote(ctx, avatar, ""); err != nil {
			return err
		}
		fmt.Printf("Cleared note for %s\n", avatar)
		return nil
	}

	if len(args) > 0 {
		if err := st.SetNote(ctx, avatar, strings.Join(args, " ")); err != nil {
			return err
		}
		fmt.Printf("Saved note for %s\n", avatar)
		return nil
	}

	body, updated, err := st.Note(ctx, avatar)
	if err != nil {
		return err
	}
	if body == "" {
		fmt.Printf("No note for %s\n", avatar)
		return nil
	}
	fmt.Printf("%s\n(updated %s)\n", body, updated.Local().Format("2006-01-02 15:04"))
	return nil
}
