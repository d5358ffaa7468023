package commands

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"chronicler/internal/store"
	"chronicler/pkg/config"
	"chronicler/pkg/logline"
)

// AvatarsOptions holds command-line options for the avatars command.
type AvatarsOptions struct {
	Config string
	Select string
}

// NewAvatarsCommand creates the avatars command.
func NewAvatarsCommand() *cobra.Command {
	opts := &AvatarsOptions{}

	cmd := &cobra.Command{
		Use:   "avatars",
		Short: "List avatars found in the chat logs",
		Long: `List every avatar with chat logs in the log directory. The selected
avatar, marked with *, is the default for commands that take one;
--select persists the selection in the local store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAvatars(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "Config file (default $XDG_CONFIG_HOME/chronicler/config.yaml)")
	cmd.Flags().StringVar(&opts.Select, "select", "", "Persist this avatar as the default")

	return cmd
}

func runAvatars(cmd *cobra.Command, opts *AvatarsOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return err
	}
	names, err := logline.Avatars(cfg.LogDir)
	if err != nil {
		return err
	}

	if opts.Select != "" {
		if !slices.Contains(names, opts.Select) {
			return fmt.Errorf("no chat logs for avatar %q in %s", opts.Select, cfg.LogDir)
		}
		st, err := store.Open(cfg.StorePath, nil)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.SetSetting(ctx, settingAvatar, opts.Select); err != nil {
			return err
		}
		fmt.Printf("Selected %s\n", opts.Select)
		return nil
	}

	if len(names) == 0 {
		fmt.Printf("No chat logs in %s\n", cfg.LogDir)
		return nil
	}

	current := cfg.Avatar
	if current == "" {
		if st, err := store.Open(cfg.StorePath, nil); err == nil {
			if v, err := st.Setting(ctx, settingAvatar); err == nil {
				current = v
			}
			st.Close()
		}
	}

	for _, name := range names {
		marker := "  "
		if name == current {
			marker = "* "
		}
		fmt.Printf("%s%s\n", marker, name)
	}
	return nil
}
