package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"chronicler/pkg/config"
	"chronicler/pkg/output"
	"chronicler/pkg/stats"
)

// StatsOptions holds command-line options for the stats command.
type StatsOptions struct {
	Config  string
	Avatar  string
	Date    string
	Filter  string
	Resists bool
	Output  string
	Verbose bool
	Quiet   bool
}

// NewStatsCommand creates the stats command.
func NewStatsCommand() *cobra.Command {
	opts := &StatsOptions{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Read the latest /stats snapshot from a chat log",
		Long: `Print the newest stats snapshot the avatar dumped into the chat log
with the in-game /stats command. Values are shown as name/value pairs;
--resists folds the attunement and resistance stats into effective
per-school resists the way the character sheet shows them.

Example:
  chronicler stats --resists
  chronicler stats --date 2026-08-20 --filter strength`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "Config file (default $XDG_CONFIG_HOME/chronicler/config.yaml)")
	cmd.Flags().StringVarP(&opts.Avatar, "avatar", "a", "", "Avatar name (default from config or store)")
	cmd.Flags().StringVar(&opts.Date, "date", "", "Log date to read (YYYY-MM-DD, default today)")
	cmd.Flags().StringVarP(&opts.Filter, "filter", "f", "", "Only stats whose name contains this")
	cmd.Flags().BoolVar(&opts.Resists, "resists", false, "Include the effective per-school resists")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Verbose output")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Snapshot timestamp only")

	return cmd
}

func runStats(cmd *cobra.Command, opts *StatsOptions) error {
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

	date := today()
	if opts.Date != "" {
		if date, err = parseDate(opts.Date); err != nil {
			return err
		}
	}

	lines, sources, err := readLogs(ctx, cfg, avatar, date, date)
	if err != nil {
		return err
	}
	snaps := stats.Parse(lines)
	if len(snaps) == 0 {
		return fmt.Errorf("no /stats snapshot in %s's log for %s (type /stats in game first)",
			avatar, date.Format(dateLayout))
	}
	snap := &snaps[len(snaps)-1]

	pairs := snap.Pairs()
	if opts.Filter != "" {
		needle := strings.ToLower(opts.Filter)
		pairs = stats.Filter(pairs, func(name string) bool {
			return strings.Contains(strings.ToLower(name), needle)
		})
		if len(pairs) == 0 {
			return fmt.Errorf("no stat matches %q", opts.Filter)
		}
	}

	var resists []stats.SchoolResist
	if opts.Resists {
		resists = stats.Resists(snap.Pairs())
	}

	formatter, err := createFormatter(opts.Output, opts.Verbose, opts.Quiet)
	if err != nil {
		return err
	}
	report := output.NewStatsReport(snap, pairs, resists, reportMeta(avatar, sources...))
	if err := formatter.Format(ctx, report, os.Stdout); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	return nil
}
