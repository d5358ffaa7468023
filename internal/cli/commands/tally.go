package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chronicler/pkg/aggregate"
	"chronicler/pkg/config"
	"chronicler/pkg/extract"
	"chronicler/pkg/output"
)

// TallyOptions holds command-line options for the tally command.
type TallyOptions struct {
	Config      string
	Avatar      string
	From        string
	To          string
	WindowStart string
	WindowEnd   string
	Rules       string
	Output      string
	Verbose     bool
	Quiet       bool
}

// NewTallyCommand creates the tally command.
func NewTallyCommand() *cobra.Command {
	opts := &TallyOptions{}

	cmd := &cobra.Command{
		Use:   "tally",
		Short: "Aggregate combat numbers from chat logs",
		Long: `Read the avatar's chat logs over a date range and print the combat
summary: damage dealt and taken, DPS, healing, experience rate, death
count and the per-school resist table.

The rated window defaults to the span between the first and last
extracted event; --window-start and --window-end pin it explicitly.
A window under one second is reported as insufficient rather than
rated.

Example:
  chronicler tally --from 2026-08-20 --to 2026-08-24
  chronicler tally --window-start "2026-08-24 20:00:00" --window-end "2026-08-24 21:00:00"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTally(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "Config file (default $XDG_CONFIG_HOME/chronicler/config.yaml)")
	cmd.Flags().StringVarP(&opts.Avatar, "avatar", "a", "", "Avatar name (default from config or store)")
	cmd.Flags().StringVar(&opts.From, "from", "", "First log date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&opts.To, "to", "", "Last log date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&opts.WindowStart, "window-start", "", "Rate only events at or after this time")
	cmd.Flags().StringVar(&opts.WindowEnd, "window-end", "", "Rate only events before this time")
	cmd.Flags().StringVar(&opts.Rules, "rules", "", "Extraction rules file (default from config)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Include the per-kind event counts")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "One-line summary only")
	cmd.MarkFlagsRequiredTogether("window-start", "window-end")

	return cmd
}

func runTally(cmd *cobra.Command, opts *TallyOptions) error {
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
	from, to, err := dateRange(opts.From, opts.To)
	if err != nil {
		return err
	}
	if opts.From == "" && opts.To == "" {
		from, to = today(), today()
	}
	rules, err := config.LoadRules(rulesPath(opts.Rules, cfg))
	if err != nil {
		return err
	}

	lines, sources, err := readLogs(ctx, cfg, avatar, from, to)
	if err != nil {
		return err
	}

	x, err := extract.NewExtractor(rules)
	if err != nil {
		return err
	}
	tally := aggregate.New()
	for _, line := range lines {
		ev, err := x.Extract(line)
		if err != nil {
			tally.NoteExtractionError()
			continue
		}
		if ev != nil {
			tally.Add(*ev)
		}
	}

	var summary aggregate.Summary
	if opts.WindowStart != "" {
		start, err := parseInstant(opts.WindowStart)
		if err != nil {
			return err
		}
		end, err := parseInstant(opts.WindowEnd)
		if err != nil {
			return err
		}
		if !end.After(start) {
			return fmt.Errorf("--window-end %s is not after --window-start %s", opts.WindowEnd, opts.WindowStart)
		}
		summary = tally.SummaryRange(start, end)
	} else {
		summary = tally.Summary()
	}

	formatter, err := createFormatter(opts.Output, opts.Verbose, opts.Quiet)
	if err != nil {
		return err
	}
	report := output.NewSummaryReport(summary, reportMeta(avatar, sources...))
	if err := formatter.Format(ctx, report, os.Stdout); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	return nil
}
