package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"chronicler/pkg/config"
	"chronicler/pkg/logline"
	"chronicler/pkg/output"
	"chronicler/pkg/search"
)

// SearchOptions holds command-line options for the search command.
type SearchOptions struct {
	Config     string
	Avatar     string
	From       string
	To         string
	Regex      bool
	IgnoreCase bool
	FromSeq    uint64
	Limit      int
	Output     string
	Verbose    bool
	Quiet      bool
}

// NewSearchCommand creates the search command.
func NewSearchCommand() *cobra.Command {
	opts := &SearchOptions{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search chat logs",
		Long: `Search the avatar's chat logs over a date range. The query is a
literal substring by default; --regex switches to Go regular
expression syntax. Matches are reported in log order with their
sequence index, so a later search can resume past them with
--from-seq.

Example:
  chronicler search "Resisted" --ignore-case
  chronicler search --regex 'Resisted \d+%' --from 2026-08-01
  chronicler search --regex 'Resisted \d+%' --from-seq 4213`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "Config file (default $XDG_CONFIG_HOME/chronicler/config.yaml)")
	cmd.Flags().StringVarP(&opts.Avatar, "avatar", "a", "", "Avatar name (default from config or store)")
	cmd.Flags().StringVar(&opts.From, "from", "", "First log date (YYYY-MM-DD, default earliest)")
	cmd.Flags().StringVar(&opts.To, "to", "", "Last log date (YYYY-MM-DD, default latest)")
	cmd.Flags().BoolVarP(&opts.Regex, "regex", "E", false, "Treat the query as a regular expression")
	cmd.Flags().BoolVarP(&opts.IgnoreCase, "ignore-case", "i", false, "Case-insensitive matching")
	cmd.Flags().Uint64Var(&opts.FromSeq, "from-seq", 0, "Resume from this sequence index")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "Stop after this many matches (0 = all)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show source file and sequence per match")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Match count only")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts *SearchOptions) error {
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

	var q search.Query
	if opts.Regex {
		expr := query
		if opts.IgnoreCase {
			expr = "(?i)" + expr
		}
		if q, err = search.Regexp(expr); err != nil {
			return err
		}
	} else {
		q = search.Literal(query, opts.IgnoreCase)
	}

	lines, sources, err := readLogs(ctx, cfg, avatar, from, to)
	if err != nil {
		return err
	}
	ix := search.NewIndex()
	ix.Append(lines...)

	cursor := ix.Search(q, opts.FromSeq)
	var hits []logline.Line
	for {
		line, err := cursor.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		hits = append(hits, *line)
		if opts.Limit > 0 && len(hits) >= opts.Limit {
			break
		}
	}

	formatter, err := createFormatter(opts.Output, opts.Verbose, opts.Quiet)
	if err != nil {
		return err
	}
	report := output.NewMatchReport(query, opts.Regex, hits, reportMeta(avatar, sources...))
	if err := formatter.Format(ctx, report, os.Stdout); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	return nil
}
