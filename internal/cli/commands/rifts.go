package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"chronicler/pkg/chronometer"
	"chronicler/pkg/output"
)

// RiftsOptions holds command-line options for the rifts command.
type RiftsOptions struct {
	At      string
	Output  string
	Verbose bool
	Quiet   bool
}

// NewRiftsCommand creates the rifts command.
func NewRiftsCommand() *cobra.Command {
	opts := &RiftsOptions{}

	cmd := &cobra.Command{
		Use:   "rifts",
		Short: "Lunar rift, Lost Vale and siege schedule",
		Long: `Print which lunar rift is open and when the others open, the Lost
Vale window, and the town each cabalist is besieging. The schedule is
fixed arithmetic over a known epoch, so no game access is needed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRifts(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.At, "at", "", "Schedule at this time instead of now (RFC 3339)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Verbose output")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Open rift only")

	return cmd
}

func runRifts(cmd *cobra.Command, opts *RiftsOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now()
	if opts.At != "" {
		var err error
		if now, err = parseInstant(opts.At); err != nil {
			return err
		}
	}

	formatter, err := createFormatter(opts.Output, opts.Verbose, opts.Quiet)
	if err != nil {
		return err
	}
	report := output.NewScheduleReport(
		chronometer.Rifts(now),
		chronometer.LostVale(now),
		chronometer.Sieges(now),
		reportMeta(""),
	)
	if opts.Quiet {
		var open []output.RiftView
		for _, r := range report.Schedule.Rifts {
			if r.Open {
				open = append(open, r)
			}
		}
		report.Schedule.Rifts = open
		report.Schedule.Sieges = nil
		if !report.Schedule.Vale.Open {
			report.Schedule.Vale = nil
		}
	}
	if err := formatter.Format(ctx, report, os.Stdout); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	return nil
}
