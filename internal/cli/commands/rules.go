package commands

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"chronicler/pkg/config"
	"chronicler/pkg/extract"
	"chronicler/pkg/logline"
)

// RulesOptions holds options for the rules command.
type RulesOptions struct {
	Sample string
}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	opts := &RulesOptions{}

	cmd := &cobra.Command{
		Use:   "rules [rules-file]",
		Short: "Validate and list extraction rules",
		Long: `Validate an extraction rules file without running a tally.

Checks:
  - YAML syntax
  - Known event kinds
  - Regex pattern validity and required capture groups
  - Rule exclusivity against a sample chat log (--sample)

Without a file, lists the built-in rule table.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			return runRules(path, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Sample, "sample", "", "Chat log file to check the rules against")

	return cmd
}

func runRules(path string, opts *RulesOptions) error {
	if path != "" {
		fmt.Printf("Validating %s...\n", path)
	}

	rules, err := config.LoadRules(path)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if path != "" {
		fmt.Printf("\nRules valid!\n")
	}
	fmt.Printf("\nRules (%d):\n", len(rules))
	for i, rule := range rules {
		fmt.Printf("  %d. [%s] %s\n", i+1, rule.Kind, rule.Name)
		fmt.Printf("     %s\n", rule.Pattern)
	}

	if opts.Sample == "" {
		return nil
	}

	samples, err := sampleMessages(opts.Sample)
	if err != nil {
		return err
	}
	// The built-in table ships uncompiled.
	for i := range rules {
		if err := rules[i].Compile(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}
	if err := extract.CheckOverlap(rules, samples); err != nil {
		return fmt.Errorf("overlap check failed: %w", err)
	}
	fmt.Printf("\nNo overlap across %d sample line(s)\n", len(samples))
	return nil
}

// sampleMessages reads a chat log and returns its message bodies with
// the timestamp prefixes stripped, the form the extraction rules see.
func sampleMessages(path string) ([]string, error) {
	f, err := os.Open(path) // #nosec G304 -- user-provided sample path is expected
	if err != nil {
		return nil, fmt.Errorf("opening sample log: %w", err)
	}
	defer f.Close()

	var samples []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		_, msg := logline.ExtractTimestamp(scanner.Text(), time.Time{})
		if msg != "" {
			samples = append(samples, msg)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading sample log: %w", err)
	}
	return samples, nil
}
