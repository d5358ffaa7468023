package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"chronicler/pkg/experience"
)

// NewXPCommand creates the xp command group.
func NewXPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xp",
		Short: "Experience table lookups",
		Long: `Convert between experience totals and levels using the game's
cumulative tables, and estimate training costs and untraining refunds
for catalog skills.`,
	}

	cmd.AddCommand(newXPLevelCommand())
	cmd.AddCommand(newXPExpCommand())
	cmd.AddCommand(newXPSkillCommand())
	cmd.AddCommand(newXPUntrainCommand())

	return cmd
}

func newXPLevelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "level <exp>",
		Short: "Level reached at an experience total",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || exp < 0 {
				return fmt.Errorf("invalid experience total %q", args[0])
			}

			lvl := experience.Level.LevelFor(exp)
			fmt.Printf("Level %d\n", lvl)
			if next, ok := experience.Level.ExpFor(lvl + 1); ok {
				fmt.Printf("Next level in %d xp\n", next-exp)
			}
			return nil
		},
	}
}

func newXPExpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exp <level>",
		Short: "Experience total a level requires",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid level %q", args[0])
			}
			exp, ok := experience.Level.ExpFor(lvl)
			if !ok {
				return fmt.Errorf("level %d out of range (%d-%d)", lvl, experience.MinLevel, experience.MaxLevel)
			}

			fmt.Printf("Level %d requires %d xp\n", lvl, exp)
			return nil
		},
	}
}

type xpSkillOptions struct {
	From int
}

func newXPSkillCommand() *cobra.Command {
	opts := &xpSkillOptions{}

	cmd := &cobra.Command{
		Use:   "skill <name|id> <level>",
		Short: "Experience a skill level costs",
		Long: `Print the experience required to hold a skill at a level: the base
table threshold scaled by the skill's catalog multiplier. --from adds
the cost of getting there from a current level.

Example:
  chronicler xp skill "Blade Mastery" 100
  chronicler xp skill 401 100 --from 80`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runXPSkill(args[0], args[1], opts)
		},
	}

	cmd.Flags().IntVar(&opts.From, "from", 0, "Current level, for the incremental cost")
	return cmd
}

func runXPSkill(name, level string, opts *xpSkillOptions) error {
	lvl, err := strconv.Atoi(level)
	if err != nil {
		return fmt.Errorf("invalid level %q", level)
	}
	skill, ok := findSkillArg(name)
	if !ok {
		return fmt.Errorf("unknown skill %q", name)
	}
	total, ok := experience.ScaledExp(skill.Multiplier, lvl)
	if !ok {
		return fmt.Errorf("level %d out of range (%d-%d)", lvl, experience.MinLevel, experience.MaxLevel)
	}

	fmt.Printf("%s (id %d, x%g)\n", skill.Name, skill.ID, skill.Multiplier)
	fmt.Printf("Level %d holds %d xp\n", lvl, total)

	if opts.From > 0 {
		need, ok := experience.TrainingExp(opts.From, lvl, skill.Multiplier)
		if !ok {
			return fmt.Errorf("--from level %d out of range (%d-%d)", opts.From, experience.MinLevel, experience.MaxLevel)
		}
		if need < 0 {
			return fmt.Errorf("--from level %d is above the target %d", opts.From, lvl)
		}
		fmt.Printf("Training from level %d costs %d xp\n", opts.From, need)
	}
	return nil
}

func newXPUntrainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "untrain <name|id> <from-level> <to-level>",
		Short: "Refund for untraining a skill",
		Long: `Print the experience returned for lowering a skill: half the scaled
experience between the two levels goes back to the pool.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runXPUntrain(args[0], args[1], args[2])
		},
	}
}

func runXPUntrain(name, fromLevel, toLevel string) error {
	skill, ok := findSkillArg(name)
	if !ok {
		return fmt.Errorf("unknown skill %q", name)
	}
	from, err := strconv.Atoi(fromLevel)
	if err != nil {
		return fmt.Errorf("invalid level %q", fromLevel)
	}
	to, err := strconv.Atoi(toLevel)
	if err != nil {
		return fmt.Errorf("invalid level %q", toLevel)
	}
	if to >= from {
		return fmt.Errorf("to-level %d must be below from-level %d", to, from)
	}

	delta, ok := experience.TrainingExp(from, to, skill.Multiplier)
	if !ok {
		return fmt.Errorf("levels out of range (%d-%d)", experience.MinLevel, experience.MaxLevel)
	}
	refund := experience.UntrainRefund(delta)

	fmt.Printf("Untraining %s from %d to %d refunds %d xp\n", skill.Name, from, to, refund)
	return nil
}
