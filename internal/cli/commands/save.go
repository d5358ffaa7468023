package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"chronicler/pkg/experience"
	"chronicler/pkg/output"
	"chronicler/pkg/savefile"
)

// NewSaveCommand creates the save command group.
func NewSaveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Inspect and edit offline save games",
		Long: `Inspect and edit offline save games.

Edits are validated against the save layout before anything is
written: unknown fields, type changes and out-of-range values reject
the whole edit and leave the file untouched. Writes go through a temp
file and an atomic rename, so a failed write never corrupts the save.

Fields are addressed by slash paths: Collection/RecordId/key. The
singleton user and gold records use the fixed id ` + savefile.UserID + `.`,
	}

	cmd.AddCommand(newSaveInfoCommand())
	cmd.AddCommand(newSaveItemsCommand())
	cmd.AddCommand(newSaveGetCommand())
	cmd.AddCommand(newSaveSetCommand())
	cmd.AddCommand(newSaveSetGoldCommand())
	cmd.AddCommand(newSaveSetLevelCommand())
	cmd.AddCommand(newSaveSetSkillCommand())

	return cmd
}

// saveEditOptions holds the flags shared by the editing subcommands.
type saveEditOptions struct {
	Output string
}

func addEditFlags(cmd *cobra.Command, opts *saveEditOptions) {
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Write the edited save here instead of in place")
}

// writeSave applies the transaction and writes the save, in place by
// default or to dst when --output was given.
func writeSave(tree *savefile.Tree, tx *savefile.EditTransaction, src, dst string) error {
	if err := tree.Apply(tx); err != nil {
		return err
	}
	if dst == "" {
		dst = src
	}
	if err := tree.EncodeFile(dst); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", dst)
	return nil
}

type saveInfoOptions struct {
	Output  string
	Skills  bool
	Verbose bool
	Quiet   bool
}

func newSaveInfoCommand() *cobra.Command {
	opts := &saveInfoOptions{}

	cmd := &cobra.Command{
		Use:   "info <save-file>",
		Short: "Show avatar, experience and gold from a save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSaveInfo(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVar(&opts.Skills, "skills", false, "Include the trained skill table")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Verbose output")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Header lines only")

	return cmd
}

func runSaveInfo(cmd *cobra.Command, path string, opts *saveInfoOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	tree, err := savefile.DecodeFile(path)
	if err != nil {
		return err
	}
	report, err := output.NewSaveReport(path, tree, reportMeta("", path))
	if err != nil {
		return err
	}
	if opts.Skills {
		if err := report.Save.AddSkills(tree); err != nil {
			return err
		}
	}

	formatter, err := createFormatter(opts.Output, opts.Verbose, opts.Quiet)
	if err != nil {
		return err
	}
	if err := formatter.Format(ctx, report, os.Stdout); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	return nil
}

func newSaveItemsCommand() *cobra.Command {
	opts := &saveInfoOptions{}

	cmd := &cobra.Command{
		Use:   "items <save-file>",
		Short: "List the main backpack's inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSaveItems(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Verbose output")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Header lines only")

	return cmd
}

func runSaveItems(cmd *cobra.Command, path string, opts *saveInfoOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	tree, err := savefile.DecodeFile(path)
	if err != nil {
		return err
	}
	report, err := output.NewSaveReport(path, tree, reportMeta("", path))
	if err != nil {
		return err
	}
	if err := report.Save.AddItems(tree); err != nil {
		return err
	}

	formatter, err := createFormatter(opts.Output, opts.Verbose, opts.Quiet)
	if err != nil {
		return err
	}
	if err := formatter.Format(ctx, report, os.Stdout); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	return nil
}

func newSaveGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <save-file> <path>",
		Short: "Print the raw JSON value at a save path",
		Long: `Print the raw JSON value at a slash path inside the save.

Example:
  chronicler save get Save1.sota "UserGold/` + savefile.UserID + `/g"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSaveGet(args[0], args[1])
		},
	}
}

func runSaveGet(path, fieldPath string) error {
	tree, err := savefile.DecodeFile(path)
	if err != nil {
		return err
	}
	node := tree.Lookup(fieldPath)
	if node == nil {
		return fmt.Errorf("no value at %q", fieldPath)
	}
	fmt.Printf("%s\n", tree.Raw(node))
	return nil
}

func newSaveSetCommand() *cobra.Command {
	opts := &saveEditOptions{}

	cmd := &cobra.Command{
		Use:   "set <save-file> <path> <json-value>",
		Short: "Replace the value at a save path",
		Long: `Replace the value at a slash path with the given JSON value. The new
value must keep the field's JSON kind, and layout-declared fields must
stay in range.

Example:
  chronicler save set Save1.sota "UserGold/` + savefile.UserID + `/g" 5000`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSaveSet(args[0], args[1], args[2], opts)
		},
	}

	addEditFlags(cmd, opts)
	return cmd
}

func runSaveSet(path, fieldPath, value string, opts *saveEditOptions) error {
	var raw json.RawMessage
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		return fmt.Errorf("value is not valid JSON: %w", err)
	}

	tree, err := savefile.DecodeFile(path)
	if err != nil {
		return err
	}
	tx := savefile.NewTransaction()
	tx.Set(fieldPath, raw)
	return writeSave(tree, tx, path, opts.Output)
}

func newSaveSetGoldCommand() *cobra.Command {
	opts := &saveEditOptions{}

	cmd := &cobra.Command{
		Use:   "set-gold <save-file> <amount>",
		Short: "Set the stored gold",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSaveSetGold(args[0], args[1], opts)
		},
	}

	addEditFlags(cmd, opts)
	return cmd
}

func runSaveSetGold(path, amount string, opts *saveEditOptions) error {
	gold, err := strconv.ParseInt(amount, 10, 64)
	if err != nil || gold < 0 {
		return fmt.Errorf("invalid gold amount %q", amount)
	}

	tree, err := savefile.DecodeFile(path)
	if err != nil {
		return err
	}
	tx := savefile.NewTransaction()
	tree.EditGold(tx, gold)
	return writeSave(tree, tx, path, opts.Output)
}

type saveSetLevelOptions struct {
	saveEditOptions
	Producer bool
}

func newSaveSetLevelCommand() *cobra.Command {
	opts := &saveSetLevelOptions{}

	cmd := &cobra.Command{
		Use:   "set-level <save-file> <level>",
		Short: "Set the adventurer or producer level",
		Long: fmt.Sprintf(`Set the avatar's adventurer level by writing the experience total
that level requires. Levels run %d to %d. --producer edits the
producer pool instead.`, experience.MinLevel, experience.MaxLevel),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSaveSetLevel(args[0], args[1], opts)
		},
	}

	addEditFlags(cmd, &opts.saveEditOptions)
	cmd.Flags().BoolVar(&opts.Producer, "producer", false, "Edit the producer pool")
	return cmd
}

func runSaveSetLevel(path, level string, opts *saveSetLevelOptions) error {
	lvl, err := strconv.Atoi(level)
	if err != nil {
		return fmt.Errorf("invalid level %q", level)
	}
	exp, ok := experience.Level.ExpFor(lvl)
	if !ok {
		return fmt.Errorf("level %d out of range (%d-%d)", lvl, experience.MinLevel, experience.MaxLevel)
	}

	tree, err := savefile.DecodeFile(path)
	if err != nil {
		return err
	}
	avatarID, err := tree.AvatarID()
	if err != nil {
		return err
	}
	tx := savefile.NewTransaction()
	if opts.Producer {
		tree.EditProducerExp(tx, avatarID, exp)
	} else {
		tree.EditAdventurerExp(tx, avatarID, exp)
	}
	return writeSave(tree, tx, path, opts.Output)
}

func newSaveSetSkillCommand() *cobra.Command {
	opts := &saveEditOptions{}

	cmd := &cobra.Command{
		Use:   "set-skill <save-file> <skill> <level>",
		Short: "Set a trained skill's level",
		Long: `Set a trained skill to a level by writing the scaled experience that
level costs for the skill. The skill is named by its catalog name or
numeric id and must already be trained in the save; untrained skills
cannot be added.

Example:
  chronicler save set-skill Save1.sota "Blade Mastery" 80`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSaveSetSkill(args[0], args[1], args[2], opts)
		},
	}

	addEditFlags(cmd, opts)
	return cmd
}

func runSaveSetSkill(path, skillName, level string, opts *saveEditOptions) error {
	lvl, err := strconv.Atoi(level)
	if err != nil {
		return fmt.Errorf("invalid level %q", level)
	}
	skill, ok := findSkillArg(skillName)
	if !ok {
		return fmt.Errorf("unknown skill %q", skillName)
	}
	scaled, ok := experience.ScaledExp(skill.Multiplier, lvl)
	if !ok {
		return fmt.Errorf("level %d out of range (%d-%d)", lvl, experience.MinLevel, experience.MaxLevel)
	}

	tree, err := savefile.DecodeFile(path)
	if err != nil {
		return err
	}
	avatarID, err := tree.AvatarID()
	if err != nil {
		return err
	}
	tx := savefile.NewTransaction()
	if err := tree.EditSkillExp(tx, avatarID, uint64(skill.ID), scaled); err != nil {
		return err
	}
	return writeSave(tree, tx, path, opts.Output)
}

// findSkillArg resolves a skill argument given as a catalog name or a
// numeric id.
func findSkillArg(arg string) (*experience.Skill, bool) {
	if id, err := strconv.ParseUint(arg, 10, 32); err == nil {
		if skill, ok := experience.FindSkill(uint32(id)); ok {
			return skill, true
		}
	}
	return experience.FindSkillNamed(arg)
}
