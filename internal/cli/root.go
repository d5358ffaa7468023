// Package cli provides the command-line interface for Chronicler.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chronicler/internal/cli/commands"
	"chronicler/internal/cli/plugins"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	rootCmd := NewRootCommand()

	// Check if the first argument might be a plugin command
	if len(os.Args) > 1 {
		potentialCommand := os.Args[1]
		// Skip flags (start with -)
		if len(potentialCommand) > 0 && potentialCommand[0] != '-' {
			// Check if it's a known built-in command
			if !isBuiltinCommand(rootCmd, potentialCommand) {
				// Try to find and execute a plugin
				if pluginPath, err := plugins.FindPlugin(potentialCommand); err == nil {
					// Plugin found - execute it with remaining args
					return plugins.Execute(pluginPath, os.Args[2:])
				}
				// Plugin not found - will fall through to Cobra which will show error
			}
		}
	}

	if err := rootCmd.Execute(); err != nil {
		// Check if this was an unknown command that could be a plugin
		if len(os.Args) > 1 {
			potentialCommand := os.Args[1]
			if len(potentialCommand) > 0 && potentialCommand[0] != '-' {
				if !isBuiltinCommand(rootCmd, potentialCommand) {
					// Show helpful plugin error message
					_, _ = fmt.Fprintln(os.Stderr, plugins.FormatNotFoundError(potentialCommand))
					return 2
				}
			}
		}
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// isBuiltinCommand checks if a command name is a built-in cobra command.
func isBuiltinCommand(rootCmd *cobra.Command, name string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == name || cmd.HasAlias(name) {
			return true
		}
	}
	// Also check for special commands like help and completion
	return name == "help" || name == "completion"
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chronicler",
		Short: "Companion toolkit for Shroud of the Avatar",
		Long: `Chronicler is a companion toolkit for Shroud of the Avatar.

It reads the game's chat logs and offline save files:
  - Follow the live log and tally damage, XP and deaths (watch, tally)
  - Search past logs and read /stats snapshots (search, stats)
  - Inspect and edit offline save games (save)
  - Look up experience tables (xp)
  - Track lunar rifts, the Lost Vale and agriculture timers (rifts, plants)

Everything works from the files the game already writes; the game
itself is never touched.

PLUGINS:
  Chronicler supports plugins for extended functionality. Plugins are
  standalone binaries named chronicler-<command> that are automatically
  discovered and invoked.

  Plugin locations (searched in order):
    1. Same directory as the chronicler binary
    2. ~/.chronicler/plugins/
    3. Anywhere in PATH

  Available plugins:
    overlay    On-screen stats overlay (build it from the chronicler-overlay project)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add subcommands
	rootCmd.AddCommand(commands.NewWatchCommand())
	rootCmd.AddCommand(commands.NewTallyCommand())
	rootCmd.AddCommand(commands.NewSearchCommand())
	rootCmd.AddCommand(commands.NewStatsCommand())
	rootCmd.AddCommand(commands.NewSaveCommand())
	rootCmd.AddCommand(commands.NewXPCommand())
	rootCmd.AddCommand(commands.NewRiftsCommand())
	rootCmd.AddCommand(commands.NewPlantsCommand())
	rootCmd.AddCommand(commands.NewNotesCommand())
	rootCmd.AddCommand(commands.NewAvatarsCommand())
	rootCmd.AddCommand(commands.NewRulesCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
