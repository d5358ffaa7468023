package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chronicler/internal/store"
	"chronicler/pkg/config"
	"chronicler/pkg/logline"
)

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Config  string
	Verbose bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Diagnose common setup issues",
		Long: `Diagnose common setup issues.

This command checks the resolved configuration for common problems:
- Config file syntax and resolved paths
- Chat log directory existence and discovered avatars
- Save game directory accessibility
- Extraction rules validity
- Local store accessibility

Example:
  chronicler diagnose
  chronicler diagnose -v --config my-config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "Config file (default $XDG_CONFIG_HOME/chronicler/config.yaml)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, opts *DiagnoseOptions) error {
	results := []DiagnosticResult{}

	cfg, result := checkConfig(opts.Config)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(results, opts)
		return nil
	}

	results = append(results, checkLogDir(cfg)...)
	results = append(results, checkSaveDir(cfg))
	results = append(results, checkRules(cfg))
	results = append(results, checkStore(ctx, cfg))

	printDiagnostics(results, opts)
	return nil
}

func checkConfig(path string) (*config.Settings, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config",
	}

	cfg, err := config.Load(path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to load config: %v", err)
		result.Suggests = []string{
			"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			"Settings can also be set via CHRONICLER_* environment variables",
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "Configuration loaded"
	result.Details = []string{
		fmt.Sprintf("log_dir: %s", cfg.LogDir),
		fmt.Sprintf("save_dir: %s", cfg.SaveDir),
		fmt.Sprintf("store_path: %s", cfg.StorePath),
		fmt.Sprintf("poll_interval: %s", cfg.PollInterval),
	}
	if cfg.Avatar != "" {
		result.Details = append(result.Details, fmt.Sprintf("avatar: %s", cfg.Avatar))
	}
	return cfg, result
}

func checkLogDir(cfg *config.Settings) []DiagnosticResult {
	result := DiagnosticResult{
		Check: "Chat Logs",
	}

	info, err := os.Stat(cfg.LogDir)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Chat log directory not found: %s", cfg.LogDir)
		result.Suggests = []string{
			"Enable chat logging in the game options",
			"Set log_dir in the config if the game writes logs elsewhere",
		}
		return []DiagnosticResult{result}
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access chat log directory: %v", err)
		result.Suggests = []string{"Check directory permissions"}
		return []DiagnosticResult{result}
	}
	if !info.IsDir() {
		result.Status = "error"
		result.Message = fmt.Sprintf("log_dir is not a directory: %s", cfg.LogDir)
		return []DiagnosticResult{result}
	}

	logs, err := logline.ListLogs(cfg.LogDir)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot list chat logs: %v", err)
		return []DiagnosticResult{result}
	}
	if len(logs) == 0 {
		result.Status = "warning"
		result.Message = "Directory exists but holds no chat logs"
		result.Suggests = []string{
			"Enable chat logging in the game options and play a session",
		}
		return []DiagnosticResult{result}
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found %d chat log file(s)", len(logs))
	results := []DiagnosticResult{result}

	avatars, err := logline.Avatars(cfg.LogDir)
	if err != nil {
		return results
	}
	avatarResult := DiagnosticResult{
		Check:   "Avatars",
		Status:  "ok",
		Message: fmt.Sprintf("%d avatar(s) with logs", len(avatars)),
		Details: avatars,
	}
	if cfg.Avatar != "" {
		found := false
		for _, a := range avatars {
			if a == cfg.Avatar {
				found = true
				break
			}
		}
		if !found {
			avatarResult.Status = "warning"
			avatarResult.Message = fmt.Sprintf("Configured avatar %q has no chat logs", cfg.Avatar)
			avatarResult.Suggests = []string{
				"Check the avatar name matches the log file names exactly",
			}
		}
	}
	return append(results, avatarResult)
}

func checkSaveDir(cfg *config.Settings) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Save Games",
	}

	info, err := os.Stat(cfg.SaveDir)
	switch {
	case os.IsNotExist(err):
		result.Status = "warning"
		result.Message = fmt.Sprintf("Save directory not found: %s", cfg.SaveDir)
		result.Suggests = []string{
			"Only needed for the save commands; create an offline save first",
		}
	case err != nil:
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot access save directory: %v", err)
	case !info.IsDir():
		result.Status = "warning"
		result.Message = fmt.Sprintf("save_dir is not a directory: %s", cfg.SaveDir)
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("Found: %s", cfg.SaveDir)
	}
	return result
}

func checkRules(cfg *config.Settings) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Extraction Rules",
	}

	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Rules file is invalid: %v", err)
		result.Suggests = []string{
			"Run 'chronicler rules " + cfg.RulesFile + "' for details",
		}
		return result
	}

	result.Status = "ok"
	if cfg.RulesFile == "" {
		result.Message = fmt.Sprintf("Using the %d built-in rules", len(rules))
	} else {
		result.Message = fmt.Sprintf("%d rule(s) compiled from %s", len(rules), cfg.RulesFile)
	}
	return result
}

func checkStore(ctx context.Context, cfg *config.Settings) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Store",
	}

	st, err := store.Open(cfg.StorePath, zap.NewNop())
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot open store: %v", err)
		result.Suggests = []string{
			"Check the store_path directory exists and is writable",
		}
		return result
	}
	defer st.Close()

	if _, err := st.Setting(ctx, settingAvatar); err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Store query failed: %v", err)
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Ready: %s", cfg.StorePath)
	return result
}

func printDiagnostics(results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Println("=== Chronicler Setup Diagnostics ===")
	fmt.Println()

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		// Status icon
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Printf("[%s] %s\n", icon, r.Check)
		fmt.Printf("    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Printf("      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Printf("      Hint: %s\n", s)
		}

		fmt.Println()
	}

	// Summary
	fmt.Println("---")
	fmt.Printf("Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		fmt.Println("\nFix the errors above before using Chronicler.")
	} else if warnCount > 0 {
		fmt.Println("\nSetup is usable but has warnings.")
	} else {
		fmt.Println("\nSetup looks good!")
	}
}
