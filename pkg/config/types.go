// Package config provides application settings and the extraction
// rules file. Settings come from defaults, an optional YAML config
// file and CHRONICLER_* environment overrides; the rules file is a
// separate YAML document whose patterns are compiled during
// validation.
package config

import "time"

// Settings keys, as they appear in the config file and (upper-cased,
// prefixed) in the environment.
const (
	KeyLogDir       = "log_dir"
	KeySaveDir      = "save_dir"
	KeyAvatar       = "avatar"
	KeyRulesFile    = "rules_file"
	KeyStorePath    = "store_path"
	KeyPollInterval = "poll_interval"
	KeyLogLevel     = "log_level"
)

// EnvPrefix is the environment variable prefix: KeyLogDir becomes
// CHRONICLER_LOG_DIR.
const EnvPrefix = "CHRONICLER"

// Settings holds the resolved application configuration.
type Settings struct {
	// LogDir is the directory containing the game's chat logs.
	LogDir string

	// SaveDir is the directory containing offline save games.
	SaveDir string

	// Avatar is the selected avatar name; empty means unset.
	Avatar string

	// RulesFile is an optional extraction rules file; empty selects
	// the built-in rule table.
	RulesFile string

	// StorePath is the SQLite store location.
	StorePath string

	// PollInterval is the log polling cadence for watch mode.
	PollInterval time.Duration

	// LogLevel is the diagnostic log level (debug, info, warn, error).
	LogLevel string
}
