package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultPollInterval is the watch-mode polling cadence when the
// config does not set one.
const DefaultPollInterval = 5 * time.Second

// DefaultLogLevel keeps diagnostic output quiet unless asked for.
const DefaultLogLevel = "warn"

// gameConfigDir returns the game's per-user data directory, when it
// exists.
func gameConfigDir() (string, bool) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", false
	}
	dir := filepath.Join(base, "Portalarium", "Shroud of the Avatar")
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return "", false
	}
	return dir, true
}

// DefaultLogDir returns the game's chat log directory when present,
// else the user's home directory.
func DefaultLogDir() string {
	if dir, ok := gameConfigDir(); ok {
		logs := filepath.Join(dir, "ChatLogs")
		if fi, err := os.Stat(logs); err == nil && fi.IsDir() {
			return logs
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// DefaultSaveDir returns the game's save directory when present, else
// the user's home directory.
func DefaultSaveDir() string {
	if dir, ok := gameConfigDir(); ok {
		saves := filepath.Join(dir, "SavedGames")
		if fi, err := os.Stat(saves); err == nil && fi.IsDir() {
			return saves
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// DefaultStorePath returns the SQLite store location under the user's
// config directory.
func DefaultStorePath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "chronicler", "chronicler.db")
}

// DefaultConfigFile returns the config file path searched when
// --config is not given.
func DefaultConfigFile() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "chronicler", "config.yaml")
}
