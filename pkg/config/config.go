package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Load resolves the application settings: compiled-in defaults,
// overlaid by the config file (the given path, or the default location
// when path is empty), overlaid by CHRONICLER_* environment variables.
// A missing file at the default location is fine; an explicitly named
// file must exist.
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetDefault(KeyLogDir, DefaultLogDir())
	v.SetDefault(KeySaveDir, DefaultSaveDir())
	v.SetDefault(KeyAvatar, "")
	v.SetDefault(KeyRulesFile, "")
	v.SetDefault(KeyStorePath, DefaultStorePath())
	v.SetDefault(KeyPollInterval, DefaultPollInterval)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	required := path != ""
	if path == "" {
		path = DefaultConfigFile()
	}
	if _, err := os.Stat(path); err == nil || required {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	s := &Settings{
		LogDir:       v.GetString(KeyLogDir),
		SaveDir:      v.GetString(KeySaveDir),
		Avatar:       v.GetString(KeyAvatar),
		RulesFile:    v.GetString(KeyRulesFile),
		StorePath:    v.GetString(KeyStorePath),
		PollInterval: v.GetDuration(KeyPollInterval),
		LogLevel:     v.GetString(KeyLogLevel),
	}
	if err := Validate(s); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return s, nil
}

// Validate checks resolved settings for errors.
func Validate(s *Settings) error {
	if s.LogDir == "" {
		return fmt.Errorf("%s is required", KeyLogDir)
	}
	if s.SaveDir == "" {
		return fmt.Errorf("%s is required", KeySaveDir)
	}
	if s.PollInterval < time.Second {
		return fmt.Errorf("%s must be at least one second, got %s", KeyPollInterval, s.PollInterval)
	}
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%s must be debug, info, warn or error, got %q", KeyLogLevel, s.LogLevel)
	}
	return nil
}
