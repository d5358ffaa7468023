package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"chronicler/internal/store"
	"chronicler/pkg/config"
	"chronicler/pkg/logline"
	"chronicler/pkg/output"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// settingAvatar is the store key holding the selected avatar.
const settingAvatar = "avatar"

// dateLayout is the calendar-date flag format.
const dateLayout = "2006-01-02"

// createFormatter picks the report formatter for a command.
func createFormatter(format string, verbose, quiet bool) (output.Formatter, error) {
	opts := output.FormatOptions{
		Verbose: verbose,
		Quiet:   quiet,
	}

	switch format {
	case "text":
		return output.NewTextFormatter(opts), nil
	case "json":
		return output.NewJSONFormatter(opts), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (use text or json)", format)
	}
}

// buildLogger constructs the command logger: the production config at
// the configured level, or the development config at debug when
// --verbose is set.
func buildLogger(level string, verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopmentConfig().Build()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// resolveAvatar picks the avatar a command operates on: the --avatar
// flag, then the config file, then the store's selected avatar. With
// none of those set, a log directory holding exactly one avatar's
// logs resolves to that avatar.
func resolveAvatar(ctx context.Context, flag string, cfg *config.Settings) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if cfg.Avatar != "" {
		return cfg.Avatar, nil
	}

	if st, err := store.Open(cfg.StorePath, nil); err == nil {
		name, err := st.Setting(ctx, settingAvatar)
		st.Close()
		if err == nil && name != "" {
			return name, nil
		}
	}

	if names, err := logline.Avatars(cfg.LogDir); err == nil && len(names) == 1 {
		return names[0], nil
	}
	return "", errors.New("no avatar selected: pass --avatar or run 'chronicler avatars --select <name>'")
}

// rulesPath picks the extraction rules file: the flag wins over the
// config.
func rulesPath(flag string, cfg *config.Settings) string {
	if flag != "" {
		return flag
	}
	return cfg.RulesFile
}

// parseDate parses a calendar-date flag.
func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}

// parseInstant parses a point-in-time flag, accepting RFC 3339 or a
// local "YYYY-MM-DD HH:MM:SS".
func parseInstant(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (want RFC 3339 or YYYY-MM-DD HH:MM:SS)", s)
	}
	return t, nil
}

// dateRange resolves optional --from/--to flags into log discovery
// bounds. Empty flags are unbounded.
func dateRange(from, to string) (time.Time, time.Time, error) {
	var f, t time.Time
	var err error

	if from != "" {
		if f, err = parseDate(from); err != nil {
			return f, t, err
		}
	}
	if to != "" {
		if t, err = parseDate(to); err != nil {
			return f, t, err
		}
	}
	if !f.IsZero() && !t.IsZero() && t.Before(f) {
		return f, t, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return f, t, nil
}

// today returns local midnight of the current day, the granularity
// log discovery works at.
func today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
}

// reportMeta stamps a report with its provenance.
func reportMeta(avatar string, sources ...string) output.Metadata {
	return output.Metadata{
		Avatar:      avatar,
		Sources:     sources,
		GeneratedAt: time.Now(),
	}
}

// readLogs reads the avatar's chat logs over the date range, merged
// into timestamp order with fresh sequence indexes.
func readLogs(ctx context.Context, cfg *config.Settings, avatar string, from, to time.Time) ([]logline.Line, []string, error) {
	files, err := logline.FilesFor(cfg.LogDir, avatar, from, to)
	if err != nil {
		return nil, nil, err
	}

	readers := make([]logline.Reader, len(files))
	sources := make([]string, len(files))
	for i, lf := range files {
		readers[i] = logline.NewFileReader(lf, 0)
		sources[i] = lf.Path
	}
	merged := logline.NewMergedReader(readers...)
	defer merged.Close()

	var lines []logline.Line
	for {
		line, err := merged.Next(ctx)
		if errors.Is(err, io.EOF) {
			return lines, sources, nil
		}
		if err != nil {
			return nil, nil, err
		}
		lines = append(lines, *line)
	}
}
