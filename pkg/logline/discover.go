package logline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Chat-log file names follow SotAChatLog_<Avatar>_<YYYY-MM-DD>.txt.
const (
	logPrefix   = "SotAChatLog_"
	logSuffix   = ".txt"
	logDateForm = "2006-01-02"
)

// ParseName extracts the avatar name and log date from a chat-log file
// name. ok is false when the name does not follow the game's pattern.
func ParseName(path string) (avatar string, date time.Time, ok bool) {
	name := filepath.Base(path)
	if len(name) <= len(logPrefix)+len(logSuffix) {
		return "", time.Time{}, false
	}
	if name[:len(logPrefix)] != logPrefix || name[len(name)-len(logSuffix):] != logSuffix {
		return "", time.Time{}, false
	}

	stem := name[len(logPrefix) : len(name)-len(logSuffix)]
	// The date is the final underscore-separated component; the avatar
	// name itself may contain underscores.
	sep := -1
	for i := len(stem) - 1; i >= 0; i-- {
		if stem[i] == '_' {
			sep = i
			break
		}
	}
	if sep <= 0 {
		return "", time.Time{}, false
	}

	date, err := time.ParseInLocation(logDateForm, stem[sep+1:], time.Local)
	if err != nil {
		return "", time.Time{}, false
	}
	return stem[:sep], date, true
}

// ListLogs returns every chat-log file in dir, sorted by avatar name
// and date. Files that do not follow the game's naming pattern are
// ignored.
func ListLogs(dir string) ([]LogFile, error) {
	matches, err := filepath.Glob(filepath.Join(dir, logPrefix+"*"+logSuffix))
	if err != nil {
		return nil, fmt.Errorf("listing chat logs in %s: %w", dir, err)
	}

	var logs []LogFile
	for _, path := range matches {
		avatar, date, ok := ParseName(path)
		if !ok {
			continue
		}
		logs = append(logs, LogFile{Path: path, Avatar: avatar, Date: date})
	}

	sort.Slice(logs, func(i, j int) bool {
		if logs[i].Avatar != logs[j].Avatar {
			return logs[i].Avatar < logs[j].Avatar
		}
		return logs[i].Date.Before(logs[j].Date)
	})
	return logs, nil
}

// Avatars returns the distinct avatar names found in dir, sorted.
func Avatars(dir string) ([]string, error) {
	logs, err := ListLogs(dir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var avatars []string
	for _, lf := range logs {
		if !seen[lf.Avatar] {
			seen[lf.Avatar] = true
			avatars = append(avatars, lf.Avatar)
		}
	}
	sort.Strings(avatars)
	return avatars, nil
}

// FilesFor returns the avatar's chat-log files whose file date falls in
// [from, to], sorted by date. Zero bounds are unbounded.
func FilesFor(dir, avatar string, from, to time.Time) ([]LogFile, error) {
	logs, err := ListLogs(dir)
	if err != nil {
		return nil, err
	}

	var files []LogFile
	for _, lf := range logs {
		if lf.Avatar != avatar {
			continue
		}
		if !from.IsZero() && lf.Date.Before(from) {
			continue
		}
		if !to.IsZero() && lf.Date.After(to) {
			continue
		}
		files = append(files, lf)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no chat logs for avatar %q in %s", avatar, dir)
	}
	return files, nil
}

// Sniff verifies that path exists and is named like a chat-log file.
func Sniff(path string) error {
	if _, _, ok := ParseName(path); !ok {
		return fmt.Errorf("%s is not named like a chat log (%sAvatar_YYYY-MM-DD%s)", path, logPrefix, logSuffix)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("checking chat log: %w", err)
	}
	return nil
}
