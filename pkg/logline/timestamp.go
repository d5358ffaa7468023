package logline

import (
	"regexp"
	"strconv"
	"time"
)

// The game writes every line with a leading bracketed timestamp whose
// date half follows the machine locale. Only the time-of-day is read
// from the bracket; the date comes from the file name, which is stable
// across locales.
var (
	bracketPrefix = regexp.MustCompile(`^\[([^\[\]]*)\] ?`)
	clockPattern  = regexp.MustCompile(`(\d{1,2}):(\d{2}):(\d{2})(?:\s*([AP]M))?`)
)

// ExtractTimestamp parses the leading bracketed timestamp of a raw log
// line. It returns the line's timestamp (nil when the prefix or clock
// is missing, or when fileDate is unknown) and the message body with
// the prefix stripped. Chat lines relayed from other channels carry a
// second bracketed timestamp, which is stripped from the body as well.
func ExtractTimestamp(raw string, fileDate time.Time) (*time.Time, string) {
	m := bracketPrefix.FindStringSubmatch(raw)
	if m == nil {
		return nil, raw
	}
	c := clockPattern.FindStringSubmatch(m[1])
	if c == nil {
		// A leading bracket without a clock is ordinary content.
		return nil, raw
	}
	msg := raw[len(m[0]):]

	// A relayed chat timestamp immediately follows the outer one.
	if inner := bracketPrefix.FindStringSubmatch(msg); inner != nil && clockPattern.MatchString(inner[1]) {
		msg = msg[len(inner[0]):]
	}

	if fileDate.IsZero() {
		return nil, msg
	}

	hour, _ := strconv.Atoi(c[1])
	min, _ := strconv.Atoi(c[2])
	sec, _ := strconv.Atoi(c[3])

	// 12-hour clock: 12 AM is midnight, PM adds twelve.
	switch c[4] {
	case "AM":
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour != 12 {
			hour += 12
		}
	}
	if hour > 23 || min > 59 || sec > 59 {
		return nil, msg
	}

	ts := time.Date(fileDate.Year(), fileDate.Month(), fileDate.Day(), hour, min, sec, 0, time.Local)
	return &ts, msg
}
