package output

import (
	"context"
	"encoding/json"
	"io"
)

// JSONFormatter formats reports as JSON.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a new JSON formatter with the given options.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Format renders the report as JSON.
func (f *JSONFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if f.opts.Quiet {
		// Quiet mode drops per-hit and per-stat detail.
		trimmed := *report
		if trimmed.Matches != nil {
			m := *trimmed.Matches
			m.Hits = nil
			trimmed.Matches = &m
		}
		if trimmed.Stats != nil {
			s := *trimmed.Stats
			s.Pairs = nil
			trimmed.Stats = &s
		}
		if trimmed.Save != nil {
			s := *trimmed.Save
			s.Skills = nil
			s.Items = nil
			trimmed.Save = &s
		}
		return encoder.Encode(&trimmed)
	}

	return encoder.Encode(report)
}
