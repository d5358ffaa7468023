package output

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	switch {
	case report.Summary != nil:
		return f.formatSummary(report.Summary, w)
	case report.Matches != nil:
		return f.formatMatches(report.Matches, w)
	case report.Stats != nil:
		return f.formatStats(report.Stats, w)
	case report.Save != nil:
		return f.formatSave(report.Save, w)
	case report.Schedule != nil:
		return f.formatSchedule(report.Schedule, w)
	case report.Plants != nil:
		return f.formatPlants(report.Plants, w)
	}
	return nil
}

func (f *TextFormatter) formatSummary(s *SummaryView, w io.Writer) error {
	if f.opts.Quiet {
		fmt.Fprintf(w, "%.0f dealt (%.1f DPS), %.0f taken, %.0f XP (%.0f/h), %d deaths\n",
			s.DamageDealt, s.DPS, s.DamageTaken, s.XPGained, s.XPPerHour, s.Deaths)
		return nil
	}

	fmt.Fprintln(w, "=== Combat Summary ===")
	fmt.Fprintln(w)

	if s.Insufficient {
		fmt.Fprintln(w, "Window too short to rate (under one second of activity).")
	} else {
		fmt.Fprintf(w, "Window:  %s to %s (%.0fs)\n",
			s.WindowStart.Format("2006-01-02 15:04:05"),
			s.WindowEnd.Format("15:04:05"),
			s.Seconds)
	}
	fmt.Fprintf(w, "Dealt:   %.0f", s.DamageDealt)
	if !s.Insufficient {
		fmt.Fprintf(w, " (%.1f DPS)", s.DPS)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Taken:   %.0f\n", s.DamageTaken)
	fmt.Fprintf(w, "Healed:  %.0f\n", s.Healing)
	fmt.Fprintf(w, "XP:      %.0f", s.XPGained)
	if !s.Insufficient {
		fmt.Fprintf(w, " (%.0f/h)", s.XPPerHour)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Deaths:  %d\n", s.Deaths)

	if len(s.Resists) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Resists:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  element\tresisted\trate\tmean")
		for _, r := range s.Resists {
			fmt.Fprintf(tw, "  %s\t%d/%d\t%.1f%%\t%.1f%%\n",
				r.Element, r.Resisted, r.Incoming, r.Rate, r.MeanPercent)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Events: %d\n", s.Events)
	if f.opts.Verbose && s.ExtractionErrors > 0 {
		fmt.Fprintf(w, "Extraction errors: %d\n", s.ExtractionErrors)
	}
	return nil
}

func (f *TextFormatter) formatMatches(m *MatchView, w io.Writer) error {
	if f.opts.Quiet {
		fmt.Fprintf(w, "%d match(es) for %q\n", m.Total, m.Query)
		return nil
	}

	for _, hit := range m.Hits {
		if f.opts.Verbose {
			fmt.Fprintf(w, "%s:%d: %s\n", hit.Source, hit.Seq, hit.Text)
		} else {
			fmt.Fprintln(w, hit.Text)
		}
	}

	fmt.Fprintf(w, "---\n%d match(es) for %q", m.Total, m.Query)
	if m.Regex {
		fmt.Fprint(w, " (regex)")
	}
	fmt.Fprintln(w)
	return nil
}

func (f *TextFormatter) formatStats(s *StatsView, w io.Writer) error {
	fmt.Fprintf(w, "=== Stats at %s ===\n", s.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(w)

	if !f.opts.Quiet {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, p := range s.Pairs {
			fmt.Fprintf(tw, "%s\t%s\n", p.Name, trimFloat(p.Value))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(s.Resists) > 0 {
		if !f.opts.Quiet {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, "Effective resists:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, r := range s.Resists {
			fmt.Fprintf(tw, "  %s\t%s\n", r.School, trimFloat(r.Value))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (f *TextFormatter) formatSave(s *SaveView, w io.Writer) error {
	fmt.Fprintf(w, "=== %s ===\n", s.Path)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Version:    %d\n", s.Version)
	fmt.Fprintf(w, "Avatar:     %s (%s)\n", s.AvatarName, s.AvatarID)
	fmt.Fprintf(w, "Adventurer: level %d (%d xp)\n", s.AdventurerLevel, s.AdventurerExp)
	fmt.Fprintf(w, "Producer:   level %d (%d xp)\n", s.ProducerLevel, s.ProducerExp)
	if s.Gold != nil {
		fmt.Fprintf(w, "Gold:       %d\n", *s.Gold)
	}

	if len(s.Skills) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Skills (%d):\n", len(s.Skills))
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, sk := range s.Skills {
			name := sk.Name
			if name == "" {
				name = fmt.Sprintf("skill %d", sk.ID)
			}
			fmt.Fprintf(tw, "  %s\tlevel %d\t%d xp\n", name, sk.Level, sk.Exp)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(s.Items) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Items (%d):\n", len(s.Items))
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, it := range s.Items {
			desc := fmt.Sprintf("x%d", it.Count)
			if it.Bag {
				desc = "bag"
			}
			if it.Durable {
				desc += fmt.Sprintf(", %.0f/%.0f", it.Durability, it.MaxDurability)
			}
			fmt.Fprintf(tw, "  %s\t%s\n", it.Name, desc)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (f *TextFormatter) formatSchedule(s *ScheduleView, w io.Writer) error {
	if len(s.Rifts) > 0 {
		fmt.Fprintln(w, "Lunar rifts:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, r := range s.Rifts {
			state := "opens in " + r.Remaining
			if r.Open {
				state = "OPEN, closes in " + r.Remaining
			}
			fmt.Fprintf(tw, "  %s\t(%s)\t%s\n", r.Name, r.MoonPhase, state)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if s.Vale != nil {
		fmt.Fprintln(w)
		if s.Vale.Open {
			fmt.Fprintf(w, "Lost Vale: OPEN, closes in %s\n", s.Vale.Remaining)
		} else {
			fmt.Fprintf(w, "Lost Vale: opens in %s\n", s.Vale.Remaining)
		}
	}

	if len(s.Sieges) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Cabalist sieges:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, c := range s.Sieges {
			if c.Dormant {
				fmt.Fprintf(tw, "  %s\tdormant\n", c.Cabalist)
				continue
			}
			fmt.Fprintf(tw, "  %s\tat %s\t%s to %s\n", c.Cabalist, c.Town, c.Remaining, c.NextTown)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (f *TextFormatter) formatPlants(p *PlantsView, w io.Writer) error {
	if len(p.Plants) == 0 {
		fmt.Fprintln(w, "No plants tracked.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, pl := range p.Plants {
		next := "done"
		if !pl.Done {
			next = fmt.Sprintf("%s at %s", pl.NextEvent, pl.NextAt.Format("2006-01-02 15:04"))
		}
		fmt.Fprintf(tw, "%d\t%s\t%s (%s)\t%s\n",
			pl.ID, pl.Description, pl.Seed, strings.ToLower(pl.Environment), next)
	}
	return tw.Flush()
}

// trimFloat renders a stat value without trailing decimal noise.
func trimFloat(v float64) string {
	s := fmt.Sprintf("%.1f", v)
	return strings.TrimSuffix(s, ".0")
}
