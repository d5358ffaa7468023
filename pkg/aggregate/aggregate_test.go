package aggregate

import (
	"sync"
	"testing"
	"time"

	"chronicler/pkg/extract"
)

func at(h, m, s int) time.Time {
	return time.Date(2024, 3, 15, h, m, s, 0, time.Local)
}

func event(kind extract.Kind, amount float64, ts time.Time) extract.Event {
	return extract.Event{Kind: kind, Actor: "You", Amount: amount, Timestamp: &ts}
}

// Two hits of 50 and 30 across a two second span yield 40 DPS.
func TestActiveWindowDPS(t *testing.T) {
	tally := New()
	tally.Add(event(extract.KindDamageDealt, 50, at(12, 0, 1)))
	tally.Add(event(extract.KindDamageDealt, 30, at(12, 0, 3)))

	s := tally.Summary()
	if s.Insufficient {
		t.Fatal("expected sufficient data")
	}
	if s.Seconds != 2 {
		t.Errorf("expected a 2 second window, got %v", s.Seconds)
	}
	if s.DamageDealt != 80 {
		t.Errorf("expected 80 damage, got %v", s.DamageDealt)
	}
	if s.DPS != 40.0 {
		t.Errorf("expected DPS 40.0, got %v", s.DPS)
	}
}

func TestExplicitWindowIsHalfOpen(t *testing.T) {
	tally := New()
	tally.Add(event(extract.KindDamageDealt, 50, at(12, 0, 1)))
	tally.Add(event(extract.KindDamageDealt, 30, at(12, 0, 3)))
	tally.Add(event(extract.KindDamageDealt, 99, at(12, 0, 4)))

	// [12:00:01, 12:00:04) excludes the hit at 12:00:04.
	s := tally.SummaryRange(at(12, 0, 1), at(12, 0, 4))
	if s.DamageDealt != 80 {
		t.Errorf("expected 80 damage in the window, got %v", s.DamageDealt)
	}
	if s.Seconds != 3 {
		t.Errorf("expected 3 second duration, got %v", s.Seconds)
	}
	want := 80.0 / 3.0
	if s.DPS != want {
		t.Errorf("expected DPS %v, got %v", want, s.DPS)
	}
}

func TestInsufficientData(t *testing.T) {
	tally := New()
	tally.Add(event(extract.KindDamageDealt, 500, at(12, 0, 1)))

	// A single event spans zero seconds.
	s := tally.Summary()
	if !s.Insufficient {
		t.Error("expected insufficient data for a zero second window")
	}
	if s.DPS != 0 {
		t.Errorf("expected no DPS figure, got %v", s.DPS)
	}
	if s.DamageDealt != 500 {
		t.Errorf("totals should still be reported, got %v", s.DamageDealt)
	}

	// An explicit window shorter than a second.
	s = tally.SummaryRange(at(12, 0, 1), at(12, 0, 1).Add(500*time.Millisecond))
	if !s.Insufficient {
		t.Error("expected insufficient data for a half second window")
	}
}

func TestNegativeDurationClamped(t *testing.T) {
	tally := New()
	tally.Add(event(extract.KindDamageDealt, 50, at(12, 0, 5)))

	s := tally.SummaryRange(at(12, 0, 10), at(12, 0, 0))
	if s.Seconds != 0 {
		t.Errorf("expected clamped duration, got %v", s.Seconds)
	}
	if !s.Insufficient {
		t.Error("expected insufficient data")
	}
	if s.DPS < 0 {
		t.Errorf("negative rate must never appear, got %v", s.DPS)
	}
}

func TestResetKeepsHistory(t *testing.T) {
	tally := New()
	tally.Add(event(extract.KindDamageDealt, 50, at(12, 0, 1)))
	tally.Add(event(extract.KindDamageDealt, 30, at(12, 0, 3)))

	tally.ResetAt(at(12, 30, 0))
	tally.Add(event(extract.KindDamageDealt, 10, at(12, 30, 1)))
	tally.Add(event(extract.KindDamageDealt, 20, at(12, 30, 3)))

	// The active window covers only post-reset events.
	s := tally.Summary()
	if s.DamageDealt != 30 {
		t.Errorf("expected 30 damage after reset, got %v", s.DamageDealt)
	}
	if s.DPS != 15 {
		t.Errorf("expected DPS 15, got %v", s.DPS)
	}

	// History survives: an explicit window still sees the old events.
	old := tally.SummaryRange(at(12, 0, 0), at(12, 0, 10))
	if old.DamageDealt != 80 {
		t.Errorf("expected pre-reset history to survive, got %v", old.DamageDealt)
	}
	if len(tally.Events()) != 4 {
		t.Errorf("expected 4 events in history, got %d", len(tally.Events()))
	}
}

func TestResistTally(t *testing.T) {
	tally := New()
	taken := func(amount float64, element string, ts time.Time) extract.Event {
		ev := event(extract.KindDamageTaken, amount, ts)
		ev.Element = element
		return ev
	}
	resist := func(percent float64, element string, ts time.Time) extract.Event {
		ev := event(extract.KindResistCheck, percent, ts)
		ev.Element = element
		return ev
	}

	tally.Add(taken(10, "Fire", at(12, 0, 1)))
	tally.Add(resist(40, "Fire", at(12, 0, 2)))
	tally.Add(resist(60, "Fire", at(12, 0, 3)))
	tally.Add(taken(5, "Death", at(12, 0, 4)))

	s := tally.SummaryRange(at(12, 0, 0), at(12, 0, 10))
	if len(s.Resists) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(s.Resists))
	}

	death, fire := s.Resists[0], s.Resists[1]
	if death.Element != "Death" || fire.Element != "Fire" {
		t.Fatalf("unexpected element order: %v", s.Resists)
	}

	if fire.Incoming != 3 || fire.Resisted != 2 {
		t.Errorf("expected 2/3 fire resists, got %d/%d", fire.Resisted, fire.Incoming)
	}
	wantRate := 2.0 / 3.0 * 100
	if fire.Rate != wantRate {
		t.Errorf("expected fire rate %v, got %v", wantRate, fire.Rate)
	}
	if fire.MeanPercent != 50 {
		t.Errorf("expected mean resisted percent 50, got %v", fire.MeanPercent)
	}

	if death.Rate != 0 || death.Resisted != 0 || death.Incoming != 1 {
		t.Errorf("unexpected death tally: %+v", death)
	}
}

// Recomputing the same window twice must be idempotent and match the
// incremental path.
func TestRecomputeIsIdempotent(t *testing.T) {
	tally := New()
	for i := 0; i < 10; i++ {
		tally.Add(event(extract.KindDamageDealt, float64(10+i), at(12, 0, i)))
		tally.Add(event(extract.KindXPGain, 100, at(12, 0, i)))
	}

	first := tally.SummaryRange(at(12, 0, 2), at(12, 0, 8))
	second := tally.SummaryRange(at(12, 0, 2), at(12, 0, 8))

	if first.DamageDealt != second.DamageDealt || first.DPS != second.DPS ||
		first.XPPerHour != second.XPPerHour || first.Events != second.Events {
		t.Errorf("recomputation differed: %+v vs %+v", first, second)
	}

	// Six events (seconds 2..7) of 12..17 damage, 600 xp over 6 seconds.
	if first.DamageDealt != 87 {
		t.Errorf("expected 87 damage, got %v", first.DamageDealt)
	}
	if first.XPGained != 600 {
		t.Errorf("expected 600 xp, got %v", first.XPGained)
	}
	if first.XPPerHour != 600.0/6.0*3600 {
		t.Errorf("unexpected xp rate %v", first.XPPerHour)
	}
}

func TestUntimestampedEventsExcludedFromWindows(t *testing.T) {
	tally := New()
	tally.Add(extract.Event{Kind: extract.KindDeath, Actor: "Ancient Lich"})
	tally.Add(event(extract.KindDamageDealt, 50, at(12, 0, 1)))
	tally.Add(event(extract.KindDamageDealt, 30, at(12, 0, 3)))

	s := tally.Summary()
	if s.Events != 2 {
		t.Errorf("expected 2 events in the window, got %d", s.Events)
	}
	if s.Deaths != 0 {
		t.Errorf("untimestamped death should not enter the window, got %d", s.Deaths)
	}
	if len(tally.Events()) != 3 {
		t.Errorf("expected 3 events in history, got %d", len(tally.Events()))
	}
}

func TestExtractionErrorCount(t *testing.T) {
	tally := New()
	tally.NoteExtractionError()
	tally.NoteExtractionError()

	if got := tally.Summary().ExtractionErrors; got != 2 {
		t.Errorf("expected 2 extraction errors, got %d", got)
	}
}

// Summary readers must be safe alongside the single writer.
func TestConcurrentReadsDuringWrites(t *testing.T) {
	tally := New()
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tally.Add(event(extract.KindDamageDealt, 1, at(12, 0, i%60)))
		}
		close(done)
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					s := tally.Summary()
					if s.DamageDealt != float64(s.Kinds[extract.KindDamageDealt]) {
						t.Errorf("torn summary: %v damage across %d events",
							s.DamageDealt, s.Kinds[extract.KindDamageDealt])
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}
