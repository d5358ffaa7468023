package extract

import (
	"errors"
	"testing"
	"time"

	"chronicler/pkg/logline"
)

func line(msg string) logline.Line {
	ts := time.Date(2024, 3, 15, 12, 0, 1, 0, time.Local)
	return logline.Line{Seq: 7, Raw: "[3/15/2024 12:00:01 PM] " + msg, Message: msg, Timestamp: &ts}
}

func newDefaultExtractor(t *testing.T) *Extractor {
	t.Helper()
	x, err := NewExtractor(DefaultRules())
	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}
	return x
}

func TestExtractKinds(t *testing.T) {
	x := newDefaultExtractor(t)

	tests := []struct {
		name        string
		message     string
		wantKind    Kind
		wantActor   string
		wantTarget  string
		wantAmount  float64
		wantElement string
	}{
		{
			name:       "damage dealt",
			message:    "You hit Goblin for 50 damage.",
			wantKind:   KindDamageDealt,
			wantActor:  "You",
			wantTarget: "Goblin",
			wantAmount: 50,
		},
		{
			name:        "damage dealt with element",
			message:     "You critically hit Ebon Cultist for 31.5 fire damage!",
			wantKind:    KindDamageDealt,
			wantActor:   "You",
			wantTarget:  "Ebon Cultist",
			wantAmount:  31.5,
			wantElement: "fire",
		},
		{
			name:        "damage taken",
			message:     "Skeleton Archer hits you for 12 piercing damage.",
			wantKind:    KindDamageTaken,
			wantActor:   "Skeleton Archer",
			wantAmount:  12,
			wantElement: "piercing",
		},
		{
			name:        "resist check",
			message:     "Resisted 45% of the Fire damage.",
			wantKind:    KindResistCheck,
			wantActor:   "You",
			wantAmount:  45,
			wantElement: "Fire",
		},
		{
			name:       "xp gain",
			message:    "You gained 120 experience.",
			wantKind:   KindXPGain,
			wantActor:  "You",
			wantAmount: 120,
		},
		{
			name:       "heal",
			message:    "Brother Marcus heals you for 40 health.",
			wantKind:   KindHeal,
			wantActor:  "Brother Marcus",
			wantTarget: "you",
			wantAmount: 40,
		},
		{
			name:      "death",
			message:   "Ancient Lich has died.",
			wantKind:  KindDeath,
			wantActor: "Ancient Lich",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := x.Extract(line(tt.message))
			if err != nil {
				t.Fatalf("Extract failed: %v", err)
			}
			if ev == nil {
				t.Fatal("expected an event")
			}
			if ev.Kind != tt.wantKind {
				t.Errorf("expected kind %s, got %s", tt.wantKind, ev.Kind)
			}
			if ev.Actor != tt.wantActor {
				t.Errorf("expected actor %q, got %q", tt.wantActor, ev.Actor)
			}
			if ev.Target != tt.wantTarget {
				t.Errorf("expected target %q, got %q", tt.wantTarget, ev.Target)
			}
			if ev.Amount != tt.wantAmount {
				t.Errorf("expected amount %v, got %v", tt.wantAmount, ev.Amount)
			}
			if ev.Element != tt.wantElement {
				t.Errorf("expected element %q, got %q", tt.wantElement, ev.Element)
			}
			if ev.Seq != 7 {
				t.Errorf("expected seq 7, got %d", ev.Seq)
			}
			if ev.Timestamp == nil {
				t.Error("expected the line timestamp to carry over")
			}
		})
	}
}

func TestExtractUnmatchedLine(t *testing.T) {
	x := newDefaultExtractor(t)

	ev, err := x.Extract(line("Gregor says, \"Hail and well met.\""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev != nil {
		t.Errorf("expected no event, got %+v", ev)
	}
}

func TestExtractBadNumberDropsEvent(t *testing.T) {
	x := newDefaultExtractor(t)

	// Two commas cannot both be decimal marks.
	ev, err := x.Extract(line("You hit Goblin for 1,234,5 damage."))
	if ev != nil {
		t.Errorf("expected the event to be dropped, got %+v", ev)
	}
	if err == nil {
		t.Fatal("expected an extraction error")
	}

	var xerr *ExtractionError
	if !errors.As(err, &xerr) {
		t.Fatalf("expected an ExtractionError, got %T", err)
	}
	if xerr.Field != "amount" {
		t.Errorf("expected the amount field to fail, got %s", xerr.Field)
	}
	if xerr.Rule != "damage-dealt" {
		t.Errorf("expected rule damage-dealt, got %s", xerr.Rule)
	}
}

// The extractor is pure: repeated extraction of the same line must
// yield identical results.
func TestExtractIsPure(t *testing.T) {
	x := newDefaultExtractor(t)
	l := line("You hit Goblin for 50 damage.")

	first, err := x.Extract(l)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := x.Extract(l)
		if err != nil {
			t.Fatalf("Extract failed on repeat %d: %v", i, err)
		}
		if *again != *first {
			t.Errorf("repeat %d: expected %+v, got %+v", i, first, again)
		}
	}
}

func TestNewExtractorRejectsBadRules(t *testing.T) {
	tests := []struct {
		name  string
		rules []Rule
	}{
		{
			name:  "empty table",
			rules: nil,
		},
		{
			name:  "bad pattern",
			rules: []Rule{{Kind: KindDamageDealt, Name: "broken", Pattern: `You hit [`}},
		},
		{
			name:  "unknown kind",
			rules: []Rule{{Kind: "damage-reflected", Name: "odd", Pattern: `x`}},
		},
		{
			name:  "missing amount group",
			rules: []Rule{{Kind: KindXPGain, Name: "no-amount", Pattern: `^You gained experience`}},
		},
		{
			name:  "unnamed custom rule",
			rules: []Rule{{Kind: KindCustom, Pattern: `^You fished up`}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewExtractor(tt.rules); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestCheckOverlap(t *testing.T) {
	rules := []Rule{
		{Kind: KindDamageDealt, Name: "dealt", Pattern: `^You hit .+ for (?P<amount>\d+) damage`},
		{Kind: KindCustom, Name: "any-hit", Pattern: `hit`},
	}
	for i := range rules {
		if err := rules[i].Compile(); err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
	}

	err := CheckOverlap(rules, []string{"You hit Goblin for 50 damage."})
	if err == nil {
		t.Fatal("expected an overlap error")
	}

	x := newDefaultExtractor(t)
	samples := []string{
		"You hit Goblin for 50 damage.",
		"Skeleton Archer hits you for 12 piercing damage.",
		"Resisted 45% of the Fire damage.",
		"You gained 120 experience.",
		"Brother Marcus heals you for 40 health.",
		"Ancient Lich has died.",
	}
	if err := CheckOverlap(x.Rules(), samples); err != nil {
		t.Errorf("default rules overlap: %v", err)
	}
}
