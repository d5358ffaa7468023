package stats

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicler/pkg/logline"
)

func line(seq uint64, ts *time.Time, raw, msg string) logline.Line {
	return logline.Line{Seq: seq, Raw: raw, Message: msg, Timestamp: ts}
}

func ts(h, m, s int) *time.Time {
	t := time.Date(2026, 8, 24, h, m, s, 0, time.Local)
	return &t
}

func TestReaderCollectsSnapshots(t *testing.T) {
	r := NewReader()
	r.Feed(
		line(0, ts(10, 0, 0), "[8/24/2026 10:00:00 AM] You hit Skeleton for 10 damage", "You hit Skeleton for 10 damage"),
		line(1, ts(10, 0, 5), "[8/24/2026 10:00:05 AM] AdventurerLevel: 97 ProducerLevel: 71 Strength: 25.5",
			"AdventurerLevel: 97 ProducerLevel: 71 Strength: 25.5"),
		line(2, nil, "Dexterity: 31 Intelligence: 40", "Dexterity: 31 Intelligence: 40"),
		line(3, nil, "FireAttunement: 20 FireResistance: 5", "FireAttunement: 20 FireResistance: 5"),
		line(4, ts(10, 0, 9), "[8/24/2026 10:00:09 AM] Skeleton hits you for 3 damage", "Skeleton hits you for 3 damage"),
	)

	snaps := r.Snapshots()
	require.Len(t, snaps, 1)
	assert.Equal(t, *ts(10, 0, 5), snaps[0].Timestamp)

	pairs := snaps[0].Pairs()
	require.Len(t, pairs, 7)
	assert.Equal(t, Pair{Name: "AdventurerLevel", Value: 97}, pairs[0])
	assert.Equal(t, Pair{Name: "Dexterity", Value: 31}, pairs[3])

	v, ok := snaps[0].Value("Strength")
	require.True(t, ok)
	assert.Equal(t, 25.5, v)

	_, ok = snaps[0].Value("Luck")
	assert.False(t, ok)
}

func TestSnapshotSpansFeeds(t *testing.T) {
	r := NewReader()
	r.Feed(line(0, ts(9, 0, 0), "[8/24/2026 9:00:00 AM] AdventurerLevel: 80", "AdventurerLevel: 80"))
	r.Feed(line(1, nil, "Strength: 12", "Strength: 12"))

	snaps := r.Snapshots()
	require.Len(t, snaps, 1)
	assert.Len(t, snaps[0].Pairs(), 2)
}

func TestPairsStopAtMalformedToken(t *testing.T) {
	s := &Snapshot{Text: "AdventurerLevel: 97 Strength: abc Dexterity: 31"}
	pairs := s.Pairs()
	require.Len(t, pairs, 1)
	assert.Equal(t, "AdventurerLevel", pairs[0].Name)

	// A bare word without a colon ends the pair stream too.
	s = &Snapshot{Text: "AdventurerLevel: 97 some trailing prose"}
	assert.Len(t, s.Pairs(), 1)

	// Locale decimal separators are normalized.
	s = &Snapshot{Text: "Strength: 37,5"}
	pairs = s.Pairs()
	require.Len(t, pairs, 1)
	assert.Equal(t, 37.5, pairs[0].Value)
}

func TestChatMentionDoesNotTrigger(t *testing.T) {
	r := NewReader()
	r.Feed(
		// No timestamp bracket, no snapshot.
		line(0, nil, "AdventurerLevel: 97", "AdventurerLevel: 97"),
		line(1, ts(10, 0, 0), "[8/24/2026 10:00:00 AM] Rosa says AdventurerLevel means nothing", "Rosa says AdventurerLevel means nothing"),
	)
	assert.Empty(t, r.Snapshots())
}

func TestLatest(t *testing.T) {
	r := NewReader()
	r.Feed(
		line(0, ts(9, 0, 0), "[8/24/2026 9:00:00 AM] AdventurerLevel: 80", "AdventurerLevel: 80"),
		line(1, ts(12, 0, 0), "[8/24/2026 12:00:00 PM] AdventurerLevel: 81", "AdventurerLevel: 81"),
		line(2, ts(15, 0, 0), "[8/24/2026 3:00:00 PM] AdventurerLevel: 82", "AdventurerLevel: 82"),
	)

	latest := r.Latest(time.Time{})
	require.NotNil(t, latest)
	v, _ := latest.Value("AdventurerLevel")
	assert.Equal(t, 82.0, v)

	at := r.Latest(*ts(13, 0, 0))
	require.NotNil(t, at)
	v, _ = at.Value("AdventurerLevel")
	assert.Equal(t, 81.0, v)

	assert.Nil(t, r.Latest(*ts(8, 0, 0)))
}

func TestResists(t *testing.T) {
	pairs := []Pair{
		{Name: "FireAttunement", Value: 20},
		{Name: "FireResistance", Value: 5},
		{Name: "ChaosAttunement", Value: 10},
		{Name: "MagicResistance", Value: 8},
		{Name: "Strength", Value: 25},
	}

	got := Resists(pairs)
	require.Len(t, got, 2)

	// Ordered by school: Chaos before Fire, magic resistance not
	// added to Chaos.
	assert.Equal(t, Chaos, got[0].School)
	assert.Equal(t, 5.0, got[0].Value)

	assert.Equal(t, Fire, got[1].School)
	assert.Equal(t, 20*0.5+5+8, got[1].Value)

	assert.Empty(t, Resists(nil))
}

func TestFilter(t *testing.T) {
	pairs := []Pair{
		{Name: "FireAttunement", Value: 20},
		{Name: "FireResistance", Value: 5},
		{Name: "Strength", Value: 25},
	}

	re := regexp.MustCompile(`(?i)^fire`)
	got := Filter(pairs, re.MatchString)
	require.Len(t, got, 2)
	assert.Equal(t, "FireAttunement", got[0].Name)

	assert.Empty(t, Filter(pairs, regexp.MustCompile(`^Luck$`).MatchString))
}
