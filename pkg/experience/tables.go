// Package experience maps accumulated experience to levels and back,
// and carries the skill catalog with its per-skill cost multipliers.
package experience

import (
	"math"
	"sort"
)

// Level bounds shown and accepted everywhere levels appear.
const (
	MinLevel = 1
	MaxLevel = 200
)

// Table is a cumulative experience table: entry i is the total
// experience required to hold level i+1. Entries are strictly
// increasing.
type Table []int64

// Level is the adventurer/producer experience table.
var Level = buildTable(600, 105)

// SkillTable is the base skill experience table, scaled per skill by
// its catalog multiplier.
var SkillTable = buildTable(80, 106)

// buildTable compounds a per-level step by growthPct percent, giving
// a strictly monotonic cumulative table with entry 0 at zero.
func buildTable(base, growthPct int64) Table {
	t := make(Table, MaxLevel)
	var total int64
	step := base
	for i := range t {
		t[i] = total
		total += step
		step = step * growthPct / 100
	}
	return t
}

// LevelFor returns the greatest level whose threshold is at or below
// exp, or 0 when exp is below the first threshold.
func (t Table) LevelFor(exp int64) int {
	return sort.Search(len(t), func(i int) bool { return t[i] > exp })
}

// ExpFor returns the cumulative experience threshold of a level.
func (t Table) ExpFor(lvl int) (int64, bool) {
	if lvl < MinLevel || lvl > len(t) {
		return 0, false
	}
	return t[lvl-1], true
}

// Max returns the last threshold of the table.
func (t Table) Max() int64 {
	return t[len(t)-1]
}

// ScaledExp returns the experience value a save stores for a skill at
// the given level: the base threshold times the skill's multiplier.
func ScaledExp(multiplier float64, lvl int) (int64, bool) {
	base, ok := SkillTable.ExpFor(lvl)
	if !ok {
		return 0, false
	}
	return int64(float64(base) * multiplier), true
}

// LevelFromScaled inverts ScaledExp for a stored skill value.
func LevelFromScaled(multiplier float64, scaled int64) int {
	if multiplier <= 0 {
		return 0
	}
	return SkillTable.LevelFor(int64(float64(scaled) / multiplier))
}

// TrainingExp returns the scaled experience needed to move a skill
// from the current to the target level. The result is negative when
// the target is below the current level.
func TrainingExp(current, target int, multiplier float64) (int64, bool) {
	cur, ok := SkillTable.ExpFor(current)
	if !ok {
		return 0, false
	}
	tgt, ok := SkillTable.ExpFor(target)
	if !ok {
		return 0, false
	}
	return int64(math.Ceil(float64(tgt-cur) * multiplier)), true
}

// UntrainRefund returns the experience returned for un-training: half
// of the (absolute) negative training delta. A non-negative delta
// refunds nothing.
func UntrainRefund(delta int64) int64 {
	if delta >= 0 {
		return 0
	}
	return -delta / 2
}
