// Package plants tracks crop growth timers: two waterings and a
// harvest, spaced by the seed type and planting environment.
package plants

import (
	"fmt"
	"strings"
	"time"
)

// Environment is where a crop grows. It sets the base stage duration.
type Environment int

const (
	Greenhouse Environment = iota
	Outside
	Inside
)

var environmentNames = [...]string{"Greenhouse", "Outside", "Inside"}

func (e Environment) String() string {
	if int(e) < len(environmentNames) {
		return environmentNames[e]
	}
	return fmt.Sprintf("Environment(%d)", int(e))
}

// StageDuration returns the base duration of one growth stage, before
// the seed type multiplier.
func (e Environment) StageDuration() time.Duration {
	switch e {
	case Outside:
		return 8 * time.Hour
	case Inside:
		return 80 * time.Hour
	default:
		return 4 * time.Hour
	}
}

// ParseEnvironment resolves an environment name, case folded.
func ParseEnvironment(s string) (Environment, error) {
	for i, name := range environmentNames {
		if strings.EqualFold(s, name) {
			return Environment(i), nil
		}
	}
	return Greenhouse, fmt.Errorf("unknown environment %q (greenhouse, outside or inside)", s)
}

// Stage is one growth milestone.
type Stage int

const (
	Water1 Stage = iota + 1
	Water2
	Harvest
)

const stageCount = 3

func (s Stage) String() string {
	if s == Harvest {
		return "harvest"
	}
	return "water"
}

// MinSeedType and MaxSeedType bound the growth multiplier.
const (
	MinSeedType = 1
	MaxSeedType = 3
)

// Plant is one growth timer. The watering and harvest stages come due
// at one, two and three intervals after planting, where the interval
// is the environment's stage duration times the seed type.
type Plant struct {
	ID          int64
	Description string
	SeedName    string
	SeedType    int
	Environment Environment
	PlantedAt   time.Time

	fired [stageCount]bool
}

// Interval returns the spacing between growth stages.
func (p *Plant) Interval() time.Duration {
	return time.Duration(p.SeedType) * p.Environment.StageDuration()
}

// StageAt returns when the given stage comes due.
func (p *Plant) StageAt(s Stage) time.Time {
	return p.PlantedAt.Add(time.Duration(s) * p.Interval())
}

// NextEvent returns the first stage still in the future at now. ok is
// false once the harvest is due.
func (p *Plant) NextEvent(now time.Time) (Stage, time.Time, bool) {
	for s := Water1; s <= Harvest; s++ {
		if at := p.StageAt(s); now.Before(at) {
			return s, at, true
		}
	}
	return 0, time.Time{}, false
}

// CurrentEvent returns the latest stage due at now. ok is false before
// the first watering.
func (p *Plant) CurrentEvent(now time.Time) (Stage, bool) {
	for s := Harvest; s >= Water1; s-- {
		if !now.Before(p.StageAt(s)) {
			return s, true
		}
	}
	return 0, false
}

// Check reports a stage that has come due since the last call, marking
// it fired and clearing earlier marks. Stages skipped while unobserved
// collapse into the latest one.
func (p *Plant) Check(now time.Time) (Stage, bool) {
	for s := Harvest; s >= Water1; s-- {
		if now.Before(p.StageAt(s)) {
			continue
		}
		if p.fired[s-1] {
			return 0, false
		}
		p.fired[s-1] = true
		for i := Stage(1); i < s; i++ {
			p.fired[i-1] = false
		}
		return s, true
	}
	return 0, false
}
