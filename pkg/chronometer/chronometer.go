// Package chronometer computes the celestial schedule: lunar rift
// openings, the Lost Vale window and cabalist siege positions. All of
// it is pure clock arithmetic against the in-game epoch, the date of
// the lunar cataclysm.
package chronometer

import (
	"fmt"
	"math"
	"time"
)

// epoch is the lunar cataclysm, the zero point of every cycle.
var epoch = time.Date(1997, 9, 2, 0, 0, 0, 0, time.UTC)

// valeSighting is the first recorded Lost Vale opening.
var valeSighting = time.Date(2018, 2, 23, 13, 0, 0, 0, time.UTC)

const (
	hourSecs      = 3600
	riftCount     = 8
	riftPhaseSecs = 525
	riftCycleSecs = riftCount * riftPhaseSecs
)

// Rift is one lunar rift with its next state change. Exactly one rift
// is open at any time; the cycle visits all eight in fixed order.
type Rift struct {
	Name      string
	MoonPhase string
	Open      bool
	Remaining time.Duration // until it closes when open, opens when not
}

var lunarRifts = [riftCount][2]string{
	{"Blood River", "New Moon"},
	{"Solace Bridge", "Waxing Crescent"},
	{"Highvale", "First Quarter"},
	{"Brookside", "Waxing Gibbous"},
	{"Owl's Head", "Full Moon"},
	{"Westend", "Waning Gibbous"},
	{"Brittany Graveyard", "Third Quarter"},
	{"Etceter", "Waning Crescent"},
}

// Rifts returns all eight rifts at the given instant, in cycle order.
func Rifts(now time.Time) []Rift {
	phase := int(mod64(now.Unix()-epoch.Unix(), riftCycleSecs))

	idx := phase / riftPhaseSecs
	secs := riftPhaseSecs - phase%riftPhaseSecs

	rifts := make([]Rift, riftCount)
	rifts[idx] = Rift{Open: true, Remaining: seconds(secs)}
	for i := 1; i < riftCount; i++ {
		idx = (idx + 1) % riftCount
		rifts[idx] = Rift{Remaining: seconds(secs)}
		secs += riftPhaseSecs
	}
	for i := range rifts {
		rifts[i].Name = lunarRifts[i][0]
		rifts[i].MoonPhase = lunarRifts[i][1]
	}
	return rifts
}

// Vale is the Lost Vale state.
type Vale struct {
	Open      bool
	Remaining time.Duration
}

// LostVale returns the Lost Vale window at the given instant. The
// vale runs a 28 hour cycle split 11/11/6, open for the first hour of
// each segment.
func LostVale(now time.Time) Vale {
	win := mod64(now.Unix()-valeSighting.Unix(), 28*hourSecs)
	seg := win % (11 * hourSecs)

	switch {
	case seg < hourSecs:
		return Vale{Open: true, Remaining: seconds(int(hourSecs - seg))}
	case win < 22*hourSecs:
		return Vale{Remaining: seconds(int(11*hourSecs - seg))}
	default:
		return Vale{Remaining: seconds(int(6*hourSecs - seg))}
	}
}

const (
	townCount     = 12
	fortnightSecs = 14 * 24 * hourSecs

	// ethosIndex is the empty constellation; a cabalist there besieges
	// nothing.
	ethosIndex = 6
)

// Siege is one cabalist's current position.
type Siege struct {
	Cabalist  string
	Town      string
	NextTown  string
	Dormant   bool // positioned over the empty Ethos constellation
	Remaining time.Duration
}

var cabalists = [...]string{"Dolus", "Temna", "Nefario", "Nefas", "Avara", "Indigno", "Corpus", "Fastus"}

// orbitHours is each cabalist's planetary period.
var orbitHours = [...]int64{19, 17, 13, 11, 3, 2, 23, 29}

var towns = [townCount]string{
	"Kiln (Honor)",
	"Northwood (Sacrifice)",
	"Jaanaford (Justice)",
	"Point West (Valor)",
	"Brookside (Compassion)",
	"Etceter (Honesty)",
	"None (Ethos)",
	"Resolute (Courage)",
	"Ardoris (Love)",
	"Aerie (Truth)",
	"Eastmarch (Humility)",
	"Fortus End (Spirituality)",
}

// Sieges returns every cabalist's town and time remaining there. A
// planet's position relative to the slowly rotating constellation
// band picks the besieged town; the zone time is the relative period
// over one town's arc.
func Sieges(now time.Time) []Siege {
	const (
		zone = 1.0 / townCount
		rate = 1.0 / fortnightSecs
	)

	epochSecs := now.Unix() - epoch.Unix()
	constellation := float64(mod64(epochSecs, fortnightSecs)) / fortnightSecs

	sieges := make([]Siege, len(cabalists))
	for i, hours := range orbitHours {
		orbitSecs := hours * hourSecs
		zoneSecs := zone / (1.0/float64(orbitSecs) - rate)

		planet := float64(mod64(epochSecs, orbitSecs)) / float64(orbitSecs)
		delta := planet - constellation
		if delta < 0 {
			delta += 1
		}
		zonePhase := townCount * delta
		town := int(zonePhase) % townCount
		_, fract := math.Modf(zonePhase)
		remain := int(math.Ceil(zoneSecs - fract*zoneSecs))

		sieges[i] = Siege{
			Cabalist:  cabalists[i],
			Town:      towns[town],
			NextTown:  towns[(town+1)%townCount],
			Dormant:   town == ethosIndex,
			Remaining: seconds(remain),
		}
	}
	return sieges
}

// FormatCountdown renders a duration the way the trackers show it:
// 01h 02m 03s, dropping leading units that are zero.
func FormatCountdown(d time.Duration) string {
	sec := int(d / time.Second)
	if sec < 0 {
		sec = 0
	}
	if sec >= 60 {
		min := sec / 60
		sec %= 60
		if min >= 60 {
			return fmt.Sprintf("%02dh %02dm %02ds", min/60, min%60, sec)
		}
		return fmt.Sprintf("%02dm %02ds", min, sec)
	}
	return fmt.Sprintf("%02ds", sec)
}

// mod64 is a floored modulo, safe for instants before the epoch.
func mod64(v, m int64) int64 {
	v %= m
	if v < 0 {
		v += m
	}
	return v
}

func seconds(s int) time.Duration {
	return time.Duration(s) * time.Second
}
