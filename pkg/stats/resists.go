package stats

// School is one magic school with a resist value.
type School uint8

const (
	Air School = iota
	Chaos
	Death
	Earth
	Fire
	Life
	Moon
	Sun
	Water

	// magic is the school-independent MagicResistance bucket; it is
	// folded into the per-school values and never reported itself.
	magic
)

var schoolNames = [...]string{"Air", "Chaos", "Death", "Earth", "Fire", "Life", "Moon", "Sun", "Water"}

func (s School) String() string {
	if int(s) < len(schoolNames) {
		return schoolNames[s]
	}
	return "Magic"
}

// resistSources maps stat names to their school and weight: attunement
// counts half, resistance counts full.
var resistSources = map[string]struct {
	school School
	mul    float64
}{
	"AirAttunement":   {Air, 0.5},
	"AirResistance":   {Air, 1.0},
	"ChaosAttunement": {Chaos, 0.5},
	"ChaosResistance": {Chaos, 1.0},
	"DeathAttunement": {Death, 0.5},
	"DeathResistance": {Death, 1.0},
	"EarthAttunement": {Earth, 0.5},
	"EarthResistance": {Earth, 1.0},
	"FireAttunement":  {Fire, 0.5},
	"FireResistance":  {Fire, 1.0},
	"LifeAttunement":  {Life, 0.5},
	"LifeResistance":  {Life, 1.0},
	"MoonAttunement":  {Moon, 0.5},
	"MoonResistance":  {Moon, 1.0},
	"SunAttunement":   {Sun, 0.5},
	"SunResistance":   {Sun, 1.0},
	"WaterAttunement": {Water, 0.5},
	"WaterResistance": {Water, 1.0},
	"MagicResistance": {magic, 1.0},
}

// SchoolResist is one school's effective resist.
type SchoolResist struct {
	School School
	Value  float64
}

// Resists computes the effective resist per school from a snapshot's
// pairs: attunement x 0.5 plus resistance, with MagicResistance added
// to every school except Chaos. Schools absent from the snapshot are
// omitted.
func Resists(pairs []Pair) []SchoolResist {
	var values [magic + 1]float64
	var present [magic + 1]bool
	for _, p := range pairs {
		src, ok := resistSources[p.Name]
		if !ok {
			continue
		}
		values[src.school] += p.Value * src.mul
		present[src.school] = true
	}

	if present[magic] {
		for s := Air; s < magic; s++ {
			if s != Chaos && present[s] {
				values[s] += values[magic]
			}
		}
	}

	var out []SchoolResist
	for s := Air; s < magic; s++ {
		if present[s] {
			out = append(out, SchoolResist{School: s, Value: values[s]})
		}
	}
	return out
}
