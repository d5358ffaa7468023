package plants

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

//go:embed res/seeds.csv
var seedsCSV string

// Seed is one catalog entry. Type is the growth multiplier.
type Seed struct {
	Name string
	Type int
}

var seedCatalog struct {
	once  sync.Once
	err   error
	seeds []Seed
}

func loadSeeds() {
	for ln, line := range strings.Split(seedsCSV, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		name, typ, ok := strings.Cut(line, ",")
		if !ok {
			seedCatalog.err = fmt.Errorf("seed catalog line %d: expected name,type", ln+1)
			return
		}
		n, err := strconv.Atoi(typ)
		if err != nil || n < MinSeedType || n > MaxSeedType {
			seedCatalog.err = fmt.Errorf("seed catalog line %d: bad type %q", ln+1, typ)
			return
		}
		seedCatalog.seeds = append(seedCatalog.seeds, Seed{Name: name, Type: n})
	}
}

// Seeds returns the seed catalog in catalog order.
func Seeds() ([]Seed, error) {
	seedCatalog.once.Do(loadSeeds)
	return seedCatalog.seeds, seedCatalog.err
}

// FindSeed looks a seed up by name, case folded.
func FindSeed(name string) (Seed, bool) {
	seedCatalog.once.Do(loadSeeds)
	if seedCatalog.err != nil {
		return Seed{}, false
	}
	for _, s := range seedCatalog.seeds {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Seed{}, false
}
