package experience

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

//go:embed res/adventurer_skills.csv
var adventurerCSV string

//go:embed res/producer_skills.csv
var producerCSV string

// Category selects one of the two skill trees.
type Category int

const (
	Adventurer Category = iota
	Producer
)

func (c Category) String() string {
	if c == Producer {
		return "Producer"
	}
	return "Adventurer"
}

// Requirement is a prerequisite skill level.
type Requirement struct {
	ID    uint32
	Level int
}

// Skill is one catalog entry. Multiplier scales the base skill
// experience table for this skill.
type Skill struct {
	Name       string
	Multiplier float64
	ID         uint32
	Requires   []Requirement
}

// Group is a named block of skills, in catalog order.
type Group struct {
	Name   string
	Skills []Skill
}

var catalog struct {
	once       sync.Once
	err        error
	adventurer []Group
	producer   []Group
	byID       map[uint32]*Skill
}

func loadCatalog() {
	catalog.byID = make(map[uint32]*Skill)
	if catalog.adventurer, catalog.err = parseGroups(adventurerCSV); catalog.err != nil {
		return
	}
	catalog.producer, catalog.err = parseGroups(producerCSV)
	if catalog.err != nil {
		return
	}
	for _, groups := range [][]Group{catalog.adventurer, catalog.producer} {
		for gi := range groups {
			for si := range groups[gi].Skills {
				s := &groups[gi].Skills[si]
				catalog.byID[s.ID] = s
			}
		}
	}
}

// Groups returns the catalog for one category.
func Groups(cat Category) ([]Group, error) {
	catalog.once.Do(loadCatalog)
	if catalog.err != nil {
		return nil, catalog.err
	}
	if cat == Producer {
		return catalog.producer, nil
	}
	return catalog.adventurer, nil
}

// FindSkill looks a skill up by its id across both categories.
func FindSkill(id uint32) (*Skill, bool) {
	catalog.once.Do(loadCatalog)
	if catalog.err != nil {
		return nil, false
	}
	s, ok := catalog.byID[id]
	return s, ok
}

// FindSkillNamed looks a skill up by its display name, case folded.
func FindSkillNamed(name string) (*Skill, bool) {
	catalog.once.Do(loadCatalog)
	if catalog.err != nil {
		return nil, false
	}
	for _, s := range catalog.byID {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return nil, false
}

// parseGroups reads catalog rows of the form
// group,name,multiplier,id[,reqID,reqLevel]... with rows of one group
// contiguous.
func parseGroups(text string) ([]Group, error) {
	var groups []Group
	var cur *Group

	for ln, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < 4 || len(fields)%2 != 0 {
			return nil, fmt.Errorf("skill catalog line %d: expected group,name,multiplier,id with requirement pairs", ln+1)
		}

		if cur == nil || cur.Name != fields[0] {
			groups = append(groups, Group{Name: fields[0]})
			cur = &groups[len(groups)-1]
		}

		mul, err := strconv.ParseFloat(fields[2], 64)
		if err != nil || mul <= 0 {
			return nil, fmt.Errorf("skill catalog line %d: bad multiplier %q", ln+1, fields[2])
		}
		id, err := strconv.ParseUint(fields[3], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("skill catalog line %d: bad id %q", ln+1, fields[3])
		}

		skill := Skill{Name: fields[1], Multiplier: mul, ID: uint32(id)}
		for i := 4; i+1 < len(fields); i += 2 {
			rid, err := strconv.ParseUint(fields[i], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("skill catalog line %d: bad requirement id %q", ln+1, fields[i])
			}
			rlvl, err := strconv.Atoi(fields[i+1])
			if err != nil {
				return nil, fmt.Errorf("skill catalog line %d: bad requirement level %q", ln+1, fields[i+1])
			}
			skill.Requires = append(skill.Requires, Requirement{ID: uint32(rid), Level: rlvl})
		}
		cur.Skills = append(cur.Skills, skill)
	}

	return groups, nil
}
