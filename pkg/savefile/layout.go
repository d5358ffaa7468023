package savefile

import (
	"math"
	"strings"

	"chronicler/pkg/experience"
)

// FieldSpec declares one field an edit transaction may touch. Paths
// are slash-separated as Collection/RecordId/key..., with * matching
// any single segment (record ids, skill ids, item ids). Fields not
// declared by the layout are opaque: preserved byte-for-byte and
// rejected as edit targets.
type FieldSpec struct {
	Path     string
	Kind     Kind
	Integer  bool    // numbers must be integral
	Min, Max float64 // numeric bounds, inclusive

	segs []string // split Path (set during compile)
}

func (f *FieldSpec) matches(path []string) bool {
	if len(path) != len(f.segs) {
		return false
	}
	for i, seg := range f.segs {
		if seg != "*" && seg != path[i] {
			return false
		}
	}
	return true
}

// layout is the field table for one save version.
type layout struct {
	version  int
	sizeAttr bool // header carries size="N"
	fields   []*FieldSpec
}

func (l *layout) field(path []string) *FieldSpec {
	for _, f := range l.fields {
		if f.matches(path) {
			return f
		}
	}
	return nil
}

// supportedLayouts returns the known version layouts. Version 2 adds
// the header size attribute and the user gold record.
func supportedLayouts() []*layout {
	maxExp := float64(experience.Level.Max())
	noMax := math.Inf(1)

	base := []*FieldSpec{
		{Path: "User/*/dc", Kind: KindString},
		{Path: "CharacterName/*/fn", Kind: KindString},
		{Path: "Character/*/mainbp", Kind: KindString},
		{Path: "CharacterSheet/*/ae", Kind: KindNumber, Integer: true, Min: 0, Max: maxExp},
		{Path: "CharacterSheet/*/pe", Kind: KindNumber, Integer: true, Min: 0, Max: maxExp},
		{Path: "CharacterSheet/*/sk2/*", Kind: KindObject},
		{Path: "CharacterSheet/*/sk2/*/x", Kind: KindNumber, Integer: true, Min: 0, Max: noMax},
		{Path: "CharacterSheet/*/sk2/*/m", Kind: KindNumber, Integer: true, Min: 0, Max: noMax},
		{Path: "CharacterSheet/*/sk2/*/t", Kind: KindString},
		{Path: "ItemStore/*/in/*/in/qn", Kind: KindNumber, Integer: true, Min: 0, Max: noMax},
		{Path: "ItemStore/*/in/*/in/hp", Kind: KindNumber, Min: 0, Max: noMax},
		{Path: "ItemStore/*/in/*/in/php", Kind: KindNumber, Min: 0, Max: noMax},
		{Path: "ItemStore/*/in/*/in/an", Kind: KindString},
	}

	v2 := append(append([]*FieldSpec{}, base...),
		&FieldSpec{Path: "UserGold/*/g", Kind: KindNumber, Integer: true, Min: 0, Max: noMax},
	)

	layouts := []*layout{
		{version: 1, fields: base},
		{version: 2, sizeAttr: true, fields: v2},
	}
	for _, l := range layouts {
		for _, f := range l.fields {
			f.segs = strings.Split(f.Path, "/")
		}
	}
	return layouts
}

func layoutFor(version int) (*layout, bool) {
	for _, l := range supportedLayouts() {
		if l.version == version {
			return l, true
		}
	}
	return nil, false
}
