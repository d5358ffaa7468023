// Package output provides formatting for command results.
package output

import (
	"time"

	"chronicler/pkg/aggregate"
	"chronicler/pkg/chronometer"
	"chronicler/pkg/experience"
	"chronicler/pkg/logline"
	"chronicler/pkg/plants"
	"chronicler/pkg/savefile"
	"chronicler/pkg/stats"
)

// Report is the renderable result of one command. Exactly one result
// section is set; formatters render whichever is present.
type Report struct {
	// Summary is a windowed combat and experience tally.
	Summary *SummaryView `json:"summary,omitempty"`

	// Matches holds search hits.
	Matches *MatchView `json:"matches,omitempty"`

	// Stats is a /stats snapshot, optionally with derived resists.
	Stats *StatsView `json:"stats,omitempty"`

	// Save describes a decoded save file.
	Save *SaveView `json:"save,omitempty"`

	// Schedule is the celestial schedule.
	Schedule *ScheduleView `json:"schedule,omitempty"`

	// Plants lists growth timers.
	Plants *PlantsView `json:"plants,omitempty"`

	// Metadata provides context about the run.
	Metadata Metadata `json:"metadata"`
}

// Metadata provides context about the command run.
type Metadata struct {
	// Avatar is the avatar the result concerns, when one applies.
	Avatar string `json:"avatar,omitempty"`

	// Sources lists the files the result was derived from.
	Sources []string `json:"sources,omitempty"`

	// GeneratedAt is when the result was produced.
	GeneratedAt time.Time `json:"generated_at"`
}

// SummaryView mirrors an aggregate.Summary for rendering.
type SummaryView struct {
	WindowStart      time.Time    `json:"window_start"`
	WindowEnd        time.Time    `json:"window_end"`
	Seconds          float64      `json:"seconds"`
	Insufficient     bool         `json:"insufficient_data"`
	DamageDealt      float64      `json:"damage_dealt"`
	DPS              float64      `json:"dps"`
	DamageTaken      float64      `json:"damage_taken"`
	Healing          float64      `json:"healing"`
	XPGained         float64      `json:"xp_gained"`
	XPPerHour        float64      `json:"xp_per_hour"`
	Deaths           int          `json:"deaths"`
	Events           int          `json:"events"`
	ExtractionErrors uint64       `json:"extraction_errors,omitempty"`
	Resists          []ResistView `json:"resists,omitempty"`
}

// ResistView is one element's resist tally.
type ResistView struct {
	Element     string  `json:"element"`
	Resisted    int     `json:"resisted"`
	Incoming    int     `json:"incoming"`
	Rate        float64 `json:"rate"`
	MeanPercent float64 `json:"mean_percent"`
}

// NewSummaryReport creates a Report from a windowed summary.
func NewSummaryReport(s aggregate.Summary, meta Metadata) *Report {
	view := &SummaryView{
		WindowStart:      s.WindowStart,
		WindowEnd:        s.WindowEnd,
		Seconds:          s.Seconds,
		Insufficient:     s.Insufficient,
		DamageDealt:      s.DamageDealt,
		DPS:              s.DPS,
		DamageTaken:      s.DamageTaken,
		Healing:          s.Healing,
		XPGained:         s.XPGained,
		XPPerHour:        s.XPPerHour,
		Deaths:           s.Deaths,
		Events:           s.Events,
		ExtractionErrors: s.ExtractionErrors,
	}
	for _, r := range s.Resists {
		view.Resists = append(view.Resists, ResistView{
			Element:     r.Element,
			Resisted:    r.Resisted,
			Incoming:    r.Incoming,
			Rate:        r.Rate,
			MeanPercent: r.MeanPercent,
		})
	}
	return &Report{Summary: view, Metadata: meta}
}

// MatchView holds search hits.
type MatchView struct {
	Query   string     `json:"query"`
	Regex   bool       `json:"regex,omitempty"`
	Total   int        `json:"total"`
	LastSeq uint64     `json:"last_seq,omitempty"`
	Hits    []MatchHit `json:"hits,omitempty"`
}

// MatchHit is one matching log line.
type MatchHit struct {
	Seq    uint64     `json:"seq"`
	Time   *time.Time `json:"time,omitempty"`
	Text   string     `json:"text"`
	Source string     `json:"source,omitempty"`
}

// NewMatchReport creates a Report from search hits.
func NewMatchReport(query string, regex bool, hits []logline.Line, meta Metadata) *Report {
	view := &MatchView{Query: query, Regex: regex, Total: len(hits)}
	for _, line := range hits {
		view.Hits = append(view.Hits, MatchHit{
			Seq:    line.Seq,
			Time:   line.Timestamp,
			Text:   line.Raw,
			Source: line.Source,
		})
		view.LastSeq = line.Seq
	}
	return &Report{Matches: view, Metadata: meta}
}

// StatsView is one /stats snapshot.
type StatsView struct {
	Timestamp time.Time    `json:"timestamp"`
	Pairs     []StatPair   `json:"stats"`
	Resists   []SchoolView `json:"resists,omitempty"`
}

// StatPair is one named stat value.
type StatPair struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// SchoolView is one magic school's effective resist.
type SchoolView struct {
	School string  `json:"school"`
	Value  float64 `json:"value"`
}

// NewStatsReport creates a Report from a snapshot. pairs may be a
// filtered subset of the snapshot's stats; resists may be nil.
func NewStatsReport(snap *stats.Snapshot, pairs []stats.Pair, resists []stats.SchoolResist, meta Metadata) *Report {
	view := &StatsView{Timestamp: snap.Timestamp}
	for _, p := range pairs {
		view.Pairs = append(view.Pairs, StatPair{Name: p.Name, Value: p.Value})
	}
	for _, r := range resists {
		view.Resists = append(view.Resists, SchoolView{School: r.School.String(), Value: r.Value})
	}
	return &Report{Stats: view, Metadata: meta}
}

// SaveView describes a decoded save file.
type SaveView struct {
	Path            string      `json:"path"`
	Version         int         `json:"version"`
	AvatarID        string      `json:"avatar_id"`
	AvatarName      string      `json:"avatar_name"`
	Gold            *int64      `json:"gold,omitempty"`
	AdventurerExp   int64       `json:"adventurer_exp"`
	AdventurerLevel int         `json:"adventurer_level"`
	ProducerExp     int64       `json:"producer_exp"`
	ProducerLevel   int         `json:"producer_level"`
	Skills          []SkillView `json:"skills,omitempty"`
	Items           []ItemView  `json:"items,omitempty"`
}

// SkillView is one trained skill.
type SkillView struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name,omitempty"`
	Level int    `json:"level,omitempty"`
	Exp   int64  `json:"exp"`
}

// ItemView is one inventory entry.
type ItemView struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Count         int64   `json:"count"`
	Bag           bool    `json:"bag,omitempty"`
	Durable       bool    `json:"durable,omitempty"`
	Durability    float64 `json:"durability,omitempty"`
	MaxDurability float64 `json:"max_durability,omitempty"`
}

// NewSaveReport creates a Report describing a decoded save. Gold is
// omitted on layouts that do not carry it.
func NewSaveReport(path string, tree *savefile.Tree, meta Metadata) (*Report, error) {
	avatarID, err := tree.AvatarID()
	if err != nil {
		return nil, err
	}
	name, err := tree.AvatarName(avatarID)
	if err != nil {
		return nil, err
	}
	view := &SaveView{
		Path:       path,
		Version:    tree.Version(),
		AvatarID:   avatarID,
		AvatarName: name,
	}
	if exp, err := tree.AdventurerExp(avatarID); err == nil {
		view.AdventurerExp = exp
		view.AdventurerLevel = experience.Level.LevelFor(exp)
	}
	if exp, err := tree.ProducerExp(avatarID); err == nil {
		view.ProducerExp = exp
		view.ProducerLevel = experience.Level.LevelFor(exp)
	}
	if gold, err := tree.Gold(); err == nil {
		view.Gold = &gold
	}
	meta.Avatar = name
	return &Report{Save: view, Metadata: meta}, nil
}

// AddSkills fills the view's skill list from the character sheet.
// Skills missing from the catalog keep their numeric ID only.
func (v *SaveView) AddSkills(tree *savefile.Tree) error {
	ids, err := tree.SkillIDs(v.AvatarID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		exp, ok := tree.SkillExp(v.AvatarID, id)
		if !ok {
			continue
		}
		sv := SkillView{ID: id, Exp: exp}
		if sk, found := experience.FindSkill(uint32(id)); found {
			sv.Name = sk.Name
			sv.Level = experience.LevelFromScaled(sk.Multiplier, exp)
		}
		v.Skills = append(v.Skills, sv)
	}
	return nil
}

// AddItems fills the view's item list from the main backpack.
func (v *SaveView) AddItems(tree *savefile.Tree) error {
	backpackID, err := tree.BackpackID(v.AvatarID)
	if err != nil {
		return err
	}
	items, err := tree.Items(backpackID)
	if err != nil {
		return err
	}
	for _, it := range items {
		v.Items = append(v.Items, ItemView{
			ID:            it.ID,
			Name:          it.Name,
			Count:         it.Count,
			Bag:           it.Bag,
			Durable:       it.Durable,
			Durability:    it.Durability,
			MaxDurability: it.MaxDurability,
		})
	}
	return nil
}

// ScheduleView is the celestial schedule.
type ScheduleView struct {
	Rifts  []RiftView  `json:"rifts,omitempty"`
	Vale   *ValeView   `json:"lost_vale,omitempty"`
	Sieges []SiegeView `json:"sieges,omitempty"`
}

// RiftView is one lunar rift's state.
type RiftView struct {
	Name      string `json:"name"`
	MoonPhase string `json:"moon_phase"`
	Open      bool   `json:"open"`
	Remaining string `json:"remaining"`
}

// ValeView is the Lost Vale state.
type ValeView struct {
	Open      bool   `json:"open"`
	Remaining string `json:"remaining"`
}

// SiegeView is one cabalist's position.
type SiegeView struct {
	Cabalist  string `json:"cabalist"`
	Town      string `json:"town"`
	NextTown  string `json:"next_town,omitempty"`
	Dormant   bool   `json:"dormant,omitempty"`
	Remaining string `json:"remaining,omitempty"`
}

// NewScheduleReport creates a Report from the chronometer state.
func NewScheduleReport(rifts []chronometer.Rift, vale chronometer.Vale, sieges []chronometer.Siege, meta Metadata) *Report {
	view := &ScheduleView{
		Vale: &ValeView{Open: vale.Open, Remaining: chronometer.FormatCountdown(vale.Remaining)},
	}
	for _, r := range rifts {
		view.Rifts = append(view.Rifts, RiftView{
			Name:      r.Name,
			MoonPhase: r.MoonPhase,
			Open:      r.Open,
			Remaining: chronometer.FormatCountdown(r.Remaining),
		})
	}
	for _, s := range sieges {
		sv := SiegeView{
			Cabalist: s.Cabalist,
			Town:     s.Town,
			NextTown: s.NextTown,
			Dormant:  s.Dormant,
		}
		if !s.Dormant {
			sv.Remaining = chronometer.FormatCountdown(s.Remaining)
		}
		view.Sieges = append(view.Sieges, sv)
	}
	return &Report{Schedule: view, Metadata: meta}
}

// PlantsView lists growth timers.
type PlantsView struct {
	Plants []PlantView `json:"plants"`
}

// PlantView is one growth timer.
type PlantView struct {
	ID          int64      `json:"id"`
	Description string     `json:"description"`
	Seed        string     `json:"seed"`
	Environment string     `json:"environment"`
	PlantedAt   time.Time  `json:"planted_at"`
	NextEvent   string     `json:"next_event,omitempty"`
	NextAt      *time.Time `json:"next_at,omitempty"`
	Done        bool       `json:"done,omitempty"`
}

// NewPlantsReport creates a Report from growth timers, resolving each
// plant's next pending event at the given instant.
func NewPlantsReport(list []plants.Plant, now time.Time, meta Metadata) *Report {
	view := &PlantsView{}
	for i := range list {
		p := &list[i]
		pv := PlantView{
			ID:          p.ID,
			Description: p.Description,
			Seed:        p.SeedName,
			Environment: p.Environment.String(),
			PlantedAt:   p.PlantedAt,
		}
		if stage, at, ok := p.NextEvent(now); ok {
			pv.NextEvent = stage.String()
			pv.NextAt = &at
		} else {
			pv.Done = true
		}
		view.Plants = append(view.Plants, pv)
	}
	return &Report{Plants: view, Metadata: meta}
}
