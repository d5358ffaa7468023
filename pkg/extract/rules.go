package extract

import (
	"fmt"
	"regexp"
)

// numberClass matches a numeric capture including the decimal
// separators written by non-English game clients.
const numberClass = `[0-9.,` + "٫" + `]+`

// Rule is one entry in the ordered extraction table: a pattern tagged
// with the event kind it produces. Named capture groups amount, actor,
// target, and element populate the event's fields.
type Rule struct {
	// Kind is the event kind this rule produces.
	Kind Kind `yaml:"kind"`

	// Name identifies the rule in errors and custom events.
	Name string `yaml:"name"`

	// Pattern is the regular expression matched against the line body.
	Pattern string `yaml:"pattern"`

	compiled *regexp.Regexp
}

// Compile validates the rule and compiles its pattern.
func (r *Rule) Compile() error {
	if !knownKinds[r.Kind] {
		return fmt.Errorf("rule %s: unknown kind %q", r.Name, r.Kind)
	}
	if r.Kind == KindCustom && r.Name == "" {
		return fmt.Errorf("custom rules require a name")
	}
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return fmt.Errorf("rule %s: invalid pattern: %w", r.Name, err)
	}
	if needsAmount(r.Kind) && !hasGroup(re, "amount") {
		return fmt.Errorf("rule %s: kind %s requires an amount capture group", r.Name, r.Kind)
	}
	r.compiled = re
	return nil
}

// Regexp returns the compiled pattern. Compile must have succeeded.
func (r *Rule) Regexp() *regexp.Regexp {
	return r.compiled
}

func needsAmount(k Kind) bool {
	switch k {
	case KindDamageDealt, KindDamageTaken, KindResistCheck, KindXPGain, KindHeal:
		return true
	}
	return false
}

func hasGroup(re *regexp.Regexp, name string) bool {
	for _, n := range re.SubexpNames() {
		if n == name {
			return true
		}
	}
	return false
}

// DefaultRules returns the built-in extraction table covering the
// game's combat, resist, experience, heal, and death lines. Rules are
// ordered and mutually exclusive by construction; a user rules file
// may replace or extend the table.
func DefaultRules() []Rule {
	return []Rule{
		{
			Kind:    KindDamageDealt,
			Name:    "damage-dealt",
			Pattern: `^You (?:hit|attack|critically hit) (?P<target>.+?) for (?P<amount>` + numberClass + `)(?: (?P<element>[A-Za-z]+))? damage`,
		},
		{
			Kind:    KindDamageTaken,
			Name:    "damage-taken",
			Pattern: `^(?P<actor>.+?) (?:hits|critically hits) you for (?P<amount>` + numberClass + `)(?: (?P<element>[A-Za-z]+))? damage`,
		},
		{
			Kind:    KindResistCheck,
			Name:    "resist-check",
			Pattern: `^(?:You r|R)esisted (?P<amount>` + numberClass + `)%(?: of the (?P<element>[A-Za-z]+) damage)?`,
		},
		{
			Kind:    KindXPGain,
			Name:    "xp-gain",
			Pattern: `^You (?:gained|earned) (?P<amount>` + numberClass + `) (?:experience|producer experience|XP)`,
		},
		{
			Kind:    KindHeal,
			Name:    "heal",
			Pattern: `^(?P<actor>.+?) (?:heals?|restores?) (?P<target>.+?) for (?P<amount>` + numberClass + `) health`,
		},
		{
			Kind:    KindDeath,
			Name:    "death",
			Pattern: `^(?P<actor>.+?) (?:has died|was slain|dies)\b`,
		},
	}
}

// CheckOverlap verifies rule exclusivity against a set of sample
// lines: any sample matched by more than one rule is a configuration
// error. Rules must be compiled.
func CheckOverlap(rules []Rule, samples []string) error {
	for _, sample := range samples {
		first := -1
		for i := range rules {
			if rules[i].Regexp() == nil {
				return fmt.Errorf("rule %s is not compiled", rules[i].Name)
			}
			if !rules[i].Regexp().MatchString(sample) {
				continue
			}
			if first >= 0 {
				return fmt.Errorf("rules %s and %s both match %q", rules[first].Name, rules[i].Name, sample)
			}
			first = i
		}
	}
	return nil
}
