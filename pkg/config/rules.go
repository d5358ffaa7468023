package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"chronicler/pkg/extract"
)

// RulesFile is the YAML document defining the extraction rule table.
// With replace true the listed rules stand alone; otherwise they are
// appended to the built-in table.
type RulesFile struct {
	Replace bool           `yaml:"replace"`
	Rules   []extract.Rule `yaml:"rules"`
}

// LoadRules reads an extraction rules file and returns the resolved
// rule table. Every pattern is compiled during validation, so a bad
// pattern is reported here with its rule name rather than at first
// use. An empty path selects the built-in table.
func LoadRules(path string) ([]extract.Rule, error) {
	if path == "" {
		return extract.DefaultRules(), nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- user-provided rules path is expected
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}

	var rf RulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}
	if len(rf.Rules) == 0 {
		return nil, fmt.Errorf("rules file %s defines no rules", path)
	}

	rules := rf.Rules
	if !rf.Replace {
		rules = append(extract.DefaultRules(), rules...)
	}
	for i := range rules {
		if err := rules[i].Compile(); err != nil {
			return nil, fmt.Errorf("rules file %s: %w", path, err)
		}
	}
	return rules, nil
}
