package config

import (
	"fmt"

	"github.com/nao1215/safarnama/internal/model"
	"gopkg.in/yaml.v3"
)

// URLRules is the ordered url_settings layer. Order is significant: the
// first rule whose pattern matches a URL wins.
//
// The YAML form is either a mapping, whose key order is preserved:
//
//	url_settings:
//	  "/blog/":
//	    find_images: true
//
// or a list of rules with an explicit pattern key:
//
//	url_settings:
//	  - pattern: "/blog/"
//	    find_images: true
type URLRules []model.URLRule

// ruleEntry is the list form of one rule.
type ruleEntry struct {
	Pattern         string `yaml:"pattern"`
	model.Overrides `yaml:",inline"`
}

// UnmarshalYAML decodes either representation, preserving declared order.
func (r *URLRules) UnmarshalYAML(value *yaml.Node) error {
	rules := make(URLRules, 0)

	switch value.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(value.Content); i += 2 {
			key, body := value.Content[i], value.Content[i+1]
			var o model.Overrides
			if err := body.Decode(&o); err != nil {
				return fmt.Errorf("url_settings[%q]: %w", key.Value, err)
			}
			rules = append(rules, model.URLRule{Pattern: key.Value, Overrides: o})
		}
	case yaml.SequenceNode:
		for i, item := range value.Content {
			var e ruleEntry
			if err := item.Decode(&e); err != nil {
				return fmt.Errorf("url_settings[%d]: %w", i, err)
			}
			if e.Pattern == "" {
				return fmt.Errorf("url_settings[%d]: %w", i, ErrInvalidURLSettings)
			}
			rules = append(rules, model.URLRule{Pattern: e.Pattern, Overrides: e.Overrides})
		}
	case yaml.ScalarNode:
		if value.Tag != "!!null" {
			return ErrInvalidURLSettings
		}
	default:
		return ErrInvalidURLSettings
	}

	*r = rules
	return nil
}

// Patterns returns the rule patterns in declared order.
func (r URLRules) Patterns() []string {
	patterns := make([]string, 0, len(r))
	for _, rule := range r {
		patterns = append(patterns, rule.Pattern)
	}
	return patterns
}
