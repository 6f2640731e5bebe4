package policy

import (
	"github.com/nao1215/safarnama/internal/model"
)

// ComputeEffective merges the three settings layers for (rawURL, depth).
// It is a pure function: the inputs are not modified.
func ComputeEffective(
	rawURL string,
	depth int,
	global model.EffectiveSettings,
	depthSettings map[int]model.Overrides,
	urlRules []model.URLRule,
) model.EffectiveSettings {
	effective := global

	if o, ok := depthSettings[depth]; ok {
		o.ApplyTo(&effective)
	}

	if rule := SelectRule(rawURL, urlRules); rule != nil {
		rule.Overrides.ApplyTo(&effective)
	}

	return effective
}

// SelectRule returns the URL-scoped rule for rawURL, or nil when no rule
// applies. An exact pattern match wins over any earlier regular expression
// match.
func SelectRule(rawURL string, urlRules []model.URLRule) *model.URLRule {
	for i := range urlRules {
		if urlRules[i].Pattern == rawURL {
			return &urlRules[i]
		}
	}
	for i := range urlRules {
		if urlRules[i].Matches(rawURL) {
			return &urlRules[i]
		}
	}
	return nil
}
