package policy

import (
	"github.com/nao1215/safarnama/internal/config"
	"github.com/nao1215/safarnama/internal/model"
)

// Merger binds the settings layers of one configuration so that callers
// only pass the URL and its depth.
type Merger struct {
	global   model.EffectiveSettings
	depths   map[int]model.Overrides
	urlRules []model.URLRule
}

// NewMerger creates a Merger from a compiled configuration.
func NewMerger(cfg *config.Config) *Merger {
	return &Merger{
		global:   cfg.GlobalSettings(),
		depths:   cfg.DepthSettings,
		urlRules: cfg.URLSettings,
	}
}

// Effective returns the merged settings for rawURL at depth.
func (m *Merger) Effective(rawURL string, depth int) model.EffectiveSettings {
	return ComputeEffective(rawURL, depth, m.global, m.depths, m.urlRules)
}
