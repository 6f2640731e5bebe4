package policy

import (
	"testing"

	"github.com/nao1215/safarnama/internal/config"
	"github.com/nao1215/safarnama/internal/model"
)

func compiledRules(t *testing.T, rules ...model.URLRule) []model.URLRule {
	t.Helper()
	for i := range rules {
		if err := rules[i].Compile(); err != nil {
			t.Fatalf("failed to compile rule %q: %v", rules[i].Pattern, err)
		}
	}
	return rules
}

// TestComputeEffectiveLayering tests that later layers win on conflicting keys.
func TestComputeEffectiveLayering(t *testing.T) {
	t.Parallel()

	global := model.EffectiveSettings{FindImages: false, DownloadBinaries: false}
	depths := map[int]model.Overrides{
		1: {FindImages: model.Bool(true), DownloadBinaries: model.Bool(true)},
	}
	rules := compiledRules(t, model.URLRule{
		Pattern:   `/gallery/`,
		Overrides: model.Overrides{FindImages: model.Bool(false)},
	})

	t.Run("url layer wins over depth and global", func(t *testing.T) {
		t.Parallel()
		got := ComputeEffective("https://a.test/gallery/1", 1, global, depths, rules)
		if got.FindImages {
			t.Error("expected url layer value false")
		}
		if !got.DownloadBinaries {
			t.Error("key absent from url layer must keep depth value")
		}
	})

	t.Run("depth layer applies without url match", func(t *testing.T) {
		t.Parallel()
		got := ComputeEffective("https://a.test/about", 1, global, depths, rules)
		if !got.FindImages {
			t.Error("expected depth layer value true")
		}
	})

	t.Run("global applies at other depths", func(t *testing.T) {
		t.Parallel()
		got := ComputeEffective("https://a.test/about", 2, global, depths, rules)
		if got.FindImages || got.DownloadBinaries {
			t.Error("expected global values")
		}
	})

	t.Run("inputs are not modified", func(t *testing.T) {
		t.Parallel()
		_ = ComputeEffective("https://a.test/gallery/1", 1, global, depths, rules)
		if global.FindImages || global.DownloadBinaries {
			t.Error("global layer was modified")
		}
	})
}

// TestSelectRule tests exact-key precedence and first-match-wins ordering.
func TestSelectRule(t *testing.T) {
	t.Parallel()

	rules := compiledRules(t,
		model.URLRule{Pattern: `a\.test`, Overrides: model.Overrides{FindImages: model.Bool(true)}},
		model.URLRule{Pattern: `/blog/`, Overrides: model.Overrides{FindImages: model.Bool(false)}},
		model.URLRule{Pattern: `https://a.test/blog/exact`, Overrides: model.Overrides{DownloadBinaries: model.Bool(true)}},
	)

	testCases := []struct {
		name     string
		url      string
		expected string
	}{
		{"first match wins over later match", "https://a.test/blog/post", `a\.test`},
		{"exact key wins outright", "https://a.test/blog/exact", "https://a.test/blog/exact"},
		{"second rule when first does not match", "https://b.test/blog/post", `/blog/`},
		{"no match", "https://b.test/news", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rule := SelectRule(tc.url, rules)
			got := ""
			if rule != nil {
				got = rule.Pattern
			}
			if got != tc.expected {
				t.Errorf("SelectRule(%q) = %q, expected %q", tc.url, got, tc.expected)
			}
		})
	}
}

// TestComputeEffectiveExcludePatterns tests replacement of pattern lists by a layer.
func TestComputeEffectiveExcludePatterns(t *testing.T) {
	t.Parallel()

	globalLayer := model.Overrides{ExcludeURLPatterns: []string{"logout"}}
	var global model.EffectiveSettings
	globalLayer.ApplyTo(&global)

	rules := compiledRules(t, model.URLRule{
		Pattern:   `/admin/`,
		Overrides: model.Overrides{ExcludeURLPatterns: []string{}},
	})

	got := ComputeEffective("https://a.test/admin/logout", 0, global, nil, rules)
	if _, ok := got.MatchExcludedURL("https://a.test/admin/logout"); ok {
		t.Error("explicit empty list must clear the global patterns")
	}

	got = ComputeEffective("https://a.test/logout", 0, global, nil, rules)
	if _, ok := got.MatchExcludedURL("https://a.test/logout"); !ok {
		t.Error("expected global pattern to apply")
	}
}

// TestMerger tests binding of layers from a configuration.
func TestMerger(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.FindImages = true
	cfg.DepthSettings[2] = model.Overrides{DownloadBinaries: model.Bool(true)}
	cfg.URLSettings = config.URLRules{
		{Pattern: `\.png$`, Overrides: model.Overrides{FindImages: model.Bool(false)}},
	}
	if err := cfg.Compile(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m := NewMerger(cfg)

	got := m.Effective("https://a.test/x", 2)
	if !got.FindImages || !got.DownloadBinaries {
		t.Errorf("unexpected settings %+v", got)
	}
	got = m.Effective("https://a.test/x.png", 0)
	if got.FindImages {
		t.Error("expected url rule to disable images")
	}
}
