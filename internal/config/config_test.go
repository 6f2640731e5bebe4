package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// noEnv is a getenv replacement that sees an empty environment.
func noEnv(string) string { return "" }

// writeConfig writes content to a config file in a fresh temp dir.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default MaxDepth is 2", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxDepth != 2 {
			t.Errorf("expected MaxDepth to be 2, got %d", cfg.MaxDepth)
		}
	})

	t.Run("default Delay is 1 second", func(t *testing.T) {
		t.Parallel()
		if cfg.Delay.Duration() != time.Second {
			t.Errorf("expected Delay to be 1s, got %v", cfg.Delay.Duration())
		}
	})

	t.Run("default robots and recursion are enabled", func(t *testing.T) {
		t.Parallel()
		if !cfg.RespectRobots || !cfg.RecursiveCrawl || !cfg.GenerateSitemap {
			t.Error("expected respect_robots, recursive_crawl and generate_sitemap to be true")
		}
	})

	t.Run("default binary extensions include compound suffixes", func(t *testing.T) {
		t.Parallel()
		if len(cfg.BinaryExtensions) != 14 {
			t.Errorf("expected 14 binary extensions, got %d", len(cfg.BinaryExtensions))
		}
		if !cfg.IsBinaryURL("https://a.test/src.TAR.GZ") {
			t.Error("expected .tar.gz to be binary")
		}
	})

	t.Run("default LLM settings", func(t *testing.T) {
		t.Parallel()
		if cfg.LLM.MaxTokens != 16529 {
			t.Errorf("expected MaxTokens 16529, got %d", cfg.LLM.MaxTokens)
		}
		if cfg.LLM.Temperature != 0.7 {
			t.Errorf("expected Temperature 0.7, got %v", cfg.LLM.Temperature)
		}
		if cfg.LLM.Timeout.Duration() != 120*time.Second {
			t.Errorf("expected Timeout 120s, got %v", cfg.LLM.Timeout.Duration())
		}
	})

	t.Run("default search settings", func(t *testing.T) {
		t.Parallel()
		if cfg.Search.Retries != 1 {
			t.Errorf("expected Retries 1, got %d", cfg.Search.Retries)
		}
		if cfg.Search.Timeout.Duration() != 10*time.Second {
			t.Errorf("expected Timeout 10s, got %v", cfg.Search.Timeout.Duration())
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
// Each test case is designed to test one specific validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{"defaults are valid", func(*Config) {}, nil},
		{"empty seed", func(c *Config) { c.SeedURL = "" }, ErrNoSeedURL},
		{"ftp seed", func(c *Config) { c.SeedURL = "ftp://a.test/" }, ErrInvalidSeedURL},
		{"negative depth", func(c *Config) { c.MaxDepth = -1 }, ErrInvalidMaxDepth},
		{"zero depth is valid", func(c *Config) { c.MaxDepth = 0 }, nil},
		{"negative delay", func(c *Config) { c.Delay = -1 }, ErrInvalidDelay},
		{"zero fetch timeout", func(c *Config) { c.FetchTimeout = 0 }, ErrInvalidTimeout},
		{"zero llm timeout", func(c *Config) { c.LLM.Timeout = 0 }, ErrInvalidTimeout},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
		{"negative retries", func(c *Config) { c.Search.Retries = -1 }, ErrInvalidRetries},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewConfig()
			tc.modify(cfg)
			err := cfg.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

// TestLoad tests assembling a configuration from YAML and environment.
func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for explicit missing file", func(t *testing.T) {
		t.Parallel()
		_, err := Load("/nonexistent/path/safarnama.yaml", WithEnvFile(""), WithGetenv(noEnv))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
	})

	t.Run("overlays file values on defaults", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `base_url: https://a.test/
max_depth: 3
delay: 0.5
download_specific_binaries: [".pdf"]
exclude_url_patterns: ["/logout"]
llm:
  model: tiny
`)
		cfg, err := Load(path, WithEnvFile(""), WithGetenv(noEnv))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.SeedURL != "https://a.test/" || cfg.MaxDepth != 3 {
			t.Errorf("unexpected seed/depth: %q %d", cfg.SeedURL, cfg.MaxDepth)
		}
		if cfg.Delay.Duration() != 500*time.Millisecond {
			t.Errorf("expected 500ms delay, got %v", cfg.Delay.Duration())
		}
		if cfg.LLM.Model != "tiny" {
			t.Errorf("expected model tiny, got %q", cfg.LLM.Model)
		}
		if cfg.LLM.MaxTokens != DefaultLLMMaxTokens {
			t.Errorf("absent llm key must keep default, got %d", cfg.LLM.MaxTokens)
		}
		global := cfg.GlobalSettings()
		if _, ok := global.MatchExcludedURL("https://a.test/logout"); !ok {
			t.Error("expected compiled global exclude pattern")
		}
		if !global.AllowsDownload("https://a.test/a.pdf") {
			t.Error("expected .pdf to be allowed for download")
		}
	})

	t.Run("max_depth 0 disables recursion", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, "max_depth: 0\nrecursive_crawl: true\n")
		cfg, err := Load(path, WithEnvFile(""), WithGetenv(noEnv))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.RecursiveCrawl {
			t.Error("expected recursive_crawl to be forced off")
		}
	})

	t.Run("environment secrets override the file", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, "connection_string: sqlite:///file.db\n")
		env := map[string]string{
			EnvLLMAPIKey:          "sk-test",
			EnvDBConnectionString: "postgres://u:p@db/crawl",
		}
		cfg, err := Load(path, WithEnvFile(""), WithGetenv(func(k string) string { return env[k] }))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.LLM.APIKey != "sk-test" {
			t.Errorf("expected api key from env, got %q", cfg.LLM.APIKey)
		}
		if cfg.DatabaseDSN() != "postgres://u:p@db/crawl" {
			t.Errorf("expected dsn from env, got %q", cfg.DatabaseDSN())
		}
	})

	t.Run("api key in yaml is ignored", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, "llm:\n  api_key: leaked\n")
		cfg, err := Load(path, WithEnvFile(""), WithGetenv(noEnv))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.LLM.APIKey != "" {
			t.Errorf("expected empty api key, got %q", cfg.LLM.APIKey)
		}
	})

	t.Run("invalid pattern fails compilation", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, "exclude_url_patterns: [\"(\"]\n")
		if _, err := Load(path, WithEnvFile(""), WithGetenv(noEnv)); err == nil {
			t.Error("expected error for invalid pattern")
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `invalid: yaml: content: [}`)
		if _, err := Load(path, WithEnvFile(""), WithGetenv(noEnv)); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})
}

// TestURLRulesUnmarshal tests both url_settings representations.
func TestURLRulesUnmarshal(t *testing.T) {
	t.Parallel()

	t.Run("mapping keeps declared order", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `url_settings:
  "/z/":
    find_images: true
  "/a/":
    download_binaries: true
  "/m/":
    exclude_url_patterns: []
depth_settings:
  1:
    find_images: true
`)
		cfg, err := Load(path, WithEnvFile(""), WithGetenv(noEnv))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		patterns := cfg.URLSettings.Patterns()
		expected := []string{"/z/", "/a/", "/m/"}
		if len(patterns) != len(expected) {
			t.Fatalf("expected %v, got %v", expected, patterns)
		}
		for i := range expected {
			if patterns[i] != expected[i] {
				t.Errorf("rule %d: expected %q, got %q", i, expected[i], patterns[i])
			}
		}
		if fi := cfg.URLSettings[0].Overrides.FindImages; fi == nil || !*fi {
			t.Error("expected find_images override on first rule")
		}
		if cfg.URLSettings[0].Overrides.DownloadBinaries != nil {
			t.Error("absent key must stay nil")
		}
		if cfg.URLSettings[2].Overrides.ExcludeURLPatterns == nil {
			t.Error("explicit empty list must be kept as present")
		}
		if fi := cfg.DepthSettings[1].FindImages; fi == nil || !*fi {
			t.Error("expected depth 1 override")
		}
	})

	t.Run("list form", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `url_settings:
  - pattern: "/docs/"
    download_specific_binaries: [".pdf"]
  - pattern: "/"
    find_images: false
`)
		cfg, err := Load(path, WithEnvFile(""), WithGetenv(noEnv))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cfg.URLSettings) != 2 || cfg.URLSettings[0].Pattern != "/docs/" {
			t.Fatalf("unexpected rules: %v", cfg.URLSettings.Patterns())
		}
		if got := cfg.URLSettings[0].Overrides.DownloadSpecificBinaries; len(got) != 1 || got[0] != ".pdf" {
			t.Errorf("unexpected allow list %v", got)
		}
	})

	t.Run("list entry without pattern", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, "url_settings:\n  - find_images: true\n")
		_, err := Load(path, WithEnvFile(""), WithGetenv(noEnv))
		if !errors.Is(err, ErrInvalidURLSettings) {
			t.Errorf("expected ErrInvalidURLSettings, got %v", err)
		}
	})

	t.Run("scalar is rejected", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, "url_settings: nope\n")
		if _, err := Load(path, WithEnvFile(""), WithGetenv(noEnv)); err == nil {
			t.Error("expected error for scalar url_settings")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()
		configPath := writeConfig(t, "max_depth: 1\n")
		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()
		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if XDGDataDir() == "" {
		t.Error("expected non-empty XDG data dir")
	}
	if XDGConfigDir() == "" {
		t.Error("expected non-empty XDG config dir")
	}
	if filepath.Base(DefaultDBPath()) != "safarnama.db" {
		t.Errorf("unexpected default db path %q", DefaultDBPath())
	}
}
