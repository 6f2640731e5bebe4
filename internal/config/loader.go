package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is the configuration file name searched in the
	// current directory.
	DefaultConfigFile = "safarnama.yaml"

	// DefaultEnvFile holds secrets that are kept out of the YAML file.
	DefaultEnvFile = ".env"

	// EnvLLMAPIKey is the environment variable holding the LLM API key.
	EnvLLMAPIKey = "LLM_API_KEY"

	// EnvDBConnectionString is the environment variable that overrides
	// connection_string.
	EnvDBConnectionString = "DB_CONNECTION_STRING"
)

// loadOptions holds the inputs of Load that tests need to replace.
type loadOptions struct {
	envFile string
	getenv  func(string) string
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithEnvFile sets the .env file read before the environment is consulted.
// An empty path disables .env loading.
func WithEnvFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.envFile = path
	}
}

// WithGetenv replaces os.Getenv, for tests.
func WithGetenv(getenv func(string) string) LoadOption {
	return func(o *loadOptions) {
		o.getenv = getenv
	}
}

// Load assembles the configuration: defaults, then the YAML file, then the
// .env file and environment secrets. The result is validated and compiled.
//
// When configPath is empty the file is searched with FindConfigFile and a
// missing file is not an error. An explicit configPath that does not exist
// returns ErrConfigNotFound.
func Load(configPath string, opts ...LoadOption) (*Config, error) {
	o := &loadOptions{
		envFile: DefaultEnvFile,
		getenv:  os.Getenv,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.envFile != "" {
		// godotenv never overrides variables already set in the process.
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", o.envFile, err)
		}
	}

	cfg := NewConfig()

	path := FindConfigFile(configPath)
	if configPath != "" && path == "" {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv(o.getenv)

	if cfg.MaxDepth == 0 {
		cfg.RecursiveCrawl = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Compile(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto c. Keys absent from the file
// keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if key := getenv(EnvLLMAPIKey); key != "" {
		c.LLM.APIKey = key
	}
	if dsn := getenv(EnvDBConnectionString); dsn != "" {
		c.ConnectionString = dsn
	}
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for safarnama.yaml in the current directory
// 3. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	xdgConfig := filepath.Join(XDGConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}

	return ""
}
