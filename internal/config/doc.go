// Package config provides the configuration of safarnama.
// It defines the crawl, LLM and search settings, the three settings
// layers used by the policy merger, and loading from YAML and .env files.
package config
