// Package config handles searchhub configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./searchhub.yaml, ~/.config/searchhub/config.yaml,
// /etc/searchhub/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"searchhub.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "searchhub", "config.yaml"))
	}

	paths = append(paths, "/etc/searchhub/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all searchhub configuration.
type Config struct {
	Listen    ListenConfig    `yaml:"listen"`
	Brave     BraveConfig     `yaml:"brave"`
	SearXNG   SearXNGConfig   `yaml:"searxng"`
	Search    SearchConfig    `yaml:"search"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
	DataDir   string          `yaml:"data_dir"`
	LogLevel  string          `yaml:"log_level"`
	LogFormat string          `yaml:"log_format"` // "text" (default) or "json"
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// BraveConfig defines the commercial search provider settings.
type BraveConfig struct {
	// APIKey is the Brave Search subscription token. Empty disables
	// the commercial provider entirely.
	APIKey string `yaml:"api_key"`
	// MonthlyLimit is the number of API calls allowed per calendar
	// month before the provider is skipped (default 2000, the free
	// tier allowance).
	MonthlyLimit int `yaml:"monthly_limit"`
}

// Configured reports whether a Brave API key is set.
func (c BraveConfig) Configured() bool {
	return c.APIKey != ""
}

// SearXNGConfig defines the self-hosted provider pool.
type SearXNGConfig struct {
	// CustomInstance, when set, is tried before the Instances list.
	CustomInstance string `yaml:"custom_instance"`
	// Instances are instance base URLs tried in order. Empty uses
	// the built-in public instance list.
	Instances []string `yaml:"instances"`
}

// SearchConfig defines orchestration defaults.
type SearchConfig struct {
	// MaxResults is the default result count per search (default 7).
	MaxResults int `yaml:"max_results"`
	// MaxContentLength is the per-page character budget for content
	// enrichment (default 1000).
	MaxContentLength int `yaml:"max_content_length"`
	// DefaultLanguage wins language-detection ties ("de" or "en",
	// default "de").
	DefaultLanguage string `yaml:"default_language"`
	// OptimizeQuery enables LLM query rewriting by default.
	OptimizeQuery bool `yaml:"optimize_query"`
	// FetchFullContent enables page content enrichment by default.
	FetchFullContent bool `yaml:"fetch_full_content"`
	// MultiQuery dispatches the original and optimized query in
	// parallel by default.
	MultiQuery bool `yaml:"multi_query"`
	// ReRank enables local relevance re-ranking by default.
	ReRank *bool `yaml:"re_rank"`
	// TriggerPhrases override the built-in explicit-search trigger
	// phrase list used by ShouldAutoSearch.
	TriggerPhrases []string `yaml:"trigger_phrases"`
}

// OptimizerConfig defines the LLM used for query rewriting.
type OptimizerConfig struct {
	// Model is the chat model name. Empty disables optimization.
	Model string `yaml:"model"`
	// OllamaURL is the Ollama base URL (default http://localhost:11434).
	OllamaURL string `yaml:"ollama_url"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	cfg := &Config{
		Listen: ListenConfig{Port: 8181},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Listen.Port == 0 {
		c.Listen.Port = 8181
	}
	if c.Brave.MonthlyLimit <= 0 {
		c.Brave.MonthlyLimit = 2000
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = 7
	}
	if c.Search.MaxContentLength <= 0 {
		c.Search.MaxContentLength = 1000
	}
	if c.Search.DefaultLanguage == "" {
		c.Search.DefaultLanguage = "de"
	}
	if c.Search.ReRank == nil {
		t := true
		c.Search.ReRank = &t
	}
	if c.Optimizer.OllamaURL == "" {
		c.Optimizer.OllamaURL = "http://localhost:11434"
	}
	if c.DataDir == "" {
		c.DataDir = "."
	}
}
