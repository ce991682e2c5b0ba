package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects the report rendering.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config holds all configuration for depaudit
type Config struct {
	// ManuscriptGlobs select the terminal documents whose references mark
	// outputs as deliverables rather than orphans.
	ManuscriptGlobs []string `yaml:"manuscript_globs" env:"DEPAUDIT_MANUSCRIPT_GLOBS"`

	// Excludes adds gitignore-style patterns on top of .depauditignore.
	Excludes []string `yaml:"excludes" env:"DEPAUDIT_EXCLUDES"`

	// Format is the report rendering: text or json.
	Format Format `yaml:"format" env:"DEPAUDIT_FORMAT"`

	// Output writes the report to a file instead of stdout when set.
	Output string `yaml:"output" env:"DEPAUDIT_OUTPUT"`

	// Cache enables the per-file extraction cache.
	Cache bool `yaml:"cache" env:"DEPAUDIT_CACHE"`

	// CacheDir overrides the cache location (default .depaudit/cache).
	CacheDir string `yaml:"cache_dir" env:"DEPAUDIT_CACHE_DIR"`

	// Logging
	Verbose bool `yaml:"verbose" env:"DEPAUDIT_VERBOSE"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ManuscriptGlobs: []string{"*.tex", "paper/*.tex", "manuscript/*.tex", "*.qmd"},
		Excludes:        nil,
		Format:          FormatText,
		Output:          "",
		Cache:           true,
		CacheDir:        "",
		Verbose:         false,
	}
}

// globalConfigFilePath returns the global config file path (~/.depaudit/config.yaml)
func globalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".depaudit/config.yaml"
	}
	return filepath.Join(home, ".depaudit", "config.yaml")
}

// ProjectConfigPath returns the project-level config file path relative to a
// project root.
func ProjectConfigPath(root string) string {
	return filepath.Join(root, ".depaudit", "config.yaml")
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (<root>/.depaudit/config.yaml)
// 3. Global config (~/.depaudit/config.yaml)
// 4. Defaults
func Load(root string) (*Config, error) {
	cfg := DefaultConfig()

	globalConfigPath := globalConfigFilePath()
	if data, err := os.ReadFile(globalConfigPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", globalConfigPath, err)
		}
	}

	projectConfigPath := ProjectConfigPath(root)
	if data, err := os.ReadFile(projectConfigPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", projectConfigPath, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DEPAUDIT_MANUSCRIPT_GLOBS"); v != "" {
		cfg.ManuscriptGlobs = splitList(v)
	}
	if v := os.Getenv("DEPAUDIT_EXCLUDES"); v != "" {
		cfg.Excludes = splitList(v)
	}
	if v := os.Getenv("DEPAUDIT_FORMAT"); v != "" {
		cfg.Format = Format(v)
	}
	if v := os.Getenv("DEPAUDIT_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv("DEPAUDIT_CACHE"); v != "" {
		cfg.Cache = v == "true" || v == "1" || v == "yes"
	}
	if v := os.Getenv("DEPAUDIT_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("DEPAUDIT_VERBOSE"); v != "" {
		cfg.Verbose = v == "true" || v == "1" || v == "yes"
	}
}

// splitList parses a colon- or comma-separated environment list.
func splitList(v string) []string {
	sep := ","
	if strings.Contains(v, ":") && !strings.Contains(v, ",") {
		sep = ":"
	}
	var out []string
	for _, part := range strings.Split(v, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks that the configuration has valid required fields
func (c *Config) Validate() error {
	switch c.Format {
	case FormatText, FormatJSON:
		// Valid
	default:
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", c.Format)
	}

	for _, g := range c.ManuscriptGlobs {
		if _, err := filepath.Match(g, ""); err != nil {
			return fmt.Errorf("invalid manuscript glob %q: %w", g, err)
		}
	}

	return nil
}
