package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ConfigFileName is the project configuration file looked up by TomlConfigLoader
const ConfigFileName = ".finscn.toml"

// FinscnTomlConfig represents the structure of .finscn.toml. Booleans are
// pointers so an absent key keeps its default.
type FinscnTomlConfig struct {
	Marker      FinscnTomlMarkerConfig      `toml:"marker"`
	Input       FinscnTomlInputConfig       `toml:"input"`
	Output      FinscnTomlOutputConfig      `toml:"output"`
	Performance FinscnTomlPerformanceConfig `toml:"performance"`
	Trace       FinscnTomlTraceConfig       `toml:"trace"`
}

type FinscnTomlMarkerConfig struct {
	Owner   string `toml:"owner"`
	Version string `toml:"version"`
}

type FinscnTomlInputConfig struct {
	Paths           []string `toml:"paths"`
	Recursive       *bool    `toml:"recursive"`
	IncludePatterns []string `toml:"include_patterns"`
	ExcludePatterns []string `toml:"exclude_patterns"`
}

type FinscnTomlOutputConfig struct {
	Format      string `toml:"format"`
	ShowListing *bool  `toml:"show_listing"`
	Directory   string `toml:"directory"`
}

type FinscnTomlPerformanceConfig struct {
	MaxConcurrency *int `toml:"max_concurrency"`
	TimeoutSeconds *int `toml:"timeout_seconds"`
}

type FinscnTomlTraceConfig struct {
	Enabled *bool `toml:"enabled"`
}

// TomlConfigLoader loads .finscn.toml from a directory or one of its parents
type TomlConfigLoader struct{}

// NewTomlConfigLoader creates a new TOML configuration loader
func NewTomlConfigLoader() *TomlConfigLoader {
	return &TomlConfigLoader{}
}

// LoadConfig finds .finscn.toml starting at startDir and merges it into the
// defaults. Without a file the defaults are returned.
func (l *TomlConfigLoader) LoadConfig(startDir string) (*Config, error) {
	path, err := l.FindConfigFile(startDir)
	if err != nil {
		return DefaultConfig(), nil
	}
	return l.LoadFile(path)
}

// LoadFile parses one TOML file and merges it into the defaults
func (l *TomlConfigLoader) LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var tomlCfg FinscnTomlConfig
	if err := toml.Unmarshal(data, &tomlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg := DefaultConfig()
	l.merge(cfg, &tomlCfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

// FindConfigFile walks up the directory tree to find .finscn.toml
func (l *TomlConfigLoader) FindConfigFile(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if info, err := os.Stat(configPath); err == nil && !info.IsDir() {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", os.ErrNotExist
}

// merge copies the values present in the file over the defaults
func (l *TomlConfigLoader) merge(cfg *Config, t *FinscnTomlConfig) {
	if t.Marker.Owner != "" {
		cfg.Marker.Owner = t.Marker.Owner
	}
	if t.Marker.Version != "" {
		cfg.Marker.Version = t.Marker.Version
	}

	if len(t.Input.Paths) > 0 {
		cfg.Input.Paths = t.Input.Paths
	}
	cfg.Input.Recursive = BoolValue(t.Input.Recursive, cfg.Input.Recursive)
	if len(t.Input.IncludePatterns) > 0 {
		cfg.Input.IncludePatterns = t.Input.IncludePatterns
	}
	if len(t.Input.ExcludePatterns) > 0 {
		cfg.Input.ExcludePatterns = t.Input.ExcludePatterns
	}

	if t.Output.Format != "" {
		cfg.Output.Format = t.Output.Format
	}
	cfg.Output.ShowListing = BoolValue(t.Output.ShowListing, cfg.Output.ShowListing)
	if t.Output.Directory != "" {
		cfg.Output.Directory = t.Output.Directory
	}

	if t.Performance.MaxConcurrency != nil {
		cfg.Performance.MaxConcurrency = *t.Performance.MaxConcurrency
	}
	if t.Performance.TimeoutSeconds != nil {
		cfg.Performance.TimeoutSeconds = *t.Performance.TimeoutSeconds
	}

	cfg.Trace.Enabled = BoolValue(t.Trace.Enabled, cfg.Trace.Enabled)
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// BoolValue dereferences p, falling back to def when p is nil
func BoolValue(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
