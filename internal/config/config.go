package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/ludo-technologies/finscn/domain"
	"github.com/ludo-technologies/finscn/internal/marker"
)

// Default values shared by the loaders and the init template
const (
	DefaultMarkerVersion  = string(marker.V2)
	DefaultOutputFormat   = "text"
	DefaultMaxConcurrency = 4
	DefaultTimeoutSeconds = 300

	// EnvPrefix prefixes environment overrides, e.g. FINSCN_MARKER_OWNER
	EnvPrefix = "FINSCN"
)

// Config represents the finscn configuration
type Config struct {
	Marker      MarkerConfig      `mapstructure:"marker" yaml:"marker"`
	Input       InputConfig       `mapstructure:"input" yaml:"input"`
	Output      OutputConfig      `mapstructure:"output" yaml:"output"`
	Performance PerformanceConfig `mapstructure:"performance" yaml:"performance"`
	Trace       TraceConfig       `mapstructure:"trace" yaml:"trace"`
}

// MarkerConfig selects the marker class whose calls are rewritten
type MarkerConfig struct {
	// Owner is the internal name of the marker class
	Owner string `mapstructure:"owner" yaml:"owner"`
	// Version is the naming scheme, v1 or v2
	Version string `mapstructure:"version" yaml:"version"`
}

// InputConfig controls which method files are read
type InputConfig struct {
	Paths           []string `mapstructure:"paths" yaml:"paths"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive"`
	IncludePatterns []string `mapstructure:"include_patterns" yaml:"include_patterns"`
	ExcludePatterns []string `mapstructure:"exclude_patterns" yaml:"exclude_patterns"`
}

// OutputConfig controls the report
type OutputConfig struct {
	Format      string `mapstructure:"format" yaml:"format"` // text, json, yaml
	ShowListing bool   `mapstructure:"show_listing" yaml:"show_listing"`
	// Directory receives rewritten method files; empty means none are written
	Directory string `mapstructure:"directory" yaml:"directory"`
}

// PerformanceConfig bounds a run
type PerformanceConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency" yaml:"max_concurrency"`
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// TraceConfig enables decision logging on stderr
type TraceConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Marker: MarkerConfig{
			Owner:   marker.DefaultOwner,
			Version: DefaultMarkerVersion,
		},
		Input: InputConfig{
			Paths:           []string{},
			Recursive:       true,
			IncludePatterns: []string{},
			ExcludePatterns: []string{},
		},
		Output: OutputConfig{
			Format: DefaultOutputFormat,
		},
		Performance: PerformanceConfig{
			MaxConcurrency: DefaultMaxConcurrency,
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
	}
}

// LoadConfig loads a configuration file of any format viper reads. An empty
// path yields the defaults. FINSCN_* environment variables override both,
// e.g. FINSCN_OUTPUT_FORMAT=json.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, config)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults registers every key so environment overrides apply even when
// the file does not mention it.
func setDefaults(v *viper.Viper, c *Config) {
	for key, value := range settings(c) {
		v.SetDefault(key, value)
	}
}

// settings flattens c into viper keys
func settings(c *Config) map[string]interface{} {
	return map[string]interface{}{
		"marker.owner":                c.Marker.Owner,
		"marker.version":              c.Marker.Version,
		"input.paths":                 c.Input.Paths,
		"input.recursive":             c.Input.Recursive,
		"input.include_patterns":      c.Input.IncludePatterns,
		"input.exclude_patterns":      c.Input.ExcludePatterns,
		"output.format":               c.Output.Format,
		"output.show_listing":         c.Output.ShowListing,
		"output.directory":            c.Output.Directory,
		"performance.max_concurrency": c.Performance.MaxConcurrency,
		"performance.timeout_seconds": c.Performance.TimeoutSeconds,
		"trace.enabled":               c.Trace.Enabled,
	}
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if c.Marker.Owner == "" {
		return fmt.Errorf("marker.owner must not be empty")
	}
	if strings.ContainsAny(c.Marker.Owner, ". ") {
		return fmt.Errorf("marker.owner must be an internal name like com/example/Finally, got %q", c.Marker.Owner)
	}
	if _, err := marker.ParseVersion(c.Marker.Version); err != nil {
		return fmt.Errorf("marker.version: %w", err)
	}

	if _, err := domain.ParseOutputFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format must be one of text, json, yaml, got %q", c.Output.Format)
	}

	if c.Performance.MaxConcurrency < 0 {
		return fmt.Errorf("performance.max_concurrency must be >= 0, got %d", c.Performance.MaxConcurrency)
	}
	if c.Performance.TimeoutSeconds < 0 {
		return fmt.Errorf("performance.timeout_seconds must be >= 0, got %d", c.Performance.TimeoutSeconds)
	}

	return nil
}

// SaveConfig saves configuration to a file; the extension picks the format
func SaveConfig(config *Config, path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	for key, value := range settings(config) {
		v.Set(key, value)
	}
	return v.WriteConfig()
}
