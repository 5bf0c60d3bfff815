package service

import (
	"os"
	"time"

	"github.com/ludo-technologies/finscn/domain"
	"github.com/ludo-technologies/finscn/internal/config"
)

// Flag names recorded in RewriteRequest.ExplicitFlags
const (
	FlagFormat         = "format"
	FlagShowListing    = "listing"
	FlagEmitDir        = "emit-dir"
	FlagMarkerOwner    = "marker-owner"
	FlagMarkerVersion  = "marker-version"
	FlagRecursive      = "recursive"
	FlagInclude        = "include"
	FlagExclude        = "exclude"
	FlagMaxConcurrency = "max-concurrency"
	FlagTimeout        = "timeout"
	FlagTrace          = "trace"
)

// ConfigurationLoaderImpl implements the RewriteConfigurationLoader interface
type ConfigurationLoaderImpl struct {
	workDir string
}

// NewConfigurationLoader creates a loader that discovers .finscn.toml from
// the working directory
func NewConfigurationLoader() *ConfigurationLoaderImpl {
	return &ConfigurationLoaderImpl{workDir: "."}
}

// NewConfigurationLoaderAt creates a loader that discovers .finscn.toml from dir
func NewConfigurationLoaderAt(dir string) *ConfigurationLoaderImpl {
	return &ConfigurationLoaderImpl{workDir: dir}
}

// LoadConfig loads configuration from the specified path
func (c *ConfigurationLoaderImpl) LoadConfig(path string) (*domain.RewriteRequest, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, domain.NewConfigError("failed to load configuration file", err)
	}
	return c.convertToRewriteRequest(cfg), nil
}

// LoadDefaultConfig loads .finscn.toml when one is found, else the defaults
// with FINSCN_* environment overrides. A broken file falls back to defaults.
func (c *ConfigurationLoaderImpl) LoadDefaultConfig() *domain.RewriteRequest {
	if path := c.FindDefaultConfigFile(); path != "" {
		if cfg, err := config.NewTomlConfigLoader().LoadFile(path); err == nil {
			return c.convertToRewriteRequest(cfg)
		}
	}

	cfg, err := config.LoadConfig("")
	if err != nil {
		cfg = config.DefaultConfig()
	}
	return c.convertToRewriteRequest(cfg)
}

// MergeConfig merges CLI flags with the configuration. Values the user set
// explicitly win; everything else comes from base.
func (c *ConfigurationLoaderImpl) MergeConfig(base *domain.RewriteRequest, override *domain.RewriteRequest) *domain.RewriteRequest {
	merged := *base
	flags := config.NewFlagTrackerWithFlags(override.ExplicitFlags)

	// Paths, mode and destinations always come from the command
	if len(override.Paths) > 0 {
		merged.Paths = override.Paths
	}
	if override.Mode != "" {
		merged.Mode = override.Mode
	}
	merged.OutputWriter = override.OutputWriter
	merged.OutputPath = override.OutputPath
	merged.ConfigPath = override.ConfigPath
	merged.ExplicitFlags = flags.GetAll()

	merged.OutputFormat = domain.OutputFormat(flags.MergeString(string(base.OutputFormat), string(override.OutputFormat), FlagFormat))
	merged.ShowListing = flags.MergeBool(base.ShowListing, override.ShowListing, FlagShowListing)
	merged.EmitDir = flags.MergeString(base.EmitDir, override.EmitDir, FlagEmitDir)
	merged.MarkerOwner = flags.MergeString(base.MarkerOwner, override.MarkerOwner, FlagMarkerOwner)
	merged.MarkerVersion = flags.MergeString(base.MarkerVersion, override.MarkerVersion, FlagMarkerVersion)
	if flags.WasSet(FlagRecursive) && override.Recursive != nil {
		merged.Recursive = override.Recursive
	}
	merged.IncludePatterns = flags.MergeStringSlice(base.IncludePatterns, override.IncludePatterns, FlagInclude)
	merged.ExcludePatterns = flags.MergeStringSlice(base.ExcludePatterns, override.ExcludePatterns, FlagExclude)
	merged.MaxConcurrency = flags.MergeInt(base.MaxConcurrency, override.MaxConcurrency, FlagMaxConcurrency)
	merged.Timeout = flags.MergeDuration(base.Timeout, override.Timeout, FlagTimeout)
	if flags.WasSet(FlagTrace) || override.TraceWriter != nil {
		merged.TraceWriter = override.TraceWriter
	}

	return &merged
}

// convertToRewriteRequest converts a config.Config into a request template
func (c *ConfigurationLoaderImpl) convertToRewriteRequest(cfg *config.Config) *domain.RewriteRequest {
	format, err := domain.ParseOutputFormat(cfg.Output.Format)
	if err != nil {
		format = domain.OutputFormatText
	}
	paths := cfg.Input.Paths
	if len(paths) == 0 {
		paths = []string{"."}
	}
	req := &domain.RewriteRequest{
		Paths:           paths,
		Mode:            domain.RewriteModeRewrite,
		OutputFormat:    format,
		ShowListing:     cfg.Output.ShowListing,
		EmitDir:         cfg.Output.Directory,
		MarkerOwner:     cfg.Marker.Owner,
		MarkerVersion:   cfg.Marker.Version,
		Recursive:       config.BoolPtr(cfg.Input.Recursive),
		IncludePatterns: cfg.Input.IncludePatterns,
		ExcludePatterns: cfg.Input.ExcludePatterns,
		MaxConcurrency:  cfg.Performance.MaxConcurrency,
		Timeout:         time.Duration(cfg.Performance.TimeoutSeconds) * time.Second,
	}
	if cfg.Trace.Enabled {
		req.TraceWriter = os.Stderr
	}
	return req
}

// CreateConfigTemplate writes the commented default .finscn.toml to path
func (c *ConfigurationLoaderImpl) CreateConfigTemplate(path string) error {
	content, err := config.GenerateDefaultConfigTOML()
	if err != nil {
		return domain.NewConfigError("failed to render configuration template", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return domain.NewOutputError("failed to write configuration template", err)
	}
	return nil
}

// FindDefaultConfigFile returns the nearest .finscn.toml, or "" when none exists
func (c *ConfigurationLoaderImpl) FindDefaultConfigFile() string {
	path, err := config.NewTomlConfigLoader().FindConfigFile(c.workDir)
	if err != nil {
		return ""
	}
	return path
}
