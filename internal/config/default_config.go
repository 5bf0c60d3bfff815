package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"
)

// defaultConfigTmpl contains the embedded default configuration template
//
//go:embed default_config.toml.tmpl
var defaultConfigTmpl string

// DefaultConfigValues holds all values used to render the default config template.
type DefaultConfigValues struct {
	MarkerOwner    string
	MarkerVersion  string
	OutputFormat   string
	MaxConcurrency int
	TimeoutSeconds int
}

func newDefaultConfigValues() DefaultConfigValues {
	d := DefaultConfig()
	return DefaultConfigValues{
		MarkerOwner:    d.Marker.Owner,
		MarkerVersion:  d.Marker.Version,
		OutputFormat:   d.Output.Format,
		MaxConcurrency: d.Performance.MaxConcurrency,
		TimeoutSeconds: d.Performance.TimeoutSeconds,
	}
}

// GenerateDefaultConfigTOML renders the commented .finscn.toml written by finscn init
func GenerateDefaultConfigTOML() (string, error) {
	tmpl, err := template.New("default_config").Parse(defaultConfigTmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse default config template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, newDefaultConfigValues()); err != nil {
		return "", fmt.Errorf("failed to render default config template: %w", err)
	}

	return buf.String(), nil
}
