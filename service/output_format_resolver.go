package service

import (
	"fmt"

	"github.com/ludo-technologies/finscn/domain"
)

// OutputFormatResolver resolves the output format from command line flags.
type OutputFormatResolver struct{}

func NewOutputFormatResolver() *OutputFormatResolver { return &OutputFormatResolver{} }

// Determine evaluates the --format value and the --json/--yaml shortcuts.
// At most one shortcut may be set and it must agree with an explicit format.
func (r *OutputFormatResolver) Determine(format string, json, yaml bool) (domain.OutputFormat, error) {
	var shortcut domain.OutputFormat
	if json {
		shortcut = domain.OutputFormatJSON
	}
	if yaml {
		if shortcut != "" {
			return "", fmt.Errorf("only one output format flag can be specified")
		}
		shortcut = domain.OutputFormatYAML
	}

	parsed, err := domain.ParseOutputFormat(format)
	if err != nil {
		return "", err
	}
	if shortcut == "" {
		return parsed, nil
	}
	if format != "" && parsed != shortcut {
		return "", fmt.Errorf("--format %s conflicts with --%s", format, shortcut)
	}
	return shortcut, nil
}

// Extension returns the file extension used when a report is saved.
func (r *OutputFormatResolver) Extension(format domain.OutputFormat) string {
	switch format {
	case domain.OutputFormatJSON:
		return "json"
	case domain.OutputFormatYAML:
		return "yaml"
	default:
		return "txt"
	}
}
