package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ludo-technologies/finscn/domain"
)

// categoryPatterns pairs a category with the message fragments that signal it
type categoryPatterns struct {
	category domain.ErrorCategory
	patterns []string
}

// ErrorCategorizerImpl implements the ErrorCategorizer interface
type ErrorCategorizerImpl struct {
	patterns []categoryPatterns
}

// NewErrorCategorizer creates a new error categorizer
func NewErrorCategorizer() *ErrorCategorizerImpl {
	return &ErrorCategorizerImpl{
		patterns: initializeErrorPatterns(),
	}
}

// initializeErrorPatterns returns the fallback patterns in match order
func initializeErrorPatterns() []categoryPatterns {
	return []categoryPatterns{
		{domain.ErrorCategoryTimeout, []string{
			"timeout",
			"timed out",
			"deadline",
			"context canceled",
		}},
		{domain.ErrorCategoryConfig, []string{
			"config",
			"toml",
			"marker surface version",
		}},
		{domain.ErrorCategoryInput, []string{
			"no method files",
			"file not found",
			"no such file",
			"cannot access",
			"permission denied",
			"invalid input",
		}},
		{domain.ErrorCategoryProcessing, []string{
			"malformed finally structure",
			"cannot rewrite",
			"failed to parse",
			"unknown instruction",
			"label",
		}},
		{domain.ErrorCategoryOutput, []string{
			"output",
			"write",
			"unsupported format",
		}},
	}
}

// categoryByCode maps domain error codes to categories
var categoryByCode = map[string]domain.ErrorCategory{
	domain.ErrCodeInvalidInput:      domain.ErrorCategoryInput,
	domain.ErrCodeFileNotFound:      domain.ErrorCategoryInput,
	domain.ErrCodeConfigError:       domain.ErrorCategoryConfig,
	domain.ErrCodeParseError:        domain.ErrorCategoryProcessing,
	domain.ErrCodeStructural:        domain.ErrorCategoryProcessing,
	domain.ErrCodeAnalysisError:     domain.ErrorCategoryProcessing,
	domain.ErrCodeOutputError:       domain.ErrorCategoryOutput,
	domain.ErrCodeUnsupportedFormat: domain.ErrorCategoryOutput,
}

// Categorize determines the category of an error. Deadlines and domain error
// codes win over message patterns.
func (ec *ErrorCategorizerImpl) Categorize(err error) *domain.CategorizedError {
	if err == nil {
		return nil
	}

	category := domain.ErrorCategoryUnknown
	var de domain.DomainError
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		category = domain.ErrorCategoryTimeout
	case errors.As(err, &de):
		if c, ok := categoryByCode[de.Code]; ok {
			category = c
		}
	}

	if category == domain.ErrorCategoryUnknown {
		errMsg := strings.ToLower(err.Error())
		for _, p := range ec.patterns {
			if containsAnyPattern(errMsg, p.patterns) {
				category = p.category
				break
			}
		}
	}

	if category == domain.ErrorCategoryUnknown {
		return &domain.CategorizedError{
			Category: category,
			Message:  err.Error(),
			Original: err,
		}
	}
	return &domain.CategorizedError{
		Category: category,
		Message:  ec.getCategoryMessage(category),
		Original: err,
	}
}

// GetRecoverySuggestions returns recovery suggestions for an error category
func (ec *ErrorCategorizerImpl) GetRecoverySuggestions(category domain.ErrorCategory) []string {
	suggestions := map[domain.ErrorCategory][]string{
		domain.ErrorCategoryInput: {
			"Check that the paths exist and contain .yaml, .yml or .json method files",
			"Use --include and --exclude patterns to narrow the file set",
			"Ensure you have read permissions for the target files",
		},
		domain.ErrorCategoryConfig: {
			"Verify the values in .finscn.toml",
			"Try: finscn init to generate a valid config file",
			"Marker version must be v1 or v2",
		},
		domain.ErrorCategoryTimeout: {
			"Increase --timeout or process fewer files at once",
			"Lower --max-concurrency if the machine is overloaded",
		},
		domain.ErrorCategoryOutput: {
			"Check write permissions for the output path",
			"Use --format text, json or yaml",
		},
		domain.ErrorCategoryProcessing: {
			"Run finscn tree on the file to see the recovered try/catch/finally structure",
			"Use --trace to log each exception table entry and finally copy",
			"Check that the exception table labels are placed in the code",
		},
		domain.ErrorCategoryUnknown: {
			"Run with --trace for detailed information",
			"Report the issue if it persists",
		},
	}

	if sug, ok := suggestions[category]; ok {
		return sug
	}
	return []string{"Check the error message for more details"}
}

// getCategoryMessage returns a user-friendly message for an error category
func (ec *ErrorCategorizerImpl) getCategoryMessage(category domain.ErrorCategory) string {
	messages := map[domain.ErrorCategory]string{
		domain.ErrorCategoryInput:      "Failed to read input method files",
		domain.ErrorCategoryConfig:     "Configuration file or settings error",
		domain.ErrorCategoryTimeout:    "Processing timed out",
		domain.ErrorCategoryOutput:     "Failed to generate or write output",
		domain.ErrorCategoryProcessing: "Failed to recover or rewrite finally blocks",
		domain.ErrorCategoryUnknown:    "An unexpected error occurred",
	}

	if msg, ok := messages[category]; ok {
		return msg
	}
	return "An error occurred"
}

// containsAnyPattern checks if a string contains any of the given patterns
func containsAnyPattern(str string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(str, pattern) {
			return true
		}
	}
	return false
}
