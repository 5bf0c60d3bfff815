package domain

import (
	"context"
	"io"
	"time"
)

// RewriteMode selects what a run does to each method
type RewriteMode string

const (
	// RewriteModeRewrite rewrites marker calls in finally copies
	RewriteModeRewrite RewriteMode = "rewrite"
	// RewriteModeInspect only recovers the try/catch/finally tree
	RewriteModeInspect RewriteMode = "inspect"
)

// RewriteRequest represents a request to process method files
type RewriteRequest struct {
	// Input method files or directories
	Paths []string
	Mode  RewriteMode

	// Output configuration
	OutputFormat OutputFormat
	OutputWriter io.Writer
	OutputPath   string // Path to save the report
	ShowListing  bool   // Include the rewritten listing of changed methods
	EmitDir      string // Write rewritten method files here

	// Marker surface
	MarkerOwner   string
	MarkerVersion string

	// Trace output; nil disables tracing
	TraceWriter io.Writer

	// Configuration
	ConfigPath string

	// Input options
	Recursive       *bool
	IncludePatterns []string
	ExcludePatterns []string

	// Execution
	MaxConcurrency int
	Timeout        time.Duration

	// Flags set explicitly on the command line; they win over the config file
	ExplicitFlags map[string]bool
}

// BlockInfo is a half-open range of program point indices
type BlockInfo struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// ScopeInfo is one try, catch or finally body
type ScopeInfo struct {
	Blocks []BlockInfo   `json:"blocks" yaml:"blocks"`
	Nested []TryUnitInfo `json:"nested,omitempty" yaml:"nested,omitempty"`
}

// TryUnitInfo is a recovered try/catch/finally statement
type TryUnitInfo struct {
	Try     ScopeInfo   `json:"try" yaml:"try"`
	Catches []ScopeInfo `json:"catches,omitempty" yaml:"catches,omitempty"`
	Finally ScopeInfo   `json:"finally" yaml:"finally"`
}

// SiteInfo describes one rewritten marker call
type SiteInfo struct {
	Call         string    `json:"call" yaml:"call"`
	Exit         string    `json:"exit" yaml:"exit"`
	Region       BlockInfo `json:"region" yaml:"region"`
	Slot         int       `json:"slot" yaml:"slot"`
	Replacement  string    `json:"replacement" yaml:"replacement"`
	TypeMismatch bool      `json:"type_mismatch,omitempty" yaml:"type_mismatch,omitempty"`
}

// MethodResult is the outcome for one method
type MethodResult struct {
	File    string        `json:"file" yaml:"file"`
	Owner   string        `json:"owner" yaml:"owner"`
	Name    string        `json:"name" yaml:"name"`
	Desc    string        `json:"desc" yaml:"desc"`
	Changed bool          `json:"changed" yaml:"changed"`
	Tries   []TryUnitInfo `json:"tries,omitempty" yaml:"tries,omitempty"`
	Sites   []SiteInfo    `json:"sites,omitempty" yaml:"sites,omitempty"`
	Listing string        `json:"listing,omitempty" yaml:"listing,omitempty"`
	Error   string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Signature renders owner.name plus descriptor
func (m MethodResult) Signature() string {
	return m.Owner + "." + m.Name + m.Desc
}

// RewriteSummary aggregates a run
type RewriteSummary struct {
	FilesProcessed    int `json:"files_processed" yaml:"files_processed"`
	FilesFailed       int `json:"files_failed" yaml:"files_failed"`
	MethodsProcessed  int `json:"methods_processed" yaml:"methods_processed"`
	MethodsChanged    int `json:"methods_changed" yaml:"methods_changed"`
	MethodsFailed     int `json:"methods_failed" yaml:"methods_failed"`
	TryUnits          int `json:"try_units" yaml:"try_units"`
	SitesRewritten    int `json:"sites_rewritten" yaml:"sites_rewritten"`
	ReturnExitSites   int `json:"return_exit_sites" yaml:"return_exit_sites"`
	ThrowExitSites    int `json:"throw_exit_sites" yaml:"throw_exit_sites"`
	TypeMismatchSites int `json:"type_mismatch_sites" yaml:"type_mismatch_sites"`
}

// RewriteResponse represents the complete result of a run
type RewriteResponse struct {
	Mode    RewriteMode    `json:"mode" yaml:"mode"`
	Methods []MethodResult `json:"methods" yaml:"methods"`
	Summary RewriteSummary `json:"summary" yaml:"summary"`

	// Warnings and issues
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Errors   []string `json:"errors,omitempty" yaml:"errors,omitempty"`

	// Metadata
	GeneratedAt string `json:"generated_at" yaml:"generated_at"`
	Version     string `json:"version" yaml:"version"`
}

// HasFailures reports whether any file or method could not be processed
func (r *RewriteResponse) HasFailures() bool {
	return r.Summary.FilesFailed > 0 || r.Summary.MethodsFailed > 0
}

// RewriteService defines the core business logic for processing method files
type RewriteService interface {
	// Rewrite processes every method of the request's files
	Rewrite(ctx context.Context, req RewriteRequest) (*RewriteResponse, error)

	// RewriteFile processes the methods of a single file
	RewriteFile(ctx context.Context, filePath string, req RewriteRequest) (*RewriteResponse, error)
}

// MethodFileReader defines the interface for finding and reading method files
type MethodFileReader interface {
	// CollectMethodFiles finds all method files in the given paths
	CollectMethodFiles(paths []string, recursive bool, includePatterns, excludePatterns []string) ([]string, error)

	// ReadFile reads the content of a file
	ReadFile(path string) ([]byte, error)

	// IsMethodFile checks if a file has a method file extension
	IsMethodFile(path string) bool

	// FileExists checks if a file exists and returns an error if not
	FileExists(path string) (bool, error)
}

// RewriteOutputFormatter defines the interface for formatting run results
type RewriteOutputFormatter interface {
	// Format formats the response according to the specified format
	Format(response *RewriteResponse, format OutputFormat) (string, error)

	// Write writes the formatted output to the writer
	Write(response *RewriteResponse, format OutputFormat, writer io.Writer) error
}

// RewriteConfigurationLoader defines the interface for loading configuration
type RewriteConfigurationLoader interface {
	// LoadConfig loads configuration from the specified path
	LoadConfig(path string) (*RewriteRequest, error)

	// LoadDefaultConfig loads the default configuration
	LoadDefaultConfig() *RewriteRequest

	// MergeConfig merges CLI flags with configuration file
	MergeConfig(base *RewriteRequest, override *RewriteRequest) *RewriteRequest
}

// BoolPtr creates a pointer to a boolean value
func BoolPtr(b bool) *bool {
	return &b
}

// BoolValue safely dereferences a boolean pointer, returning defaultVal if nil
func BoolValue(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}
