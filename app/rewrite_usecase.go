package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ludo-technologies/finscn/domain"
	svc "github.com/ludo-technologies/finscn/service"
)

// RewriteUseCase orchestrates loading method files, rewriting or inspecting
// them and writing the report
type RewriteUseCase struct {
	service      domain.RewriteService
	fileReader   domain.MethodFileReader
	formatter    domain.RewriteOutputFormatter
	configLoader domain.RewriteConfigurationLoader
	output       domain.ReportWriter
}

// NewRewriteUseCase creates a new rewrite use case
func NewRewriteUseCase(
	service domain.RewriteService,
	fileReader domain.MethodFileReader,
	formatter domain.RewriteOutputFormatter,
	configLoader domain.RewriteConfigurationLoader,
) *RewriteUseCase {
	return &RewriteUseCase{
		service:      service,
		fileReader:   fileReader,
		formatter:    formatter,
		configLoader: configLoader,
		output:       svc.NewFileOutputWriter(nil),
	}
}

// prepare merges the configuration, validates the result and resolves the
// method files to process
func (uc *RewriteUseCase) prepare(req domain.RewriteRequest) (domain.RewriteRequest, error) {
	finalReq, err := uc.loadAndMergeConfig(req)
	if err != nil {
		return req, domain.NewConfigError("failed to load configuration", err)
	}

	if err := uc.validateRequest(finalReq); err != nil {
		return req, domain.NewInvalidInputError("invalid request", err)
	}

	files, err := ResolveMethodFiles(
		uc.fileReader,
		finalReq.Paths,
		domain.BoolValue(finalReq.Recursive, true),
		finalReq.IncludePatterns,
		finalReq.ExcludePatterns,
		false,
	)
	if err != nil {
		return req, domain.NewFileNotFoundError("failed to collect files", err)
	}

	if len(files) == 0 {
		return req, domain.NewInvalidInputError("no method files found in the specified paths", nil)
	}

	finalReq.Paths = files
	return finalReq, nil
}

// Execute runs the whole workflow and writes the report. The response is
// returned so callers can turn failures into an exit status.
func (uc *RewriteUseCase) Execute(ctx context.Context, req domain.RewriteRequest) (*domain.RewriteResponse, error) {
	finalReq, err := uc.prepare(req)
	if err != nil {
		return nil, err
	}
	if err := uc.requireOutput(finalReq); err != nil {
		return nil, err
	}

	response, err := uc.service.Rewrite(ctx, finalReq)
	if err != nil {
		return nil, uc.wrapServiceError(err)
	}

	if err := uc.write(response, finalReq); err != nil {
		return nil, err
	}
	return response, nil
}

// ExecuteAndReturn runs the workflow and returns the response without formatting
func (uc *RewriteUseCase) ExecuteAndReturn(ctx context.Context, req domain.RewriteRequest) (*domain.RewriteResponse, error) {
	finalReq, err := uc.prepare(req)
	if err != nil {
		return nil, err
	}

	response, err := uc.service.Rewrite(ctx, finalReq)
	if err != nil {
		return nil, uc.wrapServiceError(err)
	}
	return response, nil
}

// RewriteFile processes a single method file and writes the report
func (uc *RewriteUseCase) RewriteFile(ctx context.Context, filePath string, req domain.RewriteRequest) (*domain.RewriteResponse, error) {
	if !uc.fileReader.IsMethodFile(filePath) {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("not a method file: %s", filePath), nil)
	}
	exists, err := uc.fileReader.FileExists(filePath)
	if err != nil || !exists {
		return nil, domain.NewFileNotFoundError(filePath, err)
	}

	finalReq, err := uc.loadAndMergeConfig(req)
	if err != nil {
		return nil, domain.NewConfigError("failed to load configuration", err)
	}
	finalReq.Paths = []string{filePath}
	if err := uc.validateRequest(finalReq); err != nil {
		return nil, domain.NewInvalidInputError("invalid request", err)
	}
	if err := uc.requireOutput(finalReq); err != nil {
		return nil, err
	}

	response, err := uc.service.RewriteFile(ctx, filePath, finalReq)
	if err != nil {
		return nil, uc.wrapServiceError(err)
	}

	if err := uc.write(response, finalReq); err != nil {
		return nil, err
	}
	return response, nil
}

func (uc *RewriteUseCase) write(response *domain.RewriteResponse, req domain.RewriteRequest) error {
	var out io.Writer
	if req.OutputPath == "" {
		out = req.OutputWriter
	}
	if err := uc.output.Write(out, req.OutputPath, func(w io.Writer) error {
		return uc.formatter.Write(response, req.OutputFormat, w)
	}); err != nil {
		return domain.NewOutputError("failed to write output", err)
	}
	return nil
}

// wrapServiceError keeps domain errors from the service intact so their
// code survives for categorization
func (uc *RewriteUseCase) wrapServiceError(err error) error {
	var derr domain.DomainError
	if errors.As(err, &derr) {
		return err
	}
	return domain.NewAnalysisError("rewrite failed", err)
}

func (uc *RewriteUseCase) requireOutput(req domain.RewriteRequest) error {
	if req.OutputWriter == nil && req.OutputPath == "" {
		return domain.NewInvalidInputError("invalid request", fmt.Errorf("output writer or output path is required"))
	}
	return nil
}

// validateRequest validates the merged request
func (uc *RewriteUseCase) validateRequest(req domain.RewriteRequest) error {
	if len(req.Paths) == 0 {
		return fmt.Errorf("no input paths specified")
	}
	switch req.Mode {
	case "", domain.RewriteModeRewrite, domain.RewriteModeInspect:
	default:
		return fmt.Errorf("unsupported mode: %s", req.Mode)
	}
	if _, err := domain.ParseOutputFormat(string(req.OutputFormat)); err != nil {
		return fmt.Errorf("unsupported output format: %s", req.OutputFormat)
	}
	if req.MaxConcurrency < 0 {
		return fmt.Errorf("max concurrency cannot be negative")
	}
	if req.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	return nil
}

// loadAndMergeConfig loads configuration from file and merges with request
func (uc *RewriteUseCase) loadAndMergeConfig(req domain.RewriteRequest) (domain.RewriteRequest, error) {
	if uc.configLoader == nil {
		return req, nil
	}

	var configReq *domain.RewriteRequest
	var err error

	if req.ConfigPath != "" {
		configReq, err = uc.configLoader.LoadConfig(req.ConfigPath)
		if err != nil {
			return req, fmt.Errorf("failed to load config from %s: %w", req.ConfigPath, err)
		}
	} else {
		configReq = uc.configLoader.LoadDefaultConfig()
	}

	if configReq != nil {
		merged := uc.configLoader.MergeConfig(configReq, &req)
		return *merged, nil
	}

	return req, nil
}

// RewriteUseCaseBuilder provides a builder pattern for creating RewriteUseCase
type RewriteUseCaseBuilder struct {
	service      domain.RewriteService
	fileReader   domain.MethodFileReader
	formatter    domain.RewriteOutputFormatter
	configLoader domain.RewriteConfigurationLoader
	output       domain.ReportWriter
}

// NewRewriteUseCaseBuilder creates a new builder
func NewRewriteUseCaseBuilder() *RewriteUseCaseBuilder {
	return &RewriteUseCaseBuilder{}
}

// WithService sets the rewrite service
func (b *RewriteUseCaseBuilder) WithService(service domain.RewriteService) *RewriteUseCaseBuilder {
	b.service = service
	return b
}

// WithFileReader sets the file reader
func (b *RewriteUseCaseBuilder) WithFileReader(fileReader domain.MethodFileReader) *RewriteUseCaseBuilder {
	b.fileReader = fileReader
	return b
}

// WithFormatter sets the output formatter
func (b *RewriteUseCaseBuilder) WithFormatter(formatter domain.RewriteOutputFormatter) *RewriteUseCaseBuilder {
	b.formatter = formatter
	return b
}

// WithConfigLoader sets the configuration loader
func (b *RewriteUseCaseBuilder) WithConfigLoader(configLoader domain.RewriteConfigurationLoader) *RewriteUseCaseBuilder {
	b.configLoader = configLoader
	return b
}

// WithOutputWriter sets the report writer
func (b *RewriteUseCaseBuilder) WithOutputWriter(output domain.ReportWriter) *RewriteUseCaseBuilder {
	b.output = output
	return b
}

// Build creates the RewriteUseCase with the configured dependencies
func (b *RewriteUseCaseBuilder) Build() (*RewriteUseCase, error) {
	if b.service == nil {
		return nil, fmt.Errorf("rewrite service is required")
	}
	if b.fileReader == nil {
		return nil, fmt.Errorf("file reader is required")
	}
	if b.formatter == nil {
		return nil, fmt.Errorf("output formatter is required")
	}

	uc := NewRewriteUseCase(b.service, b.fileReader, b.formatter, b.configLoader)
	if b.output != nil {
		uc.output = b.output
	}
	return uc, nil
}

// BuildWithDefaults is Build with a no-op configuration loader when none was set
func (b *RewriteUseCaseBuilder) BuildWithDefaults() (*RewriteUseCase, error) {
	if b.configLoader == nil {
		b.configLoader = &noOpConfigLoader{}
	}
	return b.Build()
}

// noOpConfigLoader is a no-op implementation of RewriteConfigurationLoader
type noOpConfigLoader struct{}

func (n *noOpConfigLoader) LoadConfig(path string) (*domain.RewriteRequest, error) {
	return nil, nil
}

func (n *noOpConfigLoader) LoadDefaultConfig() *domain.RewriteRequest {
	return nil
}

func (n *noOpConfigLoader) MergeConfig(base *domain.RewriteRequest, override *domain.RewriteRequest) *domain.RewriteRequest {
	return override
}
