package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ludo-technologies/finscn/app"
	"github.com/ludo-technologies/finscn/domain"
	"github.com/ludo-technologies/finscn/internal/config"
	"github.com/ludo-technologies/finscn/service"
)

// RewriteCommand runs the rewrite and tree commands. Mode decides whether
// marker calls are rewritten or only the try tree is printed.
type RewriteCommand struct {
	mode domain.RewriteMode

	// Output
	format  string
	json    bool
	yaml    bool
	output  string
	listing bool
	emitDir string

	// Marker surface
	markerOwner   string
	markerVersion string

	// Input
	configFile string
	recursive  bool
	include    []string
	exclude    []string

	// Execution
	maxConcurrency int
	timeout        time.Duration
	trace          bool
	noProgress     bool
}

// NewRewriteCommand creates a command for the given mode
func NewRewriteCommand(mode domain.RewriteMode) *RewriteCommand {
	return &RewriteCommand{
		mode:      mode,
		recursive: true,
	}
}

// CreateCobraCommand creates the cobra command for the configured mode
func (c *RewriteCommand) CreateCobraCommand() *cobra.Command {
	var cmd *cobra.Command
	if c.mode == domain.RewriteModeInspect {
		cmd = &cobra.Command{
			Use:   "tree [paths...]",
			Short: "Print the recovered try/catch/finally tree of each method",
			Long: `Recover the try/catch/finally statements of every method and print them
as a tree of program point ranges. Methods are not modified.

Examples:
  # Show the structure of every method under methods/
  finscn tree methods/

  # Include the instruction listing
  finscn tree --listing Sample.yaml

  # Machine readable
  finscn tree --json methods/ | jq '.methods[].tries'`,
			Args: cobra.ArbitraryArgs,
			RunE: c.run,
		}
	} else {
		cmd = &cobra.Command{
			Use:   "rewrite [paths...]",
			Short: "Rewrite finally marker calls in method files",
			Long: `Recover the try/catch/finally statements of every method, classify each
finally copy as a return exit or a throw exit and rewrite the marker calls
inside it.

Input files are YAML or JSON documents holding methods with their code in
assembler form. Files are never modified in place; use --emit-dir to write
the rewritten methods.

Exit codes:
  • 0: every method was processed
  • 1: some method could not be rewritten or the run failed

Examples:
  # Report what would change
  finscn rewrite methods/

  # Write rewritten methods next to a JSON report
  finscn rewrite --emit-dir out/ --json --output reports/ methods/

  # Legacy marker names and a custom marker class
  finscn rewrite --marker-version v1 --marker-owner com/acme/Finally methods/`,
			Args: cobra.ArbitraryArgs,
			RunE: c.run,
		}
		cmd.Flags().StringVar(&c.emitDir, service.FlagEmitDir, "", "Write rewritten method files to this directory")
		cmd.Flags().StringVar(&c.markerOwner, service.FlagMarkerOwner, "", "Internal name of the marker class")
		cmd.Flags().StringVar(&c.markerVersion, service.FlagMarkerVersion, "", "Marker surface version (v1 or v2)")
	}

	cmd.Flags().StringVarP(&c.format, service.FlagFormat, "f", "", "Output format (text, json, yaml)")
	cmd.Flags().BoolVar(&c.json, "json", false, "Shortcut for --format json")
	cmd.Flags().BoolVar(&c.yaml, "yaml", false, "Shortcut for --format yaml")
	cmd.Flags().StringVarP(&c.output, "output", "o", "", "Write the report to this file or directory")
	cmd.Flags().BoolVarP(&c.listing, service.FlagShowListing, "l", false, "Include instruction listings")
	cmd.Flags().StringVarP(&c.configFile, "config", "c", "", "Configuration file path")
	cmd.Flags().BoolVarP(&c.recursive, service.FlagRecursive, "r", true, "Search directories recursively")
	cmd.Flags().StringSliceVar(&c.include, service.FlagInclude, nil, "Glob patterns of files to include")
	cmd.Flags().StringSliceVar(&c.exclude, service.FlagExclude, nil, "Glob patterns of files to exclude")
	cmd.Flags().IntVarP(&c.maxConcurrency, service.FlagMaxConcurrency, "j", 0, "Maximum number of files processed at once")
	cmd.Flags().DurationVar(&c.timeout, service.FlagTimeout, 0, "Abort the run after this long")
	cmd.Flags().BoolVar(&c.trace, service.FlagTrace, false, "Log analysis steps to stderr")
	cmd.Flags().BoolVar(&c.noProgress, "no-progress", false, "Disable the progress bar")

	return cmd
}

func (c *RewriteCommand) run(cmd *cobra.Command, args []string) error {
	resolver := service.NewOutputFormatResolver()
	format, err := resolver.Determine(c.format, c.json, c.yaml)
	if err != nil {
		return err
	}

	outputPath, err := c.resolveOutputPath(format, resolver)
	if err != nil {
		return err
	}

	req := c.buildRequest(cmd, args, format, outputPath)

	useCase, progress, err := c.createUseCase(cmd)
	if err != nil {
		return err
	}
	if progress != nil {
		defer progress.Close()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	response, err := useCase.Execute(ctx, req)
	if err != nil {
		c.printError(cmd.ErrOrStderr(), err)
		return err
	}

	if response.HasFailures() {
		return fmt.Errorf("%d file(s) and %d method(s) could not be processed",
			response.Summary.FilesFailed, response.Summary.MethodsFailed)
	}
	return nil
}

// buildRequest turns the flags into a request. Flags the user set are
// recorded so they win over the configuration file.
func (c *RewriteCommand) buildRequest(cmd *cobra.Command, paths []string, format domain.OutputFormat, outputPath string) domain.RewriteRequest {
	explicit := config.NewFlagTracker()
	cmd.Flags().Visit(func(f *pflag.Flag) {
		explicit.Set(f.Name)
	})
	if c.json || c.yaml {
		explicit.Set(service.FlagFormat)
	}

	req := domain.RewriteRequest{
		Paths:           paths,
		Mode:            c.mode,
		OutputFormat:    format,
		OutputWriter:    cmd.OutOrStdout(),
		OutputPath:      outputPath,
		ShowListing:     c.listing,
		EmitDir:         c.emitDir,
		MarkerOwner:     c.markerOwner,
		MarkerVersion:   c.markerVersion,
		ConfigPath:      c.configFile,
		Recursive:       domain.BoolPtr(c.recursive),
		IncludePatterns: c.include,
		ExcludePatterns: c.exclude,
		MaxConcurrency:  c.maxConcurrency,
		Timeout:         c.timeout,
		ExplicitFlags:   explicit.GetAll(),
	}
	if c.trace {
		req.TraceWriter = cmd.ErrOrStderr()
	}
	return req
}

// resolveOutputPath returns the report file. An existing directory gets a
// timestamped file named after the command.
func (c *RewriteCommand) resolveOutputPath(format domain.OutputFormat, resolver *service.OutputFormatResolver) (string, error) {
	if c.output == "" {
		return "", nil
	}
	info, err := os.Stat(c.output)
	if err != nil || !info.IsDir() {
		return c.output, nil
	}
	return filepath.Join(c.output, generateTimestampedFileName(c.commandName(), resolver.Extension(format))), nil
}

func (c *RewriteCommand) commandName() string {
	if c.mode == domain.RewriteModeInspect {
		return "tree"
	}
	return "rewrite"
}

func (c *RewriteCommand) createUseCase(cmd *cobra.Command) (*app.RewriteUseCase, domain.ProgressManager, error) {
	var (
		rewriteService domain.RewriteService
		progress       domain.ProgressManager
	)
	if !c.noProgress && service.IsInteractiveEnvironment() {
		pm := service.NewProgressManager(progressDescription(c.mode))
		pm.SetWriter(cmd.ErrOrStderr())
		progress = pm
		rewriteService = service.NewRewriteServiceWithProgress(pm)
	} else {
		rewriteService = service.NewRewriteService()
	}

	useCase, err := app.NewRewriteUseCaseBuilder().
		WithService(rewriteService).
		WithFileReader(service.NewFileReader()).
		WithFormatter(service.NewRewriteFormatter()).
		WithConfigLoader(service.NewConfigurationLoader()).
		WithOutputWriter(service.NewFileOutputWriter(cmd.ErrOrStderr())).
		Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create use case: %w", err)
	}
	return useCase, progress, nil
}

// printError prints the error category and what the user can try next
func (c *RewriteCommand) printError(w io.Writer, err error) {
	categorizer := service.NewErrorCategorizer()
	categorized := categorizer.Categorize(err)

	fmt.Fprintf(w, "❌ %s: %s\n", categorized.Category, categorized.Message)
	suggestions := categorizer.GetRecoverySuggestions(categorized.Category)
	if len(suggestions) == 0 {
		return
	}
	fmt.Fprintf(w, "\n💡 Suggestions:\n")
	for _, s := range suggestions {
		fmt.Fprintf(w, "  • %s\n", s)
	}
}

func progressDescription(mode domain.RewriteMode) string {
	if mode == domain.RewriteModeInspect {
		return "Recovering try trees"
	}
	return "Rewriting methods"
}

// NewRewriteCmd creates and returns the rewrite cobra command
func NewRewriteCmd() *cobra.Command {
	return NewRewriteCommand(domain.RewriteModeRewrite).CreateCobraCommand()
}

// NewTreeCmd creates and returns the tree cobra command
func NewTreeCmd() *cobra.Command {
	return NewRewriteCommand(domain.RewriteModeInspect).CreateCobraCommand()
}
