package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/ludo-technologies/finscn/domain"
	"github.com/ludo-technologies/finscn/internal/analyzer"
	"github.com/ludo-technologies/finscn/internal/bytecode"
	"github.com/ludo-technologies/finscn/internal/marker"
	"github.com/ludo-technologies/finscn/internal/version"
)

// RewriteServiceImpl implements the RewriteService interface
type RewriteServiceImpl struct {
	fileReader domain.MethodFileReader
	codec      *MethodCodec
	progress   domain.ProgressManager
}

// NewRewriteService creates a new rewrite service
func NewRewriteService() *RewriteServiceImpl {
	return &RewriteServiceImpl{
		fileReader: NewFileReader(),
		codec:      NewMethodCodec(),
	}
}

// NewRewriteServiceWithProgress creates a rewrite service that reports per-file progress
func NewRewriteServiceWithProgress(progress domain.ProgressManager) *RewriteServiceImpl {
	s := NewRewriteService()
	s.progress = progress
	return s
}

// fileOutcome is what one file task produces
type fileOutcome struct {
	path    string
	methods []*bytecode.Method
	results []domain.MethodResult
	errs    []string
	failed  bool
}

// Rewrite processes every method of the request's files. Paths must already
// be resolved to method files.
func (s *RewriteServiceImpl) Rewrite(ctx context.Context, req domain.RewriteRequest) (*domain.RewriteResponse, error) {
	transformer, err := s.newTransformer(req)
	if err != nil {
		return nil, err
	}

	outcomes := make([]*fileOutcome, len(req.Paths))
	var done int32

	if s.progress != nil {
		s.progress.Initialize(len(req.Paths))
		s.progress.Start()
	}

	tasks := make([]domain.ExecutableTask, len(req.Paths))
	for i, path := range req.Paths {
		tasks[i] = NewSimpleTask(path, true, func(ctx context.Context) (interface{}, error) {
			outcome := s.processFile(ctx, transformer, path, req)
			outcomes[i] = outcome
			if s.progress != nil {
				s.progress.Update(int(atomic.AddInt32(&done, 1)), len(req.Paths))
			}
			return outcome, ctx.Err()
		})
	}

	var executor domain.ParallelExecutor = NewParallelExecutor()
	executor.SetMaxConcurrency(req.MaxConcurrency)
	if req.Timeout > 0 {
		executor.SetTimeout(req.Timeout)
	}
	execErr := executor.Execute(ctx, tasks)
	if s.progress != nil {
		s.progress.Complete(execErr == nil)
	}
	if execErr != nil {
		return nil, domain.NewAnalysisError("rewrite run did not finish", execErr)
	}

	response := s.buildResponse(req.Mode, outcomes)
	if req.EmitDir != "" && req.Mode != domain.RewriteModeInspect {
		response.Warnings = append(response.Warnings, s.emit(req.EmitDir, outcomes)...)
	}
	return response, nil
}

// RewriteFile processes the methods of a single file
func (s *RewriteServiceImpl) RewriteFile(ctx context.Context, filePath string, req domain.RewriteRequest) (*domain.RewriteResponse, error) {
	req.Paths = []string{filePath}
	return s.Rewrite(ctx, req)
}

func (s *RewriteServiceImpl) newTransformer(req domain.RewriteRequest) (*analyzer.Transformer, error) {
	v, err := marker.ParseVersion(req.MarkerVersion)
	if err != nil {
		return nil, domain.NewConfigError("invalid marker surface", err)
	}
	owner := req.MarkerOwner
	if owner == "" {
		owner = marker.DefaultOwner
	}

	opts := []analyzer.Option{analyzer.WithSurface(marker.NewSurface(owner, v))}
	if req.TraceWriter != nil {
		handler := slog.NewTextHandler(req.TraceWriter, &slog.HandlerOptions{Level: slog.LevelDebug})
		opts = append(opts, analyzer.WithLogger(slog.New(handler)))
	}
	return analyzer.NewTransformer(opts...), nil
}

// processFile reads, decodes and processes one file. Failures are recorded
// on the outcome so the other files still run.
func (s *RewriteServiceImpl) processFile(ctx context.Context, t *analyzer.Transformer, path string, req domain.RewriteRequest) *fileOutcome {
	outcome := &fileOutcome{path: path}

	data, err := s.fileReader.ReadFile(path)
	if err != nil {
		outcome.failed = true
		outcome.errs = append(outcome.errs, err.Error())
		return outcome
	}
	methods, err := s.codec.Decode(path, data)
	if err != nil {
		outcome.failed = true
		outcome.errs = append(outcome.errs, err.Error())
		return outcome
	}
	outcome.methods = methods

	for _, m := range methods {
		if ctx.Err() != nil {
			break
		}
		result := domain.MethodResult{File: path, Owner: m.Owner, Name: m.Name, Desc: m.Desc}

		var res *analyzer.Result
		if req.Mode == domain.RewriteModeInspect {
			res, err = t.Inspect(m)
		} else {
			res, err = t.Transform(m)
		}
		if err != nil {
			cause := errors.Unwrap(err)
			if cause == nil {
				cause = err
			}
			serr := domain.NewStructuralError(m.Signature(), cause)
			result.Error = serr.Error()
			outcome.errs = append(outcome.errs, fmt.Sprintf("%s: %s", path, serr.Error()))
			outcome.results = append(outcome.results, result)
			continue
		}

		result.Changed = res.Changed
		result.Tries = convertTries(res.Tries, res.Points)
		result.Sites = convertSites(res.Sites, res.Points)
		if req.ShowListing && (res.Changed || req.Mode == domain.RewriteModeInspect) && m.Code != nil {
			result.Listing = bytecode.Format(m.Code)
		}
		outcome.results = append(outcome.results, result)
	}
	return outcome
}

func (s *RewriteServiceImpl) buildResponse(mode domain.RewriteMode, outcomes []*fileOutcome) *domain.RewriteResponse {
	if mode == "" {
		mode = domain.RewriteModeRewrite
	}
	response := &domain.RewriteResponse{
		Mode:        mode,
		Methods:     []domain.MethodResult{},
		GeneratedAt: time.Now().Format(time.RFC3339),
		Version:     version.Version,
	}

	sum := &response.Summary
	for _, o := range outcomes {
		if o == nil {
			continue
		}
		if o.failed {
			sum.FilesFailed++
		} else {
			sum.FilesProcessed++
		}
		response.Errors = append(response.Errors, o.errs...)

		for _, r := range o.results {
			response.Methods = append(response.Methods, r)
			sum.MethodsProcessed++
			if r.Error != "" {
				sum.MethodsFailed++
				continue
			}
			if r.Changed {
				sum.MethodsChanged++
			}
			sum.TryUnits += countTries(r.Tries)
			for _, site := range r.Sites {
				sum.SitesRewritten++
				if site.Exit == analyzer.ExitThrow.String() {
					sum.ThrowExitSites++
				} else {
					sum.ReturnExitSites++
				}
				if site.TypeMismatch {
					sum.TypeMismatchSites++
				}
			}
		}
	}
	return response
}

// emit writes every file with a changed method into dir, keeping base names.
// A second file with the same base name is skipped with a warning.
func (s *RewriteServiceImpl) emit(dir string, outcomes []*fileOutcome) []string {
	var warnings []string
	written := make(map[string]string)

	for _, o := range outcomes {
		if o == nil || o.failed || !anyChanged(o.results) {
			continue
		}
		name := filepath.Base(o.path)
		if prev, dup := written[name]; dup {
			warnings = append(warnings, fmt.Sprintf("not emitting %s: %s already written as %s", o.path, prev, name))
			continue
		}
		written[name] = o.path

		if err := s.writeMethods(filepath.Join(dir, name), o.methods); err != nil {
			warnings = append(warnings, err.Error())
		}
	}
	return warnings
}

func (s *RewriteServiceImpl) writeMethods(path string, methods []*bytecode.Method) error {
	data, err := s.codec.Encode(path, methods)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return domain.NewOutputError(fmt.Sprintf("failed to create directory %s", filepath.Dir(path)), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return domain.NewOutputError(fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}

func anyChanged(results []domain.MethodResult) bool {
	for _, r := range results {
		if r.Changed {
			return true
		}
	}
	return false
}

func countTries(units []domain.TryUnitInfo) int {
	n := len(units)
	for _, u := range units {
		n += countTries(u.Try.Nested)
		for _, c := range u.Catches {
			n += countTries(c.Nested)
		}
		n += countTries(u.Finally.Nested)
	}
	return n
}

func convertTries(units []*analyzer.TryUnit, points *analyzer.ProgramPointIndex) []domain.TryUnitInfo {
	if len(units) == 0 {
		return nil
	}
	out := make([]domain.TryUnitInfo, 0, len(units))
	for _, u := range units {
		info := domain.TryUnitInfo{
			Try:     convertScope(u.Try, points),
			Finally: convertScope(u.Finally, points),
		}
		for _, c := range u.Catches {
			info.Catches = append(info.Catches, convertScope(c, points))
		}
		out = append(out, info)
	}
	return out
}

func convertScope(s *analyzer.Scope, points *analyzer.ProgramPointIndex) domain.ScopeInfo {
	info := domain.ScopeInfo{Blocks: make([]domain.BlockInfo, 0, len(s.Blocks))}
	for _, b := range s.Blocks {
		info.Blocks = append(info.Blocks, convertBlock(b, points))
	}
	info.Nested = convertTries(s.Nested, points)
	return info
}

func convertBlock(b analyzer.Block, points *analyzer.ProgramPointIndex) domain.BlockInfo {
	return domain.BlockInfo{Start: points.Of(b.Start), End: points.Of(b.End)}
}

func convertSites(sites []analyzer.SiteRewrite, points *analyzer.ProgramPointIndex) []domain.SiteInfo {
	if len(sites) == 0 {
		return nil
	}
	out := make([]domain.SiteInfo, 0, len(sites))
	for _, site := range sites {
		out = append(out, domain.SiteInfo{
			Call:         site.Call,
			Exit:         site.Exit.String(),
			Region:       convertBlock(site.Region, points),
			Slot:         site.Slot,
			Replacement:  site.Summary(),
			TypeMismatch: site.TypeMismatch,
		})
	}
	return out
}
