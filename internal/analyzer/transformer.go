package analyzer

import (
	"fmt"
	"log/slog"

	"github.com/ludo-technologies/finscn/internal/bytecode"
	"github.com/ludo-technologies/finscn/internal/marker"
)

// Result describes what happened to one method.
type Result struct {
	// Changed is true when the method body was replaced.
	Changed bool
	// Tries is the recovered try forest. Empty when the method has no finally.
	Tries []*TryUnit
	// Sites lists every rewritten marker call in rewrite order.
	Sites []SiteRewrite
	// Points indexes the labels of Code.
	Points *ProgramPointIndex
	// Code is the list Tries and Sites refer to.
	Code *bytecode.InsnList
}

// Describe renders the try forest.
func (r *Result) Describe() string {
	if r.Points == nil {
		return ""
	}
	return Describe(r.Tries, r.Points)
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithSurface selects the marker class to rewrite.
func WithSurface(s marker.Surface) Option {
	return func(t *Transformer) {
		t.surface = s
	}
}

// WithLogger sets the trace logger. Decisions are logged at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transformer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// Transformer rewrites marker calls in finally bodies. It holds no per-method
// state and may be shared between goroutines.
type Transformer struct {
	surface marker.Surface
	logger  *slog.Logger
}

// NewTransformer creates a transformer for the default marker surface.
func NewTransformer(opts ...Option) *Transformer {
	t := &Transformer{
		surface: marker.DefaultSurface(),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Surface returns the marker surface in use.
func (t *Transformer) Surface() marker.Surface {
	return t.surface
}

// Transform rewrites the marker calls of m in place.
//
// The method is edited on a copy that replaces m.Code only when the whole
// method was processed without error, so a failed method is left exactly as
// it was.
func (t *Transformer) Transform(m *bytecode.Method) (*Result, error) {
	if m.Code == nil {
		return &Result{}, nil
	}
	logger := t.logger.With("method", m.Signature())

	if t.surface.IsSupportedProbe(m) {
		return t.activate(m, logger), nil
	}
	if m.Owner == t.surface.Owner() || !t.surface.References(m.Code) {
		return &Result{Code: m.Code, Points: NewProgramPointIndex(m.Code)}, nil
	}

	returnTag, err := m.ReturnTag()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Signature(), wrapf(ErrInvalidDescriptor, "%v", err))
	}

	work := m.Code.Clone()
	points := NewProgramPointIndex(work)
	roots, err := t.recover(m, work, points, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Signature(), err)
	}
	result := &Result{Tries: roots, Points: points, Code: work}
	if len(roots) == 0 {
		result.Code = m.Code
		return result, nil
	}

	rw := newExitRewriter(work, points, t.surface, returnTag, logger)
	if err := rw.rewrite(roots); err != nil {
		return nil, fmt.Errorf("%s: %w", m.Signature(), err)
	}
	result.Sites = rw.sites
	result.Changed = rw.patcher.Changed()
	if result.Changed {
		m.Code = work
	} else {
		result.Code = m.Code
	}
	return result, nil
}

// Inspect recovers the try forest of m without editing it.
func (t *Transformer) Inspect(m *bytecode.Method) (*Result, error) {
	if m.Code == nil {
		return &Result{}, nil
	}
	logger := t.logger.With("method", m.Signature())
	points := NewProgramPointIndex(m.Code)
	roots, err := t.recover(m, m.Code, points, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Signature(), err)
	}
	return &Result{Tries: roots, Points: points, Code: m.Code}, nil
}

func (t *Transformer) recover(m *bytecode.Method, code *bytecode.InsnList, points *ProgramPointIndex, logger *slog.Logger) ([]*TryUnit, error) {
	for _, e := range m.TryCatch {
		logger.Debug("try/catch entry",
			"start", points.Of(e.Start),
			"end", points.Of(e.End),
			"handler", points.Of(e.Handler),
			"type", e.Type)
	}

	regions, err := ExtractRegions(m.TryCatch, points)
	if err != nil {
		return nil, err
	}
	if !regions.HasFinally() {
		logger.Debug("no finally handlers")
		return nil, nil
	}

	roots, err := BuildTryTree(code, points, regions)
	if err != nil {
		return nil, err
	}
	logger.Debug("try tree", "tree", Describe(roots, points))
	return roots, nil
}

// activate makes the marker class report that rewriting is in effect by
// turning every iconst_0 of isSupported into iconst_1.
func (t *Transformer) activate(m *bytecode.Method, logger *slog.Logger) *Result {
	work := m.Code.Clone()
	patcher := NewPatcher(work)
	for h := work.First(); h != bytecode.NoHandle; h = work.Next(h) {
		if work.At(h).Op == bytecode.Iconst0 {
			h = patcher.Replace(h, bytecode.Simple(bytecode.Iconst1))
		}
	}
	if patcher.Changed() {
		logger.Debug("activated marker class")
		m.Code = work
	}
	return &Result{Changed: patcher.Changed(), Code: m.Code, Points: NewProgramPointIndex(m.Code)}
}
