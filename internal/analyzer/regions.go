package analyzer

import (
	"sort"

	"github.com/ludo-technologies/finscn/internal/bytecode"
)

// HandlerGroup is the ordered list of protected blocks that lead into one handler.
type HandlerGroup struct {
	Handler bytecode.Label
	Blocks  []Block
}

// Regions is the exception table regrouped by handler. Both lists are ordered
// by handler position; blocks inside a group are ordered by start.
type Regions struct {
	Catches   []HandlerGroup
	Finallies []HandlerGroup
}

// HasFinally reports whether any default handler survived extraction.
func (r *Regions) HasFinally() bool {
	return len(r.Finallies) > 0
}

// ExtractRegions classifies exception table entries into catch groups and
// finally groups.
//
// Entries whose start equals their handler are dropped, and an end that lies
// past the handler is pulled back to the handler. A default entry that starts
// together with a catch entry ending exactly at its own handler is split at
// that catch entry's end, separating the try part from the catch part.
func ExtractRegions(entries []bytecode.TryCatchBlock, points *ProgramPointIndex) (*Regions, error) {
	var regular, defaults []bytecode.TryCatchBlock
	for _, e := range entries {
		if err := checkEntry(e, points); err != nil {
			return nil, err
		}
		if e.Start == e.Handler {
			continue
		}
		if points.Of(e.End) > points.Of(e.Handler) {
			e.End = e.Handler
		}
		if e.IsDefault() {
			defaults = append(defaults, e)
		} else {
			regular = append(regular, e)
		}
	}

	var merged []bytecode.TryCatchBlock
	for _, e := range regular {
		if e.End == e.Handler {
			merged = append(merged, e)
		}
	}

	var split []bytecode.TryCatchBlock
	for _, d := range defaults {
		m, ok := findMerged(merged, d, points)
		if !ok {
			split = append(split, d)
			continue
		}
		head, tail := d, d
		head.End = m.End
		tail.Start = m.End
		split = append(split, head, tail)
	}

	return &Regions{
		Catches:   groupByHandler(regular, points),
		Finallies: groupByHandler(split, points),
	}, nil
}

func checkEntry(e bytecode.TryCatchBlock, points *ProgramPointIndex) error {
	if !points.Contains(e.Start) {
		return wrapf(ErrUnknownLabel, "try/catch start %d", e.Start)
	}
	if !points.Contains(e.Handler) {
		return wrapf(ErrUnknownLabel, "try/catch handler %d", e.Handler)
	}
	if e.End != bytecode.NoLabel && !points.Contains(e.End) {
		return wrapf(ErrUnknownLabel, "try/catch end %d", e.End)
	}
	return nil
}

// findMerged returns the first merged entry, in table order, that starts with
// d and ends strictly before it.
func findMerged(merged []bytecode.TryCatchBlock, d bytecode.TryCatchBlock, points *ProgramPointIndex) (bytecode.TryCatchBlock, bool) {
	for _, m := range merged {
		if m.Start == d.Start && points.Of(m.End) < points.Of(d.End) {
			return m, true
		}
	}
	return bytecode.TryCatchBlock{}, false
}

func groupByHandler(entries []bytecode.TryCatchBlock, points *ProgramPointIndex) []HandlerGroup {
	byHandler := make(map[bytecode.Label]int)
	var groups []HandlerGroup
	for _, e := range entries {
		i, ok := byHandler[e.Handler]
		if !ok {
			i = len(groups)
			byHandler[e.Handler] = i
			groups = append(groups, HandlerGroup{Handler: e.Handler})
		}
		groups[i].Blocks = append(groups[i].Blocks, Block{Start: e.Start, End: e.End})
	}
	for _, g := range groups {
		sort.SliceStable(g.Blocks, func(a, b int) bool {
			return points.Of(g.Blocks[a].Start) < points.Of(g.Blocks[b].Start)
		})
	}
	sort.SliceStable(groups, func(a, b int) bool {
		return points.Of(groups[a].Handler) < points.Of(groups[b].Handler)
	})
	return groups
}
