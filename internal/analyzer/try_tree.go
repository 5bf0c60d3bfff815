package analyzer

import (
	"slices"
	"sort"

	"github.com/ludo-technologies/finscn/internal/bytecode"
)

// catchRecord is a set of catch handlers that protect the same blocks,
// i.e. the catch clauses of one try statement.
type catchRecord struct {
	blocks   []Block
	handlers []bytecode.Label
	used     bool
}

// TryTreeBuilder reassembles try units from extracted regions and nests them.
type TryTreeBuilder struct {
	code    *bytecode.InsnList
	points  *ProgramPointIndex
	locator *FinallyLocator
}

// NewTryTreeBuilder creates a builder over one method body.
func NewTryTreeBuilder(code *bytecode.InsnList, points *ProgramPointIndex) *TryTreeBuilder {
	return &TryTreeBuilder{
		code:    code,
		points:  points,
		locator: NewFinallyLocator(code),
	}
}

// Build returns the root try units of the method, outermost last.
func (b *TryTreeBuilder) Build(regions *Regions) ([]*TryUnit, error) {
	records := groupCatches(regions.Catches)

	units := make([]*TryUnit, 0, len(regions.Finallies))
	for _, group := range regions.Finallies {
		unit, err := b.buildUnit(group, records)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}

	sort.SliceStable(units, func(i, j int) bool {
		wi, wj := b.width(units[i]), b.width(units[j])
		if wi != wj {
			return wi < wj
		}
		return b.points.Of(units[i].Try.First().Start) < b.points.Of(units[j].Try.First().Start)
	})

	var roots []*TryUnit
	for i, u := range units {
		if !b.attach(u, units[i+1:]) {
			roots = append(roots, u)
		}
	}
	return roots, nil
}

// BuildTryTree is a shorthand for NewTryTreeBuilder(code, points).Build(regions).
func BuildTryTree(code *bytecode.InsnList, points *ProgramPointIndex, regions *Regions) ([]*TryUnit, error) {
	return NewTryTreeBuilder(code, points).Build(regions)
}

func groupCatches(groups []HandlerGroup) []*catchRecord {
	var records []*catchRecord
	for _, g := range groups {
		found := false
		for _, r := range records {
			if slices.Equal(r.blocks, g.Blocks) {
				r.handlers = append(r.handlers, g.Handler)
				found = true
				break
			}
		}
		if !found {
			records = append(records, &catchRecord{blocks: g.Blocks, handlers: []bytecode.Label{g.Handler}})
		}
	}
	return records
}

func (b *TryTreeBuilder) buildUnit(group HandlerGroup, records []*catchRecord) (*TryUnit, error) {
	end, err := b.locator.FindEnd(group.Handler, EntryDefault)
	if err != nil {
		return nil, err
	}
	unit := &TryUnit{
		Finally: newScope([]Block{{Start: group.Handler, End: end.End}}),
	}

	record := matchCatches(records, group.Blocks)
	if record == nil {
		unit.Try = newScope(group.Blocks)
		return unit, nil
	}
	record.used = true

	n := len(record.blocks)
	unit.Try = newScope(group.Blocks[:n])
	catches, err := b.splitCatches(group.Blocks[n:], record.handlers)
	if err != nil {
		return nil, err
	}
	unit.Catches = catches
	return unit, nil
}

// matchCatches picks the unused record whose blocks are the longest proper
// prefix of blocks. Records are in handler order, so ties keep the earliest.
func matchCatches(records []*catchRecord, blocks []Block) *catchRecord {
	var best *catchRecord
	for _, r := range records {
		if r.used || len(r.blocks) >= len(blocks) {
			continue
		}
		if !slices.Equal(r.blocks, blocks[:len(r.blocks)]) {
			continue
		}
		if best == nil || len(r.blocks) > len(best.blocks) {
			best = r
		}
	}
	return best
}

// splitCatches cuts the blocks following a try body into one scope per
// catch handler. Each scope starts at its handler.
func (b *TryTreeBuilder) splitCatches(rest []Block, handlers []bytecode.Label) ([]*Scope, error) {
	if len(rest) == 0 || rest[0].Start != handlers[0] {
		return nil, wrapf(ErrMalformedCatchLayout, "first catch block does not start at handler %s", b.code.LabelName(handlers[0]))
	}
	var scopes []*Scope
	var current []Block
	next := 0
	for _, bl := range rest {
		if next < len(handlers) && b.points.Of(bl.Start) >= b.points.Of(handlers[next]) {
			if len(current) > 0 {
				scopes = append(scopes, newScope(current))
			}
			current = nil
			next++
			for next < len(handlers) && b.points.Of(bl.Start) >= b.points.Of(handlers[next]) {
				next++
			}
		}
		current = append(current, bl)
	}
	scopes = append(scopes, newScope(current))
	return scopes, nil
}

func (b *TryTreeBuilder) width(u *TryUnit) int {
	return b.points.Of(u.Finally.First().End) - b.points.Of(u.Try.First().Start)
}

// attach nests u into the first candidate scope that surrounds it.
func (b *TryTreeBuilder) attach(u *TryUnit, candidates []*TryUnit) bool {
	for _, c := range candidates {
		for _, s := range c.Scopes() {
			if s.Surrounds(u, b.points) {
				s.Nested = append(s.Nested, u)
				return true
			}
		}
	}
	return false
}
