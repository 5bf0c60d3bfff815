package analyzer

import (
	"fmt"
	"strings"

	"github.com/ludo-technologies/finscn/internal/bytecode"
)

// Block is a half-open range of program points. End may be NoLabel, meaning
// the end of the method.
type Block struct {
	Start bytecode.Label
	End   bytecode.Label
}

// Scope is one try body, catch body or finally body: an ordered, non-empty
// list of blocks plus the try units physically nested inside it.
type Scope struct {
	Blocks []Block
	Nested []*TryUnit
}

func newScope(blocks []Block) *Scope {
	return &Scope{Blocks: blocks}
}

// First returns the first block.
func (s *Scope) First() Block {
	return s.Blocks[0]
}

// Last returns the last block.
func (s *Scope) Last() Block {
	return s.Blocks[len(s.Blocks)-1]
}

// Surrounds reports whether u lies inside the span of s.
func (s *Scope) Surrounds(u *TryUnit, points *ProgramPointIndex) bool {
	return points.Of(s.First().Start) <= points.Of(u.Try.First().Start) &&
		points.Of(u.Finally.Last().End) <= points.Of(s.Last().End)
}

// TryUnit is a recovered try/catch/finally statement. Finally holds the
// single canonical copy of the finally body that the default handler runs.
type TryUnit struct {
	Try     *Scope
	Catches []*Scope
	Finally *Scope
}

// Scopes returns the try scope, the catch scopes and the finally scope in
// program order.
func (u *TryUnit) Scopes() []*Scope {
	scopes := make([]*Scope, 0, len(u.Catches)+2)
	scopes = append(scopes, u.Try)
	scopes = append(scopes, u.Catches...)
	return append(scopes, u.Finally)
}

// Describe renders the unit tree with program point indices, one unit per line.
func Describe(units []*TryUnit, points *ProgramPointIndex) string {
	var b strings.Builder
	var walk func(u *TryUnit, depth int)
	walk = func(u *TryUnit, depth int) {
		indent := strings.Repeat("  ", depth)
		fmt.Fprintf(&b, "%stry %s", indent, describeBlocks(u.Try.Blocks, points))
		for _, c := range u.Catches {
			fmt.Fprintf(&b, " catch %s", describeBlocks(c.Blocks, points))
		}
		fmt.Fprintf(&b, " finally %s\n", describeBlocks(u.Finally.Blocks, points))
		for _, s := range u.Scopes() {
			for _, n := range s.Nested {
				walk(n, depth+1)
			}
		}
	}
	for _, u := range units {
		walk(u, 0)
	}
	return b.String()
}

func describeBlocks(blocks []Block, points *ProgramPointIndex) string {
	parts := make([]string, len(blocks))
	for i, bl := range blocks {
		parts[i] = fmt.Sprintf("[%d,%d)", points.Of(bl.Start), points.Of(bl.End))
	}
	return strings.Join(parts, "")
}
