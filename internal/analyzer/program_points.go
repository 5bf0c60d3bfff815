package analyzer

import "github.com/ludo-technologies/finscn/internal/bytecode"

// ProgramPointIndex numbers the labels of one instruction list in order,
// starting at 0 with no gaps. It is only valid for the pass that built it.
type ProgramPointIndex struct {
	index map[bytecode.Label]int
	count int
}

// NewProgramPointIndex indexes every label of code.
func NewProgramPointIndex(code *bytecode.InsnList) *ProgramPointIndex {
	p := &ProgramPointIndex{index: make(map[bytecode.Label]int)}
	for h := code.First(); h != bytecode.NoHandle; h = code.Next(h) {
		if in := code.At(h); in.IsLabel() {
			p.index[in.Label] = p.count
			p.count++
		}
	}
	return p
}

// Of returns the index of l. NoLabel, which stands for the end of the
// method, sorts after every label. Unknown labels report -1.
func (p *ProgramPointIndex) Of(l bytecode.Label) int {
	if l == bytecode.NoLabel {
		return p.count
	}
	if i, ok := p.index[l]; ok {
		return i
	}
	return -1
}

// Contains reports whether l is a label of the indexed list.
func (p *ProgramPointIndex) Contains(l bytecode.Label) bool {
	_, ok := p.index[l]
	return ok
}

// Count returns the number of labels.
func (p *ProgramPointIndex) Count() int {
	return p.count
}
