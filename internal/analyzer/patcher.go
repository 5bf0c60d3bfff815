package analyzer

import "github.com/ludo-technologies/finscn/internal/bytecode"

// Patcher edits one instruction list and remembers whether it did.
type Patcher struct {
	code    *bytecode.InsnList
	changed bool
}

// NewPatcher wraps code.
func NewPatcher(code *bytecode.InsnList) *Patcher {
	return &Patcher{code: code}
}

// Replace puts in where h was and returns its handle.
func (p *Patcher) Replace(h bytecode.Handle, in bytecode.Insn) bytecode.Handle {
	nh := p.code.InsertBefore(h, in)
	p.code.Remove(h)
	p.changed = true
	return nh
}

// InsertBefore places in before h and returns its handle.
func (p *Patcher) InsertBefore(h bytecode.Handle, in bytecode.Insn) bytecode.Handle {
	p.changed = true
	return p.code.InsertBefore(h, in)
}

// InsertAfter places in after h and returns its handle.
func (p *Patcher) InsertAfter(h bytecode.Handle, in bytecode.Insn) bytecode.Handle {
	p.changed = true
	return p.code.InsertAfter(h, in)
}

// Changed reports whether any edit was made.
func (p *Patcher) Changed() bool {
	return p.changed
}
