package analyzer

import (
	"github.com/ludo-technologies/finscn/internal/bytecode"
)

// EntryKind tells the locator how a finally copy is entered.
type EntryKind int

const (
	// EntryDefault is the copy run by the default handler. Its slot store is
	// the first instruction after the handler label.
	EntryDefault EntryKind = iota
	// EntryReturn is a copy reached by falling out of protected code. Its
	// slot store is the last instruction before the copy's start.
	EntryReturn
)

func (k EntryKind) String() string {
	if k == EntryReturn {
		return "return"
	}
	return "default"
}

// FinallyEnd is where one physical copy of a finally body stops.
type FinallyEnd struct {
	// End is the first program point after the copy, NoLabel at method end.
	End bytecode.Label
	// Slot is the local the compiler stashed the pending value in.
	Slot int
	// Store is the stash instruction.
	Store bytecode.Handle
}

// FinallyLocator finds the end of finally copies in one instruction list.
type FinallyLocator struct {
	code *bytecode.InsnList
}

// NewFinallyLocator creates a locator over code.
func NewFinallyLocator(code *bytecode.InsnList) *FinallyLocator {
	return &FinallyLocator{code: code}
}

// StashStore returns the slot store that opens the copy starting at start.
func (f *FinallyLocator) StashStore(start bytecode.Label, kind EntryKind) (bytecode.Handle, error) {
	h := f.code.LabelHandle(start)
	if h == bytecode.NoHandle {
		return bytecode.NoHandle, wrapf(ErrUnknownLabel, "finally start %s", f.code.LabelName(start))
	}
	var store bytecode.Handle
	if kind == EntryDefault {
		store = f.code.NextReal(h)
	} else {
		store = f.code.PrevReal(h)
	}
	if store == bytecode.NoHandle || !f.code.At(store).IsStore() {
		return bytecode.NoHandle, wrapf(ErrMissingSlotStore, "%s entry at %s", kind, f.code.LabelName(start))
	}
	return store, nil
}

// FindEnd walks forward from the stash store of the copy at start.
//
// Conditional jump targets are collected as pending and every label passed
// clears itself. The copy ends after the first reload of the stash slot, or
// before a return or throw reached while nothing is pending.
func (f *FinallyLocator) FindEnd(start bytecode.Label, kind EntryKind) (FinallyEnd, error) {
	store, err := f.StashStore(start, kind)
	if err != nil {
		return FinallyEnd{}, err
	}
	slot := f.code.At(store).Var
	pending := make(map[bytecode.Label]struct{})

	for cur := f.code.Next(store); cur != bytecode.NoHandle; cur = f.code.Next(cur) {
		in := f.code.At(cur)
		switch {
		case in.IsLabel():
			delete(pending, in.Label)
		case in.Op.IsConditionalJump():
			pending[in.Target] = struct{}{}
		case in.IsLoad() && in.Var == slot:
			return FinallyEnd{End: f.code.NextLabel(cur), Slot: slot, Store: store}, nil
		case (in.Op.IsReturn() || in.Op.IsThrow()) && len(pending) == 0:
			end := f.code.PrevLabel(cur)
			if end == bytecode.NoLabel {
				return FinallyEnd{}, wrapf(ErrUnterminatedFinally, "no program point before %s", in.Op)
			}
			return FinallyEnd{End: end, Slot: slot, Store: store}, nil
		}
	}
	return FinallyEnd{}, wrapf(ErrUnterminatedFinally, "%s entry at %s", kind, f.code.LabelName(start))
}
