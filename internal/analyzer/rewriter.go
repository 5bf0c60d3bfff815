package analyzer

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ludo-technologies/finscn/internal/bytecode"
	"github.com/ludo-technologies/finscn/internal/marker"
)

// ExitKind classifies a finally copy by what its stash slot holds.
type ExitKind int

const (
	// ExitReturn copies run after protected code completed normally; the slot
	// holds the return value, if any.
	ExitReturn ExitKind = iota
	// ExitThrow copies run while an exception propagates; the slot holds it.
	ExitThrow
)

func (k ExitKind) String() string {
	if k == ExitThrow {
		return "throw"
	}
	return "return"
}

// SiteRewrite records one rewritten marker call.
type SiteRewrite struct {
	Call         string
	Exit         ExitKind
	Region       Block
	Slot         int
	Replacement  []bytecode.Insn
	TypeMismatch bool
}

// Summary renders the replacement instructions on one line.
func (s SiteRewrite) Summary() string {
	parts := make([]string, len(s.Replacement))
	for i, in := range s.Replacement {
		parts[i] = in.String()
	}
	return strings.Join(parts, "; ")
}

var (
	optionalOf         = bytecode.MethodInsn(bytecode.Invokestatic, "java/util/Optional", "of", "(Ljava/lang/Object;)Ljava/util/Optional;")
	optionalOfNullable = bytecode.MethodInsn(bytecode.Invokestatic, "java/util/Optional", "ofNullable", "(Ljava/lang/Object;)Ljava/util/Optional;")
)

const classCastException = "java/lang/ClassCastException"

func valueOf(t bytecode.TypeTag) bytecode.Insn {
	return bytecode.MethodInsn(bytecode.Invokestatic, t.BoxedName(), "valueOf", t.ValueOfDesc())
}

func unbox(t bytecode.TypeTag) bytecode.Insn {
	return bytecode.MethodInsn(bytecode.Invokevirtual, t.BoxedName(), t.UnboxMethod(), t.UnboxDesc())
}

// exitRewriter finds the finally copies of every try unit and rewrites the
// marker calls inside them.
type exitRewriter struct {
	code      *bytecode.InsnList
	points    *ProgramPointIndex
	locator   *FinallyLocator
	patcher   *Patcher
	surface   marker.Surface
	returnTag bytecode.TypeTag
	logger    *slog.Logger
	sites     []SiteRewrite
}

func newExitRewriter(code *bytecode.InsnList, points *ProgramPointIndex, surface marker.Surface, returnTag bytecode.TypeTag, logger *slog.Logger) *exitRewriter {
	return &exitRewriter{
		code:      code,
		points:    points,
		locator:   NewFinallyLocator(code),
		patcher:   NewPatcher(code),
		surface:   surface,
		returnTag: returnTag,
		logger:    logger,
	}
}

// rewrite visits the forest in pre-order.
func (r *exitRewriter) rewrite(roots []*TryUnit) error {
	stack := make([]*TryUnit, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := r.rewriteUnit(u); err != nil {
			return err
		}

		var children []*TryUnit
		for _, s := range u.Scopes() {
			children = append(children, s.Nested...)
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return nil
}

func (r *exitRewriter) rewriteUnit(u *TryUnit) error {
	if err := r.rewriteReturnExits(u); err != nil {
		return err
	}
	if err := r.rewriteCatchExits(u); err != nil {
		return err
	}

	fin := u.Finally.First()
	store, err := r.locator.StashStore(fin.Start, EntryDefault)
	if err != nil {
		return err
	}
	return r.scan(fin, ExitThrow, r.code.At(store).Var)
}

// rewriteReturnExits handles the copies between the blocks of the try and
// catch scopes and the copy after the last block of each.
func (r *exitRewriter) rewriteReturnExits(u *TryUnit) error {
	scopes := append([]*Scope{u.Try}, u.Catches...)
	for _, s := range scopes {
		for i, bl := range s.Blocks {
			var dup Block
			if i < len(s.Blocks)-1 {
				dup = Block{Start: bl.End, End: s.Blocks[i+1].Start}
			} else {
				if r.storeBefore(bl.End) == bytecode.NoHandle {
					continue
				}
				end, err := r.locator.FindEnd(bl.End, EntryReturn)
				if err != nil {
					return err
				}
				dup = Block{Start: bl.End, End: end.End}
			}
			if r.points.Of(dup.Start) >= r.points.Of(dup.End) {
				continue
			}
			store := r.storeBefore(dup.Start)
			if store == bytecode.NoHandle {
				continue
			}
			if err := r.scan(dup, ExitReturn, r.code.At(store).Var); err != nil {
				return err
			}
		}
	}
	return nil
}

// rewriteCatchExits handles the copy that runs when a catch clause rethrows,
// between the end of the clause and the next clause or the default handler.
func (r *exitRewriter) rewriteCatchExits(u *TryUnit) error {
	for i, c := range u.Catches {
		start := c.Last().End
		end := u.Finally.First().Start
		if i < len(u.Catches)-1 {
			end = u.Catches[i+1].First().Start
		}

		if r.storeBefore(start) != bytecode.NoHandle {
			fe, err := r.locator.FindEnd(start, EntryReturn)
			if err != nil {
				return err
			}
			if fe.End == end {
				continue
			}
			start = fe.End
		}

		exc, err := r.locator.StashStore(c.First().Start, EntryDefault)
		if err != nil {
			return err
		}
		region := Block{Start: start, End: end}
		if r.points.Of(region.Start) >= r.points.Of(region.End) {
			continue
		}
		if err := r.scan(region, ExitThrow, r.code.At(exc).Var); err != nil {
			return err
		}
	}
	return nil
}

// storeBefore returns the slot store right before label l, if there is one.
// Nothing follows the end of the method, so NoLabel never has one.
func (r *exitRewriter) storeBefore(l bytecode.Label) bytecode.Handle {
	if l == bytecode.NoLabel {
		return bytecode.NoHandle
	}
	h := r.code.PrevReal(r.code.LabelHandle(l))
	if h == bytecode.NoHandle || !r.code.At(h).IsStore() {
		return bytecode.NoHandle
	}
	return h
}

// scan rewrites every marker call inside region.
func (r *exitRewriter) scan(region Block, exit ExitKind, slot int) error {
	r.logger.Debug("finally copy",
		"exit", exit,
		"start", r.points.Of(region.Start),
		"end", r.points.Of(region.End),
		"slot", slot)

	stop := bytecode.NoHandle
	if region.End != bytecode.NoLabel {
		stop = r.code.LabelHandle(region.End)
	}
	for h := r.code.LabelHandle(region.Start); h != stop && h != bytecode.NoHandle; h = r.code.Next(h) {
		call, ok := r.surface.Match(r.code.At(h))
		if !ok {
			continue
		}
		var err error
		if exit == ExitReturn {
			h, err = r.rewriteReturnCall(h, call, region, slot)
		} else {
			h = r.rewriteThrowCall(h, call, region, slot)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *exitRewriter) rewriteReturnCall(h bytecode.Handle, call marker.Call, region Block, slot int) (bytecode.Handle, error) {
	switch call.Family {
	case marker.FamilyHasReturnedValue:
		return r.replace(h, call, ExitReturn, region, slot, bytecode.Simple(bytecode.Iconst1)), nil
	case marker.FamilyHasThrownException:
		return r.replace(h, call, ExitReturn, region, slot, bytecode.Simple(bytecode.Iconst0)), nil
	case marker.FamilyReturnedValue:
		return r.rewriteReturnedValue(h, call, region, slot)
	default:
		return h, nil
	}
}

func (r *exitRewriter) rewriteThrowCall(h bytecode.Handle, call marker.Call, region Block, slot int) bytecode.Handle {
	switch call.Family {
	case marker.FamilyHasReturnedValue:
		return r.replace(h, call, ExitThrow, region, slot, bytecode.Simple(bytecode.Iconst0))
	case marker.FamilyHasThrownException:
		return r.replace(h, call, ExitThrow, region, slot, bytecode.Simple(bytecode.Iconst1))
	case marker.FamilyThrownException:
		load := bytecode.VarInsn(bytecode.Aload, slot)
		if call.Variant == marker.VariantOptional {
			return r.replace(h, call, ExitThrow, region, slot, load, optionalOfNullable)
		}
		return r.replace(h, call, ExitThrow, region, slot, load)
	default:
		return h
	}
}

func (r *exitRewriter) rewriteReturnedValue(h bytecode.Handle, call marker.Call, region Block, slot int) (bytecode.Handle, error) {
	ret := r.returnTag
	if ret == bytecode.TagVoid {
		return h, wrapf(ErrNoReturnValue, "%s at program point %d", call.Name, r.points.Of(region.Start))
	}
	load := bytecode.VarInsn(ret.LoadOpcode(), slot)

	if ret.IsReference() {
		switch call.Variant {
		case marker.VariantOptional:
			return r.replace(h, call, ExitReturn, region, slot, load, optionalOfNullable), nil
		case marker.VariantTyped:
			return r.replace(h, call, ExitReturn, region, slot,
				load, bytecode.TypeInsn(bytecode.Checkcast, call.Type.BoxedName()), unbox(call.Type)), nil
		default:
			return r.replace(h, call, ExitReturn, region, slot, load), nil
		}
	}

	switch call.Variant {
	case marker.VariantOptional:
		return r.replace(h, call, ExitReturn, region, slot, load, valueOf(ret), optionalOf), nil
	case marker.VariantGeneric:
		return r.replace(h, call, ExitReturn, region, slot, load, valueOf(ret)), nil
	}
	if call.Type == ret {
		return r.replace(h, call, ExitReturn, region, slot, load), nil
	}

	// The call stays in place behind a throw so the stack shape is unchanged.
	message := fmt.Sprintf("%s cannot be cast to %s", call.Type.PrimitiveName(), ret.PrimitiveName())
	throw := []bytecode.Insn{
		bytecode.TypeInsn(bytecode.New, classCastException),
		bytecode.Simple(bytecode.Dup),
		bytecode.LdcInsn(message),
		bytecode.MethodInsn(bytecode.Invokespecial, classCastException, "<init>", "(Ljava/lang/String;)V"),
		bytecode.Simple(bytecode.Athrow),
	}
	for _, in := range throw {
		r.patcher.InsertBefore(h, in)
	}
	r.record(call, ExitReturn, region, slot, throw, true)
	return h, nil
}

// replace swaps the call at h for seq and returns the handle of the last
// inserted instruction.
func (r *exitRewriter) replace(h bytecode.Handle, call marker.Call, exit ExitKind, region Block, slot int, seq ...bytecode.Insn) bytecode.Handle {
	last := r.patcher.Replace(h, seq[0])
	for _, in := range seq[1:] {
		last = r.patcher.InsertAfter(last, in)
	}
	r.record(call, exit, region, slot, seq, false)
	return last
}

func (r *exitRewriter) record(call marker.Call, exit ExitKind, region Block, slot int, seq []bytecode.Insn, mismatch bool) {
	site := SiteRewrite{
		Call:         call.Name,
		Exit:         exit,
		Region:       region,
		Slot:         slot,
		Replacement:  seq,
		TypeMismatch: mismatch,
	}
	r.sites = append(r.sites, site)
	r.logger.Debug("rewrote marker call",
		"call", call.Name,
		"exit", exit,
		"slot", slot,
		"replacement", site.Summary())
}
