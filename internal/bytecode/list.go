package bytecode

import (
	"fmt"
	"strconv"
)

// Handle is a stable reference to an instruction inside an InsnList.
// A handle stays valid until its instruction is removed.
type Handle int32

// NoHandle is returned when there is no such instruction.
const NoHandle Handle = -1

type node struct {
	insn    Insn
	prev    Handle
	next    Handle
	removed bool
}

// InsnList is an editable instruction sequence. Nodes live in an arena and
// are linked in both directions, so inserting and removing relative to a
// handle is O(1).
type InsnList struct {
	nodes     []node
	first     Handle
	last      Handle
	size      int
	labels    map[Label]Handle
	names     map[Label]string
	nextLabel Label
}

// NewInsnList creates an empty list.
func NewInsnList() *InsnList {
	return &InsnList{
		first:  NoHandle,
		last:   NoHandle,
		labels: make(map[Label]Handle),
		names:  make(map[Label]string),
	}
}

// NewLabel allocates a label that is not yet placed in the list.
func (l *InsnList) NewLabel() Label {
	lb := l.nextLabel
	l.nextLabel++
	return lb
}

// NamedLabel allocates a label that renders as name in listings.
func (l *InsnList) NamedLabel(name string) Label {
	lb := l.NewLabel()
	l.names[lb] = name
	return lb
}

// LabelName returns the listing name of a label.
func (l *InsnList) LabelName(lb Label) string {
	if lb == NoLabel {
		return "END"
	}
	if name, ok := l.names[lb]; ok {
		return name
	}
	return "L" + strconv.Itoa(int(lb))
}

// LabelByName finds a label allocated with NamedLabel.
func (l *InsnList) LabelByName(name string) (Label, bool) {
	for lb, n := range l.names {
		if n == name {
			return lb, true
		}
	}
	return NoLabel, false
}

// Len returns the number of instructions, labels included.
func (l *InsnList) Len() int { return l.size }

// First returns the first instruction or NoHandle.
func (l *InsnList) First() Handle { return l.first }

// Last returns the last instruction or NoHandle.
func (l *InsnList) Last() Handle { return l.last }

// Next returns the instruction after h or NoHandle.
func (l *InsnList) Next(h Handle) Handle {
	if h == NoHandle {
		return NoHandle
	}
	return l.nodes[h].next
}

// Prev returns the instruction before h or NoHandle.
func (l *InsnList) Prev(h Handle) Handle {
	if h == NoHandle {
		return NoHandle
	}
	return l.nodes[h].prev
}

// At returns the instruction at h.
func (l *InsnList) At(h Handle) Insn {
	return l.nodes[h].insn
}

// LabelHandle returns the handle of the label pseudo-instruction for lb.
func (l *InsnList) LabelHandle(lb Label) Handle {
	h, ok := l.labels[lb]
	if !ok {
		return NoHandle
	}
	return h
}

// HasLabel reports whether lb is placed in the list.
func (l *InsnList) HasLabel(lb Label) bool {
	_, ok := l.labels[lb]
	return ok
}

// Append adds in at the end of the list.
func (l *InsnList) Append(in Insn) Handle {
	h := l.alloc(in)
	n := &l.nodes[h]
	n.prev = l.last
	if l.last != NoHandle {
		l.nodes[l.last].next = h
	} else {
		l.first = h
	}
	l.last = h
	return h
}

// InsertBefore places in immediately before h.
func (l *InsnList) InsertBefore(h Handle, in Insn) Handle {
	l.mustBeLive(h)
	nh := l.alloc(in)
	prev := l.nodes[h].prev
	l.nodes[nh].prev = prev
	l.nodes[nh].next = h
	l.nodes[h].prev = nh
	if prev != NoHandle {
		l.nodes[prev].next = nh
	} else {
		l.first = nh
	}
	return nh
}

// InsertAfter places in immediately after h.
func (l *InsnList) InsertAfter(h Handle, in Insn) Handle {
	l.mustBeLive(h)
	nh := l.alloc(in)
	next := l.nodes[h].next
	l.nodes[nh].prev = h
	l.nodes[nh].next = next
	l.nodes[h].next = nh
	if next != NoHandle {
		l.nodes[next].prev = nh
	} else {
		l.last = nh
	}
	return nh
}

// Remove unlinks the instruction at h. The handle must not be used afterwards.
func (l *InsnList) Remove(h Handle) {
	l.mustBeLive(h)
	n := &l.nodes[h]
	if n.prev != NoHandle {
		l.nodes[n.prev].next = n.next
	} else {
		l.first = n.next
	}
	if n.next != NoHandle {
		l.nodes[n.next].prev = n.prev
	} else {
		l.last = n.prev
	}
	if n.insn.IsLabel() {
		delete(l.labels, n.insn.Label)
	}
	n.removed = true
	n.prev, n.next = NoHandle, NoHandle
	l.size--
}

// NextReal returns the first non-label instruction after h.
func (l *InsnList) NextReal(h Handle) Handle {
	for cur := l.Next(h); cur != NoHandle; cur = l.Next(cur) {
		if !l.nodes[cur].insn.IsLabel() {
			return cur
		}
	}
	return NoHandle
}

// PrevReal returns the last non-label instruction before h.
func (l *InsnList) PrevReal(h Handle) Handle {
	for cur := l.Prev(h); cur != NoHandle; cur = l.Prev(cur) {
		if !l.nodes[cur].insn.IsLabel() {
			return cur
		}
	}
	return NoHandle
}

// NextLabel returns the first label after h, or NoLabel.
func (l *InsnList) NextLabel(h Handle) Label {
	for cur := l.Next(h); cur != NoHandle; cur = l.Next(cur) {
		if in := l.nodes[cur].insn; in.IsLabel() {
			return in.Label
		}
	}
	return NoLabel
}

// PrevLabel returns the last label before h, or NoLabel.
func (l *InsnList) PrevLabel(h Handle) Label {
	for cur := l.Prev(h); cur != NoHandle; cur = l.Prev(cur) {
		if in := l.nodes[cur].insn; in.IsLabel() {
			return in.Label
		}
	}
	return NoLabel
}

// Insns returns the instructions in order.
func (l *InsnList) Insns() []Insn {
	out := make([]Insn, 0, l.size)
	for h := l.first; h != NoHandle; h = l.nodes[h].next {
		out = append(out, l.nodes[h].insn)
	}
	return out
}

// Clone returns an independent copy. Labels keep their identity, so
// try/catch entries referring to the original stay valid for the copy.
func (l *InsnList) Clone() *InsnList {
	c := NewInsnList()
	c.nextLabel = l.nextLabel
	for lb, name := range l.names {
		c.names[lb] = name
	}
	for h := l.first; h != NoHandle; h = l.nodes[h].next {
		c.Append(l.nodes[h].insn)
	}
	return c
}

func (l *InsnList) alloc(in Insn) Handle {
	if in.IsLabel() {
		if _, dup := l.labels[in.Label]; dup {
			panic(fmt.Sprintf("bytecode: label %s placed twice", l.LabelName(in.Label)))
		}
		if in.Label >= l.nextLabel {
			l.nextLabel = in.Label + 1
		}
	}
	h := Handle(len(l.nodes))
	l.nodes = append(l.nodes, node{insn: in, prev: NoHandle, next: NoHandle})
	if in.IsLabel() {
		l.labels[in.Label] = h
	}
	l.size++
	return h
}

func (l *InsnList) mustBeLive(h Handle) {
	if h < 0 || int(h) >= len(l.nodes) || l.nodes[h].removed {
		panic(fmt.Sprintf("bytecode: invalid handle %d", h))
	}
}
