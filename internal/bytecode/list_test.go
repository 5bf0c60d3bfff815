package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opsOf(list *InsnList) []Opcode {
	var ops []Opcode
	for _, in := range list.Insns() {
		ops = append(ops, in.Op)
	}
	return ops
}

func TestInsnList_InsertAndRemove(t *testing.T) {
	list := NewInsnList()
	a := list.Append(Simple(Iconst0))
	c := list.Append(Simple(Ireturn))

	b := list.InsertAfter(a, Simple(Iconst1))
	list.InsertBefore(a, Simple(Nop))
	assert.Equal(t, []Opcode{Nop, Iconst0, Iconst1, Ireturn}, opsOf(list))
	assert.Equal(t, 4, list.Len())

	list.Remove(b)
	assert.Equal(t, []Opcode{Nop, Iconst0, Ireturn}, opsOf(list))
	assert.Equal(t, a, list.Prev(c))
	assert.Equal(t, c, list.Next(a))

	list.Remove(list.First())
	list.Remove(list.Last())
	assert.Equal(t, a, list.First())
	assert.Equal(t, a, list.Last())
	assert.Equal(t, 1, list.Len())
}

func TestInsnList_HandlesSurviveEdits(t *testing.T) {
	list := NewInsnList()
	h := list.Append(VarInsn(Iload, 3))
	for i := 0; i < 10; i++ {
		list.InsertBefore(h, Simple(Nop))
		list.InsertAfter(h, Simple(Pop))
	}
	assert.Equal(t, VarInsn(Iload, 3), list.At(h))
	assert.Equal(t, 21, list.Len())
}

func TestInsnList_RemovedHandlePanics(t *testing.T) {
	list := NewInsnList()
	h := list.Append(Simple(Nop))
	list.Remove(h)
	assert.Panics(t, func() { list.InsertBefore(h, Simple(Nop)) })
}

func TestInsnList_Labels(t *testing.T) {
	list := NewInsnList()
	start := list.NamedLabel("start")
	end := list.NewLabel()
	hs := list.Append(LabelInsn(start))
	list.Append(Simple(Iconst1))
	store := list.Append(VarInsn(Istore, 1))
	he := list.Append(LabelInsn(end))
	ret := list.Append(Simple(Return))

	assert.Equal(t, hs, list.LabelHandle(start))
	assert.Equal(t, he, list.LabelHandle(end))
	assert.Equal(t, "start", list.LabelName(start))
	assert.Equal(t, "L1", list.LabelName(end))
	assert.Equal(t, "END", list.LabelName(NoLabel))

	lb, ok := list.LabelByName("start")
	require.True(t, ok)
	assert.Equal(t, start, lb)

	assert.Equal(t, store, list.PrevReal(he))
	assert.Equal(t, ret, list.NextReal(he))
	assert.Equal(t, end, list.NextLabel(store))
	assert.Equal(t, start, list.PrevLabel(store))
	assert.Equal(t, end, list.PrevLabel(ret))
	assert.Equal(t, NoLabel, list.NextLabel(ret))
	assert.Equal(t, NoHandle, list.NextReal(ret))

	list.Remove(he)
	assert.False(t, list.HasLabel(end))
	assert.Panics(t, func() { list.Append(LabelInsn(start)) })
}

func TestInsnList_CloneIsIndependent(t *testing.T) {
	list := MustAssemble(`
a:
  iconst_1
  ireturn
`)
	clone := list.Clone()
	a, ok := clone.LabelByName("a")
	require.True(t, ok)
	orig, _ := list.LabelByName("a")
	assert.Equal(t, orig, a)

	clone.Remove(clone.NextReal(clone.LabelHandle(a)))
	assert.Equal(t, 3, list.Len())
	assert.Equal(t, 2, clone.Len())

	fresh := clone.NewLabel()
	assert.False(t, list.HasLabel(fresh))
	assert.NotEqual(t, a, fresh)
}
