package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/finscn/internal/bytecode"
)

func TestFinallyLocator_FindEnd(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		start string
		kind  EntryKind
		end   string
		slot  int
	}{
		{
			name: "reload of the slot ends the copy",
			src: `
H:
  astore 1
  invokestatic com/example/Sample.cleanup ()V
  aload 1
  athrow
N:
  return
`,
			start: "H",
			end:   "N",
			slot:  1,
		},
		{
			name: "reload at the end of the method",
			src: `
H:
  astore 4
  aload 4
  athrow
`,
			start: "H",
			end:   "END",
			slot:  4,
		},
		{
			name: "return with nothing pending",
			src: `
H:
  astore 1
  invokestatic com/example/Sample.cleanup ()V
E:
  iconst_0
  ireturn
`,
			start: "H",
			end:   "E",
			slot:  1,
		},
		{
			name: "pending branch target defers the return",
			src: `
H:
  astore 1
  iload 0
  ifeq A
  iconst_1
  ireturn
A:
  aload 1
  athrow
B:
  return
`,
			start: "H",
			end:   "B",
			slot:  1,
		},
		{
			name: "loads of other slots are ignored",
			src: `
H:
  astore 2
  aload 1
  pop
  aload 2
  athrow
N:
  return
`,
			start: "H",
			end:   "N",
			slot:  2,
		},
		{
			name: "return entry uses the store before the start",
			src: `
S:
  iconst_1
  istore 2
R:
  invokestatic com/example/Sample.cleanup ()V
  iload 2
  ireturn
N:
  return
`,
			start: "R",
			kind:  EntryReturn,
			end:   "N",
			slot:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := bytecode.MustAssemble(tt.src)
			locator := NewFinallyLocator(code)

			got, err := locator.FindEnd(labelOf(t, code, tt.start), tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.end, code.LabelName(got.End))
			assert.Equal(t, tt.slot, got.Slot)
			assert.True(t, code.At(got.Store).IsStore())
		})
	}
}

func TestFinallyLocator_Errors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		start  string
		kind   EntryKind
		target error
	}{
		{
			name:   "default entry without store",
			src:    "H:\n  pop\n  return\n",
			start:  "H",
			target: ErrMissingSlotStore,
		},
		{
			name:   "return entry without store",
			src:    "S:\n  iconst_1\nR:\n  ireturn\n",
			start:  "R",
			kind:   EntryReturn,
			target: ErrMissingSlotStore,
		},
		{
			name:   "runs off the method",
			src:    "H:\n  astore 1\n  nop\n",
			start:  "H",
			target: ErrUnterminatedFinally,
		},
		{
			name:   "pending target never reached",
			src:    "H:\n  astore 1\n  ifeq A\n  return\nA:\n",
			start:  "H",
			target: ErrUnterminatedFinally,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := bytecode.MustAssemble(tt.src)
			_, err := NewFinallyLocator(code).FindEnd(labelOf(t, code, tt.start), tt.kind)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			assert.ErrorIs(t, err, ErrStructural)
		})
	}
}

func TestFinallyLocator_UnknownStart(t *testing.T) {
	code := bytecode.MustAssemble("H:\n  astore 1\n  aload 1\n  athrow\n")
	_, err := NewFinallyLocator(code).FindEnd(code.NewLabel(), EntryDefault)
	assert.ErrorIs(t, err, ErrUnknownLabel)
}

func TestEntryKind_String(t *testing.T) {
	assert.Equal(t, "default", EntryDefault.String())
	assert.Equal(t, "return", EntryReturn.String())
}
