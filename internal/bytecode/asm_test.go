package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble_Operands(t *testing.T) {
	list, err := Assemble(`
# comment
start:
  bipush 10
  istore 1
  iinc 1 -2
  iload 1
  ifeq done
  invokestatic com/example/Finally.hasReturnedValue ()Z
  getstatic java/lang/System.out Ljava/io/PrintStream;
  new java/lang/IllegalStateException
  ldc "a b: c"
  ldc 7
  ldc 7L
  ldc 1.5F
  ldc 2.5D
done:
  return
`)
	require.NoError(t, err)
	insns := list.Insns()
	require.Len(t, insns, 16)

	assert.True(t, insns[0].IsLabel())
	assert.Equal(t, IntInsn(Bipush, 10), insns[1])
	assert.Equal(t, VarInsn(Istore, 1), insns[2])
	assert.Equal(t, IincInsn(1, -2), insns[3])
	assert.Equal(t, Ifeq, insns[5].Op)
	assert.Equal(t, insns[14].Label, insns[5].Target)
	assert.Equal(t, MethodInsn(Invokestatic, "com/example/Finally", "hasReturnedValue", "()Z"), insns[6])
	assert.Equal(t, FieldInsn(Getstatic, "java/lang/System", "out", "Ljava/io/PrintStream;"), insns[7])
	assert.Equal(t, TypeInsn(New, "java/lang/IllegalStateException"), insns[8])
	assert.Equal(t, "a b: c", insns[9].Const)
	assert.Equal(t, 7, insns[10].Const)
	assert.Equal(t, int64(7), insns[11].Const)
	assert.Equal(t, float32(1.5), insns[12].Const)
	assert.Equal(t, 2.5, insns[13].Const)
}

func TestAssemble_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"unknown mnemonic", "  frobnicate", 1},
		{"missing operand", "iload", 1},
		{"extra operand", "nop 1", 1},
		{"bad member", "invokestatic Foo ()V", 1},
		{"label twice", "a:\na:", 2},
		{"label never placed", "nop\ngoto nowhere", 2},
		{"bad label name", "1a:", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Assemble(tt.src)
			require.Error(t, err)
			var asmErr *AsmError
			require.ErrorAs(t, err, &asmErr)
			assert.Equal(t, tt.line, asmErr.Line)
		})
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	src := `start:
  iconst_1
  istore 2
  iload 2
  ifne start
  invokestatic java/lang/Integer.valueOf (I)Ljava/lang/Integer;
  checkcast java/lang/Integer
  ldc "x"
  ldc 3L
end:
  areturn
`
	list := MustAssemble(src)
	assert.Equal(t, src, Format(list))

	again, err := Assemble(Format(list))
	require.NoError(t, err)
	assert.Equal(t, Format(list), Format(again))
}

func TestInsn_String(t *testing.T) {
	assert.Equal(t, "L3:", LabelInsn(3).String())
	assert.Equal(t, "goto L1", JumpInsn(Goto, 1).String())
	assert.Equal(t, "aload 4", VarInsn(Aload, 4).String())
	assert.Equal(t, "athrow", Simple(Athrow).String())
	assert.Equal(t, "op(250)", Opcode(250).String())
}
