package analyzer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/finscn/internal/bytecode"
	"github.com/ludo-technologies/finscn/internal/marker"
)

// entry names an exception table row by label names. An empty end means the
// end of the method; an empty type means a default handler.
type entry struct {
	start, end, handler, typ string
}

// assemble builds a method from listing text. "Finally." in src is shorthand
// for the default marker owner.
func assemble(t *testing.T, desc, src string, entries ...entry) *bytecode.Method {
	t.Helper()
	src = strings.ReplaceAll(src, "Finally.", marker.DefaultOwner+".")
	code, err := bytecode.Assemble(src)
	require.NoError(t, err)

	m := &bytecode.Method{Owner: "com/example/Sample", Name: "run", Desc: desc, Code: code}
	for _, e := range entries {
		m.TryCatch = append(m.TryCatch, bytecode.TryCatchBlock{
			Start:   labelOf(t, code, e.start),
			End:     labelOf(t, code, e.end),
			Handler: labelOf(t, code, e.handler),
			Type:    e.typ,
		})
	}
	return m
}

func labelOf(t *testing.T, code *bytecode.InsnList, name string) bytecode.Label {
	t.Helper()
	if name == "" {
		return bytecode.NoLabel
	}
	l, ok := code.LabelByName(name)
	require.True(t, ok, "label %s", name)
	return l
}

// listing formats the method body with the marker owner shortened again.
func listing(m *bytecode.Method) string {
	return strings.ReplaceAll(bytecode.Format(m.Code), marker.DefaultOwner+".", "Finally.")
}

// Two return paths out of the try body, each with its own finally copy,
// plus the copy run by the default handler.
const twoReturnsSrc = `
L0:
  iload 0
  ifeq L1
  invokestatic com/example/Sample.x ()I
  istore 1
L2:
  invokestatic Finally.hasReturnedValue ()Z
  ifeq L3
  invokestatic Finally.returnedValueInt ()I
  invokestatic com/example/Sample.use (I)V
L3:
  iload 1
  ireturn
L1:
  invokestatic com/example/Sample.y ()I
  istore 2
L4:
  invokestatic Finally.hasReturnedValue ()Z
  ifeq L5
  invokestatic Finally.returnedValueInt ()I
  invokestatic com/example/Sample.use (I)V
L5:
  iload 2
  ireturn
L6:
  astore 3
  invokestatic Finally.hasReturnedValue ()Z
  ifeq L7
  invokestatic Finally.returnedValueInt ()I
  invokestatic com/example/Sample.use (I)V
L7:
  aload 3
  athrow
`

func twoReturnsMethod(t *testing.T) *bytecode.Method {
	return assemble(t, "(Z)I", twoReturnsSrc,
		entry{"L0", "L2", "L6", ""},
		entry{"L1", "L4", "L6", ""},
	)
}

// A try body that always throws.
const alwaysThrowsSrc = `
L0:
  new java/lang/IllegalStateException
  dup
  invokespecial java/lang/IllegalStateException.<init> ()V
  athrow
L1:
  astore 1
  invokestatic Finally.hasThrownException ()Z
  ifeq L2
  invokestatic Finally.thrownException ()Ljava/lang/Throwable;
  invokestatic com/example/Sample.report (Ljava/lang/Throwable;)V
L2:
  invokestatic Finally.hasReturnedValue ()Z
  pop
  aload 1
  athrow
`

func alwaysThrowsMethod(t *testing.T) *bytecode.Method {
	return assemble(t, "()V", alwaysThrowsSrc, entry{"L0", "L1", "L1", ""})
}

// A catch clause that returns, with the fallthrough copy of the try body
// and the default handler copy.
const catchReturnsSrc = `
L0:
  invokestatic com/example/Sample.body ()V
L1:
  invokestatic Finally.hasReturnedValue ()Z
  invokestatic com/example/Sample.consume (Z)V
L2:
  goto L9
L3:
  astore 1
  invokestatic com/example/Sample.z ()I
  istore 2
L4:
  invokestatic Finally.hasReturnedValue ()Z
  invokestatic com/example/Sample.consume (Z)V
  iload 2
  ireturn
L5:
  astore 3
  invokestatic Finally.hasReturnedValue ()Z
  invokestatic com/example/Sample.consume (Z)V
  aload 3
  athrow
L9:
  iconst_0
  ireturn
`

func catchReturnsMethod(t *testing.T) *bytecode.Method {
	return assemble(t, "()I", catchReturnsSrc,
		entry{"L0", "L1", "L3", "java/lang/RuntimeException"},
		entry{"L0", "L1", "L5", ""},
		entry{"L3", "L4", "L5", ""},
	)
}

// An inner try/finally inside the catch clause of an outer try/finally.
const nestedInCatchSrc = `
L0:
  invokestatic com/example/Sample.a ()V
L1:
  invokestatic com/example/Sample.outer ()V
  goto L20
L2:
  astore 1
L3:
  invokestatic com/example/Sample.b ()V
L4:
  invokestatic Finally.hasThrownException ()Z
  invokestatic com/example/Sample.consume (Z)V
  goto L6
L5:
  astore 2
  invokestatic Finally.hasThrownException ()Z
  invokestatic com/example/Sample.consume (Z)V
  aload 2
  athrow
L6:
  invokestatic Finally.hasThrownException ()Z
  invokestatic com/example/Sample.consume (Z)V
  invokestatic com/example/Sample.outer ()V
  goto L20
L7:
  astore 3
  invokestatic Finally.hasThrownException ()Z
  invokestatic com/example/Sample.consume (Z)V
  aload 3
  athrow
L20:
  return
`

func nestedInCatchMethod(t *testing.T) *bytecode.Method {
	return assemble(t, "()V", nestedInCatchSrc,
		entry{"L0", "L1", "L2", "java/lang/RuntimeException"},
		entry{"L3", "L4", "L5", ""},
		entry{"L0", "L1", "L7", ""},
		entry{"L2", "L6", "L7", ""},
	)
}
