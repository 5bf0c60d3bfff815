package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ludo-technologies/finscn/internal/bytecode"
)

func TestProgramPointIndex(t *testing.T) {
	code := bytecode.MustAssemble(`
a:
  nop
b:
c:
  return
`)
	points := NewProgramPointIndex(code)

	for i, name := range []string{"a", "b", "c"} {
		l, ok := code.LabelByName(name)
		assert.True(t, ok)
		assert.Equal(t, i, points.Of(l), name)
		assert.True(t, points.Contains(l))
	}
	assert.Equal(t, 3, points.Count())
	assert.Equal(t, 3, points.Of(bytecode.NoLabel))

	stray := code.NewLabel()
	assert.Equal(t, -1, points.Of(stray))
	assert.False(t, points.Contains(stray))
	assert.False(t, points.Contains(bytecode.NoLabel))
}
