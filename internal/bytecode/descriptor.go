package bytecode

import (
	"fmt"
	"strings"
)

// TypeTag is the single-character kind of a field or return type.
type TypeTag byte

const (
	TagVoid      TypeTag = 'V'
	TagBoolean   TypeTag = 'Z'
	TagByte      TypeTag = 'B'
	TagChar      TypeTag = 'C'
	TagShort     TypeTag = 'S'
	TagInt       TypeTag = 'I'
	TagLong      TypeTag = 'J'
	TagFloat     TypeTag = 'F'
	TagDouble    TypeTag = 'D'
	TagReference TypeTag = 'L'
)

type primitive struct {
	name  string
	boxed string
	unbox string
	load  Opcode
	store Opcode
	retOp Opcode
}

var primitives = map[TypeTag]primitive{
	TagBoolean: {"boolean", "java/lang/Boolean", "booleanValue", Iload, Istore, Ireturn},
	TagByte:    {"byte", "java/lang/Byte", "byteValue", Iload, Istore, Ireturn},
	TagChar:    {"char", "java/lang/Character", "charValue", Iload, Istore, Ireturn},
	TagShort:   {"short", "java/lang/Short", "shortValue", Iload, Istore, Ireturn},
	TagInt:     {"int", "java/lang/Integer", "intValue", Iload, Istore, Ireturn},
	TagLong:    {"long", "java/lang/Long", "longValue", Lload, Lstore, Lreturn},
	TagFloat:   {"float", "java/lang/Float", "floatValue", Fload, Fstore, Freturn},
	TagDouble:  {"double", "java/lang/Double", "doubleValue", Dload, Dstore, Dreturn},
}

// ReturnTag parses the return kind out of a method descriptor such as "(I)J".
// Arrays and classes both report TagReference.
func ReturnTag(desc string) (TypeTag, error) {
	if !strings.HasPrefix(desc, "(") {
		return 0, fmt.Errorf("invalid method descriptor %q", desc)
	}
	i := strings.IndexByte(desc, ')')
	if i < 0 || i == len(desc)-1 {
		return 0, fmt.Errorf("invalid method descriptor %q", desc)
	}
	ret := desc[i+1:]
	switch ret[0] {
	case 'L', '[':
		return TagReference, nil
	case 'V':
		return TagVoid, nil
	}
	tag := TypeTag(ret[0])
	if _, ok := primitives[tag]; !ok || len(ret) != 1 {
		return 0, fmt.Errorf("invalid return type in method descriptor %q", desc)
	}
	return tag, nil
}

// IsPrimitive reports whether t is one of the eight primitive kinds.
func (t TypeTag) IsPrimitive() bool {
	_, ok := primitives[t]
	return ok
}

// IsReference reports whether t is a class or array type.
func (t TypeTag) IsReference() bool {
	return t == TagReference
}

// PrimitiveName returns the source name of a primitive kind ("int").
func (t TypeTag) PrimitiveName() string {
	if p, ok := primitives[t]; ok {
		return p.name
	}
	if t == TagVoid {
		return "void"
	}
	return "java.lang.Object"
}

// BoxedName returns the internal name of the wrapper class of a primitive kind.
func (t TypeTag) BoxedName() string {
	if p, ok := primitives[t]; ok {
		return p.boxed
	}
	return "java/lang/Object"
}

// UnboxMethod returns the wrapper method that yields the primitive ("intValue").
func (t TypeTag) UnboxMethod() string {
	return primitives[t].unbox
}

// Descriptor returns the field descriptor of a primitive kind.
func (t TypeTag) Descriptor() string {
	if t == TagReference {
		return "Ljava/lang/Object;"
	}
	return string(rune(t))
}

// LoadOpcode returns the load instruction for a slot of this kind.
func (t TypeTag) LoadOpcode() Opcode {
	if p, ok := primitives[t]; ok {
		return p.load
	}
	return Aload
}

// StoreOpcode returns the store instruction for a slot of this kind.
func (t TypeTag) StoreOpcode() Opcode {
	if p, ok := primitives[t]; ok {
		return p.store
	}
	return Astore
}

// ReturnOpcode returns the return instruction for this kind.
func (t TypeTag) ReturnOpcode() Opcode {
	if p, ok := primitives[t]; ok {
		return p.retOp
	}
	if t == TagVoid {
		return Return
	}
	return Areturn
}

// ValueOfDesc returns the descriptor of the wrapper's static valueOf method.
func (t TypeTag) ValueOfDesc() string {
	return "(" + t.Descriptor() + ")L" + t.BoxedName() + ";"
}

// UnboxDesc returns the descriptor of the wrapper's unboxing method.
func (t TypeTag) UnboxDesc() string {
	return "()" + t.Descriptor()
}

func (t TypeTag) String() string {
	return t.PrimitiveName()
}
