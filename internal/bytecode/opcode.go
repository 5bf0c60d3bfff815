// Package bytecode models the stack-machine instruction form that finscn
// analyzes: opcodes, label pseudo-instructions, an editable instruction list,
// method descriptors and a small text assembler.
package bytecode

import "strconv"

// Opcode is a stack-machine operation code. Values follow the JVM numbering.
type Opcode int16

// OpLabel marks a label pseudo-instruction. It never appears in real code.
const OpLabel Opcode = -1

const (
	Nop        Opcode = 0
	AconstNull Opcode = 1
	IconstM1   Opcode = 2
	Iconst0    Opcode = 3
	Iconst1    Opcode = 4
	Iconst2    Opcode = 5
	Iconst3    Opcode = 6
	Iconst4    Opcode = 7
	Iconst5    Opcode = 8
	Lconst0    Opcode = 9
	Lconst1    Opcode = 10
	Fconst0    Opcode = 11
	Fconst1    Opcode = 12
	Fconst2    Opcode = 13
	Dconst0    Opcode = 14
	Dconst1    Opcode = 15
	Bipush     Opcode = 16
	Sipush     Opcode = 17
	Ldc        Opcode = 18

	// Load
	Iload Opcode = 21
	Lload Opcode = 22
	Fload Opcode = 23
	Dload Opcode = 24
	Aload Opcode = 25

	// Store
	Istore Opcode = 54
	Lstore Opcode = 55
	Fstore Opcode = 56
	Dstore Opcode = 57
	Astore Opcode = 58

	// Stack
	Pop  Opcode = 87
	Pop2 Opcode = 88
	Dup  Opcode = 89
	Swap Opcode = 95

	// Arithmetic
	Iadd Opcode = 96
	Ladd Opcode = 97
	Isub Opcode = 100
	Imul Opcode = 104
	Idiv Opcode = 108
	Iinc Opcode = 132

	// Jump
	Ifeq     Opcode = 153
	Ifne     Opcode = 154
	Iflt     Opcode = 155
	Ifge     Opcode = 156
	Ifgt     Opcode = 157
	Ifle     Opcode = 158
	IfIcmpeq Opcode = 159
	IfIcmpne Opcode = 160
	IfIcmplt Opcode = 161
	IfIcmpge Opcode = 162
	IfIcmpgt Opcode = 163
	IfIcmple Opcode = 164
	IfAcmpeq Opcode = 165
	IfAcmpne Opcode = 166
	Goto     Opcode = 167

	// Return
	Ireturn Opcode = 172
	Lreturn Opcode = 173
	Freturn Opcode = 174
	Dreturn Opcode = 175
	Areturn Opcode = 176
	Return  Opcode = 177

	// Fields and calls
	Getstatic       Opcode = 178
	Putstatic       Opcode = 179
	Getfield        Opcode = 180
	Putfield        Opcode = 181
	Invokevirtual   Opcode = 182
	Invokespecial   Opcode = 183
	Invokestatic    Opcode = 184
	Invokeinterface Opcode = 185

	// Objects
	New        Opcode = 187
	Athrow     Opcode = 191
	Checkcast  Opcode = 192
	Instanceof Opcode = 193
	Ifnull     Opcode = 198
	Ifnonnull  Opcode = 199
)

// OperandKind describes the operand an instruction carries.
type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandInt
	OperandVar
	OperandJump
	OperandMethod
	OperandField
	OperandType
	OperandConst
	OperandIinc
)

// Info holds the listing name and operand kind of an opcode.
type Info struct {
	Op      Opcode
	Name    string
	Operand OperandKind
}

var (
	infos  = make(map[Opcode]Info)
	byName = make(map[string]Opcode)
)

func init() {
	ops := []Info{
		{Nop, "nop", OperandNone},
		{AconstNull, "aconst_null", OperandNone},
		{IconstM1, "iconst_m1", OperandNone},
		{Iconst0, "iconst_0", OperandNone},
		{Iconst1, "iconst_1", OperandNone},
		{Iconst2, "iconst_2", OperandNone},
		{Iconst3, "iconst_3", OperandNone},
		{Iconst4, "iconst_4", OperandNone},
		{Iconst5, "iconst_5", OperandNone},
		{Lconst0, "lconst_0", OperandNone},
		{Lconst1, "lconst_1", OperandNone},
		{Fconst0, "fconst_0", OperandNone},
		{Fconst1, "fconst_1", OperandNone},
		{Fconst2, "fconst_2", OperandNone},
		{Dconst0, "dconst_0", OperandNone},
		{Dconst1, "dconst_1", OperandNone},
		{Bipush, "bipush", OperandInt},
		{Sipush, "sipush", OperandInt},
		{Ldc, "ldc", OperandConst},
		{Iload, "iload", OperandVar},
		{Lload, "lload", OperandVar},
		{Fload, "fload", OperandVar},
		{Dload, "dload", OperandVar},
		{Aload, "aload", OperandVar},
		{Istore, "istore", OperandVar},
		{Lstore, "lstore", OperandVar},
		{Fstore, "fstore", OperandVar},
		{Dstore, "dstore", OperandVar},
		{Astore, "astore", OperandVar},
		{Pop, "pop", OperandNone},
		{Pop2, "pop2", OperandNone},
		{Dup, "dup", OperandNone},
		{Swap, "swap", OperandNone},
		{Iadd, "iadd", OperandNone},
		{Ladd, "ladd", OperandNone},
		{Isub, "isub", OperandNone},
		{Imul, "imul", OperandNone},
		{Idiv, "idiv", OperandNone},
		{Iinc, "iinc", OperandIinc},
		{Ifeq, "ifeq", OperandJump},
		{Ifne, "ifne", OperandJump},
		{Iflt, "iflt", OperandJump},
		{Ifge, "ifge", OperandJump},
		{Ifgt, "ifgt", OperandJump},
		{Ifle, "ifle", OperandJump},
		{IfIcmpeq, "if_icmpeq", OperandJump},
		{IfIcmpne, "if_icmpne", OperandJump},
		{IfIcmplt, "if_icmplt", OperandJump},
		{IfIcmpge, "if_icmpge", OperandJump},
		{IfIcmpgt, "if_icmpgt", OperandJump},
		{IfIcmple, "if_icmple", OperandJump},
		{IfAcmpeq, "if_acmpeq", OperandJump},
		{IfAcmpne, "if_acmpne", OperandJump},
		{Goto, "goto", OperandJump},
		{Ireturn, "ireturn", OperandNone},
		{Lreturn, "lreturn", OperandNone},
		{Freturn, "freturn", OperandNone},
		{Dreturn, "dreturn", OperandNone},
		{Areturn, "areturn", OperandNone},
		{Return, "return", OperandNone},
		{Getstatic, "getstatic", OperandField},
		{Putstatic, "putstatic", OperandField},
		{Getfield, "getfield", OperandField},
		{Putfield, "putfield", OperandField},
		{Invokevirtual, "invokevirtual", OperandMethod},
		{Invokespecial, "invokespecial", OperandMethod},
		{Invokestatic, "invokestatic", OperandMethod},
		{Invokeinterface, "invokeinterface", OperandMethod},
		{New, "new", OperandType},
		{Athrow, "athrow", OperandNone},
		{Checkcast, "checkcast", OperandType},
		{Instanceof, "instanceof", OperandType},
		{Ifnull, "ifnull", OperandJump},
		{Ifnonnull, "ifnonnull", OperandJump},
	}
	for _, info := range ops {
		infos[info.Op] = info
		byName[info.Name] = info.Op
	}
}

// GetInfo returns the Info for an opcode. Unknown opcodes report an empty name.
func GetInfo(op Opcode) Info {
	return infos[op]
}

// Lookup finds an opcode by its listing name.
func Lookup(name string) (Opcode, bool) {
	op, ok := byName[name]
	return op, ok
}

func (op Opcode) String() string {
	if op == OpLabel {
		return "label"
	}
	if info, ok := infos[op]; ok {
		return info.Name
	}
	return "op(" + strconv.Itoa(int(op)) + ")"
}

// IsLoad reports whether op loads a local slot onto the stack.
func (op Opcode) IsLoad() bool {
	return op >= Iload && op <= Aload
}

// IsStore reports whether op stores the top of the stack into a local slot.
func (op Opcode) IsStore() bool {
	return op >= Istore && op <= Astore
}

// IsJump reports whether op transfers control to a label.
func (op Opcode) IsJump() bool {
	return GetInfo(op).Operand == OperandJump
}

// IsConditionalJump reports whether op is a jump that may fall through.
func (op Opcode) IsConditionalJump() bool {
	return op.IsJump() && op != Goto
}

// IsReturn reports whether op returns from the method.
func (op Opcode) IsReturn() bool {
	return op >= Ireturn && op <= Return
}

// IsThrow reports whether op throws the reference on top of the stack.
func (op Opcode) IsThrow() bool {
	return op == Athrow
}
