package bytecode

import (
	"fmt"
	"strconv"
)

// Label identifies a program point. Labels are allocated by an InsnList.
type Label int

// NoLabel stands for "end of method" wherever a label is optional.
const NoLabel Label = -1

// Insn is one element of an instruction list: either a label pseudo-instruction
// or a real instruction with at most one operand.
type Insn struct {
	Op Opcode

	// Label is set for label pseudo-instructions.
	Label Label

	// Var is the local slot of load/store/iinc instructions.
	Var int

	// Int is the immediate of bipush/sipush and the increment of iinc.
	Int int

	// Target is the destination of jump instructions.
	Target Label

	// Owner, Name and Desc describe method and field references.
	Owner string
	Name  string
	Desc  string

	// Type is the internal class name of new/checkcast/instanceof.
	Type string

	// Const is the constant pushed by ldc: string, int, int64, float32 or float64.
	Const any
}

// LabelInsn creates a label pseudo-instruction.
func LabelInsn(l Label) Insn {
	return Insn{Op: OpLabel, Label: l, Target: NoLabel}
}

// Simple creates an instruction without operands.
func Simple(op Opcode) Insn {
	return Insn{Op: op, Label: NoLabel, Target: NoLabel}
}

// VarInsn creates a load or store of a local slot.
func VarInsn(op Opcode, slot int) Insn {
	return Insn{Op: op, Label: NoLabel, Target: NoLabel, Var: slot}
}

// IntInsn creates bipush/sipush.
func IntInsn(op Opcode, value int) Insn {
	return Insn{Op: op, Label: NoLabel, Target: NoLabel, Int: value}
}

// IincInsn creates an iinc of slot by delta.
func IincInsn(slot, delta int) Insn {
	return Insn{Op: Iinc, Label: NoLabel, Target: NoLabel, Var: slot, Int: delta}
}

// JumpInsn creates a jump to target.
func JumpInsn(op Opcode, target Label) Insn {
	return Insn{Op: op, Label: NoLabel, Target: target}
}

// MethodInsn creates a method invocation.
func MethodInsn(op Opcode, owner, name, desc string) Insn {
	return Insn{Op: op, Label: NoLabel, Target: NoLabel, Owner: owner, Name: name, Desc: desc}
}

// FieldInsn creates a field access.
func FieldInsn(op Opcode, owner, name, desc string) Insn {
	return Insn{Op: op, Label: NoLabel, Target: NoLabel, Owner: owner, Name: name, Desc: desc}
}

// TypeInsn creates new/checkcast/instanceof.
func TypeInsn(op Opcode, typ string) Insn {
	return Insn{Op: op, Label: NoLabel, Target: NoLabel, Type: typ}
}

// LdcInsn creates an ldc of a constant.
func LdcInsn(value any) Insn {
	return Insn{Op: Ldc, Label: NoLabel, Target: NoLabel, Const: value}
}

// IsLabel reports whether the instruction is a label pseudo-instruction.
func (in Insn) IsLabel() bool {
	return in.Op == OpLabel
}

// IsStore reports whether the instruction stores into a local slot.
func (in Insn) IsStore() bool {
	return in.Op.IsStore()
}

// IsLoad reports whether the instruction loads a local slot.
func (in Insn) IsLoad() bool {
	return in.Op.IsLoad()
}

// IsCall reports whether the instruction invokes owner.name with descriptor desc.
func (in Insn) IsCall(op Opcode, owner, name, desc string) bool {
	return in.Op == op && in.Owner == owner && in.Name == name && in.Desc == desc
}

// String renders the instruction in assembler syntax. Labels render as "L<n>:".
func (in Insn) String() string {
	return in.format(func(l Label) string { return "L" + strconv.Itoa(int(l)) })
}

func (in Insn) format(name func(Label) string) string {
	if in.IsLabel() {
		return name(in.Label) + ":"
	}
	info := GetInfo(in.Op)
	switch info.Operand {
	case OperandInt:
		return fmt.Sprintf("%s %d", in.Op, in.Int)
	case OperandVar:
		return fmt.Sprintf("%s %d", in.Op, in.Var)
	case OperandIinc:
		return fmt.Sprintf("%s %d %d", in.Op, in.Var, in.Int)
	case OperandJump:
		return fmt.Sprintf("%s %s", in.Op, name(in.Target))
	case OperandMethod, OperandField:
		return fmt.Sprintf("%s %s.%s %s", in.Op, in.Owner, in.Name, in.Desc)
	case OperandType:
		return fmt.Sprintf("%s %s", in.Op, in.Type)
	case OperandConst:
		return fmt.Sprintf("%s %s", in.Op, formatConst(in.Const))
	default:
		return in.Op.String()
	}
}

func formatConst(v any) string {
	switch c := v.(type) {
	case string:
		return strconv.Quote(c)
	case int64:
		return strconv.FormatInt(c, 10) + "L"
	case float32:
		return strconv.FormatFloat(float64(c), 'g', -1, 32) + "F"
	case float64:
		return strconv.FormatFloat(c, 'g', -1, 64) + "D"
	default:
		return fmt.Sprint(c)
	}
}
