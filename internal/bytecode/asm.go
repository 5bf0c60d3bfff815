package bytecode

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// AsmError reports a problem in assembler text.
type AsmError struct {
	Line int
	Msg  string
}

func (e *AsmError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

// Assemble parses assembler text into an instruction list.
//
// One instruction per line. A line of the form "name:" places a label;
// labels may be referenced before they are placed. Lines starting with '#'
// are comments.
//
//	start:
//	  iconst_1
//	  istore 1
//	  ifeq done
//	  invokestatic com/example/Finally.hasReturnedValue ()Z
//	  ldc "text"
//	done:
//	  return
func Assemble(src string) (*InsnList, error) {
	a := &assembler{
		list:   NewInsnList(),
		labels: make(map[string]Label),
		placed: make(map[string]bool),
		refs:   make(map[string]int),
	}
	scanner := bufio.NewScanner(strings.NewReader(src))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		a.lineNo = lineNo
		if err := a.line(line); err != nil {
			return nil, &AsmError{Line: lineNo, Msg: err.Error()}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	for name, line := range a.refs {
		if !a.placed[name] {
			return nil, &AsmError{Line: line, Msg: fmt.Sprintf("label %q is never placed", name)}
		}
	}
	return a.list, nil
}

// MustAssemble is like Assemble but panics on error. Intended for fixtures.
func MustAssemble(src string) *InsnList {
	list, err := Assemble(src)
	if err != nil {
		panic(err)
	}
	return list
}

type assembler struct {
	list   *InsnList
	labels map[string]Label
	placed map[string]bool
	refs   map[string]int
	lineNo int
}

func (a *assembler) label(name string) Label {
	if lb, ok := a.labels[name]; ok {
		return lb
	}
	lb := a.list.NamedLabel(name)
	a.labels[name] = lb
	return lb
}

func (a *assembler) line(line string) error {
	if strings.HasSuffix(line, ":") && !strings.ContainsAny(line, " \t") {
		name := strings.TrimSuffix(line, ":")
		if !validLabelName(name) {
			return fmt.Errorf("invalid label name %q", name)
		}
		if a.placed[name] {
			return fmt.Errorf("label %q placed twice", name)
		}
		a.placed[name] = true
		a.list.Append(LabelInsn(a.label(name)))
		return nil
	}

	mnemonic, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	op, ok := Lookup(strings.ToLower(mnemonic))
	if !ok {
		return fmt.Errorf("unknown instruction %q", mnemonic)
	}
	fields := strings.Fields(rest)

	switch GetInfo(op).Operand {
	case OperandNone:
		if len(fields) != 0 {
			return fmt.Errorf("%s takes no operand", op)
		}
		a.list.Append(Simple(op))
	case OperandInt, OperandVar:
		if len(fields) != 1 {
			return fmt.Errorf("%s takes one integer operand", op)
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			return fmt.Errorf("%s: invalid operand %q", op, fields[0])
		}
		if GetInfo(op).Operand == OperandVar {
			a.list.Append(VarInsn(op, n))
		} else {
			a.list.Append(IntInsn(op, n))
		}
	case OperandIinc:
		if len(fields) != 2 {
			return fmt.Errorf("iinc takes a slot and an increment")
		}
		slot, err1 := strconv.Atoi(fields[0])
		delta, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			return fmt.Errorf("iinc: invalid operands %q", rest)
		}
		a.list.Append(IincInsn(slot, delta))
	case OperandJump:
		if len(fields) != 1 || !validLabelName(fields[0]) {
			return fmt.Errorf("%s takes one label operand", op)
		}
		if _, seen := a.refs[fields[0]]; !seen {
			a.refs[fields[0]] = a.lineNo
		}
		a.list.Append(JumpInsn(op, a.label(fields[0])))
	case OperandMethod, OperandField:
		if len(fields) != 2 {
			return fmt.Errorf("%s takes owner.name and a descriptor", op)
		}
		dot := strings.LastIndexByte(fields[0], '.')
		if dot <= 0 || dot == len(fields[0])-1 {
			return fmt.Errorf("%s: invalid member reference %q", op, fields[0])
		}
		owner, name := fields[0][:dot], fields[0][dot+1:]
		if GetInfo(op).Operand == OperandMethod {
			a.list.Append(MethodInsn(op, owner, name, fields[1]))
		} else {
			a.list.Append(FieldInsn(op, owner, name, fields[1]))
		}
	case OperandType:
		if len(fields) != 1 {
			return fmt.Errorf("%s takes one type operand", op)
		}
		a.list.Append(TypeInsn(op, fields[0]))
	case OperandConst:
		v, err := parseConst(rest)
		if err != nil {
			return fmt.Errorf("ldc: %w", err)
		}
		a.list.Append(LdcInsn(v))
	}
	return nil
}

func parseConst(s string) (any, error) {
	if s == "" {
		return nil, fmt.Errorf("missing constant")
	}
	if strings.HasPrefix(s, `"`) {
		return strconv.Unquote(s)
	}
	switch last := s[len(s)-1]; last {
	case 'L':
		return strconv.ParseInt(s[:len(s)-1], 10, 64)
	case 'F':
		f, err := strconv.ParseFloat(s[:len(s)-1], 32)
		return float32(f), err
	case 'D':
		return strconv.ParseFloat(s[:len(s)-1], 64)
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	return strconv.ParseFloat(s, 64)
}

func validLabelName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Format renders an instruction list as assembler text that Assemble accepts.
func Format(list *InsnList) string {
	var b strings.Builder
	for h := list.First(); h != NoHandle; h = list.Next(h) {
		in := list.At(h)
		if !in.IsLabel() {
			b.WriteString("  ")
		}
		b.WriteString(in.format(list.LabelName))
		b.WriteByte('\n')
	}
	return b.String()
}
