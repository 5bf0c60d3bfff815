package bytecode

// TryCatchBlock is one exception table entry. An empty Type marks a default
// handler, the catch-all that compilers emit for finally bodies.
type TryCatchBlock struct {
	Start   Label
	End     Label
	Handler Label
	Type    string
}

// IsDefault reports whether the entry catches everything.
func (b TryCatchBlock) IsDefault() bool {
	return b.Type == ""
}

// Method is a method body together with its exception table.
type Method struct {
	Owner    string
	Name     string
	Desc     string
	Code     *InsnList
	TryCatch []TryCatchBlock
}

// ReturnTag returns the kind of the method's declared return type.
func (m *Method) ReturnTag() (TypeTag, error) {
	return ReturnTag(m.Desc)
}

// Signature renders owner.name plus descriptor.
func (m *Method) Signature() string {
	return m.Owner + "." + m.Name + m.Desc
}

// Clone copies the method including its instruction list.
func (m *Method) Clone() *Method {
	c := *m
	if m.Code != nil {
		c.Code = m.Code.Clone()
	}
	c.TryCatch = append([]TryCatchBlock(nil), m.TryCatch...)
	return &c
}
