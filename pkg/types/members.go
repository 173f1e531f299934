package types

// Member is a named field, property or method of a type.
type Member interface {
	MemberName() string
	MemberType() *Type
	IsStatic() bool
}

// Field is a storage location. Literal fields are compile-time constants held in Value.
type Field struct {
	Name     string
	Type     *Type
	Static   bool
	ReadOnly bool
	Literal  bool
	Value    any
	Get      func(recv any) any
	Set      func(recv any, v any)
}

func (f *Field) MemberName() string { return f.Name }
func (f *Field) MemberType() *Type  { return f.Type }
func (f *Field) IsStatic() bool     { return f.Static || f.Literal }

func (f *Field) CanRead() bool {
	return f.Literal || f.Get != nil
}

func (f *Field) CanWrite() bool {
	return !f.ReadOnly && !f.Literal && f.Set != nil
}

// Property is an accessor pair. Properties with parameters are indexers.
type Property struct {
	Name   string
	Type   *Type
	Static bool
	Params []*Type
	Get    func(recv any, index []any) (any, error)
	Set    func(recv any, index []any, v any) error
}

func (p *Property) MemberName() string { return p.Name }
func (p *Property) MemberType() *Type  { return p.Type }
func (p *Property) IsStatic() bool     { return p.Static }

func (p *Property) CanRead() bool {
	return p.Get != nil
}

func (p *Property) CanWrite() bool {
	return p.Set != nil
}

// Method is an invocable member. A Void result means the method pushes nothing.
type Method struct {
	Name   string
	Params []*Type
	Result *Type
	Static bool
	Fn     func(recv any, args []any) (any, error)
}

func (m *Method) MemberName() string { return m.Name }
func (m *Method) MemberType() *Type  { return m.Result }
func (m *Method) IsStatic() bool     { return m.Static }

func (m *Method) ReturnsValue() bool {
	return m.Result != nil && m.Result.kind != Void
}

func (m *Method) String() string {
	s := m.Name + "("
	for i, p := range m.Params {
		if i > 0 {
			s += ", "
		}
		s += p.name
	}
	return s + ")"
}
