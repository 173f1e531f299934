package types

import (
	"strings"
)

// Type describes a script-visible type. Types are compared by identity.
type Type struct {
	name    string
	kind    Kind
	base    *Type
	ifaces  []*Type
	elem    *Type
	rank    int
	fields  []*Field
	props   []*Property
	methods []*Method
	indexer *Property
}

// Typed is implemented by host values that expose a script type.
type Typed interface {
	AffeType() *Type
}

// NewClass creates a reference type deriving from base, or from object when base is nil.
func NewClass(name string, base *Type) *Type {
	if base == nil {
		base = Typ[Object]
	}
	return &Type{name: name, kind: Class, base: base}
}

// NewInterface creates an interface type extending the given interfaces.
func NewInterface(name string, extends ...*Type) *Type {
	return &Type{name: name, kind: Interface, ifaces: extends}
}

func (t *Type) Name() string {
	return t.name
}

func (t *Type) String() string {
	return t.name
}

func (t *Type) Kind() Kind {
	return t.kind
}

func (t *Type) Base() *Type {
	return t.base
}

// Elem returns the element type of an array type.
func (t *Type) Elem() *Type {
	return t.elem
}

// Rank returns the number of dimensions of an array type.
func (t *Type) Rank() int {
	return t.rank
}

func (t *Type) AffeType() *Type {
	return TypeType
}

func (t *Type) IsValueType() bool {
	return t.kind.IsPrimitive()
}

func (t *Type) IsReference() bool {
	return t.kind != Void && !t.kind.IsPrimitive()
}

func (t *Type) IsArray() bool {
	return t.kind == ArrayKind
}

// Implement declares that t implements the given interfaces.
func (t *Type) Implement(ifaces ...*Type) *Type {
	t.ifaces = append(t.ifaces, ifaces...)
	return t
}

func (t *Type) AddField(f *Field) *Type {
	t.fields = append(t.fields, f)
	return t
}

func (t *Type) AddProperty(p *Property) *Type {
	t.props = append(t.props, p)
	return t
}

func (t *Type) AddMethod(m *Method) *Type {
	t.methods = append(t.methods, m)
	return t
}

// SetIndexer sets the default member used when values of t are indexed.
func (t *Type) SetIndexer(p *Property) *Type {
	t.indexer = p
	return t
}

// Indexer returns the nearest default indexer in the hierarchy.
func (t *Type) Indexer() *Property {
	for c := t; c != nil; c = c.base {
		if c.indexer != nil {
			return c.indexer
		}
	}
	return nil
}

// Implements reports whether t or one of its bases implements iface.
func (t *Type) Implements(iface *Type) bool {
	for c := t; c != nil; c = c.base {
		if c == iface {
			return true
		}
		for _, i := range c.ifaces {
			if i.Implements(iface) {
				return true
			}
		}
	}
	return false
}

// IsAssignableFrom reports whether a value of type u can be stored in a location of type t.
func (t *Type) IsAssignableFrom(u *Type) bool {
	if t == u {
		return true
	}
	if t == nil || u == nil || u.kind == Void {
		return false
	}
	switch t.kind {
	case Object:
		return true
	case Interface:
		return u.Implements(t)
	case ArrayKind:
		if u.kind != ArrayKind || u.rank != t.rank {
			return false
		}
		if t.elem.IsValueType() || u.elem.IsValueType() {
			return false
		}
		return t.elem.IsAssignableFrom(u.elem)
	}
	for b := u.base; b != nil; b = b.base {
		if b == t {
			return true
		}
	}
	return false
}

// hierarchy lists t and its bases, then the implemented interfaces. Interfaces end with object.
func (t *Type) hierarchy() []*Type {
	var out []*Type
	seen := make(map[*Type]bool)
	var walk func(*Type)
	walk = func(i *Type) {
		if seen[i] {
			return
		}
		seen[i] = true
		out = append(out, i)
		for _, e := range i.ifaces {
			walk(e)
		}
	}
	if t.kind == Interface {
		walk(t)
		return append(out, Typ[Object])
	}
	for c := t; c != nil; c = c.base {
		out = append(out, c)
		seen[c] = true
	}
	for c := t; c != nil; c = c.base {
		for _, i := range c.ifaces {
			walk(i)
		}
	}
	return out
}

// DataMembers returns the fields and properties named name from the nearest level of the hierarchy declaring any.
func (t *Type) DataMembers(name string, static bool) []Member {
	for _, c := range t.hierarchy() {
		var found []Member
		for _, f := range c.fields {
			if f.Name == name && f.IsStatic() == static {
				found = append(found, f)
			}
		}
		for _, p := range c.props {
			if p.Name == name && p.Static == static && len(p.Params) == 0 {
				found = append(found, p)
			}
		}
		if len(found) > 0 {
			return found
		}
	}
	return nil
}

// Methods returns the methods named name; derived declarations hide base methods with the same parameters.
func (t *Type) Methods(name string, static bool) []*Method {
	var out []*Method
	for _, c := range t.hierarchy() {
	next:
		for _, m := range c.methods {
			if m.Name != name || m.Static != static {
				continue
			}
			for _, o := range out {
				if sameParams(o.Params, m.Params) {
					continue next
				}
			}
			out = append(out, m)
		}
	}
	return out
}

func sameParams(a, b []*Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// arrayName renders an array type name such as float[,].
func arrayName(elem *Type, rank int) string {
	var sb strings.Builder
	sb.WriteString(elem.name)
	sb.WriteByte('[')
	for i := 1; i < rank; i++ {
		sb.WriteByte(',')
	}
	sb.WriteByte(']')
	return sb.String()
}
