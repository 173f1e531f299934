package symbols

import (
	"github.com/openvp/affe/pkg/ast"
	"github.com/openvp/affe/pkg/codegen"
	"github.com/openvp/affe/pkg/types"
)

// Symbol is a named entity visible to scripts.
type Symbol interface {
	Name() string
	symbol()
}

type named struct {
	name string
}

func (n named) Name() string { return n.name }
func (named) symbol()        {}

// Variable is a script local.
type Variable struct {
	named
	Type       *types.Type
	Local      codegen.Local
	Persistent bool
}

func NewVariable(name string, t *types.Type, local codegen.Local) *Variable {
	return &Variable{named: named{name}, Type: t, Local: local}
}

// Field is a host field or constant exposed by name.
type Field struct {
	named
	Field *types.Field
}

func NewField(name string, f *types.Field) *Field {
	return &Field{named: named{name}, Field: f}
}

// Method is a host method exposed by name. Calls must match its parameters exactly after casting.
type Method struct {
	named
	Method *types.Method
}

func NewMethod(name string, m *types.Method) *Method {
	return &Method{named: named{name}, Method: m}
}

// TransformContext is available to transforms while they generate code for a call.
type TransformContext interface {
	// Sink is the instruction stream of the function being compiled.
	Sink() codegen.Sink
	// CastTo converts an analyzed expression to t.
	CastTo(e ast.Expression, t *types.Type) (ast.Expression, error)
	// Emit generates code leaving the value of an analyzed expression on the stack.
	Emit(e ast.Expression) error
	// CheckOutLocal returns a scratch local of type t that stays reserved until CheckInLocal.
	CheckOutLocal(t *types.Type) codegen.Local
	CheckInLocal(l codegen.Local)
}

// TransformFunc generates the code of a transform call. Arguments are analyzed but not cast.
// The generated code must leave exactly one value of the transform result type on the stack,
// or nothing when the result type is void.
type TransformFunc func(ctx TransformContext, args []ast.Expression) error

// Transform is a compile-time macro invoked with call syntax.
type Transform struct {
	named
	Result *types.Type
	Expand TransformFunc
}

func NewTransform(name string, result *types.Type, expand TransformFunc) *Transform {
	return &Transform{named: named{name}, Result: result, Expand: expand}
}

// TypeName binds a name to a type. The void type stands for the inferencing type.
type TypeName struct {
	named
	Type *types.Type
}

func NewTypeName(name string, t *types.Type) *TypeName {
	return &TypeName{named: named{name}, Type: t}
}

// Inferred reports whether declarations of this type take the type of their initial value.
func (t *TypeName) Inferred() bool {
	return t.Type.Kind() == types.Void
}
