package compiler

import (
	"github.com/pkg/errors"
	"github.com/stoewer/go-strcase"

	"github.com/openvp/affe/pkg/lexer"
	"github.com/openvp/affe/pkg/state"
	"github.com/openvp/affe/pkg/symbols"
	"github.com/openvp/affe/pkg/types"
)

type BindingOption func(*Binding)

// WithNameMapper rewrites every name before it is registered.
func WithNameMapper(mapper func(string) string) BindingOption {
	return func(b *Binding) {
		b.mapper = mapper
	}
}

// WithCamelCaseNames registers snake or kebab case names in camel case: line_width becomes lineWidth, or
// LineWidth when upper is set.
func WithCamelCaseNames(upper bool) BindingOption {
	if upper {
		return WithNameMapper(strcase.UpperCamelCase)
	}
	return WithNameMapper(strcase.LowerCamelCase)
}

// Binding describes what a host exposes to scripts. The host instance itself is supplied when a
// compiled function is invoked; field getters and methods receive it as their first argument.
// A Binding must not be modified while compilations using it are running.
type Binding struct {
	table  *symbols.Table
	mapper func(string) string
	state  *types.Field
}

func NewBinding(opts ...BindingOption) *Binding {
	b := &Binding{table: symbols.NewTable()}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Binding) name(name string) (string, error) {
	if b.mapper != nil {
		name = b.mapper(name)
	}
	if !lexer.IsIdentifier(name) {
		return "", errors.Errorf("invalid binding name '%s'", name)
	}
	return name, nil
}

func (b *Binding) add(name string, mk func(string) symbols.Symbol) error {
	n, err := b.name(name)
	if err != nil {
		return err
	}
	if err := b.table.Add(mk(n)); err != nil {
		return errors.Wrap(err, "failed to bind")
	}
	return nil
}

func (b *Binding) addField(f *types.Field) error {
	return b.add(f.Name, func(n string) symbols.Symbol {
		f.Name = n
		return symbols.NewField(n, f)
	})
}

// Field binds a writable field of the host.
func (b *Binding) Field(name string, t *types.Type, get func(host any) any, set func(host, v any)) error {
	return b.addField(&types.Field{Name: name, Type: t, Get: get, Set: set})
}

// ReadOnlyField binds a field scripts may read but not assign.
func (b *Binding) ReadOnlyField(name string, t *types.Type, get func(host any) any) error {
	return b.addField(&types.Field{Name: name, Type: t, ReadOnly: true, Get: get})
}

// Constant binds a literal whose value is inlined into compiled code.
func (b *Binding) Constant(name string, v any) error {
	t := types.TypeOf(v)
	if t == nil {
		return errors.Errorf("constant '%s' has no type", name)
	}
	return b.addField(&types.Field{Name: name, Type: t, Literal: true, Value: v})
}

// StaticField binds storage that does not belong to the host instance. A nil set makes it read-only.
func (b *Binding) StaticField(name string, t *types.Type, get func() any, set func(v any)) error {
	f := &types.Field{
		Name:     name,
		Type:     t,
		Static:   true,
		ReadOnly: set == nil,
		Get:      func(any) any { return get() },
	}
	if set != nil {
		f.Set = func(_ any, v any) { set(v) }
	}
	return b.addField(f)
}

// Method binds a host method. A nil result declares a method without a value. Calls must match the parameter count; arguments are cast to the parameter types.
func (b *Binding) Method(name string, params []*types.Type, result *types.Type, fn func(host any, args []any) (any, error)) error {
	result = orVoid(result)
	return b.add(name, func(n string) symbols.Symbol {
		return symbols.NewMethod(n, &types.Method{Name: n, Params: params, Result: result, Fn: fn})
	})
}

func (b *Binding) StaticMethod(name string, params []*types.Type, result *types.Type, fn func(args []any) (any, error)) error {
	result = orVoid(result)
	return b.add(name, func(n string) symbols.Symbol {
		m := &types.Method{
			Name:   n,
			Params: params,
			Result: result,
			Static: true,
			Fn:     func(_ any, args []any) (any, error) { return fn(args) },
		}
		return symbols.NewMethod(n, m)
	})
}

// Transform binds a macro expanded by expand whenever a script calls it.
func (b *Binding) Transform(name string, result *types.Type, expand symbols.TransformFunc) error {
	result = orVoid(result)
	return b.add(name, func(n string) symbols.Symbol {
		return symbols.NewTransform(n, result, expand)
	})
}

// TypeName makes t available to declarations, casts and static member access. Binding the void
// type declares the inferencing type name.
func (b *Binding) TypeName(name string, t *types.Type) error {
	return b.add(name, func(n string) symbols.Symbol {
		return symbols.NewTypeName(n, t)
	})
}

// State binds the host's script state. Persistent variables are loaded from it when a compiled function starts
// and written back when it ends. At most one state can be bound.
func (b *Binding) State(name string, get func(host any) *state.ScriptState) error {
	if b.state != nil {
		return errors.Errorf("script state is already bound as '%s'", b.state.Name)
	}
	f := &types.Field{
		Name:     name,
		Type:     state.Type,
		ReadOnly: true,
		Get: func(host any) any {
			if s := get(host); s != nil {
				return s
			}
			return nil
		},
	}
	if err := b.addField(f); err != nil {
		return err
	}
	b.state = f
	return nil
}

func orVoid(t *types.Type) *types.Type {
	if t == nil {
		return types.Typ[types.Void]
	}
	return t
}

// Symbols returns the bound symbols in registration order.
func (b *Binding) Symbols() []symbols.Symbol {
	return b.table.Symbols()
}

// Lookup returns the symbol bound to name.
func (b *Binding) Lookup(name string) (symbols.Symbol, bool) {
	return b.table.Lookup(name)
}

// FieldRef binds a writable field through a pointer to its storage in the host.
// Values assigned by scripts have already been cast to t, whose runtime representation must be T.
// The null reference stores the zero value of T.
func FieldRef[T any](b *Binding, name string, t *types.Type, ref func(host any) *T) error {
	return b.Field(name, t,
		func(host any) any { return *ref(host) },
		func(host, v any) {
			x, _ := v.(T)
			*ref(host) = x
		},
	)
}
