package types

import (
	"github.com/pkg/errors"
)

var (
	ErrAmbiguous = errors.New("ambiguous match")
	ErrNotFound  = errors.New("no matching member")
)

// Accepts reports whether an argument of type arg may be passed for a parameter of type param.
// A nil arg stands for the null reference.
func Accepts(param, arg *Type) bool {
	if arg == nil {
		return param.IsReference()
	}
	if param.IsAssignableFrom(arg) {
		return true
	}
	return param.IsValueType() && arg.IsValueType()
}

// SelectMethod picks the overload matching the argument types: an exact match wins,
// otherwise exactly one candidate must accept every argument.
func SelectMethod(candidates []*Method, args []*Type) (*Method, error) {
	var compatible []*Method
	for _, m := range candidates {
		if len(m.Params) != len(args) {
			continue
		}
		exact, ok := true, true
		for i, p := range m.Params {
			if p != args[i] {
				exact = false
			}
			if !Accepts(p, args[i]) {
				ok = false
				break
			}
		}
		if exact {
			return m, nil
		}
		if ok {
			compatible = append(compatible, m)
		}
	}
	switch len(compatible) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return compatible[0], nil
	default:
		return nil, ErrAmbiguous
	}
}

// ArgTypes returns the runtime types of the arguments.
func ArgTypes(args []any) []*Type {
	out := make([]*Type, len(args))
	for i, a := range args {
		out[i] = TypeOf(a)
	}
	return out
}

// FindCompatibleType returns the most general type of two operand types.
func FindCompatibleType(left, right *Type) *Type {
	if left == right {
		return left
	}
	if !left.IsValueType() || !right.IsValueType() {
		if left.IsAssignableFrom(right) {
			return left
		}
		if right.IsAssignableFrom(left) {
			return right
		}
		return Typ[Object]
	}
	if IsI4(left) && IsI4(right) {
		return Typ[Int32]
	}
	if left.kind == Float64 || right.kind == Float64 {
		return Typ[Float64]
	}
	return Typ[Float32]
}

// IsNumeric reports whether t is a primitive type usable with arithmetic operators.
func IsNumeric(t *Type) bool {
	return t.kind.IsPrimitive()
}

// IsI4 reports whether t is represented as a 32-bit integer on the evaluation stack.
func IsI4(t *Type) bool {
	switch t.kind {
	case Bool, Int8, UInt8, Int16, UInt16, Int32, UInt32:
		return true
	default:
		return false
	}
}
