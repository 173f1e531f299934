package types

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/pkg/errors"
)

var (
	// Typ holds the predeclared types indexed by kind. Class, Interface and Array entries are nil.
	Typ [ArrayKind + 1]*Type

	// Comparable is the interface implemented by ordered primitives.
	Comparable *Type

	// TypeType is the type of values returned by GetType().
	TypeType *Type
)

type arrayKey struct {
	elem *Type
	rank int
}

var (
	arraysMu sync.Mutex
	arrays   = make(map[arrayKey]*Type)
)

func init() {
	Typ[Object] = &Type{name: "object", kind: Object}
	Typ[Void] = &Type{name: "void", kind: Void}
	for k := Bool; k <= Float64; k++ {
		Typ[k] = &Type{name: k.String(), kind: k, base: Typ[Object]}
	}
	Typ[String] = &Type{name: "string", kind: String, base: Typ[Object]}

	TypeType = NewClass("Type", nil).
		AddProperty(&Property{
			Name: "Name",
			Type: Typ[String],
			Get: func(recv any, _ []any) (any, error) {
				return recv.(*Type).name, nil
			},
		}).
		AddProperty(&Property{
			Name: "Kind",
			Type: Typ[String],
			Get: func(recv any, _ []any) (any, error) {
				return recv.(*Type).kind.String(), nil
			},
		})

	Typ[Object].
		AddMethod(&Method{
			Name:   "ToString",
			Result: Typ[String],
			Fn: func(recv any, _ []any) (any, error) {
				return Format(recv), nil
			},
		}).
		AddMethod(&Method{
			Name:   "GetType",
			Result: TypeType,
			Fn: func(recv any, _ []any) (any, error) {
				return TypeOf(recv), nil
			},
		})

	Comparable = NewInterface("IComparable").AddMethod(&Method{
		Name:   "CompareTo",
		Params: []*Type{Typ[Object]},
		Result: Typ[Int32],
		Fn:     compareTo,
	})
	for k := Int8; k <= Float64; k++ {
		Typ[k].Implement(Comparable)
	}
	Typ[String].Implement(Comparable)
	Typ[String].
		AddProperty(&Property{
			Name: "Length",
			Type: Typ[Int32],
			Get: func(recv any, _ []any) (any, error) {
				return int32(len([]rune(recv.(string)))), nil
			},
		}).
		AddMethod(stringEquality("op_Equality", true)).
		AddMethod(stringEquality("op_Inequality", false))
}

func stringEquality(name string, equal bool) *Method {
	return &Method{
		Name:   name,
		Params: []*Type{Typ[String], Typ[String]},
		Result: Typ[Bool],
		Static: true,
		Fn: func(_ any, args []any) (any, error) {
			a, _ := args[0].(string)
			b, _ := args[1].(string)
			same := a == b && (args[0] == nil) == (args[1] == nil)
			return same == equal, nil
		},
	}
}

// ArrayOf returns the canonical array type with the given element type and rank.
func ArrayOf(elem *Type, rank int) *Type {
	arraysMu.Lock()
	defer arraysMu.Unlock()
	k := arrayKey{elem: elem, rank: rank}
	if t, ok := arrays[k]; ok {
		return t
	}
	t := &Type{name: arrayName(elem, rank), kind: ArrayKind, base: Typ[Object], elem: elem, rank: rank}
	arrays[k] = t
	return t
}

// TypeOf returns the script type of a runtime value, nil for the null reference.
func TypeOf(v any) *Type {
	switch v := v.(type) {
	case nil:
		return nil
	case bool:
		return Typ[Bool]
	case int8:
		return Typ[Int8]
	case uint8:
		return Typ[UInt8]
	case int16:
		return Typ[Int16]
	case uint16:
		return Typ[UInt16]
	case int32:
		return Typ[Int32]
	case uint32:
		return Typ[UInt32]
	case int64:
		return Typ[Int64]
	case uint64:
		return Typ[UInt64]
	case float32:
		return Typ[Float32]
	case float64:
		return Typ[Float64]
	case string:
		return Typ[String]
	case Typed:
		return v.AffeType()
	default:
		return Typ[Object]
	}
}

// Default returns the zero value stored in a fresh location of type t.
func Default(t *Type) any {
	if t == nil {
		return nil
	}
	switch t.kind {
	case Bool:
		return false
	case Int8:
		return int8(0)
	case UInt8:
		return uint8(0)
	case Int16:
		return int16(0)
	case UInt16:
		return uint16(0)
	case Int32:
		return int32(0)
	case UInt32:
		return uint32(0)
	case Int64:
		return int64(0)
	case UInt64:
		return uint64(0)
	case Float32:
		return float32(0)
	case Float64:
		return float64(0)
	default:
		return nil
	}
}

// Format renders a runtime value the way ToString does.
func Format(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case *Type:
		return v.name
	case fmt.Stringer:
		return v.String()
	case Typed:
		return v.AffeType().name
	default:
		return fmt.Sprint(v)
	}
}

func compareTo(recv any, args []any) (any, error) {
	if s, ok := recv.(string); ok {
		o, ok := args[0].(string)
		if !ok {
			if args[0] == nil {
				return int32(1), nil
			}
			return nil, errors.Errorf("cannot compare string with %s", TypeOf(args[0]))
		}
		switch {
		case s < o:
			return int32(-1), nil
		case s > o:
			return int32(1), nil
		default:
			return int32(0), nil
		}
	}
	if args[0] == nil {
		return int32(1), nil
	}
	a, err := ToFloat64(recv)
	if err != nil {
		return nil, err
	}
	b, err := ToFloat64(args[0])
	if err != nil {
		return nil, errors.Wrap(err, "CompareTo")
	}
	switch {
	case a < b:
		return int32(-1), nil
	case a > b:
		return int32(1), nil
	default:
		return int32(0), nil
	}
}
