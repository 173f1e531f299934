package vm

import (
	"cmp"
	"math"
	"reflect"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"github.com/openvp/affe/pkg/codegen"
	"github.com/openvp/affe/pkg/types"
)

var errDivideByZero = errors.New("attempted to divide by zero")

func integerOp[T constraints.Integer](op byte, a, b T) (T, error) {
	switch op {
	case codegen.OpAdd:
		return a + b, nil
	case codegen.OpSub:
		return a - b, nil
	case codegen.OpMul:
		return a * b, nil
	case codegen.OpDiv:
		if b == 0 {
			return 0, errDivideByZero
		}
		return a / b, nil
	case codegen.OpRem:
		if b == 0 {
			return 0, errDivideByZero
		}
		return a % b, nil
	case codegen.OpAnd:
		return a & b, nil
	case codegen.OpOr:
		return a | b, nil
	}
	return 0, errors.Errorf("invalid integer operation %s", codegen.OpName(op))
}

func floatOp[T constraints.Float](op byte, a, b T) (T, error) {
	switch op {
	case codegen.OpAdd:
		return a + b, nil
	case codegen.OpSub:
		return a - b, nil
	case codegen.OpMul:
		return a * b, nil
	case codegen.OpDiv:
		return a / b, nil
	case codegen.OpRem:
		return T(math.Mod(float64(a), float64(b))), nil
	}
	return 0, errors.Errorf("operation %s is not defined on floating point values", codegen.OpName(op))
}

func integer[T constraints.Integer](op byte, a T, b any) (any, error) {
	y, ok := b.(T)
	if !ok {
		return nil, mismatch(op, a, b)
	}
	return integerOp(op, a, y)
}

func float[T constraints.Float](op byte, a T, b any) (any, error) {
	y, ok := b.(T)
	if !ok {
		return nil, mismatch(op, a, b)
	}
	return floatOp(op, a, y)
}

func mismatch(op byte, a, b any) error {
	return errors.Errorf("operation %s on mismatched operands %s and %s", codegen.OpName(op), types.TypeOf(a), types.TypeOf(b))
}

// arithmetic applies a binary operator to two operands of the same primitive type.
// Booleans take part as 0 and 1 and the result is normalized back to a boolean.
func arithmetic(op byte, a, b any) (any, error) {
	switch x := a.(type) {
	case bool:
		y, ok := b.(bool)
		if !ok {
			return nil, mismatch(op, a, b)
		}
		r, err := integerOp(op, b2i(x), b2i(y))
		if err != nil {
			return nil, err
		}
		return r != 0, nil
	case int8:
		return integer(op, x, b)
	case uint8:
		return integer(op, x, b)
	case int16:
		return integer(op, x, b)
	case uint16:
		return integer(op, x, b)
	case int32:
		return integer(op, x, b)
	case uint32:
		return integer(op, x, b)
	case int64:
		return integer(op, x, b)
	case uint64:
		return integer(op, x, b)
	case float32:
		return float(op, x, b)
	case float64:
		return float(op, x, b)
	default:
		return nil, errors.Errorf("operation %s is not defined on %s", codegen.OpName(op), types.TypeOf(a))
	}
}

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func ordered[T cmp.Ordered](a T, b any) (int, error) {
	y, ok := b.(T)
	if !ok {
		return 0, errors.Errorf("cannot compare %s with %s", types.TypeOf(a), types.TypeOf(b))
	}
	return cmp.Compare(a, y), nil
}

// compare orders two primitive operands of the same type.
func compare(a, b any) (int, error) {
	switch x := a.(type) {
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, errors.Errorf("cannot compare bool with %s", types.TypeOf(b))
		}
		return cmp.Compare(b2i(x), b2i(y)), nil
	case int8:
		return ordered(x, b)
	case uint8:
		return ordered(x, b)
	case int16:
		return ordered(x, b)
	case uint16:
		return ordered(x, b)
	case int32:
		return ordered(x, b)
	case uint32:
		return ordered(x, b)
	case int64:
		return ordered(x, b)
	case uint64:
		return ordered(x, b)
	case float32:
		return ordered(x, b)
	case float64:
		return ordered(x, b)
	default:
		return 0, errors.Errorf("values of type %s are not ordered", types.TypeOf(a))
	}
}

// equal compares primitives by value and references by identity.
func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

func negate(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int8:
		return -x, nil
	case uint8:
		return -x, nil
	case int16:
		return -x, nil
	case uint16:
		return -x, nil
	case int32:
		return -x, nil
	case uint32:
		return -x, nil
	case int64:
		return -x, nil
	case uint64:
		return -x, nil
	case float32:
		return -x, nil
	case float64:
		return -x, nil
	default:
		return nil, errors.Errorf("value of type %s cannot be negated", types.TypeOf(v))
	}
}
