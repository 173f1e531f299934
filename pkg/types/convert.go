package types

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// Number is any runtime representation of a primitive numeric value.
type Number interface {
	constraints.Integer | constraints.Float
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// ToFloat64 widens a primitive value to float64.
func ToFloat64(v any) (float64, error) {
	switch v := v.(type) {
	case bool:
		return float64(b2i(v)), nil
	case int8:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, errors.Errorf("value of type %s is not numeric", TypeOf(v))
	}
}

// convertNumber converts between numeric representations with fixed-width wraparound.
func convertNumber[T Number](v any) (T, error) {
	switch v := v.(type) {
	case bool:
		return T(b2i(v)), nil
	case int8:
		return T(v), nil
	case uint8:
		return T(v), nil
	case int16:
		return T(v), nil
	case uint16:
		return T(v), nil
	case int32:
		return T(v), nil
	case uint32:
		return T(v), nil
	case int64:
		return T(v), nil
	case uint64:
		return T(v), nil
	case float32:
		return fromFloat[T](float64(v)), nil
	case float64:
		return fromFloat[T](v), nil
	default:
		var zero T
		return zero, errors.Errorf("value of type %s is not numeric", TypeOf(v))
	}
}

// fromFloat truncates toward zero; NaN and infinities become the zero value for integer targets.
func fromFloat[T Number](f float64) T {
	var zero T
	switch any(zero).(type) {
	case float32, float64:
		return T(f)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return zero
	}
	return T(int64(math.Trunc(f)))
}

// Convert converts a primitive value to the representation of kind k.
func Convert(v any, k Kind) (any, error) {
	switch k {
	case Bool:
		f, err := ToFloat64(v)
		if err != nil {
			return nil, err
		}
		return f != 0, nil
	case Int8:
		return convertNumber[int8](v)
	case UInt8:
		return convertNumber[uint8](v)
	case Int16:
		return convertNumber[int16](v)
	case UInt16:
		return convertNumber[uint16](v)
	case Int32:
		return convertNumber[int32](v)
	case UInt32:
		return convertNumber[uint32](v)
	case Int64:
		return convertNumber[int64](v)
	case UInt64:
		return convertNumber[uint64](v)
	case Float32:
		return convertNumber[float32](v)
	case Float64:
		return convertNumber[float64](v)
	default:
		return nil, errors.Errorf("cannot convert to %s", k)
	}
}

// Coerce adapts a runtime value to a location of type t: numeric values are converted,
// references are checked for assignability.
func Coerce(v any, t *Type) (any, error) {
	if t.IsValueType() {
		if v == nil {
			return nil, errors.Errorf("null cannot be stored as %s", t)
		}
		if TypeOf(v) == t {
			return v, nil
		}
		return Convert(v, t.kind)
	}
	if v == nil || t.IsAssignableFrom(TypeOf(v)) {
		return v, nil
	}
	return nil, errors.Errorf("value of type %s is not assignable to %s", TypeOf(v), t)
}
