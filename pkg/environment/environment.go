// Package environment installs the standard symbols scripts expect: the primitive type names and the math library.
package environment

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/openvp/affe/pkg/compiler"
	"github.com/openvp/affe/pkg/types"
)

var baseTypes = []struct {
	name string
	kind types.Kind
}{
	{"int8", types.Int8},
	{"uint8", types.UInt8},
	{"int16", types.Int16},
	{"uint16", types.UInt16},
	{"int32", types.Int32},
	{"uint32", types.UInt32},
	{"int64", types.Int64},
	{"uint64", types.UInt64},
	{"float", types.Float32},
	{"double", types.Float64},
	{"string", types.String},
	{"object", types.Object},
	{"var", types.Void},

	{"int", types.Int32},
	{"bool", types.Bool},
}

// InstallBase binds the primitive type names, including the inferencing type var.
func InstallBase(b *compiler.Binding) error {
	for _, bt := range baseTypes {
		if err := b.TypeName(bt.name, types.Typ[bt.kind]); err != nil {
			return errors.Wrap(err, "failed to install base types")
		}
	}
	return nil
}

type mathConfig struct {
	rand func() float64
}

type MathOption func(*mathConfig)

// WithRand replaces the source of rand(), which must return values in [0, 1).
func WithRand(f func() float64) MathOption {
	return func(c *mathConfig) {
		c.rand = f
	}
}

var (
	float32T = types.Typ[types.Float32]
	float64T = types.Typ[types.Float64]
)

func unary64(f func(float64) float64) func([]any) (any, error) {
	return func(args []any) (any, error) {
		return f(args[0].(float64)), nil
	}
}

func binary64(f func(float64, float64) float64) func([]any) (any, error) {
	return func(args []any) (any, error) {
		return f(args[0].(float64), args[1].(float64)), nil
	}
}

func binary32(f func(float32, float32) float32) func([]any) (any, error) {
	return func(args []any) (any, error) {
		return f(args[0].(float32), args[1].(float32)), nil
	}
}

// Sigmoid is the logistic function of x with steepness c.
func Sigmoid(x, c float64) float64 {
	d := 1 + math.Exp(-x*c)
	if d == 0 {
		return 0
	}
	return 1 / d
}

// Sign returns -1, 0 or 1. NaN has no sign and is reported as an error.
func Sign(f float32) (int32, error) {
	switch {
	case f > 0:
		return 1, nil
	case f < 0:
		return -1, nil
	case f == 0:
		return 0, nil
	default:
		return 0, errors.New("sign of NaN")
	}
}

type staticMethod struct {
	name   string
	params []*types.Type
	result *types.Type
	fn     func([]any) (any, error)
}

// InstallMath binds the math functions and the constant pi.
func InstallMath(b *compiler.Binding, opts ...MathOption) error {
	cfg := &mathConfig{rand: rand.Float64}
	for _, o := range opts {
		o(cfg)
	}
	one32 := []*types.Type{float32T}
	one64 := []*types.Type{float64T}
	two32 := []*types.Type{float32T, float32T}
	two64 := []*types.Type{float64T, float64T}

	methods := []staticMethod{
		{"abs", one32, float32T, func(args []any) (any, error) {
			return float32(math.Abs(float64(args[0].(float32)))), nil
		}},
		{"sin", one64, float64T, unary64(math.Sin)},
		{"cos", one64, float64T, unary64(math.Cos)},
		{"tan", one64, float64T, unary64(math.Tan)},
		{"asin", one64, float64T, unary64(math.Asin)},
		{"acos", one64, float64T, unary64(math.Acos)},
		{"atan", one64, float64T, unary64(math.Atan)},
		{"sqrt", one64, float64T, unary64(math.Sqrt)},
		{"pow", two64, float64T, binary64(math.Pow)},
		{"log", two64, float64T, binary64(func(x, base float64) float64 {
			return math.Log(x) / math.Log(base)
		})},
		{"log10", one64, float64T, unary64(math.Log10)},
		{"sign", one32, types.Typ[types.Int32], func(args []any) (any, error) {
			return Sign(args[0].(float32))
		}},
		{"min", two32, float32T, binary32(func(a, b float32) float32 { return min(a, b) })},
		{"max", two32, float32T, binary32(func(a, b float32) float32 { return max(a, b) })},
		{"rand", one64, float64T, unary64(func(ceil float64) float64 {
			return cfg.rand() * ceil
		})},
		{"sigmoid", two64, float64T, binary64(Sigmoid)},
		{"sqr", one32, float32T, func(args []any) (any, error) {
			f := args[0].(float32)
			return f * f, nil
		}},
	}
	for _, m := range methods {
		if err := b.StaticMethod(m.name, m.params, m.result, m.fn); err != nil {
			return errors.Wrap(err, "failed to install math library")
		}
	}
	return errors.Wrap(b.Constant("pi", math.Pi), "failed to install math library")
}
