package vm

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/openvp/affe/pkg/codegen"
	"github.com/openvp/affe/pkg/errs"
	"github.com/openvp/affe/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type counter struct {
	value float32
	calls int
}

var (
	counterType  = types.NewClass("Counter", nil)
	counterValue = &types.Field{
		Name: "value",
		Type: types.Typ[types.Float32],
		Get:  func(recv any) any { return recv.(*counter).value },
		Set:  func(recv any, v any) { recv.(*counter).value = v.(float32) },
	}
	counterAdd = &types.Method{
		Name:   "Add",
		Params: []*types.Type{types.Typ[types.Float32]},
		Result: types.Typ[types.Float32],
		Fn: func(recv any, args []any) (any, error) {
			c := recv.(*counter)
			c.calls++
			c.value += args[0].(float32)
			return c.value, nil
		},
	}
	counterBoom = &types.Method{
		Name:   "Boom",
		Result: types.Typ[types.Void],
		Fn: func(recv any, args []any) (any, error) {
			panic("boom")
		},
	}
)

func init() {
	counterType.AddField(counterValue).AddMethod(counterAdd).AddMethod(counterBoom)
}

func (c *counter) AffeType() *types.Type {
	return counterType
}

// memState is a State keeping values in memory.
type memState struct {
	values map[string]any
}

func (s *memState) Value(name string, t *types.Type) (any, error) {
	v, ok := s.values[name]
	if !ok {
		return types.Default(t), nil
	}
	return types.Coerce(v, t)
}

func (s *memState) SetValue(name string, v any) error {
	s.values[name] = v
	return nil
}

func build(t *testing.T, emit func(b *codegen.Builder)) *codegen.Program {
	b := codegen.NewBuilder()
	emit(b)
	b.Emit(codegen.OpReturn)
	p, err := b.Build()
	require.NoError(t, err)
	return p
}

// storeValue emits host.value = <value left on stack by emit>.
func storeValue(b *codegen.Builder, emit func()) {
	b.Emit(codegen.OpLoadHost)
	emit()
	b.EmitField(codegen.OpStoreField, counterValue)
}

func TestArithmetic(t *testing.T) {
	for _, test := range []struct {
		op       byte
		a, b     any
		expected any
	}{
		{codegen.OpAdd, int32(2), int32(3), int32(5)},
		{codegen.OpSub, int32(2), int32(3), int32(-1)},
		{codegen.OpMul, float32(1.5), float32(2), float32(3)},
		{codegen.OpDiv, int32(7), int32(2), int32(3)},
		{codegen.OpDiv, float32(7), float32(2), float32(3.5)},
		{codegen.OpRem, int32(7), int32(3), int32(1)},
		{codegen.OpRem, float64(7.5), float64(2), float64(1.5)},
		{codegen.OpAnd, int32(6), int32(3), int32(2)},
		{codegen.OpOr, int32(6), int32(3), int32(7)},
		{codegen.OpAdd, uint8(255), uint8(1), uint8(0)},
		{codegen.OpAdd, true, false, true},
		{codegen.OpMul, true, false, false},
	} {
		v, err := arithmetic(test.op, test.a, test.b)
		require.NoError(t, err, codegen.OpName(test.op))
		assert.Equal(t, test.expected, v, codegen.OpName(test.op))
	}

	_, err := arithmetic(codegen.OpDiv, int32(1), int32(0))
	assert.ErrorIs(t, err, errDivideByZero)
	_, err = arithmetic(codegen.OpAdd, int32(1), float32(1))
	assert.EqualError(t, err, "operation ADD on mismatched operands int32 and float")
	_, err = arithmetic(codegen.OpAnd, float32(1), float32(1))
	assert.Error(t, err)
	_, err = arithmetic(codegen.OpAdd, "a", "b")
	assert.EqualError(t, err, "operation ADD is not defined on string")
}

func TestCompareAndEqual(t *testing.T) {
	c, err := compare(int32(1), int32(2))
	require.NoError(t, err)
	assert.Equal(t, -1, c)
	c, err = compare(float64(2), float64(1))
	require.NoError(t, err)
	assert.Equal(t, 1, c)
	_, err = compare("a", "b")
	assert.Error(t, err)

	x, y := &counter{}, &counter{}
	assert.True(t, equal(x, x))
	assert.False(t, equal(x, y))
	assert.True(t, equal(nil, nil))
	assert.False(t, equal(x, nil))
	assert.True(t, equal(float32(1), float32(1)))
	assert.False(t, equal(int32(1), int64(1)))
	assert.False(t, equal([]int{1}, []int{1}))
}

func TestFieldsAndCalls(t *testing.T) {
	p := build(t, func(b *codegen.Builder) {
		storeValue(b, func() {
			b.EmitConst(int32(3))
			b.EmitConv(types.Float32)
		})
		b.Emit(codegen.OpLoadHost)
		b.EmitConst(float32(0.5))
		b.EmitMethod(codegen.OpCallVirt, counterAdd)
		b.Emit(codegen.OpPop)
	})
	host := &counter{}
	f := New(p)
	require.NoError(t, f.Invoke(host))
	assert.Equal(t, float32(3.5), host.value)
	assert.Equal(t, 1, host.calls)
	assert.Equal(t, uint64(1), f.Stats().Invocations)
	assert.Equal(t, uint64(0), f.Stats().Failures)
}

func TestLoopAndLocals(t *testing.T) {
	// i = 0; while (i < 10) { i = i + 1; host.Add(1); }
	p := build(t, func(b *codegen.Builder) {
		i := b.DeclareLocal(types.Typ[types.Int32])
		start, end := b.DefineLabel(), b.DefineLabel()
		b.MarkLabel(start)
		b.EmitLocal(codegen.OpLoadLocal, i)
		b.EmitConst(int32(10))
		b.Emit(codegen.OpClt)
		b.EmitJump(codegen.OpJumpIfFalse, end)
		b.EmitLocal(codegen.OpLoadLocal, i)
		b.EmitConst(int32(1))
		b.Emit(codegen.OpAdd)
		b.EmitLocal(codegen.OpStoreLocal, i)
		b.Emit(codegen.OpLoadHost)
		b.EmitConst(float32(1))
		b.EmitMethod(codegen.OpCallVirt, counterAdd)
		b.Emit(codegen.OpPop)
		b.EmitJump(codegen.OpJump, start)
		b.MarkLabel(end)
	})
	host := &counter{}
	require.NoError(t, New(p).Invoke(host))
	assert.Equal(t, float32(10), host.value)
}

func TestFinallyRunsOnError(t *testing.T) {
	p := build(t, func(b *codegen.Builder) {
		b.BeginTry()
		b.EmitConst(int32(1))
		b.EmitConst(int32(0))
		b.Emit(codegen.OpDiv)
		b.Emit(codegen.OpPop)
		b.BeginFinally()
		storeValue(b, func() { b.EmitConst(float32(5)) })
		b.EndTry()
	})
	host := &counter{}
	f := New(p)
	err := f.Invoke(host)
	require.Error(t, err)
	assert.Equal(t, errs.RuntimeError, errs.KindOf(err))
	assert.ErrorIs(t, err, errDivideByZero)
	assert.Contains(t, err.Error(), "DIV at 0009")
	assert.Equal(t, float32(5), host.value)
	assert.Equal(t, uint64(1), f.Stats().Failures)
}

func TestLeaveRunsNestedFinallies(t *testing.T) {
	p := build(t, func(b *codegen.Builder) {
		ret := b.DefineLabel()
		b.BeginTry()
		b.BeginTry()
		b.EmitJump(codegen.OpLeave, ret)
		storeValue(b, func() { b.EmitConst(float32(99)) })
		b.BeginFinally()
		b.Emit(codegen.OpLoadHost)
		b.EmitConst(float32(1))
		b.EmitMethod(codegen.OpCallVirt, counterAdd)
		b.Emit(codegen.OpPop)
		b.EndTry()
		b.BeginFinally()
		b.Emit(codegen.OpLoadHost)
		b.EmitConst(float32(10))
		b.EmitMethod(codegen.OpCallVirt, counterAdd)
		b.Emit(codegen.OpPop)
		b.EndTry()
		b.MarkLabel(ret)
	})
	host := &counter{}
	require.NoError(t, New(p).Invoke(host))
	assert.Equal(t, float32(11), host.value)
	assert.Equal(t, 2, host.calls)
}

func TestHostPanicIsRuntimeError(t *testing.T) {
	p := build(t, func(b *codegen.Builder) {
		b.BeginTry()
		b.Emit(codegen.OpLoadHost)
		b.EmitMethod(codegen.OpCallVirt, counterBoom)
		b.BeginFinally()
		storeValue(b, func() { b.EmitConst(float32(2)) })
		b.EndTry()
	})
	host := &counter{}
	err := New(p).Invoke(host)
	require.Error(t, err)
	assert.Equal(t, errs.RuntimeError, errs.KindOf(err))
	assert.Contains(t, err.Error(), "host panic: boom")
	assert.Equal(t, float32(2), host.value)
}

func TestOperationLimit(t *testing.T) {
	p := build(t, func(b *codegen.Builder) {
		start := b.DefineLabel()
		b.MarkLabel(start)
		b.EmitJump(codegen.OpJump, start)
	})
	err := New(p, WithOperationLimit(100)).Invoke(&counter{})
	require.Error(t, err)
	assert.EqualError(t, err, "runtime error: operation limit exceeded")
}

func TestCancellation(t *testing.T) {
	p := build(t, func(b *codegen.Builder) {
		start := b.DefineLabel()
		b.MarkLabel(start)
		b.EmitJump(codegen.OpJump, start)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(p).InvokeContext(ctx, &counter{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestLateBinding(t *testing.T) {
	p := build(t, func(b *codegen.Builder) {
		// host$value = 2
		b.Emit(codegen.OpLoadHost)
		b.EmitConst(int32(2))
		b.EmitName(codegen.OpLateSet, "value")
		// host$Add(host$value)
		args := b.DeclareLocal(types.ArrayOf(types.Typ[types.Object], 1))
		b.EmitConst(int32(1))
		b.EmitType(codegen.OpNewArray, types.Typ[types.Object])
		b.EmitLocal(codegen.OpStoreLocal, args)
		b.EmitLocal(codegen.OpLoadLocal, args)
		b.EmitConst(int32(0))
		b.Emit(codegen.OpLoadHost)
		b.EmitName(codegen.OpLateGet, "value")
		b.EmitRank(codegen.OpStoreElem, 1)
		b.Emit(codegen.OpLoadHost)
		b.EmitLocal(codegen.OpLoadLocal, args)
		b.EmitName(codegen.OpLateCall, "Add")
		b.Emit(codegen.OpPop)
	})
	host := &counter{}
	require.NoError(t, New(p).Invoke(host))
	assert.Equal(t, float32(4), host.value)

	p = build(t, func(b *codegen.Builder) {
		b.Emit(codegen.OpLoadHost)
		b.EmitName(codegen.OpLateGet, "missing")
		b.Emit(codegen.OpPop)
	})
	err := New(p).Invoke(host)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "member 'missing' not found on Counter")
}

func TestStateRoundTrip(t *testing.T) {
	// x = state["x"]; x = x + 1; state["x"] = x
	emit := func(b *codegen.Builder, state any) {
		x := b.DeclareLocal(types.Typ[types.Int32])
		b.EmitConst(state)
		b.EmitConst("x")
		b.EmitType(codegen.OpStateGet, types.Typ[types.Int32])
		b.EmitLocal(codegen.OpStoreLocal, x)
		b.EmitLocal(codegen.OpLoadLocal, x)
		b.EmitConst(int32(1))
		b.Emit(codegen.OpAdd)
		b.EmitLocal(codegen.OpStoreLocal, x)
		b.EmitConst(state)
		b.EmitConst("x")
		b.EmitLocal(codegen.OpLoadLocal, x)
		b.Emit(codegen.OpStateSet)
	}
	s := &memState{values: make(map[string]any)}
	f := New(build(t, func(b *codegen.Builder) { emit(b, s) }))
	for i := 0; i < 3; i++ {
		require.NoError(t, f.Invoke(nil))
	}
	assert.Equal(t, int32(3), s.values["x"])

	// Without a state defaults are read and writes are dropped.
	require.NoError(t, New(build(t, func(b *codegen.Builder) { emit(b, nil) })).Invoke(nil))
}

func TestUnboxAndCast(t *testing.T) {
	p := build(t, func(b *codegen.Builder) {
		b.EmitConst(int32(1))
		b.EmitType(codegen.OpBox, types.Typ[types.Int32])
		b.EmitType(codegen.OpUnbox, types.Typ[types.Float32])
		b.Emit(codegen.OpPop)
	})
	err := New(p).Invoke(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cast from int32 to float")

	p = build(t, func(b *codegen.Builder) {
		b.EmitConst("s")
		b.EmitType(codegen.OpCastClass, counterType)
		b.Emit(codegen.OpPop)
	})
	err = New(p).Invoke(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cast from string to Counter")
}

func TestValueReceiverThroughAddress(t *testing.T) {
	toString := types.Typ[types.Object].Methods("ToString", false)[0]
	p := build(t, func(b *codegen.Builder) {
		tmp := b.DeclareLocal(types.Typ[types.Float32])
		ok := b.DefineLabel()
		b.EmitConst(float32(2.5))
		b.EmitLocal(codegen.OpStoreLocal, tmp)
		b.EmitLocal(codegen.OpLoadLocalAddr, tmp)
		b.EmitMethod(codegen.OpCallVirt, toString)
		b.EmitConst("2.5")
		b.Emit(codegen.OpCeq)
		b.EmitJump(codegen.OpJumpIfTrue, ok)
		b.Emit(codegen.OpLoadHost)
		b.EmitMethod(codegen.OpCallVirt, counterBoom)
		b.MarkLabel(ok)
	})
	require.NoError(t, New(p).Invoke(&counter{}))
}
