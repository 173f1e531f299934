package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vector struct{ x, y float32 }

var vectorType = NewClass("Vector", nil)

func (v *vector) AffeType() *Type { return vectorType }

func TestFindCompatibleType(t *testing.T) {
	animal := NewClass("Animal", nil)
	dog := NewClass("Dog", animal)
	stream := NewClass("Stream", nil)
	for _, test := range []struct {
		left, right, expected *Type
	}{
		{Typ[Int32], Typ[Int32], Typ[Int32]},
		{Typ[Int16], Typ[UInt8], Typ[Int32]},
		{Typ[Bool], Typ[Int32], Typ[Int32]},
		{Typ[Int32], Typ[Float32], Typ[Float32]},
		{Typ[Float32], Typ[Float64], Typ[Float64]},
		{Typ[Int64], Typ[Int32], Typ[Float32]},
		{dog, animal, animal},
		{animal, dog, animal},
		{stream, dog, Typ[Object]},
		{stream, Typ[Int32], Typ[Object]},
	} {
		assert.Equal(t, test.expected, FindCompatibleType(test.left, test.right), "%s, %s", test.left, test.right)
	}
}

func TestAssignability(t *testing.T) {
	animal := NewClass("Animal", nil)
	dog := NewClass("Dog", animal)
	named := NewInterface("Named")
	animal.Implement(named)

	assert.True(t, Typ[Object].IsAssignableFrom(Typ[Float32]))
	assert.True(t, Typ[Object].IsAssignableFrom(dog))
	assert.True(t, animal.IsAssignableFrom(dog))
	assert.False(t, dog.IsAssignableFrom(animal))
	assert.True(t, named.IsAssignableFrom(dog))
	assert.True(t, Comparable.IsAssignableFrom(Typ[Float32]))
	assert.False(t, Comparable.IsAssignableFrom(dog))
	assert.False(t, Typ[Float32].IsAssignableFrom(Typ[Int32]))
	assert.True(t, ArrayOf(animal, 1).IsAssignableFrom(ArrayOf(dog, 1)))
	assert.False(t, ArrayOf(Typ[Object], 1).IsAssignableFrom(ArrayOf(Typ[Float32], 1)))
	assert.False(t, ArrayOf(animal, 2).IsAssignableFrom(ArrayOf(dog, 1)))
}

func TestArrayOfIsCanonical(t *testing.T) {
	a := ArrayOf(Typ[Float32], 2)
	require.Same(t, a, ArrayOf(Typ[Float32], 2))
	assert.Equal(t, "float[,]", a.Name())
	assert.Equal(t, 2, a.Rank())
	assert.Equal(t, Typ[Float32], a.Elem())
	assert.Equal(t, ArrayKind, a.Kind())
	assert.Equal(t, "array", a.Kind().String())
	assert.True(t, a.IsArray())
	assert.Nil(t, Typ[ArrayKind])
}

func TestTypeOf(t *testing.T) {
	assert.Nil(t, TypeOf(nil))
	assert.Equal(t, Typ[Float32], TypeOf(float32(1)))
	assert.Equal(t, Typ[String], TypeOf("s"))
	assert.Equal(t, vectorType, TypeOf(&vector{}))
	assert.Equal(t, Typ[Object], TypeOf(struct{}{}))
	assert.Equal(t, TypeType, TypeOf(Typ[Int32]))
	assert.Equal(t, ArrayOf(Typ[Int32], 1), TypeOf(NewArray(Typ[Int32], 3)))
}

func TestConvert(t *testing.T) {
	for _, test := range []struct {
		in       any
		kind     Kind
		expected any
	}{
		{int32(2), Float32, float32(2)},
		{float32(2.7), Int32, int32(2)},
		{float32(-2.7), Int32, int32(-2)},
		{int32(300), UInt8, uint8(44)},
		{int32(-1), UInt16, uint16(65535)},
		{true, Int32, int32(1)},
		{false, Float64, float64(0)},
		{float64(0.5), Bool, true},
		{int32(0), Bool, false},
		{uint32(7), Int64, int64(7)},
	} {
		v, err := Convert(test.in, test.kind)
		require.NoError(t, err)
		assert.Equal(t, test.expected, v)
	}
	_, err := Convert("x", Int32)
	assert.Error(t, err)
}

func TestCoerce(t *testing.T) {
	v, err := Coerce(int32(3), Typ[Float32])
	require.NoError(t, err)
	assert.Equal(t, float32(3), v)
	_, err = Coerce(nil, Typ[Float32])
	assert.Error(t, err)
	v, err = Coerce(nil, vectorType)
	require.NoError(t, err)
	assert.Nil(t, v)
	_, err = Coerce("s", vectorType)
	assert.Error(t, err)
}

func TestMemberLookup(t *testing.T) {
	base := NewClass("Base", nil)
	derived := NewClass("Derived", base)
	base.AddField(&Field{Name: "F", Type: Typ[Float32]})
	base.AddMethod(&Method{Name: "M", Params: []*Type{Typ[Int32]}, Result: Typ[Void]})
	derived.AddProperty(&Property{Name: "F", Type: Typ[Int32], Get: func(any, []any) (any, error) { return int32(1), nil }})
	derived.AddMethod(&Method{Name: "M", Params: []*Type{Typ[Int32]}, Result: Typ[Int32]})
	derived.AddMethod(&Method{Name: "M", Params: []*Type{Typ[String]}, Result: Typ[Int32]})

	members := derived.DataMembers("F", false)
	require.Len(t, members, 1)
	assert.IsType(t, &Property{}, members[0])
	assert.Len(t, base.DataMembers("F", false), 1)
	assert.Empty(t, derived.DataMembers("F", true))

	assert.Len(t, derived.Methods("M", false), 2)
	assert.Len(t, derived.Methods("ToString", false), 1)
	assert.Len(t, Comparable.Methods("ToString", false), 1)
}

func TestSelectMethod(t *testing.T) {
	f := &Method{Name: "M", Params: []*Type{Typ[Float32]}}
	s := &Method{Name: "M", Params: []*Type{Typ[String]}}
	d := &Method{Name: "M", Params: []*Type{Typ[Float64]}}

	m, err := SelectMethod([]*Method{f, s}, []*Type{Typ[Int32]})
	require.NoError(t, err)
	assert.Same(t, f, m)

	m, err = SelectMethod([]*Method{f, d}, []*Type{Typ[Float64]})
	require.NoError(t, err)
	assert.Same(t, d, m)

	_, err = SelectMethod([]*Method{f, d}, []*Type{Typ[Int32]})
	assert.ErrorIs(t, err, ErrAmbiguous)

	_, err = SelectMethod([]*Method{f}, []*Type{Typ[Int32], Typ[Int32]})
	assert.ErrorIs(t, err, ErrNotFound)

	m, err = SelectMethod([]*Method{f, s}, []*Type{nil})
	require.NoError(t, err)
	assert.Same(t, s, m)
}

func TestArray(t *testing.T) {
	a := NewArray(Typ[Float32], 2, 3)
	require.NoError(t, a.Set(int32(5), 1, 2))
	v, err := a.Get(1, 2)
	require.NoError(t, err)
	assert.Equal(t, float32(5), v)
	v, err = a.Get(0, 0)
	require.NoError(t, err)
	assert.Equal(t, float32(0), v)
	_, err = a.Get(2, 0)
	assert.Error(t, err)
	_, err = a.Get(0)
	assert.Error(t, err)

	host := []float32{1, 2, 3}
	s := SliceArray(Typ[Float32], host)
	require.NoError(t, s.Set(float32(9), 1))
	assert.Equal(t, []float32{1, 9, 3}, host)
}

func TestBuiltinMembers(t *testing.T) {
	toString := Typ[Object].Methods("ToString", false)[0]
	v, err := toString.Fn(float32(2.5), nil)
	require.NoError(t, err)
	assert.Equal(t, "2.5", v)

	compare := Typ[Float32].Methods("CompareTo", false)[0]
	v, err = compare.Fn(float32(2), []any{float32(2)})
	require.NoError(t, err)
	assert.Equal(t, int32(0), v)
	v, err = compare.Fn(float32(1), []any{float64(2)})
	require.NoError(t, err)
	assert.Equal(t, int32(-1), v)

	getType := Typ[Object].Methods("GetType", false)[0]
	v, err = getType.Fn(float32(1), nil)
	require.NoError(t, err)
	assert.Equal(t, Typ[Float32], v)
}
