package types

import (
	"github.com/pkg/errors"
)

// Array is a rectangular array value. Element storage is abstracted so host slices can be exposed without copying.
type Array struct {
	typ   *Type
	dims  []int
	load  func(i int) any
	store func(i int, v any)
}

// NewArray allocates a zero-filled array with the given dimensions.
func NewArray(elem *Type, dims ...int) *Array {
	n := 1
	for _, d := range dims {
		n *= d
	}
	data := make([]any, n)
	for i := range data {
		data[i] = Default(elem)
	}
	return &Array{
		typ:   ArrayOf(elem, len(dims)),
		dims:  dims,
		load:  func(i int) any { return data[i] },
		store: func(i int, v any) { data[i] = v },
	}
}

// SliceArray exposes a host slice as a one-dimensional array. Writes go through to the slice.
func SliceArray[T any](elem *Type, s []T) *Array {
	return &Array{
		typ:   ArrayOf(elem, 1),
		dims:  []int{len(s)},
		load:  func(i int) any { return s[i] },
		store: func(i int, v any) { s[i] = v.(T) },
	}
}

func (a *Array) AffeType() *Type {
	return a.typ
}

func (a *Array) Len() int {
	n := 1
	for _, d := range a.dims {
		n *= d
	}
	return n
}

func (a *Array) Dims() []int {
	return a.dims
}

func (a *Array) offset(index []int) (int, error) {
	if len(index) != len(a.dims) {
		return 0, errors.Errorf("array of rank %d indexed with %d indices", len(a.dims), len(index))
	}
	off := 0
	for i, x := range index {
		if x < 0 || x >= a.dims[i] {
			return 0, errors.Errorf("index %d out of range [0, %d)", x, a.dims[i])
		}
		off = off*a.dims[i] + x
	}
	return off, nil
}

func (a *Array) Get(index ...int) (any, error) {
	off, err := a.offset(index)
	if err != nil {
		return nil, err
	}
	return a.load(off), nil
}

func (a *Array) Set(v any, index ...int) error {
	off, err := a.offset(index)
	if err != nil {
		return err
	}
	v, err = Coerce(v, a.typ.elem)
	if err != nil {
		return err
	}
	a.store(off, v)
	return nil
}
