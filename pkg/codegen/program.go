package codegen

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/mr-tron/base58"

	"github.com/openvp/affe/pkg/types"
)

// Program is the encoded body of a compiled function together with the pools its parameters index.
type Program struct {
	Code       []byte
	Constants  []any
	Types      []*types.Type
	Fields     []*types.Field
	Properties []*types.Property
	Methods    []*types.Method
	Names      []string
	Locals     []*types.Type
}

// Fingerprint identifies the program by its code and the layout of its pools.
// Programs compiled from the same source against the same binding share a fingerprint.
func (p *Program) Fingerprint() string {
	d := xxhash.New()
	_, _ = d.Write(p.Code)
	for _, c := range p.Constants {
		_, _ = fmt.Fprintf(d, "c%T:%v;", c, c)
	}
	for _, t := range p.Types {
		_, _ = fmt.Fprintf(d, "t%s;", t.Name())
	}
	for _, f := range p.Fields {
		_, _ = fmt.Fprintf(d, "f%s:%s;", f.Name, f.Type.Name())
	}
	for _, pr := range p.Properties {
		_, _ = fmt.Fprintf(d, "p%s:%s;", pr.Name, pr.Type.Name())
	}
	for _, m := range p.Methods {
		_, _ = fmt.Fprintf(d, "m%s;", m)
	}
	for _, n := range p.Names {
		_, _ = fmt.Fprintf(d, "n%s;", n)
	}
	for _, l := range p.Locals {
		_, _ = fmt.Fprintf(d, "l%s;", l.Name())
	}
	var sum [8]byte
	binary.BigEndian.PutUint64(sum[:], d.Sum64())
	return base58.Encode(sum[:])
}

// Arg16 decodes the parameter of the instruction at pos.
func (p *Program) Arg16(pos int) int {
	return int(binary.BigEndian.Uint16(p.Code[pos+1 : pos+3]))
}
