package codegen

import (
	"github.com/openvp/affe/pkg/types"
)

// Label is a code position defined before it is known.
type Label int

// Local is a slot of the invocation frame.
type Local struct {
	Index int
	Type  *types.Type
}

// Sink receives the instruction stream of one compiled function.
// Protected regions are opened with BeginTry, switched to their cleanup phase with BeginFinally
// and closed with EndTry.
type Sink interface {
	DefineLabel() Label
	MarkLabel(l Label)
	DeclareLocal(t *types.Type) Local
	Emit(op byte)
	EmitConst(v any)
	EmitLocal(op byte, l Local)
	EmitJump(op byte, l Label)
	EmitType(op byte, t *types.Type)
	EmitConv(k types.Kind)
	EmitRank(op byte, rank int)
	EmitField(op byte, f *types.Field)
	EmitProperty(op byte, p *types.Property)
	EmitMethod(op byte, m *types.Method)
	EmitName(op byte, name string)
	BeginTry()
	BeginFinally()
	EndTry()
}
