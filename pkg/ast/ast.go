package ast

import (
	"github.com/openvp/affe/pkg/types"
)

// Node is any syntax tree entity. Offset is the source offset used in diagnostics.
type Node interface {
	node()
	Offset() int
}

type Statement interface {
	Node
	statement()
}

// Expression carries its static type once analysis has resolved it.
type Expression interface {
	Node
	Type() *types.Type
	expression()
}

// Lvalue is an expression that can be the target of an assignment.
type Lvalue interface {
	Expression
	lvalue()
}

// Typer is implemented by expressions whose type is assigned during analysis.
type Typer interface {
	SetType(t *types.Type)
}

type position struct {
	Pos int
}

func (*position) node() {}

func (p *position) Offset() int {
	return p.Pos
}

type typed struct {
	typ *types.Type
}

func (t *typed) Type() *types.Type {
	return t.typ
}

func (t *typed) SetType(typ *types.Type) {
	t.typ = typ
}

// Identifier is a name occurring in the source.
type Identifier struct {
	position
	Name string
}

func NewIdentifier(pos int, name string) *Identifier {
	return &Identifier{position: position{Pos: pos}, Name: name}
}

// Operator is a unary or binary operator.
type Operator byte

const (
	Add Operator = iota
	Sub
	Mul
	Div
	Mod
	And
	Or
	Band
	Bor
	Eq
	Ne
	Lt
	Gt
	Lte
	Gte
	Neg
	Not
)

var operatorNames = [...]string{
	Add:  "+",
	Sub:  "-",
	Mul:  "*",
	Div:  "/",
	Mod:  "%",
	And:  "&",
	Or:   "|",
	Band: "&&",
	Bor:  "||",
	Eq:   "==",
	Ne:   "!=",
	Lt:   "<",
	Gt:   ">",
	Lte:  "<=",
	Gte:  ">=",
	Neg:  "-",
	Not:  "!",
}

func (o Operator) String() string {
	if int(o) < len(operatorNames) {
		return operatorNames[o]
	}
	return "?"
}

// IsComparison reports whether the operator yields bool regardless of its operating type.
func (o Operator) IsComparison() bool {
	switch o {
	case Eq, Ne, Lt, Gt, Lte, Gte, Bor, Band:
		return true
	default:
		return false
	}
}
