package ast

import (
	"github.com/openvp/affe/pkg/types"
)

type IntegerNode struct {
	position
	Value int32
}

func (*IntegerNode) expression() {}

func (*IntegerNode) Type() *types.Type {
	return types.Typ[types.Int32]
}

func NewIntegerNode(pos int, v int32) *IntegerNode {
	return &IntegerNode{position: position{Pos: pos}, Value: v}
}

type FloatNode struct {
	position
	Value float32
}

func (*FloatNode) expression() {}

func (*FloatNode) Type() *types.Type {
	return types.Typ[types.Float32]
}

func NewFloatNode(pos int, v float32) *FloatNode {
	return &FloatNode{position: position{Pos: pos}, Value: v}
}

type StringNode struct {
	position
	Value string
}

func (*StringNode) expression() {}

func (*StringNode) Type() *types.Type {
	return types.Typ[types.String]
}

func NewStringNode(pos int, v string) *StringNode {
	return &StringNode{position: position{Pos: pos}, Value: v}
}

type BooleanNode struct {
	position
	Value bool
}

func (*BooleanNode) expression() {}

func (*BooleanNode) Type() *types.Type {
	return types.Typ[types.Bool]
}

func NewBooleanNode(pos int, v bool) *BooleanNode {
	return &BooleanNode{position: position{Pos: pos}, Value: v}
}

type NullNode struct {
	position
}

func (*NullNode) expression() {}

func (*NullNode) Type() *types.Type {
	return types.Typ[types.Object]
}

func NewNullNode(pos int) *NullNode {
	return &NullNode{position: position{Pos: pos}}
}

// ReferenceNode names a variable or bound field.
type ReferenceNode struct {
	position
	typed
	Name string
}

func (*ReferenceNode) expression() {}
func (*ReferenceNode) lvalue()     {}

func NewReferenceNode(pos int, name string) *ReferenceNode {
	return &ReferenceNode{position: position{Pos: pos}, Name: name}
}

// OperatorNode is a binary operation. Overload is set when a host operator method replaces the builtin semantics.
type OperatorNode struct {
	position
	typed
	Operator Operator
	Left     Expression
	Right    Expression
	Overload *types.Method
}

func (*OperatorNode) expression() {}

func NewOperatorNode(pos int, op Operator, left, right Expression) *OperatorNode {
	return &OperatorNode{position: position{Pos: pos}, Operator: op, Left: left, Right: right}
}

type UnaryNode struct {
	position
	typed
	Operator Operator
	Operand  Expression
}

func (*UnaryNode) expression() {}

func NewUnaryNode(pos int, op Operator, operand Expression) *UnaryNode {
	return &UnaryNode{position: position{Pos: pos}, Operator: op, Operand: operand}
}

// ConditionalNode is the ternary c ? a : b.
type ConditionalNode struct {
	position
	typed
	Condition Expression
	IfTrue    Expression
	IfFalse   Expression
}

func (*ConditionalNode) expression() {}

func NewConditionalNode(pos int, condition, ifTrue, ifFalse Expression) *ConditionalNode {
	return &ConditionalNode{position: position{Pos: pos}, Condition: condition, IfTrue: ifTrue, IfFalse: ifFalse}
}

// CastNode converts Operand. TypeName is nil for conversions inserted by analysis.
type CastNode struct {
	position
	typed
	TypeName *Identifier
	Operand  Expression
}

func (*CastNode) expression() {}

func NewCastNode(pos int, typeName *Identifier, operand Expression) *CastNode {
	return &CastNode{position: position{Pos: pos}, TypeName: typeName, Operand: operand}
}

// NewImplicitCastNode builds an already typed conversion of e to t.
func NewImplicitCastNode(e Expression, t *types.Type) *CastNode {
	c := &CastNode{position: position{Pos: e.Offset()}, Operand: e}
	c.typ = t
	return c
}

// CallNode calls a bound method or expands a transform.
type CallNode struct {
	position
	typed
	Name *Identifier
	Args []Expression
}

func (*CallNode) expression() {}

func NewCallNode(pos int, name *Identifier, args []Expression) *CallNode {
	return &CallNode{position: position{Pos: pos}, Name: name, Args: args}
}

// InvocationNode is a statically resolved member call target.Name(args).
type InvocationNode struct {
	position
	typed
	Target Expression
	Name   *Identifier
	Args   []Expression
	Method *types.Method
}

func (*InvocationNode) expression() {}

func NewInvocationNode(pos int, target Expression, name *Identifier, args []Expression) *InvocationNode {
	return &InvocationNode{position: position{Pos: pos}, Target: target, Name: name, Args: args}
}

// LateInvocationNode is a member call target$Name(args) resolved at run time.
type LateInvocationNode struct {
	position
	Target Expression
	Name   *Identifier
	Args   []Expression
}

func (*LateInvocationNode) expression() {}

func (*LateInvocationNode) Type() *types.Type {
	return types.Typ[types.Object]
}

func NewLateInvocationNode(pos int, target Expression, name *Identifier, args []Expression) *LateInvocationNode {
	return &LateInvocationNode{position: position{Pos: pos}, Target: target, Name: name, Args: args}
}

// PropertyNode is a statically resolved field or property access target.Name.
type PropertyNode struct {
	position
	typed
	Target Expression
	Name   *Identifier
	Member types.Member
}

func (*PropertyNode) expression() {}
func (*PropertyNode) lvalue()     {}

func NewPropertyNode(pos int, target Expression, name *Identifier) *PropertyNode {
	return &PropertyNode{position: position{Pos: pos}, Target: target, Name: name}
}

// LatePropertyNode is a field or property access target$Name resolved at run time.
type LatePropertyNode struct {
	position
	Target Expression
	Name   *Identifier
}

func (*LatePropertyNode) expression() {}
func (*LatePropertyNode) lvalue()     {}

func (*LatePropertyNode) Type() *types.Type {
	return types.Typ[types.Object]
}

func NewLatePropertyNode(pos int, target Expression, name *Identifier) *LatePropertyNode {
	return &LatePropertyNode{position: position{Pos: pos}, Target: target, Name: name}
}

// IndexNode indexes an array or a value with a default indexer.
type IndexNode struct {
	position
	typed
	Target  Expression
	Index   []Expression
	Indexer *types.Property
}

func (*IndexNode) expression() {}
func (*IndexNode) lvalue()     {}

func NewIndexNode(pos int, target Expression, index []Expression) *IndexNode {
	return &IndexNode{position: position{Pos: pos}, Target: target, Index: index}
}
