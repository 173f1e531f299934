package ast

// BlockNode is a statement list with its own lexical scope.
type BlockNode struct {
	position
	Statements []Statement
}

func (*BlockNode) statement() {}

func NewBlockNode(pos int, statements []Statement) *BlockNode {
	return &BlockNode{position: position{Pos: pos}, Statements: statements}
}

type AssignmentNode struct {
	position
	Target Lvalue
	Value  Expression
}

func (*AssignmentNode) statement() {}

func NewAssignmentNode(pos int, target Lvalue, value Expression) *AssignmentNode {
	return &AssignmentNode{position: position{Pos: pos}, Target: target, Value: value}
}

// DeclarationNode declares a local initialised from Value. A TypeName bound to the
// inferencing type takes the type of Value.
type DeclarationNode struct {
	position
	TypeName *Identifier
	Name     *Identifier
	Value    Expression
}

func (*DeclarationNode) statement() {}

func NewDeclarationNode(pos int, typeName, name *Identifier, value Expression) *DeclarationNode {
	return &DeclarationNode{position: position{Pos: pos}, TypeName: typeName, Name: name, Value: value}
}

// PersistentDeclarationNode declares a local whose value survives between invocations.
type PersistentDeclarationNode struct {
	position
	TypeName *Identifier
	Name     *Identifier
}

func (*PersistentDeclarationNode) statement() {}

func NewPersistentDeclarationNode(pos int, typeName, name *Identifier) *PersistentDeclarationNode {
	return &PersistentDeclarationNode{position: position{Pos: pos}, TypeName: typeName, Name: name}
}

type IfNode struct {
	position
	Condition Expression
	Then      *BlockNode
}

func (*IfNode) statement() {}

func NewIfNode(pos int, condition Expression, then *BlockNode) *IfNode {
	return &IfNode{position: position{Pos: pos}, Condition: condition, Then: then}
}

type IfElseNode struct {
	position
	Condition Expression
	Then      *BlockNode
	Else      *BlockNode
}

func (*IfElseNode) statement() {}

func NewIfElseNode(pos int, condition Expression, then, els *BlockNode) *IfElseNode {
	return &IfElseNode{position: position{Pos: pos}, Condition: condition, Then: then, Else: els}
}

type WhileNode struct {
	position
	Condition Expression
	Body      *BlockNode
}

func (*WhileNode) statement() {}

func NewWhileNode(pos int, condition Expression, body *BlockNode) *WhileNode {
	return &WhileNode{position: position{Pos: pos}, Condition: condition, Body: body}
}

type BreakNode struct {
	position
}

func (*BreakNode) statement() {}

func NewBreakNode(pos int) *BreakNode {
	return &BreakNode{position: position{Pos: pos}}
}

type ContinueNode struct {
	position
}

func (*ContinueNode) statement() {}

func NewContinueNode(pos int) *ContinueNode {
	return &ContinueNode{position: position{Pos: pos}}
}

type ReturnNode struct {
	position
}

func (*ReturnNode) statement() {}

func NewReturnNode(pos int) *ReturnNode {
	return &ReturnNode{position: position{Pos: pos}}
}

// CallStatementNode evaluates a host call and discards its result.
type CallStatementNode struct {
	position
	Call *CallNode
}

func (*CallStatementNode) statement() {}

func NewCallStatementNode(pos int, call *CallNode) *CallStatementNode {
	return &CallStatementNode{position: position{Pos: pos}, Call: call}
}

// InvocationStatementNode evaluates a member call and discards its result.
// Call is an *InvocationNode or a *LateInvocationNode.
type InvocationStatementNode struct {
	position
	Call Expression
}

func (*InvocationStatementNode) statement() {}

func NewInvocationStatementNode(pos int, call Expression) *InvocationStatementNode {
	return &InvocationStatementNode{position: position{Pos: pos}, Call: call}
}
