package compiler

import (
	"github.com/pkg/errors"

	"github.com/openvp/affe/pkg/ast"
	"github.com/openvp/affe/pkg/errs"
	"github.com/openvp/affe/pkg/symbols"
	"github.com/openvp/affe/pkg/types"
)

func (s *compilerState) analyzeBlock(b *ast.BlockNode) error {
	t := symbols.NewTable()
	s.info.Scopes[b] = t
	s.scopes.Push(t)
	for _, st := range b.Statements {
		if err := s.analyzeStatement(st); err != nil {
			return err
		}
	}
	_, err := s.scopes.Pop()
	return err
}

func (s *compilerState) analyzeStatement(st ast.Statement) error {
	switch n := st.(type) {
	case *ast.BlockNode:
		return s.analyzeBlock(n)

	case *ast.AssignmentNode:
		return s.analyzeAssignment(n)

	case *ast.DeclarationNode:
		return s.analyzeDeclaration(n)

	case *ast.PersistentDeclarationNode:
		return s.analyzePersistentDeclaration(n)

	case *ast.IfNode:
		c, err := s.analyzeCondition(n.Condition)
		if err != nil {
			return err
		}
		n.Condition = c
		return s.analyzeBlock(n.Then)

	case *ast.IfElseNode:
		c, err := s.analyzeCondition(n.Condition)
		if err != nil {
			return err
		}
		n.Condition = c
		if err := s.analyzeBlock(n.Then); err != nil {
			return err
		}
		return s.analyzeBlock(n.Else)

	case *ast.WhileNode:
		c, err := s.analyzeCondition(n.Condition)
		if err != nil {
			return err
		}
		n.Condition = c
		s.loopDepth++
		err = s.analyzeBlock(n.Body)
		s.loopDepth--
		return err

	case *ast.BreakNode:
		if s.loopDepth == 0 {
			return errs.SemanticError.New(n.Offset(), "break outside of a loop")
		}
		return nil

	case *ast.ContinueNode:
		if s.loopDepth == 0 {
			return errs.SemanticError.New(n.Offset(), "continue outside of a loop")
		}
		return nil

	case *ast.ReturnNode:
		return nil

	case *ast.CallStatementNode:
		_, err := s.analyzeCall(n.Call)
		return err

	case *ast.InvocationStatementNode:
		c, err := s.analyzeExpr(n.Call)
		if err != nil {
			return err
		}
		n.Call = c
		return nil

	default:
		return errs.SemanticError.Errorf(st.Offset(), "unexpected statement %T", st)
	}
}

func (s *compilerState) analyzeCondition(e ast.Expression) (ast.Expression, error) {
	c, err := s.analyzeExpr(e)
	if err != nil {
		return nil, err
	}
	return s.CastTo(c, types.Typ[types.Bool])
}

// analyzeAssignment resolves a plain name target before the value, so the value may read a variable the
// assignment itself declares.
func (s *compilerState) analyzeAssignment(n *ast.AssignmentNode) error {
	ref, isRef := n.Target.(*ast.ReferenceNode)
	if isRef {
		if err := s.analyzeTarget(ref); err != nil {
			return err
		}
	}
	v, err := s.analyzeExpr(n.Value)
	if err != nil {
		return err
	}
	if !isRef {
		t, err := s.analyzeExpr(n.Target)
		if err != nil {
			return err
		}
		lv, ok := t.(ast.Lvalue)
		if !ok {
			return errs.SemanticError.New(n.Target.Offset(), "invalid assignment target")
		}
		n.Target = lv
	}
	n.Value, err = s.CastTo(v, n.Target.Type())
	return err
}

func (s *compilerState) analyzeDeclaration(n *ast.DeclarationNode) error {
	v, err := s.analyzeExpr(n.Value)
	if err != nil {
		return err
	}
	tn, err := s.lookupType(n.TypeName)
	if err != nil {
		return err
	}
	t := tn.Type
	if tn.Inferred() {
		t = v.Type()
	}
	if t.Kind() == types.Void {
		return errs.SemanticError.Errorf(n.Name.Offset(), "variable '%s' cannot be void", n.Name.Name)
	}
	variable, err := s.declare(n.Name, t)
	if err != nil {
		return err
	}
	s.info.Uses[n] = variable
	n.Value, err = s.CastTo(v, t)
	return err
}

func (s *compilerState) analyzePersistentDeclaration(n *ast.PersistentDeclarationNode) error {
	tn, err := s.lookupType(n.TypeName)
	if err != nil {
		return err
	}
	if tn.Inferred() {
		return errs.SemanticError.New(n.TypeName.Offset(), "persistent variables cannot be type-inferred")
	}
	v, err := s.declare(n.Name, tn.Type)
	if err != nil {
		return err
	}
	s.makePersistent(v)
	s.info.Uses[n] = v
	return nil
}

// analyzeTarget resolves a name being assigned to. Unknown names declare a variable.
func (s *compilerState) analyzeTarget(n *ast.ReferenceNode) error {
	sym, ok := s.scopes.Lookup(n.Name)
	if !ok {
		v, err := s.defineLocal(n)
		if err != nil {
			return err
		}
		sym = v
	}
	return s.resolveReference(n, sym)
}

func (s *compilerState) analyzeReference(n *ast.ReferenceNode) (ast.Expression, error) {
	sym, ok := s.scopes.Lookup(n.Name)
	if !ok {
		return nil, errs.SemanticError.Errorf(n.Offset(), "undeclared identifier '%s'", n.Name)
	}
	return n, s.resolveReference(n, sym)
}

func (s *compilerState) resolveReference(n *ast.ReferenceNode, sym symbols.Symbol) error {
	switch sym := sym.(type) {
	case *symbols.Variable:
		n.SetType(sym.Type)
	case *symbols.Field:
		n.SetType(sym.Field.Type)
	default:
		return errs.SemanticError.Errorf(n.Offset(), "identifier '%s' used in an expression must be a variable", n.Name)
	}
	s.info.Uses[n] = sym
	return nil
}

func (s *compilerState) analyzeExpr(e ast.Expression) (ast.Expression, error) {
	switch n := e.(type) {
	case *ast.IntegerNode, *ast.FloatNode, *ast.StringNode, *ast.BooleanNode, *ast.NullNode:
		return e, nil

	case *ast.ReferenceNode:
		return s.analyzeReference(n)

	case *ast.OperatorNode:
		l, err := s.analyzeExpr(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := s.analyzeExpr(n.Right)
		if err != nil {
			return nil, err
		}
		n.Left, n.Right = l, r
		return s.analyzeOperator(n)

	case *ast.UnaryNode:
		return s.analyzeUnary(n)

	case *ast.ConditionalNode:
		return s.analyzeConditional(n)

	case *ast.CastNode:
		if n.TypeName == nil {
			return n, nil
		}
		o, err := s.analyzeExpr(n.Operand)
		if err != nil {
			return nil, err
		}
		n.Operand = o
		return s.analyzeCast(n)

	case *ast.CallNode:
		return s.analyzeCall(n)

	case *ast.InvocationNode:
		return s.analyzeInvocation(n)

	case *ast.LateInvocationNode:
		return s.analyzeLateInvocation(n)

	case *ast.PropertyNode:
		return s.analyzeProperty(n)

	case *ast.LatePropertyNode:
		t, err := s.valueTarget(n.Target)
		if err != nil {
			return nil, err
		}
		n.Target = t
		return n, nil

	case *ast.IndexNode:
		return s.analyzeIndex(n)

	default:
		return nil, errs.SemanticError.Errorf(e.Offset(), "unexpected expression %T", e)
	}
}

func (s *compilerState) analyzeUnary(n *ast.UnaryNode) (ast.Expression, error) {
	o, err := s.analyzeExpr(n.Operand)
	if err != nil {
		return nil, err
	}
	if !types.IsNumeric(o.Type()) {
		return nil, errs.SemanticError.New(n.Offset(), "cannot operate on non-numeric values")
	}
	switch n.Operator {
	case ast.Neg:
		n.Operand = o
		n.SetType(o.Type())
	case ast.Not:
		if n.Operand, err = s.CastTo(o, types.Typ[types.Bool]); err != nil {
			return nil, err
		}
		n.SetType(types.Typ[types.Bool])
	default:
		return nil, errs.SemanticError.Errorf(n.Offset(), "'%s' is not a unary operator", n.Operator)
	}
	return n, nil
}

func (s *compilerState) analyzeConditional(n *ast.ConditionalNode) (ast.Expression, error) {
	c, err := s.analyzeCondition(n.Condition)
	if err != nil {
		return nil, err
	}
	a, err := s.analyzeExpr(n.IfTrue)
	if err != nil {
		return nil, err
	}
	b, err := s.analyzeExpr(n.IfFalse)
	if err != nil {
		return nil, err
	}
	t := types.FindCompatibleType(a.Type(), b.Type())
	if n.IfTrue, err = s.CastTo(a, t); err != nil {
		return nil, err
	}
	if n.IfFalse, err = s.CastTo(b, t); err != nil {
		return nil, err
	}
	n.Condition = c
	n.SetType(t)
	return n, nil
}

// analyzeArgs analyzes call arguments in place and returns their types. The null literal has no type,
// so it matches any reference parameter.
func (s *compilerState) analyzeArgs(args []ast.Expression) ([]*types.Type, error) {
	out := make([]*types.Type, len(args))
	for i, a := range args {
		e, err := s.analyzeExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = e
		if _, null := e.(*ast.NullNode); !null {
			out[i] = e.Type()
		}
	}
	return out, nil
}

func (s *compilerState) castArgs(args []ast.Expression, params []*types.Type) error {
	for i, a := range args {
		e, err := s.CastTo(a, params[i])
		if err != nil {
			return err
		}
		args[i] = e
	}
	return nil
}

func (s *compilerState) analyzeCall(n *ast.CallNode) (ast.Expression, error) {
	name := n.Name.Name
	sym, ok := s.scopes.Lookup(name)
	if !ok {
		return nil, errs.SemanticError.Errorf(n.Name.Offset(), "no such method '%s'", name)
	}
	switch sym := sym.(type) {
	case *symbols.Transform:
		if _, err := s.analyzeArgs(n.Args); err != nil {
			return nil, err
		}
		n.SetType(sym.Result)
	case *symbols.Method:
		m := sym.Method
		if len(n.Args) != len(m.Params) {
			return nil, errs.SemanticError.Errorf(n.Offset(),
				"incorrect argument count to method '%s': %d given, %d expected", name, len(n.Args), len(m.Params))
		}
		if _, err := s.analyzeArgs(n.Args); err != nil {
			return nil, err
		}
		if err := s.castArgs(n.Args, m.Params); err != nil {
			return nil, err
		}
		n.SetType(m.Result)
	default:
		return nil, errs.SemanticError.Errorf(n.Name.Offset(), "'%s' is not a method", name)
	}
	s.info.Uses[n] = sym
	return n, nil
}

// memberTarget analyzes the target of a member access. A target naming a type selects the static members of that type.
func (s *compilerState) memberTarget(target ast.Expression) (ast.Expression, *types.Type, bool, error) {
	if ref, ok := target.(*ast.ReferenceNode); ok {
		if sym, ok := s.scopes.Lookup(ref.Name); ok {
			if tn, ok := sym.(*symbols.TypeName); ok && !tn.Inferred() {
				s.info.Uses[ref] = tn
				return target, tn.Type, true, nil
			}
		}
	}
	e, err := s.valueTarget(target)
	if err != nil {
		return nil, nil, false, err
	}
	return e, e.Type(), false, nil
}

func (s *compilerState) valueTarget(target ast.Expression) (ast.Expression, error) {
	e, err := s.analyzeExpr(target)
	if err != nil {
		return nil, err
	}
	if e.Type().Kind() == types.Void {
		return nil, errs.SemanticError.New(target.Offset(), "void value has no members")
	}
	return e, nil
}

func (s *compilerState) analyzeInvocation(n *ast.InvocationNode) (ast.Expression, error) {
	target, t, static, err := s.memberTarget(n.Target)
	if err != nil {
		return nil, err
	}
	n.Target = target
	argTypes, err := s.analyzeArgs(n.Args)
	if err != nil {
		return nil, err
	}
	name := n.Name.Name
	m, err := types.SelectMethod(t.Methods(name, static), argTypes)
	switch {
	case errors.Is(err, types.ErrAmbiguous):
		return nil, errs.SemanticError.Wrapf(err, n.Name.Offset(), "call to %s.%s", t, name)
	case err != nil:
		return nil, errs.SemanticError.Wrapf(err, n.Name.Offset(), "method %s.%s", t, name)
	}
	if err := s.castArgs(n.Args, m.Params); err != nil {
		return nil, err
	}
	n.Method = m
	n.SetType(m.Result)
	return n, nil
}

func (s *compilerState) analyzeLateInvocation(n *ast.LateInvocationNode) (ast.Expression, error) {
	target, err := s.valueTarget(n.Target)
	if err != nil {
		return nil, err
	}
	n.Target = target
	for i, a := range n.Args {
		e, err := s.analyzeExpr(a)
		if err != nil {
			return nil, err
		}
		if n.Args[i], err = s.CastTo(e, types.Typ[types.Object]); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (s *compilerState) analyzeProperty(n *ast.PropertyNode) (ast.Expression, error) {
	target, t, static, err := s.memberTarget(n.Target)
	if err != nil {
		return nil, err
	}
	n.Target = target
	name := n.Name.Name
	members := t.DataMembers(name, static)
	switch len(members) {
	case 0:
		return nil, errs.SemanticError.Wrapf(types.ErrNotFound, n.Name.Offset(), "member %s.%s", t, name)
	case 1:
	default:
		return nil, errs.SemanticError.Wrapf(types.ErrAmbiguous, n.Name.Offset(), "member %s.%s", t, name)
	}
	n.Member = members[0]
	n.SetType(n.Member.MemberType())
	return n, nil
}

func (s *compilerState) analyzeIndex(n *ast.IndexNode) (ast.Expression, error) {
	target, t, static, err := s.memberTarget(n.Target)
	if err != nil {
		return nil, err
	}
	n.Target = target
	if _, err := s.analyzeArgs(n.Index); err != nil {
		return nil, err
	}
	if t.IsArray() {
		if static {
			return nil, errs.SemanticError.New(n.Offset(), "cannot statically index an array")
		}
		if len(n.Index) != t.Rank() {
			return nil, errs.SemanticError.Errorf(n.Offset(),
				"array of rank %d indexed with %d indices", t.Rank(), len(n.Index))
		}
		for i, e := range n.Index {
			if n.Index[i], err = s.CastTo(e, types.Typ[types.Int32]); err != nil {
				return nil, err
			}
		}
		n.SetType(t.Elem())
		return n, nil
	}
	p := t.Indexer()
	if p == nil {
		return nil, errs.SemanticError.Errorf(n.Target.Offset(), "values of type %s cannot be indexed", t)
	}
	if static && !p.Static {
		return nil, errs.SemanticError.Errorf(n.Offset(), "indexer of %s requires an instance", t)
	}
	if len(n.Index) != len(p.Params) {
		return nil, errs.SemanticError.Errorf(n.Offset(),
			"incorrect parameter count to indexer: %d given, %d expected", len(n.Index), len(p.Params))
	}
	if err := s.castArgs(n.Index, p.Params); err != nil {
		return nil, err
	}
	n.Indexer = p
	n.SetType(p.Type)
	return n, nil
}
