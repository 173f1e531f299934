package compiler

import (
	"github.com/openvp/affe/pkg/ast"
	"github.com/openvp/affe/pkg/codegen"
	"github.com/openvp/affe/pkg/errs"
	"github.com/openvp/affe/pkg/symbols"
	"github.com/openvp/affe/pkg/types"
)

func (s *compilerState) emitBlock(b *ast.BlockNode) error {
	for _, st := range b.Statements {
		if err := s.emitStatement(st); err != nil {
			return err
		}
	}
	return nil
}

func (s *compilerState) emitStatement(st ast.Statement) error {
	switch n := st.(type) {
	case *ast.BlockNode:
		return s.emitBlock(n)

	case *ast.AssignmentNode:
		return s.emitStore(n.Target, n.Value)

	case *ast.DeclarationNode:
		v := s.info.Uses[n].(*symbols.Variable)
		if err := s.emitExpr(n.Value); err != nil {
			return err
		}
		s.sink.EmitLocal(codegen.OpStoreLocal, v.Local)

	case *ast.PersistentDeclarationNode:
		// Loaded by the function prologue.

	case *ast.IfNode:
		end := s.sink.DefineLabel()
		if err := s.emitExpr(n.Condition); err != nil {
			return err
		}
		s.sink.EmitJump(codegen.OpJumpIfFalse, end)
		if err := s.emitBlock(n.Then); err != nil {
			return err
		}
		s.sink.MarkLabel(end)

	case *ast.IfElseNode:
		els, end := s.sink.DefineLabel(), s.sink.DefineLabel()
		if err := s.emitExpr(n.Condition); err != nil {
			return err
		}
		s.sink.EmitJump(codegen.OpJumpIfFalse, els)
		if err := s.emitBlock(n.Then); err != nil {
			return err
		}
		s.sink.EmitJump(codegen.OpJump, end)
		s.sink.MarkLabel(els)
		if err := s.emitBlock(n.Else); err != nil {
			return err
		}
		s.sink.MarkLabel(end)

	case *ast.WhileNode:
		l := loop{start: s.sink.DefineLabel(), end: s.sink.DefineLabel()}
		s.pushLoop(l)
		s.sink.MarkLabel(l.start)
		if err := s.emitExpr(n.Condition); err != nil {
			return err
		}
		s.sink.EmitJump(codegen.OpJumpIfFalse, l.end)
		if err := s.emitBlock(n.Body); err != nil {
			return err
		}
		s.sink.EmitJump(codegen.OpJump, l.start)
		s.sink.MarkLabel(l.end)
		s.popLoop()

	case *ast.BreakNode:
		l, err := s.currentLoop(n)
		if err != nil {
			return err
		}
		s.sink.EmitJump(codegen.OpJump, l.end)

	case *ast.ContinueNode:
		l, err := s.currentLoop(n)
		if err != nil {
			return err
		}
		s.sink.EmitJump(codegen.OpJump, l.start)

	case *ast.ReturnNode:
		s.sink.EmitJump(codegen.OpLeave, s.returnLabel)

	case *ast.CallStatementNode:
		if err := s.emitExpr(n.Call); err != nil {
			return err
		}
		if n.Call.Type().Kind() != types.Void {
			s.sink.Emit(codegen.OpPop)
		}

	case *ast.InvocationStatementNode:
		if err := s.emitExpr(n.Call); err != nil {
			return err
		}
		// Late calls push null for methods without a result.
		_, late := n.Call.(*ast.LateInvocationNode)
		if late || n.Call.Type().Kind() != types.Void {
			s.sink.Emit(codegen.OpPop)
		}

	default:
		return errs.SemanticError.Errorf(st.Offset(), "unexpected statement %T", st)
	}
	return nil
}

func (s *compilerState) emitExprs(es ...ast.Expression) error {
	for _, e := range es {
		if err := s.emitExpr(e); err != nil {
			return err
		}
	}
	return nil
}

func (s *compilerState) emitExpr(e ast.Expression) error {
	switch n := e.(type) {
	case *ast.IntegerNode:
		s.sink.EmitConst(n.Value)
	case *ast.FloatNode:
		s.sink.EmitConst(n.Value)
	case *ast.StringNode:
		s.sink.EmitConst(n.Value)
	case *ast.BooleanNode:
		s.sink.EmitConst(n.Value)
	case *ast.NullNode:
		s.sink.Emit(codegen.OpPushNull)

	case *ast.ReferenceNode:
		return s.emitReference(n)

	case *ast.OperatorNode:
		return s.emitOperator(n)

	case *ast.UnaryNode:
		if err := s.emitExpr(n.Operand); err != nil {
			return err
		}
		if n.Operator == ast.Neg {
			s.sink.Emit(codegen.OpNeg)
		} else {
			s.sink.Emit(codegen.OpNot)
		}

	case *ast.ConditionalNode:
		yes, end := s.sink.DefineLabel(), s.sink.DefineLabel()
		if err := s.emitExpr(n.Condition); err != nil {
			return err
		}
		s.sink.EmitJump(codegen.OpJumpIfTrue, yes)
		if err := s.emitExpr(n.IfFalse); err != nil {
			return err
		}
		s.sink.EmitJump(codegen.OpJump, end)
		s.sink.MarkLabel(yes)
		if err := s.emitExpr(n.IfTrue); err != nil {
			return err
		}
		s.sink.MarkLabel(end)

	case *ast.CastNode:
		return s.emitCast(n)

	case *ast.CallNode:
		return s.emitCall(n)

	case *ast.InvocationNode:
		release := noRelease
		if !n.Method.Static {
			var err error
			if release, err = s.emitForInvocation(n.Target, len(n.Args) == 0); err != nil {
				return err
			}
		}
		if err := s.emitExprs(n.Args...); err != nil {
			return err
		}
		s.sink.EmitMethod(callCode(n.Method), n.Method)
		release()

	case *ast.LateInvocationNode:
		return s.emitLateInvocation(n)

	case *ast.PropertyNode:
		return s.emitProperty(n)

	case *ast.LatePropertyNode:
		if err := s.emitExpr(n.Target); err != nil {
			return err
		}
		s.sink.EmitName(codegen.OpLateGet, n.Name.Name)

	case *ast.IndexNode:
		return s.emitIndex(n)

	default:
		return errs.SemanticError.Errorf(e.Offset(), "unexpected expression %T", e)
	}
	return nil
}

func callCode(m *types.Method) byte {
	if m.Static {
		return codegen.OpCall
	}
	return codegen.OpCallVirt
}

func (s *compilerState) emitReference(n *ast.ReferenceNode) error {
	switch sym := s.info.Uses[n].(type) {
	case *symbols.Variable:
		s.sink.EmitLocal(codegen.OpLoadLocal, sym.Local)
	case *symbols.Field:
		f := sym.Field
		switch {
		case f.Literal:
			s.sink.EmitConst(f.Value)
		case f.Static:
			s.sink.EmitField(codegen.OpLoadStaticField, f)
		default:
			s.sink.Emit(codegen.OpLoadHost)
			s.sink.EmitField(codegen.OpLoadField, f)
		}
	default:
		return errs.SemanticError.Errorf(n.Offset(), "'%s' is not a variable", n.Name)
	}
	return nil
}

func noRelease() {}

// emitForInvocation pushes the receiver of an instance member. Values are passed by address; a value that is not
// in a variable is stored to a local first. The returned release must be called once the member instruction has
// been emitted. With immediate set the caller emits that instruction right away, so a temporary local is enough.
func (s *compilerState) emitForInvocation(e ast.Expression, immediate bool) (func(), error) {
	t := e.Type()
	if !t.IsValueType() {
		return noRelease, s.emitExpr(e)
	}
	if ref, ok := e.(*ast.ReferenceNode); ok {
		if v, ok := s.info.Uses[ref].(*symbols.Variable); ok {
			s.sink.EmitLocal(codegen.OpLoadLocalAddr, v.Local)
			return noRelease, nil
		}
	}
	if err := s.emitExpr(e); err != nil {
		return noRelease, err
	}
	tmp := s.checkOutLocal(t, immediate)
	s.sink.EmitLocal(codegen.OpStoreLocal, tmp)
	s.sink.EmitLocal(codegen.OpLoadLocalAddr, tmp)
	if immediate {
		return noRelease, nil
	}
	return func() { s.CheckInLocal(tmp) }, nil
}

func (s *compilerState) emitCall(n *ast.CallNode) error {
	switch sym := s.info.Uses[n].(type) {
	case *symbols.Transform:
		if err := sym.Expand(s, n.Args); err != nil {
			return semantic(err, n.Offset(), "failed to expand '"+sym.Name()+"'")
		}
	case *symbols.Method:
		m := sym.Method
		if !m.Static {
			s.sink.Emit(codegen.OpLoadHost)
		}
		if err := s.emitExprs(n.Args...); err != nil {
			return err
		}
		s.sink.EmitMethod(callCode(m), m)
	default:
		return errs.SemanticError.Errorf(n.Offset(), "'%s' is not a method", n.Name.Name)
	}
	return nil
}

// emitLateInvocation packs the arguments into an object array consumed by the late call.
func (s *compilerState) emitLateInvocation(n *ast.LateInvocationNode) error {
	object := types.Typ[types.Object]
	args := s.checkOutLocal(types.ArrayOf(object, 1), false)
	defer s.CheckInLocal(args)
	s.sink.EmitConst(int32(len(n.Args)))
	s.sink.EmitType(codegen.OpNewArray, object)
	s.sink.EmitLocal(codegen.OpStoreLocal, args)
	for i, a := range n.Args {
		s.sink.EmitLocal(codegen.OpLoadLocal, args)
		s.sink.EmitConst(int32(i))
		if err := s.emitExpr(a); err != nil {
			return err
		}
		s.sink.EmitRank(codegen.OpStoreElem, 1)
	}
	if err := s.emitExpr(n.Target); err != nil {
		return err
	}
	s.sink.EmitLocal(codegen.OpLoadLocal, args)
	s.sink.EmitName(codegen.OpLateCall, n.Name.Name)
	return nil
}

func (s *compilerState) emitProperty(n *ast.PropertyNode) error {
	if f, ok := n.Member.(*types.Field); ok && f.Literal {
		s.sink.EmitConst(f.Value)
		return nil
	}
	static := n.Member.IsStatic()
	if !static {
		if _, err := s.emitForInvocation(n.Target, true); err != nil {
			return err
		}
	}
	switch m := n.Member.(type) {
	case *types.Field:
		if static {
			s.sink.EmitField(codegen.OpLoadStaticField, m)
		} else {
			s.sink.EmitField(codegen.OpLoadField, m)
		}
	case *types.Property:
		if !m.CanRead() {
			return errs.SemanticError.Errorf(n.Name.Offset(), "property '%s' is write-only", m.Name)
		}
		if static {
			s.sink.EmitProperty(codegen.OpGetStaticProperty, m)
		} else {
			s.sink.EmitProperty(codegen.OpGetProperty, m)
		}
	}
	return nil
}

func (s *compilerState) emitIndex(n *ast.IndexNode) error {
	p := n.Indexer
	if p != nil && !p.CanRead() {
		return errs.SemanticError.New(n.Offset(), "indexer is write-only")
	}
	if p == nil || !p.Static {
		if err := s.emitExpr(n.Target); err != nil {
			return err
		}
	}
	if err := s.emitExprs(n.Index...); err != nil {
		return err
	}
	switch {
	case p == nil:
		s.sink.EmitRank(codegen.OpLoadElem, len(n.Index))
	case p.Static:
		s.sink.EmitProperty(codegen.OpGetStaticProperty, p)
	default:
		s.sink.EmitProperty(codegen.OpGetProperty, p)
	}
	return nil
}

// emitStore generates the assignment of value to target.
func (s *compilerState) emitStore(target ast.Lvalue, value ast.Expression) error {
	switch n := target.(type) {
	case *ast.ReferenceNode:
		switch sym := s.info.Uses[n].(type) {
		case *symbols.Variable:
			if err := s.emitExpr(value); err != nil {
				return err
			}
			s.sink.EmitLocal(codegen.OpStoreLocal, sym.Local)
		case *symbols.Field:
			f := sym.Field
			if !f.CanWrite() {
				return errs.SemanticError.Errorf(n.Offset(), "cannot assign to read-only field '%s'", f.Name)
			}
			if f.Static {
				if err := s.emitExpr(value); err != nil {
					return err
				}
				s.sink.EmitField(codegen.OpStoreStaticField, f)
				return nil
			}
			s.sink.Emit(codegen.OpLoadHost)
			if err := s.emitExpr(value); err != nil {
				return err
			}
			s.sink.EmitField(codegen.OpStoreField, f)
		default:
			return errs.SemanticError.Errorf(n.Offset(), "cannot assign to '%s'", n.Name)
		}

	case *ast.PropertyNode:
		return s.emitPropertyStore(n, value)

	case *ast.LatePropertyNode:
		if err := s.emitExprs(n.Target, value); err != nil {
			return err
		}
		s.sink.EmitName(codegen.OpLateSet, n.Name.Name)

	case *ast.IndexNode:
		p := n.Indexer
		if p != nil && !p.CanWrite() {
			return errs.SemanticError.New(n.Offset(), "indexer is read-only")
		}
		if p == nil || !p.Static {
			if err := s.emitExpr(n.Target); err != nil {
				return err
			}
		}
		if err := s.emitExprs(n.Index...); err != nil {
			return err
		}
		if err := s.emitExpr(value); err != nil {
			return err
		}
		switch {
		case p == nil:
			s.sink.EmitRank(codegen.OpStoreElem, len(n.Index))
		case p.Static:
			s.sink.EmitProperty(codegen.OpSetStaticProperty, p)
		default:
			s.sink.EmitProperty(codegen.OpSetProperty, p)
		}

	default:
		return errs.SemanticError.Errorf(target.Offset(), "cannot assign to %T", target)
	}
	return nil
}

func (s *compilerState) emitPropertyStore(n *ast.PropertyNode, value ast.Expression) error {
	writable := false
	switch m := n.Member.(type) {
	case *types.Field:
		writable = m.CanWrite()
	case *types.Property:
		writable = m.CanWrite()
	}
	if !writable {
		return errs.SemanticError.Errorf(n.Name.Offset(), "member '%s' is read-only", n.Name.Name)
	}
	static := n.Member.IsStatic()
	release := noRelease
	if !static {
		var err error
		if release, err = s.emitForInvocation(n.Target, false); err != nil {
			return err
		}
	}
	defer release()
	if err := s.emitExpr(value); err != nil {
		return err
	}
	switch m := n.Member.(type) {
	case *types.Field:
		if static {
			s.sink.EmitField(codegen.OpStoreStaticField, m)
		} else {
			s.sink.EmitField(codegen.OpStoreField, m)
		}
	case *types.Property:
		if static {
			s.sink.EmitProperty(codegen.OpSetStaticProperty, m)
		} else {
			s.sink.EmitProperty(codegen.OpSetProperty, m)
		}
	}
	return nil
}
