package compiler

import (
	"github.com/openvp/affe/pkg/ast"
	"github.com/openvp/affe/pkg/codegen"
	"github.com/openvp/affe/pkg/errs"
	"github.com/openvp/affe/pkg/types"
)

var overloadNames = map[ast.Operator]string{
	ast.Add:  "op_Addition",
	ast.Sub:  "op_Subtraction",
	ast.Mul:  "op_Multiply",
	ast.Div:  "op_Division",
	ast.Mod:  "op_Modulus",
	ast.And:  "op_BitwiseAnd",
	ast.Or:   "op_BitwiseOr",
	ast.Lt:   "op_LessThan",
	ast.Gt:   "op_GreaterThan",
	ast.Lte:  "op_LessThanOrEqual",
	ast.Gte:  "op_GreaterThanOrEqual",
	ast.Eq:   "op_Equality",
	ast.Ne:   "op_Inequality",
	ast.Bor:  "op_LogicalOr",
	ast.Band: "op_LogicalAnd",
}

var arithmeticCodes = map[ast.Operator]byte{
	ast.Add: codegen.OpAdd,
	ast.Sub: codegen.OpSub,
	ast.Mul: codegen.OpMul,
	ast.Div: codegen.OpDiv,
	ast.Mod: codegen.OpRem,
	ast.And: codegen.OpAnd,
	ast.Or:  codegen.OpOr,
}

// findOverload looks for a static operator method taking exactly the operand types, first on the left type.
func findOverload(op ast.Operator, left, right *types.Type) *types.Method {
	name, ok := overloadNames[op]
	if !ok {
		return nil
	}
	params := []*types.Type{left, right}
	for _, t := range []*types.Type{left, right} {
		for _, m := range t.Methods(name, true) {
			if sameTypes(m.Params, params) {
				return m
			}
		}
	}
	return nil
}

func sameTypes(a, b []*types.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CastTo converts an analyzed expression to t, inserting a conversion node when the types differ.
func (s *compilerState) CastTo(e ast.Expression, t *types.Type) (ast.Expression, error) {
	from := e.Type()
	if from == t {
		return e, nil
	}
	if t.Kind() == types.Void {
		return nil, errs.SemanticError.New(e.Offset(), "cannot cast to void")
	}
	if from.Kind() == types.Void {
		return nil, errs.SemanticError.New(e.Offset(), "cannot cast from void")
	}
	if f, ok := e.(*ast.FloatNode); ok && t.Kind() == types.String {
		return ast.NewStringNode(f.Offset(), types.Format(f.Value)), nil
	}
	return s.analyzeCast(ast.NewImplicitCastNode(e, t))
}

// analyzeCast checks a conversion whose operand is analyzed. Conversions to bool become comparisons
// with null or zero.
func (s *compilerState) analyzeCast(n *ast.CastNode) (ast.Expression, error) {
	if n.TypeName != nil {
		tn, err := s.lookupType(n.TypeName)
		if err != nil {
			return nil, errs.SemanticError.Wrap(err, n.TypeName.Offset(), "destination type could not be resolved")
		}
		if tn.Inferred() {
			return nil, errs.SemanticError.New(n.TypeName.Offset(), "destination type must not be the inferencing type")
		}
		n.SetType(tn.Type)
	}
	from, to := n.Operand.Type(), n.Type()
	if from == to {
		return n.Operand, nil
	}
	if from.Kind() == types.Void {
		return nil, errs.SemanticError.New(n.Offset(), "cannot cast from void")
	}
	if to.Kind() == types.Void {
		return nil, errs.SemanticError.New(n.Offset(), "cannot cast to void")
	}
	if to.Kind() == types.Bool {
		if from.IsReference() {
			c := ast.NewOperatorNode(n.Offset(), ast.Ne, n.Operand, ast.NewNullNode(n.Offset()))
			c.SetType(to)
			return c, nil
		}
		return s.analyzeOperator(ast.NewOperatorNode(n.Offset(), ast.Ne, n.Operand, ast.NewIntegerNode(n.Offset(), 0)))
	}
	switch {
	case from.IsValueType() && to.IsReference():
		if !to.IsAssignableFrom(from) {
			return nil, errs.SemanticError.Errorf(n.Offset(), "cannot box %s as %s", from, to)
		}
	case from.IsReference() && to.IsValueType():
		if !from.IsAssignableFrom(to) {
			return nil, errs.SemanticError.Errorf(n.Offset(), "cannot unbox %s as %s", from, to)
		}
	}
	return n, nil
}

// analyzeOperator types a binary operation whose operands are analyzed.
func (s *compilerState) analyzeOperator(n *ast.OperatorNode) (ast.Expression, error) {
	lt, rt := n.Left.Type(), n.Right.Type()
	if m := findOverload(n.Operator, lt, rt); m != nil {
		n.Overload = m
		n.SetType(m.Result)
		return n, nil
	}
	if lt.IsReference() {
		if !rt.IsReference() {
			return nil, errs.SemanticError.New(n.Offset(), "cannot compare reference and value types")
		}
		if n.Operator != ast.Eq && n.Operator != ast.Ne {
			return nil, errs.SemanticError.Errorf(n.Offset(), "cannot apply '%s' to object references", n.Operator)
		}
		n.SetType(types.Typ[types.Bool])
		return n, nil
	}
	if !types.IsNumeric(lt) || !types.IsNumeric(rt) {
		return nil, errs.SemanticError.New(n.Offset(), "cannot operate on non-numeric values")
	}
	var opType *types.Type
	switch n.Operator {
	case ast.And, ast.Or:
		opType = types.Typ[types.Int32]
	case ast.Band, ast.Bor:
		opType = types.Typ[types.Bool]
	default:
		opType = types.FindCompatibleType(lt, rt)
		if n.Operator == ast.Div && !opType.Kind().IsFloat() {
			opType = types.Typ[types.Float32]
		}
	}
	var err error
	if n.Left, err = s.CastTo(n.Left, opType); err != nil {
		return nil, err
	}
	if n.Right, err = s.CastTo(n.Right, opType); err != nil {
		return nil, err
	}
	if n.Operator.IsComparison() {
		n.SetType(types.Typ[types.Bool])
	} else {
		n.SetType(opType)
	}
	return n, nil
}

func (s *compilerState) emitCast(n *ast.CastNode) error {
	if err := s.emitExpr(n.Operand); err != nil {
		return err
	}
	from, to := n.Operand.Type(), n.Type()
	switch {
	case from.IsValueType() && to.IsReference():
		s.sink.EmitType(codegen.OpBox, from)
	case from.IsReference() && to.IsValueType():
		s.sink.EmitType(codegen.OpUnbox, to)
	case from.IsReference():
		if !to.IsAssignableFrom(from) {
			s.sink.EmitType(codegen.OpCastClass, to)
		}
	default:
		s.sink.EmitConv(to.Kind())
	}
	return nil
}

func (s *compilerState) emitOperator(n *ast.OperatorNode) error {
	if n.Overload != nil {
		if err := s.emitExprs(n.Left, n.Right); err != nil {
			return err
		}
		s.sink.EmitMethod(codegen.OpCall, n.Overload)
		return nil
	}
	switch n.Operator {
	case ast.Bor, ast.Band:
		short, end := s.sink.DefineLabel(), s.sink.DefineLabel()
		jump := codegen.OpJumpIfFalse
		if n.Operator == ast.Bor {
			jump = codegen.OpJumpIfTrue
		}
		if err := s.emitExpr(n.Left); err != nil {
			return err
		}
		s.sink.EmitJump(jump, short)
		if err := s.emitExpr(n.Right); err != nil {
			return err
		}
		s.sink.EmitJump(codegen.OpJump, end)
		s.sink.MarkLabel(short)
		s.sink.EmitConst(n.Operator == ast.Bor)
		s.sink.MarkLabel(end)
		return nil
	}
	if err := s.emitExprs(n.Left, n.Right); err != nil {
		return err
	}
	if op, ok := arithmeticCodes[n.Operator]; ok {
		s.sink.Emit(op)
		return nil
	}
	switch n.Operator {
	case ast.Eq:
		s.sink.Emit(codegen.OpCeq)
	case ast.Ne:
		s.sink.Emit(codegen.OpCeq)
		s.sink.Emit(codegen.OpNot)
	case ast.Lt:
		s.sink.Emit(codegen.OpClt)
	case ast.Gt:
		s.sink.Emit(codegen.OpCgt)
	case ast.Lte:
		s.sink.Emit(codegen.OpCgt)
		s.sink.Emit(codegen.OpNot)
	case ast.Gte:
		s.sink.Emit(codegen.OpClt)
		s.sink.Emit(codegen.OpNot)
	default:
		return errs.SemanticError.Errorf(n.Offset(), "'%s' is not a binary operator", n.Operator)
	}
	return nil
}
