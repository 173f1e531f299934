package parser

import (
	"io"

	"github.com/pkg/errors"

	"github.com/openvp/affe/pkg/ast"
	"github.com/openvp/affe/pkg/errs"
	"github.com/openvp/affe/pkg/lexer"
)

// Parse builds the syntax tree of an Affe program. The first lex or syntax error aborts parsing.
func Parse(src string) (*ast.BlockNode, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	return p.program()
}

// ParseReader parses the whole content of r.
func ParseReader(r io.Reader) (*ast.BlockNode, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read source")
	}
	return Parse(string(b))
}

type parser struct {
	lex *lexer.Lexer
	buf []lexer.Token
}

func newParser(src string) (*parser, error) {
	p := &parser{lex: lexer.New(src)}
	p.buf = append(p.buf, p.lex.Next())
	return p, p.check()
}

func (p *parser) cur() lexer.Token {
	return p.buf[0]
}

func (p *parser) peek(n int) lexer.Token {
	for len(p.buf) <= n {
		p.buf = append(p.buf, p.lex.Next())
	}
	return p.buf[n]
}

func (p *parser) check() error {
	if t := p.cur(); t.Kind == lexer.Illegal {
		return errs.LexError.New(t.Offset, t.Value.(string))
	}
	return nil
}

func (p *parser) advance() error {
	p.buf = p.buf[1:]
	if len(p.buf) == 0 {
		p.buf = append(p.buf, p.lex.Next())
	}
	return p.check()
}

func (p *parser) unexpected() error {
	t := p.cur()
	return errs.SyntaxError.Errorf(t.Offset, "unexpected %s", t)
}

func (p *parser) expect(k lexer.Kind) (lexer.Token, error) {
	t := p.cur()
	if t.Kind != k {
		return t, errs.SyntaxError.Errorf(t.Offset, "expected %s, found %s", k, t)
	}
	return t, p.advance()
}

func (p *parser) identifier() (*ast.Identifier, error) {
	t, err := p.expect(lexer.Identifier)
	if err != nil {
		return nil, err
	}
	return ast.NewIdentifier(t.Offset, t.Value.(string)), nil
}

func (p *parser) program() (*ast.BlockNode, error) {
	statements, err := p.statements(lexer.EOF)
	if err != nil {
		return nil, err
	}
	return ast.NewBlockNode(0, statements), nil
}

// statements parses statements until the terminator, which is left unconsumed.
func (p *parser) statements(end lexer.Kind) ([]ast.Statement, error) {
	out := make([]ast.Statement, 0)
	for p.cur().Kind != end {
		s, err := p.statement()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (p *parser) block() (*ast.BlockNode, error) {
	t := p.cur()
	if t.Kind != lexer.LBrace {
		s, err := p.statement()
		if err != nil {
			return nil, err
		}
		return ast.NewBlockNode(t.Offset, []ast.Statement{s}), nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	statements, err := p.statements(lexer.RBrace)
	if err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return ast.NewBlockNode(t.Offset, statements), nil
}

func (p *parser) terminated(s ast.Statement) (ast.Statement, error) {
	if _, err := p.expect(lexer.Semi); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *parser) statement() (ast.Statement, error) {
	t := p.cur()
	switch t.Kind {
	case lexer.If:
		return p.ifStatement()
	case lexer.While:
		return p.whileStatement()
	case lexer.Break, lexer.Continue, lexer.Return:
		if err := p.advance(); err != nil {
			return nil, err
		}
		switch t.Kind {
		case lexer.Break:
			return p.terminated(ast.NewBreakNode(t.Offset))
		case lexer.Continue:
			return p.terminated(ast.NewContinueNode(t.Offset))
		default:
			return p.terminated(ast.NewReturnNode(t.Offset))
		}
	case lexer.Identifier:
		switch p.peek(1).Kind {
		case lexer.Identifier:
			return p.declaration()
		case lexer.Not:
			return p.persistentDeclaration()
		}
	}
	return p.simpleStatement()
}

func (p *parser) ifStatement() (ast.Statement, error) {
	t := p.cur()
	if err := p.advance(); err != nil {
		return nil, err
	}
	cond, err := p.parenthesized()
	if err != nil {
		return nil, err
	}
	then, err := p.block()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != lexer.Else {
		return ast.NewIfNode(t.Offset, cond, then), nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	els, err := p.block()
	if err != nil {
		return nil, err
	}
	return ast.NewIfElseNode(t.Offset, cond, then, els), nil
}

func (p *parser) whileStatement() (ast.Statement, error) {
	t := p.cur()
	if err := p.advance(); err != nil {
		return nil, err
	}
	cond, err := p.parenthesized()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return ast.NewWhileNode(t.Offset, cond, body), nil
}

func (p *parser) parenthesized() (ast.Expression, error) {
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	e, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	return e, nil
}

// declaration parses "Type name = expr;".
func (p *parser) declaration() (ast.Statement, error) {
	typeName, err := p.identifier()
	if err != nil {
		return nil, err
	}
	name, err := p.identifier()
	if err != nil {
		return nil, err
	}
	assign, err := p.expect(lexer.Assign)
	if err != nil {
		return nil, err
	}
	value, err := p.expression()
	if err != nil {
		return nil, err
	}
	return p.terminated(ast.NewDeclarationNode(assign.Offset, typeName, name, value))
}

// persistentDeclaration parses "Type ! name;".
func (p *parser) persistentDeclaration() (ast.Statement, error) {
	typeName, err := p.identifier()
	if err != nil {
		return nil, err
	}
	not, err := p.expect(lexer.Not)
	if err != nil {
		return nil, err
	}
	name, err := p.identifier()
	if err != nil {
		return nil, err
	}
	return p.terminated(ast.NewPersistentDeclarationNode(not.Offset, typeName, name))
}

// simpleStatement parses an assignment or a call whose result is discarded.
func (p *parser) simpleStatement() (ast.Statement, error) {
	e, err := p.postfix()
	if err != nil {
		return nil, err
	}
	t := p.cur()
	switch t.Kind {
	case lexer.Assign:
		target, ok := e.(ast.Lvalue)
		if !ok {
			return nil, errs.SyntaxError.New(t.Offset, "left side of assignment is not assignable")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		value, err := p.expression()
		if err != nil {
			return nil, err
		}
		return p.terminated(ast.NewAssignmentNode(t.Offset, target, value))
	case lexer.Semi:
		switch c := e.(type) {
		case *ast.CallNode:
			return p.terminated(ast.NewCallStatementNode(c.Offset(), c))
		case *ast.InvocationNode, *ast.LateInvocationNode:
			return p.terminated(ast.NewInvocationStatementNode(c.Offset(), c))
		}
	}
	return nil, p.unexpected()
}

func (p *parser) expression() (ast.Expression, error) {
	cond, err := p.binary(0)
	if err != nil {
		return nil, err
	}
	q := p.cur()
	if q.Kind != lexer.Question {
		return cond, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	ifTrue, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Colon); err != nil {
		return nil, err
	}
	ifFalse, err := p.expression()
	if err != nil {
		return nil, err
	}
	return ast.NewConditionalNode(q.Offset, cond, ifTrue, ifFalse), nil
}

// levels lists the left-associative binary operators from the loosest to the tightest binding.
var levels = []map[lexer.Kind]ast.Operator{
	{lexer.Bor: ast.Bor},
	{lexer.Band: ast.Band},
	{lexer.Or: ast.Or},
	{lexer.And: ast.And},
	{lexer.Eq: ast.Eq, lexer.Ne: ast.Ne},
	{lexer.Lt: ast.Lt, lexer.Gt: ast.Gt, lexer.Lte: ast.Lte, lexer.Gte: ast.Gte},
	{lexer.Add: ast.Add, lexer.Minus: ast.Sub},
	{lexer.Multiply: ast.Mul, lexer.Divide: ast.Div, lexer.Mod: ast.Mod},
}

func (p *parser) binary(level int) (ast.Expression, error) {
	if level == len(levels) {
		return p.unary()
	}
	left, err := p.binary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		t := p.cur()
		op, ok := levels[level][t.Kind]
		if !ok {
			return left, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.binary(level + 1)
		if err != nil {
			return nil, err
		}
		left = ast.NewOperatorNode(t.Offset, op, left, right)
	}
}

func startsUnary(k lexer.Kind) bool {
	switch k {
	case lexer.Identifier, lexer.Integer, lexer.Float, lexer.String, lexer.True, lexer.False, lexer.Null,
		lexer.LParen, lexer.Minus, lexer.Not:
		return true
	default:
		return false
	}
}

func (p *parser) unary() (ast.Expression, error) {
	t := p.cur()
	switch t.Kind {
	case lexer.Minus, lexer.Not:
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		op := ast.Neg
		if t.Kind == lexer.Not {
			op = ast.Not
		}
		return ast.NewUnaryNode(t.Offset, op, operand), nil
	case lexer.LParen:
		// "(name) x" is a cast of x to the type name; a lone "(name)" is a plain reference.
		if p.peek(1).Kind == lexer.Identifier && p.peek(2).Kind == lexer.RParen {
			if err := p.advance(); err != nil {
				return nil, err
			}
			name, err := p.identifier()
			if err != nil {
				return nil, err
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			if !startsUnary(p.cur().Kind) {
				return ast.NewReferenceNode(name.Offset(), name.Name), nil
			}
			operand, err := p.unary()
			if err != nil {
				return nil, err
			}
			return ast.NewCastNode(t.Offset, name, operand), nil
		}
	}
	return p.postfix()
}

// postfix parses a primary value followed by member accesses and calls, then by index lists.
func (p *parser) postfix() (ast.Expression, error) {
	e, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == lexer.Period || p.cur().Kind == lexer.Dollar {
		t := p.cur()
		if err := p.advance(); err != nil {
			return nil, err
		}
		name, err := p.identifier()
		if err != nil {
			return nil, err
		}
		late := t.Kind == lexer.Dollar
		if p.cur().Kind != lexer.LParen {
			if late {
				e = ast.NewLatePropertyNode(t.Offset, e, name)
			} else {
				e = ast.NewPropertyNode(t.Offset, e, name)
			}
			continue
		}
		args, err := p.arguments(lexer.LParen, lexer.RParen, true)
		if err != nil {
			return nil, err
		}
		if late {
			e = ast.NewLateInvocationNode(t.Offset, e, name, args)
		} else {
			e = ast.NewInvocationNode(t.Offset, e, name, args)
		}
	}
	for p.cur().Kind == lexer.LBracket {
		t := p.cur()
		index, err := p.arguments(lexer.LBracket, lexer.RBracket, false)
		if err != nil {
			return nil, err
		}
		e = ast.NewIndexNode(t.Offset, e, index)
	}
	return e, nil
}

// arguments parses a comma separated expression list between open and close.
func (p *parser) arguments(open, close lexer.Kind, optional bool) ([]ast.Expression, error) {
	if _, err := p.expect(open); err != nil {
		return nil, err
	}
	out := make([]ast.Expression, 0)
	if optional && p.cur().Kind == close {
		return out, p.advance()
	}
	for {
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if p.cur().Kind != lexer.Comma {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(close); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *parser) primary() (ast.Expression, error) {
	t := p.cur()
	var e ast.Expression
	switch t.Kind {
	case lexer.Identifier:
		if p.peek(1).Kind == lexer.LParen {
			name, err := p.identifier()
			if err != nil {
				return nil, err
			}
			lp := p.cur()
			args, err := p.arguments(lexer.LParen, lexer.RParen, true)
			if err != nil {
				return nil, err
			}
			return ast.NewCallNode(lp.Offset, name, args), nil
		}
		e = ast.NewReferenceNode(t.Offset, t.Value.(string))
	case lexer.Integer:
		e = ast.NewIntegerNode(t.Offset, t.Value.(int32))
	case lexer.Float:
		e = ast.NewFloatNode(t.Offset, t.Value.(float32))
	case lexer.String:
		e = ast.NewStringNode(t.Offset, t.Value.(string))
	case lexer.True, lexer.False:
		e = ast.NewBooleanNode(t.Offset, t.Kind == lexer.True)
	case lexer.Null:
		e = ast.NewNullNode(t.Offset)
	case lexer.LParen:
		return p.parenthesized()
	default:
		return nil, p.unexpected()
	}
	return e, p.advance()
}
