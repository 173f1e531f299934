package lexer

import (
	"math"
	"strconv"
	"strings"

	"github.com/openvp/affe/pkg/errs"
)

// Lexer splits Affe source into tokens, one per call to Next.
type Lexer struct {
	input string
	pos   int
}

func New(input string) *Lexer {
	return &Lexer{input: input}
}

func IsLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func IsDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// IsIdentifier reports whether s is a well-formed identifier.
func IsIdentifier(s string) bool {
	if s == "" || !IsLetter(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !IsLetter(s[i]) && !IsDigit(s[i]) {
			return false
		}
	}
	_, kw := keywords[s]
	return !kw
}

func (l *Lexer) peek(ahead int) byte {
	if l.pos+ahead >= len(l.input) {
		return 0
	}
	return l.input[l.pos+ahead]
}

func (l *Lexer) skipBlank() {
	for l.pos < len(l.input) {
		switch c := l.input[l.pos]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			l.pos++
		case c == '/' && l.peek(1) == '/':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

// Next returns the next token. At the end of input it keeps returning EOF.
func (l *Lexer) Next() Token {
	l.skipBlank()
	start := l.pos
	if l.pos >= len(l.input) {
		return Token{Kind: EOF, Offset: start}
	}
	c := l.input[l.pos]
	switch {
	case IsLetter(c):
		return l.identifier(start)
	case IsDigit(c):
		return l.number(start)
	case c == '"':
		return l.str(start)
	}
	l.pos++
	tok := func(k Kind) Token { return Token{Kind: k, Offset: start} }
	pair := func(next byte, double, single Kind) Token {
		if l.peek(0) == next {
			l.pos++
			return tok(double)
		}
		return tok(single)
	}
	switch c {
	case ';':
		return tok(Semi)
	case ',':
		return tok(Comma)
	case '(':
		return tok(LParen)
	case ')':
		return tok(RParen)
	case '{':
		return tok(LBrace)
	case '}':
		return tok(RBrace)
	case '[':
		return tok(LBracket)
	case ']':
		return tok(RBracket)
	case '.':
		return tok(Period)
	case '$':
		return tok(Dollar)
	case '?':
		return tok(Question)
	case ':':
		return tok(Colon)
	case '+':
		return tok(Add)
	case '-':
		return tok(Minus)
	case '*':
		return tok(Multiply)
	case '/':
		return tok(Divide)
	case '%':
		return tok(Mod)
	case '=':
		return pair('=', Eq, Assign)
	case '!':
		return pair('=', Ne, Not)
	case '<':
		return pair('=', Lte, Lt)
	case '>':
		return pair('=', Gte, Gt)
	case '|':
		return pair('|', Bor, Or)
	case '&':
		return pair('&', Band, And)
	}
	return Token{Kind: Illegal, Value: "unexpected character " + strconv.QuoteRune(rune(c)), Offset: start}
}

func (l *Lexer) identifier(start int) Token {
	for l.pos < len(l.input) && (IsLetter(l.input[l.pos]) || IsDigit(l.input[l.pos])) {
		l.pos++
	}
	id := l.input[start:l.pos]
	if k, ok := keywords[id]; ok {
		return Token{Kind: k, Offset: start}
	}
	return Token{Kind: Identifier, Value: id, Offset: start}
}

func (l *Lexer) number(start int) Token {
	period := false
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == '.' {
			if period {
				return Token{Kind: Illegal, Value: "malformed numeric literal", Offset: start}
			}
			period = true
		} else if !IsDigit(c) {
			break
		}
		l.pos++
	}
	if IsLetter(l.peek(0)) {
		return Token{Kind: Illegal, Value: "malformed numeric literal", Offset: start}
	}
	text := l.input[start:l.pos]
	if period {
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return Token{Kind: Illegal, Value: "malformed float literal", Offset: start}
		}
		return Token{Kind: Float, Value: float32(f), Offset: start}
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil || v > math.MaxInt32 {
		return Token{Kind: Illegal, Value: "integer overflow in constant", Offset: start}
	}
	return Token{Kind: Integer, Value: int32(v), Offset: start}
}

func (l *Lexer) str(start int) Token {
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		l.pos++
		switch c {
		case '"':
			return Token{Kind: String, Value: sb.String(), Offset: start}
		case '\\':
			if l.pos >= len(l.input) {
				break
			}
			e := l.input[l.pos]
			l.pos++
			if e == 'n' {
				sb.WriteByte('\n')
			} else {
				sb.WriteByte(e)
			}
		default:
			sb.WriteByte(c)
		}
	}
	return Token{Kind: Illegal, Value: "unterminated string", Offset: start}
}

// Tokenize returns every token of input up to and including EOF, or the first lex error.
func Tokenize(input string) ([]Token, error) {
	l := New(input)
	var out []Token
	for {
		t := l.Next()
		if t.Kind == Illegal {
			return out, errs.LexError.New(t.Offset, t.Value.(string))
		}
		out = append(out, t)
		if t.Kind == EOF {
			return out, nil
		}
	}
}

// Position converts a byte offset into a 1-based line and column.
func Position(input string, offset int) (line, column int) {
	if offset > len(input) {
		offset = len(input)
	}
	line = 1 + strings.Count(input[:max(offset, 0)], "\n")
	column = offset - strings.LastIndexByte(input[:max(offset, 0)], '\n')
	return line, column
}
