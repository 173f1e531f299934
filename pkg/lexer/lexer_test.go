package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openvp/affe/pkg/errs"
)

func kinds(tokens []Token) []Kind {
	out := make([]Kind, len(tokens))
	for i, t := range tokens {
		out[i] = t.Kind
	}
	return out
}

func TestOperators(t *testing.T) {
	tokens, err := Tokenize("= == ! != | || & && < <= > >= . $ ? : [ ] ( ) { } , ; + - * / %")
	require.NoError(t, err)
	assert.Equal(t, []Kind{
		Assign, Eq, Not, Ne, Or, Bor, And, Band, Lt, Lte, Gt, Gte, Period, Dollar, Question, Colon,
		LBracket, RBracket, LParen, RParen, LBrace, RBrace, Comma, Semi, Add, Minus, Multiply, Divide, Mod, EOF,
	}, kinds(tokens))
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	tokens, err := Tokenize("if else while break continue return true false null iff x1 Abc")
	require.NoError(t, err)
	assert.Equal(t, []Kind{If, Else, While, Break, Continue, Return, True, False, Null, Identifier, Identifier, Identifier, EOF}, kinds(tokens))
	assert.Equal(t, "iff", tokens[9].Value)
	assert.Equal(t, "x1", tokens[10].Value)
}

func TestLiterals(t *testing.T) {
	for _, test := range []struct {
		src   string
		kind  Kind
		value any
	}{
		{"42", Integer, int32(42)},
		{"2147483647", Integer, int32(2147483647)},
		{"2.5", Float, float32(2.5)},
		{"3.", Float, float32(3)},
		{`"abc"`, String, "abc"},
		{`"a\\b"`, String, `a\b`},
		{`"line\n"`, String, "line\n"},
		{`"q\"x"`, String, `q"x`},
		{`"\t"`, String, "t"},
	} {
		tokens, err := Tokenize(test.src)
		require.NoError(t, err, test.src)
		require.Len(t, tokens, 2, test.src)
		assert.Equal(t, test.kind, tokens[0].Kind, test.src)
		assert.Equal(t, test.value, tokens[0].Value, test.src)
	}
}

func TestLexErrors(t *testing.T) {
	for _, test := range []struct {
		src    string
		offset int
	}{
		{`x = "abc`, 4},
		{"x = 1.2.3;", 4},
		{"x = 12ab;", 4},
		{"x = 2147483648;", 4},
		{"x = #;", 4},
	} {
		_, err := Tokenize(test.src)
		require.Error(t, err, test.src)
		assert.Equal(t, errs.LexError, errs.KindOf(err), test.src)
		assert.Equal(t, test.offset, errs.OffsetOf(err), test.src)
	}
}

func TestCommentsAndOffsets(t *testing.T) {
	src := "a = 1; // b = 2;\n  c"
	tokens, err := Tokenize(src)
	require.NoError(t, err)
	assert.Equal(t, []Kind{Identifier, Assign, Integer, Semi, Identifier, EOF}, kinds(tokens))
	assert.Equal(t, 0, tokens[0].Offset)
	assert.Equal(t, 4, tokens[2].Offset)
	assert.Equal(t, 19, tokens[4].Offset)
	assert.Equal(t, len(src), tokens[5].Offset)

	line, col := Position(src, tokens[4].Offset)
	assert.Equal(t, 2, line)
	assert.Equal(t, 3, col)
}

func TestEOFIsSticky(t *testing.T) {
	l := New("x")
	assert.Equal(t, Identifier, l.Next().Kind)
	assert.Equal(t, EOF, l.Next().Kind)
	assert.Equal(t, EOF, l.Next().Kind)
}

func TestIsIdentifier(t *testing.T) {
	assert.True(t, IsIdentifier("red"))
	assert.True(t, IsIdentifier("x2"))
	assert.False(t, IsIdentifier("2x"))
	assert.False(t, IsIdentifier("a_b"))
	assert.False(t, IsIdentifier(""))
	assert.False(t, IsIdentifier("while"))
}
