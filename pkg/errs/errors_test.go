package errs

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindConstructors(t *testing.T) {
	for _, test := range []struct {
		err    error
		kind   Kind
		offset int
		text   string
	}{
		{LexError.New(3, "unterminated string"), LexError, 3, "lex error at offset 3: unterminated string"},
		{SyntaxError.Errorf(7, "unexpected %s", "'}'"), SyntaxError, 7, "syntax error at offset 7: unexpected '}'"},
		{SemanticError.Wrap(errors.New("ambiguous"), 0, "method call"), SemanticError, 0, "semantic error at offset 0: method call: ambiguous"},
		{RuntimeError.New(NoOffset, "limit"), RuntimeError, NoOffset, "runtime error: limit"},
	} {
		assert.Equal(t, test.kind, KindOf(test.err))
		assert.Equal(t, test.offset, OffsetOf(test.err))
		assert.EqualError(t, test.err, test.text)
	}
}

func TestKindThroughWrapping(t *testing.T) {
	err := errors.Wrap(SemanticError.New(12, "unknown identifier 'q'"), "compile")
	require.Equal(t, SemanticError, KindOf(err))
	require.Equal(t, 12, OffsetOf(err))
	require.True(t, errors.Is(err, SemanticError.New(0, "")))
	require.False(t, errors.Is(err, LexError.New(0, "")))
}

func TestUnclassified(t *testing.T) {
	err := errors.New("plain")
	assert.Equal(t, Undefined, KindOf(err))
	assert.Equal(t, NoOffset, OffsetOf(err))
}

func TestExtendKeepsKind(t *testing.T) {
	err := Extend(RuntimeError.New(NoOffset, "a"), "b")
	require.EqualError(t, err, "runtime error: b: a")
	require.Equal(t, RuntimeError, KindOf(err))
}
