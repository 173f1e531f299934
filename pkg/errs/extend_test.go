package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtend(t *testing.T) {
	require.EqualError(t, Extend(errors.New("a"), "b"), "b: a")

	err := Extend(SyntaxError.New(7, "unexpected ';'"), "frame script")
	require.EqualError(t, err, "syntax error at offset 7: frame script: unexpected ';'")
	assert.Equal(t, SyntaxError, KindOf(err))
	assert.Equal(t, 7, OffsetOf(err))
}
