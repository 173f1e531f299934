package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	Undefined = Kind(iota)
	LexError
	SyntaxError
	SemanticError
	RuntimeError
)

// NoOffset marks errors that are not attached to a source position.
const NoOffset = -1

// Kind classifies failures of the compiler pipeline and of compiled code.
type Kind uint

func (k Kind) String() string {
	switch k {
	case LexError:
		return "lex error"
	case SyntaxError:
		return "syntax error"
	case SemanticError:
		return "semantic error"
	case RuntimeError:
		return "runtime error"
	default:
		return "undefined error"
	}
}

// Error is a classified error with the source offset that triggered it.
type Error struct {
	kind   Kind
	offset int
	cause  error
}

func (e *Error) Error() string {
	if e.offset < 0 {
		return fmt.Sprintf("%s: %s", e.kind, e.cause)
	}
	return fmt.Sprintf("%s at offset %d: %s", e.kind, e.offset, e.cause)
}

func (e *Error) Kind() Kind {
	return e.kind
}

func (e *Error) Offset() int {
	return e.offset
}

func (e *Error) Cause() error {
	return e.cause
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) Extend(message string) error {
	return &Error{kind: e.kind, offset: e.offset, cause: errors.Wrap(e.cause, message)}
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.kind == e.kind
}

func (k Kind) New(offset int, msg string) error {
	return &Error{kind: k, offset: offset, cause: errors.New(msg)}
}

func (k Kind) Errorf(offset int, msg string, args ...interface{}) error {
	return &Error{kind: k, offset: offset, cause: errors.Errorf(msg, args...)}
}

func (k Kind) Wrap(err error, offset int, msg string) error {
	return &Error{kind: k, offset: offset, cause: errors.Wrap(err, msg)}
}

func (k Kind) Wrapf(err error, offset int, msg string, args ...interface{}) error {
	return &Error{kind: k, offset: offset, cause: errors.Wrapf(err, msg, args...)}
}

// KindOf returns the kind of the first classified error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return Undefined
}

// OffsetOf returns the source offset of the first classified error in the chain.
func OffsetOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.offset
	}
	return NoOffset
}
