package errs

import (
	"github.com/pkg/errors"
)

// IExtend is implemented by errors that keep their classification when extended with context.
type IExtend interface {
	Extend(message string) error
}

// Extend adds message to err. Classified errors keep their kind and offset.
func Extend(err error, message string) error {
	if ex, ok := err.(IExtend); ok {
		return ex.Extend(message)
	}
	return errors.Wrap(err, message)
}
