package hades

import (
	"errors"
	"fmt"
)

var (
	ErrNoRows                   = errors.New("no rows found")
	ErrBlankQuery               = errors.New("blank query")
	ErrClosed                   = errors.New("database is closed")
	ErrInvalidArgument          = errors.New("invalid argument")
	ErrInvalidClauseCombination = errors.New("invalid clause combination")
	ErrEmptyConditionGroup      = errors.New("empty condition group")
	ErrNoPrimaryKey             = errors.New("no primary key")
)

// ExecError is a failed database round trip. Code carries the
// driver's numeric error code when one is available.
type ExecError struct {
	Code    int
	Message string
	wrapped error
}

func (err *ExecError) Error() string {
	if err.Code != 0 {
		return fmt.Sprintf("statement failed with code %d: %s", err.Code, err.Message)
	}

	return fmt.Sprintf("statement failed: %s", err.Message)
}

func (err *ExecError) Unwrap() error {
	return err.wrapped
}
