package cmdenv

import (
	"github.com/papercomputeco/memdeck/pkg/memory"
)

// userError shows the friendly message for a memory error while keeping the
// original in the chain for errors.Is and errors.As.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string {
	return e.msg
}

func (e *userError) Unwrap() error {
	return e.err
}

// UserError rewrites err for the terminal. Transport failures keep their
// detail since that is what the user needs to fix them.
func UserError(err error) error {
	if err == nil {
		return nil
	}
	msg := memory.UserMessage(err)
	if memory.IsTransport(err) {
		msg += " (" + err.Error() + ")"
	}
	return &userError{msg: msg, err: err}
}
