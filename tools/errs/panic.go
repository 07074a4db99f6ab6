package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

const CodeServerInternal = 9999

// ErrPanic converts a recovered panic value into a CodeError with a stack.
func ErrPanic(r any) error {
	return ErrPanicMsg(r, CodeServerInternal, "panic error")
}

func ErrPanicMsg(r any, code int, msg string) error {
	if r == nil {
		return nil
	}
	err := &CodeError{
		Code:   code,
		Msg:    msg,
		Detail: fmt.Sprint(r),
	}
	return errors.WithStack(err)
}
