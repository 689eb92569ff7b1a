package utils

import (
	"fmt"
	"runtime/debug"
)

type stackError struct {
	err   error
	stack []byte
}

func (e *stackError) Error() string {
	return fmt.Sprintf("%v\nStack trace:\n%s", e.err, e.stack)
}

func (e *stackError) Unwrap() error {
	return e.err
}

// WithStack はエラーに発生箇所のスタックトレースを付与します
// errors.Is/Asで元のエラーを辿れます
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*stackError); ok {
		return err
	}
	return &stackError{err: err, stack: debug.Stack()}
}
