package supervise

import "fmt"

// childExitError signals that the supervised child exited with a code that is
// neither clean nor part of a restart. The supervisor does not retry these.
type childExitError struct{ code int }

func (e childExitError) Error() string {
	return fmt.Sprintf("child process exited with code %d", e.code)
}

// ErrChildExit constructs a childExitError for the given exit code.
func ErrChildExit(code int) error { return childExitError{code: code} }

// IsChildExit reports whether err is a fatal child exit, returning the code.
func IsChildExit(err error) (int, bool) {
	e, ok := err.(childExitError)
	return e.code, ok
}
