package store

// notFoundError signals a lookup for a model record that does not exist.
type notFoundError struct{ name string }

func (e notFoundError) Error() string { return "model not found: " + e.name }

// ErrNotFound constructs a notFoundError for the given model name.
func ErrNotFound(name string) error { return notFoundError{name: name} }

// IsNotFound reports whether err indicates a missing model record.
func IsNotFound(err error) bool {
	_, ok := err.(notFoundError)
	return ok
}

// validationError signals malformed user input (name, argument, URL).
// Never retried, never partially applied.
type validationError struct{ msg string }

func (e validationError) Error() string { return e.msg }

// ErrValidation constructs a validationError with the given message.
func ErrValidation(msg string) error { return validationError{msg: msg} }

// IsValidation reports whether err indicates invalid user input.
func IsValidation(err error) bool {
	_, ok := err.(validationError)
	return ok
}
