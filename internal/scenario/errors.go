package scenario

import (
	"errors"
	"fmt"
)

// AssertionError is a failed contract check. It carries the page URL at the
// time of the failure for diagnosis.
type AssertionError struct {
	Check   string
	Message string
	URL     string
	// Err is the underlying cause, when the check wraps one.
	Err error
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion %s failed: %s (url: %s)", e.Check, e.Message, e.URL)
}

func (e *AssertionError) Unwrap() error { return e.Err }

// IsAssertion reports whether err is, or wraps, an AssertionError.
func IsAssertion(err error) bool {
	var ae *AssertionError
	return errors.As(err, &ae)
}
