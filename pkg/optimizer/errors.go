package optimizer

import (
	"errors"
	"fmt"
)

// InternalError reports a broken planner invariant. Rules decline by
// returning their input unchanged; an InternalError always means a bug,
// never an unsupported plan shape.
type InternalError struct {
	msg string
}

func (e *InternalError) Error() string {
	return "internal planner error: " + e.msg
}

// InternalErrorf creates an InternalError with a formatted message.
func InternalErrorf(format string, args ...interface{}) error {
	return &InternalError{msg: fmt.Sprintf(format, args...)}
}

// IsInternalError reports whether err wraps an InternalError.
func IsInternalError(err error) bool {
	var ie *InternalError
	return errors.As(err, &ie)
}
