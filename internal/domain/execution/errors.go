package execution

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedLanguage is returned when a language is not in the registry.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrCancelled is returned when the caller cancels a job before it completes.
	ErrCancelled = errors.New("job cancelled")
)

// ValidationError reports a malformed job request. It is always raised before
// any sandbox is provisioned.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid job: " + e.Reason
	}
	return fmt.Sprintf("invalid job: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ResourceError reports a failure of the isolation layer itself. It is never
// attributed to the submitted code.
type ResourceError struct {
	Op  string
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("sandbox %s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
