// Package imgerr defines the error categories shared by every stage of the
// resize pipeline. Callers wrap one of the sentinels with fmt.Errorf("...: %w")
// and test the category with errors.Is.
package imgerr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration reports malformed or contradictory settings.
	// It is raised before any pixel is decoded and is never retried.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnsupported reports a conversion or transform that the decoder,
	// encoder or pipeline cannot perform.
	ErrUnsupported = errors.New("unsupported operation")

	// ErrUpstreamIO reports a source that failed or ended mid-frame.
	ErrUpstreamIO = errors.New("upstream read failure")

	// ErrResourceExhausted reports a buffer that could not grow within its limit.
	ErrResourceExhausted = errors.New("resource exhausted")
)

// Invalid returns an ErrInvalidConfiguration with a formatted reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

// Unsupported returns an ErrUnsupported with a formatted reason.
func Unsupported(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, fmt.Sprintf(format, args...))
}

// Upstream wraps err as an ErrUpstreamIO. A nil err yields nil.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUpstreamIO, err)
}

// Exhausted returns an ErrResourceExhausted with a formatted reason.
func Exhausted(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrResourceExhausted, fmt.Sprintf(format, args...))
}
