// Package errs declares the sentinel errors shared by codec, bitmap, and
// timingwheel. Call sites wrap these with fmt.Errorf("%w: detail", errs.ErrX)
// rather than constructing ad-hoc error strings, so callers can use
// errors.Is against a stable value.
package errs

import "errors"

var (
	// ErrFormatUnknownTag is returned when a decode sees a tag byte that
	// does not map to any known codec or container kind.
	ErrFormatUnknownTag = errors.New("unknown format tag")

	// ErrFormatTruncated is returned when a decode runs out of input
	// bytes before the payload it expects is fully consumed.
	ErrFormatTruncated = errors.New("truncated buffer")

	// ErrFormatCountMismatch is returned when a decode observes a value
	// count that disagrees with the caller-supplied expectation.
	ErrFormatCountMismatch = errors.New("value count mismatch")

	// ErrInvalidRange is returned when a [low, high) range argument is
	// malformed (low > high) or outside a container's fixed domain.
	ErrInvalidRange = errors.New("invalid range")

	// ErrInvalidArgument is returned for any other out-of-domain input
	// rejected at entry before any state changes.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAllocationFailed is returned when a container or wheel cannot
	// grow to satisfy a request.
	ErrAllocationFailed = errors.New("allocation failed")

	// ErrIdentifierSpaceExhausted is returned when the timer identifier
	// counter has saturated at 2^64.
	ErrIdentifierSpaceExhausted = errors.New("timer identifier space exhausted")
)
