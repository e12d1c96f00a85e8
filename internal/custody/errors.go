package custody

import "errors"

var (
	// ErrInvalidRange is returned when the requested range end is not after its start
	ErrInvalidRange = errors.New("invalid range")

	// ErrInvalidConfiguration is returned for missing or unsupported rule settings
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnresolvedOverlap means two windows still overlap after the override merge.
	// It signals a bug in the merge, never bad input.
	ErrUnresolvedOverlap = errors.New("unresolved overlap")
)
