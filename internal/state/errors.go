package state

import "git.home.luguber.info/inful/daytrack/internal/foundation/errors"

var (
	// ErrInvalidUserID indicates a user id that cannot be used as a file name.
	ErrInvalidUserID = errors.ValidationError("invalid user id").Build()

	// ErrReadFailed indicates a state document could not be read or decoded.
	ErrReadFailed = errors.StoreError("failed to read user state").Build()

	// ErrWriteFailed indicates a state document could not be written.
	ErrWriteFailed = errors.StoreError("failed to write user state").Build()
)
