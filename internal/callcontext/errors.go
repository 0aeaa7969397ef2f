package callcontext

import "errors"

var (
	// ErrNotFound means no context exists for the given call ID.
	ErrNotFound = errors.New("call context not found")

	// ErrAlreadyExists means a context for the call ID is still active and
	// idempotent reuse was not requested.
	ErrAlreadyExists = errors.New("call context already exists")

	// ErrCallEnded means the call reached its terminal state and no further
	// turns can be recorded.
	ErrCallEnded = errors.New("call has ended")
)
