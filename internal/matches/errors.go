package matches

import "errors"

var (
	ErrNotFound           = errors.New("match not found")
	ErrNotPending         = errors.New("match is not pending review")
	ErrInactive           = errors.New("match is inactive")
	ErrEmptyResponse      = errors.New("edited response must not be empty")
	ErrTransitionInFlight = errors.New("a transition for this match is already in flight")
)

const (
	ErrorCodeValidation = "VALIDATION_ERROR"
	ErrorCodeConflict   = "TRANSITION_CONFLICT"
	ErrorCodeStore      = "STORE_ERROR"
)
