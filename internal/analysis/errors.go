package analysis

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrAlreadyRunning  = errors.New("analysis already running for link")
)

const (
	ErrorCodeValidation = "VALIDATION_ERROR"
	ErrorCodeUpstream   = "ASSESSMENT_UPSTREAM_ERROR"
	ErrorCodeInternal   = "INTERNAL_ERROR"
)

// RequestError is a failure reported by the assessment service before any
// stream bytes were delivered. Its message becomes the session error verbatim.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string { return e.Message }
