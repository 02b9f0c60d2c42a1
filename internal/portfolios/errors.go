package portfolios

import "errors"

var (
	// ErrNotFound indicates the portfolio does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates validation or bad input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden indicates access is not allowed.
	ErrForbidden = errors.New("forbidden")

	// ErrNoHTML indicates the workflow responded but no HTML document
	// could be located in the payload. This is an expected terminal
	// state, not a fault.
	ErrNoHTML = errors.New("no html in workflow response")

	// ErrWorkflowUnreachable indicates the engine could not be reached.
	ErrWorkflowUnreachable = errors.New("workflow engine unreachable")

	// ErrWorkflowTimeout indicates the engine did not answer in time.
	ErrWorkflowTimeout = errors.New("workflow request timed out")

	// ErrWorkflowFailed indicates the engine answered with an error
	// status and no recoverable HTML payload.
	ErrWorkflowFailed = errors.New("workflow request failed")
)
