package transition

import (
	"errors"
	"fmt"
)

// ErrNoAction is wrapped by ActionError when a submission targets a route
// without an action.
var ErrNoAction = errors.New("route has no action")

// ErrPanic is wrapped by errors recovered from a panicking loader or action.
var ErrPanic = errors.New("panic in route handler")

// LoaderError reports a failed loader.
type LoaderError struct {
	RouteID string
	Err     error
}

func (e *LoaderError) Error() string {
	return fmt.Sprintf("loader %s: %v", e.RouteID, e.Err)
}

func (e *LoaderError) Unwrap() error {
	return e.Err
}

// ActionError reports a failed submission.
type ActionError struct {
	RouteID string
	Err     error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %s: %v", e.RouteID, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}
