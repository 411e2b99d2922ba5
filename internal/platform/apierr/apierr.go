// Package apierr carries an HTTP status and a machine-readable code from
// the service layer to the response layer without the services importing
// gin.
package apierr

import "fmt"

// Error is a status-coded error. Any field may be zero; the response layer
// falls back to its own defaults for missing parts.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a status and code for the response layer.
func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}
