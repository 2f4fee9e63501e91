package merhist

import (
	"errors"
	"fmt"
)

// Application error codes.
//
// These codes classify failures by how the crawl reacts to them: EAUTH and
// ESESSION abort the run, EPAGELOAD aborts one record type, EFETCH skips one
// item, EPAGEFORMAT and EURLFORMAT propagate immediately because retrying a
// structural mismatch cannot help.
const (
	EAUTH       = "auth"        // challenge rejected or relay timed out
	ESESSION    = "session"     // browser session invalidated, recovery exhausted
	EPAGELOAD   = "page_load"   // listing page failed to load after retries
	EPAGEFORMAT = "page_format" // page layout does not match extraction rules
	EURLFORMAT  = "url_format"  // order URL does not match a known shape
	EFETCH      = "fetch"       // per-item detail fetch exhausted retries
	ECONFLICT   = "conflict"    // another process holds the store
	EINVALID    = "invalid"     // validation failed
	ENOTFOUND   = "not_found"   // entity does not exist
	EINTERNAL   = "internal"    // internal error
)

// Error represents an application error with a machine-readable code and a
// human-readable message.
type Error struct {
	Code    string
	Message string

	// Err optionally wraps the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("merhist: code=%s message=%s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("merhist: code=%s message=%s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error".
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error"
}

// Errorf is a helper function to return an Error with a given code and
// formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapErrorf is like Errorf but records err as the underlying cause.
func WrapErrorf(err error, code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}
