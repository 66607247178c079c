package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Code classifies an error with an http-equivalent status code
type Code int

const (
	// Config indicates an invalid clause combination caught before any network call
	Config Code = http.StatusBadRequest
	// Authentication indicates the backend rejected the supplied credentials
	Authentication Code = http.StatusUnauthorized
	// Forbidden indicates the credentials lack access to the target resource
	Forbidden Code = http.StatusForbidden
	// NotFound indicates the target collection or resource does not exist
	NotFound Code = http.StatusNotFound
	// Validation indicates the backend rejected the request with field-level detail
	Validation Code = http.StatusUnprocessableEntity
	// RateLimit indicates the backend throttled the request
	RateLimit Code = http.StatusTooManyRequests
	// Internal indicates a transient backend failure
	Internal Code = http.StatusInternalServerError
	// Transport indicates a network or timeout failure before a response arrived
	Transport Code = 599
	// Exhausted indicates the retry budget was spent on a retryable failure
	Exhausted Code = 598
)

// Error is a custom error
type Error struct {
	Code     Code     `json:"code"`
	Messages []string `json:"messages"`
	Err      error    `json:"err,omitempty"`
}

// Error returns the Error as a json string
func (e *Error) Error() string {
	if e.Code == 0 {
		e.Code = http.StatusOK
	}
	bits, _ := json.Marshal(e)
	return string(bits)
}

// Unwrap returns the underlying error (if one exists)
func (e *Error) Unwrap() error {
	return e.Err
}

// RemoveError removes the error from the Error and leaves it's messages and code
func (e *Error) RemoveError() *Error {
	return &Error{
		Code:     e.Code,
		Messages: e.Messages,
		Err:      nil,
	}
}

// New creates a new Error with the given code and formatted message
func New(code Code, msg string, args ...any) error {
	return &Error{
		Code:     code,
		Messages: []string{fmt.Sprintf(msg, args...)},
	}
}

// Extract extracts the custom Error from the given error
func Extract(err error) *Error {
	e, ok := err.(*Error)
	if !ok {
		return &Error{
			Code:     0,
			Messages: nil,
			Err:      err,
		}
	}
	return e
}

// Wrap wraps the given error and returns a new one. Wrapping an Error returns
// a copy so the original is never mutated and never ends up referencing itself.
func Wrap(err error, code Code, msg string, args ...any) error {
	if err == nil {
		return nil
	}
	if prev, ok := err.(*Error); ok {
		e := &Error{
			Code:     prev.Code,
			Messages: append([]string(nil), prev.Messages...),
			Err:      prev.Err,
		}
		if msg != "" {
			e.Messages = append(e.Messages, fmt.Sprintf(msg, args...))
		}
		if code > 0 {
			e.Code = code
		}
		return e
	}
	e := &Error{
		Code: code,
		Err:  err,
	}
	if msg != "" {
		e.Messages = append(e.Messages, fmt.Sprintf(msg, args...))
	}
	return e
}

// FromStatus maps an http status code returned by the backend to a Code
func FromStatus(status int) Code {
	switch status {
	case http.StatusUnauthorized:
		return Authentication
	case http.StatusForbidden:
		return Forbidden
	case http.StatusNotFound:
		return NotFound
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return Validation
	case http.StatusTooManyRequests:
		return RateLimit
	default:
		if status >= 500 {
			return Internal
		}
		return Transport
	}
}

// IsRetryable reports whether the error classifies as retryable (rate limits,
// transient server failures and network/timeout failures)
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch Extract(err).Code {
	case RateLimit, Internal, Transport:
		return true
	default:
		return false
	}
}
