package request

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
)

// Common errors returned by the executor.
var (
	// ErrUnexpectedStatus is returned when a non-5xx response does not carry
	// the expected status code.
	ErrUnexpectedStatus = errors.New("unexpected status code")

	// ErrRetriesExhausted is returned when every attempt of a call ended in a
	// 5xx response.
	ErrRetriesExhausted = errors.New("maximum retries hit")

	// ErrTransport is returned when no HTTP response was received at all
	// (DNS failure, refused connection, timeout, cancelled context).
	ErrTransport = errors.New("transport failure")
)

// ErrorClass represents a classification of failed exchanges.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport level failures.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassUnexpected represents any other status that differs from the
	// expected one (1xx, 2xx, 3xx).
	ErrorClassUnexpected ErrorClass = "unexpected"
)

// classifyStatus categorizes a status code that did not match expectations.
func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 500:
		return ErrorClassServer
	case status >= 400:
		return ErrorClassClient
	default:
		return ErrorClassUnexpected
	}
}

// shouldRetry reports whether a failure of the given class is retried.
// Only server errors are; network failures are surfaced as-is.
func shouldRetry(class ErrorClass) bool {
	return class == ErrorClassServer
}

// APIError is returned for every fatal HTTP-level outcome of a call. It
// carries the context of the last attempt.
type APIError struct {
	// Err is ErrUnexpectedStatus or ErrRetriesExhausted.
	Err            error
	Class          ErrorClass
	Method         string
	URI            string
	Query          url.Values
	ExpectedStatus int
	StatusCode     int
	Body           []byte
	Attempts       int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: %v (status %d, expected %d, attempts %d)",
		e.Method, e.URI, e.Err, e.StatusCode, e.ExpectedStatus, e.Attempts)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject writes the error context as structured log fields.
func (e *APIError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("method", e.Method).
		Str("uri", e.URI).
		Int("status_code", e.StatusCode).
		Int("expected_status", e.ExpectedStatus).
		Int("attempts", e.Attempts).
		Str("error_class", string(e.Class)).
		Bytes("response_content", e.Body)
	if len(e.Query) > 0 {
		ev.Str("params", e.Query.Encode())
	}
}

// TransportError wraps a failure that produced no HTTP response.
type TransportError struct {
	Method  string
	URI     string
	Attempt int
	Err     error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v: %v", e.Method, e.URI, ErrTransport, e.Err)
}

// Unwrap exposes both ErrTransport and the underlying cause.
func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// ErrorHook receives every APIError before it is returned to the caller.
type ErrorHook func(err *APIError)

// LogErrorHook returns a hook that logs the error context at error level.
func LogErrorHook(logger zerolog.Logger) ErrorHook {
	return func(err *APIError) {
		ev := logger.Error().EmbedObject(err)
		if errors.Is(err, ErrRetriesExhausted) {
			ev.Msgf("Maximum retries hit: %d", err.Attempts)
			return
		}
		ev.Msgf("Unexpected status code: %d", err.StatusCode)
	}
}
