package services

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// TTS error taxonomy
// Every failure from the speech pipeline is classified into one of these
// kinds. The retry policy is a pure function of the kind (see Retryable),
// so it can be tested independently of any timing.
// ---------------------------------------------------------------------------

// ErrorKind classifies a TTS failure.
type ErrorKind string

const (
	// ErrAuthentication: provider rejected the credentials. Never retried.
	ErrAuthentication ErrorKind = "authentication"
	// ErrRateLimit: provider throttled the request. Never auto-retried;
	// the caller decides whether to honor RetryAfter.
	ErrRateLimit ErrorKind = "rate_limit"
	// ErrValidation: invalid input detected locally, before any network call.
	ErrValidation ErrorKind = "validation"
	// ErrNetwork: transport failure, timeout, or a 5xx from the provider.
	ErrNetwork ErrorKind = "network"
	// ErrStorage: a usage-ledger I/O failure.
	ErrStorage ErrorKind = "storage"
	// ErrUnknown: any other non-success response, with raw status and body.
	ErrUnknown ErrorKind = "unknown"
)

// Error is the typed failure returned by the speech client and pipeline.
type Error struct {
	Kind       ErrorKind
	Message    string
	StatusCode int  // provider HTTP status, 0 when not applicable
	RetryAfter *int // seconds, only set for rate-limit errors
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrAuthentication:
		return fmt.Sprintf("authentication error: %s", e.Message)
	case ErrRateLimit:
		if e.RetryAfter != nil {
			return fmt.Sprintf("rate limit exceeded, retry after %d seconds", *e.RetryAfter)
		}
		return "rate limit exceeded"
	case ErrValidation:
		return fmt.Sprintf("validation error: %s", e.Message)
	case ErrNetwork:
		return fmt.Sprintf("network error: %s", e.Message)
	case ErrStorage:
		return fmt.Sprintf("storage error: %s", e.Message)
	default:
		return fmt.Sprintf("unknown error: %s", e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether an attempt that failed with this error may be
// repeated. Only authentication and rate-limit failures fail fast;
// everything else is fair game for the bounded retry loop. Validation
// errors are raised before any request is attempted, so they never reach
// the loop.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case ErrAuthentication, ErrRateLimit:
		return false
	default:
		return true
	}
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// AsError extracts the typed TTS error from err. Untyped errors are
// reported as unknown so callers always get a classified value.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: ErrUnknown, Message: err.Error(), Err: err}
}
