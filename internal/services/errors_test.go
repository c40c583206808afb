package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorRetryable(t *testing.T) {
	cases := []struct {
		kind      ErrorKind
		retryable bool
	}{
		{ErrAuthentication, false},
		{ErrRateLimit, false},
		{ErrValidation, true},
		{ErrNetwork, true},
		{ErrStorage, true},
		{ErrUnknown, true},
	}

	for _, c := range cases {
		e := &Error{Kind: c.kind, Message: "test"}
		if got := e.Retryable(); got != c.retryable {
			t.Errorf("kind %s: Retryable() = %v, want %v", c.kind, got, c.retryable)
		}
	}
}

func TestErrorMessages(t *testing.T) {
	e := newError(ErrAuthentication, "bad key")
	if got := e.Error(); got != "authentication error: bad key" {
		t.Errorf("unexpected message: %q", got)
	}

	e = newError(ErrRateLimit, "slow down")
	if got := e.Error(); got != "rate limit exceeded" {
		t.Errorf("unexpected message: %q", got)
	}

	seconds := 30
	e = &Error{Kind: ErrRateLimit, RetryAfter: &seconds}
	if got := e.Error(); got != "rate limit exceeded, retry after 30 seconds" {
		t.Errorf("unexpected message: %q", got)
	}

	e = newError(ErrValidation, "text cannot be empty")
	if !strings.HasPrefix(e.Error(), "validation error:") {
		t.Errorf("unexpected message: %q", e.Error())
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	e := wrapError(ErrNetwork, cause, "request failed")

	if !errors.Is(e, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}

func TestAsError(t *testing.T) {
	typed := newError(ErrRateLimit, "throttled")
	wrapped := fmt.Errorf("outer context: %w", typed)

	got := AsError(wrapped)
	if got.Kind != ErrRateLimit {
		t.Errorf("expected rate_limit through the wrap, got %s", got.Kind)
	}

	plain := errors.New("something odd")
	got = AsError(plain)
	if got.Kind != ErrUnknown {
		t.Errorf("expected unknown for untyped error, got %s", got.Kind)
	}
	if got.Message != "something odd" {
		t.Errorf("expected message preserved, got %q", got.Message)
	}
}
