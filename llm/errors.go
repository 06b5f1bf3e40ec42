package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// TransientError marks a failure worth retrying: timeouts, rate limits,
// upstream 5xx, connection resets.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// FatalError marks a failure retrying cannot fix: bad credentials, revoked
// keys, malformed requests, unknown models. Fatal errors never count against
// the circuit breaker.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// CircuitOpenError is returned while a provider's breaker is open.
type CircuitOpenError struct {
	Provider string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("llm provider %s unavailable: circuit open", e.Provider)
}

// Transient wraps err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// Fatal wraps err as non-retryable.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsFatal reports whether err is permanent.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// IsCircuitOpen reports whether err came from an open breaker.
func IsCircuitOpen(err error) bool {
	var ce *CircuitOpenError
	return errors.As(err, &ce)
}

// classifyProviderError sorts a raw provider error into transient or fatal.
// Providers surface HTTP failures as strings, so classification matches on
// status markers and well-known phrases.
func classifyProviderError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient(err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Transient(err)
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "401"),
		strings.Contains(msg, "403"),
		strings.Contains(msg, "invalid api key"),
		strings.Contains(msg, "incorrect api key"),
		strings.Contains(msg, "authentication"),
		strings.Contains(msg, "revoked"):
		return Fatal(err)
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "overloaded"):
		return Transient(err)
	case strings.Contains(msg, "500"),
		strings.Contains(msg, "502"),
		strings.Contains(msg, "503"),
		strings.Contains(msg, "504"),
		strings.Contains(msg, "internal server error"),
		strings.Contains(msg, "bad gateway"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "eof"):
		return Transient(err)
	case strings.Contains(msg, "400"), strings.Contains(msg, "invalid request"):
		return Fatal(err)
	default:
		// Unknown shapes get one more chance.
		return Transient(err)
	}
}

// isInvalidModelError spots the specific 400 shape caused by a bad model
// name, so the gateway can name the fallback in its error.
func isInvalidModelError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "model") {
		return false
	}
	return strings.Contains(msg, "400") ||
		strings.Contains(msg, "not found") ||
		strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "invalid model")
}
