package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyProviderError(t *testing.T) {
	tests := []struct {
		msg   string
		fatal bool
	}{
		{"401 unauthorized", true},
		{"403 forbidden", true},
		{"incorrect api key provided", true},
		{"api key revoked", true},
		{"400 invalid request", true},
		{"429 too many requests", false},
		{"rate limit exceeded", false},
		{"model overloaded, try again", false},
		{"500 internal server error", false},
		{"connection refused", false},
		{"unexpected EOF", false},
		{"something entirely new", false}, // unknown shapes get retried
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := classifyProviderError(errors.New(tt.msg))
			if tt.fatal {
				require.True(t, IsFatal(err))
				require.False(t, IsTransient(err))
			} else {
				require.True(t, IsTransient(err))
				require.False(t, IsFatal(err))
			}
		})
	}
}

func TestClassifyContextErrors(t *testing.T) {
	require.True(t, IsTransient(classifyProviderError(context.DeadlineExceeded)))

	// Cancellation passes through untouched so callers can match on it.
	err := classifyProviderError(context.Canceled)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, IsTransient(err))
	require.False(t, IsFatal(err))
}

func TestIsInvalidModelError(t *testing.T) {
	require.True(t, isInvalidModelError(errors.New("400 the model `gpt-5-nano-max` does not exist")))
	require.True(t, isInvalidModelError(errors.New("model not found")))
	require.True(t, isInvalidModelError(errors.New("invalid model id")))

	require.False(t, isInvalidModelError(nil))
	require.False(t, isInvalidModelError(errors.New("400 invalid request")))
	require.False(t, isInvalidModelError(errors.New("model is warming up")))
}

func TestErrorWrappersUnwrap(t *testing.T) {
	base := fmt.Errorf("boom")

	require.ErrorIs(t, Transient(base), base)
	require.ErrorIs(t, Fatal(base), base)
	require.NoError(t, Transient(nil))
	require.NoError(t, Fatal(nil))

	var coe *CircuitOpenError
	wrapped := fmt.Errorf("call failed: %w", &CircuitOpenError{Provider: "openai"})
	require.True(t, IsCircuitOpen(wrapped))
	require.ErrorAs(t, wrapped, &coe)
	require.Equal(t, "openai", coe.Provider)
}
