package faults

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStructuralf_IsWrapFriendly(t *testing.T) {
	err := Structuralf("missing cart manifest for %s", "cs_123")
	require.True(t, errors.Is(err, ErrStructural))
	require.True(t, IsStructural(fmt.Errorf("outer: %w", err)))
	require.False(t, IsRetryable(err))
}

func TestIsRetryable_DefaultsToRetry(t *testing.T) {
	require.True(t, IsRetryable(errors.New("store timeout")))
	require.False(t, IsRetryable(nil))
	require.False(t, IsRetryable(fmt.Errorf("wrapped: %w", ErrAlreadyApplied)))
}
