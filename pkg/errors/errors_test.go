package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("calling extractor: %w", AITimeout(context.DeadlineExceeded))

	assert.Equal(t, ErrAITimeout, CodeOf(wrapped))
	assert.Equal(t, ErrUnknown, CodeOf(fmt.Errorf("plain")))
	assert.Equal(t, ErrUnknown, CodeOf(nil))
	assert.True(t, Is(wrapped, ErrAITimeout))
	assert.False(t, Is(nil, ErrUnknown))
	assert.ErrorIs(t, wrapped, context.DeadlineExceeded)
}

func TestAppErrorMessage(t *testing.T) {
	assert.Equal(t, "ai extractor returned status 503: loading", AIStatus(503, "loading").Error())
	assert.Equal(t, "circuit breaker ai is open", CircuitOpen("ai").Error())
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "ai_malformed", ErrAIMalformed.String())
	assert.Equal(t, "circuit_open", ErrCircuitOpen.String())
	assert.Equal(t, "code_42", ErrorCode(42).String())
}
