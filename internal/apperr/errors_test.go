package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelMatching(t *testing.T) {
	nf := NotFound("Quote with ID %d not found", 7)
	wrapped := fmt.Errorf("loading: %w", nf)

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.False(t, IsInternal(wrapped))
	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
	assert.Equal(t, "Quote with ID 7 not found", nf.Error())
}

func TestInsufficientInventoryIsValidation(t *testing.T) {
	err := InsufficientInventory(0, 1)

	assert.True(t, IsValidation(err))
	assert.Equal(t, "Insufficient inventory. Available: 0, Requested: 1", err.Message)
	assert.Equal(t, map[string]any{"available": 0, "requested": 1}, err.Details)
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("An error occurred while creating the quote", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Equal(t, CodeInternal, CodeOf(cause))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestIsInternal(t *testing.T) {
	assert.True(t, IsInternal(errors.New("driver: bad connection")))
	assert.True(t, IsInternal(Internal("Failed to save", errors.New("disk full"))))
	assert.False(t, IsInternal(Validation("Quantity must be greater than zero")))
}
