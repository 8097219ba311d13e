package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidation_IsErrValidation(t *testing.T) {
	err := Validation("description is required")

	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "description is required", Message(err))
}

func TestMessage_WrappedValidation(t *testing.T) {
	err := fmt.Errorf("failed to save: %w", Validation("name is %s", "required"))

	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "name is required", Message(err))
}

func TestMessage_OtherErrors(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "not found", Message(ErrNotFound))
}
