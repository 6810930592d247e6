package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorUnwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	appErr := NewAppError(ErrFetchFailed, "failed to fetch proposal", cause)

	assert.ErrorIs(t, appErr, cause)
	assert.Contains(t, appErr.Error(), "FETCH_FAILED")
	assert.Contains(t, appErr.Error(), "connection refused")
}

func TestHasCode(t *testing.T) {
	appErr := NewAppError(ErrNotFound, "proposal not found", nil)
	wrapped := fmt.Errorf("handler: %w", appErr)

	assert.True(t, HasCode(wrapped, ErrNotFound))
	assert.False(t, HasCode(wrapped, ErrFetchFailed))
	assert.False(t, HasCode(stderrors.New("plain"), ErrNotFound))
	assert.Equal(t, "NOT_FOUND: proposal not found", appErr.Error())
}
