package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{NewValidationError(map[string]string{"method": "bad"}), KindValidation},
		{Wrap(ErrNotFound, "lookup"), KindNotFound},
		{NewFilterError("limit", "too large"), KindInvalidFilter},
		{Unavailable(context.DeadlineExceeded), KindStoreUnavailable},
		{fmt.Errorf("boom"), KindInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Kind(tt.err), tt.err.Error())
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(Unavailable(fmt.Errorf("connection refused"))))
	assert.False(t, Retryable(ErrNotFound))
	assert.False(t, Retryable(NewValidationError(nil)))
}

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidationError(map[string]string{"status": "x", "amount": "y"})
	assert.Equal(t, "validation failed: amount, status", err.Error())
	assert.ErrorIs(t, err, ErrValidation)

	var vErr *ValidationError
	assert.True(t, As(Wrap(err, "create"), &vErr))
	assert.Equal(t, "y", vErr.Fields["amount"])
}

func TestWrapAndUnavailable(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ctx"))
	assert.Nil(t, Unavailable(nil))

	err := Unavailable(fmt.Errorf("dial tcp"))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "dial tcp")
}
