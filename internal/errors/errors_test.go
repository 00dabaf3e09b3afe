package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "job not found", NotFound("job not found").Error())

	wrapped := &AppError{Code: ErrCodeInternal, Message: "load job", Cause: errors.New("conn reset")}
	assert.Equal(t, "load job: conn reset", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("slack 500")
	err := fmt.Errorf("notify: %w", DeliveryFailure(cause, "slack delivery failed"))

	require.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeDeliveryFailure, GetCode(err))
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		err  *AppError
		code ErrorCode
		msg  string
	}{
		{NotFound("x"), ErrCodeNotFound, "x"},
		{NotFoundf("job %q not found", "Job-7K2M9Q"), ErrCodeNotFound, `job "Job-7K2M9Q" not found`},
		{Conflict("x"), ErrCodeConflict, "x"},
		{Validation("x"), ErrCodeValidation, "x"},
		{ForeignKey("x"), ErrCodeForeignKey, "x"},
		{Internal("x"), ErrCodeInternal, "x"},
		{Internalf("attempt %d", 5), ErrCodeInternal, "attempt 5"},
		{Forbidden("admin role required"), ErrCodeForbidden, "admin role required"},
		{Unauthorized("x"), ErrCodeUnauthorized, "x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, tt.err.Code)
		assert.Equal(t, tt.msg, tt.err.Message)
		assert.Empty(t, tt.err.Field)
	}
}

func TestFieldErrors(t *testing.T) {
	err := ValidationField("sale_price", "must not be negative")
	assert.True(t, IsValidation(err))
	assert.Equal(t, "sale_price", GetField(fmt.Errorf("create: %w", err)))

	phone := InvalidPhone("555-12")
	assert.True(t, IsInvalidPhone(phone))
	assert.False(t, IsValidation(phone))
	assert.Equal(t, "phone", phone.Field)
	assert.Contains(t, phone.Message, `"555-12"`)
}

func TestPredicates(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", Forbidden("nope")))
	assert.True(t, IsForbidden(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.False(t, IsConflict(errors.New("plain")))
	assert.False(t, IsUnauthorized(nil))
	assert.True(t, IsUnauthorized(Unauthorized("session expired")))
	assert.True(t, IsConflict(Conflict("the last admin cannot be removed")))
	assert.True(t, IsNotFound(NotFound("x")))

	assert.Empty(t, GetCode(errors.New("plain")))
	assert.Empty(t, GetField(nil))
}
