package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Constructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantType ErrorType
		wantCode int
		check    func(error) bool
	}{
		{"validation", NewValidationError("bad quantity"), ErrorTypeValidation, http.StatusBadRequest, IsValidationError},
		{"not found", NewNotFoundError("owner not found"), ErrorTypeNotFound, http.StatusNotFound, IsNotFoundError},
		{"routing", NewRoutingError("subscriptions are not addressable"), ErrorTypeRouting, http.StatusBadRequest, IsRoutingError},
		{"capacity", NewCapacityExceededError("pool exhausted"), ErrorTypeCapacityExceeded, http.StatusConflict, IsCapacityExceededError},
		{"transient", NewTransientError("store unavailable", stderrors.New("database is locked")), ErrorTypeTransient, http.StatusServiceUnavailable, IsTransientError},
		{"conflict", NewConflictError("duplicate"), ErrorTypeConflict, http.StatusConflict, IsConflictError},
		{"forbidden", NewForbiddenError("denied"), ErrorTypeForbidden, http.StatusForbidden, IsForbiddenError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.True(t, tt.check(tt.err))

			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, tt.check(wrapped))
			assert.True(t, IsAppError(wrapped))
		})
	}
}

func TestAppError_ErrorString(t *testing.T) {
	assert.Equal(t, "not_found: pool not found", NewNotFoundError("pool not found").Error())
	assert.Equal(t, "routing_error: use pools (pools/{pool_id})",
		NewRoutingError("use pools", "pools/{pool_id}").Error())
}

func TestNewTransientError_Unwrap(t *testing.T) {
	cause := stderrors.New("deadlock found when trying to get lock")
	err := NewTransientError("failed to update pool", cause)

	require.True(t, stderrors.Is(err, cause))
	assert.True(t, err.Retryable())
	assert.False(t, NewValidationError("x").Retryable())
}

func TestIsTransientDBError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{stderrors.New("Error 1213: Deadlock found when trying to get lock"), true},
		{stderrors.New("Error 1205: Lock wait timeout exceeded"), true},
		{stderrors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{stderrors.New("driver: bad connection"), true},
		{stderrors.New("UNIQUE constraint failed: certificates.serial"), false},
		{nil, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsTransientDBError(tt.err), "%v", tt.err)
	}
}

func TestIsDuplicateError(t *testing.T) {
	assert.True(t, IsDuplicateError(stderrors.New("Error 1062: Duplicate entry 'x' for key 'idx'")))
	assert.True(t, IsDuplicateError(stderrors.New("UNIQUE constraint failed: certificates.pool_id")))
	assert.False(t, IsDuplicateError(stderrors.New("record not found")))
	assert.False(t, IsDuplicateError(nil))
}

func TestFromDB(t *testing.T) {
	assert.Nil(t, FromDB("noop", nil))

	transient := FromDB("failed to save", stderrors.New("database is locked"))
	assert.True(t, IsTransientError(transient))

	plain := FromDB("failed to save", stderrors.New("syntax error"))
	assert.False(t, IsAppError(plain))
	assert.Contains(t, plain.Error(), "failed to save: syntax error")
}
