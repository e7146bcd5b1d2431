package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Creation(t *testing.T) {
	cause := errors.New("underlying error")

	err := NewValidationError("test validation error", cause)

	assert.Equal(t, ErrorTypeValidation, err.Type)
	assert.Equal(t, "test validation error", err.Message)
	assert.Equal(t, cause, err.Cause)
	assert.NotNil(t, err.Context)
}

func TestDomainError_WithContext(t *testing.T) {
	err := NewProcessError("test error", nil).
		WithContext("executable_path", "/usr/local/bin/midclt").
		WithContext("exit_code", 2)

	assert.Equal(t, "/usr/local/bin/midclt", err.Context["executable_path"])
	assert.Equal(t, 2, err.Context["exit_code"])
}

func TestDomainError_ErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		error    *DomainError
		expected string
	}{
		{
			name:     "error without cause",
			error:    NewValidationError("test message", nil),
			expected: "validation: test message",
		},
		{
			name:     "error with cause",
			error:    NewProcessError("test message", errors.New("cause")),
			expected: "process: test message: cause",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.error.Error())
		})
	}
}

func TestDomainError_TypeChecking(t *testing.T) {
	notFoundErr := NewNotFoundError("missing", nil)
	wrapped := fmt.Errorf("start: %w", notFoundErr)

	assert.True(t, IsNotFoundError(notFoundErr))
	assert.True(t, IsNotFoundError(wrapped))
	assert.False(t, IsProcessError(wrapped))
	assert.True(t, errors.Is(wrapped, NewNotFoundError("", nil)))
	assert.False(t, IsUsageError(errors.New("plain")))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, ExitSuccess},
		{"command error", NewCommandError("midclt", []string{"call", "x"}, 3), 3},
		{"wrapped command error", fmt.Errorf("reload: %w", NewCommandError("midclt", nil, 42)), 42},
		{"missing executable", NewNotFoundError("executable not found", nil), ExitNotFound},
		{"not executable", NewPermissionError("executable not runnable", nil), ExitNotExecutable},
		{"usage", NewUsageError("unknown action", nil), ExitFailure},
		{"plain", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExitCode(tt.err))
		})
	}
}

func TestCommandError_Message(t *testing.T) {
	args := []string{"call", "mdnsadvertise.start"}
	err := NewCommandError("/usr/local/bin/midclt", args, 1)
	args[0] = "mutated"

	assert.Equal(t, "command '/usr/local/bin/midclt call mdnsadvertise.start' exited with status 1", err.Error())
}
