package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without cause",
			err:      New(ErrCodeUnknownMetric, "unknown metric %q", "science"),
			expected: `UNKNOWN_METRIC: unknown metric "science"`,
		},
		{
			name:     "with cause",
			err:      Wrap(ErrCodeInvalidDataset, errors.New("bad row"), "read %s", "scores.csv"),
			expected: "INVALID_DATASET: read scores.csv: bad row",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(ErrCodeInternal, cause, "wrapped")

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap() should return the cause")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeDuplicateIdentity, "dup"),
			code:     ErrCodeDuplicateIdentity,
			expected: true,
		},
		{
			name:     "different code",
			err:      New(ErrCodeDuplicateIdentity, "dup"),
			code:     ErrCodeEmptyDataset,
			expected: false,
		},
		{
			name:     "wrapped with fmt",
			err:      fmt.Errorf("context: %w", New(ErrCodeEmptyDataset, "no records")),
			code:     ErrCodeEmptyDataset,
			expected: true,
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeDisposed, "test"),
			expected: ErrCodeDisposed,
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			expected: "",
		},
		{
			name:     "nil",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidInput, "friendly message"),
			expected: "friendly message",
		},
		{
			name:     "plain error",
			err:      errors.New("plain error"),
			expected: "plain error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsContractViolation(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{New(ErrCodeEmptyDataset, "x"), true},
		{New(ErrCodeDuplicateIdentity, "x"), true},
		{New(ErrCodeUnknownMetric, "x"), true},
		{New(ErrCodeUnknownSeries, "x"), true},
		{New(ErrCodeDisposed, "x"), false},
		{errors.New("x"), false},
	}
	for _, tt := range tests {
		if got := IsContractViolation(tt.err); got != tt.want {
			t.Errorf("IsContractViolation(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
