package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorType_Constants(t *testing.T) {
	tests := []struct {
		name     string
		errType  ErrorType
		expected string
	}{
		{name: "schema error type", errType: ErrTypeSchema, expected: "SCHEMA"},
		{name: "parsing error type", errType: ErrTypeParsing, expected: "PARSING"},
		{name: "integrity error type", errType: ErrTypeIntegrity, expected: "INTEGRITY"},
		{name: "storage error type", errType: ErrTypeStorage, expected: "STORAGE"},
		{name: "validation error type", errType: ErrTypeValidation, expected: "VALIDATION"},
		{name: "not found error type", errType: ErrTypeNotFound, expected: "NOT_FOUND"},
		{name: "config error type", errType: ErrTypeConfig, expected: "CONFIG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.errType))
		})
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name        string
		appError    *AppError
		wantMessage string
	}{
		{
			name: "error without cause",
			appError: &AppError{
				Type:    ErrTypeIntegrity,
				Message: "unexpected nulls in fact table",
			},
			wantMessage: "[INTEGRITY] unexpected nulls in fact table",
		},
		{
			name: "error with cause",
			appError: &AppError{
				Type:    ErrTypeStorage,
				Message: "failed to write table",
				Cause:   fmt.Errorf("disk full"),
			},
			wantMessage: "[STORAGE] failed to write table: disk full",
		},
		{
			name: "error with context",
			appError: &AppError{
				Type:    ErrTypeSchema,
				Message: "input is missing required columns",
				Context: map[string]interface{}{"source": "raw.csv", "missing_columns": "likes"},
			},
			wantMessage: "[SCHEMA] input is missing required columns (missing_columns=likes, source=raw.csv)",
		},
		{
			name: "error with empty message",
			appError: &AppError{
				Type: ErrTypeValidation,
			},
			wantMessage: "[VALIDATION] ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMessage, tt.appError.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewStorageError("warehouse insert failed", cause)

	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, cause))

	var appErr *AppError
	wrapped := fmt.Errorf("load: %w", err)
	require.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, ErrTypeStorage, appErr.Type)
}

func TestIsType(t *testing.T) {
	inner := NewSchemaError("missing columns", []string{"likes"})
	outer := NewParsingError("failed to parse input", inner)

	tests := []struct {
		name    string
		err     error
		errType ErrorType
		want    bool
	}{
		{name: "direct match", err: inner, errType: ErrTypeSchema, want: true},
		{name: "match through wrapped app error", err: outer, errType: ErrTypeSchema, want: true},
		{name: "outer type", err: outer, errType: ErrTypeParsing, want: true},
		{name: "match through fmt wrap", err: fmt.Errorf("run: %w", outer), errType: ErrTypeSchema, want: true},
		{name: "no match", err: outer, errType: ErrTypeIntegrity, want: false},
		{name: "plain error", err: errors.New("boom"), errType: ErrTypeStorage, want: false},
		{name: "nil error", err: nil, errType: ErrTypeStorage, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsType(tt.err, tt.errType))
		})
	}
}

func TestHelperConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantType ErrorType
	}{
		{name: "schema", err: NewSchemaError("x", nil), wantType: ErrTypeSchema},
		{name: "parsing", err: NewParsingError("x", nil), wantType: ErrTypeParsing},
		{name: "integrity", err: NewIntegrityError("x"), wantType: ErrTypeIntegrity},
		{name: "storage", err: NewStorageError("x", nil), wantType: ErrTypeStorage},
		{name: "validation", err: NewAppValidationError("x"), wantType: ErrTypeValidation},
		{name: "not found", err: NewNotFoundError("table"), wantType: ErrTypeNotFound},
		{name: "config", err: NewConfigError("x", nil), wantType: ErrTypeConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.NotNil(t, tt.err.Context)
		})
	}

	schemaErr := NewSchemaError("missing", []string{"likes", "saves"})
	assert.Equal(t, "likes,saves", schemaErr.Context["missing_columns"])
	assert.Equal(t, "[NOT_FOUND] table not found", NewNotFoundError("table").Error())
}
