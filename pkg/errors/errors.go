// Package errors provides categorized errors for the cash reconciliation tool.
//
// Errors carry a category (file, parse, validation, configuration,
// reconciliation), a machine-readable code, an optional suggestion for the
// operator, and a context map. The CLI maps categories to exit codes so
// scripted callers can distinguish a missing file from a malformed report.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory groups errors by the subsystem that produced them.
type ErrorCategory string

const (
	CategoryFile           ErrorCategory = "file"
	CategoryParse          ErrorCategory = "parse"
	CategoryValidation     ErrorCategory = "validation"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryReconciliation ErrorCategory = "reconciliation"
)

// ErrorCode identifies a specific failure within a category.
type ErrorCode string

const (
	// File errors
	CodeFileNotFound  ErrorCode = "file_not_found"
	CodeFileCorrupted ErrorCode = "file_corrupted"

	// Parse errors
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeMissingSheet  ErrorCode = "missing_sheet"
	CodeMissingColumn ErrorCode = "missing_column"
	CodeInvalidData   ErrorCode = "invalid_data"

	// Validation errors
	CodeInvalidAmount ErrorCode = "invalid_amount"
	CodeInvalidDate   ErrorCode = "invalid_date"
	CodeMissingField  ErrorCode = "missing_field"
	CodeInvalidPeriod ErrorCode = "invalid_period"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Reconciliation errors
	CodeProcessingError ErrorCode = "processing_error"
)

// ReconError is the base error type for all application errors.
type ReconError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error.
type Context map[string]interface{}

// Error implements the error interface.
func (e *ReconError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error.
func (e *ReconError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns the process exit code for the error's category.
func (e *ReconError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 3
	case CategoryParse, CategoryValidation:
		return 4
	case CategoryConfiguration:
		return 5
	case CategoryReconciliation:
		return 6
	default:
		return 1
	}
}

// WithContext adds context information to the error.
func (e *ReconError) WithContext(key string, value interface{}) *ReconError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error.
func (e *ReconError) WithSuggestion(suggestion string) *ReconError {
	e.Suggestion = suggestion
	return e
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates a new ReconError.
func New(category ErrorCategory, code ErrorCode, message string) *ReconError {
	return &ReconError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconError context.
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconError {
	if err == nil {
		return nil
	}

	return &ReconError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// FileError creates a file-category error for the given path.
func FileError(code ErrorCode, path string, err error) *ReconError {
	message := fmt.Sprintf("file error: %s", path)
	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
	case CodeFileCorrupted:
		message = fmt.Sprintf("file is corrupted or not a valid xlsx workbook: %s", path)
	}

	e := Wrap(err, CategoryFile, code, message)
	if e == nil {
		e = New(CategoryFile, code, message)
	}
	return e.WithContext("path", path)
}

// SheetError creates a parse-category error for a workbook missing an
// expected worksheet.
func SheetError(file, sheet string) *ReconError {
	return New(CategoryParse, CodeMissingSheet,
		fmt.Sprintf("workbook %s has no worksheet %q", file, sheet)).
		WithContext("file", file).
		WithContext("sheet", sheet).
		WithSuggestion("check that the export was produced unmodified")
}

// MissingColumnsError creates a parse-category error naming every required
// column that could not be located in the header row.
func MissingColumnsError(file, report string, missing []string) *ReconError {
	return New(CategoryParse, CodeMissingColumn,
		fmt.Sprintf("%s report %s is missing required columns: %s",
			report, file, strings.Join(missing, ", "))).
		WithContext("file", file).
		WithContext("report", report).
		WithContext("missing_columns", missing).
		WithSuggestion("the export format may have changed; compare the header row against the expected columns")
}

// ValidationError creates a validation-category error for the given field.
func ValidationError(code ErrorCode, field string, value interface{}, err error) *ReconError {
	message := fmt.Sprintf("validation failed for field %s", field)
	switch code {
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount in field %s: %v", field, value)
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date in field %s: %v", field, value)
	case CodeMissingField:
		message = fmt.Sprintf("required field %s is missing", field)
	case CodeInvalidPeriod:
		message = fmt.Sprintf("invalid period: %v", value)
	}

	e := Wrap(err, CategoryValidation, code, message)
	if e == nil {
		e = New(CategoryValidation, code, message)
	}
	return e.WithContext("field", field).WithContext("value", value)
}

// ConfigurationError creates a configuration-category error for the given setting.
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ReconError {
	message := fmt.Sprintf("configuration error for %s", setting)
	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration value for %s: %v", setting, value)
	case CodeMissingConfig:
		message = fmt.Sprintf("required configuration %s is missing", setting)
	}

	e := Wrap(err, CategoryConfiguration, code, message)
	if e == nil {
		e = New(CategoryConfiguration, code, message)
	}
	return e.WithContext("setting", setting).WithContext("value", value)
}

// ReconciliationError creates a reconciliation-category error for the given operation.
func ReconciliationError(code ErrorCode, operation string, err error) *ReconError {
	message := fmt.Sprintf("reconciliation failed during %s", operation)

	e := Wrap(err, CategoryReconciliation, code, message)
	if e == nil {
		e = New(CategoryReconciliation, code, message)
	}
	return e.WithContext("operation", operation)
}

// IsReconError reports whether err is a ReconError.
func IsReconError(err error) bool {
	_, ok := err.(*ReconError)
	return ok
}

// AsReconError extracts a ReconError from err if possible.
func AsReconError(err error) (*ReconError, bool) {
	re, ok := err.(*ReconError)
	return re, ok
}

// WrapIfNeeded wraps err unless it already is a ReconError.
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconError {
	if err == nil {
		return nil
	}
	if re, ok := err.(*ReconError); ok {
		return re
	}
	return Wrap(err, category, code, message)
}
