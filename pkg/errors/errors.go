package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory groups errors by the layer that raised them
type ErrorCategory string

const (
	CategoryFile           ErrorCategory = "file"
	CategoryParse          ErrorCategory = "parse"
	CategoryValidation     ErrorCategory = "validation"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryReconciliation ErrorCategory = "reconciliation"
	CategoryNetwork        ErrorCategory = "network"
	CategoryInternal       ErrorCategory = "internal"
)

// ErrorCode identifies a specific failure within a category
type ErrorCode string

const (
	// File errors
	CodeFileNotFound      ErrorCode = "file_not_found"
	CodeFilePermission    ErrorCode = "file_permission"
	CodeUnsupportedFormat ErrorCode = "unsupported_format"
	CodeFileCorrupted     ErrorCode = "file_corrupted"

	// Parse errors
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeEmptySheet    ErrorCode = "empty_sheet"
	CodeEncodingError ErrorCode = "encoding_error"

	// Validation errors
	CodeInvalidDate  ErrorCode = "invalid_date"
	CodeMissingField ErrorCode = "missing_field"
	CodeOutOfRange   ErrorCode = "out_of_range"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Reconciliation errors
	CodeProcessingError ErrorCode = "processing_error"

	// Network errors
	CodeListenFailed ErrorCode = "listen_failed"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// AppError is the error type surfaced to the CLI and the HTTP API
type AppError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context carries extra key/value detail about an error
type Context map[string]interface{}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// ExitCode maps the error category onto a process exit status
func (e *AppError) ExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryReconciliation, CategoryInternal:
		return 5
	case CategoryNetwork:
		return 6
	default:
		return 1
	}
}

// WithContext attaches a key/value pair to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion sets the hint shown to the user
func (e *AppError) WithSuggestion(suggestion string) *AppError {
	e.Suggestion = suggestion
	return e
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates an AppError without an underlying cause
func New(category ErrorCategory, code ErrorCode, message string) *AppError {
	return &AppError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap creates an AppError around err. A nil err yields nil.
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

func build(err error, category ErrorCategory, code ErrorCode, message string) *AppError {
	if err != nil {
		return Wrap(err, category, code, message)
	}
	return New(category, code, message)
}

// FileError reports a problem opening or identifying an input file
func FileError(code ErrorCode, path string, err error) *AppError {
	var message, suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check the path passed on the command line"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied reading %s", path)
		suggestion = "make sure the file is readable by the current user"
	case CodeUnsupportedFormat:
		message = fmt.Sprintf("unsupported file type: %s", path)
		suggestion = "export the sheet as .xlsx, .csv or .json"
	case CodeFileCorrupted:
		message = fmt.Sprintf("file could not be read: %s", path)
		suggestion = "re-export the file from the source system"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	return build(err, CategoryFile, code, message).
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// ParseError reports a sheet that could not be turned into rows
func ParseError(code ErrorCode, file string, row int, column string, err error) *AppError {
	var message, suggestion string

	switch code {
	case CodeInvalidFormat:
		message = fmt.Sprintf("invalid content in %s at row %d", file, row)
		suggestion = "verify the sheet has a single header row followed by data"
	case CodeEmptySheet:
		message = fmt.Sprintf("sheet in %s has no header row", file)
		suggestion = "make sure the first sheet of the workbook holds the data"
	case CodeEncodingError:
		message = fmt.Sprintf("could not decode %s", file)
		suggestion = "save the file as UTF-8 or Windows-1252 text"
	default:
		message = fmt.Sprintf("parse error in %s at row %d", file, row)
		suggestion = "check the file format"
	}

	result := build(err, CategoryParse, code, message).
		WithSuggestion(suggestion).
		WithContext("file", file).
		WithContext("row", row)
	if column != "" {
		result.WithContext("column", column)
	}
	return result
}

// ValidationError reports a user-supplied value that is out of shape
func ValidationError(code ErrorCode, field string, value interface{}, err error) *AppError {
	var message, suggestion string

	switch code {
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date in '%s': %v", field, value)
		suggestion = "use RFC3339 (2024-01-02T15:04:05Z) or YYYY-MM-DD"
	case CodeMissingField:
		message = fmt.Sprintf("'%s' is required", field)
		suggestion = "provide a value for this field"
	case CodeOutOfRange:
		message = fmt.Sprintf("value out of range in '%s': %v", field, value)
		suggestion = "check the accepted range in --help"
	default:
		message = fmt.Sprintf("invalid value in '%s': %v", field, value)
		suggestion = "check the value and try again"
	}

	return build(err, CategoryValidation, code, message).
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// ConfigurationError reports an invalid or missing setting
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *AppError {
	var message, suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration file and flags"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "pass the flag or set it in the config file"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	return build(err, CategoryConfiguration, code, message).
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// NetworkError reports a failure in the HTTP surface
func NetworkError(code ErrorCode, addr string, err error) *AppError {
	message := fmt.Sprintf("network error on %s", addr)
	if code == CodeListenFailed {
		message = fmt.Sprintf("could not listen on %s", addr)
	}
	return build(err, CategoryNetwork, code, message).
		WithSuggestion("check that the address is free and well formed").
		WithContext("addr", addr)
}

// InternalError reports a bug or an unexpected state
func InternalError(code ErrorCode, operation string, err error) *AppError {
	return build(err, CategoryInternal, code, fmt.Sprintf("unexpected error during %s", operation)).
		WithSuggestion("this is likely a bug, please report it with the error details").
		WithContext("operation", operation)
}

// AsAppError extracts an AppError from an error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// WrapIfNeeded returns err unchanged when it already is an AppError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Wrap(err, category, code, message)
}

// Summary condenses a batch of errors for logging
func Summary(errs []*AppError) string {
	if len(errs) == 0 {
		return "no errors"
	}
	if len(errs) == 1 {
		return errs[0].Error()
	}
	counts := make(map[ErrorCategory]int)
	order := make([]ErrorCategory, 0)
	for _, err := range errs {
		if _, seen := counts[err.Category]; !seen {
			order = append(order, err.Category)
		}
		counts[err.Category]++
	}
	parts := make([]string, 0, len(order))
	for _, category := range order {
		parts = append(parts, fmt.Sprintf("%s: %d", category, counts[category]))
	}
	return fmt.Sprintf("%d errors occurred (%s)", len(errs), strings.Join(parts, ", "))
}
