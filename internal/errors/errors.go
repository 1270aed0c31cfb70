package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies an error into one of the failure categories the tools
// report. Every error raised by this repository carries exactly one type.
type ErrorType string

const (
	// ErrTypeConfig covers invalid job configuration: missing sheets,
	// unknown column names, inverted shift ranges.
	ErrTypeConfig ErrorType = "CONFIG"
	// ErrTypeLookup covers identifiers that need an offset but have none,
	// e.g. absent from a loaded linking table.
	ErrTypeLookup ErrorType = "LOOKUP"
	// ErrTypeParse covers values that should be dates (or integers in a
	// linking table) but cannot be parsed.
	ErrTypeParse ErrorType = "PARSE"
	// ErrTypeIO covers unreadable or unwritable files and workbooks.
	ErrTypeIO ErrorType = "IO"
)

// AppError is an application error with a type and optional key/value context
// identifying the offending file, sheet, row or column.
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	msg := e.Message
	if loc := e.location(); loc != "" {
		msg = fmt.Sprintf("%s (%s)", msg, loc)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, msg)
}

// Unwrap allows errors.Is and errors.As to work with AppError.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error and returns it for chaining.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCell records the location of the offending cell. Row is 1-based, as
// displayed in a spreadsheet application.
func (e *AppError) WithCell(sheet string, row int, column string) *AppError {
	return e.WithContext("sheet", sheet).
		WithContext("row", row).
		WithContext("column", column)
}

// WithFile records the file the error occurred in.
func (e *AppError) WithFile(file string) *AppError {
	return e.WithContext("file", file)
}

// location renders the known positional context in a fixed order.
func (e *AppError) location() string {
	if e.Context == nil {
		return ""
	}
	loc := ""
	if v, ok := e.Context["file"]; ok {
		loc = fmt.Sprintf("file %v", v)
	}
	if v, ok := e.Context["sheet"]; ok {
		if loc != "" {
			loc += ", "
		}
		loc += fmt.Sprintf("sheet %v", v)
	}
	if v, ok := e.Context["row"]; ok {
		loc += fmt.Sprintf(", row %v", v)
	}
	if v, ok := e.Context["column"]; ok {
		loc += fmt.Sprintf(", column %v", v)
	}
	return loc
}

// New creates a new application error.
func New(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Newf creates a new application error with a formatted message and no cause.
func Newf(errType ErrorType, format string, args ...interface{}) *AppError {
	return New(errType, fmt.Sprintf(format, args...), nil)
}

// Helper constructors for the common error types.

// NewConfigError creates a configuration error.
func NewConfigError(message string, cause error) *AppError {
	return New(ErrTypeConfig, message, cause)
}

// NewLookupError creates a lookup error for an identifier with no offset.
func NewLookupError(identifier string) *AppError {
	return New(ErrTypeLookup, fmt.Sprintf("no shift offset for identifier %q", identifier), nil).
		WithContext("identifier", identifier)
}

// NewParseError creates a parse error.
func NewParseError(message string, cause error) *AppError {
	return New(ErrTypeParse, message, cause)
}

// NewIOError creates an I/O error.
func NewIOError(message string, cause error) *AppError {
	return New(ErrTypeIO, message, cause)
}

// IsType reports whether err (or any error it wraps) is an AppError of the
// given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}
