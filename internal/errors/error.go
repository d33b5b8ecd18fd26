package errors

import (
	"errors"
	"fmt"
)

// Category groups errors by the subsystem that reports them.
type Category string

const (
	CategoryConfig    Category = "config"
	CategoryTransport Category = "transport"
	CategoryProtocol  Category = "protocol"
	CategoryArchive   Category = "archive"
	CategoryRuntime   Category = "runtime"
	CategoryCLI       Category = "cli"
)

// SproutError is a coded error with an explanation and a fix hint.
type SproutError struct {
	// Code is a unique identifier such as "E101".
	Code string

	// Category is the subsystem the error belongs to.
	Category Category

	// Message is a short description.
	Message string

	// Detail is a longer explanation.
	Detail string

	// Suggestion is a hint on how to fix the problem.
	Suggestion string

	// DocURL links to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *SproutError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *SproutError) Unwrap() error {
	return e.Wrapped
}

// WithDetail sets the detailed explanation.
func (e *SproutError) WithDetail(d string) *SproutError {
	e.Detail = d
	return e
}

// WithSuggestion sets the fix hint.
func (e *SproutError) WithSuggestion(s string) *SproutError {
	e.Suggestion = s
	return e
}

// Wrap sets the underlying error.
func (e *SproutError) Wrap(err error) *SproutError {
	e.Wrapped = err
	return e
}

// New creates a SproutError from a registered code.
func New(code string) *SproutError {
	template, ok := GetTemplate(code)
	if !ok {
		return &SproutError{Code: code, Message: "Unknown error"}
	}
	return &SproutError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates an uncoded error with a formatted message.
func Newf(category Category, format string, args ...any) *SproutError {
	return &SproutError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError returns err itself if it already is (or wraps) a SproutError,
// otherwise a new error with the given code wrapping it.
func FromError(err error, code string) *SproutError {
	if err == nil {
		return nil
	}
	var se *SproutError
	if errors.As(err, &se) {
		return se
	}
	return New(code).Wrap(err)
}
