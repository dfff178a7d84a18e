package apperrors

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrSchema     = errors.New("schema error")
	ErrGeneration = errors.New("generation error")
	ErrExecution  = errors.New("execution error")
	ErrConfig     = errors.New("config error")
)

// Error is a classified failure from one stage of the query pipeline.
// Unwrap exposes both the kind and the underlying cause, so callers can use
// errors.Is against a kind and errors.As against a driver error.
type Error struct {
	Kind    error  // One of ErrSchema, ErrGeneration, ErrExecution, ErrConfig
	Message string // Human-readable context
	Cause   error  // Underlying error, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Cause)
	case e.Message != "":
		return e.Message
	default:
		return e.Kind.Error()
	}
}

// Unwrap returns the kind and the cause for errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// SchemaError reports a failed metadata read (unreachable engine, unknown database, bad credentials).
func SchemaError(message string, cause error) *Error {
	return &Error{Kind: ErrSchema, Message: message, Cause: cause}
}

// GenerationError reports a failed, timed out, or unusable language-model call.
func GenerationError(message string, cause error) *Error {
	return &Error{Kind: ErrGeneration, Message: message, Cause: cause}
}

// ExecutionError reports a generated statement that failed to run.
func ExecutionError(message string, cause error) *Error {
	return &Error{Kind: ErrExecution, Message: message, Cause: cause}
}

// ConfigError reports a missing or invalid request field or setting.
func ConfigError(message string) *Error {
	return &Error{Kind: ErrConfig, Message: message}
}

// KindOf returns the kind of err, or nil if err is not classified.
func KindOf(err error) error {
	for _, kind := range []error{ErrSchema, ErrGeneration, ErrExecution, ErrConfig} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
