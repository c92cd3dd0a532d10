package errors

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// ErrorType represents the category of error
type ErrorType int

const (
	// Agent definition file does not exist
	ErrorTypeNotFound ErrorType = iota
	// Agent definition file is not well-formed YAML
	ErrorTypeParse
	// Agent definition is missing required fields or has the wrong shape
	ErrorTypeSchema
	// --input-json is not valid JSON
	ErrorTypeInputParse
	// Input does not satisfy the agent's input_schema
	ErrorTypeInputSchema
	// No API credential configured
	ErrorTypeMissingCredential
	// Non-2xx status or transport failure talking to the provider
	ErrorTypeHTTP
	// 2xx response without usable completion content
	ErrorTypeMalformedResponse
	// Unexpected internal state
	ErrorTypeInternal
)

// Sentinels for errors.Is matching. Comparison is by type only.
var (
	ErrNotFound          = &Error{Type: ErrorTypeNotFound}
	ErrParse             = &Error{Type: ErrorTypeParse}
	ErrSchema            = &Error{Type: ErrorTypeSchema}
	ErrInputParse        = &Error{Type: ErrorTypeInputParse}
	ErrInputSchema       = &Error{Type: ErrorTypeInputSchema}
	ErrMissingCredential = &Error{Type: ErrorTypeMissingCredential}
	ErrHTTP              = &Error{Type: ErrorTypeHTTP}
	ErrMalformedResponse = &Error{Type: ErrorTypeMalformedResponse}
)

// Error represents a structured error with context
type Error struct {
	Type       ErrorType
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// ContextString returns a context value formatted as a string, or "" if unset
func (e *Error) ContextString(key string) string {
	v, ok := e.Context[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Is checks if this error matches the target error type
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// DetailedString returns a detailed error message with context.
// The stack trace is only included when withStack is set.
func (e *Error) DetailedString(withStack bool) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s\n", e.Type, e.Message))

	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf("Caused by: %v\n", e.Cause))
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("Context:\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", k, e.Context[k]))
		}
	}

	if withStack && e.StackTrace != "" {
		sb.WriteString(fmt.Sprintf("Stack trace:\n%s\n", e.StackTrace))
	}

	return sb.String()
}

// String returns the short label used in diagnostics
func (t ErrorType) String() string {
	switch t {
	case ErrorTypeNotFound:
		return "CONFIG_NOT_FOUND"
	case ErrorTypeParse:
		return "CONFIG_PARSE"
	case ErrorTypeSchema:
		return "CONFIG_SCHEMA"
	case ErrorTypeInputParse:
		return "INPUT_PARSE"
	case ErrorTypeInputSchema:
		return "INPUT_SCHEMA"
	case ErrorTypeMissingCredential:
		return "MISSING_CREDENTIAL"
	case ErrorTypeHTTP:
		return "HTTP"
	case ErrorTypeMalformedResponse:
		return "MALFORMED_RESPONSE"
	case ErrorTypeInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// captureStackTrace captures the current stack trace
func captureStackTrace(skip int) string {
	var sb strings.Builder
	for i := skip; i < skip+10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			break
		}
		sb.WriteString(fmt.Sprintf("  %s:%d %s\n", file, line, fn.Name()))
	}
	return sb.String()
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:       errType,
		Message:    message,
		Context:    make(map[string]interface{}),
		StackTrace: captureStackTrace(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Type:       errType,
		Message:    message,
		Cause:      err,
		Context:    make(map[string]interface{}),
		StackTrace: captureStackTrace(2),
	}
}

// Convenience constructors, one per failure kind

// NotFoundError wraps a missing agent definition file
func NotFoundError(err error, path string) *Error {
	e := Wrap(err, ErrorTypeNotFound, fmt.Sprintf("agent configuration file not found at %s", path))
	e.StackTrace = captureStackTrace(2)
	return e.WithContext("path", path)
}

// ParseError wraps a YAML syntax failure
func ParseError(err error, path string) *Error {
	e := Wrap(err, ErrorTypeParse, fmt.Sprintf("error parsing YAML file %s", path))
	e.StackTrace = captureStackTrace(2)
	return e.WithContext("path", path)
}

// SchemaErrorf creates an agent definition shape error
func SchemaErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeSchema, fmt.Sprintf(format, args...))
}

// InputParseError wraps an invalid --input-json value
func InputParseError(err error) *Error {
	e := Wrap(err, ErrorTypeInputParse, "invalid input JSON")
	e.StackTrace = captureStackTrace(2)
	return e
}

// InputSchemaError wraps a schema violation reported by the validator
func InputSchemaError(err error) *Error {
	e := Wrap(err, ErrorTypeInputSchema, "input data validation failed")
	e.StackTrace = captureStackTrace(2)
	return e
}

// MissingCredentialError reports that no API key is configured
func MissingCredentialError(envVar string) *Error {
	return New(ErrorTypeMissingCredential,
		fmt.Sprintf("API key not set. Set the %s environment variable or run 'agentrun configure'", envVar)).
		WithContext("env", envVar)
}

// HTTPErrorf wraps a provider transport or status failure
func HTTPErrorf(err error, format string, args ...interface{}) *Error {
	e := &Error{
		Type:       ErrorTypeHTTP,
		Message:    fmt.Sprintf(format, args...),
		Cause:      err,
		Context:    make(map[string]interface{}),
		StackTrace: captureStackTrace(2),
	}
	return e
}

// MalformedResponseErrorf reports a 2xx response without usable content
func MalformedResponseErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeMalformedResponse, fmt.Sprintf(format, args...))
}

// InternalErrorf creates an internal error
func InternalErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeInternal, fmt.Sprintf(format, args...))
}

// As finds the first *Error in err's chain
func As(err error) (*Error, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// GetType returns the type of an error
func GetType(err error) ErrorType {
	if e, ok := As(err); ok {
		return e.Type
	}
	return ErrorTypeInternal
}
