package queryir

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a query that cannot be compiled as built.
//
// Configuration errors are detected by Validate before any text is
// produced. Several of them may be reported at once through errors.Join.
type ConfigurationError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Field is the dotted location in the query (e.g. "operations[0].collection").
	Field string

	// Message is a human-readable description.
	Message string
}

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	// ErrCodeMissingSource indicates a declared FOR variable without a source.
	ErrCodeMissingSource ConfigErrorCode = "MISSING_SOURCE"

	// ErrCodeMissingVariable indicates a source without a loop variable.
	ErrCodeMissingVariable ConfigErrorCode = "MISSING_VARIABLE"

	// ErrCodeMissingCollection indicates a data-modification op without INTO.
	ErrCodeMissingCollection ConfigErrorCode = "MISSING_COLLECTION"

	ErrCodeNegativeLimit      ConfigErrorCode = "NEGATIVE_LIMIT"
	ErrCodeNegativeOffset     ConfigErrorCode = "NEGATIVE_OFFSET"
	ErrCodeOffsetWithoutLimit ConfigErrorCode = "OFFSET_WITHOUT_LIMIT"

	// ErrCodeInvalidIdentifier indicates a name that would not be emitted
	// verbatim safely (variable, reference path, collection, function).
	ErrCodeInvalidIdentifier ConfigErrorCode = "INVALID_IDENTIFIER"

	ErrCodeInvalidOperator  ConfigErrorCode = "INVALID_OPERATOR"
	ErrCodeInvalidDirection ConfigErrorCode = "INVALID_DIRECTION"

	// ErrCodeInvalidValue indicates a literal or option outside the
	// supported value model.
	ErrCodeInvalidValue ConfigErrorCode = "INVALID_VALUE"

	ErrCodeKeepWithoutInto ConfigErrorCode = "KEEP_WITHOUT_INTO"
	ErrCodeEmptyQuery      ConfigErrorCode = "EMPTY_QUERY"

	// ErrCodeUnsupportedNode indicates a nil or foreign expression node.
	ErrCodeUnsupportedNode ConfigErrorCode = "UNSUPPORTED_NODE"

	// ErrCodeBuilderMisuse indicates a fluent call made out of order, such
	// as Into without a pending operation.
	ErrCodeBuilderMisuse ConfigErrorCode = "BUILDER_MISUSE"
)

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(code ConfigErrorCode, field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{
		Code:    code,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// SerializationError reports a snapshot that cannot be restored.
type SerializationError struct {
	// Path is the JSON location of the problem (e.g. "filters[0].left").
	Path string

	Message string

	// Err is the underlying decode error, if any.
	Err error
}

func (e *SerializationError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("serialization error at %s: %s", e.Path, msg)
	}
	return fmt.Sprintf("serialization error: %s", msg)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// IsConfigurationError returns true if err is or wraps a ConfigurationError.
// Uses errors.As to handle wrapped and joined errors.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsSerializationError returns true if err is or wraps a SerializationError.
func IsSerializationError(err error) bool {
	var se *SerializationError
	return errors.As(err, &se)
}

// ConfigurationErrors flattens err (including joined errors) into the
// configuration errors it contains, in order.
func ConfigurationErrors(err error) []*ConfigurationError {
	var out []*ConfigurationError
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if ce, ok := e.(*ConfigurationError); ok {
			out = append(out, ce)
			return
		}
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return out
}

// HasCode reports whether err contains a configuration error with code.
func HasCode(err error, code ConfigErrorCode) bool {
	for _, ce := range ConfigurationErrors(err) {
		if ce.Code == code {
			return true
		}
	}
	return false
}
