package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies configuration failures
type ErrorType string

const (
	ErrorTypeResourceMissing ErrorType = "resource_missing"
	ErrorTypeDeserialization ErrorType = "deserialization_failure"
	ErrorTypeTypeCoercion    ErrorType = "type_coercion"
	ErrorTypeNoMatchingEnum  ErrorType = "no_matching_enum_constant"
	ErrorTypeValidation      ErrorType = "validation"
	ErrorTypeUnknown         ErrorType = "unknown"
)

// Error is a configuration error carrying its type and, when known, the
// override key that caused it
type Error struct {
	Type    ErrorType
	Key     string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error", e.Type)
	if e.Key != "" {
		msg += fmt.Sprintf(" (key %s)", e.Key)
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given type
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// Wrap creates an error of the given type around cause
func Wrap(errorType ErrorType, cause error, message string) *Error {
	return &Error{Type: errorType, Message: message, Err: cause}
}

// ForKey returns a copy of e bound to an override key
func (e *Error) ForKey(key string) *Error {
	c := *e
	c.Key = key
	return &c
}

// TypeOf reports the type of the first *Error in err's chain
func TypeOf(err error) ErrorType {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Type
	}
	return ErrorTypeUnknown
}

// Is checks whether err's chain carries an error of the given type
func Is(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	return TypeOf(err) == errorType
}

// KeyOf returns the override key recorded in err's chain, if any
func KeyOf(err error) string {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Key
	}
	return ""
}
