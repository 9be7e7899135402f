package domain

import (
	"fmt"
	"strings"
)

// TransportErrorKind classifies failures below the JSON-RPC layer
type TransportErrorKind string

const (
	TransportConnection TransportErrorKind = "connection"
	TransportTimeout    TransportErrorKind = "timeout"
	TransportMalformed  TransportErrorKind = "malformed"
	TransportEnvelope   TransportErrorKind = "envelope"
	TransportStatus     TransportErrorKind = "status"
)

// TransportError is raised when no well-formed JSON-RPC response could be obtained
type TransportError struct {
	Kind TransportErrorKind
	Op   string
	Err  error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("transport %s error during %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("transport %s error during %s: %v", e.Kind, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a new TransportError
func NewTransportError(kind TransportErrorKind, op string, err error) *TransportError {
	return &TransportError{Kind: kind, Op: op, Err: err}
}

// JSONRPCError is a well-formed error envelope returned by the server
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error implements the error interface
func (e *JSONRPCError) Error() string {
	return fmt.Sprintf("JSON-RPC error %d: %s", e.Code, e.Message)
}

// Violation is one structural problem found in a response
type Violation struct {
	Path       string `json:"path"`
	Constraint string `json:"constraint"`
}

func (v Violation) String() string {
	if v.Path == "" {
		return v.Constraint
	}
	return fmt.Sprintf("%s: %s", v.Path, v.Constraint)
}

// SchemaViolationError collects every violation found while validating a result
type SchemaViolationError struct {
	Violations []Violation `json:"violations"`
}

// Error implements the error interface
func (e *SchemaViolationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return "schema violation: " + strings.Join(parts, "; ")
}

// NewSchemaViolation creates a SchemaViolationError with a single violation
func NewSchemaViolation(path, constraint string) *SchemaViolationError {
	return &SchemaViolationError{Violations: []Violation{{Path: path, Constraint: constraint}}}
}

// UnsupportedVersionError is returned when a spec version has no requirement catalog
type UnsupportedVersionError struct {
	Version   string
	Supported []string
}

// Error implements the error interface
func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported spec version %q (supported: %s)", e.Version, strings.Join(e.Supported, ", "))
}

// ValidationError represents invalid harness input such as a bad flag or config value
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
