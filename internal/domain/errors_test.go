package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTransportError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewTransportError(TransportConnection, "tools/list", cause)

	expected := "transport connection error during tools/list: connection refused"
	if err.Error() != expected {
		t.Errorf("Expected error string %s, got %s", expected, err.Error())
	}

	if !errors.Is(err, cause) {
		t.Error("TransportError should unwrap to its cause")
	}

	wrapped := fmt.Errorf("exchange failed: %w", err)
	var te *TransportError
	if !errors.As(wrapped, &te) {
		t.Fatal("errors.As should find the TransportError")
	}
	if te.Kind != TransportConnection {
		t.Errorf("Expected kind %s, got %s", TransportConnection, te.Kind)
	}
}

func TestJSONRPCError(t *testing.T) {
	err := &JSONRPCError{Code: -32602, Message: "Invalid params"}
	if err.Error() != "JSON-RPC error -32602: Invalid params" {
		t.Errorf("Unexpected error string %s", err.Error())
	}
}

func TestSchemaViolationError(t *testing.T) {
	err := &SchemaViolationError{Violations: []Violation{
		{Path: "prompts[0].name", Constraint: "string"},
		{Path: "", Constraint: "result must be an object"},
	}}

	msg := err.Error()
	if !strings.Contains(msg, "prompts[0].name: string") {
		t.Errorf("Expected path and constraint in %q", msg)
	}
	if !strings.Contains(msg, "result must be an object") {
		t.Errorf("Expected root violation in %q", msg)
	}

	single := NewSchemaViolation("completion.values", "array")
	if len(single.Violations) != 1 || single.Violations[0].Path != "completion.values" {
		t.Errorf("Unexpected violations %+v", single.Violations)
	}
}

func TestUnsupportedVersionError(t *testing.T) {
	err := &UnsupportedVersionError{Version: "1999-01-01", Supported: []string{"2024-11-05", "2025-03-26"}}
	if !strings.Contains(err.Error(), "1999-01-01") || !strings.Contains(err.Error(), "2025-03-26") {
		t.Errorf("Unexpected error string %s", err.Error())
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("server_url", "is required", "")
	if err.Field != "server_url" {
		t.Errorf("Expected field server_url, got %s", err.Field)
	}
	expected := "validation error for field 'server_url': is required"
	if err.Error() != expected {
		t.Errorf("Expected error string %s, got %s", expected, err.Error())
	}
}
