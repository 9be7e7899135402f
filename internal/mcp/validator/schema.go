package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mcp-compliance-runner/internal/domain"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// InputSchema is a compiled tool input schema
type InputSchema struct {
	tool   string
	schema *jsonschema.Schema
}

// CompileInputSchema compiles a tool's inputSchema
func CompileInputSchema(tool string, schema map[string]interface{}) (*InputSchema, error) {
	doc, err := normalize(schema)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", tool, err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return nil, fmt.Errorf("tool %s: add schema resource: %w", tool, err)
	}
	compiled, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("tool %s: compile schema: %w", tool, err)
	}
	return &InputSchema{tool: tool, schema: compiled}, nil
}

// Validate checks tool arguments against the schema
func (s *InputSchema) Validate(args map[string]interface{}) error {
	if args == nil {
		args = map[string]interface{}{}
	}
	doc, err := normalize(args)
	if err != nil {
		return err
	}

	err = s.schema.Validate(doc)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return domain.NewSchemaViolation("arguments", err.Error())
	}
	out := &domain.SchemaViolationError{}
	collectLeaves(verr, out)
	if len(out.Violations) == 0 {
		out.Violations = append(out.Violations, domain.Violation{Path: "arguments", Constraint: err.Error()})
	}
	return out
}

func collectLeaves(verr *jsonschema.ValidationError, out *domain.SchemaViolationError) {
	if len(verr.Causes) == 0 {
		path := "arguments"
		if len(verr.InstanceLocation) > 0 {
			path += "." + strings.Join(verr.InstanceLocation, ".")
		}
		out.Violations = append(out.Violations, domain.Violation{
			Path:       path,
			Constraint: verr.ErrorKind.LocalizedString(printer),
		})
		return
	}
	for _, cause := range verr.Causes {
		collectLeaves(cause, out)
	}
}

// normalize round-trips a value through JSON so the schema library sees plain JSON types
func normalize(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// SampleArguments synthesises a minimal argument object satisfying the
// required properties of a simple object schema.
func SampleArguments(schema map[string]interface{}) map[string]interface{} {
	args := map[string]interface{}{}
	props, _ := schema["properties"].(map[string]interface{})
	required, _ := schema["required"].([]interface{})
	for _, r := range required {
		name, ok := r.(string)
		if !ok {
			continue
		}
		prop, _ := props[name].(map[string]interface{})
		args[name] = sampleValue(prop)
	}
	return args
}

func sampleValue(prop map[string]interface{}) interface{} {
	if enum, ok := prop["enum"].([]interface{}); ok && len(enum) > 0 {
		return enum[0]
	}
	switch prop["type"] {
	case "integer":
		return 1
	case "number":
		return 1.5
	case "boolean":
		return true
	case "array":
		return []interface{}{}
	case "object":
		return map[string]interface{}{}
	default:
		return "test"
	}
}

// Tool returns the tool name the schema belongs to
func (s *InputSchema) Tool() string {
	return s.tool
}
