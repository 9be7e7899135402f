// Package validator checks protocol result shapes and returns typed values.
//
// Every function walks the whole result and reports all problems it finds as
// a single *domain.SchemaViolationError. Problems inside an array item are
// folded into one violation per item, keyed by the item's index path.
package validator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mcp-compliance-runner/internal/domain"
)

type walker struct {
	violations []domain.Violation
}

func (w *walker) add(path, constraint string) {
	w.violations = append(w.violations, domain.Violation{Path: path, Constraint: constraint})
}

// mark returns the position item collects from
func (w *walker) mark() int {
	return len(w.violations)
}

// item folds every violation recorded since from into one violation at path
func (w *walker) item(from int, path string) {
	found := w.violations[from:]
	if len(found) == 0 || (len(found) == 1 && found[0].Path == path) {
		return
	}
	parts := make([]string, 0, len(found))
	for _, v := range found {
		rel := strings.TrimPrefix(strings.TrimPrefix(v.Path, path), ".")
		if rel == "" {
			parts = append(parts, v.Constraint)
			continue
		}
		parts = append(parts, rel+": "+v.Constraint)
	}
	w.violations = append(w.violations[:from], domain.Violation{Path: path, Constraint: strings.Join(parts, "; ")})
}

func (w *walker) err() error {
	if len(w.violations) == 0 {
		return nil
	}
	return &domain.SchemaViolationError{Violations: w.violations}
}

func join(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}

func index(base string, i int) string {
	return fmt.Sprintf("%s[%d]", base, i)
}

// decode parses a raw result keeping numbers as json.Number
func decode(raw json.RawMessage) (interface{}, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, domain.NewSchemaViolation("", "result is missing")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, domain.NewSchemaViolation("", "result is not valid JSON")
	}
	return v, nil
}

// decodeObject parses a raw result that must be a JSON object
func decodeObject(raw json.RawMessage) (map[string]interface{}, error) {
	v, err := decode(raw)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, domain.NewSchemaViolation("", "result must be an object")
	}
	return obj, nil
}

func (w *walker) object(path string, v interface{}) (map[string]interface{}, bool) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		w.add(path, "object")
	}
	return obj, ok
}

func (w *walker) requiredString(path string, obj map[string]interface{}, key string) string {
	v, present := obj[key]
	if !present {
		w.add(join(path, key), "required string")
		return ""
	}
	s, ok := v.(string)
	if !ok {
		w.add(join(path, key), "string")
	}
	return s
}

func (w *walker) optionalString(path string, obj map[string]interface{}, key string) string {
	v, present := obj[key]
	if !present {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		w.add(join(path, key), "string")
	}
	return s
}

func (w *walker) optionalBool(path string, obj map[string]interface{}, key string) bool {
	v, present := obj[key]
	if !present {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		w.add(join(path, key), "boolean")
	}
	return b
}

func (w *walker) requiredBool(path string, obj map[string]interface{}, key string) bool {
	if _, present := obj[key]; !present {
		w.add(join(path, key), "required boolean")
		return false
	}
	return w.optionalBool(path, obj, key)
}

func (w *walker) requiredArray(path string, obj map[string]interface{}, key string) []interface{} {
	v, present := obj[key]
	if !present {
		w.add(join(path, key), "required array")
		return nil
	}
	arr, ok := v.([]interface{})
	if !ok {
		w.add(join(path, key), "array")
	}
	return arr
}
