package validator

import (
	"encoding/json"
	"fmt"

	"github.com/mcp-compliance-runner/internal/domain"
)

// Capabilities is the capability map advertised by a server
type Capabilities struct {
	features map[string]map[string]interface{}
}

// Has reports whether a feature area is present at all
func (c *Capabilities) Has(feature string) bool {
	_, ok := c.features[feature]
	return ok
}

// Declares reports whether feature.flag is present and true
func (c *Capabilities) Declares(feature, flag string) bool {
	section, ok := c.features[feature]
	if !ok {
		return false
	}
	enabled, _ := section[flag].(bool)
	return enabled
}

// featureSections are the capability members that must be objects when present
var featureSections = map[string]bool{
	"prompts":    true,
	"resources":  true,
	"tools":      true,
	"completion": true,
}

// ParseCapabilities validates a capabilities/get result. Both a bare map and one
// wrapped in {"capabilities": {...}} are accepted. Members other than the
// known feature sections are kept only when they are objects; scalars such as
// protocolVersion are ignored.
func ParseCapabilities(raw json.RawMessage) (*Capabilities, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	if wrapped, ok := obj["capabilities"].(map[string]interface{}); ok {
		obj = wrapped
	}

	w := &walker{}
	caps := &Capabilities{features: make(map[string]map[string]interface{}, len(obj))}
	for name, section := range obj {
		if !featureSections[name] {
			if s, ok := section.(map[string]interface{}); ok {
				caps.features[name] = s
			}
			continue
		}
		if s, ok := w.object(name, section); ok {
			caps.features[name] = s
		}
	}

	if err := w.err(); err != nil {
		return nil, err
	}
	return caps, nil
}

// PromptMessage is one message of a rendered prompt
type PromptMessage struct {
	Role    string
	Content Content
}

// PromptGetResult is the typed prompts/get result
type PromptGetResult struct {
	Description string
	Messages    []PromptMessage
}

// PromptGet validates a prompts/get result
func PromptGet(raw json.RawMessage) (*PromptGetResult, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	w := &walker{}
	out := &PromptGetResult{Description: w.optionalString("", obj, "description")}
	messages := w.requiredArray("", obj, "messages")
	if _, present := obj["messages"]; present && len(messages) == 0 {
		w.add("messages", "non-empty array")
	}
	for i, item := range messages {
		path := index("messages", i)
		from := w.mark()
		m, ok := w.object(path, item)
		if !ok {
			continue
		}
		role := w.requiredString(path, m, "role")
		if role != "" && role != "user" && role != "assistant" {
			w.add(join(path, "role"), fmt.Sprintf("one of user, assistant (got %q)", role))
		}
		content := w.content(join(path, "content"), m["content"])
		w.item(from, path)
		out.Messages = append(out.Messages, PromptMessage{Role: role, Content: content})
	}

	if err := w.err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ToolCallResult is the typed tools/call result
type ToolCallResult struct {
	Content []Content
	IsError bool
}

// HasText reports whether at least one item is text
func (r *ToolCallResult) HasText() bool {
	for _, c := range r.Content {
		if _, ok := c.(TextContent); ok {
			return true
		}
	}
	return false
}

// ToolCall validates a tools/call result
func ToolCall(raw json.RawMessage) (*ToolCallResult, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	w := &walker{}
	out := &ToolCallResult{IsError: w.optionalBool("", obj, "isError")}
	items := w.requiredArray("", obj, "content")
	for i, item := range items {
		path := index("content", i)
		from := w.mark()
		c := w.content(path, item)
		w.item(from, path)
		if c != nil {
			out.Content = append(out.Content, c)
		}
	}
	if out.IsError && len(items) == 0 {
		w.add("content", "non-empty array when isError is true")
	}

	if err := w.err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ResourceReadResult is the typed resources/read result
type ResourceReadResult struct {
	Contents []ResourceContents
}

// ResourceRead validates a resources/read result
func ResourceRead(raw json.RawMessage) (*ResourceReadResult, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	w := &walker{}
	out := &ResourceReadResult{}
	items := w.requiredArray("", obj, "contents")
	if _, present := obj["contents"]; present && len(items) == 0 {
		w.add("contents", "non-empty array")
	}
	for i, item := range items {
		path := index("contents", i)
		from := w.mark()
		if c, ok := w.object(path, item); ok {
			contents := w.resourceContents(path, c)
			w.item(from, path)
			out.Contents = append(out.Contents, contents)
		}
	}

	if err := w.err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SubscribeResult is the typed resources/subscribe result
type SubscribeResult struct {
	SubscriptionID string
}

// Subscribe validates a resources/subscribe result
func Subscribe(raw json.RawMessage) (*SubscribeResult, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	w := &walker{}
	out := &SubscribeResult{SubscriptionID: w.requiredString("", obj, "subscriptionId")}
	if err := w.err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CompletionResult is the typed completion/complete result
type CompletionResult struct {
	Values  []string
	HasMore bool
	// Total is informational and may exceed len(Values)
	Total *int64
}

// Completion validates a completion/complete result
func Completion(raw json.RawMessage) (*CompletionResult, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	w := &walker{}
	completion, ok := w.object("completion", obj["completion"])
	if !ok {
		return nil, w.err()
	}

	out := &CompletionResult{}
	values := w.requiredArray("completion", completion, "values")
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			w.add(index("completion.values", i), "string")
			continue
		}
		out.Values = append(out.Values, s)
	}
	out.HasMore = w.requiredBool("completion", completion, "hasMore")

	if v, present := completion["total"]; present {
		n, ok := v.(json.Number)
		if !ok {
			w.add("completion.total", "integer")
		} else if total, err := n.Int64(); err != nil {
			w.add("completion.total", "integer")
		} else {
			out.Total = &total
		}
	}

	if err := w.err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DistinctPages fails when two consecutive pages returned the same item keys
func DistinctPages(field string, first, second []string) error {
	if len(first) == 0 || len(first) != len(second) {
		return nil
	}
	seen := make(map[string]int, len(first))
	for _, k := range first {
		seen[k]++
	}
	for _, k := range second {
		if seen[k] == 0 {
			return nil
		}
		seen[k]--
	}
	return domain.NewSchemaViolation(field, "next page repeats the previous page")
}
