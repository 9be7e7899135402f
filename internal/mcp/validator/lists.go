package validator

import (
	"encoding/json"
)

// PromptArgument describes one prompt argument
type PromptArgument struct {
	Name        string
	Description string
	Required    bool
}

// Prompt is one entry of prompts/list
type Prompt struct {
	Name        string
	Description string
	Arguments   []PromptArgument
}

// RequiredArguments returns the names of required arguments
func (p Prompt) RequiredArguments() []string {
	var names []string
	for _, a := range p.Arguments {
		if a.Required {
			names = append(names, a.Name)
		}
	}
	return names
}

// PromptsListResult is the typed prompts/list result
type PromptsListResult struct {
	Prompts    []Prompt
	NextCursor string
}

// Resource is one entry of resources/list
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// ResourcesListResult is the typed resources/list result
type ResourcesListResult struct {
	Resources  []Resource
	NextCursor string
}

// Tool is one entry of tools/list
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// ToolsListResult is the typed tools/list result
type ToolsListResult struct {
	Tools      []Tool
	NextCursor string
}

// ResourceTemplate is one entry of resources/templates/list
type ResourceTemplate struct {
	URITemplate string
	Name        string
	Description string
	MimeType    string
}

// ResourceTemplatesListResult is the typed resources/templates/list result
type ResourceTemplatesListResult struct {
	ResourceTemplates []ResourceTemplate
	NextCursor        string
}

// list validates the named array field and the optional nextCursor
func (w *walker) list(obj map[string]interface{}, field string) ([]interface{}, string) {
	items := w.requiredArray("", obj, field)
	cursor := w.optionalString("", obj, "nextCursor")
	return items, cursor
}

// PromptsList validates a prompts/list result
func PromptsList(raw json.RawMessage) (*PromptsListResult, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	w := &walker{}
	items, cursor := w.list(obj, "prompts")
	out := &PromptsListResult{NextCursor: cursor}
	for i, item := range items {
		path := index("prompts", i)
		from := w.mark()
		p, ok := w.object(path, item)
		if !ok {
			continue
		}
		prompt := Prompt{
			Name:        w.requiredString(path, p, "name"),
			Description: w.optionalString(path, p, "description"),
		}
		if _, present := p["arguments"]; present {
			args := w.requiredArray(path, p, "arguments")
			for j, a := range args {
				argPath := index(join(path, "arguments"), j)
				argObj, ok := w.object(argPath, a)
				if !ok {
					continue
				}
				prompt.Arguments = append(prompt.Arguments, PromptArgument{
					Name:        w.requiredString(argPath, argObj, "name"),
					Description: w.optionalString(argPath, argObj, "description"),
					Required:    w.optionalBool(argPath, argObj, "required"),
				})
			}
		}
		w.item(from, path)
		out.Prompts = append(out.Prompts, prompt)
	}

	if err := w.err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ResourcesList validates a resources/list result
func ResourcesList(raw json.RawMessage) (*ResourcesListResult, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	w := &walker{}
	items, cursor := w.list(obj, "resources")
	out := &ResourcesListResult{NextCursor: cursor}
	for i, item := range items {
		path := index("resources", i)
		from := w.mark()
		r, ok := w.object(path, item)
		if !ok {
			continue
		}
		resource := Resource{
			URI:         w.requiredString(path, r, "uri"),
			Name:        w.requiredString(path, r, "name"),
			Description: w.optionalString(path, r, "description"),
			MimeType:    w.optionalString(path, r, "mimeType"),
		}
		w.item(from, path)
		out.Resources = append(out.Resources, resource)
	}

	if err := w.err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ToolsList validates a tools/list result
func ToolsList(raw json.RawMessage) (*ToolsListResult, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	w := &walker{}
	items, cursor := w.list(obj, "tools")
	out := &ToolsListResult{NextCursor: cursor}
	for i, item := range items {
		path := index("tools", i)
		from := w.mark()
		t, ok := w.object(path, item)
		if !ok {
			continue
		}
		tool := Tool{
			Name:        w.requiredString(path, t, "name"),
			Description: w.requiredString(path, t, "description"),
		}
		if schema, present := t["inputSchema"]; !present {
			w.add(join(path, "inputSchema"), "required object")
		} else if s, ok := w.object(join(path, "inputSchema"), schema); ok {
			tool.InputSchema = s
		}
		w.item(from, path)
		out.Tools = append(out.Tools, tool)
	}

	if err := w.err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ResourceTemplatesList validates a resources/templates/list result
func ResourceTemplatesList(raw json.RawMessage) (*ResourceTemplatesListResult, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	w := &walker{}
	items, cursor := w.list(obj, "resourceTemplates")
	out := &ResourceTemplatesListResult{NextCursor: cursor}
	for i, item := range items {
		path := index("resourceTemplates", i)
		from := w.mark()
		t, ok := w.object(path, item)
		if !ok {
			continue
		}
		template := ResourceTemplate{
			URITemplate: w.requiredString(path, t, "uriTemplate"),
			Name:        w.requiredString(path, t, "name"),
			Description: w.optionalString(path, t, "description"),
			MimeType:    w.requiredString(path, t, "mimeType"),
		}
		w.item(from, path)
		out.ResourceTemplates = append(out.ResourceTemplates, template)
	}

	if err := w.err(); err != nil {
		return nil, err
	}
	return out, nil
}
