package mockserver

// ArgumentInfo describes a prompt argument
type ArgumentInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// PromptInfo is one entry of prompts/list
type PromptInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Arguments   []ArgumentInfo `json:"arguments,omitempty"`
}

// ResourceInfo is one entry of resources/list
type ResourceInfo struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType"`

	text string
	blob string
}

// TemplateInfo is one entry of resources/templates/list
type TemplateInfo struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType"`
}

// ToolInfo is one entry of tools/list
type ToolInfo struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// pixelPNG is a 1x1 transparent PNG
const pixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

func defaultPrompts() []PromptInfo {
	return []PromptInfo{
		{
			Name:        "test_prompt",
			Description: "A test prompt",
			Arguments:   []ArgumentInfo{{Name: "arg1", Description: "Test argument", Required: true}},
		},
		{
			Name:        "simple_prompt",
			Description: "A prompt with no arguments",
		},
		{
			Name:        "echo_prompt",
			Description: "Repeats user input",
			Arguments:   []ArgumentInfo{{Name: "text", Description: "Input text", Required: true}},
		},
		{
			Name:        "image_prompt",
			Description: "A prompt that includes an image",
		},
	}
}

func defaultResources() []ResourceInfo {
	return []ResourceInfo{
		{URI: "example://resource1", Name: "Example Resource 1", MimeType: "text/plain", text: "Content of Example Resource 1"},
		{URI: "example://resource2", Name: "Example Resource 2", MimeType: "application/json", text: `{"example":true}`},
		{URI: "example://logo", Name: "Example Logo", MimeType: "image/png", blob: pixelPNG},
	}
}

func defaultTemplates() []TemplateInfo {
	return []TemplateInfo{
		{URITemplate: "template://example/{name}", Name: "Example Template", MimeType: "text/plain"},
		{URITemplate: "template://config/{filename}", Name: "Configuration Template", MimeType: "application/json"},
	}
}

func stringSchema(property, description string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			property: map[string]interface{}{"type": "string", "description": description},
		},
		"required": []interface{}{property},
	}
}

func defaultTools() []ToolInfo {
	return []ToolInfo{
		{Name: "example_tool", Description: "An example tool for testing", InputSchema: stringSchema("query", "A search query")},
		{Name: "calculator", Description: "Performs basic calculations", InputSchema: stringSchema("expression", "Math expression to evaluate")},
		{Name: "error_tool", Description: "A tool that produces controlled errors", InputSchema: stringSchema("mode", "Error mode to trigger")},
		{Name: "admin_only_tool", Description: "A tool that requires admin privileges", InputSchema: stringSchema("command", "Admin command to execute")},
		{Name: "echo_tool", Description: "A tool that echoes back user input", InputSchema: stringSchema("text", "Text to echo back")},
	}
}
