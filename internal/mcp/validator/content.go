package validator

import (
	"fmt"
)

// Content type tags
const (
	ContentTypeText     = "text"
	ContentTypeImage    = "image"
	ContentTypeResource = "resource"
)

// Content is one item of a prompt message or tool result. The set of
// implementations is closed: TextContent, ImageContent and ResourceContent.
type Content interface {
	ContentType() string
	isContent()
}

// TextContent carries plain text
type TextContent struct {
	Text string
}

// ImageContent carries base64 image data
type ImageContent struct {
	Data     string
	MimeType string
}

// ResourceContent embeds a resource
type ResourceContent struct {
	Resource ResourceContents
}

// ResourceContents is the body of a resource, either text or blob
type ResourceContents struct {
	URI      string
	MimeType string
	Text     *string
	Blob     *string
}

func (TextContent) ContentType() string     { return ContentTypeText }
func (ImageContent) ContentType() string    { return ContentTypeImage }
func (ResourceContent) ContentType() string { return ContentTypeResource }

func (TextContent) isContent()     {}
func (ImageContent) isContent()    {}
func (ResourceContent) isContent() {}

// content decodes one content item; unknown tags are violations
func (w *walker) content(path string, v interface{}) Content {
	obj, ok := w.object(path, v)
	if !ok {
		return nil
	}

	tag := w.requiredString(path, obj, "type")
	switch tag {
	case ContentTypeText:
		return TextContent{Text: w.requiredString(path, obj, "text")}
	case ContentTypeImage:
		return ImageContent{
			Data:     w.requiredString(path, obj, "data"),
			MimeType: w.requiredString(path, obj, "mimeType"),
		}
	case ContentTypeResource:
		res, ok := w.object(join(path, "resource"), obj["resource"])
		if !ok {
			return nil
		}
		return ResourceContent{Resource: w.resourceContents(join(path, "resource"), res)}
	case "":
		return nil
	default:
		w.add(join(path, "type"), fmt.Sprintf("one of text, image, resource (got %q)", tag))
		return nil
	}
}

// resourceContents decodes {uri, mimeType, text|blob}
func (w *walker) resourceContents(path string, obj map[string]interface{}) ResourceContents {
	rc := ResourceContents{
		URI:      w.requiredString(path, obj, "uri"),
		MimeType: w.requiredString(path, obj, "mimeType"),
	}

	if v, ok := obj["text"]; ok {
		if s, ok := v.(string); ok {
			rc.Text = &s
		} else {
			w.add(join(path, "text"), "string")
		}
	}
	if v, ok := obj["blob"]; ok {
		if s, ok := v.(string); ok {
			rc.Blob = &s
		} else {
			w.add(join(path, "blob"), "string")
		}
	}
	if _, hasText := obj["text"]; !hasText {
		if _, hasBlob := obj["blob"]; !hasBlob {
			w.add(path, "text or blob required")
		}
	}
	return rc
}

// TextOf returns the concatenated text of all text items
func TextOf(items []Content) string {
	var out string
	for _, item := range items {
		switch c := item.(type) {
		case TextContent:
			out += c.Text
		case ResourceContent:
			if c.Resource.Text != nil {
				out += *c.Resource.Text
			}
		}
	}
	return out
}
