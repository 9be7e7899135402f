package mockserver

import (
	"html"
	"regexp"
	"strings"
)

// handlerAttribute matches inline event handler attributes in any case
var handlerAttribute = regexp.MustCompile(`(?i)\bon(error|click|load|mouseover)\s*=`)

// sanitize escapes markup and neutralises inline event handlers
func sanitize(s string) string {
	return handlerAttribute.ReplaceAllString(html.EscapeString(s), "data-removed=")
}

// containsNullByte reports whether any string inside v carries a NUL
func containsNullByte(v interface{}) bool {
	switch t := v.(type) {
	case string:
		return strings.ContainsRune(t, 0)
	case map[string]interface{}:
		for k, item := range t {
			if strings.ContainsRune(k, 0) || containsNullByte(item) {
				return true
			}
		}
	case []interface{}:
		for _, item := range t {
			if containsNullByte(item) {
				return true
			}
		}
	}
	return false
}
